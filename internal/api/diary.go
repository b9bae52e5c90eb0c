package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/conorfennell/knolboard/internal/domain"
)

const dayLayout = "2006-01-02"

// DiaryInput is the payload for writing a diary entry.
type DiaryInput struct {
	Date    string `json:"date" validate:"required,datetime=2006-01-02"`
	Mood    string `json:"mood" validate:"required,oneof=amazing happy neutral sad angry"`
	Content string `json:"content"`
}

// ListDiaryEntries returns entries whose date falls in [start, end].
func (c *Client) ListDiaryEntries(ctx context.Context, start, end time.Time) ([]domain.DiaryEntry, error) {
	q := url.Values{
		"start_date": {formatLocal(start, c.loc)},
		"end_date":   {formatLocal(end, c.loc)},
	}
	return c.listDiary(ctx, q)
}

// AllDiaryEntries returns every entry the user has written.
func (c *Client) AllDiaryEntries(ctx context.Context) ([]domain.DiaryEntry, error) {
	return c.listDiary(ctx, nil)
}

func (c *Client) listDiary(ctx context.Context, q url.Values) ([]domain.DiaryEntry, error) {
	var ws []wireDiaryEntry
	if err := c.do(ctx, "list diary entries", request{method: http.MethodGet, route: "/diary/entries", query: q}, &ws); err != nil {
		return nil, err
	}
	entries, err := convertAll(ws, func(w wireDiaryEntry) (domain.DiaryEntry, error) { return w.toDomain(c.loc) })
	if err != nil {
		return nil, malformed("list diary entries", err)
	}
	return entries, nil
}

// DiaryEntry returns the entry for day. A missing entry is a 404; check with IsNotFound.
func (c *Client) DiaryEntry(ctx context.Context, day time.Time) (domain.DiaryEntry, error) {
	var w wireDiaryEntry
	r := request{method: http.MethodGet, route: "/diary/entries/{date}", params: []string{day.In(c.loc).Format(dayLayout)}}
	if err := c.do(ctx, "get diary entry", r, &w); err != nil {
		return domain.DiaryEntry{}, err
	}
	return decodeOne("get diary entry", func() (domain.DiaryEntry, error) { return w.toDomain(c.loc) })
}

// CreateDiaryEntry writes a new entry.
func (c *Client) CreateDiaryEntry(ctx context.Context, in DiaryInput) (domain.DiaryEntry, error) {
	var w wireDiaryEntry
	if err := c.do(ctx, "create diary entry", request{method: http.MethodPost, route: "/diary/entries", body: in}, &w); err != nil {
		return domain.DiaryEntry{}, err
	}
	return decodeOne("create diary entry", func() (domain.DiaryEntry, error) { return w.toDomain(c.loc) })
}

// UpdateDiaryEntry rewrites the entry for in.Date.
func (c *Client) UpdateDiaryEntry(ctx context.Context, in DiaryInput) (domain.DiaryEntry, error) {
	var w wireDiaryEntry
	r := request{method: http.MethodPut, route: "/diary/entries/{date}", params: []string{in.Date}, body: in}
	if err := c.do(ctx, "update diary entry", r, &w); err != nil {
		return domain.DiaryEntry{}, err
	}
	return decodeOne("update diary entry", func() (domain.DiaryEntry, error) { return w.toDomain(c.loc) })
}

// DeleteDiaryEntry deletes the entry for day.
func (c *Client) DeleteDiaryEntry(ctx context.Context, day time.Time) error {
	r := request{method: http.MethodDelete, route: "/diary/entries/{date}", params: []string{day.In(c.loc).Format(dayLayout)}}
	return c.do(ctx, "delete diary entry", r, nil)
}

// MoodSummary counts entries per mood in [start, end].
func (c *Client) MoodSummary(ctx context.Context, start, end time.Time) (domain.MoodSummary, error) {
	q := url.Values{
		"start_date": {formatLocal(start, c.loc)},
		"end_date":   {formatLocal(end, c.loc)},
	}
	var raw map[string]json.RawMessage
	if err := c.do(ctx, "mood summary", request{method: http.MethodGet, route: "/diary/mood-summary", query: q}, &raw); err != nil {
		return domain.MoodSummary{}, err
	}

	// The summary is either {"mood": n, ...} or wrapped as {"mood_counts": {...}}.
	if nested, ok := raw["mood_counts"]; ok {
		raw = nil
		if err := json.Unmarshal(nested, &raw); err != nil {
			return domain.MoodSummary{}, malformed("mood summary", err)
		}
	}
	summary := domain.MoodSummary{Counts: make(map[string]int)}
	for mood, v := range raw {
		if mood == "total" {
			continue
		}
		var n int
		if err := json.Unmarshal(v, &n); err != nil {
			continue
		}
		summary.Counts[mood] = n
		summary.Total += n
	}
	return summary, nil
}
