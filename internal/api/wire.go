package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/conorfennell/knolboard/internal/domain"
)

// flexString decodes a JSON string or number into a string. The backend is
// not consistent about numeric versus string identifiers.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = flexString(n.String())
	return nil
}

// identity accepts both "id" and "_id" keys.
type identity struct {
	RawID   flexString `json:"id"`
	MongoID flexString `json:"_id"`
}

func (i identity) id() string {
	if i.RawID != "" {
		return string(i.RawID)
	}
	return string(i.MongoID)
}

func (i identity) check(kind string) error {
	if i.id() == "" {
		return fmt.Errorf("%s without id", kind)
	}
	return nil
}

const localLayout = "2006-01-02T15:04:05"

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseTime reads a backend timestamp. Zoned values are converted into loc;
// naive values are taken as wall-clock time in loc.
func parseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func parseOptionalTime(s *string, loc *time.Location) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := parseTime(*s, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseDay reads a diary day. A bare date is taken literally; anything with a
// time component is converted to loc first. The result is midnight in loc.
func parseDay(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) == len("2006-01-02") {
		return time.ParseInLocation("2006-01-02", s, loc)
	}
	t, err := parseTime(s, loc)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
}

// formatLocal renders a wall-clock timestamp without zone suffix, the form
// the backend expects for range filters.
func formatLocal(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(localLayout)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type wireDeck struct {
	identity
	Name        string  `json:"name"`
	Description *string `json:"description"`
	CardCount   int     `json:"card_count"`
}

func (w wireDeck) toDomain() (domain.Deck, error) {
	if err := w.check("deck"); err != nil {
		return domain.Deck{}, err
	}
	return domain.Deck{
		ID:          w.id(),
		Name:        w.Name,
		Description: deref(w.Description),
		CardCount:   w.CardCount,
	}, nil
}

type wireCard struct {
	identity
	DeckID        flexString `json:"deck_id"`
	Front         string     `json:"front"`
	Back          string     `json:"back"`
	Hint          *string    `json:"hint"`
	Tags          []string   `json:"tags"`
	TimesReviewed int        `json:"times_reviewed"`
	NextReview    *string    `json:"next_review"`
	LastReviewed  *string    `json:"last_reviewed"`
	EaseFactor    float64    `json:"ease_factor"`
}

func (w wireCard) toDomain(loc *time.Location) (domain.Card, error) {
	if err := w.check("card"); err != nil {
		return domain.Card{}, err
	}
	next, err := parseOptionalTime(w.NextReview, loc)
	if err != nil {
		return domain.Card{}, fmt.Errorf("card %s next_review: %w", w.id(), err)
	}
	last, err := parseOptionalTime(w.LastReviewed, loc)
	if err != nil {
		return domain.Card{}, fmt.Errorf("card %s last_reviewed: %w", w.id(), err)
	}
	return domain.Card{
		ID:            w.id(),
		DeckID:        string(w.DeckID),
		Front:         w.Front,
		Back:          w.Back,
		Hint:          deref(w.Hint),
		Tags:          w.Tags,
		TimesReviewed: w.TimesReviewed,
		NextReview:    next,
		LastReviewed:  last,
		EaseFactor:    w.EaseFactor,
	}, nil
}

type wireEvent struct {
	identity
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	StartTime   string     `json:"start_time"`
	EndTime     string     `json:"end_time"`
	Status      string     `json:"status"`
	Priority    flexString `json:"priority"`
}

func (w wireEvent) toDomain(loc *time.Location) (domain.CalendarEvent, error) {
	if err := w.check("event"); err != nil {
		return domain.CalendarEvent{}, err
	}
	start, err := parseTime(w.StartTime, loc)
	if err != nil {
		return domain.CalendarEvent{}, fmt.Errorf("event %s start_time: %w", w.id(), err)
	}
	end := start
	if strings.TrimSpace(w.EndTime) != "" {
		if end, err = parseTime(w.EndTime, loc); err != nil {
			return domain.CalendarEvent{}, fmt.Errorf("event %s end_time: %w", w.id(), err)
		}
	}
	return domain.CalendarEvent{
		ID:          w.id(),
		Title:       w.Title,
		Description: deref(w.Description),
		Start:       start,
		End:         end,
		Status:      domain.EventStatus(strings.ToLower(w.Status)),
		Priority:    string(w.Priority),
	}, nil
}

type wireDiaryEntry struct {
	identity
	Date      string  `json:"date"`
	Mood      *string `json:"mood"`
	Content   *string `json:"content"`
	CreatedAt *string `json:"created_at"`
}

func (w wireDiaryEntry) toDomain(loc *time.Location) (domain.DiaryEntry, error) {
	day, err := parseDay(w.Date, loc)
	if err != nil {
		return domain.DiaryEntry{}, fmt.Errorf("diary entry %s date: %w", w.id(), err)
	}
	created, err := parseOptionalTime(w.CreatedAt, loc)
	if err != nil {
		return domain.DiaryEntry{}, fmt.Errorf("diary entry %s created_at: %w", w.id(), err)
	}
	return domain.DiaryEntry{
		ID:        w.id(),
		Date:      day,
		Mood:      deref(w.Mood),
		Content:   deref(w.Content),
		CreatedAt: created,
	}, nil
}

type wireProgressNote struct {
	Note      string  `json:"note"`
	CreatedAt *string `json:"created_at"`
}

type wireImprovementLog struct {
	identity
	Type          string             `json:"type"`
	Title         string             `json:"title"`
	Description   *string            `json:"description"`
	Status        string             `json:"status"`
	ProgressNotes []wireProgressNote `json:"progress_notes"`
	CreatedAt     *string            `json:"created_at"`
}

func (w wireImprovementLog) toDomain(loc *time.Location) (domain.ImprovementLog, error) {
	if err := w.check("improvement log"); err != nil {
		return domain.ImprovementLog{}, err
	}
	created, err := parseOptionalTime(w.CreatedAt, loc)
	if err != nil {
		return domain.ImprovementLog{}, fmt.Errorf("improvement log %s created_at: %w", w.id(), err)
	}
	notes := make([]domain.ProgressNote, 0, len(w.ProgressNotes))
	for _, n := range w.ProgressNotes {
		at, err := parseOptionalTime(n.CreatedAt, loc)
		if err != nil {
			return domain.ImprovementLog{}, fmt.Errorf("improvement log %s progress note: %w", w.id(), err)
		}
		notes = append(notes, domain.ProgressNote{Note: n.Note, CreatedAt: at})
	}
	return domain.ImprovementLog{
		ID:            w.id(),
		Type:          domain.LogType(w.Type),
		Title:         w.Title,
		Description:   deref(w.Description),
		Status:        w.Status,
		ProgressNotes: notes,
		CreatedAt:     created,
	}, nil
}

type wireMaterial struct {
	identity
	Title      string       `json:"title"`
	Content    *string      `json:"content"`
	SourceURL  *string      `json:"source_url"`
	Tags       []string     `json:"tags"`
	IsArchived bool         `json:"is_archived"`
	SharedWith []flexString `json:"shared_with"`
}

func (w wireMaterial) toDomain() (domain.LearningMaterial, error) {
	if err := w.check("learning material"); err != nil {
		return domain.LearningMaterial{}, err
	}
	shared := make([]string, 0, len(w.SharedWith))
	for _, id := range w.SharedWith {
		shared = append(shared, string(id))
	}
	return domain.LearningMaterial{
		ID:         w.id(),
		Title:      w.Title,
		Content:    deref(w.Content),
		URL:        deref(w.SourceURL),
		Tags:       w.Tags,
		Archived:   w.IsArchived,
		SharedWith: shared,
	}, nil
}

type wireFunContent struct {
	identity
	Title       string  `json:"title"`
	Content     string  `json:"content"`
	ContentType string  `json:"content_type"`
	Likes       int     `json:"likes"`
	Author      *string `json:"author"`
}

func (w wireFunContent) toDomain() (domain.FunContent, error) {
	if err := w.check("fun zone content"); err != nil {
		return domain.FunContent{}, err
	}
	return domain.FunContent{
		ID:          w.id(),
		Title:       w.Title,
		Content:     w.Content,
		ContentType: w.ContentType,
		Likes:       w.Likes,
		Author:      deref(w.Author),
	}, nil
}

type wireUser struct {
	identity
	Username string  `json:"username"`
	Email    string  `json:"email"`
	FullName *string `json:"full_name"`
	Bio      *string `json:"bio"`
	IsActive bool    `json:"is_active"`
	IsAdmin  bool    `json:"is_admin"`
}

func (w wireUser) toDomain() (domain.User, error) {
	if err := w.check("user"); err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:       w.id(),
		Username: w.Username,
		Email:    w.Email,
		FullName: deref(w.FullName),
		Bio:      deref(w.Bio),
		IsActive: w.IsActive,
		IsAdmin:  w.IsAdmin,
	}, nil
}

// convertAll maps a slice of wire values through fn, stopping at the first error.
func convertAll[W any, D any](in []W, fn func(W) (D, error)) ([]D, error) {
	out := make([]D, 0, len(in))
	for _, w := range in {
		d, err := fn(w)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
