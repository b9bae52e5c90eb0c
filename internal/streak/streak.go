// Package streak computes the trailing run of days with recorded activity.
// A day is active when a calendar task was completed on it or a diary entry
// was written for it.
package streak

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/conorfennell/knolboard/internal/domain"
)

// DefaultWindowDays is how far back activity is fetched.
const DefaultWindowDays = 30

// Source is the data access the calculator needs. *api.Client satisfies it.
type Source interface {
	ListEvents(ctx context.Context, start, end time.Time) ([]domain.CalendarEvent, error)
	ListDiaryEntries(ctx context.Context, start, end time.Time) ([]domain.DiaryEntry, error)
}

// ActivitySet holds the active days. Several activities on one day count once.
type ActivitySet map[Date]struct{}

// Has reports whether d is active.
func (s ActivitySet) Has(d Date) bool {
	_, ok := s[d]
	return ok
}

// Days returns the active days in ascending order.
func (s ActivitySet) Days() []Date {
	days := make([]Date, 0, len(s))
	for d := range s {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// Window is an inclusive range of days.
type Window struct {
	From Date
	To   Date
}

// Contains reports whether d falls inside the window.
func (w Window) Contains(d Date) bool {
	return !d.Before(w.From) && !w.To.Before(d)
}

// WindowEnding returns the window of days days before today through today.
func WindowEnding(today Date, days int) Window {
	return Window{From: today.AddDays(-days), To: today}
}

// BuildActivitySet collects the active days inside w. Completed events count
// on the local day they ended; diary entries count on their own date. Events
// in any other status are ignored.
func BuildActivitySet(events []domain.CalendarEvent, entries []domain.DiaryEntry, loc *time.Location, w Window) ActivitySet {
	set := make(ActivitySet)
	for _, e := range events {
		if !e.Completed() {
			continue
		}
		if d := DateOf(e.End.In(loc)); w.Contains(d) {
			set[d] = struct{}{}
		}
	}
	for _, entry := range entries {
		if d := DateOf(entry.Date); w.Contains(d) {
			set[d] = struct{}{}
		}
	}
	return set
}

// Count returns the streak ending today. If today has no activity yet the
// streak may still end yesterday; a gap of two days resets it to zero.
func Count(set ActivitySet, today Date) int {
	cursor := today
	if !set.Has(cursor) {
		cursor = today.AddDays(-1)
		if !set.Has(cursor) {
			return 0
		}
	}

	streak := 0
	for set.Has(cursor) {
		streak++
		cursor = cursor.AddDays(-1)
	}
	return streak
}

// LongestRun returns the length of the longest run of consecutive active days.
func LongestRun(set ActivitySet) int {
	longest, run := 0, 0
	var prev Date
	for i, d := range set.Days() {
		if i > 0 && prev.AddDays(1) == d {
			run++
		} else {
			run = 1
		}
		longest = max(longest, run)
		prev = d
	}
	return longest
}

// Calculator fetches activity and computes streaks from it.
type Calculator struct {
	source     Source
	loc        *time.Location
	windowDays int
	logger     *slog.Logger
}

// NewCalculator creates a calculator. A windowDays of zero or less uses
// DefaultWindowDays; a nil loc uses time.Local.
func NewCalculator(source Source, loc *time.Location, windowDays int, logger *slog.Logger) *Calculator {
	if loc == nil {
		loc = time.Local
	}
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Calculator{source: source, loc: loc, windowDays: windowDays, logger: logger}
}

// Snapshot is the activity fetched at one point in time. It does not change
// after Refresh returns; fetch a new one to see later activity.
type Snapshot struct {
	Today    Date
	Window   Window
	Activity ActivitySet
	Events   []domain.CalendarEvent
	Entries  []domain.DiaryEntry
}

// Streak is the current streak as of Today.
func (s *Snapshot) Streak() int {
	return Count(s.Activity, s.Today)
}

// Longest is the longest run inside the window.
func (s *Snapshot) Longest() int {
	return LongestRun(s.Activity)
}

// Refresh fetches events and diary entries for the window ending on now's day.
func (c *Calculator) Refresh(ctx context.Context, now time.Time) (*Snapshot, error) {
	today := DateOf(now.In(c.loc))
	w := WindowEnding(today, c.windowDays)
	start := w.From.In(c.loc)
	end := time.Date(w.To.Year, w.To.Month, w.To.Day, 23, 59, 59, 0, c.loc)

	events, err := c.source.ListEvents(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch calendar events: %w", err)
	}
	entries, err := c.source.ListDiaryEntries(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch diary entries: %w", err)
	}

	set := BuildActivitySet(events, entries, c.loc, w)
	c.logger.Debug("activity refreshed", "from", w.From, "to", w.To,
		"events", len(events), "diary_entries", len(entries), "active_days", len(set))

	return &Snapshot{Today: today, Window: w, Activity: set, Events: events, Entries: entries}, nil
}

// Compute returns the streak as of now.
func (c *Calculator) Compute(ctx context.Context, now time.Time) (int, error) {
	snap, err := c.Refresh(ctx, now)
	if err != nil {
		return 0, err
	}
	return snap.Streak(), nil
}
