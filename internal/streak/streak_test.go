package streak

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/conorfennell/knolboard/internal/api"
	"github.com/conorfennell/knolboard/internal/apitest"
	"github.com/conorfennell/knolboard/internal/domain"
	"github.com/conorfennell/knolboard/internal/logging"
)

var today = Date{Year: 2024, Month: time.March, Day: 1}

func setOf(offsets ...int) ActivitySet {
	set := make(ActivitySet)
	for _, o := range offsets {
		set[today.AddDays(-o)] = struct{}{}
	}
	return set
}

func TestCount(t *testing.T) {
	unbroken := make([]int, 30)
	for i := range unbroken {
		unbroken[i] = i
	}

	testCases := []struct {
		name     string
		set      ActivitySet
		expected int
	}{
		{"today and two before", setOf(0, 1, 2), 3},
		{"gap after three days", setOf(0, 1, 2, 4, 5), 3},
		{"grace when today is empty", setOf(1, 2), 2},
		{"no activity today or yesterday", setOf(2, 3, 4, 5), 0},
		{"empty set", setOf(), 0},
		{"only today", setOf(0), 1},
		{"only yesterday", setOf(1), 1},
		{"thirty unbroken days", setOf(unbroken...), 30},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Count(tc.set, today); got != tc.expected {
				t.Errorf("Expected streak %d, but got %d", tc.expected, got)
			}
		})
	}
}

func TestCountAcrossMonthBoundary(t *testing.T) {
	// 2024 is a leap year: March 1 follows February 29.
	set := ActivitySet{
		{2024, time.March, 1}:     {},
		{2024, time.February, 29}: {},
		{2024, time.February, 28}: {},
	}
	if got := Count(set, today); got != 3 {
		t.Errorf("Expected streak 3, but got %d", got)
	}
}

func TestBuildActivitySet(t *testing.T) {
	loc := time.UTC
	w := WindowEnding(today, DefaultWindowDays)
	at := func(offset, hour, minute int) time.Time {
		return today.AddDays(-offset).In(loc).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
	}

	events := []domain.CalendarEvent{
		{ID: "1", Start: at(0, 23, 0), End: at(0, 23, 59), Status: domain.StatusCompleted},
		{ID: "2", Start: at(1, 9, 0), End: at(1, 10, 0), Status: domain.StatusPending},
		{ID: "3", Start: at(2, 9, 0), End: at(2, 10, 0), Status: domain.StatusSkipped},
		{ID: "4", Start: at(40, 9, 0), End: at(40, 10, 0), Status: domain.StatusCompleted},
		{ID: "5", Start: at(4, 23, 0), End: at(3, 1, 0), Status: domain.StatusCompleted},
	}
	entries := []domain.DiaryEntry{
		{ID: "d1", Date: today.In(loc)},
		{ID: "d2", Date: today.AddDays(-5).In(loc)},
		{ID: "d3", Date: today.AddDays(-31).In(loc)},
	}

	set := BuildActivitySet(events, entries, loc, w)

	expected := []Date{today.AddDays(-5), today.AddDays(-3), today}
	days := set.Days()
	if len(days) != len(expected) {
		t.Fatalf("Expected %d active days, but got %v", len(expected), days)
	}
	for i := range expected {
		if days[i] != expected[i] {
			t.Errorf("Expected day %s at %d, but got %s", expected[i], i, days[i])
		}
	}
}

func TestEventDayUsesLocalZone(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	// 20:00 UTC on Feb 29 is already March 1 in Tokyo.
	end := time.Date(2024, time.February, 29, 20, 0, 0, 0, time.UTC)
	events := []domain.CalendarEvent{{ID: "1", Start: end, End: end, Status: domain.StatusCompleted}}

	set := BuildActivitySet(events, nil, tokyo, WindowEnding(today, DefaultWindowDays))
	if !set.Has(today) {
		t.Errorf("Expected %s to be active, but got %v", today, set.Days())
	}
}

func TestLongestRun(t *testing.T) {
	testCases := []struct {
		name     string
		set      ActivitySet
		expected int
	}{
		{"empty", setOf(), 0},
		{"single", setOf(7), 1},
		{"older run is longer", setOf(0, 1, 5, 6, 7, 8), 4},
		{"current run is longest", setOf(0, 1, 2, 10), 3},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := LongestRun(tc.set); got != tc.expected {
				t.Errorf("Expected longest run %d, but got %d", tc.expected, got)
			}
		})
	}
}

type recordingSource struct {
	events     []domain.CalendarEvent
	entries    []domain.DiaryEntry
	err        error
	start, end time.Time
}

func (r *recordingSource) ListEvents(ctx context.Context, start, end time.Time) ([]domain.CalendarEvent, error) {
	r.start, r.end = start, end
	return r.events, r.err
}

func (r *recordingSource) ListDiaryEntries(ctx context.Context, start, end time.Time) ([]domain.DiaryEntry, error) {
	return r.entries, nil
}

func TestRefreshWindow(t *testing.T) {
	src := &recordingSource{}
	calc := NewCalculator(src, time.UTC, 0, logging.Discard())
	now := time.Date(2024, time.March, 1, 15, 30, 0, 0, time.UTC)

	snap, err := calc.Refresh(context.Background(), now)
	if err != nil {
		t.Fatalf("Refresh() returned an unexpected error: %v", err)
	}
	expectedStart := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)
	expectedEnd := time.Date(2024, time.March, 1, 23, 59, 59, 0, time.UTC)
	if !src.start.Equal(expectedStart) || !src.end.Equal(expectedEnd) {
		t.Errorf("Expected range [%v, %v], but got [%v, %v]", expectedStart, expectedEnd, src.start, src.end)
	}
	if snap.Today != today {
		t.Errorf("Expected today %s, but got %s", today, snap.Today)
	}
}

func TestComputeReportsFetchError(t *testing.T) {
	cause := errors.New("boom")
	calc := NewCalculator(&recordingSource{err: cause}, time.UTC, 30, logging.Discard())
	if _, err := calc.Compute(context.Background(), time.Now()); !errors.Is(err, cause) {
		t.Errorf("Expected wrapped fetch error, but got %v", err)
	}
}

func TestComputeAgainstBackend(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	srv.Loc = time.UTC
	srv.AddUser("ada", "secret-pass", true, false)
	tokens := &api.MemoryTokenStore{}
	tokens.SaveToken(context.Background(), "ada", srv.IssueToken("ada"))
	client, err := api.New(api.Config{BaseURL: srv.BaseURL(), Location: time.UTC, Logger: logging.Discard()}, tokens)
	if err != nil {
		t.Fatalf("api.New() returned an unexpected error: %v", err)
	}

	day := func(offset int) time.Time { return today.AddDays(-offset).In(time.UTC) }
	// Today: a completed task and a diary entry, counted once.
	srv.AddEvent("write report", day(0).Add(9*time.Hour), day(0).Add(23*time.Hour+59*time.Minute), "completed")
	srv.AddDiaryEntry(today.String(), "happy")
	// Yesterday: diary only.
	srv.AddDiaryEntry(today.AddDays(-1).String(), "neutral")
	// Two days ago: a pending task does not count.
	srv.AddEvent("gym", day(2).Add(7*time.Hour), day(2).Add(8*time.Hour), "pending")
	// Three days ago: active, but the gap breaks the streak.
	srv.AddEvent("review", day(3).Add(7*time.Hour), day(3).Add(8*time.Hour), "completed")

	calc := NewCalculator(client, time.UTC, DefaultWindowDays, logging.Discard())
	now := day(0).Add(18 * time.Hour)

	streak, err := calc.Compute(context.Background(), now)
	if err != nil {
		t.Fatalf("Compute() returned an unexpected error: %v", err)
	}
	if streak != 2 {
		t.Errorf("Expected streak 2, but got %d", streak)
	}
}
