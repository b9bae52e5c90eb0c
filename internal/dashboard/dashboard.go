// Package dashboard assembles the at-a-glance summary shown after login.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/conorfennell/knolboard/internal/api"
	"github.com/conorfennell/knolboard/internal/domain"
	"github.com/conorfennell/knolboard/internal/streak"
)

const (
	upcomingDays  = 7
	upcomingLimit = 5
)

// Source is the data access the summary needs. *api.Client satisfies it.
type Source interface {
	streak.Source
	ListDecks(ctx context.Context) ([]domain.Deck, error)
	DiaryEntry(ctx context.Context, day time.Time) (domain.DiaryEntry, error)
	AllDiaryEntries(ctx context.Context) ([]domain.DiaryEntry, error)
	ListImprovementLogs(ctx context.Context, typ domain.LogType) ([]domain.ImprovementLog, error)
	ListMaterials(ctx context.Context) ([]domain.LearningMaterial, error)
}

// Achievement is a badge earned from the summary counts.
type Achievement struct {
	Name        string
	Description string
}

// Summary is the dashboard for one day.
type Summary struct {
	Today          streak.Date
	TasksToday     int
	CompletedToday int
	Upcoming       []domain.CalendarEvent
	TodayMood      string

	Decks           int
	TotalFlashcards int
	Streak          int
	LongestStreak   int
	Improvements    int
	Distractions    int
	Materials       int
	DiaryEntries    int

	Achievements []Achievement
}

// Builder fetches the summary sections concurrently.
type Builder struct {
	source Source
	streak *streak.Calculator
	loc    *time.Location
	logger *slog.Logger
}

// NewBuilder creates a Builder. windowDays is passed to the streak calculator.
func NewBuilder(source Source, loc *time.Location, windowDays int, logger *slog.Logger) *Builder {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		source: source,
		streak: streak.NewCalculator(source, loc, windowDays, logger),
		loc:    loc,
		logger: logger,
	}
}

// Build fetches every section and returns the first error encountered.
func (b *Builder) Build(ctx context.Context, now time.Time) (*Summary, error) {
	now = now.In(b.loc)
	today := streak.DateOf(now)
	dayStart := today.In(b.loc)
	dayEnd := today.AddDays(1).In(b.loc)

	s := &Summary{Today: today}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		events, err := b.source.ListEvents(ctx, dayStart, dayEnd)
		if err != nil {
			return fmt.Errorf("failed to load today's tasks: %w", err)
		}
		s.TasksToday = len(events)
		for _, e := range events {
			if e.Completed() {
				s.CompletedToday++
			}
		}
		return nil
	})

	g.Go(func() error {
		events, err := b.source.ListEvents(ctx, now, now.AddDate(0, 0, upcomingDays))
		if err != nil {
			return fmt.Errorf("failed to load upcoming tasks: %w", err)
		}
		s.Upcoming = Upcoming(events, now, upcomingLimit)
		return nil
	})

	g.Go(func() error {
		entry, err := b.source.DiaryEntry(ctx, dayStart)
		if api.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load today's diary entry: %w", err)
		}
		s.TodayMood = entry.Mood
		return nil
	})

	g.Go(func() error {
		decks, err := b.source.ListDecks(ctx)
		if err != nil {
			return fmt.Errorf("failed to load decks: %w", err)
		}
		s.Decks = len(decks)
		for _, d := range decks {
			s.TotalFlashcards += d.CardCount
		}
		return nil
	})

	g.Go(func() error {
		snap, err := b.streak.Refresh(ctx, now)
		if err != nil {
			return err
		}
		s.Streak = snap.Streak()
		s.LongestStreak = snap.Longest()
		return nil
	})

	g.Go(func() error {
		logs, err := b.source.ListImprovementLogs(ctx, domain.LogImprovement)
		if err != nil {
			return fmt.Errorf("failed to load improvement logs: %w", err)
		}
		s.Improvements = len(logs)
		return nil
	})

	g.Go(func() error {
		logs, err := b.source.ListImprovementLogs(ctx, domain.LogDistraction)
		if err != nil {
			return fmt.Errorf("failed to load distraction logs: %w", err)
		}
		s.Distractions = len(logs)
		return nil
	})

	g.Go(func() error {
		materials, err := b.source.ListMaterials(ctx)
		if err != nil {
			return fmt.Errorf("failed to load learning materials: %w", err)
		}
		s.Materials = len(materials)
		return nil
	})

	g.Go(func() error {
		entries, err := b.source.AllDiaryEntries(ctx)
		if err != nil {
			return fmt.Errorf("failed to load diary entries: %w", err)
		}
		s.DiaryEntries = len(entries)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.Achievements = Achievements(s)
	b.logger.Debug("dashboard built", "date", today, "tasks", s.TasksToday, "streak", s.Streak)
	return s, nil
}

// Upcoming returns up to limit pending events starting after now, soonest first.
func Upcoming(events []domain.CalendarEvent, now time.Time, limit int) []domain.CalendarEvent {
	var out []domain.CalendarEvent
	for _, e := range events {
		if e.Status == domain.StatusPending && e.Start.After(now) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Achievements lists the badges s has earned.
func Achievements(s *Summary) []Achievement {
	var out []Achievement
	if s.Streak >= 1 {
		unit := "days"
		if s.Streak == 1 {
			unit = "day"
		}
		out = append(out, Achievement{Name: "Streak", Description: fmt.Sprintf("%d %s of activity in a row", s.Streak, unit)})
	}
	if s.CompletedToday >= 10 {
		out = append(out, Achievement{Name: "Task Master", Description: "completed 10 tasks in a day"})
	}
	if s.TotalFlashcards >= 50 {
		out = append(out, Achievement{Name: "Knowledge Seeker", Description: "50 flashcards created"})
	}
	if s.DiaryEntries >= 7 {
		out = append(out, Achievement{Name: "Consistent Writer", Description: "7 diary entries written"})
	}
	if s.Materials >= 5 {
		out = append(out, Achievement{Name: "Active Learner", Description: "5 learning materials saved"})
	}
	if s.Improvements >= 10 {
		out = append(out, Achievement{Name: "Self Improver", Description: "10 improvement logs kept"})
	}
	return out
}
