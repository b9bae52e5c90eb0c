package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/conorfennell/knolboard/internal/api"
	"github.com/conorfennell/knolboard/internal/dashboard"
	"github.com/conorfennell/knolboard/internal/domain"
	"github.com/conorfennell/knolboard/internal/streak"
)

func runStreak(ctx context.Context, e *env, args []string) error {
	fs := newFlags("streak")
	verbose := fs.BoolP("verbose", "v", false, "list the active days")
	if err := parse(fs, args); err != nil {
		return err
	}

	calc := streak.NewCalculator(e.client, e.loc, e.cfg.WindowDays, e.logger)
	snap, err := calc.Refresh(ctx, e.now())
	if err != nil {
		return err
	}
	e.printf("Current streak: %s\n", days(snap.Streak()))
	e.printf("Longest in the last %d days: %s\n", e.cfg.WindowDays, days(snap.Longest()))
	if *verbose {
		for _, d := range snap.Activity.Days() {
			e.printf("  %s\n", d)
		}
	}
	return nil
}

func days(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

func runSummary(ctx context.Context, e *env, args []string) error {
	b := dashboard.NewBuilder(e.client, e.loc, e.cfg.WindowDays, e.logger)
	s, err := b.Build(ctx, e.now())
	if err != nil {
		return err
	}

	e.printf("%s\n\n", s.Today)
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Tasks today\t%d/%d completed\n", s.CompletedToday, s.TasksToday)
	mood := s.TodayMood
	if mood == "" {
		mood = "-"
	}
	fmt.Fprintf(tw, "Mood\t%s\n", mood)
	fmt.Fprintf(tw, "Streak\t%s (longest %d)\n", days(s.Streak), s.LongestStreak)
	fmt.Fprintf(tw, "Flashcards\t%d in %d decks\n", s.TotalFlashcards, s.Decks)
	fmt.Fprintf(tw, "Diary entries\t%d\n", s.DiaryEntries)
	fmt.Fprintf(tw, "Improvements\t%d\n", s.Improvements)
	fmt.Fprintf(tw, "Distractions\t%d\n", s.Distractions)
	fmt.Fprintf(tw, "Materials\t%d\n", s.Materials)
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(s.Upcoming) > 0 {
		e.printf("\nUpcoming\n")
		printEvents(e, s.Upcoming)
	}
	if len(s.Achievements) > 0 {
		e.printf("\nAchievements\n")
		for _, a := range s.Achievements {
			e.printf("  %s: %s\n", a.Name, a.Description)
		}
	}
	return nil
}

func runEvents(ctx context.Context, e *env, args []string) error {
	if len(args) > 0 && args[0] == "add" {
		return runEventsAdd(ctx, e, args[1:])
	}

	fs := newFlags("events")
	from := fs.String("from", "", "first day, YYYY-MM-DD (default today)")
	to := fs.String("to", "", "last day, YYYY-MM-DD (default from)")
	if err := parse(fs, args); err != nil {
		return err
	}

	start, end := e.today()
	if *from != "" {
		t, err := parseDate(*from, e.loc)
		if err != nil {
			return err
		}
		start, end = t, endOfDay(t)
	}
	if *to != "" {
		t, err := parseDate(*to, e.loc)
		if err != nil {
			return err
		}
		end = endOfDay(t)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: --to is before --from", ErrUsage)
	}

	events, err := e.client.ListEvents(ctx, start, end)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		e.printf("No tasks\n")
		return nil
	}
	printEvents(e, events)
	return nil
}

func runEventsAdd(ctx context.Context, e *env, args []string) error {
	fs := newFlags("events add")
	startFlag := fs.String("start", "", "start time, YYYY-MM-DDTHH:MM")
	duration := fs.Duration("duration", time.Hour, "how long the task takes")
	priority := fs.String("priority", "medium", "low, medium or high")
	description := fs.String("description", "", "details")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 || *startFlag == "" {
		return fmt.Errorf("%w: events add --start <time> <title>", ErrUsage)
	}
	start, err := parseDateTime(*startFlag, e.loc)
	if err != nil {
		return err
	}

	ev, err := e.client.CreateEvent(ctx, api.EventInput{
		Title:       fs.Arg(0),
		Description: *description,
		Start:       start,
		End:         start.Add(*duration),
		Priority:    *priority,
	})
	if err != nil {
		return err
	}
	e.printf("Added %s (%s)\n", ev.Title, ev.ID)
	return nil
}

func runComplete(ctx context.Context, e *env, args []string) error {
	return transition(ctx, e, "complete", e.client.CompleteEvent, args)
}

func runSkip(ctx context.Context, e *env, args []string) error {
	return transition(ctx, e, "skip", e.client.SkipEvent, args)
}

type transitionFunc func(ctx context.Context, eventID string, in api.CompletionInput) (domain.CalendarEvent, error)

func transition(ctx context.Context, e *env, name string, fn transitionFunc, args []string) error {
	fs := newFlags(name)
	notes := fs.String("notes", "", "notes to record")
	minutes := fs.Int("minutes", 0, "actual duration in minutes")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: %s <event-id>", ErrUsage, name)
	}
	ev, err := fn(ctx, fs.Arg(0), api.CompletionInput{Notes: *notes, ActualDuration: *minutes})
	if err != nil {
		return err
	}
	e.printf("%s: %s\n", ev.Title, ev.Status)
	return nil
}

func printEvents(e *env, events []domain.CalendarEvent) {
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTART\tEND\tSTATUS\tPRIORITY\tTITLE")
	for _, ev := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			ev.ID,
			ev.Start.In(e.loc).Format("2006-01-02 15:04"),
			ev.End.In(e.loc).Format("15:04"),
			ev.Status, ev.Priority, ev.Title)
	}
	tw.Flush()
}

func runDiary(ctx context.Context, e *env, args []string) error {
	if len(args) > 0 && args[0] == "add" {
		return runDiaryAdd(ctx, e, args[1:])
	}

	fs := newFlags("diary")
	date := fs.String("date", "", "show one day, YYYY-MM-DD")
	if err := parse(fs, args); err != nil {
		return err
	}

	if *date != "" {
		day, err := parseDate(*date, e.loc)
		if err != nil {
			return err
		}
		entry, err := e.client.DiaryEntry(ctx, day)
		if err != nil {
			if api.IsNotFound(err) {
				e.printf("No entry for %s\n", *date)
				return nil
			}
			return err
		}
		e.printf("%s  %s\n\n%s\n", entry.Date.Format("2006-01-02"), entry.Mood, entry.Content)
		return nil
	}

	entries, err := e.client.AllDiaryEntries(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		e.printf("No entries\n")
		return nil
	}
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tMOOD\tENTRY")
	for _, entry := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", entry.Date.Format("2006-01-02"), entry.Mood, firstLine(entry.Content))
	}
	return tw.Flush()
}

func runDiaryAdd(ctx context.Context, e *env, args []string) error {
	fs := newFlags("diary add")
	date := fs.String("date", "", "day of the entry, YYYY-MM-DD (default today)")
	mood := fs.String("mood", "neutral", "amazing, happy, neutral, sad or angry")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: diary add [--mood <mood>] <text>", ErrUsage)
	}
	day := e.now().Format("2006-01-02")
	if *date != "" {
		t, err := parseDate(*date, e.loc)
		if err != nil {
			return err
		}
		day = t.Format("2006-01-02")
	}

	entry, err := e.client.CreateDiaryEntry(ctx, api.DiaryInput{Date: day, Mood: *mood, Content: fs.Arg(0)})
	if err != nil {
		return err
	}
	e.printf("Saved diary entry for %s\n", entry.Date.Format("2006-01-02"))
	return nil
}
