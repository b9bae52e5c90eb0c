package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/conorfennell/knolboard/internal/api"
	"github.com/conorfennell/knolboard/internal/domain"
	"github.com/conorfennell/knolboard/internal/review"
)

func runDecks(ctx context.Context, e *env, args []string) error {
	decks, err := e.client.ListDecks(ctx)
	if err != nil {
		return err
	}
	if len(decks) == 0 {
		e.printf("No decks\n")
		return nil
	}
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCARDS")
	for _, d := range decks {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", d.ID, d.Name, d.CardCount)
	}
	return tw.Flush()
}

func runCards(ctx context.Context, e *env, args []string) error {
	fs := newFlags("cards")
	due := fs.Bool("due", false, "only cards due for review")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: cards [--due] <deck-id>", ErrUsage)
	}

	list := e.client.ListCards
	if *due {
		list = e.client.DueCards
	}
	cards, err := list(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	if len(cards) == 0 {
		e.printf("No cards\n")
		return nil
	}
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFRONT\tREVIEWS\tNEXT")
	for _, c := range cards {
		next := "now"
		if c.NextReview != nil {
			next = c.NextReview.In(e.loc).Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", c.ID, firstLine(c.Front), c.TimesReviewed, next)
	}
	return tw.Flush()
}

func runStudy(ctx context.Context, e *env, args []string) error {
	fs := newFlags("study")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: study <deck-id>", ErrUsage)
	}

	s := review.NewScheduler(e.client, review.Options{
		Now:     e.now,
		Logger:  e.logger,
		Metrics: e.metrics,
	})
	if _, err := s.LoadDueCards(ctx, fs.Arg(0)); err != nil {
		return err
	}
	if err := s.Start(); err != nil {
		if errors.Is(err, review.ErrNothingDue) {
			e.printf("No cards due. Well done!\n")
			return nil
		}
		return err
	}

	for {
		card, _ := s.Current()
		pos, total := s.Progress()
		e.printf("\n[%d/%d] %s\n", pos, total, card.Front)
		if card.Hint != "" {
			e.printf("hint: %s\n", card.Hint)
		}
		if _, err := e.prompt("(enter to reveal) "); err != nil {
			return studyAborted(e, s, err)
		}
		if err := s.Reveal(); err != nil {
			return err
		}
		e.printf("%s\n", card.Back)

		done, err := submitAnswer(ctx, e, s)
		if err != nil {
			return studyAborted(e, s, err)
		}
		if done {
			break
		}
	}

	e.printf("\nSession complete.\n")
	printTally(e, s)
	return nil
}

// submitAnswer prompts until the scheduler accepts an answer. Failed reviews
// are reported and the same card is asked again.
func submitAnswer(ctx context.Context, e *env, s *review.Scheduler) (bool, error) {
	for {
		line, err := e.prompt("again/hard/good/easy [a/h/g/e]: ")
		if err != nil {
			return false, err
		}
		d, err := domain.ParseDifficulty(line)
		if err != nil {
			e.printf("%v\n", err)
			continue
		}
		done, err := s.Submit(ctx, d)
		if err == nil {
			return done, nil
		}
		if errors.Is(err, api.ErrUnauthenticated) || ctx.Err() != nil {
			return false, err
		}
		e.printf("Could not save the review: %v\n", err)
	}
}

func studyAborted(e *env, s *review.Scheduler, err error) error {
	if len(s.Logs()) > 0 {
		e.printf("\nSession stopped.\n")
		printTally(e, s)
	}
	return fmt.Errorf("study: %w", err)
}

func printTally(e *env, s *review.Scheduler) {
	tally := s.Tally()
	parts := make([]string, 0, len(domain.Difficulties))
	for _, d := range domain.Difficulties {
		parts = append(parts, fmt.Sprintf("%s %d", d, tally[d]))
	}
	e.printf("Reviewed %d: %s\n", len(s.Logs()), strings.Join(parts, ", "))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + "..."
	}
	return s
}
