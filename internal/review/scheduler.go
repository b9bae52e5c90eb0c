// Package review runs a single study session over the due cards of a deck.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/conorfennell/knolboard/internal/domain"
	"github.com/conorfennell/knolboard/internal/metrics"
)

var (
	ErrLoadDueCards = errors.New("failed to load due cards")
	ErrNothingDue   = errors.New("no cards due for review")
	ErrNotReviewing = errors.New("no review in progress")
	ErrNotRevealed  = errors.New("answer must be revealed before submitting")
)

// CardSource is the data access the scheduler needs. *api.Client satisfies it.
type CardSource interface {
	DueCards(ctx context.Context, deckID string) ([]domain.Card, error)
	ReviewCard(ctx context.Context, cardID string, strength domain.Strength) (domain.Card, error)
}

// State is the session lifecycle.
type State int

const (
	Idle State = iota
	Loaded
	Reviewing
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loaded:
		return "loaded"
	case Reviewing:
		return "reviewing"
	case Completed:
		return "completed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Options configures a Scheduler. Zero values are usable.
type Options struct {
	Now     func() time.Time
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Scheduler walks the due cards of one deck in server order. It is not safe
// for concurrent use; callers must not submit while a submit is in flight.
type Scheduler struct {
	source  CardSource
	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics

	state    State
	deckID   string
	cards    []domain.Card
	cursor   int
	revealed bool
	logs     []domain.ReviewLog
}

// NewScheduler creates an idle scheduler backed by source.
func NewScheduler(source CardSource, opts Options) *Scheduler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Scheduler{
		source:  source,
		now:     opts.Now,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// LoadDueCards fetches the deck's due cards and discards any previous session.
// An empty result is not an error; Start will report ErrNothingDue.
func (s *Scheduler) LoadDueCards(ctx context.Context, deckID string) ([]domain.Card, error) {
	s.Reset()

	cards, err := s.source.DueCards(ctx, deckID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadDueCards, err)
	}

	now := s.now()
	due := make([]domain.Card, 0, len(cards))
	for _, card := range cards {
		if !card.IsDue(now) {
			s.logger.Debug("skipping card not yet due", "card_id", card.ID, "next_review", card.NextReview)
			continue
		}
		due = append(due, card)
	}

	s.deckID = deckID
	s.cards = due
	s.state = Loaded
	s.logger.Info("loaded due cards", "deck_id", deckID, "due", len(due), "returned", len(cards))
	return append([]domain.Card(nil), due...), nil
}

// Start begins reviewing at the first card with the answer hidden.
func (s *Scheduler) Start() error {
	if s.state != Loaded || len(s.cards) == 0 {
		return ErrNothingDue
	}
	s.state = Reviewing
	s.cursor = 0
	s.revealed = false
	return nil
}

// Reveal shows the answer of the current card. Calling it again has no effect.
func (s *Scheduler) Reveal() error {
	if s.state != Reviewing {
		return ErrNotReviewing
	}
	s.revealed = true
	return nil
}

// Submit records the user's answer for the current card. On success the
// session moves to the next card, or to Completed after the last one, and
// done reports which. On failure nothing changes and the call may be retried.
func (s *Scheduler) Submit(ctx context.Context, difficulty domain.Difficulty) (done bool, err error) {
	if s.state != Reviewing {
		return false, ErrNotReviewing
	}
	if !s.revealed {
		return false, ErrNotRevealed
	}
	if !difficulty.Valid() {
		return false, fmt.Errorf("unknown difficulty %q", difficulty)
	}

	card := s.cards[s.cursor]
	strength := difficulty.Strength()
	if _, err := s.source.ReviewCard(ctx, card.ID, strength); err != nil {
		s.logger.Warn("review not recorded", "card_id", card.ID, "difficulty", difficulty, "error", err)
		return false, fmt.Errorf("failed to submit review for card %s: %w", card.ID, err)
	}

	s.logs = append(s.logs, domain.ReviewLog{
		CardID:     card.ID,
		Difficulty: difficulty,
		Strength:   strength,
		ReviewedAt: s.now(),
	})
	s.metrics.ObserveReview(string(difficulty))

	if s.cursor == len(s.cards)-1 {
		s.state = Completed
		s.revealed = false
		s.logger.Info("review session complete", "deck_id", s.deckID, "reviewed", len(s.logs))
		return true, nil
	}
	s.cursor++
	s.revealed = false
	return false, nil
}

// Reset discards the session and returns to Idle.
func (s *Scheduler) Reset() {
	s.state = Idle
	s.deckID = ""
	s.cards = nil
	s.cursor = 0
	s.revealed = false
	s.logs = nil
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	return s.state
}

// Current returns the card under review.
func (s *Scheduler) Current() (domain.Card, bool) {
	if s.state != Reviewing {
		return domain.Card{}, false
	}
	return s.cards[s.cursor], true
}

// Revealed reports whether the current card's answer is visible.
func (s *Scheduler) Revealed() bool {
	return s.revealed
}

// Progress returns the 1-based position of the current card and the number
// of cards in the session.
func (s *Scheduler) Progress() (position, total int) {
	switch s.state {
	case Reviewing:
		return s.cursor + 1, len(s.cards)
	case Completed:
		return len(s.cards), len(s.cards)
	}
	return 0, len(s.cards)
}

// Logs returns the reviews accepted by the server, in order.
func (s *Scheduler) Logs() []domain.ReviewLog {
	return append([]domain.ReviewLog(nil), s.logs...)
}

// Tally counts accepted reviews per difficulty.
func (s *Scheduler) Tally() map[domain.Difficulty]int {
	tally := make(map[domain.Difficulty]int, len(domain.Difficulties))
	for _, d := range domain.Difficulties {
		tally[d] = 0
	}
	for _, l := range s.logs {
		tally[l.Difficulty]++
	}
	return tally
}
