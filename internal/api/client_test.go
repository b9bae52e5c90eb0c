package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/conorfennell/knolboard/internal/apitest"
	"github.com/conorfennell/knolboard/internal/domain"
	"github.com/conorfennell/knolboard/internal/logging"
)

func newTestClient(t *testing.T, srv *apitest.Server, tokens TokenStore) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: srv.BaseURL(), Location: srv.Loc, Logger: logging.Discard()}, tokens)
	if err != nil {
		t.Fatalf("New() returned an unexpected error: %v", err)
	}
	return c
}

func loggedIn(t *testing.T, srv *apitest.Server) (*Client, *MemoryTokenStore) {
	t.Helper()
	srv.AddUser("ada", "secret-pass", true, false)
	tokens := &MemoryTokenStore{}
	tokens.SaveToken(context.Background(), "ada", srv.IssueToken("ada"))
	return newTestClient(t, srv, tokens), tokens
}

// brokenStore fails every write, like a read-only session database.
type brokenStore struct {
	MemoryTokenStore
	err error
}

func (b *brokenStore) SaveToken(ctx context.Context, username, token string) error {
	return b.err
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8000", "ftp://example.com"} {
		if _, err := New(Config{BaseURL: raw}, nil); err == nil {
			t.Errorf("Expected New(%q) to fail", raw)
		}
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("stores token for active account", func(t *testing.T) {
		srv := apitest.New()
		defer srv.Close()
		srv.AddUser("ada", "secret-pass", true, false)
		tokens := &MemoryTokenStore{}
		c := newTestClient(t, srv, tokens)

		user, err := c.Login(ctx, "ada", "secret-pass")
		if err != nil {
			t.Fatalf("Login() returned an unexpected error: %v", err)
		}
		if user.Username != "ada" {
			t.Errorf("Expected username ada, got %q", user.Username)
		}
		if tok, _ := tokens.Token(ctx); tok == "" {
			t.Error("Expected a stored token after login")
		}
	})

	t.Run("wrong password is unauthenticated", func(t *testing.T) {
		srv := apitest.New()
		defer srv.Close()
		srv.AddUser("ada", "secret-pass", true, false)
		c := newTestClient(t, srv, nil)

		_, err := c.Login(ctx, "ada", "nope")
		if !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("Expected ErrUnauthenticated, got %v", err)
		}
		var apiErr *Error
		if !errors.As(err, &apiErr) || apiErr.Message != "Incorrect username or password" {
			t.Errorf("Expected backend detail in error, got %v", err)
		}
	})

	t.Run("session store failure is not a request error", func(t *testing.T) {
		srv := apitest.New()
		defer srv.Close()
		srv.AddUser("ada", "secret-pass", true, false)
		diskFull := errors.New("disk full")
		c := newTestClient(t, srv, &brokenStore{err: diskFull})

		_, err := c.Login(ctx, "ada", "secret-pass")
		if !errors.Is(err, diskFull) {
			t.Fatalf("Expected the store error, got %v", err)
		}
		for _, kind := range []error{ErrValidation, ErrUnauthenticated, ErrServer, ErrNetworkFailure} {
			if errors.Is(err, kind) {
				t.Errorf("Expected no API error kind, but got %v", kind)
			}
		}
		if srv.Calls(http.MethodGet, "/users/me") != 0 {
			t.Error("Expected login to stop before fetching the user")
		}
	})

	t.Run("inactive account is refused and token discarded", func(t *testing.T) {
		srv := apitest.New()
		defer srv.Close()
		srv.AddUser("bob", "secret-pass", false, false)
		tokens := &MemoryTokenStore{}
		c := newTestClient(t, srv, tokens)

		_, err := c.Login(ctx, "bob", "secret-pass")
		if !errors.Is(err, ErrAccountInactive) {
			t.Fatalf("Expected ErrAccountInactive, got %v", err)
		}
		if tok, _ := tokens.Token(ctx); tok != "" {
			t.Error("Expected token to be discarded for inactive account")
		}
	})
}

func TestUnauthorizedClearsToken(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	c, tokens := loggedIn(t, srv)
	srv.RevokeTokens()

	_, err := c.ListDecks(context.Background())
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("Expected ErrUnauthenticated, got %v", err)
	}
	if tok, _ := tokens.Token(context.Background()); tok != "" {
		t.Error("Expected token to be cleared after a 401")
	}
}

func TestErrorTaxonomy(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		kind   error
	}{
		{"bad request", http.StatusBadRequest, ErrValidation},
		{"unprocessable", http.StatusUnprocessableEntity, ErrValidation},
		{"not found", http.StatusNotFound, ErrValidation},
		{"unauthorized", http.StatusUnauthorized, ErrUnauthenticated},
		{"internal", http.StatusInternalServerError, ErrServer},
		{"bad gateway", http.StatusBadGateway, ErrServer},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := apitest.New()
			defer srv.Close()
			c, _ := loggedIn(t, srv)
			srv.FailNext(http.MethodGet, "/flashcards/decks", tc.status)

			_, err := c.ListDecks(context.Background())
			if !errors.Is(err, tc.kind) {
				t.Fatalf("Expected %v, got %v", tc.kind, err)
			}
			var apiErr *Error
			if !errors.As(err, &apiErr) || apiErr.Status != tc.status {
				t.Errorf("Expected status %d on error, got %v", tc.status, err)
			}
		})
	}
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: base, Logger: logging.Discard()}, nil)
	if err != nil {
		t.Fatalf("New() returned an unexpected error: %v", err)
	}
	_, err = c.ListDecks(context.Background())
	if !errors.Is(err, ErrNetworkFailure) {
		t.Fatalf("Expected ErrNetworkFailure, got %v", err)
	}
}

func TestValidationDetailList(t *testing.T) {
	body := []byte(`{"detail":[{"loc":["body","front"],"msg":"field required"},{"loc":[],"msg":"bad"}]}`)
	if got := errorMessage(body); got != "front: field required; bad" {
		t.Errorf("Unexpected message %q", got)
	}
	if got := errorMessage([]byte(`{"detail":"Deck not found"}`)); got != "Deck not found" {
		t.Errorf("Unexpected message %q", got)
	}
	if got := errorMessage([]byte("upstream timeout")); got != "upstream timeout" {
		t.Errorf("Unexpected message %q", got)
	}
}

func TestLocalValidationDoesNotCallServer(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	c, _ := loggedIn(t, srv)
	deckID := srv.AddDeck("Go")

	_, err := c.CreateCard(context.Background(), deckID, CardInput{Front: "only a front"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Expected ErrValidation, got %v", err)
	}
	if n := srv.Calls(http.MethodPost, "/flashcards/decks/:id/cards"); n != 0 {
		t.Errorf("Expected no request to reach the server, got %d", n)
	}
}

func TestDueCardsNormalisesPayload(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	srv.Now = func() time.Time { return now }
	srv.Loc = time.UTC
	c, _ := loggedIn(t, srv)

	deckID := srv.AddDeck("Go")
	past := now.Add(-time.Hour)
	future := now.Add(48 * time.Hour)
	first := srv.AddCard(deckID, "What is a goroutine?", "A lightweight thread", nil)
	second := srv.AddCard(deckID, "What is a channel?", "A typed conduit", &past)
	srv.AddCard(deckID, "What is a map?", "A hash table", &future)

	cards, err := c.DueCards(context.Background(), deckID)
	if err != nil {
		t.Fatalf("DueCards() returned an unexpected error: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("Expected 2 due cards, got %d", len(cards))
	}
	if cards[0].ID != first || cards[1].ID != second {
		t.Errorf("Expected server order [%s %s], got [%s %s]", first, second, cards[0].ID, cards[1].ID)
	}
	if cards[0].NextReview != nil {
		t.Error("Expected nil next_review for a new card")
	}
	if cards[1].NextReview == nil || !cards[1].NextReview.Equal(past) {
		t.Errorf("Expected next_review %v, got %v", past, cards[1].NextReview)
	}
	if cards[0].DeckID != deckID {
		t.Errorf("Expected deck id %s, got %s", deckID, cards[0].DeckID)
	}
}

func TestReviewCardSendsStrength(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	c, _ := loggedIn(t, srv)
	deckID := srv.AddDeck("Go")
	cardID := srv.AddCard(deckID, "Q", "A", nil)

	card, err := c.ReviewCard(context.Background(), cardID, domain.Easy.Strength())
	if err != nil {
		t.Fatalf("ReviewCard() returned an unexpected error: %v", err)
	}
	if card.TimesReviewed != 1 || card.NextReview == nil {
		t.Errorf("Expected updated card from server, got %+v", card)
	}
	reviews := srv.Reviews()
	if len(reviews) != 1 || reviews[0].Difficulty != 5 {
		t.Errorf("Expected one review with strength 5, got %+v", reviews)
	}
}

func TestDiaryEntryUsesUnderscoreID(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	srv.Loc = time.UTC
	c, _ := loggedIn(t, srv)
	id := srv.AddDiaryEntry("2024-05-01", "happy")

	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	entry, err := c.DiaryEntry(context.Background(), day)
	if err != nil {
		t.Fatalf("DiaryEntry() returned an unexpected error: %v", err)
	}
	if entry.ID != id {
		t.Errorf("Expected id %s from _id key, got %q", id, entry.ID)
	}
	if !entry.Date.Equal(day) {
		t.Errorf("Expected date %v, got %v", day, entry.Date)
	}

	_, err = c.DiaryEntry(context.Background(), day.AddDate(0, 0, 1))
	if !IsNotFound(err) {
		t.Errorf("Expected a not-found error for a missing day, got %v", err)
	}
}

func TestListEventsRange(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	srv.Loc = time.UTC
	c, _ := loggedIn(t, srv)

	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	inside := srv.AddEvent("standup", day.Add(9*time.Hour), day.Add(10*time.Hour), "completed")
	srv.AddEvent("tomorrow", day.Add(33*time.Hour), day.Add(34*time.Hour), "pending")

	events, err := c.ListEvents(context.Background(), day, day.Add(24*time.Hour-time.Second))
	if err != nil {
		t.Fatalf("ListEvents() returned an unexpected error: %v", err)
	}
	if len(events) != 1 || events[0].ID != inside {
		t.Fatalf("Expected only event %s, got %+v", inside, events)
	}
	if !events[0].Completed() || events[0].Priority != "medium" {
		t.Errorf("Unexpected event %+v", events[0])
	}
}

func TestAdminStats(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	srv.AddUser("root", "secret-pass", true, true)
	srv.AddUser("pending", "secret-pass", false, false)
	tokens := &MemoryTokenStore{}
	tokens.SaveToken(context.Background(), "root", srv.IssueToken("root"))
	c := newTestClient(t, srv, tokens)

	stats, err := c.AdminStats(context.Background())
	if err != nil {
		t.Fatalf("AdminStats() returned an unexpected error: %v", err)
	}
	if stats.TotalUsers != 2 || stats.ActiveUsers != 1 || stats.AdminUsers != 1 || stats.InactiveUsers != 1 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestExpandRoute(t *testing.T) {
	testCases := []struct {
		route    string
		params   []string
		expected string
		wantErr  bool
	}{
		{"/flashcards/decks", nil, "/flashcards/decks", false},
		{"/flashcards/cards/{id}/review", []string{"42"}, "/flashcards/cards/42/review", false},
		{"/diary/entries/{date}", []string{"2024-05-01"}, "/diary/entries/2024-05-01", false},
		{"/flashcards/decks/{id}", []string{"a/b"}, "/flashcards/decks/a%2Fb", false},
		{"/flashcards/decks/{id}", nil, "", true},
		{"/flashcards/decks/{id}", []string{""}, "", true},
	}
	for _, tc := range testCases {
		t.Run(tc.route, func(t *testing.T) {
			got, err := expandRoute(tc.route, tc.params)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Expected an error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("expandRoute() returned an unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}
