package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/conorfennell/knolboard/internal/domain"
)

// DeckInput is the payload for creating or updating a deck.
type DeckInput struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description"`
}

// CardInput is the payload for creating or updating a card.
type CardInput struct {
	Front string   `json:"front" validate:"required"`
	Back  string   `json:"back" validate:"required"`
	Hint  string   `json:"hint,omitempty"`
	Tags  []string `json:"tags"`
}

type reviewInput struct {
	Difficulty domain.Strength `json:"difficulty" validate:"oneof=1 2 3 5"`
}

// ListDecks returns the user's decks.
func (c *Client) ListDecks(ctx context.Context) ([]domain.Deck, error) {
	var ws []wireDeck
	if err := c.do(ctx, "list decks", request{method: http.MethodGet, route: "/flashcards/decks"}, &ws); err != nil {
		return nil, err
	}
	decks, err := convertAll(ws, wireDeck.toDomain)
	if err != nil {
		return nil, malformed("list decks", err)
	}
	return decks, nil
}

// CreateDeck creates a deck.
func (c *Client) CreateDeck(ctx context.Context, in DeckInput) (domain.Deck, error) {
	var w wireDeck
	if err := c.do(ctx, "create deck", request{method: http.MethodPost, route: "/flashcards/decks", body: in}, &w); err != nil {
		return domain.Deck{}, err
	}
	return decodeOne("create deck", w.toDomain)
}

// GetDeck returns one deck.
func (c *Client) GetDeck(ctx context.Context, deckID string) (domain.Deck, error) {
	var w wireDeck
	r := request{method: http.MethodGet, route: "/flashcards/decks/{id}", params: []string{deckID}}
	if err := c.do(ctx, "get deck", r, &w); err != nil {
		return domain.Deck{}, err
	}
	return decodeOne("get deck", w.toDomain)
}

// UpdateDeck replaces a deck's name and description.
func (c *Client) UpdateDeck(ctx context.Context, deckID string, in DeckInput) (domain.Deck, error) {
	var w wireDeck
	r := request{method: http.MethodPut, route: "/flashcards/decks/{id}", params: []string{deckID}, body: in}
	if err := c.do(ctx, "update deck", r, &w); err != nil {
		return domain.Deck{}, err
	}
	return decodeOne("update deck", w.toDomain)
}

// DeleteDeck deletes a deck and its cards.
func (c *Client) DeleteDeck(ctx context.Context, deckID string) error {
	r := request{method: http.MethodDelete, route: "/flashcards/decks/{id}", params: []string{deckID}}
	return c.do(ctx, "delete deck", r, nil)
}

// ListCards returns the cards in a deck in server order.
func (c *Client) ListCards(ctx context.Context, deckID string) ([]domain.Card, error) {
	return c.listCards(ctx, "list cards", deckID, nil)
}

// DueCards returns the cards the server considers due, in server order.
func (c *Client) DueCards(ctx context.Context, deckID string) ([]domain.Card, error) {
	return c.listCards(ctx, "list due cards", deckID, url.Values{"due_only": {"true"}})
}

func (c *Client) listCards(ctx context.Context, op, deckID string, query url.Values) ([]domain.Card, error) {
	var ws []wireCard
	r := request{method: http.MethodGet, route: "/flashcards/decks/{id}/cards", params: []string{deckID}, query: query}
	if err := c.do(ctx, op, r, &ws); err != nil {
		return nil, err
	}
	cards, err := convertAll(ws, func(w wireCard) (domain.Card, error) { return w.toDomain(c.loc) })
	if err != nil {
		return nil, malformed(op, err)
	}
	for i := range cards {
		if cards[i].DeckID == "" {
			cards[i].DeckID = deckID
		}
	}
	return cards, nil
}

// CreateCard adds a card to a deck.
func (c *Client) CreateCard(ctx context.Context, deckID string, in CardInput) (domain.Card, error) {
	var w wireCard
	r := request{method: http.MethodPost, route: "/flashcards/decks/{id}/cards", params: []string{deckID}, body: in}
	if err := c.do(ctx, "create card", r, &w); err != nil {
		return domain.Card{}, err
	}
	return decodeOne("create card", func() (domain.Card, error) { return w.toDomain(c.loc) })
}

// UpdateCard edits a card's content.
func (c *Client) UpdateCard(ctx context.Context, cardID string, in CardInput) (domain.Card, error) {
	var w wireCard
	r := request{method: http.MethodPut, route: "/flashcards/cards/{id}", params: []string{cardID}, body: in}
	if err := c.do(ctx, "update card", r, &w); err != nil {
		return domain.Card{}, err
	}
	return decodeOne("update card", func() (domain.Card, error) { return w.toDomain(c.loc) })
}

// ReviewCard submits a review strength for a card. The server recomputes
// next_review and ease_factor and returns the updated card.
func (c *Client) ReviewCard(ctx context.Context, cardID string, strength domain.Strength) (domain.Card, error) {
	var w wireCard
	r := request{
		method: http.MethodPost,
		route:  "/flashcards/cards/{id}/review",
		params: []string{cardID},
		body:   reviewInput{Difficulty: strength},
	}
	if err := c.do(ctx, "review card", r, &w); err != nil {
		return domain.Card{}, err
	}
	if w.id() == "" {
		// Some deployments answer with a bare acknowledgement.
		return domain.Card{ID: cardID}, nil
	}
	return decodeOne("review card", func() (domain.Card, error) { return w.toDomain(c.loc) })
}

// DeleteCard deletes a card.
func (c *Client) DeleteCard(ctx context.Context, cardID string) error {
	r := request{method: http.MethodDelete, route: "/flashcards/cards/{id}", params: []string{cardID}}
	return c.do(ctx, "delete card", r, nil)
}
