package domain

import "time"

// Card is a single flashcard owned by a deck.
type Card struct {
	ID            string
	DeckID        string
	Front         string
	Back          string
	Hint          string
	Tags          []string
	TimesReviewed int
	NextReview    *time.Time
	LastReviewed  *time.Time
	EaseFactor    float64

	// Hash is the content hash of an imported card. It is never sent to the server.
	Hash string
}

// IsDue reports whether the card should be studied at now.
// A card that has never been scheduled is always due.
func (c Card) IsDue(now time.Time) bool {
	return c.NextReview == nil || !c.NextReview.After(now)
}

// Deck groups cards.
type Deck struct {
	ID          string
	Name        string
	Description string
	CardCount   int
}
