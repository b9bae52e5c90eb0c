// Package knol identifies cards by their content so the same card authored
// twice, or already present on the server, is recognised.
package knol

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/conorfennell/knolboard/internal/domain"
)

// fieldSep joins the fields. It cannot survive normalizeField, so a line moved
// from the end of one field to the start of the next changes the result.
const fieldSep = "\x1f"

// Normalize returns the card content that Hash covers: front, back and hint,
// each Unicode-normalised (NFC), lowercased, with runs of spaces and tabs
// collapsed and blank lines removed. Tags and server fields are not content.
func Normalize(card domain.Card) string {
	return strings.Join([]string{
		normalizeField(card.Front),
		normalizeField(card.Back),
		normalizeField(card.Hint),
	}, fieldSep)
}

func normalizeField(s string) string {
	s = strings.ReplaceAll(s, fieldSep, " ")
	s = strings.ToLower(norm.NFC.String(s))
	lines := strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' })
	out := lines[:0]
	for _, line := range lines {
		if words := strings.Fields(line); len(words) > 0 {
			out = append(out, strings.Join(words, " "))
		}
	}
	return strings.Join(out, "\n")
}

// Hash returns the hex SHA-256 of Normalize(card).
func Hash(card domain.Card) string {
	sum := sha256.Sum256([]byte(Normalize(card)))
	return hex.EncodeToString(sum[:])
}
