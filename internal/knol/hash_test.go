package knol

import (
	"testing"

	"github.com/conorfennell/knolboard/internal/domain"
)

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name     string
		card     domain.Card
		expected string
	}{
		{
			name: "case, line endings and outer space",
			card: domain.Card{
				Front: "  What is HTMX? \r\n",
				Back:  "A library for AJAX.\r\nIt extends HTML.",
				Hint:  "Web Development",
			},
			expected: "what is htmx?\x1fa library for ajax.\nit extends html.\x1fweb development",
		},
		{
			name:     "inner whitespace and blank lines",
			card:     domain.Card{Front: "What\tis   Go?", Back: "A\n\n  language  \n"},
			expected: "what is go?\x1fa\nlanguage\x1f",
		},
		{
			name:     "separator in content is treated as space",
			card:     domain.Card{Front: "a\x1fb"},
			expected: "a b\x1f\x1f",
		},
		{
			name:     "decomposed accents are composed",
			card:     domain.Card{Front: "Cafe\u0301"},
			expected: "caf\u00e9\x1f\x1f",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.card); got != tc.expected {
				t.Errorf("Expected normalized string %q, but got %q", tc.expected, got)
			}
		})
	}
}

func TestHash(t *testing.T) {
	t.Run("generates correct hash", func(t *testing.T) {
		card := domain.Card{Front: "Q", Back: "A", Hint: "C"}
		// sha256 of "q\x1fa\x1fc"
		expectedHash := "4789a8e7a0b0cf65cffd59e142de0572eaef3ce644f610c2d8bb110d1cf5926b"
		if hash := Hash(card); hash != expectedHash {
			t.Errorf("Expected hash '%s', but got '%s'", expectedHash, hash)
		}
	})

	t.Run("normalization produces same hash", func(t *testing.T) {
		card1 := domain.Card{Front: "  what  is go? ", Back: "A programming\r\nlanguage."}
		card2 := domain.Card{Front: "What Is Go?", Back: "A programming\nlanguage."}
		if Hash(card1) != Hash(card2) {
			t.Error("Expected hashes to be the same after normalization, but they were different.")
		}
	})

	t.Run("tags and server fields are ignored", func(t *testing.T) {
		card1 := domain.Card{Front: "Q", Back: "A", Tags: []string{"x"}, ID: "1"}
		card2 := domain.Card{Front: "Q", Back: "A"}
		if Hash(card1) != Hash(card2) {
			t.Error("Expected hashes to ignore tags and ids")
		}
	})

	t.Run("moving a line between fields changes the hash", func(t *testing.T) {
		card1 := domain.Card{Front: "a\nb", Back: "c"}
		card2 := domain.Card{Front: "a", Back: "b\nc"}
		if Hash(card1) == Hash(card2) {
			t.Error("Expected field boundaries to be part of the hash")
		}
	})

	t.Run("different cards have different hashes", func(t *testing.T) {
		if Hash(domain.Card{Front: "Card 1"}) == Hash(domain.Card{Front: "Card 2"}) {
			t.Error("Expected hashes for different cards to be different")
		}
	})
}
