package domain

import (
	"testing"
	"time"
)

func TestDifficultyStrength(t *testing.T) {
	testCases := []struct {
		difficulty Difficulty
		expected   Strength
	}{
		{Again, 1},
		{Hard, 2},
		{Good, 3},
		{Easy, 5},
		{Difficulty("medium"), 0},
	}

	for _, tc := range testCases {
		t.Run(string(tc.difficulty), func(t *testing.T) {
			if got := tc.difficulty.Strength(); got != tc.expected {
				t.Errorf("Expected strength %d, but got %d", tc.expected, got)
			}
		})
	}
}

func TestStrengthsAreOnlyKnownValues(t *testing.T) {
	allowed := map[Strength]bool{1: true, 2: true, 3: true, 5: true}
	for _, d := range Difficulties {
		if !allowed[d.Strength()] {
			t.Errorf("Difficulty %s produced unexpected strength %d", d, d.Strength())
		}
	}
}

func TestParseDifficulty(t *testing.T) {
	testCases := []struct {
		input    string
		expected Difficulty
		wantErr  bool
	}{
		{"good", Good, false},
		{" EASY ", Easy, false},
		{"a", Again, false},
		{"h", Hard, false},
		{"x", "", true},
		{"", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			d, err := ParseDifficulty(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Expected an error for %q, got %s", tc.input, d)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDifficulty(%q) returned an unexpected error: %v", tc.input, err)
			}
			if d != tc.expected {
				t.Errorf("Expected %s, but got %s", tc.expected, d)
			}
		})
	}
}

func TestCardIsDue(t *testing.T) {
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	t.Run("never scheduled", func(t *testing.T) {
		if !(Card{}).IsDue(now) {
			t.Error("Expected a card without next_review to be due")
		}
	})
	t.Run("scheduled in the past", func(t *testing.T) {
		if !(Card{NextReview: &past}).IsDue(now) {
			t.Error("Expected an overdue card to be due")
		}
	})
	t.Run("scheduled exactly now", func(t *testing.T) {
		if !(Card{NextReview: &now}).IsDue(now) {
			t.Error("Expected a card scheduled at now to be due")
		}
	})
	t.Run("scheduled in the future", func(t *testing.T) {
		if (Card{NextReview: &future}).IsDue(now) {
			t.Error("Expected a future card not to be due")
		}
	})
}
