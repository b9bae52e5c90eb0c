package domain

import (
	"fmt"
	"strings"
	"time"
)

// Difficulty is the user's answer to a card review.
type Difficulty string

const (
	Again Difficulty = "again"
	Hard  Difficulty = "hard"
	Good  Difficulty = "good"
	Easy  Difficulty = "easy"
)

// Difficulties lists the review answers in button order.
var Difficulties = []Difficulty{Again, Hard, Good, Easy}

// Strength is the numeric signal the server uses to reschedule a card.
type Strength int

// Strength maps the difficulty onto the backend scale. Easy is deliberately 5, not 4.
func (d Difficulty) Strength() Strength {
	switch d {
	case Again:
		return 1
	case Hard:
		return 2
	case Good:
		return 3
	case Easy:
		return 5
	}
	return 0
}

// Valid reports whether d is one of the four known answers.
func (d Difficulty) Valid() bool {
	return d.Strength() != 0
}

// ParseDifficulty accepts a difficulty name or its first letter.
func ParseDifficulty(s string) (Difficulty, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, d := range Difficulties {
		if s == string(d) || (len(s) == 1 && s[0] == d[0]) {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown difficulty %q", s)
}

// ReviewLog records a single accepted review.
type ReviewLog struct {
	CardID     string
	Difficulty Difficulty
	Strength   Strength
	ReviewedAt time.Time
}
