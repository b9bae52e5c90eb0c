package domain

import "time"

// DiaryEntry is one day's journal entry. Date is the diary day at local
// midnight; it is independent of CreatedAt.
type DiaryEntry struct {
	ID        string
	Date      time.Time
	Mood      string
	Content   string
	CreatedAt *time.Time
}

// MoodSummary counts entries per mood over a period.
type MoodSummary struct {
	Counts map[string]int
	Total  int
}

// Moods the diary accepts.
var Moods = []string{"amazing", "happy", "neutral", "sad", "angry"}
