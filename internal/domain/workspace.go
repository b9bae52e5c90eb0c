package domain

import "time"

// LogType separates improvement notes from distractions.
type LogType string

const (
	LogImprovement LogType = "improvement"
	LogDistraction LogType = "distraction"
)

// ImprovementLog tracks something the user wants to do better or stop doing.
type ImprovementLog struct {
	ID            string
	Type          LogType
	Title         string
	Description   string
	Status        string
	ProgressNotes []ProgressNote
	CreatedAt     *time.Time
}

// ProgressNote is a dated remark on an improvement log.
type ProgressNote struct {
	Note      string
	CreatedAt *time.Time
}

// LearningMaterial is a saved note or link.
type LearningMaterial struct {
	ID         string
	Title      string
	Content    string
	URL        string
	Tags       []string
	Archived   bool
	SharedWith []string
}

// FunContent is a piece of shared creative content.
type FunContent struct {
	ID          string
	Title       string
	Content     string
	ContentType string
	Likes       int
	Author      string
}

// User is an account on the backend.
type User struct {
	ID       string
	Username string
	Email    string
	FullName string
	Bio      string
	IsActive bool
	IsAdmin  bool
}

// AdminStats is the admin panel's headline numbers.
type AdminStats struct {
	TotalUsers      int
	ActiveUsers     int
	InactiveUsers   int
	AdminUsers      int
	Events          int
	Flashcards      int
	DiaryEntries    int
	ImprovementLogs int
}

// ProductivityOverview is the analytics page summary.
type ProductivityOverview struct {
	TotalTasks          int
	CompletedTasks      int
	CompletionRate      float64
	TotalHours          float64
	AverageHoursPerTask float64
}
