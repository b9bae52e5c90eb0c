package domain

import "time"

// EventStatus is the lifecycle state of a calendar task.
type EventStatus string

const (
	StatusPending   EventStatus = "pending"
	StatusCompleted EventStatus = "completed"
	StatusSkipped   EventStatus = "skipped"
)

// CalendarEvent is a scheduled task. Start and End are wall-clock times in the
// client's configured location.
type CalendarEvent struct {
	ID          string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	Status      EventStatus
	Priority    string
}

// Completed reports whether the event counts as done.
func (e CalendarEvent) Completed() bool {
	return e.Status == StatusCompleted
}
