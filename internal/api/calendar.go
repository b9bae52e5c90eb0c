package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/conorfennell/knolboard/internal/domain"
)

// EventInput is the payload for creating or updating a calendar event.
type EventInput struct {
	Title       string    `json:"-" validate:"required"`
	Description string    `json:"-"`
	Start       time.Time `json:"-" validate:"required"`
	End         time.Time `json:"-" validate:"required,gtefield=Start"`
	Priority    string    `json:"-" validate:"omitempty,oneof=low medium high"`
}

type wireEventInput struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Priority    string `json:"priority,omitempty"`
}

// CompletionInput carries optional details recorded when an event is completed or skipped.
type CompletionInput struct {
	Notes          string `json:"notes,omitempty"`
	ActualDuration int    `json:"actual_duration,omitempty" validate:"gte=0"`
}

func (c *Client) eventBody(in EventInput) (wireEventInput, error) {
	if err := c.validateBody(in); err != nil {
		return wireEventInput{}, err
	}
	return wireEventInput{
		Title:       in.Title,
		Description: in.Description,
		StartTime:   formatLocal(in.Start, c.loc),
		EndTime:     formatLocal(in.End, c.loc),
		Priority:    in.Priority,
	}, nil
}

// ListEvents returns the events in [start, end]. Bounds are sent as naive
// local timestamps.
func (c *Client) ListEvents(ctx context.Context, start, end time.Time) ([]domain.CalendarEvent, error) {
	q := url.Values{
		"start_date": {formatLocal(start, c.loc)},
		"end_date":   {formatLocal(end, c.loc)},
	}
	var ws []wireEvent
	if err := c.do(ctx, "list events", request{method: http.MethodGet, route: "/calendar/events", query: q}, &ws); err != nil {
		return nil, err
	}
	events, err := convertAll(ws, func(w wireEvent) (domain.CalendarEvent, error) { return w.toDomain(c.loc) })
	if err != nil {
		return nil, malformed("list events", err)
	}
	return events, nil
}

// CreateEvent schedules a new event.
func (c *Client) CreateEvent(ctx context.Context, in EventInput) (domain.CalendarEvent, error) {
	body, err := c.eventBody(in)
	if err != nil {
		return domain.CalendarEvent{}, &Error{Op: "create event", Kind: ErrValidation, Message: err.Error()}
	}
	var w wireEvent
	if err := c.do(ctx, "create event", request{method: http.MethodPost, route: "/calendar/events", body: body}, &w); err != nil {
		return domain.CalendarEvent{}, err
	}
	return decodeOne("create event", func() (domain.CalendarEvent, error) { return w.toDomain(c.loc) })
}

// GetEvent returns one event.
func (c *Client) GetEvent(ctx context.Context, eventID string) (domain.CalendarEvent, error) {
	var w wireEvent
	r := request{method: http.MethodGet, route: "/calendar/events/{id}", params: []string{eventID}}
	if err := c.do(ctx, "get event", r, &w); err != nil {
		return domain.CalendarEvent{}, err
	}
	return decodeOne("get event", func() (domain.CalendarEvent, error) { return w.toDomain(c.loc) })
}

// UpdateEvent replaces an event's details.
func (c *Client) UpdateEvent(ctx context.Context, eventID string, in EventInput) (domain.CalendarEvent, error) {
	body, err := c.eventBody(in)
	if err != nil {
		return domain.CalendarEvent{}, &Error{Op: "update event", Kind: ErrValidation, Message: err.Error()}
	}
	var w wireEvent
	r := request{method: http.MethodPut, route: "/calendar/events/{id}", params: []string{eventID}, body: body}
	if err := c.do(ctx, "update event", r, &w); err != nil {
		return domain.CalendarEvent{}, err
	}
	return decodeOne("update event", func() (domain.CalendarEvent, error) { return w.toDomain(c.loc) })
}

// CompleteEvent marks an event completed.
func (c *Client) CompleteEvent(ctx context.Context, eventID string, in CompletionInput) (domain.CalendarEvent, error) {
	return c.transitionEvent(ctx, "complete event", "/calendar/events/{id}/complete", eventID, in)
}

// SkipEvent marks an event skipped.
func (c *Client) SkipEvent(ctx context.Context, eventID string, in CompletionInput) (domain.CalendarEvent, error) {
	return c.transitionEvent(ctx, "skip event", "/calendar/events/{id}/skip", eventID, in)
}

func (c *Client) transitionEvent(ctx context.Context, op, route, eventID string, in CompletionInput) (domain.CalendarEvent, error) {
	var w wireEvent
	r := request{method: http.MethodPost, route: route, params: []string{eventID}, body: in}
	if err := c.do(ctx, op, r, &w); err != nil {
		return domain.CalendarEvent{}, err
	}
	return decodeOne(op, func() (domain.CalendarEvent, error) { return w.toDomain(c.loc) })
}

// DeleteEvent deletes an event.
func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	r := request{method: http.MethodDelete, route: "/calendar/events/{id}", params: []string{eventID}}
	return c.do(ctx, "delete event", r, nil)
}
