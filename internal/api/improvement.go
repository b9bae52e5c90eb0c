package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/conorfennell/knolboard/internal/domain"
)

// ImprovementInput is the payload for an improvement or distraction log.
type ImprovementInput struct {
	Type        domain.LogType `json:"type" validate:"required,oneof=improvement distraction"`
	Title       string         `json:"title" validate:"required"`
	Description string         `json:"description,omitempty"`
	Status      string         `json:"status,omitempty"`
}

type progressInput struct {
	Note string `json:"note" validate:"required"`
}

// ListImprovementLogs returns logs, optionally filtered by type.
func (c *Client) ListImprovementLogs(ctx context.Context, typ domain.LogType) ([]domain.ImprovementLog, error) {
	var q url.Values
	if typ != "" {
		q = url.Values{"type": {string(typ)}}
	}
	var ws []wireImprovementLog
	if err := c.do(ctx, "list improvement logs", request{method: http.MethodGet, route: "/improvement-log", query: q}, &ws); err != nil {
		return nil, err
	}
	logs, err := convertAll(ws, func(w wireImprovementLog) (domain.ImprovementLog, error) { return w.toDomain(c.loc) })
	if err != nil {
		return nil, malformed("list improvement logs", err)
	}
	return logs, nil
}

// CreateImprovementLog records a new log.
func (c *Client) CreateImprovementLog(ctx context.Context, in ImprovementInput) (domain.ImprovementLog, error) {
	var w wireImprovementLog
	if err := c.do(ctx, "create improvement log", request{method: http.MethodPost, route: "/improvement-log", body: in}, &w); err != nil {
		return domain.ImprovementLog{}, err
	}
	return decodeOne("create improvement log", func() (domain.ImprovementLog, error) { return w.toDomain(c.loc) })
}

// GetImprovementLog returns one log.
func (c *Client) GetImprovementLog(ctx context.Context, id string) (domain.ImprovementLog, error) {
	var w wireImprovementLog
	r := request{method: http.MethodGet, route: "/improvement-log/{id}", params: []string{id}}
	if err := c.do(ctx, "get improvement log", r, &w); err != nil {
		return domain.ImprovementLog{}, err
	}
	return decodeOne("get improvement log", func() (domain.ImprovementLog, error) { return w.toDomain(c.loc) })
}

// UpdateImprovementLog replaces a log.
func (c *Client) UpdateImprovementLog(ctx context.Context, id string, in ImprovementInput) (domain.ImprovementLog, error) {
	var w wireImprovementLog
	r := request{method: http.MethodPut, route: "/improvement-log/{id}", params: []string{id}, body: in}
	if err := c.do(ctx, "update improvement log", r, &w); err != nil {
		return domain.ImprovementLog{}, err
	}
	return decodeOne("update improvement log", func() (domain.ImprovementLog, error) { return w.toDomain(c.loc) })
}

// AddProgressNote appends a note to a log.
func (c *Client) AddProgressNote(ctx context.Context, id, note string) (domain.ImprovementLog, error) {
	var w wireImprovementLog
	r := request{method: http.MethodPost, route: "/improvement-log/{id}/progress", params: []string{id}, body: progressInput{Note: note}}
	if err := c.do(ctx, "add progress note", r, &w); err != nil {
		return domain.ImprovementLog{}, err
	}
	return decodeOne("add progress note", func() (domain.ImprovementLog, error) { return w.toDomain(c.loc) })
}

// DeleteImprovementLog deletes a log.
func (c *Client) DeleteImprovementLog(ctx context.Context, id string) error {
	r := request{method: http.MethodDelete, route: "/improvement-log/{id}", params: []string{id}}
	return c.do(ctx, "delete improvement log", r, nil)
}
