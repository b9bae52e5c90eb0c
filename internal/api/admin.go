package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/conorfennell/knolboard/internal/domain"
)

type passwordInput struct {
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

type wireAdminStats struct {
	Users struct {
		Total    int `json:"total"`
		Active   int `json:"active"`
		Inactive int `json:"inactive"`
		Admins   int `json:"admins"`
	} `json:"users"`
	Content struct {
		Events          int `json:"events"`
		Flashcards      int `json:"flashcards"`
		DiaryEntries    int `json:"diary_entries"`
		ImprovementLogs int `json:"improvement_logs"`
	} `json:"content"`
}

// AdminUsers lists every account. Requires an admin token.
func (c *Client) AdminUsers(ctx context.Context) ([]domain.User, error) {
	var ws []wireUser
	if err := c.do(ctx, "list users", request{method: http.MethodGet, route: "/admin/users"}, &ws); err != nil {
		return nil, err
	}
	users, err := convertAll(ws, wireUser.toDomain)
	if err != nil {
		return nil, malformed("list users", err)
	}
	return users, nil
}

// AdminUser returns one account.
func (c *Client) AdminUser(ctx context.Context, userID string) (domain.User, error) {
	var w wireUser
	r := request{method: http.MethodGet, route: "/admin/users/{id}", params: []string{userID}}
	if err := c.do(ctx, "get user", r, &w); err != nil {
		return domain.User{}, err
	}
	return decodeOne("get user", w.toDomain)
}

// ActivateUser approves a pending account.
func (c *Client) ActivateUser(ctx context.Context, userID string) error {
	return c.adminAction(ctx, "activate user", "/admin/users/{id}/activate", userID)
}

// DeactivateUser suspends an account.
func (c *Client) DeactivateUser(ctx context.Context, userID string) error {
	return c.adminAction(ctx, "deactivate user", "/admin/users/{id}/deactivate", userID)
}

// MakeAdmin grants admin rights.
func (c *Client) MakeAdmin(ctx context.Context, userID string) error {
	return c.adminAction(ctx, "make admin", "/admin/users/{id}/make-admin", userID)
}

// RemoveAdmin revokes admin rights.
func (c *Client) RemoveAdmin(ctx context.Context, userID string) error {
	return c.adminAction(ctx, "remove admin", "/admin/users/{id}/remove-admin", userID)
}

func (c *Client) adminAction(ctx context.Context, op, route, userID string) error {
	return c.do(ctx, op, request{method: http.MethodPut, route: route, params: []string{userID}}, nil)
}

// ChangeUserPassword sets another user's password.
func (c *Client) ChangeUserPassword(ctx context.Context, userID, password string) error {
	r := request{method: http.MethodPut, route: "/admin/users/{id}/password", params: []string{userID}, body: passwordInput{NewPassword: password}}
	return c.do(ctx, "change user password", r, nil)
}

// DeleteUser removes an account.
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	r := request{method: http.MethodDelete, route: "/admin/users/{id}", params: []string{userID}}
	return c.do(ctx, "delete user", r, nil)
}

// AdminStats returns the admin panel counters.
func (c *Client) AdminStats(ctx context.Context) (domain.AdminStats, error) {
	var w wireAdminStats
	if err := c.do(ctx, "admin stats", request{method: http.MethodGet, route: "/admin/stats"}, &w); err != nil {
		return domain.AdminStats{}, err
	}
	return domain.AdminStats{
		TotalUsers:      w.Users.Total,
		ActiveUsers:     w.Users.Active,
		InactiveUsers:   w.Users.Inactive,
		AdminUsers:      w.Users.Admins,
		Events:          w.Content.Events,
		Flashcards:      w.Content.Flashcards,
		DiaryEntries:    w.Content.DiaryEntries,
		ImprovementLogs: w.Content.ImprovementLogs,
	}, nil
}

type wireOverview struct {
	TotalTasks          int     `json:"total_tasks"`
	CompletedTasks      int     `json:"completed_tasks"`
	CompletionRate      float64 `json:"completion_rate"`
	TotalHours          float64 `json:"total_hours"`
	AverageHoursPerTask float64 `json:"average_hours_per_task"`
}

// ProductivityOverview returns the analytics summary for [start, end].
func (c *Client) ProductivityOverview(ctx context.Context, start, end time.Time) (domain.ProductivityOverview, error) {
	q := url.Values{
		"start_date": {formatLocal(start, c.loc)},
		"end_date":   {formatLocal(end, c.loc)},
	}
	var w wireOverview
	if err := c.do(ctx, "productivity overview", request{method: http.MethodGet, route: "/analytics/productivity/overview", query: q}, &w); err != nil {
		return domain.ProductivityOverview{}, err
	}
	return domain.ProductivityOverview(w), nil
}
