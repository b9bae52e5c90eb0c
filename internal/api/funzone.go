package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/conorfennell/knolboard/internal/domain"
)

// FunContentInput is the payload for sharing creative content.
type FunContentInput struct {
	Title       string `json:"title" validate:"required"`
	Content     string `json:"content" validate:"required"`
	ContentType string `json:"content_type" validate:"required,oneof=poem joke quote story other"`
}

// ListFunContent returns shared content, optionally filtered by type.
func (c *Client) ListFunContent(ctx context.Context, contentType string) ([]domain.FunContent, error) {
	var q url.Values
	if contentType != "" {
		q = url.Values{"content_type": {contentType}}
	}
	return c.listFun(ctx, "list fun content", request{method: http.MethodGet, route: "/fun-zone", query: q})
}

// PopularFunContent returns this week's most liked content.
func (c *Client) PopularFunContent(ctx context.Context, limit int) ([]domain.FunContent, error) {
	var q url.Values
	if limit > 0 {
		q = url.Values{"limit": {strconv.Itoa(limit)}}
	}
	return c.listFun(ctx, "popular fun content", request{method: http.MethodGet, route: "/fun-zone/popular/week", query: q})
}

func (c *Client) listFun(ctx context.Context, op string, r request) ([]domain.FunContent, error) {
	var ws []wireFunContent
	if err := c.do(ctx, op, r, &ws); err != nil {
		return nil, err
	}
	items, err := convertAll(ws, wireFunContent.toDomain)
	if err != nil {
		return nil, malformed(op, err)
	}
	return items, nil
}

// CreateFunContent shares a new piece.
func (c *Client) CreateFunContent(ctx context.Context, in FunContentInput) (domain.FunContent, error) {
	var w wireFunContent
	if err := c.do(ctx, "create fun content", request{method: http.MethodPost, route: "/fun-zone", body: in}, &w); err != nil {
		return domain.FunContent{}, err
	}
	return decodeOne("create fun content", w.toDomain)
}

// GetFunContent returns one piece.
func (c *Client) GetFunContent(ctx context.Context, id string) (domain.FunContent, error) {
	var w wireFunContent
	r := request{method: http.MethodGet, route: "/fun-zone/{id}", params: []string{id}}
	if err := c.do(ctx, "get fun content", r, &w); err != nil {
		return domain.FunContent{}, err
	}
	return decodeOne("get fun content", w.toDomain)
}

// UpdateFunContent replaces a piece.
func (c *Client) UpdateFunContent(ctx context.Context, id string, in FunContentInput) (domain.FunContent, error) {
	var w wireFunContent
	r := request{method: http.MethodPut, route: "/fun-zone/{id}", params: []string{id}, body: in}
	if err := c.do(ctx, "update fun content", r, &w); err != nil {
		return domain.FunContent{}, err
	}
	return decodeOne("update fun content", w.toDomain)
}

// LikeFunContent adds the user's like.
func (c *Client) LikeFunContent(ctx context.Context, id string) error {
	r := request{method: http.MethodPost, route: "/fun-zone/{id}/like", params: []string{id}}
	return c.do(ctx, "like fun content", r, nil)
}

// DeleteFunContent deletes a piece.
func (c *Client) DeleteFunContent(ctx context.Context, id string) error {
	r := request{method: http.MethodDelete, route: "/fun-zone/{id}", params: []string{id}}
	return c.do(ctx, "delete fun content", r, nil)
}
