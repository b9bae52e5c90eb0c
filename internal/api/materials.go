package api

import (
	"context"
	"net/http"

	"github.com/conorfennell/knolboard/internal/domain"
)

// MaterialInput is the payload for a learning material.
type MaterialInput struct {
	Title     string   `json:"title" validate:"required"`
	Content   string   `json:"content,omitempty"`
	SourceURL string   `json:"source_url,omitempty" validate:"omitempty,url"`
	Tags      []string `json:"tags,omitempty"`
}

type shareInput struct {
	UserIDs []string `json:"user_ids" validate:"required,min=1,dive,required"`
}

// ListMaterials returns the user's learning materials.
func (c *Client) ListMaterials(ctx context.Context) ([]domain.LearningMaterial, error) {
	var ws []wireMaterial
	if err := c.do(ctx, "list materials", request{method: http.MethodGet, route: "/learning-materials/"}, &ws); err != nil {
		return nil, err
	}
	materials, err := convertAll(ws, wireMaterial.toDomain)
	if err != nil {
		return nil, malformed("list materials", err)
	}
	return materials, nil
}

// CreateMaterial saves a new material.
func (c *Client) CreateMaterial(ctx context.Context, in MaterialInput) (domain.LearningMaterial, error) {
	var w wireMaterial
	if err := c.do(ctx, "create material", request{method: http.MethodPost, route: "/learning-materials/", body: in}, &w); err != nil {
		return domain.LearningMaterial{}, err
	}
	return decodeOne("create material", w.toDomain)
}

// GetMaterial returns one material.
func (c *Client) GetMaterial(ctx context.Context, id string) (domain.LearningMaterial, error) {
	var w wireMaterial
	r := request{method: http.MethodGet, route: "/learning-materials/{id}", params: []string{id}}
	if err := c.do(ctx, "get material", r, &w); err != nil {
		return domain.LearningMaterial{}, err
	}
	return decodeOne("get material", w.toDomain)
}

// UpdateMaterial replaces a material.
func (c *Client) UpdateMaterial(ctx context.Context, id string, in MaterialInput) (domain.LearningMaterial, error) {
	var w wireMaterial
	r := request{method: http.MethodPut, route: "/learning-materials/{id}", params: []string{id}, body: in}
	if err := c.do(ctx, "update material", r, &w); err != nil {
		return domain.LearningMaterial{}, err
	}
	return decodeOne("update material", w.toDomain)
}

// ShareMaterial shares a material with other users.
func (c *Client) ShareMaterial(ctx context.Context, id string, userIDs []string) error {
	r := request{method: http.MethodPost, route: "/learning-materials/{id}/share", params: []string{id}, body: shareInput{UserIDs: userIDs}}
	return c.do(ctx, "share material", r, nil)
}

// ArchiveMaterial archives a material.
func (c *Client) ArchiveMaterial(ctx context.Context, id string) error {
	r := request{method: http.MethodPost, route: "/learning-materials/{id}/archive", params: []string{id}}
	return c.do(ctx, "archive material", r, nil)
}

// DeleteMaterial deletes a material.
func (c *Client) DeleteMaterial(ctx context.Context, id string) error {
	r := request{method: http.MethodDelete, route: "/learning-materials/{id}", params: []string{id}}
	return c.do(ctx, "delete material", r, nil)
}
