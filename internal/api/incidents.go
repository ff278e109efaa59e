package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/crimson-sun/watchtower/internal/model"
	"github.com/crimson-sun/watchtower/internal/transport"
)

// Incidents lists incidents, optionally filtered by status ("" for all).
func (c *Client) Incidents(ctx context.Context, status string) ([]model.Incident, error) {
	var q url.Values
	if status != "" {
		q = url.Values{"status": {status}}
	}
	incidents, err := call[[]model.Incident](ctx, c, get("incidents.list", "/incidents", q, true))
	if incidents == nil && err == nil {
		incidents = []model.Incident{}
	}
	return incidents, err
}

// UpdateIncident applies patch to incident id and returns the updated incident.
func (c *Client) UpdateIncident(ctx context.Context, id int64, patch model.IncidentPatch) (model.Incident, error) {
	if patch.Empty() {
		return model.Incident{}, ErrEmptyPatch
	}
	return call[model.Incident](ctx, c, transport.Request{
		Name:         "incidents.update",
		Method:       http.MethodPatch,
		Path:         "/incidents/" + itoa(id),
		Body:         patch,
		RequiresAuth: true,
	})
}
