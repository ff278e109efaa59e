package api

import (
	"context"
	"net/http"

	"github.com/crimson-sun/watchtower/internal/model"
	"github.com/crimson-sun/watchtower/internal/transport"
)

// Health reports the remote service status. It needs no session.
func (c *Client) Health(ctx context.Context) (model.Health, error) {
	return call[model.Health](ctx, c, transport.Request{
		Name:       "health",
		Method:     http.MethodGet,
		Path:       "/health",
		Idempotent: true,
	})
}
