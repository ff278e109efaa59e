// Package api is the typed surface of the remote insider-threat service.
// Every method goes through the transport pipeline; reads the dashboard
// polls are marked idempotent and retried, everything else is sent once.
package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/crimson-sun/watchtower/internal/transport"
)

// DefaultAlertLimit is the page size the remote uses when none is given.
const DefaultAlertLimit = 50

// ErrEmptyPatch is returned by UpdateIncident when the patch changes nothing.
var ErrEmptyPatch = errors.New("api: incident patch has no fields set")

// Client calls the remote service.
type Client struct {
	t *transport.Client
}

// New wraps a transport client.
func New(t *transport.Client) *Client {
	return &Client{t: t}
}

func get(name, path string, query url.Values, idempotent bool) transport.Request {
	return transport.Request{
		Name:         name,
		Method:       http.MethodGet,
		Path:         path,
		Query:        query,
		RequiresAuth: true,
		Idempotent:   idempotent,
	}
}

func call[T any](ctx context.Context, c *Client, req transport.Request) (T, error) {
	return transport.DoJSON[T](ctx, c.t, req)
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
