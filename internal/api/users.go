package api

import (
	"context"
	"net/url"
	"strconv"

	"github.com/crimson-sun/watchtower/internal/model"
)

// Timeline returns a monitored user's events and alerts from the last hours.
// A non-positive hours lets the remote pick its default window.
func (c *Client) Timeline(ctx context.Context, userID string, hours int) (model.Timeline, error) {
	var q url.Values
	if hours > 0 {
		q = url.Values{"hours": {strconv.Itoa(hours)}}
	}
	return call[model.Timeline](ctx, c, get("users.timeline", "/users/"+url.PathEscape(userID)+"/timeline", q, false))
}

// Users lists analyst accounts.
func (c *Client) Users(ctx context.Context) ([]model.User, error) {
	return call[[]model.User](ctx, c, get("users.list", "/users", nil, false))
}

// User fetches one analyst account by id.
func (c *Client) User(ctx context.Context, id string) (model.User, error) {
	return call[model.User](ctx, c, get("users.get", "/users/"+url.PathEscape(id), nil, false))
}

// Me returns the account the current session belongs to.
func (c *Client) Me(ctx context.Context) (model.User, error) {
	return call[model.User](ctx, c, get("users.me", "/users/me", nil, false))
}
