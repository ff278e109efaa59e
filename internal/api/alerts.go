package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/crimson-sun/watchtower/internal/model"
	"github.com/crimson-sun/watchtower/internal/transport"
)

// RecentAlerts returns up to limit alerts, newest first. A non-positive
// limit uses DefaultAlertLimit.
func (c *Client) RecentAlerts(ctx context.Context, limit int) ([]model.Alert, error) {
	if limit <= 0 {
		limit = DefaultAlertLimit
	}
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	alerts, err := call[[]model.Alert](ctx, c, get("alerts.recent", "/alerts/recent", q, true))
	if alerts == nil && err == nil {
		alerts = []model.Alert{}
	}
	return alerts, err
}

// AcknowledgeAlert marks an alert as seen by the current analyst.
func (c *Client) AcknowledgeAlert(ctx context.Context, id int64) (model.Alert, error) {
	return call[model.Alert](ctx, c, transport.Request{
		Name:         "alerts.acknowledge",
		Method:       http.MethodPut,
		Path:         "/alerts/" + itoa(id) + "/acknowledge",
		RequiresAuth: true,
	})
}
