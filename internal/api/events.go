package api

import (
	"context"
	"net/http"

	"github.com/crimson-sun/watchtower/internal/model"
	"github.com/crimson-sun/watchtower/internal/transport"
)

// Ingest stores a raw security event.
func (c *Client) Ingest(ctx context.Context, ev model.EventInput) (model.IngestReceipt, error) {
	return call[model.IngestReceipt](ctx, c, transport.Request{
		Name:         "events.ingest",
		Method:       http.MethodPost,
		Path:         "/events/ingest",
		Body:         ev,
		RequiresAuth: true,
	})
}

// Predict asks the remote model to score an event. Malicious verdicts also
// create an alert on the remote side, so the call is never retried.
func (c *Client) Predict(ctx context.Context, ev model.EventInput) (model.Prediction, error) {
	return call[model.Prediction](ctx, c, transport.Request{
		Name:         "predict",
		Method:       http.MethodPost,
		Path:         "/predict",
		Body:         ev,
		RequiresAuth: true,
	})
}
