package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Request describes one logical remote call.
type Request struct {
	// Name is a stable operation name such as "alerts.recent", used in logs,
	// metrics and spans.
	Name   string
	Method string
	Path   string
	Query  url.Values

	// At most one of Body (JSON-encoded) and Form (urlencoded) is set.
	Body any
	Form url.Values

	// RequiresAuth marks calls that need a session. They fail locally when
	// anonymous.
	RequiresAuth bool
	// NoTeardown keeps a 401 from ending the session. Only credential
	// exchange sets it; any other call rejected while carrying the token
	// tears the session down.
	NoTeardown bool
	// Idempotent marks reads that Do may retry.
	Idempotent bool
}

func (r Request) operation() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Method + " " + r.Path
}

func (r Request) build(ctx context.Context, baseURL string) (*http.Request, error) {
	u := strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(r.Path, "/")
	if len(r.Query) > 0 {
		u += "?" + r.Query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case r.Form != nil:
		body = strings.NewReader(r.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case r.Body != nil:
		data, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("transport: encode %s body: %w", r.operation(), err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, u, body)
	if err != nil {
		return nil, fmt.Errorf("transport: build %s: %w", r.operation(), err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}
