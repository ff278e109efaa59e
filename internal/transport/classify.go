package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
)

const maxBodySnippet = 512

var fallbackDetail = map[Kind]string{
	KindNetwork:      "Unable to reach the server. Check your connection.",
	KindTimeout:      "The server took too long to respond.",
	KindAuthRequired: "Your session has expired. Please log in again.",
	KindClientError:  "The request was rejected by the server.",
	KindServerError:  "The server encountered an error. Please try again later.",
}

// Classify maps a raw outcome to a Failure. It returns nil for a 1xx-3xx
// status with no transport error. It performs no I/O and has no side effects.
func Classify(status int, body []byte, err error) *Failure {
	var kind Kind
	switch {
	case err != nil && isTimeout(err):
		kind = KindTimeout
	case err != nil:
		kind = KindNetwork
	case status == http.StatusUnauthorized:
		kind = KindAuthRequired
	case status >= 400 && status < 500:
		kind = KindClientError
	case status >= 500:
		kind = KindServerError
	default:
		return nil
	}

	f := &Failure{Kind: kind, Err: err}
	if err == nil {
		f.Status = status
		f.Body = snippet(body)
		f.Detail = remoteDetail(body)
	}
	if f.Detail == "" {
		f.Detail = fallbackDetail[kind]
	}
	return f
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func snippet(body []byte) string {
	if len(body) > maxBodySnippet {
		body = body[:maxBodySnippet]
	}
	return string(body)
}

// remoteDetail extracts an error message from a JSON body. It understands
// {"detail": "..."}, validation lists {"detail": [{"msg": "..."}]},
// {"message": "..."} and {"error": "..."}.
func remoteDetail(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
	}
	if len(body) == 0 || json.Unmarshal(body, &payload) != nil {
		return ""
	}
	if len(payload.Detail) > 0 {
		var s string
		if json.Unmarshal(payload.Detail, &s) == nil && s != "" {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if json.Unmarshal(payload.Detail, &items) == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}
