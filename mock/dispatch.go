package mock

import (
	"context"
	"io"
	"net/http"
	"time"
)

type (
	// ResponseWriter is the outbound half of whatever server is hosting the mocks
	ResponseWriter interface {
		SetStatus(code int)
		SetHeader(key, value string)
		Send(body string) error
	}

	// HTTPResponseWriter adapts a net/http ResponseWriter
	HTTPResponseWriter struct {
		w      http.ResponseWriter
		status int
	}
)

// Dispatch writes the status and headers of res right away, then waits out delay before sending the body.
// If ctx ends first nothing more is written and the context's error is returned.
func Dispatch(ctx context.Context, w ResponseWriter, res Response, delay time.Duration) error {
	w.SetStatus(res.Status)
	for key, value := range res.Headers {
		w.SetHeader(key, value)
	}

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return w.Send(res.Body)
}

// NewHTTPResponseWriter wraps w
func NewHTTPResponseWriter(w http.ResponseWriter) *HTTPResponseWriter {
	return &HTTPResponseWriter{w: w, status: http.StatusOK}
}

// SetStatus records code, net/http only allows it to be written together with the headers
func (h *HTTPResponseWriter) SetStatus(code int) {
	h.status = code
}

// SetHeader sets a response header
func (h *HTTPResponseWriter) SetHeader(key, value string) {
	h.w.Header().Set(key, value)
}

// Send writes the status, headers and body
func (h *HTTPResponseWriter) Send(body string) error {
	h.w.WriteHeader(h.status)
	_, err := io.WriteString(h.w, body)

	return err
}
