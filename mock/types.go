package mock

import (
	"fmt"
	"net/http"
	"strings"
)

type (
	// Request is the snapshot of an inbound request that templates can reference as {{request.*}}
	Request struct {
		Method      string
		Path        string
		Protocol    string
		HTTPVersion string
		Query       map[string]string
		// Headers are keyed by lower-cased header name
		Headers map[string]string
		// Body is the decoded JSON document for JSON requests, otherwise the raw body string
		Body interface{}
	}

	// Response is a compiled mock, ready to be dispatched
	Response struct {
		Status  int
		Headers map[string]string
		Body    string
	}

	// MalformedStatusLine is returned when a status line carries no 3 digit status code
	MalformedStatusLine string

	// FileSystemError wraps any failure reading a mock file other than it not existing
	FileSystemError struct {
		Path string
		Err  error
	}

	// TemplateError wraps a template that could not be parsed or executed
	TemplateError struct {
		Err error
	}
)

const (
	// WildcardMarker names the file or directory that turns a mock group into a fallback for its path prefix
	WildcardMarker = "__"

	// DelayHeader is the pseudo header carrying the response delay in milliseconds
	DelayHeader = "Response-Delay"

	// Extension is the file extension of mock definitions
	Extension = ".mock"
)

// NotFound is the response served when no mock file exists for a request
func NotFound() Response {
	return Response{
		Status: http.StatusNotFound,
		Headers: map[string]string{
			"content-type": "application/json",
		},
		Body: `{"error": "Not Found"}`,
	}
}

// Error implements the error interface
func (m MalformedStatusLine) Error() string {
	return fmt.Sprintf("response code should be a valid status between 100 and 599: %q", string(m))
}

// Error implements the error interface
func (e *FileSystemError) Error() string {
	return fmt.Sprintf("failed to read mock %s: %s", e.Path, e.Err)
}

func (e *FileSystemError) Unwrap() error {
	return e.Err
}

// Error implements the error interface
func (e *TemplateError) Error() string {
	return fmt.Sprintf("failed to expand template: %s", e.Err)
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}

// bindings exposes the request to templates under the "request" name
func (r *Request) bindings() map[string]interface{} {
	if r == nil {
		r = &Request{}
	}

	return map[string]interface{}{
		"request": map[string]interface{}{
			"method":      strings.ToUpper(r.Method),
			"path":        r.Path,
			"protocol":    r.Protocol,
			"httpVersion": r.HTTPVersion,
			"query":       r.Query,
			"headers":     r.Headers,
			"body":        r.Body,
		},
	}
}
