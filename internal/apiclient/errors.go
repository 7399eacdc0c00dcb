package apiclient

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransport marks failures that happened before a response arrived.
	ErrTransport = errors.New("apiclient: transport failure")
	// ErrStatus marks non-2xx responses from the remote API.
	ErrStatus = errors.New("apiclient: unexpected status")
	// ErrSchema marks payloads that do not match the expected record shape.
	ErrSchema = errors.New("apiclient: schema validation failed")
)

// TransportError wraps network failures, timeouts and cancellations.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause so callers can
// match context.Canceled as well as ErrTransport.
func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}

// SchemaError lists the fields that failed validation, or carries the decode
// error when the payload was not valid JSON for the target shape.
type SchemaError struct {
	Fields []string
	Err    error
}

func (e *SchemaError) Error() string {
	if len(e.Fields) > 0 {
		return "apiclient: invalid payload: missing or invalid " + strings.Join(e.Fields, ", ")
	}
	if e.Err != nil {
		return "apiclient: invalid payload: " + e.Err.Error()
	}
	return ErrSchema.Error()
}

func (e *SchemaError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSchema}
	}
	return []error{ErrSchema, e.Err}
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not a
// StatusError.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
