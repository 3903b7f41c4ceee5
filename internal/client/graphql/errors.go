package graphql

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransport wraps failures to reach the endpoint or decode its body.
	ErrTransport = errors.New("graphql transport failure")
	// ErrMalformedReply reports a successful response without data.postMessage.
	ErrMalformedReply = errors.New("graphql reply missing data.postMessage")
	// ErrResponseTooLarge reports a 2xx body over the read limit. It wraps
	// ErrTransport so the conversation treats it as a failed send.
	ErrResponseTooLarge = fmt.Errorf("%w: response body exceeds %d bytes", ErrTransport, maxBodySize)
)

// StatusError is returned for any non-2xx HTTP status, regardless of body.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("graphql endpoint returned status %d", e.StatusCode)
}

// Unwrap lets callers match status failures with errors.Is(err, ErrTransport).
func (e *StatusError) Unwrap() error {
	return ErrTransport
}

// Error mirrors an entry of the GraphQL "errors" array.
type Error struct {
	Message string         `json:"message"`
	Path    []any          `json:"path,omitempty"`
	Ext     map[string]any `json:"extensions,omitempty"`
}

// ApplicationError is returned when the response carries an "errors" array.
type ApplicationError struct {
	Errors []Error
}

func (e *ApplicationError) Error() string {
	if len(e.Errors) == 0 {
		return "graphql error"
	}
	msgs := make([]string, 0, len(e.Errors))
	for _, item := range e.Errors {
		msgs = append(msgs, item.Message)
	}
	return "graphql error: " + strings.Join(msgs, "; ")
}

// IsApplicationError reports whether err carries a GraphQL errors payload.
func IsApplicationError(err error) bool {
	var appErr *ApplicationError
	return errors.As(err, &appErr)
}
