package errors

import (
	stdErrors "errors"
	"fmt"
	"strings"
)

// TransportError captures a non-success response from an HTTP collaborator.
// The body text is kept verbatim so the operator sees what the backend said.
type TransportError struct {
	Op         string
	StatusCode int
	Body       string
}

// NewTransportError builds a TransportError with a trimmed body.
func NewTransportError(op string, statusCode int, body string) *TransportError {
	return &TransportError{
		Op:         op,
		StatusCode: statusCode,
		Body:       strings.TrimSpace(body),
	}
}

func (e *TransportError) Error() string {
	if e == nil {
		return ""
	}
	if e.Body == "" {
		return fmt.Sprintf("%s: backend responded %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: backend responded %d: %s", e.Op, e.StatusCode, e.Body)
}

// AsTransport unwraps a TransportError from the chain, nil when absent.
func AsTransport(err error) *TransportError {
	if err == nil {
		return nil
	}
	var typed *TransportError
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
