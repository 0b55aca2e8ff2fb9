package client

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is wrapped by every error caused by a 401 response
var ErrUnauthorized = errors.New("unauthorized")

// TransportError is any failure at or below the HTTP call boundary:
// network errors (Status 0) and non-2xx responses.
type TransportError struct {
	Method  string
	Path    string
	Status  int
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	switch {
	case e.Status == 0 && e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
	default:
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports whether err came from a 401 response
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsTransport reports whether err is a TransportError, returning it
func IsTransport(err error) (*TransportError, bool) {
	var te *TransportError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
