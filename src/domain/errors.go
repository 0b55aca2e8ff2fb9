package domain

import (
	"errors"
	"fmt"
)

// ErrMemoNotFound is returned when deleting an id the server does not know.
// It is recoverable: the memo is gone either way.
var ErrMemoNotFound = errors.New("memo not found")

// ValidationError is a 4xx rejection of a create request (other than 401)
type ValidationError struct {
	Status  int
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("memo rejected by server (status %d)", e.Status)
	}
	return fmt.Sprintf("memo rejected by server (status %d): %s", e.Status, e.Message)
}
