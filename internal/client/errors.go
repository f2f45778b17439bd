package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for repository calls.
var (
	ErrTransport = errors.New("backend request failed")
	ErrNotFound  = errors.New("task not found")
)

// TransportError reports a backend call that did not take effect: the backend
// was unreachable, or it answered with a non-success envelope or status.
type TransportError struct {
	Op      string
	Status  int // 0 when no response was received
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("%s: API error (%d): %s", e.Op, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("%s: API error (%d)", e.Op, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: API request failed: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is matches ErrTransport for every TransportError and ErrNotFound for 404s.
func (e *TransportError) Is(target error) bool {
	switch target {
	case ErrTransport:
		return true
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}
