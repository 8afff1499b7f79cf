package messaging

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured means the provider credentials or the shop's
	// instance are missing. Callers treat it as "feature disabled".
	ErrNotConfigured = errors.New("messaging: provider not configured")

	// ErrConflict is returned when the shop already owns an instance.
	ErrConflict = errors.New("messaging: instance already provisioned for shop")
)

// TransportError wraps network and timeout failures.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("messaging: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError is a response the provider sent but we could not use:
// a non-2xx status or a body of an unexpected shape.
type ProtocolError struct {
	Op      string
	Status  int
	Message string
}

func (e *ProtocolError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("messaging: %s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("messaging: %s: status %d: %s", e.Op, e.Status, e.Message)
}
