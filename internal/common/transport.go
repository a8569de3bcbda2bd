package common

import (
	"fmt"
)

// TransportKind classifies a TransportError.
type TransportKind string

const (
	TransportTimeout     TransportKind = "timeout"
	TransportServer      TransportKind = "server"
	TransportUnavailable TransportKind = "unavailable"
	TransportCancelled   TransportKind = "cancelled"
)

// TransportError is returned by the transfer layer for every failed upload or
// download. It matches ErrTransport, and ErrCancelled when Kind is
// TransportCancelled.
type TransportError struct {
	Op         string
	Kind       TransportKind
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Op, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	switch target {
	case ErrTransport:
		return true
	case ErrCancelled:
		return e.Kind == TransportCancelled
	}
	return false
}
