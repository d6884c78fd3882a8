package client

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport classifies every failure to complete an HTTP exchange:
	// network errors, timeouts and non-2xx statuses.
	ErrTransport = errors.New("transport error")
	// ErrEmptyResponse is returned when a completion carries no choices.
	ErrEmptyResponse = errors.New("empty response")
	// ErrStreamIdle is wrapped into the TransportError of a stream that went
	// longer than the configured timeout without delivering a line.
	ErrStreamIdle = errors.New("stream idle timeout")
)

// TransportError describes a failed HTTP exchange. StatusCode is zero when
// no response was received.
type TransportError struct {
	StatusCode int
	Body       string
	RequestID  string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("transport error: %v", e.Err)
	}
	if e.Body == "" {
		return fmt.Sprintf("transport error: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("transport error: HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
