package gatt

import (
	"errors"
	"fmt"

	"github.com/go-ble/ble"
)

// Status is the ATT status a request is answered with.
type Status uint8

const (
	StatusSuccess          = Status(ble.ErrSuccess)
	StatusReadNotPermitted = Status(ble.ErrReadNotPerm)
	StatusFailure          = Status(ble.ErrUnlikely)
)

// ATT returns the status as a go-ble ATT error code.
func (s Status) ATT() ble.ATTError {
	return ble.ATTError(s)
}

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusReadNotPermitted:
		return "read not permitted"
	case StatusFailure:
		return "failure"
	default:
		return fmt.Sprintf("att(0x%02x)", uint8(s))
	}
}

var (
	// ErrAckTimeout is returned when the transport never acknowledges a registration.
	ErrAckTimeout = errors.New("registration not acknowledged")
	// ErrRegistrationPending is returned for a profile that was not registered because an
	// earlier registration is still unacknowledged.
	ErrRegistrationPending = errors.New("previous registration still pending")
	// ErrServerStopped is returned by Publish after Stop.
	ErrServerStopped = errors.New("gatt server stopped")
)

// PublishError reports a profile that could not be registered with the transport.
type PublishError struct {
	Profile  string
	Attempts int
	Err      error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s failed after %d attempt(s): %v", e.Profile, e.Attempts, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}
