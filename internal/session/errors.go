package session

import (
	"errors"
	"fmt"
)

// Error codes for session operations.
const (
	ErrCodeDevice       = "DEVICE_ERROR"
	ErrCodeEncoder      = "ENCODER_ERROR"
	ErrCodeInvalidState = "INVALID_STATE"
)

// ErrNoArtifact is returned by RequestDownload when no finalized
// recording exists.
var ErrNoArtifact = errors.New("no artifact available")

// Error represents a session-level error with a code. DeviceError and
// EncoderError wrap the underlying platform failures; InvalidState is
// produced for commands issued in states that forbid them and is
// swallowed by the public command surface.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newDeviceError(message string, cause error) *Error {
	return &Error{Code: ErrCodeDevice, Message: message, Cause: cause}
}

func newEncoderError(message string, cause error) *Error {
	return &Error{Code: ErrCodeEncoder, Message: message, Cause: cause}
}

// IsDeviceError reports whether err is a session device error.
func IsDeviceError(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Code == ErrCodeDevice
}

// IsEncoderError reports whether err is a session encoder error.
func IsEncoderError(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Code == ErrCodeEncoder
}
