package encoder

import "fmt"

// Error codes for encoder operations.
const (
	ErrCodeStart  = "ENCODER_START"
	ErrCodeStream = "ENCODER_STREAM"
	ErrCodeBusy   = "ENCODER_BUSY"
)

// Error represents an encoder failure with a code.
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

// Reason returns the human-readable message, without the code prefix.
// Status surfaces show this to the user.
func (e *Error) Reason() string {
	return e.Message
}

func newError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}
