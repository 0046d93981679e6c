package analysis

import (
	"errors"
	"fmt"
)

// ErrValidation marks input that was rejected before reaching the service.
var ErrValidation = errors.New("invalid input")

// TransportMessage is shown to users for every transport failure.
const TransportMessage = "Could not reach the analysis service. Please try again."

// Validationf builds an error wrapping ErrValidation.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// ServiceError is a failure reported by the service itself.
type ServiceError struct {
	Op      string
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// TransportError covers connectivity problems and responses that do not have
// the expected shape.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps err unless it already is a transport or service error.
func NewTransportError(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	var se *ServiceError
	if errors.As(err, &te) || errors.As(err, &se) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}

// IsValidation reports whether err was caused by rejected input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// UserMessage renders err for end users. Service messages are shown verbatim,
// transport failures get a generic retry prompt and anything else shows its
// own text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var se *ServiceError
	if errors.As(err, &se) {
		return se.Message
	}
	var te *TransportError
	if errors.As(err, &te) {
		return TransportMessage
	}
	return err.Error()
}
