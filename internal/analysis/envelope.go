package analysis

import (
	"encoding/json"
	"fmt"
)

// Envelope is the common part of every analysis response on the wire.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Err converts an unsuccessful envelope into a *ServiceError.
func (e Envelope) Err(op string) error {
	if e.Success {
		return nil
	}
	msg := e.Message
	if msg == "" {
		msg = "the analysis service reported a failure"
	}
	return &ServiceError{Op: op, Message: msg}
}

// Failure builds the envelope describing err.
func Failure(err error) Envelope {
	return Envelope{Success: false, Message: UserMessage(err)}
}

// DecodeEnvelope reads a response body of the form {"success": ..., ...} into
// out. A body that is not JSON becomes a *TransportError and success=false a
// *ServiceError.
func DecodeEnvelope(op string, body []byte, out any) error {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	if err := env.Err(op); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
