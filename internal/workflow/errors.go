package workflow

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrWrongStage      = errors.New("operation not allowed at current stage")
	ErrBusy            = errors.New("session is processing")
)

// ValidationError carries a message meant for the patient, e.g. a missing form field.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func wrongStage(op string, want, got Stage) error {
	return fmt.Errorf("%w: %s requires %s, session is at %s", ErrWrongStage, op, want, got)
}

// Messages stored on the session when a pipeline step fails.
const (
	msgAnalysisFailed     = "Failed to analyze symptoms. Please try again."
	msgRetrievalFailed    = "Failed to retrieve medical knowledge. Please try again."
	msgConsultationFailed = "Failed to get specialist consultation. Please try again."
)
