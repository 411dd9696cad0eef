package orchestrator

import (
	"errors"
	"fmt"
)

// ErrValidation matches every *ValidationError via errors.Is.
var ErrValidation = errors.New("validation failed")

// ValidationError rejects a request before any external call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ErrNoTranscript is returned when a summary is requested for a video
// whose transcript is empty.
var ErrNoTranscript = &ValidationError{Field: "video_id", Reason: "no transcript available"}

// External services named in ExternalServiceError.
const (
	ServiceCompletion = "completion"
	ServiceTranscript = "transcript"
)

// ExternalServiceError reports a failed call to the completion or
// transcript service. Nothing is charged when it is returned.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s service: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}
