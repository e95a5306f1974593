package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned for unknown or deleted job ids.
var ErrNotFound = errors.New("job not found")

// ErrNotReady is returned when an export is requested before completion.
var ErrNotReady = errors.New("job not complete")

// ErrInvalidInput is returned for malformed sources rejected at submission.
var ErrInvalidInput = errors.New("invalid input")

// ErrCapacity is returned when the pending-job queue is full.
var ErrCapacity = errors.New("job queue at capacity")

// CapabilityError is a stage-tagged failure from an external operation.
type CapabilityError struct {
	Stage   Stage
	Message string
	Err     error
}

// Error formats capability failures for logs and job records.
func (e *CapabilityError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *CapabilityError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewCapabilityError builds a stage-tagged failure.
func NewCapabilityError(stage Stage, message string, err error) *CapabilityError {
	return &CapabilityError{Stage: stage, Message: message, Err: err}
}
