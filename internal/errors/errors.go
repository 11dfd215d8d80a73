// Package errors provides domain-specific error types and sentinel errors
// for improved error handling across the application.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrNotFound indicates a requested resource (car, customer, booking) was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidData indicates malformed input such as a callback argument
	// that does not parse or a date range that ends before it starts.
	ErrInvalidData = errors.New("invalid data")

	// ErrInvalidState indicates the conversation is missing data a handler
	// needs, e.g. confirming a booking before dates were picked.
	ErrInvalidState = errors.New("invalid state")

	// ErrRateLimited indicates an inbound update or outbound call was dropped
	// by a rate limiter.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsInvalidData reports whether err wraps ErrInvalidData.
func IsInvalidData(err error) bool { return errors.Is(err, ErrInvalidData) }

// IsInvalidState reports whether err wraps ErrInvalidState.
func IsInvalidState(err error) bool { return errors.Is(err, ErrInvalidState) }

// IsRateLimited reports whether err wraps ErrRateLimited.
func IsRateLimited(err error) bool { return errors.Is(err, ErrRateLimited) }

// FlowContextError is returned when a handler is invoked while the chat is in
// a flow phase the handler does not accept. Message is user-facing.
type FlowContextError struct {
	// Phase is the chat's current phase name, empty when the chat has none.
	Phase   string
	Message string
}

func (e *FlowContextError) Error() string {
	if e.Phase == "" {
		return "flow context: " + e.Message
	}
	return fmt.Sprintf("flow context (phase=%s): %s", e.Phase, e.Message)
}

// NewFlowContextError creates a new flow context error.
func NewFlowContextError(phase, message string) *FlowContextError {
	return &FlowContextError{Phase: phase, Message: message}
}

// AsFlowContext extracts a FlowContextError from the chain.
func AsFlowContext(err error) (*FlowContextError, bool) {
	var fce *FlowContextError
	if errors.As(err, &fce) {
		return fce, true
	}
	return nil, false
}

// ValidationError represents input validation failures.
// It wraps ErrInvalidData so callers can match either form.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidData
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// Kind returns a short, bounded label for err, suitable for metric labels.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.As(err, new(*FlowContextError)):
		return "flow_context"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidData):
		return "invalid_data"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	default:
		return "internal"
	}
}
