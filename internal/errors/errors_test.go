package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		checkFn  func(error) bool
		expected bool
	}{
		{
			name:     "ErrNotFound is recognized",
			err:      ErrNotFound,
			checkFn:  IsNotFound,
			expected: true,
		},
		{
			name:     "Wrapped ErrNotFound is recognized",
			err:      fmt.Errorf("get car: %w", ErrNotFound),
			checkFn:  IsNotFound,
			expected: true,
		},
		{
			name:     "Different error is not ErrNotFound",
			err:      ErrRateLimited,
			checkFn:  IsNotFound,
			expected: false,
		},
		{
			name:     "ValidationError is InvalidData",
			err:      NewValidationError("date", "not a date"),
			checkFn:  IsInvalidData,
			expected: true,
		},
		{
			name:     "ErrInvalidState is recognized",
			err:      errors.Join(ErrInvalidState, errors.New("no car picked")),
			checkFn:  IsInvalidState,
			expected: true,
		},
		{
			name:     "ErrRateLimited is recognized",
			err:      ErrRateLimited,
			checkFn:  IsRateLimited,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.checkFn(tt.err)
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("email", "invalid format")

	if err.Field != "email" {
		t.Errorf("expected field 'email', got '%s'", err.Field)
	}

	expected := "validation failed on email: invalid format"
	if err.Error() != expected {
		t.Errorf("expected error '%s', got '%s'", expected, err.Error())
	}
}

func TestFlowContextError(t *testing.T) {
	err := fmt.Errorf("dispatch: %w", NewFlowContextError("booking_flow", "Finish or cancel your booking first."))

	fce, ok := AsFlowContext(err)
	if !ok {
		t.Fatal("expected FlowContextError in chain")
	}
	if fce.Phase != "booking_flow" {
		t.Errorf("expected phase booking_flow, got %q", fce.Phase)
	}

	if _, ok := AsFlowContext(ErrNotFound); ok {
		t.Error("plain sentinel must not match FlowContextError")
	}

	noPhase := NewFlowContextError("", "not available")
	if noPhase.Error() != "flow context: not available" {
		t.Errorf("unexpected message %q", noPhase.Error())
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "none"},
		{NewFlowContextError("browsing", "x"), "flow_context"},
		{fmt.Errorf("wrap: %w", ErrNotFound), "not_found"},
		{NewValidationError("f", "m"), "invalid_data"},
		{ErrInvalidState, "invalid_state"},
		{ErrRateLimited, "rate_limited"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := Kind(tt.err); got != tt.want {
				t.Errorf("Kind() = %q, want %q", got, tt.want)
			}
		})
	}
}
