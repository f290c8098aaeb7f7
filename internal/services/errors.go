package services

import "errors"

// Stable error kinds surfaced by the escrow engine. Handlers map these to
// HTTP status codes; everything else is an internal failure.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient wallet balance")
	ErrAlreadyCompleted  = errors.New("milestone already completed")
	ErrInvalidGoalState  = errors.New("goal is not active")

	// ErrServiceUnavailable is internal to the engine: planner and policy
	// absorb it into a fallback or degraded outcome, it never reaches a
	// handler.
	ErrServiceUnavailable = errors.New("external service unavailable")
)
