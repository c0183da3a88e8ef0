package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrAlreadyExists       = errors.New("entity already exists")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrInvalidExecContext  = errors.New("invalid execution context")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrRateLimited         = errors.New("too many requests")
	ErrOperationFailed     = errors.New("operation failed")
	ErrLockNotAcquired     = errors.New("lock not acquired")
	ErrQueueFull           = errors.New("task queue full")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrProtectedAccount    = errors.New("account is protected")
	ErrPlanInactive        = errors.New("subscription plan is inactive")
	ErrPlanInUse           = errors.New("subscription plan has live subscriptions")
	ErrCountryRequired     = errors.New("user country is required")
	ErrRegistrationPending = errors.New("registration not completed")

	// OTP and verification
	ErrInvalidOTP       = errors.New("invalid or expired otp")
	ErrEmailNotVerified = errors.New("email not verified")

	// ErrSlotTaken is returned by storage when a slot unique index is hit.
	ErrSlotTaken = errors.New("slot already taken")

	// ErrBookingRejected matches every booking validation failure.
	ErrBookingRejected = errors.New("booking rejected")
)
