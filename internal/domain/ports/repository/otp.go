package repository

import (
	"context"
	"time"
)

// OTPPurpose separates codes issued for different flows to the same email.
type OTPPurpose string

const (
	OTPRegister OTPPurpose = "register"
	OTPLogin    OTPPurpose = "login"
)

// OTPState is a pending one-time code. Hash is a bcrypt digest of the code.
type OTPState struct {
	Hash     string    `json:"hash"`
	Attempts int       `json:"attempts"`
	IssuedAt time.Time `json:"issued_at"`
}

// OTPStore keeps pending codes and verified-email markers with a TTL.
type OTPStore interface {
	SaveOTP(ctx context.Context, purpose OTPPurpose, email string, st *OTPState, ttl time.Duration) error
	// GetOTP returns domain.ErrNotFound when no code is pending.
	GetOTP(ctx context.Context, purpose OTPPurpose, email string) (*OTPState, error)
	// RecordFailedAttempt bumps Attempts and keeps the remaining TTL.
	RecordFailedAttempt(ctx context.Context, purpose OTPPurpose, email string) (int, error)
	DeleteOTP(ctx context.Context, purpose OTPPurpose, email string) error

	MarkVerified(ctx context.Context, email string, ttl time.Duration) error
	IsVerified(ctx context.Context, email string) (bool, error)
	ClearVerified(ctx context.Context, email string) error
}
