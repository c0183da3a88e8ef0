package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"appointment-booking/internal/domain"
	"appointment-booking/internal/domain/ports/repository"
)

// Ensure the adapter implements the port interface.
var _ repository.OTPStore = (*OTPStore)(nil)

// OTPStore keeps pending codes as JSON under otp:<purpose>:<email> and the
// verified-email marker under otp_verified:<email>.
type OTPStore struct {
	client RedisClient
}

func NewOTPStore(client RedisClient) *OTPStore {
	return &OTPStore{client: client}
}

func otpKey(purpose repository.OTPPurpose, email string) string {
	return fmt.Sprintf("otp:%s:%s", purpose, email)
}

func verifiedKey(email string) string {
	return "otp_verified:" + email
}

func (s *OTPStore) SaveOTP(ctx context.Context, purpose repository.OTPPurpose, email string, st *repository.OTPState, ttl time.Duration) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, otpKey(purpose, email), data, ttl)
}

func (s *OTPStore) GetOTP(ctx context.Context, purpose repository.OTPPurpose, email string) (*repository.OTPState, error) {
	data, err := s.client.Get(ctx, otpKey(purpose, email))
	if err != nil {
		if IsNil(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var st repository.OTPState
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *OTPStore) RecordFailedAttempt(ctx context.Context, purpose repository.OTPPurpose, email string) (int, error) {
	st, err := s.GetOTP(ctx, purpose, email)
	if err != nil {
		return 0, err
	}
	st.Attempts++
	if err := s.SaveOTP(ctx, purpose, email, st, KeepTTL); err != nil {
		return 0, err
	}
	return st.Attempts, nil
}

func (s *OTPStore) DeleteOTP(ctx context.Context, purpose repository.OTPPurpose, email string) error {
	return s.client.Del(ctx, otpKey(purpose, email))
}

func (s *OTPStore) MarkVerified(ctx context.Context, email string, ttl time.Duration) error {
	return s.client.Set(ctx, verifiedKey(email), "1", ttl)
}

func (s *OTPStore) IsVerified(ctx context.Context, email string) (bool, error) {
	_, err := s.client.Get(ctx, verifiedKey(email))
	if err != nil {
		if IsNil(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *OTPStore) ClearVerified(ctx context.Context, email string) error {
	return s.client.Del(ctx, verifiedKey(email))
}
