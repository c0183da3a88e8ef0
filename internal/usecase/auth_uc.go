package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/rs/zerolog"

	"appointment-booking/internal/domain"
	"appointment-booking/internal/domain/booking"
	"appointment-booking/internal/domain/model"
	"appointment-booking/internal/domain/ports/adapter"
	"appointment-booking/internal/domain/ports/repository"
	"appointment-booking/internal/infra/logging"
	"appointment-booking/internal/infra/metrics"
	red "appointment-booking/internal/infra/redis"
)

// Compile-time check
var _ AuthUseCase = (*authUC)(nil)

// OTPKind tells the caller which flow a verified code belonged to.
type OTPKind string

const (
	OTPKindLogin        OTPKind = "login"
	OTPKindRegistration OTPKind = "registration"
)

// VerifyResult is the outcome of a successful code check. User is set for
// logins only.
type VerifyResult struct {
	Kind  OTPKind
	Email string
	User  *model.User
}

type RegistrationInput struct {
	FirstName string
	LastName  string
	Gender    model.Gender
	Phone     string
	Country   string
}

// AuthSettings holds OTP lifetimes and send limits.
type AuthSettings struct {
	OTPTTL       time.Duration
	VerifiedTTL  time.Duration
	OTPPerWindow int
	OTPWindow    time.Duration
}

// AuthUseCase implements passwordless email sign-up and sign-in.
type AuthUseCase interface {
	SendRegistrationOTP(ctx context.Context, email string) error
	SendLoginOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) (*VerifyResult, error)
	CompleteRegistration(ctx context.Context, email string, in RegistrationInput) (*model.User, error)
}

type authUC struct {
	users    repository.UserRepository
	otps     repository.OTPStore
	limiter  adapter.RateLimiter
	notifier NotificationUseCase
	settings AuthSettings
	genCode  CodeGenerator
	now      func() time.Time
	log      *zerolog.Logger
}

func NewAuthUseCase(users repository.UserRepository, otps repository.OTPStore, limiter adapter.RateLimiter, notifier NotificationUseCase, settings AuthSettings, logger *zerolog.Logger) *authUC {
	return &authUC{
		users:    users,
		otps:     otps,
		limiter:  limiter,
		notifier: notifier,
		settings: settings,
		genCode:  RandomCode,
		now:      time.Now,
		log:      logger,
	}
}

// WithCodeGenerator replaces the OTP source.
func (a *authUC) WithCodeGenerator(g CodeGenerator) *authUC {
	a.genCode = g
	return a
}

func (a *authUC) SendRegistrationOTP(ctx context.Context, email string) error {
	defer logging.TraceDuration(a.log, "AuthUC.SendRegistrationOTP")()

	email, err := normalizeAddress(email)
	if err != nil {
		return err
	}
	_, err = a.users.FindByEmail(ctx, repository.NoTX, email)
	switch {
	case err == nil:
		return domain.ErrAlreadyExists
	case !errors.Is(err, domain.ErrNotFound):
		return err
	}
	return a.issue(ctx, repository.OTPRegister, email)
}

func (a *authUC) SendLoginOTP(ctx context.Context, email string) error {
	defer logging.TraceDuration(a.log, "AuthUC.SendLoginOTP")()

	email, err := normalizeAddress(email)
	if err != nil {
		return err
	}
	if _, err := a.users.FindByEmail(ctx, repository.NoTX, email); err != nil {
		return err
	}
	return a.issue(ctx, repository.OTPLogin, email)
}

// issue rate limits, stores a hashed code and mails it. A failed send
// removes the code again.
func (a *authUC) issue(ctx context.Context, purpose repository.OTPPurpose, email string) error {
	ok, err := a.limiter.Allow(ctx, red.EmailActionKey(email, "send_otp"), a.settings.OTPPerWindow, a.settings.OTPWindow)
	if err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	if !ok {
		metrics.IncRateLimitTriggered("send_otp")
		return domain.ErrRateLimited
	}

	code, err := a.genCode()
	if err != nil {
		return err
	}
	hash, err := hashSecret(code)
	if err != nil {
		return err
	}
	st := &repository.OTPState{Hash: hash, IssuedAt: a.now().UTC()}
	if err := a.otps.SaveOTP(ctx, purpose, email, st, a.settings.OTPTTL); err != nil {
		return err
	}
	if err := a.notifier.SendOTP(ctx, email, code, purpose, a.settings.OTPTTL); err != nil {
		if derr := a.otps.DeleteOTP(ctx, purpose, email); derr != nil {
			a.log.Warn().Err(derr).Msg("failed to clear otp after send failure")
		}
		return fmt.Errorf("%w: could not send verification email", domain.ErrOperationFailed)
	}
	metrics.IncOTPSent(string(purpose))
	return nil
}

// VerifyOTP checks a pending login code first, then a registration code.
func (a *authUC) VerifyOTP(ctx context.Context, email, code string) (*VerifyResult, error) {
	defer logging.TraceDuration(a.log, "AuthUC.VerifyOTP")()

	email, err := normalizeAddress(email)
	if err != nil {
		return nil, err
	}

	pending := false
	for _, purpose := range []repository.OTPPurpose{repository.OTPLogin, repository.OTPRegister} {
		st, err := a.otps.GetOTP(ctx, purpose, email)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		pending = true
		if !secretMatches(st.Hash, code) {
			continue
		}
		if err := a.otps.DeleteOTP(ctx, purpose, email); err != nil {
			return nil, err
		}
		metrics.IncOTPVerify("ok")
		return a.verified(ctx, purpose, email)
	}

	metrics.IncOTPVerify("invalid")
	if pending {
		a.recordFailure(ctx, email)
	}
	return nil, domain.ErrInvalidOTP
}

func (a *authUC) verified(ctx context.Context, purpose repository.OTPPurpose, email string) (*VerifyResult, error) {
	if purpose == repository.OTPLogin {
		u, err := a.users.FindByEmail(ctx, repository.NoTX, email)
		if err != nil {
			return nil, err
		}
		return &VerifyResult{Kind: OTPKindLogin, Email: email, User: u}, nil
	}
	if err := a.otps.MarkVerified(ctx, email, a.settings.VerifiedTTL); err != nil {
		return nil, err
	}
	return &VerifyResult{Kind: OTPKindRegistration, Email: email}, nil
}

// recordFailure counts a wrong guess against every pending code and drops
// codes that ran out of attempts.
func (a *authUC) recordFailure(ctx context.Context, email string) {
	for _, purpose := range []repository.OTPPurpose{repository.OTPLogin, repository.OTPRegister} {
		n, err := a.otps.RecordFailedAttempt(ctx, purpose, email)
		if err != nil {
			continue
		}
		if n >= maxOTPAttempts {
			_ = a.otps.DeleteOTP(ctx, purpose, email)
		}
	}
}

func (a *authUC) CompleteRegistration(ctx context.Context, email string, in RegistrationInput) (*model.User, error) {
	defer logging.TraceDuration(a.log, "AuthUC.CompleteRegistration")()

	email, err := normalizeAddress(email)
	if err != nil {
		return nil, err
	}
	ok, err := a.otps.IsVerified(ctx, email)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrEmailNotVerified
	}
	if err := a.ensureFree(ctx, email, in.Phone); err != nil {
		return nil, err
	}

	u, err := model.NewUser(email, in.FirstName, in.LastName, in.Gender, in.Phone, in.Country, booking.TimezoneFor(in.Country))
	if err != nil {
		return nil, err
	}
	if err := a.users.Save(ctx, repository.NoTX, u); err != nil {
		return nil, err
	}
	if err := a.otps.ClearVerified(ctx, email); err != nil {
		a.log.Warn().Err(err).Msg("failed to clear verified marker")
	}
	metrics.IncUserRegistered()
	a.log.Info().Str("user_id", u.ID).Str("country", u.Country).Msg("user registered")
	return u, nil
}

func (a *authUC) ensureFree(ctx context.Context, email, phone string) error {
	if _, err := a.users.FindByEmail(ctx, repository.NoTX, email); err == nil {
		return domain.ErrAlreadyExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if _, err := a.users.FindByPhone(ctx, repository.NoTX, phone); err == nil {
		return domain.ErrAlreadyExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

func normalizeAddress(email string) (string, error) {
	email = model.NormalizeEmail(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.ErrInvalidArgument
	}
	return email, nil
}
