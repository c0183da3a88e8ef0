package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"appointment-booking/internal/domain"
	"appointment-booking/internal/domain/model"
	"appointment-booking/internal/domain/ports/adapter"
	"appointment-booking/internal/domain/ports/repository"
	"appointment-booking/internal/infra/logging"
	"appointment-booking/internal/infra/metrics"
	red "appointment-booking/internal/infra/redis"
)

// Compile-time check
var _ AdminUseCase = (*adminUC)(nil)

type AdminRegistration struct {
	Name     string
	Gender   model.Gender
	Email    string
	Password string
	Country  string
	Phone    string
}

// AdminUseCase covers admin accounts and password recovery.
type AdminUseCase interface {
	// Register creates an admin. Without an acting admin only the configured
	// super-admin email may register.
	Register(ctx context.Context, actorID string, in AdminRegistration) (*model.Admin, error)
	Login(ctx context.Context, email, password string) (*model.Admin, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	Get(ctx context.Context, id string) (*model.Admin, error)
	Delete(ctx context.Context, id string) error
}

type adminUC struct {
	admins     repository.AdminRepository
	limiter    adapter.RateLimiter
	notifier   NotificationUseCase
	superEmail string
	settings   AuthSettings
	genCode    CodeGenerator
	now        func() time.Time
	log        *zerolog.Logger
}

func NewAdminUseCase(admins repository.AdminRepository, limiter adapter.RateLimiter, notifier NotificationUseCase, superAdminEmail string, settings AuthSettings, logger *zerolog.Logger) *adminUC {
	return &adminUC{
		admins:     admins,
		limiter:    limiter,
		notifier:   notifier,
		superEmail: model.NormalizeEmail(superAdminEmail),
		settings:   settings,
		genCode:    RandomCode,
		now:        time.Now,
		log:        logger,
	}
}

// WithCodeGenerator replaces the reset code source.
func (a *adminUC) WithCodeGenerator(g CodeGenerator) *adminUC {
	a.genCode = g
	return a
}

func (a *adminUC) WithClock(now func() time.Time) *adminUC {
	a.now = now
	return a
}

func (a *adminUC) Register(ctx context.Context, actorID string, in AdminRegistration) (*model.Admin, error) {
	defer logging.TraceDuration(a.log, "AdminUC.Register")()

	email := model.NormalizeEmail(in.Email)
	if actorID == "" && (a.superEmail == "" || email != a.superEmail) {
		return nil, domain.ErrForbidden
	}
	if len(in.Password) < model.MinAdminPasswordLen {
		return nil, domain.ErrInvalidArgument
	}
	if _, err := a.admins.FindByEmail(ctx, repository.NoTX, email); err == nil {
		return nil, domain.ErrAlreadyExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := hashSecret(in.Password)
	if err != nil {
		return nil, err
	}
	admin, err := model.NewAdmin(in.Name, in.Gender, email, hash, in.Country, in.Phone)
	if err != nil {
		return nil, err
	}
	if err := a.admins.Save(ctx, repository.NoTX, admin); err != nil {
		return nil, err
	}
	a.log.Info().Str("admin_id", admin.ID).Str("by", actorID).Msg("admin registered")
	return admin, nil
}

func (a *adminUC) Login(ctx context.Context, email, password string) (*model.Admin, error) {
	defer logging.TraceDuration(a.log, "AdminUC.Login")()

	admin, err := a.admins.FindByEmail(ctx, repository.NoTX, model.NormalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if !secretMatches(admin.PasswordHash, password) {
		return nil, domain.ErrUnauthorized
	}
	return admin, nil
}

func (a *adminUC) ForgotPassword(ctx context.Context, email string) error {
	defer logging.TraceDuration(a.log, "AdminUC.ForgotPassword")()

	email = model.NormalizeEmail(email)
	admin, err := a.admins.FindByEmail(ctx, repository.NoTX, email)
	if err != nil {
		return err
	}
	ok, err := a.limiter.Allow(ctx, red.EmailActionKey(email, "admin_reset"), a.settings.OTPPerWindow, a.settings.OTPWindow)
	if err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	if !ok {
		metrics.IncRateLimitTriggered("admin_reset")
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
	exp := a.now().UTC().Add(a.settings.OTPTTL)
	admin.ResetOTPHash = hash
	admin.ResetOTPExp = &exp
	admin.UpdatedAt = a.now().UTC()
	if err := a.admins.Save(ctx, repository.NoTX, admin); err != nil {
		return err
	}
	if err := a.notifier.SendAdminReset(ctx, admin, code, a.settings.OTPTTL); err != nil {
		return fmt.Errorf("%w: could not send reset email", domain.ErrOperationFailed)
	}
	return nil
}

func (a *adminUC) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	defer logging.TraceDuration(a.log, "AdminUC.ResetPassword")()

	admin, err := a.admins.FindByEmail(ctx, repository.NoTX, model.NormalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrInvalidOTP
	}
	if err != nil {
		return err
	}
	if !admin.ResetOTPValid(a.now()) || !secretMatches(admin.ResetOTPHash, code) {
		return domain.ErrInvalidOTP
	}
	if len(newPassword) < model.MinAdminPasswordLen {
		return domain.ErrInvalidArgument
	}
	hash, err := hashSecret(newPassword)
	if err != nil {
		return err
	}
	admin.PasswordHash = hash
	admin.ClearResetOTP()
	admin.UpdatedAt = a.now().UTC()
	if err := a.admins.Save(ctx, repository.NoTX, admin); err != nil {
		return err
	}
	a.log.Info().Str("admin_id", admin.ID).Msg("admin password reset")
	return nil
}

func (a *adminUC) Get(ctx context.Context, id string) (*model.Admin, error) {
	defer logging.TraceDuration(a.log, "AdminUC.Get")()
	return a.admins.FindByID(ctx, repository.NoTX, id)
}

// Delete refuses to remove the configured super-admin.
func (a *adminUC) Delete(ctx context.Context, id string) error {
	defer logging.TraceDuration(a.log, "AdminUC.Delete")()
	admin, err := a.admins.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return err
	}
	if a.superEmail != "" && admin.Email == a.superEmail {
		return domain.ErrProtectedAccount
	}
	return a.admins.Delete(ctx, repository.NoTX, id)
}
