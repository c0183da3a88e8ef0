package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"appointment-booking/internal/domain"
)

const MinAdminPasswordLen = 6

// Admin is a back-office operator. PasswordHash holds a bcrypt digest.
type Admin struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Gender       Gender     `json:"gender"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Country      string     `json:"country"`
	Phone        string     `json:"phone"`
	Role         Role       `json:"role"`
	ResetOTPHash string     `json:"-"`
	ResetOTPExp  *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func NewAdmin(name string, gender Gender, email, passwordHash, country, phone string) (*Admin, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if len(name) < 2 || len(name) > 100 || email == "" || passwordHash == "" || !gender.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now().UTC()
	return &Admin{
		ID:           uuid.NewString(),
		Name:         name,
		Gender:       gender,
		Email:        email,
		PasswordHash: passwordHash,
		Country:      strings.TrimSpace(country),
		Phone:        strings.TrimSpace(phone),
		Role:         RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (a *Admin) IsZero() bool { return a == nil || a.ID == "" }

// ResetOTPValid reports whether a reset code is pending and unexpired at now.
func (a *Admin) ResetOTPValid(now time.Time) bool {
	return a.ResetOTPHash != "" && a.ResetOTPExp != nil && now.Before(*a.ResetOTPExp)
}

// ClearResetOTP drops a consumed or abandoned reset code.
func (a *Admin) ClearResetOTP() {
	a.ResetOTPHash = ""
	a.ResetOTPExp = nil
}
