package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"appointment-booking/internal/domain"
)

type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

func (g Gender) Valid() bool { return g == GenderMale || g == GenderFemale }

// User is a customer who registered through the email OTP flow.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"emailVerified"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	Gender        Gender    `json:"gender"`
	Phone         string    `json:"phone"`
	Country       string    `json:"country"`
	Timezone      string    `json:"timezone"`
	Role          Role      `json:"role"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// NormalizeEmail lower-cases and trims an address so it can be used as a key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NewUser(email, firstName, lastName string, gender Gender, phone, country, timezone string) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" || strings.TrimSpace(firstName) == "" || strings.TrimSpace(lastName) == "" {
		return nil, domain.ErrInvalidArgument
	}
	if !gender.Valid() || strings.TrimSpace(phone) == "" || strings.TrimSpace(country) == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now().UTC()
	return &User{
		ID:            uuid.NewString(),
		Email:         email,
		EmailVerified: true,
		FirstName:     strings.TrimSpace(firstName),
		LastName:      strings.TrimSpace(lastName),
		Gender:        gender,
		Phone:         strings.TrimSpace(phone),
		Country:       strings.TrimSpace(country),
		Timezone:      timezone,
		Role:          RoleUser,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }

// DisplayName falls back to the mailbox name when no first name is set.
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if i := strings.IndexByte(u.Email, '@'); i > 0 {
		return u.Email[:i]
	}
	return u.Email
}
