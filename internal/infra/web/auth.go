package web

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"appointment-booking/internal/config"
	"appointment-booking/internal/domain/model"
)

// ===== Session/JWT primitives =====

var errMissingToken = errors.New("missing token")

type AuthConfig struct {
	HMACSecret   []byte
	CookieName   string
	CookieDomain string
	SecureCookie bool
	TTL          time.Duration
	TempTTL      time.Duration
}

type AuthManager struct {
	cfg AuthConfig
	now func() time.Time
}

func NewAuthManager(cfg config.AuthConfig) *AuthManager {
	return &AuthManager{
		cfg: AuthConfig{
			HMACSecret:   []byte(cfg.JWTSecret),
			CookieName:   cfg.CookieName,
			SecureCookie: cfg.SecureCookie,
			TTL:          cfg.TokenTTL,
			TempTTL:      cfg.TempTokenTTL,
		},
		now: time.Now,
	}
}

// Claims identify either a user, an admin, or an email that passed OTP
// verification but has not registered yet (Temporary).
type Claims struct {
	ID            string     `json:"id,omitempty"`
	Email         string     `json:"email"`
	Role          model.Role `json:"role,omitempty"`
	Country       string     `json:"country,omitempty"`
	FirstName     string     `json:"firstName,omitempty"`
	Temporary     bool       `json:"temporary,omitempty"`
	EmailVerified bool       `json:"emailVerified,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) IsUser() bool  { return !c.Temporary && c.Role == model.RoleUser && c.ID != "" }
func (c *Claims) IsAdmin() bool { return !c.Temporary && c.Role == model.RoleAdmin && c.ID != "" }
func (c *Claims) IsTemp() bool  { return c.Temporary && c.EmailVerified && c.Email != "" }

// MintUser signs a full user token and sets it as the session cookie.
func (a *AuthManager) MintUser(w http.ResponseWriter, u *model.User) (string, error) {
	return a.mint(w, &Claims{
		ID:            u.ID,
		Email:         u.Email,
		Role:          model.RoleUser,
		Country:       u.Country,
		FirstName:     u.FirstName,
		EmailVerified: u.EmailVerified,
	}, u.ID, a.cfg.TTL)
}

func (a *AuthManager) MintAdmin(w http.ResponseWriter, ad *model.Admin) (string, error) {
	return a.mint(w, &Claims{
		ID:        ad.ID,
		Email:     ad.Email,
		Role:      model.RoleAdmin,
		Country:   ad.Country,
		FirstName: ad.Name,
	}, ad.ID, a.cfg.TTL)
}

// MintTemp signs a short-lived registration token. It is returned in the
// body only and never stored as the session cookie.
func (a *AuthManager) MintTemp(email string) (string, error) {
	return a.mint(nil, &Claims{Email: email, Temporary: true, EmailVerified: true}, email, a.cfg.TempTTL)
}

func (a *AuthManager) mint(w http.ResponseWriter, claims *Claims, subject string, ttl time.Duration) (string, error) {
	now := a.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Subject:   subject,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.cfg.HMACSecret)
	if err != nil {
		return "", err
	}
	if w == nil {
		return signed, nil
	}

	c := &http.Cookie{
		Name:     a.cfg.CookieName,
		Value:    signed,
		Path:     "/",
		Domain:   a.cfg.CookieDomain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   a.cfg.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	}
	http.SetCookie(w, c)
	return signed, nil
}

func (a *AuthManager) Clear(w http.ResponseWriter) {
	c := &http.Cookie{
		Name:     a.cfg.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   a.cfg.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.cfg.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	}
	http.SetCookie(w, c)
}

func (a *AuthManager) ParseFromRequest(r *http.Request) (*Claims, error) {
	// Authorization: Bearer <jwt>
	if hdr := r.Header.Get("Authorization"); hdr != "" {
		if len(hdr) > 7 && strings.EqualFold(hdr[:7], "bearer ") {
			return a.parse(strings.TrimSpace(hdr[7:]))
		}
		return nil, errMissingToken
	}
	// Cookie
	if c, err := r.Cookie(a.cfg.CookieName); err == nil && c.Value != "" {
		return a.parse(c.Value)
	}
	return nil, errMissingToken
}

func (a *AuthManager) parse(tok string) (*Claims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.cfg.HMACSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil || !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

type claimsKey struct{}

func withClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFrom returns the verified claims the guard stored on the request.
func ClaimsFrom(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey{}).(*Claims)
	return c
}
