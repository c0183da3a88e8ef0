package web

import (
	"net/http"

	"appointment-booking/internal/domain/model"
	"appointment-booking/internal/usecase"
)

type emailRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

type verifyOTPRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

type completeRegistrationRequest struct {
	FirstName string `json:"firstName" validate:"required,min=1,max=50"`
	LastName  string `json:"lastName" validate:"required,min=1,max=50"`
	Gender    string `json:"gender" validate:"required,oneof=Male Female"`
	Phone     string `json:"phone" validate:"required,min=6,max=20"`
	Country   string `json:"country" validate:"required,max=100"`
}

type tokenResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user,omitempty"`
}

type verifyOTPResponse struct {
	Token                string      `json:"token,omitempty"`
	TempToken            string      `json:"tempToken,omitempty"`
	User                 *model.User `json:"user,omitempty"`
	Email                string      `json:"email"`
	IsNewUser            bool        `json:"isNewUser"`
	RequiresRegistration bool        `json:"requiresRegistration"`
}

func (s *Server) handleSendRegistrationOTP(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.uc.Auth.SendRegistrationOTP(r.Context(), req.Email); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "OTP sent to your email", map[string]string{"email": model.NormalizeEmail(req.Email)})
}

func (s *Server) handleSendLoginOTP(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.uc.Auth.SendLoginOTP(r.Context(), req.Email); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "Login OTP sent to your email", map[string]string{"email": model.NormalizeEmail(req.Email)})
}

// handleVerifyOTP answers a login code with a session token and a
// registration code with a short-lived token for complete-registration.
func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.uc.Auth.VerifyOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if res.Kind == usecase.OTPKindLogin {
		token, err := s.auth.MintUser(w, res.User)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.ok(w, http.StatusOK, "Login successful", verifyOTPResponse{Token: token, User: res.User, Email: res.Email})
		return
	}

	temp, err := s.auth.MintTemp(res.Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "Email verified, please complete your registration", verifyOTPResponse{
		TempToken:            temp,
		Email:                res.Email,
		IsNewUser:            true,
		RequiresRegistration: true,
	})
}

func (s *Server) handleCompleteRegistration(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	var req completeRegistrationRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.uc.Auth.CompleteRegistration(r.Context(), claims.Email, usecase.RegistrationInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Gender:    model.Gender(req.Gender),
		Phone:     req.Phone,
		Country:   req.Country,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	token, err := s.auth.MintUser(w, u)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ok(w, http.StatusCreated, "Registration completed successfully", tokenResponse{Token: token, User: u})
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	s.auth.Clear(w)
	s.ok(w, http.StatusOK, "Logged out successfully", nil)
}
