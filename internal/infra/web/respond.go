package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"appointment-booking/internal/domain"
	"appointment-booking/internal/domain/booking"
	"appointment-booking/internal/infra/logging"
)

const (
	statusSuccess = "success"
	statusFail    = "fail"
	statusError   = "error"
)

// envelope is the shape of every JSON response.
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, body envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) ok(w http.ResponseWriter, code int, message string, data any) {
	writeJSON(w, code, envelope{Status: statusSuccess, Message: message, Data: data})
}

// fail writes a client error; 5xx codes are reported with status "error".
func (s *Server) fail(w http.ResponseWriter, code int, message string, errs any) {
	st := statusFail
	if code >= http.StatusInternalServerError {
		st = statusError
	}
	writeJSON(w, code, envelope{Status: st, Message: message, Errors: errs})
}

// mapError is the one place domain errors become HTTP statuses. The message
// is safe to show to clients.
func mapError(err error) (int, string, any) {
	var ve *booking.ValidationError
	if errors.As(err, &ve) {
		code := http.StatusBadRequest
		if ve.OnlyConflicts() {
			code = http.StatusConflict
		}
		return code, ve.Error(), ve.Violations
	}
	var re *RequestError
	if errors.As(err, &re) {
		return http.StatusBadRequest, re.Message, re.Fields
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "Resource not found", nil
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict, "Resource already exists", nil
	case errors.Is(err, booking.ErrInvalidDateTime):
		return http.StatusBadRequest, "Invalid date or time format", nil
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, "Invalid request data", nil
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "Invalid credentials", nil
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "Access denied", nil
	case errors.Is(err, domain.ErrProtectedAccount):
		return http.StatusForbidden, "This account cannot be modified", nil
	case errors.Is(err, domain.ErrInvalidOTP):
		return http.StatusBadRequest, "Invalid or expired OTP", nil
	case errors.Is(err, domain.ErrEmailNotVerified):
		return http.StatusBadRequest, "Email not verified", nil
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "Too many requests, please try again later", nil
	case errors.Is(err, domain.ErrPlanInUse):
		return http.StatusConflict, "Plan has active subscriptions", nil
	case errors.Is(err, domain.ErrPlanInactive):
		return http.StatusBadRequest, "Subscription plan is not available", nil
	case errors.Is(err, domain.ErrCountryRequired):
		return http.StatusBadRequest, "Please set your country before booking", nil
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "Status change not allowed", nil
	case errors.Is(err, domain.ErrSlotTaken):
		return http.StatusConflict, "Slot already taken", nil
	}
	return http.StatusInternalServerError, "Internal server error", nil
}

// writeError maps err and logs server-side failures with the trace id.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, msg, errs := mapError(err)
	if code >= http.StatusInternalServerError {
		l := logging.With(r.Context(), s.log)
		l.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	s.fail(w, code, msg, errs)
}
