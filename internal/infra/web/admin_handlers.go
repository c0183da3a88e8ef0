package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"appointment-booking/internal/domain/model"
	"appointment-booking/internal/usecase"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type adminRegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Gender   string `json:"gender" validate:"required,oneof=Male Female"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	Country  string `json:"country" validate:"max=100"`
	Phone    string `json:"phone" validate:"max=20"`
}

type adminLoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

type adminResetRequest struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	OTP         string `json:"otp" validate:"required,len=6,numeric"`
	NewPassword string `json:"newPassword" validate:"required,min=6,max=128"`
}

type adminTokenResponse struct {
	Token string       `json:"token"`
	Admin *model.Admin `json:"admin"`
}

type pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func newPagination(page, limit, total int) pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

// pageParams reads ?page= and ?limit= (1-based page).
func pageParams(r *http.Request) (page, limit int, err error) {
	page, limit = 1, defaultPageSize
	q := r.URL.Query()
	if v := q.Get("page"); v != "" {
		page, err = strconv.Atoi(v)
		if err != nil || page < 1 {
			return 0, 0, badRequest("page", "Must be a positive integer")
		}
	}
	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 {
			return 0, 0, badRequest("limit", "Must be a positive integer")
		}
		if limit > maxPageSize {
			limit = maxPageSize
		}
	}
	return page, limit, nil
}

func (s *Server) handleAdminRegister(w http.ResponseWriter, r *http.Request) {
	var req adminRegisterRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	// An admin token, when present, authorizes registering further admins.
	actor := ""
	if c, err := s.auth.ParseFromRequest(r); err == nil && c.IsAdmin() {
		actor = c.ID
	}
	ad, err := s.uc.Admins.Register(r.Context(), actor, usecase.AdminRegistration{
		Name:     req.Name,
		Gender:   model.Gender(req.Gender),
		Email:    req.Email,
		Password: req.Password,
		Country:  req.Country,
		Phone:    req.Phone,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ok(w, http.StatusCreated, "Admin registered successfully", ad)
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ad, err := s.uc.Admins.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	token, err := s.auth.MintAdmin(w, ad)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "Login successful", adminTokenResponse{Token: token, Admin: ad})
}

func (s *Server) handleAdminForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.uc.Admins.ForgotPassword(r.Context(), req.Email); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "Password reset OTP sent to your email", nil)
}

func (s *Server) handleAdminResetPassword(w http.ResponseWriter, r *http.Request) {
	var req adminResetRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.uc.Admins.ResetPassword(r.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "Password reset successfully", nil)
}

func (s *Server) handleAdminMe(w http.ResponseWriter, r *http.Request) {
	ad, err := s.uc.Admins.Get(r.Context(), ClaimsFrom(r.Context()).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "", ad)
}

func (s *Server) handleAdminDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == ClaimsFrom(r.Context()).ID {
		s.fail(w, http.StatusBadRequest, "You cannot delete your own account", nil)
		return
	}
	if err := s.uc.Admins.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "Admin deleted successfully", nil)
}

type usersResponse struct {
	Users      []*model.User `json:"users"`
	Pagination pagination    `json:"pagination"`
}

type userDetailResponse struct {
	User          *model.User                 `json:"user"`
	Subscriptions []*usecase.SubscriptionView `json:"subscriptions"`
}

func (s *Server) handleUserList(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pageParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	users, total, err := s.uc.Users.List(r.Context(), (page-1)*limit, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if users == nil {
		users = []*model.User{}
	}
	s.ok(w, http.StatusOK, "", usersResponse{Users: users, Pagination: newPagination(page, limit, total)})
}

func (s *Server) handleUserGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, err := s.uc.Users.Profile(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	subs, err := s.uc.Subs.ListMine(ctx, u.ID, strings.TrimSpace(r.URL.Query().Get("displayCountry")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "", userDetailResponse{User: u, Subscriptions: subs})
}

func (s *Server) handleUserDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.uc.Users.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "User deleted successfully", nil)
}
