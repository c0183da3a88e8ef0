package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"appointment-booking/internal/domain/model"
	"appointment-booking/internal/domain/ports/repository"
	"appointment-booking/internal/usecase"
)

type planCreateRequest struct {
	Name             string   `json:"name" validate:"required,min=2,max=100"`
	Description      string   `json:"description" validate:"max=500"`
	SessionsPerMonth int      `json:"sessionsPerMonth" validate:"required,gte=1,lte=100"`
	SessionsPerWeek  int      `json:"sessionsPerWeek" validate:"required,gte=1,lte=7"`
	Price            float64  `json:"price" validate:"gte=0,lte=100000"`
	Currency         string   `json:"currency" validate:"omitempty,oneof=EGP USD EUR"`
	Duration         int      `json:"duration" validate:"omitempty,gte=1,lte=365"`
	Features         []string `json:"features" validate:"omitempty,max=20,dive,min=1,max=100"`
}

type planUpdateRequest struct {
	Name             *string  `json:"name" validate:"omitempty,min=2,max=100"`
	Description      *string  `json:"description" validate:"omitempty,max=500"`
	SessionsPerMonth *int     `json:"sessionsPerMonth" validate:"omitempty,gte=1,lte=100"`
	SessionsPerWeek  *int     `json:"sessionsPerWeek" validate:"omitempty,gte=1,lte=7"`
	Price            *float64 `json:"price" validate:"omitempty,gte=0,lte=100000"`
	Currency         *string  `json:"currency" validate:"omitempty,oneof=EGP USD EUR"`
	Duration         *int     `json:"duration" validate:"omitempty,gte=1,lte=365"`
	Features         []string `json:"features" validate:"omitempty,max=20,dive,min=1,max=100"`
	IsActive         *bool    `json:"isActive"`
}

type plansResponse struct {
	Plans      []*model.SubscriptionPlan `json:"plans"`
	Pagination pagination                `json:"pagination"`
}

func (s *Server) handlePlanCreate(w http.ResponseWriter, r *http.Request) {
	var req planCreateRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	plan, err := s.uc.Plans.Create(r.Context(), usecase.PlanInput{
		Name:             req.Name,
		Description:      req.Description,
		SessionsPerMonth: req.SessionsPerMonth,
		SessionsPerWeek:  req.SessionsPerWeek,
		Price:            req.Price,
		Currency:         model.Currency(req.Currency),
		DurationDays:     req.Duration,
		Features:         req.Features,
	}, ClaimsFrom(r.Context()).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ok(w, http.StatusCreated, "Subscription plan created successfully", plan)
}

func (s *Server) handlePlanList(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pageParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	f := repository.PlanFilter{Sort: q.Get("sort"), Offset: (page - 1) * limit, Limit: limit}
	if v := q.Get("isActive"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, r, badRequest("isActive", "Must be true or false"))
			return
		}
		f.IsActive = &b
	}
	switch f.Sort {
	case "", "price", "-price", "name", "-createdAt":
	default:
		s.writeError(w, r, badRequest("sort", "Must be one of: price, -price, name, -createdAt"))
		return
	}

	plans, total, err := s.uc.Plans.List(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if plans == nil {
		plans = []*model.SubscriptionPlan{}
	}
	s.ok(w, http.StatusOK, "", plansResponse{Plans: plans, Pagination: newPagination(page, limit, total)})
}

func (s *Server) handlePlanGet(w http.ResponseWriter, r *http.Request) {
	plan, err := s.uc.Plans.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "", plan)
}

func (s *Server) handlePlanUpdate(w http.ResponseWriter, r *http.Request) {
	var req planUpdateRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	in := usecase.PlanUpdate{
		Name:             req.Name,
		Description:      req.Description,
		SessionsPerMonth: req.SessionsPerMonth,
		SessionsPerWeek:  req.SessionsPerWeek,
		Price:            req.Price,
		DurationDays:     req.Duration,
		Features:         req.Features,
		IsActive:         req.IsActive,
	}
	if req.Currency != nil {
		c := model.Currency(*req.Currency)
		in.Currency = &c
	}
	plan, err := s.uc.Plans.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "Subscription plan updated successfully", plan)
}

func (s *Server) handlePlanDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.uc.Plans.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "Subscription plan deleted successfully", nil)
}

func (s *Server) handlePlanToggle(w http.ResponseWriter, r *http.Request) {
	plan, err := s.uc.Plans.ToggleActive(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	state := "deactivated"
	if plan.IsActive {
		state = "activated"
	}
	s.ok(w, http.StatusOK, "Subscription plan "+state+" successfully", plan)
}
