package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"appointment-booking/internal/domain/model"
	"appointment-booking/internal/domain/ports/repository"
	"appointment-booking/internal/usecase"
)

type statusUpdateRequest struct {
	Status           *string `json:"status" validate:"omitempty,oneof=pending confirmed active completed cancelled expired"`
	PaymentStatus    *string `json:"paymentStatus" validate:"omitempty,oneof=pending paid failed refunded"`
	PaymentReference *string `json:"paymentReference" validate:"omitempty,max=100"`
	Notes            *string `json:"notes" validate:"omitempty,max=1000"`
}

type sessionUpdateRequest struct {
	Status string  `json:"status" validate:"required,oneof=scheduled completed cancelled missed"`
	Notes  *string `json:"notes" validate:"omitempty,max=500"`
}

type adminSubscriptionsResponse struct {
	Subscriptions []*model.Subscription `json:"subscriptions"`
	Pagination    pagination            `json:"pagination"`
}

func (s *Server) handleSubscriptionList(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pageParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	f := repository.SubscriptionFilter{
		Status:    model.SubscriptionStatus(strings.TrimSpace(q.Get("status"))),
		UserEmail: strings.TrimSpace(q.Get("userEmail")),
		PlanName:  strings.TrimSpace(q.Get("planName")),
		Offset:    (page - 1) * limit,
		Limit:     limit,
	}
	if f.Status != "" && !f.Status.Valid() {
		s.writeError(w, r, badRequest("status", "Unknown subscription status"))
		return
	}

	subs, total, err := s.uc.Subs.List(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if subs == nil {
		subs = []*model.Subscription{}
	}
	s.ok(w, http.StatusOK, "", adminSubscriptionsResponse{Subscriptions: subs, Pagination: newPagination(page, limit, total)})
}

func (s *Server) handleSubscriptionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.uc.Subs.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if stats.Users, err = s.uc.Users.Count(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "", stats)
}

func (s *Server) handleSubscriptionGet(w http.ResponseWriter, r *http.Request) {
	sub, err := s.uc.Subs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	display := strings.TrimSpace(r.URL.Query().Get("displayCountry"))
	if display == "" {
		display = sub.UserCountry
	}
	s.ok(w, http.StatusOK, "", usecase.NewSubscriptionView(sub, display, s.now().UTC()))
}

func (s *Server) handleSubscriptionDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.uc.Subs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "Subscription deleted successfully", nil)
}

func (s *Server) handleSubscriptionStatus(w http.ResponseWriter, r *http.Request) {
	var req statusUpdateRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Status == nil && req.PaymentStatus == nil && req.PaymentReference == nil && req.Notes == nil {
		s.writeError(w, r, &RequestError{Message: "Nothing to update"})
		return
	}
	var in usecase.StatusUpdate
	if req.Status != nil {
		st := model.SubscriptionStatus(*req.Status)
		in.Status = &st
	}
	if req.PaymentStatus != nil {
		ps := model.PaymentStatus(*req.PaymentStatus)
		in.PaymentStatus = &ps
	}
	in.PaymentReference = req.PaymentReference
	in.Notes = req.Notes

	sub, err := s.uc.Subs.UpdateStatus(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "Subscription updated successfully", sub)
}

func (s *Server) handleSessionUpdate(w http.ResponseWriter, r *http.Request) {
	var req sessionUpdateRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sub, err := s.uc.Subs.UpdateSession(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "sessionId"),
		model.SessionStatus(req.Status), req.Notes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "Session updated successfully", sub)
}
