package web

import (
	"net/http"
	"strings"

	"appointment-booking/internal/domain/booking"
	"appointment-booking/internal/usecase"
)

type sessionRequest struct {
	Date  string `json:"date" validate:"required,datetime=2006-01-02"`
	Time  string `json:"time" validate:"required,datetime=15:04"`
	Notes string `json:"notes" validate:"max=500"`
}

type createSubscriptionRequest struct {
	PlanID    string           `json:"subscriptionPlanId" validate:"required"`
	StartDate string           `json:"startDate" validate:"required,datetime=2006-01-02"`
	Sessions  []sessionRequest `json:"sessions" validate:"required,min=1,max=100,dive"`
	Notes     string           `json:"notes" validate:"max=1000"`
}

type subscriptionsResponse struct {
	Subscriptions   []*usecase.SubscriptionView `json:"subscriptions"`
	Total           int                         `json:"total"`
	DisplayCountry  string                      `json:"displayCountry,omitempty"`
	DisplayTimezone string                      `json:"displayTimezone,omitempty"`
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	u, err := s.uc.Users.Profile(r.Context(), claims.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "", u)
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	var req createSubscriptionRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	in := usecase.CreateSubscriptionInput{
		PlanID:    req.PlanID,
		StartDate: req.StartDate,
		Sessions:  make([]booking.SessionRequest, 0, len(req.Sessions)),
		Notes:     req.Notes,
	}
	for _, ss := range req.Sessions {
		in.Sessions = append(in.Sessions, booking.SessionRequest{Date: ss.Date, Time: ss.Time, Notes: ss.Notes})
	}

	sub, err := s.uc.Subs.Create(r.Context(), claims.ID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ok(w, http.StatusCreated, "Subscription created successfully",
		usecase.NewSubscriptionView(sub, sub.UserCountry, s.now().UTC()))
}

func (s *Server) handleMySubscriptions(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	display := strings.TrimSpace(r.URL.Query().Get("displayCountry"))
	views, err := s.uc.Subs.ListMine(r.Context(), claims.ID, display)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := subscriptionsResponse{Subscriptions: views, Total: len(views)}
	if display != "" {
		resp.DisplayCountry = display
		resp.DisplayTimezone = booking.TimezoneFor(display)
	}
	s.ok(w, http.StatusOK, "", resp)
}
