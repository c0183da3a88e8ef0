package web

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"appointment-booking/internal/domain/booking"
	"appointment-booking/internal/domain/model"
	"appointment-booking/internal/usecase"
)

type bookedResponse struct {
	Sessions        []usecase.BookedSlot `json:"sessions"`
	Total           int                  `json:"total"`
	DisplayCountry  string               `json:"displayCountry"`
	DisplayTimezone string               `json:"displayTimezone"`
}

type availableResponse struct {
	Slots     []booking.OpenSlot `json:"slots"`
	Total     int                `json:"total"`
	StartDate string             `json:"startDate"`
	EndDate   string             `json:"endDate"`
	Timezone  string             `json:"timezone"`
}

type countriesResponse struct {
	Countries []booking.Country `json:"countries"`
	Total     int               `json:"total"`
}

type countryInfo struct {
	Country   string `json:"country"`
	Timezone  string `json:"timezone,omitempty"`
	Supported bool   `json:"supported"`
}

func (s *Server) handleActivePlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.uc.Plans.ListActive(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if plans == nil {
		plans = []*model.SubscriptionPlan{}
	}
	s.ok(w, http.StatusOK, "", plans)
}

func (s *Server) handleBookedSessions(w http.ResponseWriter, r *http.Request) {
	display := strings.TrimSpace(r.URL.Query().Get("displayCountry"))
	slots, err := s.uc.Subs.Booked(r.Context(), display)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "", bookedResponse{
		Sessions:        slots,
		Total:           len(slots),
		DisplayCountry:  display,
		DisplayTimezone: booking.TimezoneFor(display),
	})
}

func (s *Server) handleAvailableSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start := strings.TrimSpace(q.Get("startDate"))
	end := strings.TrimSpace(q.Get("endDate"))
	display := strings.TrimSpace(q.Get("displayCountry"))
	if start == "" {
		s.writeError(w, r, badRequest("startDate", "This field is required"))
		return
	}
	slots, err := s.uc.Subs.Available(r.Context(), start, end, display)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if slots == nil {
		slots = []booking.OpenSlot{}
	}
	if end == "" {
		end = start
	}
	s.ok(w, http.StatusOK, "", availableResponse{
		Slots:     slots,
		Total:     len(slots),
		StartDate: start,
		EndDate:   end,
		Timezone:  booking.TimezoneFor(display),
	})
}

func (s *Server) handleCountries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	found := booking.SearchCountries(q.Get("search"))
	if tz := strings.TrimSpace(q.Get("timezone")); tz != "" {
		if !booking.IsSupportedTimezone(tz) {
			s.writeError(w, r, badRequest("timezone", "Unsupported timezone"))
			return
		}
		inZone := found[:0]
		for _, c := range found {
			if c.Timezone == tz {
				inZone = append(inZone, c)
			}
		}
		found = inZone
	}
	if found == nil {
		found = []booking.Country{}
	}
	s.ok(w, http.StatusOK, "", countriesResponse{Countries: found, Total: len(found)})
}

func (s *Server) handlePopularCountries(w http.ResponseWriter, _ *http.Request) {
	popular := booking.PopularCountries()
	s.ok(w, http.StatusOK, "", countriesResponse{Countries: popular, Total: len(popular)})
}

func (s *Server) handleCountryTimezone(w http.ResponseWriter, r *http.Request) {
	country := countryParam(r)
	s.ok(w, http.StatusOK, "", countryInfo{
		Country:   country,
		Timezone:  booking.TimezoneFor(country),
		Supported: booking.IsSupportedCountry(country),
	})
}

func (s *Server) handleCountrySupported(w http.ResponseWriter, r *http.Request) {
	country := countryParam(r)
	s.ok(w, http.StatusOK, "", countryInfo{Country: country, Supported: booking.IsSupportedCountry(country)})
}

func countryParam(r *http.Request) string {
	raw := chi.URLParam(r, "country")
	if v, err := url.PathUnescape(raw); err == nil {
		raw = v
	}
	return strings.TrimSpace(raw)
}
