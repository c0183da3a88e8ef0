package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"appointment-booking/internal/config"
	"appointment-booking/internal/infra/logging"
	"appointment-booking/internal/usecase"
)

// HealthChecker is anything /health should ping, such as the database pool.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// UseCases are the application services the routes call into.
type UseCases struct {
	Auth   usecase.AuthUseCase
	Admins usecase.AdminUseCase
	Users  usecase.UserUseCase
	Plans  usecase.PlanUseCase
	Subs   usecase.SubscriptionUseCase
}

type Server struct {
	uc     UseCases
	auth   *AuthManager
	v      *Validator
	cfg    config.HTTPConfig
	checks map[string]HealthChecker
	now    func() time.Time
	log    *zerolog.Logger
}

func NewServer(uc UseCases, auth *AuthManager, cfg config.HTTPConfig, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "http").Logger()
	return &Server{
		uc:     uc,
		auth:   auth,
		v:      NewValidator(),
		cfg:    cfg,
		checks: map[string]HealthChecker{},
		now:    time.Now,
		log:    &l,
	}
}

// WithHealthCheck adds a dependency to the /health report.
func (s *Server) WithHealthCheck(name string, c HealthChecker) *Server {
	s.checks[name] = c
	return s
}

// Routes builds the full router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(s.log), Recover(s.log))
	if len(s.cfg.AllowedOrigins) > 0 {
		r.Use(CORS(s.cfg.AllowedOrigins))
	}

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if s.cfg.RequestTimeout > 0 {
			r.Use(Timeout(s.cfg.RequestTimeout))
		}

		r.Route("/auth", func(r chi.Router) {
			r.Post("/send-otp", s.handleSendRegistrationOTP)
			r.Post("/login/send-otp", s.handleSendLoginOTP)
			r.Post("/verify-otp", s.handleVerifyOTP)
			r.Post("/logout", s.handleLogout)
			r.With(s.requireTemp()).Post("/complete-registration", s.handleCompleteRegistration)
		})

		r.Get("/plans", s.handleActivePlans)

		r.Route("/user", func(r chi.Router) {
			r.Use(s.requireUser())
			r.Get("/profile", s.handleProfile)
			r.Post("/complete-subscription", s.handleCreateSubscription)
			r.Get("/complete-subscriptions", s.handleMySubscriptions)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/booked", s.handleBookedSessions)
			r.Get("/available", s.handleAvailableSessions)
		})

		r.Route("/countries", func(r chi.Router) {
			r.Get("/", s.handleCountries)
			r.Get("/popular", s.handlePopularCountries)
			r.Get("/{country}/timezone", s.handleCountryTimezone)
			r.Get("/{country}/supported", s.handleCountrySupported)
		})

		r.Route("/admin", s.adminRoutes)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		s.fail(w, http.StatusNotFound, "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		s.fail(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})
	return r
}

func (s *Server) adminRoutes(r chi.Router) {
	r.Post("/register", s.handleAdminRegister)
	r.Post("/login", s.handleAdminLogin)
	r.Post("/logout", s.handleLogout)
	r.Post("/forgot-password", s.handleAdminForgotPassword)
	r.Post("/reset-password", s.handleAdminResetPassword)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAdmin())

		r.Get("/me", s.handleAdminMe)
		r.Delete("/admins/{id}", s.handleAdminDelete)

		r.Route("/subscription-plans", func(r chi.Router) {
			r.Post("/", s.handlePlanCreate)
			r.Get("/", s.handlePlanList)
			r.Get("/{id}", s.handlePlanGet)
			r.Put("/{id}", s.handlePlanUpdate)
			r.Delete("/{id}", s.handlePlanDelete)
			r.Patch("/{id}/toggle", s.handlePlanToggle)
		})

		r.Route("/complete-subscriptions", func(r chi.Router) {
			r.Get("/stats", s.handleSubscriptionStats)
			r.Get("/", s.handleSubscriptionList)
			r.Get("/{id}", s.handleSubscriptionGet)
			r.Delete("/{id}", s.handleSubscriptionDelete)
			r.Patch("/{id}/status", s.handleSubscriptionStatus)
			r.Patch("/{id}/sessions/{sessionId}", s.handleSessionUpdate)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", s.handleUserList)
			r.Get("/{id}", s.handleUserGet)
			r.Delete("/{id}", s.handleUserDelete)
		})
	})
}

type healthReport struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	rep := healthReport{Status: "ok", Timestamp: s.now().UTC()}
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) > 0 {
		rep.Checks = make(map[string]string, len(names))
	}
	for _, name := range names {
		if err := s.checks[name].Ping(ctx); err != nil {
			l := logging.With(r.Context(), s.log)
			l.Warn().Err(err).Str("check", name).Msg("health check failed")
			rep.Checks[name] = "down"
			rep.Status = "degraded"
			continue
		}
		rep.Checks[name] = "up"
	}

	code := http.StatusOK
	if rep.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(rep)
}
