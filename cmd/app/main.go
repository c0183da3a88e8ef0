// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"appointment-booking/internal/config"
	"appointment-booking/internal/domain/booking"
	"appointment-booking/internal/domain/ports/adapter"
	mailAdapters "appointment-booking/internal/infra/adapters/mail"
	pg "appointment-booking/internal/infra/db/postgres"
	"appointment-booking/internal/infra/i18n"
	"appointment-booking/internal/infra/logging"
	"appointment-booking/internal/infra/metrics"
	red "appointment-booking/internal/infra/redis"
	"appointment-booking/internal/infra/sched"
	"appointment-booking/internal/infra/web"
	"appointment-booking/internal/infra/worker"
	"appointment-booking/internal/usecase"
)

// Set with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- Config ----
	cfg, err := config.LoadConfig()
	if err != nil {
		fallback := zerolog.New(os.Stderr).With().Timestamp().Logger()
		fallback.Fatal().Err(err).Msg("config")
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] enabled")
	}
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	if err := pg.MigrateUp(cfg.Database.URL); err != nil {
		logger.Fatal().Err(err).Msg("migrations")
	}
	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 15*time.Second, logger)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	otpStore := red.NewOTPStore(redisClient)
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	userRepo := pg.NewUserRepo(pool)
	adminRepo := pg.NewAdminRepo(pool)
	planRepo := pg.NewPlanRepoCacheDecorator(pg.NewPlanRepo(pool), redisClient, cfg.Redis.TTL, logger)
	subRepo := pg.NewSubscriptionRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Mail ----
	var mailer adapter.Mailer
	if cfg.Mail.Disabled {
		logger.Warn().Msg("mail disabled; messages are logged only")
		mailer = mailAdapters.NewNoopMailer(logger)
	} else {
		mailer = mailAdapters.NewSMTPMailer(cfg.Mail)
	}
	mailer = mailAdapters.NewLimitedMailer(mailer, cfg.Worker.Count)

	// ---- Worker pool ----
	jobs := worker.NewPool(worker.Options{
		Workers:    cfg.Worker.Count,
		QueueSize:  cfg.Worker.QueueSize,
		MaxRetries: cfg.Worker.MaxRetries,
		Backoff:    cfg.Worker.Backoff,
	}, logger)
	jobs.Start(ctx)

	// ---- Use cases ----
	authSettings := usecase.AuthSettings{
		OTPTTL:       cfg.Auth.OTPTTL,
		VerifiedTTL:  cfg.Auth.VerifiedTTL,
		OTPPerWindow: cfg.Auth.OTPPerWindow,
		OTPWindow:    cfg.Auth.OTPWindow,
	}
	notifUC := usecase.NewNotificationUseCase(mailer, jobs, i18n.MustDefault(), cfg.Mail.From, cfg.Booking.SessionDuration, logger)
	authUC := usecase.NewAuthUseCase(userRepo, otpStore, rateLimiter, notifUC, authSettings, logger)
	adminUC := usecase.NewAdminUseCase(adminRepo, rateLimiter, notifUC, cfg.Admin.SuperAdminEmail, authSettings, logger)
	userUC := usecase.NewUserUseCase(userRepo, logger)
	planUC := usecase.NewPlanUseCase(planRepo, logger)
	subUC := usecase.NewSubscriptionUseCase(subRepo, planRepo, userRepo, txManager, notifUC, usecase.BookingSettings{
		Buffer:  cfg.Booking.Buffer,
		Hours:   booking.BusinessHours{Open: cfg.Booking.OpenHour, Close: cfg.Booking.CloseHour},
		Enforce: cfg.Booking.EnforceHours,
	}, logger)

	// ---- Scheduler ----
	scheduler := sched.New(time.UTC, 5*time.Minute, logger)
	expiry := sched.NewExpiryJob(subUC, locker, logger)
	if err := scheduler.Add("subscription_expiry", cfg.Scheduler.ExpiryCheckCron, expiry.Func()); err != nil {
		logger.Fatal().Err(err).Str("spec", cfg.Scheduler.ExpiryCheckCron).Msg("scheduler")
	}
	scheduler.Start()

	// ---- HTTP ----
	api := web.NewServer(web.UseCases{
		Auth:   authUC,
		Admins: adminUC,
		Users:  userUC,
		Plans:  planUC,
		Subs:   subUC,
	}, web.NewAuthManager(cfg.Auth), cfg.HTTP, logger).
		WithHealthCheck("postgres", pool).
		WithHealthCheck("redis", redisClient)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      api.Routes(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Str("version", version).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	scheduler.Stop(shutdownCtx)
	// drain pending mails before the mailer goes away
	jobs.Stop()
	cancel()
	logger.Info().Msg("bye")
}
