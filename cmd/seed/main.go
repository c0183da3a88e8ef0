package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"appointment-booking/internal/config"
	"appointment-booking/internal/domain"
	"appointment-booking/internal/domain/model"
	"appointment-booking/internal/domain/ports/repository"
	pg "appointment-booking/internal/infra/db/postgres"
	"appointment-booking/internal/infra/logging"
	"appointment-booking/internal/usecase"
)

func main() {
	// ---- Config ----
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := pg.MigrateUp(cfg.Database.URL); err != nil {
		log.Fatalf("migrations: %v", err)
	}
	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	seedSuperAdmin(ctx, pg.NewAdminRepo(pool), cfg.Admin.SuperAdminEmail)

	planUC := usecase.NewPlanUseCase(pg.NewPlanRepo(pool), logger)

	// If plans already exist, do nothing
	plans, total, err := planUC.List(ctx, repository.PlanFilter{Limit: 100})
	if err != nil {
		log.Fatalf("list plans: %v", err)
	}
	if total > 0 {
		fmt.Printf("%d plans already present. No changes.\n", total)
		for _, p := range plans {
			fmt.Printf("  - %s (sessions=%d/month, %d/week, price=%.2f %s)\n", p.Name, p.SessionsPerMonth, p.SessionsPerWeek, p.Price, p.Currency)
		}
		return
	}

	seed := []usecase.PlanInput{
		{
			Name: "Starter", Description: "One session a week",
			SessionsPerMonth: 4, SessionsPerWeek: 1, Price: 800, Currency: model.CurrencyEGP,
			Features: []string{"30 minute sessions", "Email reminders"},
		},
		{
			Name: "Standard", Description: "Two sessions a week",
			SessionsPerMonth: 8, SessionsPerWeek: 2, Price: 1500, Currency: model.CurrencyEGP,
			Features: []string{"30 minute sessions", "Email reminders", "Calendar invites"},
		},
		{
			Name: "Intensive", Description: "Three sessions a week",
			SessionsPerMonth: 12, SessionsPerWeek: 3, Price: 60, Currency: model.CurrencyUSD,
			Features: []string{"30 minute sessions", "Email reminders", "Calendar invites", "Priority slots"},
		},
	}
	for _, in := range seed {
		p, err := planUC.Create(ctx, in, "")
		if err != nil {
			log.Fatalf("create plan %q: %v", in.Name, err)
		}
		fmt.Printf("seeded: %s (id=%s, sessions=%d/month, price=%.2f %s)\n", p.Name, p.ID, p.SessionsPerMonth, p.Price, p.Currency)
	}

	fmt.Println("Seeding complete.")
}

// seedSuperAdmin creates the protected account from SUPER_ADMIN_EMAIL and
// SUPER_ADMIN_PASSWORD when both are set and the account is missing.
func seedSuperAdmin(ctx context.Context, admins repository.AdminRepository, email string) {
	password := os.Getenv("SUPER_ADMIN_PASSWORD")
	if email == "" || password == "" {
		fmt.Println("SUPER_ADMIN_EMAIL or SUPER_ADMIN_PASSWORD unset; skipping super admin.")
		return
	}
	if len(password) < model.MinAdminPasswordLen {
		log.Fatalf("SUPER_ADMIN_PASSWORD must be at least %d characters", model.MinAdminPasswordLen)
	}

	existing, err := admins.FindByEmail(ctx, repository.NoTX, model.NormalizeEmail(email))
	switch {
	case err == nil:
		fmt.Printf("super admin %s already present.\n", existing.Email)
		return
	case !errors.Is(err, domain.ErrNotFound):
		log.Fatalf("find super admin: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	admin, err := model.NewAdmin("Super Admin", model.GenderMale, email, string(hash), "", "")
	if err != nil {
		log.Fatalf("build super admin: %v", err)
	}
	if err := admins.Save(ctx, repository.NoTX, admin); err != nil {
		log.Fatalf("save super admin: %v", err)
	}
	fmt.Printf("seeded super admin %s (id=%s)\n", admin.Email, admin.ID)
}
