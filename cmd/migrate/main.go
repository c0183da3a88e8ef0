package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"strconv"

	"github.com/golang-migrate/migrate/v4"

	"appointment-booking/internal/config"
	pg "appointment-booking/internal/infra/db/postgres"
)

const usage = "usage: migrate [-config path] up|down [n]|goto <version>|force <version>|status"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	args := flag.Args()
	if len(args) == 0 {
		log.Fatal(usage)
	}

	m, err := pg.NewMigrator(cfg.Database.URL)
	if err != nil {
		log.Fatalf("migrator: %v", err)
	}
	defer m.Close()

	switch args[0] {
	case "up":
		err = m.Up()
	case "down":
		// one step unless told otherwise; a full down needs "down all"
		n := 1
		if len(args) > 1 {
			if args[1] == "all" {
				err = m.Down()
				break
			}
			n = mustInt(args[1])
		}
		err = m.Steps(-n)
	case "goto":
		if len(args) < 2 {
			log.Fatal(usage)
		}
		err = m.Migrate(uint(mustInt(args[1])))
	case "force":
		if len(args) < 2 {
			log.Fatal(usage)
		}
		err = m.Force(mustInt(args[1]))
	case "status":
	default:
		log.Fatal(usage)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("%s: %v", args[0], err)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		fmt.Println("no migrations applied")
	case err != nil:
		log.Fatalf("version: %v", err)
	default:
		fmt.Printf("version=%d dirty=%v\n", version, dirty)
	}
}

func mustInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		log.Fatalf("invalid number %q", s)
	}
	return n
}
