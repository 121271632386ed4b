package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/terminal-bench/civicsim/internal/config"
	"github.com/terminal-bench/civicsim/internal/logging"
)

func main() {
	var databaseURL, migrationsPath, command string
	flag.StringVar(&databaseURL, "database", "", "Database URL (defaults to DATABASE_URL)")
	flag.StringVar(&migrationsPath, "path", "migrations", "Path to migrations directory")
	flag.StringVar(&command, "command", "up", "Migration command: up, down, version, force")
	flag.Parse()

	logging.Init("civicsim-migrate", "info", false)

	if databaseURL == "" {
		cfg, err := config.Load()
		if err != nil {
			fatal("failed to load config", err)
		}
		databaseURL = cfg.DatabaseURL
	}

	m, err := migrate.New(fmt.Sprintf("file://%s", migrationsPath), databaseURL)
	if err != nil {
		fatal("failed to create migration instance", err)
	}
	defer m.Close()

	if err := run(m, command, flag.Args()); err != nil {
		fatal("migration failed", err)
	}
}

func run(m *migrate.Migrate, command string, args []string) error {
	switch command {
	case "up":
		err := m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("database is up to date")
			return nil
		}
		if err != nil {
			return err
		}
		slog.Info("migrations applied")
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		slog.Info("migrations rolled back")
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		slog.Info("current version", "version", version, "dirty", dirty)
	case "force":
		if len(args) < 1 {
			return errors.New("force requires a version number: -command force <version>")
		}
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version number: %w", err)
		}
		if err := m.Force(version); err != nil {
			return err
		}
		slog.Info("forced version", "version", version)
	default:
		return fmt.Errorf("unknown command %q (use: up, down, version, force)", command)
	}
	return nil
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
