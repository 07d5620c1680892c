// cmd/seeduser creates a staff account so the first operator can log in.
// Usage: SEED_EMAIL=ops@example.com SEED_PASSWORD=secret go run ./cmd/seeduser
package main

import (
	"context"
	"os"
	"time"

	"confcheckin/internal/config"
	"confcheckin/internal/infra"
	"confcheckin/internal/model"
	"confcheckin/internal/repository"
	"confcheckin/internal/service"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.DefaultContextLogger = &log.Logger

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	email := envOr("SEED_EMAIL", "staff@example.com")
	password := envOr("SEED_PASSWORD", "change-me-now")
	name := envOr("SEED_NAME", "Check-in Staff")

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	registry := service.NewRegistryService(repository.NewAttendeeRepository(db), nil, cfg.EventName, cfg.EventTokenPrefix)
	a, err := registry.Create(context.Background(), service.NewAttendee{
		Email:    email,
		Name:     name,
		Role:     model.RoleStaff,
		Password: password,
	})
	if service.IsReason(err, service.ReasonDuplicateEmail) {
		log.Info().Str("email", email).Msg("staff account already exists")
		return
	}
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create staff account")
	}
	log.Info().Str("email", a.Email).Str("id", a.ID.String()).Msg("staff account created")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
