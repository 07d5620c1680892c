package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"confcheckin/internal/config"
	"confcheckin/internal/infra"
	"confcheckin/internal/metrics"
	"confcheckin/internal/router"
	"confcheckin/internal/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod: JSON
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	// log.Ctx falls back to the global logger outside HTTP requests
	zerolog.DefaultContextLogger = &log.Logger

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Worker handlers are wired here (composition root) so that the pool
	// has full access to all infrastructure dependencies.
	cbCfg := infra.DefaultCBConfig("smtp")
	cbCfg.IsFailure = infra.IsRelayFailure
	cbCfg.OnStateChange = func(name string, _, to infra.CBState) { m.SetBreakerState(name, int(to)) }
	mailCB := infra.NewCircuitBreaker(cbCfg)
	m.SetBreakerState(cbCfg.Name, int(infra.CBClosed))
	mailer := infra.NewMailer(cfg, mailCB)
	if !mailer.Enabled() {
		log.Warn().Msg("SMTP_HOST not set, outgoing mail disabled")
	}
	dispatcher := worker.NewDispatcher(rdb)

	pool := worker.NewPool(rdb, m)
	pool.Register(worker.JobTypeEmail, worker.NewEmailWorker(mailer, cfg.BadgeStoragePath))
	pool.Start(ctx, cfg.WorkerPoolSize)

	r := router.New(ctx, router.Deps{
		Config:      cfg,
		DB:          db,
		Redis:       rdb,
		Jobs:        dispatcher,
		MailBreaker: mailer.Breaker(),
		Metrics:     m,
		Gatherer:    reg,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Str("event", cfg.EventName).Msgf("check-in backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	cancel()
	pool.Wait()
	log.Info().Msg("server exited")
}
