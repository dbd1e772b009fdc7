package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"flighttrack/internal/application/factories/infrastructure"
	"flighttrack/internal/config"
	"flighttrack/internal/infrastructure/kafka"
	"flighttrack/internal/infrastructure/postgres"
	"flighttrack/internal/ingestion"
	"flighttrack/internal/scheduler"
)

// Standalone scheduler daemon: runs the periodic tick loop without the HTTP
// API, for deployments that split ingestion from the serving path.
func main() {
	// Initialize structured JSON logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.New()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Metrics server
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info("Scheduler metrics listening on :9093")
		http.ListenAndServe(":9093", mux)
	}()

	infraFactory := infrastructure.NewFactory(cfg)
	defer infraFactory.Close()

	pgPool, err := infraFactory.Postgres(ctx)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}

	flightRepo := postgres.NewFlightRepository(pgPool)
	scheduleRepo := postgres.NewScheduleRepository(pgPool)
	updateRepo := postgres.NewUpdateRepository(pgPool)

	kafkaProd := kafka.NewProducer(kafka.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
	})
	defer kafkaProd.Close()

	var providers []ingestion.Provider
	if cfg.Providers.SimulatedEnabled {
		providers = append(providers, ingestion.NewSimulatedProvider())
	}
	if cfg.Providers.HTTPName != "" && cfg.Providers.HTTPURL != "" {
		providers = append(providers, ingestion.NewHTTPProvider(
			cfg.Providers.HTTPName, cfg.Providers.HTTPURL, cfg.Scheduler.FetchTimeout()))
	}
	pipeline := ingestion.NewPipeline(providers, updateRepo, flightRepo, kafkaProd, cfg.Scheduler.FetchTimeout())

	sched := scheduler.New(scheduleRepo, pipeline, cfg.Scheduler.Tick())
	sched.Start()

	logger.Info("scheduler daemon started", "tick_seconds", cfg.Scheduler.TickSeconds)

	<-ctx.Done()
	logger.Info("draining in-flight runs...")
	sched.Stop()
	logger.Info("scheduler exited")
}
