package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flighttrack/internal/api"
	"flighttrack/internal/application/factories/infrastructure"
	"flighttrack/internal/config"
	"flighttrack/internal/infrastructure/kafka"
	"flighttrack/internal/infrastructure/postgres"
	"flighttrack/internal/ingestion"
	"flighttrack/internal/scheduler"
	"flighttrack/internal/state"
	"flighttrack/internal/timeline"
)

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

	infraFactory := infrastructure.NewFactory(cfg)
	defer infraFactory.Close()

	pgPool, err := infraFactory.Postgres(ctx)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}

	redisClient, err := infraFactory.Redis(ctx)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	// Repositories
	flightRepo := postgres.NewFlightRepository(pgPool)
	scheduleRepo := postgres.NewScheduleRepository(pgPool)
	updateRepo := postgres.NewUpdateRepository(pgPool)

	// Update fan-out
	kafkaProd := kafka.NewProducer(kafka.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
	})
	defer kafkaProd.Close()

	// Providers and pipeline
	var providers []ingestion.Provider
	if cfg.Providers.SimulatedEnabled {
		providers = append(providers, ingestion.NewSimulatedProvider())
	}
	if cfg.Providers.HTTPName != "" && cfg.Providers.HTTPURL != "" {
		providers = append(providers, ingestion.NewHTTPProvider(
			cfg.Providers.HTTPName, cfg.Providers.HTTPURL, cfg.Scheduler.FetchTimeout()))
	}
	pipeline := ingestion.NewPipeline(providers, updateRepo, flightRepo, kafkaProd, cfg.Scheduler.FetchTimeout())

	// Timeline engine
	generator := timeline.NewGenerator(flightRepo, timeline.NewCalculator(), timeline.NewValidator())

	// State distribution
	engine := state.NewEngine(redisClient, flightRepo, generator)

	// Scheduler
	sched := scheduler.New(scheduleRepo, pipeline, cfg.Scheduler.Tick())
	sched.Start()
	defer sched.Stop()

	handlers := api.NewHandlers(generator, pipeline, sched, engine, updateRepo)
	apiHandler := api.NewRouter(handlers, redisClient)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTP.Port,
		Handler: apiHandler,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("Server exiting")
}
