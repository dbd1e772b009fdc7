package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"flighttrack/internal/application/factories/infrastructure"
	"flighttrack/internal/config"
	"flighttrack/internal/domain/update"
	"flighttrack/internal/infrastructure/kafka"
	"flighttrack/internal/infrastructure/postgres"
	"flighttrack/internal/state"
	"flighttrack/internal/timeline"
)

var (
	updatesApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "consumer_updates_applied_total",
		Help: "The total number of flight updates applied to flight state",
	})
	updatesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "consumer_updates_skipped_total",
		Help: "The total number of flight updates skipped (unresolved or non-status)",
	})
)

// Consumes the flight-updates topic and applies status changes to flight
// state, closing the loop between ingestion and state distribution.
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
		logger.Info("Consumer metrics listening on :9091")
		http.ListenAndServe(":9091", mux)
	}()

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

	flightRepo := postgres.NewFlightRepository(pgPool)
	generator := timeline.NewGenerator(flightRepo, timeline.NewCalculator(), timeline.NewValidator())
	engine := state.NewEngine(redisClient, flightRepo, generator)

	kafkaConsumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID)
	defer kafkaConsumer.Close()

	logger.Info("flight update consumer started", "group_id", cfg.Kafka.GroupID)

	for {
		msg, err := kafkaConsumer.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Error("failed to fetch message", "error", err)
			time.Sleep(1 * time.Second)
			continue
		}

		var u update.FlightUpdate
		if err := json.Unmarshal(msg.Value, &u); err != nil {
			// Corrupt or foreign message; commit and move on.
			logger.Error("failed to unmarshal flight update", "error", err)
			if err := kafkaConsumer.CommitMessages(ctx, msg); err != nil {
				logger.Error("failed to commit kafka message", "error", err)
			}
			continue
		}

		if u.Type != update.TypeStatusChange || u.FlightID == nil || u.Status == "" {
			updatesSkipped.Inc()
			if err := kafkaConsumer.CommitMessages(ctx, msg); err != nil {
				logger.Error("failed to commit kafka message", "error", err)
			}
			continue
		}

		// Retry with backoff before giving the message up.
		const maxRetries = 3
		for attempt := 0; attempt <= maxRetries; attempt++ {
			if attempt > 0 {
				time.Sleep(time.Duration(1<<attempt) * time.Second)
			}

			err := engine.UpdateFlightState(ctx, *u.FlightID, u.Status)
			if err == nil {
				updatesApplied.Inc()
				logger.Info("flight state applied", "flight_id", u.FlightID, "status", u.Status, "update_id", u.ID)
				break
			}

			logger.Error("failed to apply flight update", "attempt", attempt, "error", err)
			if attempt == maxRetries {
				logger.Error("dropping flight update after retries", "update_id", u.ID)
			}
		}

		if err := kafkaConsumer.CommitMessages(ctx, msg); err != nil {
			logger.Error("failed to commit kafka message", "error", err)
		}
	}

	logger.Info("consumer exited")
}
