package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	ChiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"flighttrack/internal/api/middleware"
)

func NewRouter(h *Handlers, redisClient *redis.Client) http.Handler {
	r := chi.NewRouter()

	r.Use(ChiMiddleware.Logger)
	r.Use(ChiMiddleware.Recoverer)
	r.Use(ChiMiddleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/flights/{id}", func(r chi.Router) {
		r.Post("/timeline", h.GenerateTimeline)
		r.Post("/timeline/events", h.RecordActualEvent)
		r.Get("/updates", h.ListUpdates)
		r.Get("/snapshot", h.GetSnapshot)
		r.Post("/status", h.UpdateFlightStatus)
	})

	r.Post("/ingest", h.Ingest)

	// Schedule creation is idempotent when the client supplies a key.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Idempotency(redisClient))
		r.Post("/schedules/flight", h.ScheduleByFlight)
		r.Post("/schedules/airport", h.ScheduleByAirport)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
