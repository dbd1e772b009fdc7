package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"flighttrack/internal/domain/flight"
	domain "flighttrack/internal/domain/timeline"
	"flighttrack/internal/domain/update"
	"flighttrack/internal/ingestion"
	"flighttrack/internal/scheduler"
	"flighttrack/internal/state"
	"flighttrack/internal/timeline"
)

// UpdateLister reads back persisted updates for one flight.
type UpdateLister interface {
	ListByFlight(ctx context.Context, flightID uuid.UUID) ([]*update.FlightUpdate, error)
}

type Handlers struct {
	generator *timeline.Generator
	pipeline  *ingestion.Pipeline
	scheduler *scheduler.Scheduler
	engine    *state.Engine
	updates   UpdateLister
}

func NewHandlers(generator *timeline.Generator, pipeline *ingestion.Pipeline, sched *scheduler.Scheduler, engine *state.Engine, updates UpdateLister) *Handlers {
	return &Handlers{
		generator: generator,
		pipeline:  pipeline,
		scheduler: sched,
		engine:    engine,
		updates:   updates,
	}
}

func (h *Handlers) GenerateTimeline(w http.ResponseWriter, r *http.Request) {
	flightID, ok := flightIDParam(w, r)
	if !ok {
		return
	}

	events, err := h.generator.GenerateTimeline(r.Context(), flightID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *Handlers) RecordActualEvent(w http.ResponseWriter, r *http.Request) {
	flightID, ok := flightIDParam(w, r)
	if !ok {
		return
	}

	var req struct {
		EventType  string    `json:"event_type"`
		ActualTime time.Time `json:"actual_time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.EventType == "" || req.ActualTime.IsZero() {
		http.Error(w, "event_type and actual_time are required", http.StatusBadRequest)
		return
	}

	actual := domain.Event{
		FlightID:   flightID,
		Type:       domain.EventType(req.EventType),
		ActualTime: &req.ActualTime,
		Status:     domain.StatusActual,
	}

	events, err := h.generator.UpdateTimeline(r.Context(), actual)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *Handlers) Ingest(w http.ResponseWriter, r *http.Request) {
	updates, err := h.pipeline.IngestAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(updates),
		"updates": updates,
	})
}

func (h *Handlers) ListUpdates(w http.ResponseWriter, r *http.Request) {
	flightID, ok := flightIDParam(w, r)
	if !ok {
		return
	}

	updates, err := h.updates.ListByFlight(r.Context(), flightID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updates)
}

func (h *Handlers) ScheduleByFlight(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FlightID            uuid.UUID `json:"flight_id"`
		Provider            string    `json:"provider"`
		IntervalSeconds     int       `json:"interval_seconds"`
		InitialDelaySeconds int       `json:"initial_delay_seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	row, err := h.scheduler.ScheduleByFlight(r.Context(), req.FlightID, req.Provider,
		req.IntervalSeconds, time.Duration(req.InitialDelaySeconds)*time.Second)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (h *Handlers) ScheduleByAirport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AirportCode         string `json:"airport_code"`
		Provider            string `json:"provider"`
		IntervalSeconds     int    `json:"interval_seconds"`
		InitialDelaySeconds int    `json:"initial_delay_seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	row, err := h.scheduler.ScheduleByAirport(r.Context(), req.AirportCode, req.Provider,
		req.IntervalSeconds, time.Duration(req.InitialDelaySeconds)*time.Second)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (h *Handlers) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	flightID, ok := flightIDParam(w, r)
	if !ok {
		return
	}

	snapshot, err := h.engine.CachedSnapshot(r.Context(), flightID)
	if err != nil {
		writeError(w, err)
		return
	}
	if snapshot == nil {
		snapshot, err = h.engine.TakeSnapshot(r.Context(), flightID)
		if err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handlers) UpdateFlightStatus(w http.ResponseWriter, r *http.Request) {
	flightID, ok := flightIDParam(w, r)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		http.Error(w, "status is required", http.StatusBadRequest)
		return
	}

	if err := h.engine.UpdateFlightState(r.Context(), flightID, req.Status); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

func flightIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid flight id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var allFailed *ingestion.AllProvidersFailedError
	switch {
	case errors.Is(err, flight.ErrNotFound):
		status = http.StatusNotFound
	case timeline.IsValidationError(err):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &allFailed):
		status = http.StatusBadGateway
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
