package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"flighttrack/internal/domain/schedule"
	"flighttrack/internal/ingestion"
)

var (
	runsDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_runs_dispatched_total",
		Help: "The total number of ingestion runs dispatched",
	})
	runFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_run_failures_total",
		Help: "The total number of dispatched runs that failed",
	})
)

const defaultTick = 5 * time.Second

// Scheduler periodically fires ingestion runs for due schedules. Each due
// schedule runs as its own goroutine so one stuck provider cannot delay the
// others; the tick loop never waits on dispatched runs.
type Scheduler struct {
	schedules schedule.Repository
	pipeline  *ingestion.Pipeline
	tick      time.Duration

	mu       sync.Mutex
	inflight map[uuid.UUID]struct{}

	wg     sync.WaitGroup
	cancel context.CancelFunc
	done   chan struct{}
}

func New(schedules schedule.Repository, pipeline *ingestion.Pipeline, tick time.Duration) *Scheduler {
	if tick <= 0 {
		tick = defaultTick
	}
	return &Scheduler{
		schedules: schedules,
		pipeline:  pipeline,
		tick:      tick,
		inflight:  make(map[uuid.UUID]struct{}),
	}
}

// Start begins the periodic tick loop. It returns immediately.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx)
}

// Stop cancels the tick loop and drains in-flight runs. Dispatched runs are
// not forcibly cancelled; they complete or fail on their own.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	slog.Info("scheduler started", "tick", s.tick)

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return
		case <-ticker.C:
			if err := s.checkAndRun(ctx); err != nil {
				slog.Error("failed to evaluate schedules", "error", err)
			}
		}
	}
}

func (s *Scheduler) checkAndRun(ctx context.Context) error {
	enabled, err := s.schedules.ListEnabled(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, sched := range enabled {
		if !sched.Due(now) {
			continue
		}
		if !s.claim(sched.ID) {
			// A run for this schedule is still in flight; skipping the tick
			// prevents double execution.
			continue
		}

		s.wg.Add(1)
		runsDispatched.Inc()
		go s.runSchedule(ctx, sched)
	}
	return nil
}

// runSchedule executes one ingestion pass for a schedule and reschedules or
// disables it based on the configured interval. Failures are logged and
// absorbed so sibling schedules and the tick loop are unaffected.
func (s *Scheduler) runSchedule(ctx context.Context, sched *schedule.Schedule) {
	defer s.wg.Done()
	defer s.release(sched.ID)

	restricted := s.pipeline.Restricted(sched.Provider)
	updates, err := restricted.IngestAll(ctx)
	if err != nil {
		// The schedule stays due and is retried on a later tick.
		runFailures.Inc()
		slog.Error("scheduled ingestion failed", "schedule_id", sched.ID, "provider", sched.Provider, "error", err)
		return
	}

	slog.Info("scheduled ingestion finished", "schedule_id", sched.ID, "updates", len(updates))

	if sched.IntervalSeconds > 0 {
		next := time.Now().UTC().Add(time.Duration(sched.IntervalSeconds) * time.Second)
		sched.NextRunAt = &next
	} else {
		// One-shot semantics.
		sched.Enabled = false
	}

	if err := s.schedules.Update(ctx, sched); err != nil {
		slog.Error("failed to update schedule", "schedule_id", sched.ID, "error", err)
	}
}

func (s *Scheduler) claim(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, running := s.inflight[id]; running {
		return false
	}
	s.inflight[id] = struct{}{}
	return true
}

func (s *Scheduler) release(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, id)
}

// ScheduleByFlight creates an enabled ingestion schedule targeting one
// flight. A positive initialDelay defers the first run.
func (s *Scheduler) ScheduleByFlight(ctx context.Context, flightID uuid.UUID, provider string, intervalSeconds int, initialDelay time.Duration) (*schedule.Schedule, error) {
	if flightID == uuid.Nil {
		return nil, errors.New("flight id is required")
	}
	return s.create(ctx, &flightID, "", provider, intervalSeconds, initialDelay)
}

// ScheduleByAirport creates an enabled ingestion schedule targeting one
// airport.
func (s *Scheduler) ScheduleByAirport(ctx context.Context, airportCode, provider string, intervalSeconds int, initialDelay time.Duration) (*schedule.Schedule, error) {
	if airportCode == "" {
		return nil, errors.New("airport code is required")
	}
	return s.create(ctx, nil, airportCode, provider, intervalSeconds, initialDelay)
}

func (s *Scheduler) create(ctx context.Context, flightID *uuid.UUID, airportCode, provider string, intervalSeconds int, initialDelay time.Duration) (*schedule.Schedule, error) {
	if provider == "" {
		return nil, errors.New("provider is required")
	}

	now := time.Now().UTC()
	sched := &schedule.Schedule{
		ID:              uuid.New(),
		FlightID:        flightID,
		AirportCode:     airportCode,
		Provider:        provider,
		IntervalSeconds: intervalSeconds,
		Enabled:         true,
		CreatedAt:       now,
	}
	if initialDelay > 0 {
		next := now.Add(initialDelay)
		sched.NextRunAt = &next
	}

	if err := s.schedules.Create(ctx, sched); err != nil {
		return nil, err
	}
	return sched, nil
}
