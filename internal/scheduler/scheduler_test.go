package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flighttrack/internal/domain/flight"
	"flighttrack/internal/domain/schedule"
	"flighttrack/internal/domain/update"
	"flighttrack/internal/ingestion"
)

type memScheduleStore struct {
	mu        sync.Mutex
	schedules map[uuid.UUID]*schedule.Schedule
}

func newMemScheduleStore() *memScheduleStore {
	return &memScheduleStore{schedules: map[uuid.UUID]*schedule.Schedule{}}
}

func (s *memScheduleStore) Create(_ context.Context, row *schedule.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *row
	s.schedules[row.ID] = &cp
	return nil
}

func (s *memScheduleStore) ListEnabled(_ context.Context) ([]*schedule.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*schedule.Schedule
	for _, row := range s.schedules {
		if row.Enabled {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memScheduleStore) Update(_ context.Context, row *schedule.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *row
	s.schedules[row.ID] = &cp
	return nil
}

func (s *memScheduleStore) get(id uuid.UUID) *schedule.Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s.schedules[id]
	return &cp
}

type tickProvider struct {
	name    string
	mu      sync.Mutex
	fetches int
	block   chan struct{}
}

func (p *tickProvider) Name() string { return p.name }

func (p *tickProvider) FetchUpdates(ctx context.Context) ([]ingestion.RawPayload, error) {
	p.mu.Lock()
	p.fetches++
	p.mu.Unlock()
	if p.block != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-p.block:
		}
	}
	return []ingestion.RawPayload{{"flight_number": "AX123"}}, nil
}

func (p *tickProvider) Normalize(payload ingestion.RawPayload) (*update.Packet, error) {
	number, _ := payload["flight_number"].(string)
	return &update.Packet{Provider: p.name, FlightNumber: number, Type: update.TypeUnknown}, nil
}

func (p *tickProvider) fetchCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetches
}

type nullUpdateStore struct{}

func (nullUpdateStore) Save(context.Context, *update.FlightUpdate) error { return nil }

type nullResolver struct{}

func (nullResolver) GetByNumber(context.Context, string) (*flight.Flight, error) {
	return nil, flight.ErrNotFound
}

func newTestScheduler(store *memScheduleStore, providers ...ingestion.Provider) *Scheduler {
	pipeline := ingestion.NewPipeline(providers, nullUpdateStore{}, nullResolver{}, nil, 0)
	return New(store, pipeline, 10*time.Millisecond)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestScheduleByFlightCreatesEnabledSchedule(t *testing.T) {
	store := newMemScheduleStore()
	s := newTestScheduler(store)

	flightID := uuid.New()
	row, err := s.ScheduleByFlight(context.Background(), flightID, "simulated", 300, 0)
	require.NoError(t, err)

	assert.True(t, row.Enabled)
	require.NotNil(t, row.FlightID)
	assert.Equal(t, flightID, *row.FlightID)
	assert.Empty(t, row.AirportCode)
	// No initial delay: due immediately.
	assert.Nil(t, row.NextRunAt)
}

func TestScheduleByAirportWithInitialDelay(t *testing.T) {
	store := newMemScheduleStore()
	s := newTestScheduler(store)

	row, err := s.ScheduleByAirport(context.Background(), "JFK", "simulated", 60, 30*time.Second)
	require.NoError(t, err)

	assert.Equal(t, "JFK", row.AirportCode)
	assert.Nil(t, row.FlightID)
	require.NotNil(t, row.NextRunAt)
	assert.True(t, row.NextRunAt.After(time.Now().UTC().Add(20*time.Second)))
}

func TestScheduleCreationValidation(t *testing.T) {
	s := newTestScheduler(newMemScheduleStore())

	_, err := s.ScheduleByFlight(context.Background(), uuid.Nil, "simulated", 60, 0)
	assert.Error(t, err)

	_, err = s.ScheduleByAirport(context.Background(), "", "simulated", 60, 0)
	assert.Error(t, err)

	_, err = s.ScheduleByAirport(context.Background(), "JFK", "", 60, 0)
	assert.Error(t, err)
}

func TestOneShotScheduleDisabledAfterRun(t *testing.T) {
	store := newMemScheduleStore()
	provider := &tickProvider{name: "simulated"}
	s := newTestScheduler(store, provider)

	row, err := s.ScheduleByFlight(context.Background(), uuid.New(), "simulated", 0, 0)
	require.NoError(t, err)

	require.NoError(t, s.checkAndRun(context.Background()))
	s.wg.Wait()

	got := store.get(row.ID)
	assert.False(t, got.Enabled)
	assert.Equal(t, 1, provider.fetchCount())

	// A disabled schedule is not selected on the next tick.
	require.NoError(t, s.checkAndRun(context.Background()))
	s.wg.Wait()
	assert.Equal(t, 1, provider.fetchCount())
}

func TestRecurringScheduleAdvancesNextRun(t *testing.T) {
	store := newMemScheduleStore()
	provider := &tickProvider{name: "simulated"}
	s := newTestScheduler(store, provider)

	row, err := s.ScheduleByFlight(context.Background(), uuid.New(), "simulated", 300, 0)
	require.NoError(t, err)

	before := time.Now().UTC()
	require.NoError(t, s.checkAndRun(context.Background()))
	s.wg.Wait()

	got := store.get(row.ID)
	assert.True(t, got.Enabled)
	require.NotNil(t, got.NextRunAt)
	assert.True(t, got.NextRunAt.After(before.Add(290*time.Second)))
	assert.True(t, got.NextRunAt.Before(before.Add(310*time.Second)))
}

func TestNotDueScheduleSkipped(t *testing.T) {
	store := newMemScheduleStore()
	provider := &tickProvider{name: "simulated"}
	s := newTestScheduler(store, provider)

	_, err := s.ScheduleByFlight(context.Background(), uuid.New(), "simulated", 300, time.Hour)
	require.NoError(t, err)

	require.NoError(t, s.checkAndRun(context.Background()))
	s.wg.Wait()
	assert.Equal(t, 0, provider.fetchCount())
}

func TestInFlightGuardPreventsDoubleDispatch(t *testing.T) {
	store := newMemScheduleStore()
	provider := &tickProvider{name: "simulated", block: make(chan struct{})}
	s := newTestScheduler(store, provider)

	_, err := s.ScheduleByFlight(context.Background(), uuid.New(), "simulated", 300, 0)
	require.NoError(t, err)

	require.NoError(t, s.checkAndRun(context.Background()))
	waitFor(t, func() bool { return provider.fetchCount() == 1 })

	// Second tick while the first run is still blocked must not re-fire.
	require.NoError(t, s.checkAndRun(context.Background()))
	assert.Equal(t, 1, provider.fetchCount())

	close(provider.block)
	s.wg.Wait()
}

func TestScheduleWithUnknownProviderStillReschedules(t *testing.T) {
	store := newMemScheduleStore()
	// The restricted pipeline for an unregistered provider name is empty;
	// the pass succeeds with zero updates and the schedule advances.
	s := newTestScheduler(store)

	row, err := s.ScheduleByFlight(context.Background(), uuid.New(), "missing-provider", 300, 0)
	require.NoError(t, err)

	require.NoError(t, s.checkAndRun(context.Background()))
	s.wg.Wait()

	got := store.get(row.ID)
	assert.True(t, got.Enabled)
	require.NotNil(t, got.NextRunAt)
}

func TestStartStopDrainsInFlightRuns(t *testing.T) {
	store := newMemScheduleStore()
	provider := &tickProvider{name: "simulated", block: make(chan struct{})}
	pipeline := ingestion.NewPipeline([]ingestion.Provider{provider}, nullUpdateStore{}, nullResolver{}, nil, 0)
	s := New(store, pipeline, 10*time.Millisecond)

	_, err := s.ScheduleByFlight(context.Background(), uuid.New(), "simulated", 0, 0)
	require.NoError(t, err)

	s.Start()
	waitFor(t, func() bool { return provider.fetchCount() == 1 })

	done := make(chan struct{})
	go func() {
		close(provider.block)
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not drain in time")
	}
}
