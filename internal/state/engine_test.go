package state

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flighttrack/internal/domain/flight"
	domain "flighttrack/internal/domain/timeline"
)

type fakeFlights struct {
	mu      sync.Mutex
	flights map[uuid.UUID]*flight.Flight
}

func (s *fakeFlights) GetByID(_ context.Context, id uuid.UUID) (*flight.Flight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flights[id]
	if !ok {
		return nil, flight.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (s *fakeFlights) GetByNumber(_ context.Context, number string) (*flight.Flight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.flights {
		if f.Number == number {
			cp := *f
			return &cp, nil
		}
	}
	return nil, flight.ErrNotFound
}

func (s *fakeFlights) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flights[id]
	if !ok {
		return flight.ErrNotFound
	}
	f.Status = status
	return nil
}

type fakeTimeline struct {
	events []domain.Event
}

func (s *fakeTimeline) GenerateTimeline(context.Context, uuid.UUID) ([]domain.Event, error) {
	return s.events, nil
}

func newTestEngine(t *testing.T, f *flight.Flight) (*Engine, *fakeFlights, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	flights := &fakeFlights{flights: map[uuid.UUID]*flight.Flight{}}
	if f != nil {
		flights.flights[f.ID] = f
	}

	timeline := &fakeTimeline{events: []domain.Event{
		{Type: domain.EventPushback, ScheduledTime: time.Now().UTC(), Status: domain.StatusScheduled},
	}}
	return NewEngine(client, flights, timeline), flights, client
}

func snapshotFlight() *flight.Flight {
	return &flight.Flight{
		ID:     uuid.New(),
		Number: "AX123",
		Status: "scheduled",
	}
}

func TestTakeSnapshotCachesResult(t *testing.T) {
	f := snapshotFlight()
	engine, _, _ := newTestEngine(t, f)
	ctx := context.Background()

	snapshot, err := engine.TakeSnapshot(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "AX123", snapshot.FlightNumber)
	assert.Len(t, snapshot.TimelineEvents, 1)

	cached, err := engine.CachedSnapshot(ctx, f.ID)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, snapshot.FlightID, cached.FlightID)
	assert.Equal(t, snapshot.CurrentStatus, cached.CurrentStatus)
}

func TestCachedSnapshotMissReturnsNil(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)

	cached, err := engine.CachedSnapshot(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestTakeSnapshotUnknownFlight(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)

	_, err := engine.TakeSnapshot(context.Background(), uuid.New())
	assert.ErrorIs(t, err, flight.ErrNotFound)
}

func TestUpdateFlightStatePersistsAndInvalidates(t *testing.T) {
	f := snapshotFlight()
	engine, flights, _ := newTestEngine(t, f)
	ctx := context.Background()

	_, err := engine.TakeSnapshot(ctx, f.ID)
	require.NoError(t, err)

	require.NoError(t, engine.UpdateFlightState(ctx, f.ID, "boarding"))

	got, err := flights.GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "boarding", got.Status)

	// Snapshot invalidated by the state change.
	cached, err := engine.CachedSnapshot(ctx, f.ID)
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestStreamStateUpdatesDeliversPublishedChanges(t *testing.T) {
	f := snapshotFlight()
	engine, _, _ := newTestEngine(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := engine.StreamStateUpdates(ctx)
	// Give the subscriber a moment to attach before publishing.
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, engine.UpdateFlightState(ctx, f.ID, "departed"))

	select {
	case upd := <-stream:
		assert.Equal(t, f.ID, upd.FlightID)
		assert.Equal(t, "departed", upd.State)
	case <-time.After(2 * time.Second):
		t.Fatal("no state update received")
	}
}
