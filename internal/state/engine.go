package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"flighttrack/internal/domain/flight"
	domain "flighttrack/internal/domain/timeline"
)

const (
	snapshotTTL   = time.Hour
	stateChannel  = "flight:state:updates"
	snapshotKeyFx = "flight:snapshot:%s"
)

// TimelineSource produces the current timeline for a flight. The timeline
// generator satisfies it; there is no persisted timeline store.
type TimelineSource interface {
	GenerateTimeline(ctx context.Context, flightID uuid.UUID) ([]domain.Event, error)
}

// Snapshot is a point-in-time cached summary of a flight's state.
type Snapshot struct {
	FlightID       uuid.UUID      `json:"flight_id"`
	FlightNumber   string         `json:"flight_number"`
	CurrentStatus  string         `json:"current_status"`
	DepartureTime  time.Time      `json:"departure_time"`
	ArrivalTime    time.Time      `json:"arrival_time"`
	TimelineEvents []domain.Event `json:"timeline_events"`
	Timestamp      time.Time      `json:"timestamp"`
}

// StateUpdate is the message published when a flight's status changes.
type StateUpdate struct {
	FlightID  uuid.UUID `json:"flight_id"`
	State     string    `json:"state"`
	Timestamp time.Time `json:"timestamp"`
}

// Engine distributes flight state through a write-through snapshot cache and
// a pub/sub channel. The timeline and ingestion cores work without it; it is
// an optimization layer for readers.
type Engine struct {
	redis    *redis.Client
	flights  flight.Repository
	timeline TimelineSource
}

func NewEngine(redisClient *redis.Client, flights flight.Repository, timeline TimelineSource) *Engine {
	return &Engine{
		redis:    redisClient,
		flights:  flights,
		timeline: timeline,
	}
}

// TakeSnapshot builds a fresh snapshot for a flight and caches it.
func (e *Engine) TakeSnapshot(ctx context.Context, flightID uuid.UUID) (*Snapshot, error) {
	f, err := e.flights.GetByID(ctx, flightID)
	if err != nil {
		return nil, fmt.Errorf("get flight %s: %w", flightID, err)
	}

	events, err := e.timeline.GenerateTimeline(ctx, flightID)
	if err != nil {
		return nil, fmt.Errorf("generate timeline for %s: %w", flightID, err)
	}

	snapshot := &Snapshot{
		FlightID:       flightID,
		FlightNumber:   f.Number,
		CurrentStatus:  f.Status,
		DepartureTime:  f.DepartureAt,
		ArrivalTime:    f.ArrivalAt,
		TimelineEvents: events,
		Timestamp:      time.Now().UTC(),
	}

	if err := e.cacheSnapshot(ctx, snapshot); err != nil {
		// The snapshot itself is still good; a cache write failure only
		// costs the next reader a rebuild.
		slog.Error("failed to cache snapshot", "flight_id", flightID, "error", err)
	}
	return snapshot, nil
}

func (e *Engine) cacheSnapshot(ctx context.Context, snapshot *Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	key := fmt.Sprintf(snapshotKeyFx, snapshot.FlightID)
	if err := e.redis.Set(ctx, key, data, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("cache snapshot: %w", err)
	}
	return nil
}

// CachedSnapshot returns the cached snapshot for a flight, or nil when the
// cache holds none.
func (e *Engine) CachedSnapshot(ctx context.Context, flightID uuid.UUID) (*Snapshot, error) {
	key := fmt.Sprintf(snapshotKeyFx, flightID)
	data, err := e.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snapshot, nil
}

// UpdateFlightState persists a status change, publishes it on the state
// channel, and invalidates the cached snapshot.
func (e *Engine) UpdateFlightState(ctx context.Context, flightID uuid.UUID, status string) error {
	if err := e.flights.UpdateStatus(ctx, flightID, status); err != nil {
		return fmt.Errorf("update flight status: %w", err)
	}

	msg := StateUpdate{FlightID: flightID, State: status, Timestamp: time.Now().UTC()}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal state update: %w", err)
	}
	if err := e.redis.Publish(ctx, stateChannel, data).Err(); err != nil {
		return fmt.Errorf("publish state update: %w", err)
	}

	key := fmt.Sprintf(snapshotKeyFx, flightID)
	if err := e.redis.Del(ctx, key).Err(); err != nil {
		slog.Error("failed to invalidate snapshot", "flight_id", flightID, "error", err)
	}

	slog.Info("flight state updated", "flight_id", flightID, "status", status)
	return nil
}

// StreamStateUpdates subscribes to the state channel and delivers decoded
// updates until ctx is cancelled.
func (e *Engine) StreamStateUpdates(ctx context.Context) <-chan StateUpdate {
	out := make(chan StateUpdate)
	sub := e.redis.Subscribe(ctx, stateChannel)

	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var upd StateUpdate
				if err := json.Unmarshal([]byte(msg.Payload), &upd); err != nil {
					slog.Error("failed to decode state update", "error", err)
					continue
				}
				out <- upd
			}
		}
	}()

	return out
}
