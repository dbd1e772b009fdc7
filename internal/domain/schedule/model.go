package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Schedule is a recurring (or one-shot when IntervalSeconds <= 0) ingestion
// job targeting exactly one flight or one airport.
type Schedule struct {
	ID              uuid.UUID  `json:"id"`
	FlightID        *uuid.UUID `json:"flight_id,omitempty"`
	AirportCode     string     `json:"airport_code,omitempty"`
	Provider        string     `json:"provider"`
	IntervalSeconds int        `json:"interval_seconds"`
	Enabled         bool       `json:"enabled"`
	NextRunAt       *time.Time `json:"next_run_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Due reports whether the schedule should run at now. A nil NextRunAt means
// "due immediately".
func (s *Schedule) Due(now time.Time) bool {
	return s.NextRunAt == nil || !s.NextRunAt.After(now)
}

type Repository interface {
	Create(ctx context.Context, s *Schedule) error
	ListEnabled(ctx context.Context) ([]*Schedule, error)
	Update(ctx context.Context, s *Schedule) error
}
