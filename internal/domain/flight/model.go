package flight

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a flight id or number resolves to nothing.
var ErrNotFound = errors.New("flight not found")

type Flight struct {
	ID                 uuid.UUID `json:"id"`
	Number             string    `json:"number"`
	Origin             string    `json:"origin"`
	Destination        string    `json:"destination"`
	DepartureAt        time.Time `json:"departure_at"`
	ArrivalAt          time.Time `json:"arrival_at"`
	Status             string    `json:"status"`
	AircraftType       string    `json:"aircraft_type"`
	ScheduledDeparture time.Time `json:"scheduled_departure"`
	ScheduledArrival   time.Time `json:"scheduled_arrival"`
	DepartureAirport   string    `json:"departure_airport"`
	ArrivalAirport     string    `json:"arrival_airport"`
}

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Flight, error)
	GetByNumber(ctx context.Context, number string) (*Flight, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}
