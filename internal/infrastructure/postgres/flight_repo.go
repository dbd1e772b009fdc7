package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"flighttrack/internal/domain/flight"
)

type FlightRepository struct {
	pool *pgxpool.Pool
}

func NewFlightRepository(pool *pgxpool.Pool) *FlightRepository {
	return &FlightRepository{pool: pool}
}

const flightColumns = `
	id, number, origin, destination, departure_at, arrival_at, status,
	COALESCE(aircraft_type, ''),
	scheduled_departure, scheduled_arrival,
	COALESCE(departure_airport, ''),
	COALESCE(arrival_airport, '')
`

func (r *FlightRepository) GetByID(ctx context.Context, id uuid.UUID) (*flight.Flight, error) {
	sql := `SELECT ` + flightColumns + ` FROM flights WHERE id = $1`

	f, err := r.scanFlight(r.pool.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, flight.ErrNotFound
		}
		return nil, fmt.Errorf("get flight by id: %w", err)
	}
	return f, nil
}

func (r *FlightRepository) GetByNumber(ctx context.Context, number string) (*flight.Flight, error) {
	sql := `SELECT ` + flightColumns + ` FROM flights WHERE number = $1`

	f, err := r.scanFlight(r.pool.QueryRow(ctx, sql, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, flight.ErrNotFound
		}
		return nil, fmt.Errorf("get flight by number: %w", err)
	}
	return f, nil
}

func (r *FlightRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	const sql = `
		UPDATE flights
		SET status = $2
		WHERE id = $1
	`

	cmdTag, err := r.pool.Exec(ctx, sql, id, status)
	if err != nil {
		return fmt.Errorf("update flight status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return flight.ErrNotFound
	}
	return nil
}

func (r *FlightRepository) scanFlight(row pgx.Row) (*flight.Flight, error) {
	var f flight.Flight
	err := row.Scan(
		&f.ID, &f.Number, &f.Origin, &f.Destination,
		&f.DepartureAt, &f.ArrivalAt, &f.Status,
		&f.AircraftType,
		&f.ScheduledDeparture, &f.ScheduledArrival,
		&f.DepartureAirport, &f.ArrivalAirport,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
