package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"flighttrack/internal/domain/update"
)

type UpdateRepository struct {
	pool *pgxpool.Pool
}

func NewUpdateRepository(pool *pgxpool.Pool) *UpdateRepository {
	return &UpdateRepository{pool: pool}
}

func (r *UpdateRepository) Save(ctx context.Context, u *update.FlightUpdate) error {
	const sql = `
		INSERT INTO flight_updates
			(id, flight_id, flight_number, airport_code, provider, type, status,
			 departure_at, arrival_at, gate, raw_payload, processed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.pool.Exec(ctx, sql,
		u.ID, u.FlightID, nullIfEmpty(u.FlightNumber), nullIfEmpty(u.AirportCode),
		u.Provider, string(u.Type), nullIfEmpty(u.Status),
		u.DepartureAt, u.ArrivalAt, nullIfEmpty(u.Gate),
		string(u.RawPayload), u.Processed, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert flight update: %w", err)
	}
	return nil
}

// ListByFlight returns the persisted updates for a flight, newest first.
func (r *UpdateRepository) ListByFlight(ctx context.Context, flightID uuid.UUID) ([]*update.FlightUpdate, error) {
	const sql = `
		SELECT
			id, flight_id,
			COALESCE(flight_number, ''),
			COALESCE(airport_code, ''),
			provider, type,
			COALESCE(status, ''),
			departure_at, arrival_at,
			COALESCE(gate, ''),
			raw_payload, processed, created_at
		FROM flight_updates
		WHERE flight_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, sql, flightID)
	if err != nil {
		return nil, fmt.Errorf("query flight updates: %w", err)
	}
	defer rows.Close()

	var updates []*update.FlightUpdate
	for rows.Next() {
		u := &update.FlightUpdate{}
		var typ, raw string
		if err := rows.Scan(&u.ID, &u.FlightID, &u.FlightNumber, &u.AirportCode,
			&u.Provider, &typ, &u.Status, &u.DepartureAt, &u.ArrivalAt,
			&u.Gate, &raw, &u.Processed, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan flight update: %w", err)
		}
		u.Type = update.Type(typ)
		u.RawPayload = []byte(raw)
		updates = append(updates, u)
	}
	return updates, rows.Err()
}
