package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"flighttrack/internal/domain/schedule"
)

type ScheduleRepository struct {
	pool *pgxpool.Pool
}

func NewScheduleRepository(pool *pgxpool.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

func (r *ScheduleRepository) Create(ctx context.Context, s *schedule.Schedule) error {
	const sql = `
		INSERT INTO flight_update_schedules
			(id, flight_id, airport_code, provider, interval_seconds, enabled, next_run_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, sql,
		s.ID, s.FlightID, nullIfEmpty(s.AirportCode), s.Provider,
		s.IntervalSeconds, s.Enabled, s.NextRunAt, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

func (r *ScheduleRepository) ListEnabled(ctx context.Context) ([]*schedule.Schedule, error) {
	const sql = `
		SELECT
			id, flight_id,
			COALESCE(airport_code, ''),
			provider, interval_seconds, enabled, next_run_at, created_at
		FROM flight_update_schedules
		WHERE enabled = TRUE
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("query enabled schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*schedule.Schedule
	for rows.Next() {
		s := &schedule.Schedule{}
		if err := rows.Scan(&s.ID, &s.FlightID, &s.AirportCode, &s.Provider,
			&s.IntervalSeconds, &s.Enabled, &s.NextRunAt, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

func (r *ScheduleRepository) Update(ctx context.Context, s *schedule.Schedule) error {
	const sql = `
		UPDATE flight_update_schedules
		SET enabled = $2, next_run_at = $3
		WHERE id = $1
	`

	cmdTag, err := r.pool.Exec(ctx, sql, s.ID, s.Enabled, s.NextRunAt)
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("schedule %s not found", s.ID)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
