package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"parkside/internal/db"
	"parkside/internal/repository"
)

type reportRepository struct {
	db *sql.DB
}

// NewReportRepository returns the read-only aggregation side. Its queries
// run outside the engine's transactions; dashboard numbers may trail the
// authoritative state by a moment.
func NewReportRepository(database *sql.DB) repository.ReportRepository {
	return &reportRepository{db: database}
}

func (r *reportRepository) AdminCounts(ctx context.Context) (*repository.AdminCounts, error) {
	var counts repository.AdminCounts
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users WHERE NOT is_admin),
			(SELECT COUNT(*) FROM parking_lots),
			(SELECT COUNT(*) FROM parking_spots),
			(SELECT COUNT(*) FROM reservations WHERE status = $1)`,
		db.ReservationActive,
	).Scan(&counts.Users, &counts.Lots, &counts.Spots, &counts.ActiveReservations)
	if err != nil {
		return nil, fmt.Errorf("querying admin counts: %w", err)
	}
	return &counts, nil
}

func (r *reportRepository) SpotStatusCounts(ctx context.Context) (*repository.SpotStatusCounts, error) {
	var counts repository.SpotStatusCounts
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'A'),
			COUNT(*) FILTER (WHERE status = 'O'),
			COUNT(*) FILTER (WHERE status = 'M')
		FROM parking_spots`,
	).Scan(&counts.Available, &counts.Occupied, &counts.Maintenance)
	if err != nil {
		return nil, fmt.Errorf("querying spot status counts: %w", err)
	}
	return &counts, nil
}

func (r *reportRepository) RevenueByDay(ctx context.Context, from, to time.Time) ([]repository.DayRevenue, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT date_trunc('day', end_time) AS day, COALESCE(SUM(final_cost), 0)
		FROM reservations
		WHERE end_time >= $1 AND end_time < $2 AND final_cost IS NOT NULL
		GROUP BY day
		ORDER BY day`, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying revenue: %w", err)
	}
	defer rows.Close()

	var revenue []repository.DayRevenue
	for rows.Next() {
		var dr repository.DayRevenue
		if err := rows.Scan(&dr.Day, &dr.Revenue); err != nil {
			return nil, fmt.Errorf("scanning revenue row: %w", err)
		}
		dr.Day = dr.Day.In(time.UTC)
		revenue = append(revenue, dr)
	}
	return revenue, rows.Err()
}

func (r *reportRepository) UserStats(ctx context.Context, userID int) (*repository.UserStats, error) {
	var stats repository.UserStats
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE status = $3),
			COALESCE(SUM(final_cost), 0),
			COALESCE(SUM(EXTRACT(EPOCH FROM end_time - start_time) / 3600) FILTER (WHERE end_time IS NOT NULL), 0)
		FROM reservations
		WHERE user_id = $1`,
		userID, db.ReservationReleased, db.ReservationActive,
	).Scan(&stats.TotalBookings, &stats.Completed, &stats.Active, &stats.TotalSpent, &stats.TotalHours)
	if err != nil {
		return nil, fmt.Errorf("querying user stats: %w", err)
	}
	return &stats, nil
}
