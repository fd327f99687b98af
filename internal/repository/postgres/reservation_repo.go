package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"parkside/internal/billing"
	"parkside/internal/db"
	"parkside/internal/errors"
	"parkside/internal/repository"
)

type reservationRepository struct {
	db *sql.DB
}

func NewReservationRepository(database *sql.DB) repository.ReservationRepository {
	return &reservationRepository{db: database}
}

func (r *reservationRepository) BookSpot(ctx context.Context, lotID int, res *db.Reservation) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM parking_lots WHERE id = $1`, lotID).Scan(&exists)
		if err != nil {
			if stderrors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("lot %d: %w", lotID, errors.ErrNotFound)
			}
			return fmt.Errorf("checking lot: %w", err)
		}

		// Lowest id wins; the row lock serializes concurrent bookings on
		// the same spot.
		var spotID int
		err = tx.QueryRowContext(ctx, `
			SELECT id FROM parking_spots
			WHERE lot_id = $1 AND status = $2 AND is_active
			ORDER BY id
			LIMIT 1
			FOR UPDATE`, lotID, db.SpotAvailable).Scan(&spotID)
		if err != nil {
			if stderrors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("lot %d: %w", lotID, errors.ErrNoAvailableSpot)
			}
			return fmt.Errorf("selecting spot: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE parking_spots SET status = $1, updated_on = $2 WHERE id = $3`,
			db.SpotOccupied, res.StartTime, spotID); err != nil {
			return fmt.Errorf("occupying spot %d: %w", spotID, err)
		}

		res.SpotID = spotID
		err = tx.QueryRowContext(ctx, `
			INSERT INTO reservations (code, user_id, spot_id, vehicle_plate, status, start_time)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			res.Code, res.UserID, res.SpotID, res.VehiclePlate, res.Status, res.StartTime,
		).Scan(&res.ID)
		if err != nil {
			return fmt.Errorf("inserting reservation: %w", err)
		}
		return nil
	})
}

const reservationColumns = `id, code, user_id, spot_id, vehicle_plate, status, start_time, end_time, final_cost`

func scanReservation(row interface{ Scan(...any) error }) (*db.Reservation, error) {
	var res db.Reservation
	var end sql.NullTime
	var cost sql.NullFloat64
	err := row.Scan(&res.ID, &res.Code, &res.UserID, &res.SpotID, &res.VehiclePlate,
		&res.Status, &res.StartTime, &end, &cost)
	if err != nil {
		return nil, err
	}
	if end.Valid {
		t := end.Time.In(time.UTC)
		res.EndTime = &t
	}
	if cost.Valid {
		c := cost.Float64
		res.FinalCost = &c
	}
	res.StartTime = res.StartTime.In(time.UTC)
	return &res, nil
}

func (r *reservationRepository) ReservationByID(ctx context.Context, id int) (*db.Reservation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)
	res, err := scanReservation(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reservation %d: %w", id, errors.ErrNotFound)
		}
		return nil, fmt.Errorf("querying reservation: %w", err)
	}
	return res, nil
}

func (r *reservationRepository) ReservationByCode(ctx context.Context, code string) (*db.Reservation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE code = $1`, code)
	res, err := scanReservation(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reservation %q: %w", code, errors.ErrNotFound)
		}
		return nil, fmt.Errorf("querying reservation: %w", err)
	}
	return res, nil
}

func (r *reservationRepository) ReleaseActive(ctx context.Context, reservationID int, end time.Time, status string) (*db.Reservation, error) {
	var released *db.Reservation
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		released, err = releaseLocked(ctx, tx, reservationID, end, status)
		return err
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

func (r *reservationRepository) ReleaseActiveBySpot(ctx context.Context, spotID int, end time.Time, status string) (*db.Reservation, error) {
	var released *db.Reservation
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM parking_spots WHERE id = $1`, spotID).Scan(&exists)
		if err != nil {
			if stderrors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("spot %d: %w", spotID, errors.ErrNotFound)
			}
			return fmt.Errorf("checking spot: %w", err)
		}

		rows, err := tx.QueryContext(ctx, `
			SELECT id FROM reservations
			WHERE spot_id = $1 AND status = $2
			FOR UPDATE`, spotID, db.ReservationActive)
		if err != nil {
			return fmt.Errorf("locking active reservations: %w", err)
		}
		var ids []int
		for rows.Next() {
			var id int
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("scanning reservation id: %w", err)
			}
			ids = append(ids, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating active reservations: %w", err)
		}

		switch {
		case len(ids) == 0:
			return fmt.Errorf("spot %d: %w", spotID, errors.ErrNoActiveReservation)
		case len(ids) > 1:
			return fmt.Errorf("spot %d has %d active reservations: %w", spotID, len(ids), errors.ErrDataIntegrity)
		}

		released, err = releaseLocked(ctx, tx, ids[0], end, status)
		return err
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

// releaseLocked performs the terminal transition. It runs inside the
// caller's transaction so the rate read, cost computation and both status
// flips commit or roll back together.
func releaseLocked(ctx context.Context, tx *sql.Tx, reservationID int, end time.Time, status string) (*db.Reservation, error) {
	var res db.Reservation
	var spotActive bool
	var rate float64
	err := tx.QueryRowContext(ctx, `
		SELECT r.id, r.code, r.user_id, r.spot_id, r.vehicle_plate, r.status, r.start_time,
		       s.is_active, l.price_per_hour
		FROM reservations r
		JOIN parking_spots s ON s.id = r.spot_id
		JOIN parking_lots l ON l.id = s.lot_id
		WHERE r.id = $1
		FOR UPDATE OF r, s`, reservationID).Scan(
		&res.ID, &res.Code, &res.UserID, &res.SpotID, &res.VehiclePlate,
		&res.Status, &res.StartTime, &spotActive, &rate)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reservation %d: %w", reservationID, errors.ErrNotFound)
		}
		return nil, fmt.Errorf("locking reservation: %w", err)
	}
	if res.Status != db.ReservationActive {
		return nil, fmt.Errorf("reservation %d is %s: %w", reservationID, res.Status, errors.ErrAlreadyReleased)
	}

	res.StartTime = res.StartTime.In(time.UTC)
	cost := billing.Cost(res.StartTime, end, rate)
	if _, err := tx.ExecContext(ctx, `
		UPDATE reservations SET status = $1, end_time = $2, final_cost = $3 WHERE id = $4`,
		status, end, cost, res.ID); err != nil {
		return nil, fmt.Errorf("updating reservation: %w", err)
	}

	// A spot pulled out of service while occupied stays in maintenance.
	spotStatus := db.SpotAvailable
	if !spotActive {
		spotStatus = db.SpotMaintenance
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE parking_spots SET status = $1, updated_on = $2 WHERE id = $3`,
		spotStatus, end, res.SpotID); err != nil {
		return nil, fmt.Errorf("freeing spot %d: %w", res.SpotID, err)
	}

	res.Status = status
	res.EndTime = &end
	res.FinalCost = &cost
	return &res, nil
}

func (r *reservationRepository) ListReservations(ctx context.Context, filter repository.ReservationFilter) ([]db.Reservation, error) {
	query := strings.Builder{}
	query.WriteString(`
		SELECT r.id, r.code, r.user_id, r.spot_id, r.vehicle_plate, r.status, r.start_time, r.end_time, r.final_cost
		FROM reservations r
		JOIN users u ON u.id = r.user_id`)

	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != "" {
		conds = append(conds, "r.status = "+arg(filter.Status))
	}
	if filter.From != nil {
		conds = append(conds, "r.start_time >= "+arg(*filter.From))
	}
	if filter.To != nil {
		conds = append(conds, "r.start_time <= "+arg(*filter.To))
	}
	if filter.UserID != 0 {
		conds = append(conds, "r.user_id = "+arg(filter.UserID))
	}
	if filter.Search != "" {
		pattern := arg("%" + filter.Search + "%")
		conds = append(conds, fmt.Sprintf(
			"(r.vehicle_plate ILIKE %s OR u.email ILIKE %s OR u.full_name ILIKE %s)",
			pattern, pattern, pattern))
	}
	if len(conds) > 0 {
		query.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	query.WriteString(" ORDER BY r.start_time DESC")

	rows, err := r.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("listing reservations: %w", err)
	}
	defer rows.Close()

	var reservations []db.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning reservation: %w", err)
		}
		reservations = append(reservations, *res)
	}
	return reservations, rows.Err()
}

func (r *reservationRepository) ActiveIDsOlderThan(ctx context.Context, cutoff time.Time) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM reservations WHERE status = $1 AND start_time < $2 ORDER BY id`,
		db.ReservationActive, cutoff)
	if err != nil {
		return nil, fmt.Errorf("querying overdue reservations: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning reservation id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
