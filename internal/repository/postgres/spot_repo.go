package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"parkside/internal/db"
	"parkside/internal/errors"
	"parkside/internal/repository"
)

type spotRepository struct {
	db *sql.DB
}

func NewSpotRepository(database *sql.DB) repository.SpotRepository {
	return &spotRepository{db: database}
}

func (r *spotRepository) AddSpot(ctx context.Context, spot *db.ParkingSpot) error {
	now := time.Now().UTC()
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM parking_lots WHERE id = $1 FOR UPDATE`, spot.LotID).Scan(&exists)
		if err != nil {
			if stderrors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("lot %d: %w", spot.LotID, errors.ErrNotFound)
			}
			return fmt.Errorf("locking lot: %w", err)
		}

		spot.CreatedOn = now
		spot.UpdatedOn = now
		err = tx.QueryRowContext(ctx, `
			INSERT INTO parking_spots (lot_id, label, status, is_active, created_on, updated_on)
			VALUES ($1, $2, $3, $4, $5, $5)
			RETURNING id`,
			spot.LotID, spot.Label, spot.Status, spot.IsActive, now,
		).Scan(&spot.ID)
		if err != nil {
			if isUniqueViolation(err, "parking_spots_lot_id_label_key") {
				return fmt.Errorf("label %q in lot %d: %w", spot.Label, spot.LotID, errors.ErrDuplicateLabel)
			}
			return fmt.Errorf("inserting spot: %w", err)
		}

		// Keep the configured capacity equal to the actual spot count.
		if _, err := tx.ExecContext(ctx, `
			UPDATE parking_lots SET max_spots = max_spots + 1, updated_on = $1 WHERE id = $2`,
			now, spot.LotID); err != nil {
			return fmt.Errorf("incrementing lot capacity: %w", err)
		}
		return nil
	})
}

func (r *spotRepository) GetSpot(ctx context.Context, id int) (*db.ParkingSpot, error) {
	var spot db.ParkingSpot
	err := r.db.QueryRowContext(ctx, `
		SELECT id, lot_id, label, status, is_active, created_on, updated_on
		FROM parking_spots WHERE id = $1`, id).Scan(
		&spot.ID, &spot.LotID, &spot.Label, &spot.Status, &spot.IsActive, &spot.CreatedOn, &spot.UpdatedOn)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("spot %d: %w", id, errors.ErrNotFound)
		}
		return nil, fmt.Errorf("querying spot: %w", err)
	}
	return &spot, nil
}

func (r *spotRepository) ListSpots(ctx context.Context, lotID int, status string) ([]db.ParkingSpot, error) {
	query := `
		SELECT id, lot_id, label, status, is_active, created_on, updated_on
		FROM parking_spots WHERE lot_id = $1`
	args := []any{lotID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing spots: %w", err)
	}
	defer rows.Close()

	var spots []db.ParkingSpot
	for rows.Next() {
		var spot db.ParkingSpot
		if err := rows.Scan(&spot.ID, &spot.LotID, &spot.Label, &spot.Status,
			&spot.IsActive, &spot.CreatedOn, &spot.UpdatedOn); err != nil {
			return nil, fmt.Errorf("scanning spot: %w", err)
		}
		spots = append(spots, spot)
	}
	return spots, rows.Err()
}

func (r *spotRepository) UpdateSpot(ctx context.Context, spot *db.ParkingSpot) error {
	spot.UpdatedOn = time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
		UPDATE parking_spots SET label = $1, status = $2, is_active = $3, updated_on = $4
		WHERE id = $5`,
		spot.Label, spot.Status, spot.IsActive, spot.UpdatedOn, spot.ID)
	if err != nil {
		if isUniqueViolation(err, "parking_spots_lot_id_label_key") {
			return fmt.Errorf("label %q in lot %d: %w", spot.Label, spot.LotID, errors.ErrDuplicateLabel)
		}
		return fmt.Errorf("updating spot: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("spot %d: %w", spot.ID, errors.ErrNotFound)
	}
	return nil
}

func (r *spotRepository) RemoveSpot(ctx context.Context, spotID int) error {
	now := time.Now().UTC()
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var lotID int
		err := tx.QueryRowContext(ctx,
			`SELECT lot_id FROM parking_spots WHERE id = $1 FOR UPDATE`, spotID).Scan(&lotID)
		if err != nil {
			if stderrors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("spot %d: %w", spotID, errors.ErrNotFound)
			}
			return fmt.Errorf("locking spot: %w", err)
		}

		var reserved bool
		err = tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM reservations WHERE spot_id = $1)`, spotID).Scan(&reserved)
		if err != nil {
			return fmt.Errorf("checking reservation history: %w", err)
		}
		if reserved {
			return fmt.Errorf("spot %d: %w", spotID, errors.ErrHasReservationHistory)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM parking_spots WHERE id = $1`, spotID); err != nil {
			return fmt.Errorf("deleting spot: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE parking_lots SET max_spots = max_spots - 1, updated_on = $1 WHERE id = $2`,
			now, lotID); err != nil {
			return fmt.Errorf("decrementing lot capacity: %w", err)
		}
		return nil
	})
}
