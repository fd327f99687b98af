package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"parkside/internal/db"
	"parkside/internal/errors"
	"parkside/internal/repository"
)

type lotRepository struct {
	db *sql.DB
}

func NewLotRepository(database *sql.DB) repository.LotRepository {
	return &lotRepository{db: database}
}

func (r *lotRepository) CreateLot(ctx context.Context, lot *db.ParkingLot, addr *db.Address) error {
	now := time.Now().UTC()
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO addresses (line, city, state, pincode, landmark)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			addr.Line, addr.City, addr.State, addr.Pincode, addr.Landmark,
		).Scan(&addr.ID)
		if err != nil {
			return fmt.Errorf("inserting address: %w", err)
		}

		lot.AddressID = addr.ID
		lot.CreatedOn = now
		lot.UpdatedOn = now
		err = tx.QueryRowContext(ctx, `
			INSERT INTO parking_lots (name, price_per_hour, max_spots, address_id, created_on, updated_on)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			lot.Name, lot.PricePerHour, lot.MaxSpots, lot.AddressID, lot.CreatedOn, lot.UpdatedOn,
		).Scan(&lot.ID)
		if err != nil {
			return fmt.Errorf("inserting lot: %w", err)
		}

		for i := 1; i <= lot.MaxSpots; i++ {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO parking_spots (lot_id, label, status, is_active, created_on, updated_on)
				VALUES ($1, $2, $3, TRUE, $4, $4)`,
				lot.ID, strconv.Itoa(i), db.SpotAvailable, now); err != nil {
				return fmt.Errorf("inserting spot %d: %w", i, err)
			}
		}
		return nil
	})
}

func (r *lotRepository) GetLot(ctx context.Context, id int) (*db.ParkingLot, error) {
	var lot db.ParkingLot
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, price_per_hour, max_spots, address_id, created_on, updated_on
		FROM parking_lots WHERE id = $1`, id).Scan(
		&lot.ID, &lot.Name, &lot.PricePerHour, &lot.MaxSpots, &lot.AddressID, &lot.CreatedOn, &lot.UpdatedOn)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("lot %d: %w", id, errors.ErrNotFound)
		}
		return nil, fmt.Errorf("querying lot: %w", err)
	}
	return &lot, nil
}

func (r *lotRepository) UpdateLot(ctx context.Context, lot *db.ParkingLot) error {
	lot.UpdatedOn = time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
		UPDATE parking_lots SET name = $1, price_per_hour = $2, updated_on = $3 WHERE id = $4`,
		lot.Name, lot.PricePerHour, lot.UpdatedOn, lot.ID)
	if err != nil {
		return fmt.Errorf("updating lot: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("lot %d: %w", lot.ID, errors.ErrNotFound)
	}
	return nil
}

func (r *lotRepository) ListLots(ctx context.Context, search string) ([]db.ParkingLot, error) {
	query := `
		SELECT l.id, l.name, l.price_per_hour, l.max_spots, l.address_id, l.created_on, l.updated_on
		FROM parking_lots l`
	var args []any
	if search != "" {
		query += `
		JOIN addresses a ON a.id = l.address_id
		WHERE l.name ILIKE $1 OR a.line ILIKE $1 OR a.city ILIKE $1 OR a.pincode ILIKE $1`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY l.id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing lots: %w", err)
	}
	defer rows.Close()

	var lots []db.ParkingLot
	for rows.Next() {
		var lot db.ParkingLot
		if err := rows.Scan(&lot.ID, &lot.Name, &lot.PricePerHour, &lot.MaxSpots,
			&lot.AddressID, &lot.CreatedOn, &lot.UpdatedOn); err != nil {
			return nil, fmt.Errorf("scanning lot: %w", err)
		}
		lots = append(lots, lot)
	}
	return lots, rows.Err()
}

func (r *lotRepository) ListAvailability(ctx context.Context) ([]repository.LotAvailability, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT l.id, l.name, l.price_per_hour, l.max_spots, l.address_id, l.created_on, l.updated_on,
		       COUNT(s.id) FILTER (WHERE s.status = 'A') AS available,
		       COUNT(s.id) FILTER (WHERE s.status = 'O') AS occupied,
		       COUNT(s.id) FILTER (WHERE s.status = 'M') AS maintenance
		FROM parking_lots l
		LEFT JOIN parking_spots s ON s.lot_id = l.id
		GROUP BY l.id
		ORDER BY l.id`)
	if err != nil {
		return nil, fmt.Errorf("querying lot availability: %w", err)
	}
	defer rows.Close()

	var result []repository.LotAvailability
	for rows.Next() {
		var la repository.LotAvailability
		if err := rows.Scan(&la.Lot.ID, &la.Lot.Name, &la.Lot.PricePerHour, &la.Lot.MaxSpots,
			&la.Lot.AddressID, &la.Lot.CreatedOn, &la.Lot.UpdatedOn,
			&la.Available, &la.Occupied, &la.Maintenance); err != nil {
			return nil, fmt.Errorf("scanning lot availability: %w", err)
		}
		result = append(result, la)
	}
	return result, rows.Err()
}

func (r *lotRepository) ResizeLot(ctx context.Context, lotID, newCapacity int) error {
	now := time.Now().UTC()
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		// Lock the lot row so concurrent add/remove/resize serialize on the
		// capacity counter.
		var maxSpots int
		err := tx.QueryRowContext(ctx,
			`SELECT max_spots FROM parking_lots WHERE id = $1 FOR UPDATE`, lotID).Scan(&maxSpots)
		if err != nil {
			if stderrors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("lot %d: %w", lotID, errors.ErrNotFound)
			}
			return fmt.Errorf("locking lot: %w", err)
		}

		var current int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM parking_spots WHERE lot_id = $1`, lotID).Scan(&current); err != nil {
			return fmt.Errorf("counting spots: %w", err)
		}

		switch {
		case newCapacity > current:
			for i := current + 1; i <= newCapacity; i++ {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO parking_spots (lot_id, label, status, is_active, created_on, updated_on)
					VALUES ($1, $2, $3, TRUE, $4, $4)`,
					lotID, strconv.Itoa(i), db.SpotAvailable, now); err != nil {
					return fmt.Errorf("inserting spot %d: %w", i, err)
				}
			}
		case newCapacity < current:
			need := current - newCapacity
			// Only spots that are available and were never reserved may
			// go; newest first.
			rows, err := tx.QueryContext(ctx, `
				SELECT s.id FROM parking_spots s
				WHERE s.lot_id = $1 AND s.status = $2
				  AND NOT EXISTS (SELECT 1 FROM reservations r WHERE r.spot_id = s.id)
				ORDER BY s.id DESC
				LIMIT $3
				FOR UPDATE`, lotID, db.SpotAvailable, need)
			if err != nil {
				return fmt.Errorf("selecting removable spots: %w", err)
			}
			var ids []int
			for rows.Next() {
				var id int
				if err := rows.Scan(&id); err != nil {
					rows.Close()
					return fmt.Errorf("scanning spot id: %w", err)
				}
				ids = append(ids, id)
			}
			rows.Close()
			if err := rows.Err(); err != nil {
				return fmt.Errorf("iterating removable spots: %w", err)
			}
			if len(ids) < need {
				return fmt.Errorf("lot %d: need %d removable spots, found %d: %w",
					lotID, need, len(ids), errors.ErrCannotShrink)
			}
			for _, id := range ids {
				if _, err := tx.ExecContext(ctx,
					`DELETE FROM parking_spots WHERE id = $1`, id); err != nil {
					return fmt.Errorf("deleting spot %d: %w", id, err)
				}
			}
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE parking_lots SET max_spots = $1, updated_on = $2 WHERE id = $3`,
			newCapacity, now, lotID); err != nil {
			return fmt.Errorf("updating lot capacity: %w", err)
		}
		return nil
	})
}

func (r *lotRepository) DeleteLot(ctx context.Context, lotID int) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM parking_lots WHERE id = $1 FOR UPDATE`, lotID).Scan(&exists)
		if err != nil {
			if stderrors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("lot %d: %w", lotID, errors.ErrNotFound)
			}
			return fmt.Errorf("locking lot: %w", err)
		}

		var reserved bool
		err = tx.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM reservations r
				JOIN parking_spots s ON s.id = r.spot_id
				WHERE s.lot_id = $1)`, lotID).Scan(&reserved)
		if err != nil {
			return fmt.Errorf("checking reservation history: %w", err)
		}
		if reserved {
			return fmt.Errorf("lot %d: %w", lotID, errors.ErrHasReservationHistory)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM parking_spots WHERE lot_id = $1`, lotID); err != nil {
			return fmt.Errorf("deleting spots: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM parking_lots WHERE id = $1`, lotID); err != nil {
			return fmt.Errorf("deleting lot: %w", err)
		}
		return nil
	})
}
