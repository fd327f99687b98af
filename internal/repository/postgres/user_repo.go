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

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(database *sql.DB) repository.UserRepository {
	return &userRepository{db: database}
}

func (r *userRepository) CreateUser(ctx context.Context, user *db.User) error {
	now := time.Now().UTC()
	user.RegisteredOn = now
	user.UpdatedOn = now
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (full_name, email, password_hash, phone, is_admin, registered_on, updated_on)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id`,
		user.FullName, user.Email, user.PasswordHash, user.Phone, user.IsAdmin, now,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err, "users_email_key") {
			return fmt.Errorf("email %q: %w", user.Email, errors.ErrDuplicateEmail)
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

const userColumns = `id, full_name, email, password_hash, phone, is_admin, address_id, registered_on, updated_on`

func scanUser(row *sql.Row) (*db.User, error) {
	var user db.User
	var addressID sql.NullInt64
	err := row.Scan(&user.ID, &user.FullName, &user.Email, &user.PasswordHash,
		&user.Phone, &user.IsAdmin, &addressID, &user.RegisteredOn, &user.UpdatedOn)
	if err != nil {
		return nil, err
	}
	if addressID.Valid {
		id := int(addressID.Int64)
		user.AddressID = &id
	}
	return &user, nil
}

func (r *userRepository) UserByEmail(ctx context.Context, email string) (*db.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %q: %w", email, errors.ErrNotFound)
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return user, nil
}

func (r *userRepository) UserByID(ctx context.Context, id int) (*db.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", id, errors.ErrNotFound)
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return user, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, user *db.User) error {
	user.UpdatedOn = time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET full_name = $1, email = $2, phone = $3, password_hash = $4, updated_on = $5
		WHERE id = $6`,
		user.FullName, user.Email, user.Phone, user.PasswordHash, user.UpdatedOn, user.ID)
	if err != nil {
		if isUniqueViolation(err, "users_email_key") {
			return fmt.Errorf("email %q: %w", user.Email, errors.ErrDuplicateEmail)
		}
		return fmt.Errorf("updating user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("user %d: %w", user.ID, errors.ErrNotFound)
	}
	return nil
}

func (r *userRepository) AddVehicle(ctx context.Context, vehicle *db.Vehicle) error {
	vehicle.RegisteredOn = time.Now().UTC()
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO vehicles (user_id, plate_number, vehicle_type, color, registered_on)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		vehicle.UserID, vehicle.PlateNumber, vehicle.VehicleType, vehicle.Color, vehicle.RegisteredOn,
	).Scan(&vehicle.ID)
	if err != nil {
		return fmt.Errorf("inserting vehicle: %w", err)
	}
	return nil
}

func (r *userRepository) VehiclesByUser(ctx context.Context, userID int) ([]db.Vehicle, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, plate_number, vehicle_type, color, registered_on
		FROM vehicles WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []db.Vehicle
	for rows.Next() {
		var v db.Vehicle
		if err := rows.Scan(&v.ID, &v.UserID, &v.PlateNumber, &v.VehicleType, &v.Color, &v.RegisteredOn); err != nil {
			return nil, fmt.Errorf("scanning vehicle: %w", err)
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

func (r *userRepository) UpsertAddress(ctx context.Context, userID int, addr *db.Address) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var addressID sql.NullInt64
		err := tx.QueryRowContext(ctx,
			`SELECT address_id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&addressID)
		if err != nil {
			if stderrors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("user %d: %w", userID, errors.ErrNotFound)
			}
			return fmt.Errorf("locking user: %w", err)
		}

		if addressID.Valid {
			addr.ID = int(addressID.Int64)
			if _, err := tx.ExecContext(ctx, `
				UPDATE addresses SET line = $1, city = $2, state = $3, pincode = $4, landmark = $5
				WHERE id = $6`,
				addr.Line, addr.City, addr.State, addr.Pincode, addr.Landmark, addr.ID); err != nil {
				return fmt.Errorf("updating address: %w", err)
			}
			return nil
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO addresses (line, city, state, pincode, landmark)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			addr.Line, addr.City, addr.State, addr.Pincode, addr.Landmark,
		).Scan(&addr.ID)
		if err != nil {
			return fmt.Errorf("inserting address: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET address_id = $1, updated_on = $2 WHERE id = $3`,
			addr.ID, time.Now().UTC(), userID); err != nil {
			return fmt.Errorf("linking address: %w", err)
		}
		return nil
	})
}
