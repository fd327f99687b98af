package repository

import (
	"context"
	"time"

	"parkside/internal/db"
)

// ReservationFilter enumerates the supported listing predicates. Zero values
// mean "no constraint"; set predicates are AND-combined. Search matches the
// vehicle plate, user email and user full name.
type ReservationFilter struct {
	Status string
	From   *time.Time
	To     *time.Time
	Search string
	UserID int
}

type LotAvailability struct {
	Lot         db.ParkingLot
	Available   int
	Occupied    int
	Maintenance int
}

type AdminCounts struct {
	Users              int
	Lots               int
	Spots              int
	ActiveReservations int
}

type SpotStatusCounts struct {
	Available   int
	Occupied    int
	Maintenance int
}

type DayRevenue struct {
	Day     time.Time
	Revenue float64
}

type UserStats struct {
	TotalBookings int
	Completed     int
	Active        int
	TotalSpent    float64
	TotalHours    float64
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *db.User) error
	UserByEmail(ctx context.Context, email string) (*db.User, error)
	UserByID(ctx context.Context, id int) (*db.User, error)
	UpdateProfile(ctx context.Context, user *db.User) error
	AddVehicle(ctx context.Context, vehicle *db.Vehicle) error
	VehiclesByUser(ctx context.Context, userID int) ([]db.Vehicle, error)
	UpsertAddress(ctx context.Context, userID int, addr *db.Address) error
}

type LotRepository interface {
	// CreateLot persists the address, the lot and its initial spots
	// (labeled "1".."MaxSpots", all available) in one transaction.
	CreateLot(ctx context.Context, lot *db.ParkingLot, addr *db.Address) error
	GetLot(ctx context.Context, id int) (*db.ParkingLot, error)
	UpdateLot(ctx context.Context, lot *db.ParkingLot) error
	ListLots(ctx context.Context, search string) ([]db.ParkingLot, error)
	ListAvailability(ctx context.Context) ([]LotAvailability, error)

	// ResizeLot grows by appending spots or shrinks by deleting spots that
	// are available and reservation-free. Fails with ErrCannotShrink when
	// fewer removable spots exist than the shrink requires; never removes
	// an occupied spot or one referenced by reservation history.
	ResizeLot(ctx context.Context, lotID, newCapacity int) error

	// DeleteLot cascades to the lot's spots, failing with
	// ErrHasReservationHistory if any spot was ever reserved.
	DeleteLot(ctx context.Context, lotID int) error
}

type SpotRepository interface {
	// AddSpot inserts the spot and increments the lot's capacity counter in
	// the same transaction. Fails with ErrDuplicateLabel on a label clash.
	AddSpot(ctx context.Context, spot *db.ParkingSpot) error
	GetSpot(ctx context.Context, id int) (*db.ParkingSpot, error)
	ListSpots(ctx context.Context, lotID int, status string) ([]db.ParkingSpot, error)
	UpdateSpot(ctx context.Context, spot *db.ParkingSpot) error

	// RemoveSpot deletes the spot and decrements the lot's capacity counter.
	// Spots touched by any reservation, historical included, are never
	// hard-deleted (ErrHasReservationHistory).
	RemoveSpot(ctx context.Context, spotID int) error
}

type ReservationRepository interface {
	// BookSpot atomically picks the available, in-service spot with the
	// lowest id in the lot, marks it occupied and inserts the reservation.
	// The caller fills Code, UserID, VehiclePlate, Status and StartTime;
	// SpotID and ID are set on success. Fails with ErrNotFound when the lot
	// does not exist and ErrNoAvailableSpot when the lot is full.
	BookSpot(ctx context.Context, lotID int, res *db.Reservation) error

	ReservationByID(ctx context.Context, id int) (*db.Reservation, error)
	ReservationByCode(ctx context.Context, code string) (*db.Reservation, error)

	// ReleaseActive terminates an active reservation: within one
	// transaction it locks the reservation and its spot, reads the lot
	// rate, computes the final cost, writes the terminal status and frees
	// the spot (a spot taken out of service stays in maintenance). Fails
	// with ErrAlreadyReleased when the reservation is not active.
	ReleaseActive(ctx context.Context, reservationID int, end time.Time, status string) (*db.Reservation, error)

	// ReleaseActiveBySpot is the administrative variant keyed by spot.
	// Fails with ErrNoActiveReservation when the spot has no active
	// reservation and ErrDataIntegrity when it has more than one.
	ReleaseActiveBySpot(ctx context.Context, spotID int, end time.Time, status string) (*db.Reservation, error)

	ListReservations(ctx context.Context, filter ReservationFilter) ([]db.Reservation, error)

	// ActiveIDsOlderThan feeds the expiry sweep.
	ActiveIDsOlderThan(ctx context.Context, cutoff time.Time) ([]int, error)
}

type ReportRepository interface {
	AdminCounts(ctx context.Context) (*AdminCounts, error)
	SpotStatusCounts(ctx context.Context) (*SpotStatusCounts, error)
	RevenueByDay(ctx context.Context, from, to time.Time) ([]DayRevenue, error)
	UserStats(ctx context.Context, userID int) (*UserStats, error)
}
