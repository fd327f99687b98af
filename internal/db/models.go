package db

import "time"

// Spot statuses. The reservation engine is the only writer of the
// Available/Occupied transition; Maintenance is set by admins.
const (
	SpotAvailable   = "A"
	SpotOccupied    = "O"
	SpotMaintenance = "M"
)

// Reservation statuses. Released and Expired are terminal.
const (
	ReservationActive   = "Active"
	ReservationReleased = "Released"
	ReservationExpired  = "Expired"
)

type User struct {
	ID           int
	FullName     string
	Email        string
	PasswordHash string
	Phone        string
	IsAdmin      bool
	AddressID    *int
	RegisteredOn time.Time
	UpdatedOn    time.Time
}

type Vehicle struct {
	ID           int
	UserID       int
	PlateNumber  string
	VehicleType  string
	Color        string
	RegisteredOn time.Time
}

type Address struct {
	ID       int
	Line     string
	City     string
	State    string
	Pincode  string
	Landmark string
}

type ParkingLot struct {
	ID           int
	Name         string
	PricePerHour float64
	// MaxSpots mirrors the actual spot count; add/remove/resize keep the two
	// in sync inside the same transaction.
	MaxSpots  int
	AddressID int
	CreatedOn time.Time
	UpdatedOn time.Time
}

type ParkingSpot struct {
	ID        int
	LotID     int
	Label     string
	Status    string
	IsActive  bool
	CreatedOn time.Time
	UpdatedOn time.Time
}

// Reservation binds a user to a spot for a time interval. UserID and SpotID
// never change after creation; EndTime and FinalCost stay nil until the
// reservation reaches a terminal status.
type Reservation struct {
	ID           int
	Code         string
	UserID       int
	SpotID       int
	VehiclePlate string
	Status       string
	StartTime    time.Time
	EndTime      *time.Time
	FinalCost    *float64
}
