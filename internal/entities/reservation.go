package entities

import "time"

type BookRequest struct {
	LotID        int    `json:"lot_id"`
	VehiclePlate string `json:"vehicle_plate"`
}

type ReservationResponse struct {
	ID           int        `json:"id"`
	Code         string     `json:"code"`
	LotID        int        `json:"lot_id"`
	LotName      string     `json:"lot_name,omitempty"`
	SpotID       int        `json:"spot_id"`
	SpotLabel    string     `json:"spot_label,omitempty"`
	VehiclePlate string     `json:"vehicle_plate"`
	Status       string     `json:"status"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	FinalCost    *float64   `json:"final_cost,omitempty"`
}

type CostEstimateResponse struct {
	ReservationID int       `json:"reservation_id"`
	StartTime     time.Time `json:"start_time"`
	AsOf          time.Time `json:"as_of"`
	BillableHours int       `json:"billable_hours"`
	EstimatedCost float64   `json:"estimated_cost"`
}

type ReservationEmailData struct {
	UserName      string
	Code          string
	SpotLabel     string
	VehiclePlate  string
	StartTime     time.Time
	EndTime       time.Time
	BillableHours int
	FinalCost     float64
}
