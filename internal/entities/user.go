package entities

type ProfileRequest struct {
	FullName string          `json:"full_name"`
	Phone    string          `json:"phone"`
	Address  *AddressRequest `json:"address,omitempty"`
}

type VehicleRequest struct {
	PlateNumber string `json:"plate_number"`
	VehicleType string `json:"vehicle_type"`
	Color       string `json:"color"`
}

type AdminSummaryResponse struct {
	Users              int                  `json:"users"`
	Lots               int                  `json:"lots"`
	Spots              int                  `json:"spots"`
	ActiveReservations int                  `json:"active_reservations"`
	SpotStatus         SpotStatusBreakdown  `json:"spot_status"`
	Revenue            []DayRevenueResponse `json:"revenue"`
}

type SpotStatusBreakdown struct {
	Available   int `json:"available"`
	Occupied    int `json:"occupied"`
	Maintenance int `json:"maintenance"`
}

type DayRevenueResponse struct {
	Day     string  `json:"day"`
	Revenue float64 `json:"revenue"`
}

type UserSummaryResponse struct {
	TotalBookings  int      `json:"total_bookings"`
	Completed      int      `json:"completed"`
	Active         int      `json:"active"`
	TotalSpent     float64  `json:"total_spent"`
	TotalHours     float64  `json:"total_hours"`
	ActiveEstimate *float64 `json:"active_estimate,omitempty"`
}
