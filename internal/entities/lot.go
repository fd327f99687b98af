package entities

type AddressRequest struct {
	Line     string `json:"line"`
	City     string `json:"city"`
	State    string `json:"state"`
	Pincode  string `json:"pincode"`
	Landmark string `json:"landmark,omitempty"`
}

type LotRequest struct {
	Name         string         `json:"name"`
	PricePerHour float64        `json:"price_per_hour"`
	Capacity     int            `json:"capacity"`
	Address      AddressRequest `json:"address"`
}

type ResizeRequest struct {
	Capacity int `json:"capacity"`
}

type LotResponse struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	PricePerHour float64 `json:"price_per_hour"`
	MaxSpots     int     `json:"max_spots"`
	Available    *int    `json:"available,omitempty"`
	Occupied     *int    `json:"occupied,omitempty"`
	Maintenance  *int    `json:"maintenance,omitempty"`
}

type SpotRequest struct {
	LotID    int    `json:"lot_id,omitempty"`
	Label    string `json:"label"`
	Status   string `json:"status"`
	IsActive *bool  `json:"is_active,omitempty"`
}

type SpotResponse struct {
	ID       int    `json:"id"`
	LotID    int    `json:"lot_id"`
	Label    string `json:"label"`
	Status   string `json:"status"`
	IsActive bool   `json:"is_active"`
}
