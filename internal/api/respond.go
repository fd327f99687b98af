package api

import (
	"encoding/json"
	"log"
	"net/http"

	"parkside/internal/db"
	"parkside/internal/entities"
	errs "parkside/internal/errors"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			log.Printf("Encoding response: %v", err)
		}
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := errs.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("Internal error: %v", err)
		writeJSON(w, status, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func spotResponse(spot *db.ParkingSpot) entities.SpotResponse {
	return entities.SpotResponse{
		ID:       spot.ID,
		LotID:    spot.LotID,
		Label:    spot.Label,
		Status:   spot.Status,
		IsActive: spot.IsActive,
	}
}
