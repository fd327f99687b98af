package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"parkside/internal/entities"
	"parkside/internal/repository"
	"parkside/internal/service"
)

type AdminHandler struct {
	Inventory    *service.InventoryService
	Reservations *service.ReservationService
	Reports      *service.ReportService
}

func NewAdminHandler(
	inventory *service.InventoryService,
	reservations *service.ReservationService,
	reports *service.ReportService,
) *AdminHandler {
	return &AdminHandler{
		Inventory:    inventory,
		Reservations: reservations,
		Reports:      reports,
	}
}

func (h *AdminHandler) CreateLot(w http.ResponseWriter, r *http.Request) {
	var req entities.LotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	lot, err := h.Inventory.CreateLot(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entities.LotResponse{
		ID:           lot.ID,
		Name:         lot.Name,
		PricePerHour: lot.PricePerHour,
		MaxSpots:     lot.MaxSpots,
	})
}

func (h *AdminHandler) UpdateLot(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid lot id", http.StatusBadRequest)
		return
	}
	var req struct {
		Name         string  `json:"name"`
		PricePerHour float64 `json:"price_per_hour"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	lot, err := h.Inventory.UpdateLot(r.Context(), id, req.Name, req.PricePerHour)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.LotResponse{
		ID:           lot.ID,
		Name:         lot.Name,
		PricePerHour: lot.PricePerHour,
		MaxSpots:     lot.MaxSpots,
	})
}

func (h *AdminHandler) ResizeLot(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid lot id", http.StatusBadRequest)
		return
	}
	var req entities.ResizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	lot, err := h.Inventory.ResizeLot(r.Context(), id, req.Capacity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.LotResponse{
		ID:           lot.ID,
		Name:         lot.Name,
		PricePerHour: lot.PricePerHour,
		MaxSpots:     lot.MaxSpots,
	})
}

func (h *AdminHandler) DeleteLot(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid lot id", http.StatusBadRequest)
		return
	}
	if err := h.Inventory.DeleteLot(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Lot deleted"})
}

func (h *AdminHandler) AddSpot(w http.ResponseWriter, r *http.Request) {
	lotID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid lot id", http.StatusBadRequest)
		return
	}
	var req entities.SpotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	req.LotID = lotID
	spot, err := h.Inventory.AddSpot(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, spotResponse(spot))
}

func (h *AdminHandler) UpdateSpot(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid spot id", http.StatusBadRequest)
		return
	}
	var req entities.SpotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	spot, err := h.Inventory.UpdateSpot(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, spotResponse(spot))
}

func (h *AdminHandler) RemoveSpot(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid spot id", http.StatusBadRequest)
		return
	}
	if err := h.Inventory.RemoveSpot(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Spot removed"})
}

// ForceRelease frees a spot regardless of who parked there. A spot with no
// active reservation yields a no-op response, not an error.
func (h *AdminHandler) ForceRelease(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid spot id", http.StatusBadRequest)
		return
	}
	res, err := h.Reservations.ForceRelease(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if res == nil {
		writeJSON(w, http.StatusOK, map[string]string{"message": "No active reservation on spot"})
		return
	}
	writeJSON(w, http.StatusOK, h.Reservations.Describe(r.Context(), res))
}

func (h *AdminHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	filter := repository.ReservationFilter{
		Status: r.URL.Query().Get("status"),
		Search: r.URL.Query().Get("search"),
	}
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "Invalid from timestamp", http.StatusBadRequest)
			return
		}
		filter.From = &t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "Invalid to timestamp", http.StatusBadRequest)
			return
		}
		filter.To = &t
	}

	list, err := h.Reservations.ListReservations(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Reservations.DescribeAll(r.Context(), list))
}

func (h *AdminHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Reports.AdminSummary(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
