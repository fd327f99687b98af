package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"parkside/internal/auth"
	"parkside/internal/entities"
	"parkside/internal/service"
)

type UserHandler struct {
	Reservations *service.ReservationService
	Inventory    *service.InventoryService
	Reports      *service.ReportService
	Users        *service.UserService
}

func NewUserHandler(
	reservations *service.ReservationService,
	inventory *service.InventoryService,
	reports *service.ReportService,
	users *service.UserService,
) *UserHandler {
	return &UserHandler{
		Reservations: reservations,
		Inventory:    inventory,
		Reports:      reports,
		Users:        users,
	}
}

// ListLots shows every lot with its live availability breakdown. ?q= narrows
// by name or address.
func (h *UserHandler) ListLots(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	if query != "" {
		lots, err := h.Inventory.ListLots(r.Context(), query)
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]entities.LotResponse, 0, len(lots))
		for _, lot := range lots {
			out = append(out, entities.LotResponse{
				ID:           lot.ID,
				Name:         lot.Name,
				PricePerHour: lot.PricePerHour,
				MaxSpots:     lot.MaxSpots,
			})
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	availability, err := h.Inventory.LotAvailability(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]entities.LotResponse, 0, len(availability))
	for _, item := range availability {
		available, occupied, maintenance := item.Available, item.Occupied, item.Maintenance
		out = append(out, entities.LotResponse{
			ID:           item.Lot.ID,
			Name:         item.Lot.Name,
			PricePerHour: item.Lot.PricePerHour,
			MaxSpots:     item.Lot.MaxSpots,
			Available:    &available,
			Occupied:     &occupied,
			Maintenance:  &maintenance,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *UserHandler) ListSpots(w http.ResponseWriter, r *http.Request) {
	lotID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid lot id", http.StatusBadRequest)
		return
	}
	spots, err := h.Inventory.ListSpots(r.Context(), lotID, r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]entities.SpotResponse, 0, len(spots))
	for i := range spots {
		out = append(out, spotResponse(&spots[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *UserHandler) Book(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	var req entities.BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	res, err := h.Reservations.Book(r.Context(), claims.UserID, req.LotID, req.VehiclePlate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.Reservations.Describe(r.Context(), res))
}

func (h *UserHandler) Release(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid reservation id", http.StatusBadRequest)
		return
	}
	res, err := h.Reservations.Release(r.Context(), id, claims.UserID, claims.IsAdmin)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Reservations.Describe(r.Context(), res))
}

func (h *UserHandler) EstimateCost(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid reservation id", http.StatusBadRequest)
		return
	}

	// Estimates are private: non-admins can only price their own sessions.
	res, err := h.Reservations.Reservation(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !claims.IsAdmin && res.UserID != claims.UserID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	estimate, err := h.Reservations.EstimateCost(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, estimate)
}

func (h *UserHandler) MyReservations(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	list, err := h.Reservations.UserReservations(r.Context(), claims.UserID, r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Reservations.DescribeAll(r.Context(), list))
}

func (h *UserHandler) MySummary(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	summary, err := h.Reports.UserSummary(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	var req entities.ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	user, err := h.Users.UpdateProfile(r.Context(), claims.UserID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":   user.ID,
		"full_name": user.FullName,
		"phone":     user.Phone,
	})
}

func (h *UserHandler) AddVehicle(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	var req entities.VehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	vehicle, err := h.Users.AddVehicle(r.Context(), claims.UserID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, vehicle)
}

func (h *UserHandler) MyVehicles(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	vehicles, err := h.Users.Vehicles(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicles)
}
