package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkside/internal/auth"
	"parkside/internal/db"
	"parkside/internal/entities"
	"parkside/internal/repository/memory"
	"parkside/internal/service"
)

type fixture struct {
	store *memory.Store
	user  *UserHandler
	admin *AdminHandler

	userID int
	lotID  int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()

	u := &db.User{FullName: "Asha Rao", Email: "asha@example.com", PasswordHash: "x"}
	require.NoError(t, store.CreateUser(ctx, u))

	lot := &db.ParkingLot{Name: "Central", PricePerHour: 10, MaxSpots: 2}
	addr := &db.Address{Line: "1 Main St", City: "Pune", State: "MH", Pincode: "411001"}
	require.NoError(t, store.CreateLot(ctx, lot, addr))

	reservations := service.NewReservationService(store, store, store, store, nil)
	inventory := service.NewInventoryService(store, store)
	reports := service.NewReportService(store, store, store, store)
	users := service.NewUserService(store)

	return &fixture{
		store:  store,
		user:   NewUserHandler(reservations, inventory, reports, users),
		admin:  NewAdminHandler(inventory, reservations, reports),
		userID: u.ID,
		lotID:  lot.ID,
	}
}

func (f *fixture) request(t *testing.T, claims *service.Claims, method, target string, body interface{}, vars map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if claims != nil {
		req = req.WithContext(auth.WithClaims(req.Context(), claims))
	}
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	return req
}

func (f *fixture) book(t *testing.T, userID int) entities.ReservationResponse {
	t.Helper()
	rec := httptest.NewRecorder()
	req := f.request(t, &service.Claims{UserID: userID}, "POST", "/api/reservations",
		entities.BookRequest{LotID: f.lotID, VehiclePlate: "MH12AB1234"}, nil)
	f.user.Book(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res entities.ReservationResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	return res
}

func TestBookAndReleaseOverHTTP(t *testing.T) {
	f := newFixture(t)
	res := f.book(t, f.userID)
	assert.Equal(t, db.ReservationActive, res.Status)
	assert.NotEmpty(t, res.Code)
	assert.Equal(t, f.lotID, res.LotID)
	assert.Equal(t, "Central", res.LotName)
	assert.Equal(t, "1", res.SpotLabel)

	rec := httptest.NewRecorder()
	req := f.request(t, &service.Claims{UserID: f.userID}, "POST",
		fmt.Sprintf("/api/reservations/%d/release", res.ID), nil,
		map[string]string{"id": strconv.Itoa(res.ID)})
	f.user.Release(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var released entities.ReservationResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&released))
	assert.Equal(t, db.ReservationReleased, released.Status)
	require.NotNil(t, released.FinalCost)
}

func TestReleaseStatusCodes(t *testing.T) {
	f := newFixture(t)
	res := f.book(t, f.userID)
	vars := map[string]string{"id": strconv.Itoa(res.ID)}

	// Someone else's reservation.
	rec := httptest.NewRecorder()
	f.user.Release(rec, f.request(t, &service.Claims{UserID: f.userID + 1}, "POST", "/x", nil, vars))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// First release succeeds, the second conflicts.
	rec = httptest.NewRecorder()
	f.user.Release(rec, f.request(t, &service.Claims{UserID: f.userID}, "POST", "/x", nil, vars))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	f.user.Release(rec, f.request(t, &service.Claims{UserID: f.userID}, "POST", "/x", nil, vars))
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Unknown reservation.
	rec = httptest.NewRecorder()
	f.user.Release(rec, f.request(t, &service.Claims{UserID: f.userID}, "POST", "/x", nil, map[string]string{"id": "999"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBookStatusCodes(t *testing.T) {
	f := newFixture(t)

	// Unknown lot.
	rec := httptest.NewRecorder()
	f.user.Book(rec, f.request(t, &service.Claims{UserID: f.userID}, "POST", "/api/reservations",
		entities.BookRequest{LotID: 999, VehiclePlate: "MH12AB1234"}, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Fill the lot, then overflow.
	f.book(t, f.userID)
	f.book(t, f.userID)
	rec = httptest.NewRecorder()
	f.user.Book(rec, f.request(t, &service.Claims{UserID: f.userID}, "POST", "/api/reservations",
		entities.BookRequest{LotID: f.lotID, VehiclePlate: "MH12AB1234"}, nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestValidationFailuresReturnBadRequest(t *testing.T) {
	f := newFixture(t)
	adminClaims := &service.Claims{UserID: 99, IsAdmin: true}

	// Zero capacity is a client mistake, not a server fault, and the
	// reason must reach the caller.
	rec := httptest.NewRecorder()
	f.admin.CreateLot(rec, f.request(t, adminClaims, "POST", "/x", entities.LotRequest{
		Name: "North", PricePerHour: 10, Capacity: 0,
	}, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Contains(t, body["error"], "capacity")

	rec = httptest.NewRecorder()
	f.user.AddVehicle(rec, f.request(t, &service.Claims{UserID: f.userID}, "POST", "/x",
		entities.VehicleRequest{PlateNumber: "MH12AB1234", VehicleType: "hovercraft"}, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Contains(t, body["error"], "hovercraft")

	rec = httptest.NewRecorder()
	f.admin.ResizeLot(rec, f.request(t, adminClaims, "POST", "/x", entities.ResizeRequest{Capacity: 0},
		map[string]string{"id": strconv.Itoa(f.lotID)}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListReservationsCarriesLotInfo(t *testing.T) {
	f := newFixture(t)
	f.book(t, f.userID)

	rec := httptest.NewRecorder()
	f.admin.ListReservations(rec, f.request(t, &service.Claims{UserID: 99, IsAdmin: true}, "GET", "/admin/reservations", nil, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var list []entities.ReservationResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, f.lotID, list[0].LotID)
	assert.Equal(t, "Central", list[0].LotName)
	assert.NotEmpty(t, list[0].SpotLabel)
}

func TestForceReleaseHandler(t *testing.T) {
	f := newFixture(t)
	res := f.book(t, f.userID)
	vars := map[string]string{"id": strconv.Itoa(res.SpotID)}
	adminClaims := &service.Claims{UserID: 99, IsAdmin: true}

	rec := httptest.NewRecorder()
	f.admin.ForceRelease(rec, f.request(t, adminClaims, "POST", "/x", nil, vars))
	require.Equal(t, http.StatusOK, rec.Code)
	var released entities.ReservationResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&released))
	assert.Equal(t, res.ID, released.ID)

	// Releasing an empty spot reports a no-op, not an error.
	rec = httptest.NewRecorder()
	f.admin.ForceRelease(rec, f.request(t, adminClaims, "POST", "/x", nil, vars))
	require.Equal(t, http.StatusOK, rec.Code)
	var noop map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&noop))
	assert.Contains(t, noop["message"], "No active reservation")
}

func TestResizeLotHandler(t *testing.T) {
	f := newFixture(t)
	adminClaims := &service.Claims{UserID: 99, IsAdmin: true}
	vars := map[string]string{"id": strconv.Itoa(f.lotID)}

	rec := httptest.NewRecorder()
	f.admin.ResizeLot(rec, f.request(t, adminClaims, "POST", "/x", entities.ResizeRequest{Capacity: 4}, vars))
	require.Equal(t, http.StatusOK, rec.Code)
	var lot entities.LotResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&lot))
	assert.Equal(t, 4, lot.MaxSpots)

	// Both spots occupied, shrink below them conflicts.
	f.book(t, f.userID)
	f.book(t, f.userID)
	rec = httptest.NewRecorder()
	f.admin.ResizeLot(rec, f.request(t, adminClaims, "POST", "/x", entities.ResizeRequest{Capacity: 1}, vars))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListLotsShowsAvailability(t *testing.T) {
	f := newFixture(t)
	f.book(t, f.userID)

	rec := httptest.NewRecorder()
	f.user.ListLots(rec, f.request(t, &service.Claims{UserID: f.userID}, "GET", "/api/lots", nil, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var lots []entities.LotResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&lots))
	require.Len(t, lots, 1)
	require.NotNil(t, lots[0].Available)
	require.NotNil(t, lots[0].Occupied)
	assert.Equal(t, 1, *lots[0].Available)
	assert.Equal(t, 1, *lots[0].Occupied)
}
