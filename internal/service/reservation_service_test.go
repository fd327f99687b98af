package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkside/internal/db"
	errs "parkside/internal/errors"
	"parkside/internal/repository"
	"parkside/internal/repository/memory"
)

func seedUser(t *testing.T, store *memory.Store, email string) *db.User {
	t.Helper()
	user := &db.User{FullName: "Test User", Email: email, PasswordHash: "x"}
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

func seedLot(t *testing.T, store *memory.Store, capacity int, rate float64) *db.ParkingLot {
	t.Helper()
	lot := &db.ParkingLot{Name: "Central", PricePerHour: rate, MaxSpots: capacity}
	addr := &db.Address{Line: "1 Main St", City: "Pune", State: "MH", Pincode: "411001"}
	require.NoError(t, store.CreateLot(context.Background(), lot, addr))
	return lot
}

func newEngine(store *memory.Store) *ReservationService {
	return NewReservationService(store, store, store, store, nil)
}

func TestBookAssignsLowestAvailableSpot(t *testing.T) {
	store := memory.NewStore()
	user := seedUser(t, store, "a@example.com")
	lot := seedLot(t, store, 3, 10)

	svc := newEngine(store)
	ctx := context.Background()

	first, err := svc.Book(ctx, user.ID, lot.ID, "MH12AB1234")
	require.NoError(t, err)
	second, err := svc.Book(ctx, user.ID, lot.ID, "MH12AB5678")
	require.NoError(t, err)

	assert.Less(t, first.SpotID, second.SpotID)
	assert.NotEmpty(t, first.Code)
	assert.Equal(t, db.ReservationActive, first.Status)

	spot, err := store.GetSpot(ctx, first.SpotID)
	require.NoError(t, err)
	assert.Equal(t, db.SpotOccupied, spot.Status)
}

func TestBookUnknownLot(t *testing.T) {
	store := memory.NewStore()
	user := seedUser(t, store, "a@example.com")
	svc := newEngine(store)

	_, err := svc.Book(context.Background(), user.ID, 99, "MH12AB1234")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestBookFullLot(t *testing.T) {
	store := memory.NewStore()
	user := seedUser(t, store, "a@example.com")
	lot := seedLot(t, store, 1, 10)
	svc := newEngine(store)
	ctx := context.Background()

	_, err := svc.Book(ctx, user.ID, lot.ID, "MH12AB1234")
	require.NoError(t, err)
	_, err = svc.Book(ctx, user.ID, lot.ID, "MH12AB5678")
	assert.ErrorIs(t, err, errs.ErrNoAvailableSpot)
}

func TestReleaseCostTable(t *testing.T) {
	cases := []struct {
		name     string
		parked   time.Duration
		wantCost float64
	}{
		{"45 minutes bills one hour", 45 * time.Minute, 10.00},
		{"exactly one hour bills one hour", 60 * time.Minute, 10.00},
		{"61 minutes bills two hours", 61 * time.Minute, 20.00},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := memory.NewStore()
			user := seedUser(t, store, "a@example.com")
			lot := seedLot(t, store, 1, 10)

			svc := newEngine(store)
			start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
			svc.now = func() time.Time { return start }

			res, err := svc.Book(context.Background(), user.ID, lot.ID, "MH12AB1234")
			require.NoError(t, err)

			svc.now = func() time.Time { return start.Add(tc.parked) }
			released, err := svc.Release(context.Background(), res.ID, user.ID, false)
			require.NoError(t, err)

			require.NotNil(t, released.FinalCost)
			assert.Equal(t, tc.wantCost, *released.FinalCost)
			assert.Equal(t, db.ReservationReleased, released.Status)
		})
	}
}

func TestDoubleReleaseKeepsOriginalBilling(t *testing.T) {
	store := memory.NewStore()
	user := seedUser(t, store, "a@example.com")
	lot := seedLot(t, store, 1, 10)
	svc := newEngine(store)
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return start }
	res, err := svc.Book(ctx, user.ID, lot.ID, "MH12AB1234")
	require.NoError(t, err)

	svc.now = func() time.Time { return start.Add(30 * time.Minute) }
	released, err := svc.Release(ctx, res.ID, user.ID, false)
	require.NoError(t, err)

	// A second invocation conflicts and leaves the recorded outcome alone.
	svc.now = func() time.Time { return start.Add(5 * time.Hour) }
	_, err = svc.Release(ctx, res.ID, user.ID, false)
	assert.ErrorIs(t, err, errs.ErrAlreadyReleased)

	after, err := store.ReservationByID(ctx, res.ID)
	require.NoError(t, err)
	require.NotNil(t, after.EndTime)
	require.NotNil(t, after.FinalCost)
	assert.Equal(t, *released.EndTime, *after.EndTime)
	assert.Equal(t, *released.FinalCost, *after.FinalCost)
	assert.Equal(t, 10.00, *after.FinalCost)
}

func TestReleaseOwnership(t *testing.T) {
	store := memory.NewStore()
	owner := seedUser(t, store, "owner@example.com")
	other := seedUser(t, store, "other@example.com")
	lot := seedLot(t, store, 1, 10)
	svc := newEngine(store)
	ctx := context.Background()

	res, err := svc.Book(ctx, owner.ID, lot.ID, "MH12AB1234")
	require.NoError(t, err)

	_, err = svc.Release(ctx, res.ID, other.ID, false)
	assert.ErrorIs(t, err, errs.ErrForbidden)

	// Admins bypass the ownership check.
	released, err := svc.Release(ctx, res.ID, other.ID, true)
	require.NoError(t, err)
	assert.Equal(t, db.ReservationReleased, released.Status)
}

func TestReleaseFreesSpotForRebooking(t *testing.T) {
	store := memory.NewStore()
	user := seedUser(t, store, "a@example.com")
	lot := seedLot(t, store, 1, 10)
	svc := newEngine(store)
	ctx := context.Background()

	res, err := svc.Book(ctx, user.ID, lot.ID, "MH12AB1234")
	require.NoError(t, err)
	_, err = svc.Release(ctx, res.ID, user.ID, false)
	require.NoError(t, err)

	again, err := svc.Book(ctx, user.ID, lot.ID, "MH12AB5678")
	require.NoError(t, err)
	assert.Equal(t, res.SpotID, again.SpotID)
}

func TestReleaseDeactivatedSpotLandsOnMaintenance(t *testing.T) {
	store := memory.NewStore()
	user := seedUser(t, store, "a@example.com")
	lot := seedLot(t, store, 1, 10)
	svc := newEngine(store)
	ctx := context.Background()

	res, err := svc.Book(ctx, user.ID, lot.ID, "MH12AB1234")
	require.NoError(t, err)

	spot, err := store.GetSpot(ctx, res.SpotID)
	require.NoError(t, err)
	spot.IsActive = false
	require.NoError(t, store.UpdateSpot(ctx, spot))

	_, err = svc.Release(ctx, res.ID, user.ID, false)
	require.NoError(t, err)

	spot, err = store.GetSpot(ctx, res.SpotID)
	require.NoError(t, err)
	assert.Equal(t, db.SpotMaintenance, spot.Status)
}

func TestForceRelease(t *testing.T) {
	store := memory.NewStore()
	user := seedUser(t, store, "a@example.com")
	lot := seedLot(t, store, 2, 10)
	svc := newEngine(store)
	ctx := context.Background()

	res, err := svc.Book(ctx, user.ID, lot.ID, "MH12AB1234")
	require.NoError(t, err)

	released, err := svc.ForceRelease(ctx, res.SpotID)
	require.NoError(t, err)
	require.NotNil(t, released)
	assert.Equal(t, res.ID, released.ID)

	// A spot with no active reservation is a quiet no-op.
	released, err = svc.ForceRelease(ctx, res.SpotID)
	require.NoError(t, err)
	assert.Nil(t, released)
}

func TestEstimateCostMutatesNothing(t *testing.T) {
	store := memory.NewStore()
	user := seedUser(t, store, "a@example.com")
	lot := seedLot(t, store, 1, 2.45)
	svc := newEngine(store)
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return start }
	res, err := svc.Book(ctx, user.ID, lot.ID, "MH12AB1234")
	require.NoError(t, err)

	svc.now = func() time.Time { return start.Add(3 * time.Hour) }
	est, err := svc.EstimateCost(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, est.BillableHours)
	assert.Equal(t, 7.35, est.EstimatedCost)

	after, err := store.ReservationByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, db.ReservationActive, after.Status)
	assert.Nil(t, after.EndTime)
	assert.Nil(t, after.FinalCost)
}

func TestEstimateCostOnReleasedReservation(t *testing.T) {
	store := memory.NewStore()
	user := seedUser(t, store, "a@example.com")
	lot := seedLot(t, store, 1, 10)
	svc := newEngine(store)
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return start }
	res, err := svc.Book(ctx, user.ID, lot.ID, "MH12AB1234")
	require.NoError(t, err)

	svc.now = func() time.Time { return start.Add(90 * time.Minute) }
	_, err = svc.Release(ctx, res.ID, user.ID, false)
	require.NoError(t, err)

	// A later rate change must not rewrite history.
	lot.PricePerHour = 50
	require.NoError(t, store.UpdateLot(ctx, lot))
	svc.now = func() time.Time { return start.Add(8 * time.Hour) }

	est, err := svc.EstimateCost(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, est.BillableHours)
	assert.Equal(t, 20.00, est.EstimatedCost)
	assert.Equal(t, start.Add(90*time.Minute), est.AsOf)
}

func TestConcurrentBookingFillsExactlyAllSpots(t *testing.T) {
	const spots = 5
	const bookers = 50

	store := memory.NewStore()
	user := seedUser(t, store, "a@example.com")
	lot := seedLot(t, store, spots, 10)
	svc := newEngine(store)

	var wg sync.WaitGroup
	results := make(chan error, bookers)
	for i := 0; i < bookers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Book(context.Background(), user.ID, lot.ID, "MH12AB1234")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	booked, rejected := 0, 0
	for err := range results {
		switch {
		case err == nil:
			booked++
		default:
			require.ErrorIs(t, err, errs.ErrNoAvailableSpot)
			rejected++
		}
	}
	assert.Equal(t, spots, booked)
	assert.Equal(t, bookers-spots, rejected)

	assertOccupancyMatchesActive(t, store)
}

// assertOccupancyMatchesActive checks that occupied spots and active
// reservations are in one-to-one correspondence.
func assertOccupancyMatchesActive(t *testing.T, store *memory.Store) {
	t.Helper()
	ctx := context.Background()

	active, err := store.ListReservations(ctx, repository.ReservationFilter{Status: db.ReservationActive})
	require.NoError(t, err)

	counts, err := store.SpotStatusCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(active), counts.Occupied)

	seen := make(map[int]bool)
	for _, res := range active {
		assert.False(t, seen[res.SpotID], "spot %d has two active reservations", res.SpotID)
		seen[res.SpotID] = true

		spot, err := store.GetSpot(ctx, res.SpotID)
		require.NoError(t, err)
		assert.Equal(t, db.SpotOccupied, spot.Status)
	}
}

func TestOccupancyInvariantAcrossLifecycle(t *testing.T) {
	store := memory.NewStore()
	user := seedUser(t, store, "a@example.com")
	lot := seedLot(t, store, 4, 10)
	svc := newEngine(store)
	ctx := context.Background()

	first, err := svc.Book(ctx, user.ID, lot.ID, "MH12AB0001")
	require.NoError(t, err)
	_, err = svc.Book(ctx, user.ID, lot.ID, "MH12AB0002")
	require.NoError(t, err)
	assertOccupancyMatchesActive(t, store)

	_, err = svc.Release(ctx, first.ID, user.ID, false)
	require.NoError(t, err)
	assertOccupancyMatchesActive(t, store)

	_, err = svc.Book(ctx, user.ID, lot.ID, "MH12AB0003")
	require.NoError(t, err)
	assertOccupancyMatchesActive(t, store)
}

func TestActiveSession(t *testing.T) {
	store := memory.NewStore()
	user := seedUser(t, store, "a@example.com")
	lot := seedLot(t, store, 1, 10)
	svc := newEngine(store)
	ctx := context.Background()

	_, err := svc.ActiveSession(ctx, user.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	res, err := svc.Book(ctx, user.ID, lot.ID, "MH12AB1234")
	require.NoError(t, err)

	session, err := svc.ActiveSession(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, res.ID, session.ID)
}
