package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkside/internal/db"
	"parkside/internal/repository/memory"
)

func TestExpireOverdueReservations(t *testing.T) {
	store := memory.NewStore()
	user := seedUser(t, store, "a@example.com")
	lot := seedLot(t, store, 2, 10)

	engine := newEngine(store)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	// One reservation three days old, one fresh.
	engine.now = func() time.Time { return base.Add(-73 * time.Hour) }
	stale, err := engine.Book(ctx, user.ID, lot.ID, "MH12AB0001")
	require.NoError(t, err)

	engine.now = func() time.Time { return base.Add(-time.Hour) }
	fresh, err := engine.Book(ctx, user.ID, lot.ID, "MH12AB0002")
	require.NoError(t, err)

	jobs := NewJobService(store, 72)
	jobs.now = func() time.Time { return base }

	expired, err := jobs.ExpireOverdueReservations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	after, err := store.ReservationByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, db.ReservationExpired, after.Status)
	require.NotNil(t, after.FinalCost)
	assert.Equal(t, 730.00, *after.FinalCost)

	spot, err := store.GetSpot(ctx, stale.SpotID)
	require.NoError(t, err)
	assert.Equal(t, db.SpotAvailable, spot.Status)

	untouched, err := store.ReservationByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, db.ReservationActive, untouched.Status)
}

func TestExpireNothingOverdue(t *testing.T) {
	store := memory.NewStore()
	user := seedUser(t, store, "a@example.com")
	lot := seedLot(t, store, 1, 10)
	engine := newEngine(store)

	_, err := engine.Book(context.Background(), user.ID, lot.ID, "MH12AB0001")
	require.NoError(t, err)

	jobs := NewJobService(store, 72)
	expired, err := jobs.ExpireOverdueReservations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, expired)
}
