package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkside/internal/entities"
	errs "parkside/internal/errors"
	"parkside/internal/repository/memory"
)

func TestUpdateProfileWithAddress(t *testing.T) {
	store := memory.NewStore()
	user := seedUser(t, store, "asha@example.com")
	svc := NewUserService(store)
	ctx := context.Background()

	updated, err := svc.UpdateProfile(ctx, user.ID, entities.ProfileRequest{
		FullName: "Asha R.",
		Phone:    "8888888888",
		Address:  &entities.AddressRequest{Line: "2 Side St", City: "Pune", State: "MH", Pincode: "411002"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Asha R.", updated.FullName)
	assert.Equal(t, "8888888888", updated.Phone)
	require.NotNil(t, updated.AddressID)

	// A second address update reuses the same record.
	again, err := svc.UpdateProfile(ctx, user.ID, entities.ProfileRequest{
		Address: &entities.AddressRequest{Line: "3 Other St", City: "Pune", State: "MH", Pincode: "411003"},
	})
	require.NoError(t, err)
	assert.Equal(t, *updated.AddressID, *again.AddressID)
}

func TestAddVehicleNormalizes(t *testing.T) {
	store := memory.NewStore()
	user := seedUser(t, store, "asha@example.com")
	svc := NewUserService(store)
	ctx := context.Background()

	vehicle, err := svc.AddVehicle(ctx, user.ID, entities.VehicleRequest{
		PlateNumber: "mh 12 ab 1234",
		VehicleType: "SUV",
		Color:       "blue",
	})
	require.NoError(t, err)
	assert.Equal(t, "MH12AB1234", vehicle.PlateNumber)
	assert.Equal(t, "suv", vehicle.VehicleType)

	_, err = svc.AddVehicle(ctx, user.ID, entities.VehicleRequest{PlateNumber: "MH12XY1", VehicleType: "hovercraft"})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
	_, err = svc.AddVehicle(ctx, user.ID, entities.VehicleRequest{PlateNumber: "   "})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	vehicles, err := svc.Vehicles(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, vehicles, 1)
}
