package service

import (
	"context"
	"fmt"

	"parkside/internal/db"
	"parkside/internal/entities"
	errs "parkside/internal/errors"
	"parkside/internal/repository"
	"parkside/internal/utils"
)

type UserService struct {
	Users repository.UserRepository
}

func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{Users: users}
}

func (s *UserService) Profile(ctx context.Context, userID int) (*db.User, error) {
	return s.Users.UserByID(ctx, userID)
}

func (s *UserService) UpdateProfile(ctx context.Context, userID int, req entities.ProfileRequest) (*db.User, error) {
	user, err := s.Users.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.FullName != "" {
		user.FullName = req.FullName
	}
	if req.Phone != "" {
		user.Phone = req.Phone
	}
	if err := s.Users.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("updating profile for user %d: %w", userID, err)
	}

	if req.Address != nil {
		addr := &db.Address{
			Line:     req.Address.Line,
			City:     req.Address.City,
			State:    req.Address.State,
			Pincode:  req.Address.Pincode,
			Landmark: req.Address.Landmark,
		}
		if err := s.Users.UpsertAddress(ctx, userID, addr); err != nil {
			return nil, fmt.Errorf("saving address for user %d: %w", userID, err)
		}
		user.AddressID = &addr.ID
	}
	return user, nil
}

func (s *UserService) AddVehicle(ctx context.Context, userID int, req entities.VehicleRequest) (*db.Vehicle, error) {
	plate := utils.NormalizePlate(req.PlateNumber)
	if plate == "" {
		return nil, fmt.Errorf("%w: plate number required", errs.ErrInvalidInput)
	}
	vehicleType, ok := utils.NormalizeVehicleType(req.VehicleType)
	if !ok {
		return nil, fmt.Errorf("%w: unknown vehicle type %q", errs.ErrInvalidInput, req.VehicleType)
	}

	vehicle := &db.Vehicle{
		UserID:      userID,
		PlateNumber: plate,
		VehicleType: vehicleType,
		Color:       req.Color,
	}
	if err := s.Users.AddVehicle(ctx, vehicle); err != nil {
		return nil, fmt.Errorf("adding vehicle %s: %w", plate, err)
	}
	return vehicle, nil
}

func (s *UserService) Vehicles(ctx context.Context, userID int) ([]db.Vehicle, error) {
	return s.Users.VehiclesByUser(ctx, userID)
}
