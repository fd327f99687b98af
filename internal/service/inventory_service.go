package service

import (
	"context"
	"fmt"
	"log"

	"parkside/internal/db"
	"parkside/internal/entities"
	errs "parkside/internal/errors"
	"parkside/internal/repository"
)

// InventoryService manages lots and spots. It never touches the
// Available/Occupied transition; that belongs to the reservation engine.
type InventoryService struct {
	Lots  repository.LotRepository
	Spots repository.SpotRepository
}

func NewInventoryService(lots repository.LotRepository, spots repository.SpotRepository) *InventoryService {
	return &InventoryService{Lots: lots, Spots: spots}
}

func (s *InventoryService) CreateLot(ctx context.Context, req entities.LotRequest) (*db.ParkingLot, error) {
	if req.Name == "" || req.PricePerHour <= 0 || req.Capacity < 1 {
		return nil, fmt.Errorf("%w: lot needs a name, a positive rate and capacity >= 1", errs.ErrInvalidInput)
	}

	lot := &db.ParkingLot{
		Name:         req.Name,
		PricePerHour: req.PricePerHour,
		MaxSpots:     req.Capacity,
	}
	addr := &db.Address{
		Line:     req.Address.Line,
		City:     req.Address.City,
		State:    req.Address.State,
		Pincode:  req.Address.Pincode,
		Landmark: req.Address.Landmark,
	}
	if err := s.Lots.CreateLot(ctx, lot, addr); err != nil {
		return nil, fmt.Errorf("creating lot %q: %w", req.Name, err)
	}
	log.Printf("Lot %d (%s) created with %d spots", lot.ID, lot.Name, lot.MaxSpots)
	return lot, nil
}

func (s *InventoryService) GetLot(ctx context.Context, id int) (*db.ParkingLot, error) {
	return s.Lots.GetLot(ctx, id)
}

func (s *InventoryService) UpdateLot(ctx context.Context, id int, name string, rate float64) (*db.ParkingLot, error) {
	lot, err := s.Lots.GetLot(ctx, id)
	if err != nil {
		return nil, err
	}
	if name != "" {
		lot.Name = name
	}
	if rate > 0 {
		lot.PricePerHour = rate
	}
	if err := s.Lots.UpdateLot(ctx, lot); err != nil {
		return nil, fmt.Errorf("updating lot %d: %w", id, err)
	}
	return lot, nil
}

// ResizeLot grows or shrinks the lot to the new capacity. Shrinking removes
// only spots that are available and were never reserved; if fewer such spots
// exist than the shrink requires, nothing changes.
func (s *InventoryService) ResizeLot(ctx context.Context, lotID, newCapacity int) (*db.ParkingLot, error) {
	if newCapacity < 1 {
		return nil, fmt.Errorf("%w: capacity must be >= 1", errs.ErrInvalidInput)
	}
	if err := s.Lots.ResizeLot(ctx, lotID, newCapacity); err != nil {
		return nil, fmt.Errorf("resizing lot %d to %d: %w", lotID, newCapacity, err)
	}
	log.Printf("Lot %d resized to %d spots", lotID, newCapacity)
	return s.Lots.GetLot(ctx, lotID)
}

func (s *InventoryService) DeleteLot(ctx context.Context, lotID int) error {
	if err := s.Lots.DeleteLot(ctx, lotID); err != nil {
		return fmt.Errorf("deleting lot %d: %w", lotID, err)
	}
	log.Printf("Lot %d deleted", lotID)
	return nil
}

func (s *InventoryService) ListLots(ctx context.Context, search string) ([]db.ParkingLot, error) {
	return s.Lots.ListLots(ctx, search)
}

func (s *InventoryService) LotAvailability(ctx context.Context) ([]repository.LotAvailability, error) {
	return s.Lots.ListAvailability(ctx)
}

func (s *InventoryService) AddSpot(ctx context.Context, req entities.SpotRequest) (*db.ParkingSpot, error) {
	if req.Label == "" {
		return nil, fmt.Errorf("%w: spot label required", errs.ErrInvalidInput)
	}
	status := req.Status
	if status == "" {
		status = db.SpotAvailable
	}
	if status != db.SpotAvailable && status != db.SpotMaintenance {
		return nil, fmt.Errorf("%w: new spot status must be available or maintenance", errs.ErrInvalidInput)
	}

	spot := &db.ParkingSpot{
		LotID:    req.LotID,
		Label:    req.Label,
		Status:   status,
		IsActive: true,
	}
	if req.IsActive != nil {
		spot.IsActive = *req.IsActive
	}
	if err := s.Spots.AddSpot(ctx, spot); err != nil {
		return nil, fmt.Errorf("adding spot %q to lot %d: %w", req.Label, req.LotID, err)
	}
	return spot, nil
}

// UpdateSpot edits label, maintenance flag and service state. Occupied is not
// accepted here; only a booking can occupy a spot.
func (s *InventoryService) UpdateSpot(ctx context.Context, spotID int, req entities.SpotRequest) (*db.ParkingSpot, error) {
	spot, err := s.Spots.GetSpot(ctx, spotID)
	if err != nil {
		return nil, err
	}

	if req.Status != "" && req.Status != spot.Status {
		if req.Status == db.SpotOccupied || spot.Status == db.SpotOccupied {
			return nil, fmt.Errorf("%w: spot %d: occupancy changes only through reservations", errs.ErrInvalidInput, spotID)
		}
		spot.Status = req.Status
	}
	if req.Label != "" {
		spot.Label = req.Label
	}
	if req.IsActive != nil {
		spot.IsActive = *req.IsActive
	}

	if err := s.Spots.UpdateSpot(ctx, spot); err != nil {
		return nil, fmt.Errorf("updating spot %d: %w", spotID, err)
	}
	return spot, nil
}

func (s *InventoryService) RemoveSpot(ctx context.Context, spotID int) error {
	spot, err := s.Spots.GetSpot(ctx, spotID)
	if err != nil {
		return err
	}
	if spot.Status == db.SpotOccupied {
		return errs.ErrHasReservationHistory
	}
	if err := s.Spots.RemoveSpot(ctx, spotID); err != nil {
		return fmt.Errorf("removing spot %d: %w", spotID, err)
	}
	log.Printf("Spot %d (%s) removed from lot %d", spotID, spot.Label, spot.LotID)
	return nil
}

func (s *InventoryService) ListSpots(ctx context.Context, lotID int, status string) ([]db.ParkingSpot, error) {
	return s.Spots.ListSpots(ctx, lotID, status)
}
