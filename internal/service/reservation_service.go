package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"parkside/internal/billing"
	"parkside/internal/db"
	"parkside/internal/entities"
	errs "parkside/internal/errors"
	"parkside/internal/repository"
	"parkside/internal/utils"
)

// ReceiptSender delivers the post-release receipt. Implemented by
// SenderService; nil disables receipts.
type ReceiptSender interface {
	SendReleaseReceipt(toEmail string, data entities.ReservationEmailData)
}

// ReservationService is the reservation engine: it owns every
// Available/Occupied transition and every reservation status change.
type ReservationService struct {
	Reservations repository.ReservationRepository
	Spots        repository.SpotRepository
	Lots         repository.LotRepository
	Users        repository.UserRepository

	sender ReceiptSender

	// now is swapped in tests to pin billing intervals.
	now func() time.Time
}

func NewReservationService(
	reservations repository.ReservationRepository,
	spots repository.SpotRepository,
	lots repository.LotRepository,
	users repository.UserRepository,
	sender ReceiptSender,
) *ReservationService {
	return &ReservationService{
		Reservations: reservations,
		Spots:        spots,
		Lots:         lots,
		Users:        users,
		sender:       sender,
		now:          time.Now,
	}
}

// Book assigns the lowest-id available spot in the lot to the user and opens
// an active reservation starting now.
func (s *ReservationService) Book(ctx context.Context, userID, lotID int, plate string) (*db.Reservation, error) {
	res := &db.Reservation{
		Code:         uuid.NewString(),
		UserID:       userID,
		VehiclePlate: utils.NormalizePlate(plate),
		Status:       db.ReservationActive,
		StartTime:    s.now().UTC(),
	}
	if err := s.Reservations.BookSpot(ctx, lotID, res); err != nil {
		return nil, fmt.Errorf("booking spot in lot %d: %w", lotID, err)
	}
	log.Printf("Reservation %s: user %d parked at spot %d (lot %d)", res.Code, userID, res.SpotID, lotID)
	return res, nil
}

// Release closes the reservation, bills it and frees the spot. Non-admin
// callers may only release their own reservations.
func (s *ReservationService) Release(ctx context.Context, reservationID, requesterID int, admin bool) (*db.Reservation, error) {
	res, err := s.Reservations.ReservationByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if !admin && res.UserID != requesterID {
		return nil, errs.ErrForbidden
	}

	released, err := s.Reservations.ReleaseActive(ctx, reservationID, s.now().UTC(), db.ReservationReleased)
	if err != nil {
		return nil, fmt.Errorf("releasing reservation %d: %w", reservationID, err)
	}
	log.Printf("Reservation %s released, cost %.2f", released.Code, *released.FinalCost)

	s.sendReceipt(ctx, released)
	return released, nil
}

// ForceRelease closes whatever active reservation sits on the spot. A spot
// with no active reservation is not an error; the caller gets (nil, nil).
func (s *ReservationService) ForceRelease(ctx context.Context, spotID int) (*db.Reservation, error) {
	released, err := s.Reservations.ReleaseActiveBySpot(ctx, spotID, s.now().UTC(), db.ReservationReleased)
	if err != nil {
		if errors.Is(err, errs.ErrNoActiveReservation) {
			return nil, nil
		}
		return nil, fmt.Errorf("force-releasing spot %d: %w", spotID, err)
	}
	log.Printf("Reservation %s force-released from spot %d", released.Code, spotID)

	s.sendReceipt(ctx, released)
	return released, nil
}

// EstimateCost prices the reservation as if it ended now. Terminal
// reservations report their recorded cost instead.
func (s *ReservationService) EstimateCost(ctx context.Context, reservationID int) (*entities.CostEstimateResponse, error) {
	res, err := s.Reservations.ReservationByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	// Terminal reservations report what was actually billed; the lot's
	// current rate no longer applies to them.
	if res.Status != db.ReservationActive && res.EndTime != nil && res.FinalCost != nil {
		return &entities.CostEstimateResponse{
			ReservationID: res.ID,
			StartTime:     res.StartTime,
			AsOf:          *res.EndTime,
			BillableHours: billing.BillableHours(res.StartTime, *res.EndTime),
			EstimatedCost: *res.FinalCost,
		}, nil
	}

	end := s.now().UTC()
	spot, err := s.Spots.GetSpot(ctx, res.SpotID)
	if err != nil {
		return nil, err
	}
	lot, err := s.Lots.GetLot(ctx, spot.LotID)
	if err != nil {
		return nil, err
	}

	return &entities.CostEstimateResponse{
		ReservationID: res.ID,
		StartTime:     res.StartTime,
		AsOf:          end,
		BillableHours: billing.BillableHours(res.StartTime, end),
		EstimatedCost: billing.Cost(res.StartTime, end, lot.PricePerHour),
	}, nil
}

func (s *ReservationService) Reservation(ctx context.Context, id int) (*db.Reservation, error) {
	return s.Reservations.ReservationByID(ctx, id)
}

func (s *ReservationService) ListReservations(ctx context.Context, filter repository.ReservationFilter) ([]db.Reservation, error) {
	return s.Reservations.ListReservations(ctx, filter)
}

func (s *ReservationService) UserReservations(ctx context.Context, userID int, status string) ([]db.Reservation, error) {
	return s.Reservations.ListReservations(ctx, repository.ReservationFilter{UserID: userID, Status: status})
}

// ActiveSession returns the user's open reservation, or ErrNotFound.
func (s *ReservationService) ActiveSession(ctx context.Context, userID int) (*db.Reservation, error) {
	active, err := s.Reservations.ListReservations(ctx, repository.ReservationFilter{
		UserID: userID,
		Status: db.ReservationActive,
	})
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return nil, errs.ErrNotFound
	}
	return &active[0], nil
}

// Describe shapes a reservation for the API, resolving the spot label and
// the lot it belongs to.
func (s *ReservationService) Describe(ctx context.Context, res *db.Reservation) entities.ReservationResponse {
	out := entities.ReservationResponse{
		ID:           res.ID,
		Code:         res.Code,
		SpotID:       res.SpotID,
		VehiclePlate: res.VehiclePlate,
		Status:       res.Status,
		StartTime:    res.StartTime,
		EndTime:      res.EndTime,
		FinalCost:    res.FinalCost,
	}
	spot, err := s.Spots.GetSpot(ctx, res.SpotID)
	if err != nil {
		log.Printf("Describing reservation %d: %v", res.ID, err)
		return out
	}
	out.SpotLabel = spot.Label
	out.LotID = spot.LotID
	if lot, err := s.Lots.GetLot(ctx, spot.LotID); err == nil {
		out.LotName = lot.Name
	}
	return out
}

// DescribeAll maps a listing, reusing spot and lot lookups across rows.
func (s *ReservationService) DescribeAll(ctx context.Context, list []db.Reservation) []entities.ReservationResponse {
	spots := make(map[int]*db.ParkingSpot)
	lots := make(map[int]*db.ParkingLot)

	out := make([]entities.ReservationResponse, 0, len(list))
	for i := range list {
		res := &list[i]
		item := entities.ReservationResponse{
			ID:           res.ID,
			Code:         res.Code,
			SpotID:       res.SpotID,
			VehiclePlate: res.VehiclePlate,
			Status:       res.Status,
			StartTime:    res.StartTime,
			EndTime:      res.EndTime,
			FinalCost:    res.FinalCost,
		}
		spot, ok := spots[res.SpotID]
		if !ok {
			var err error
			spot, err = s.Spots.GetSpot(ctx, res.SpotID)
			if err != nil {
				log.Printf("Describing reservation %d: %v", res.ID, err)
				out = append(out, item)
				continue
			}
			spots[res.SpotID] = spot
		}
		item.SpotLabel = spot.Label
		item.LotID = spot.LotID
		lot, ok := lots[spot.LotID]
		if !ok {
			var err error
			lot, err = s.Lots.GetLot(ctx, spot.LotID)
			if err == nil {
				lots[spot.LotID] = lot
			}
		}
		if lot != nil {
			item.LotName = lot.Name
		}
		out = append(out, item)
	}
	return out
}

func (s *ReservationService) sendReceipt(ctx context.Context, res *db.Reservation) {
	if s.sender == nil || res.EndTime == nil || res.FinalCost == nil {
		return
	}

	user, err := s.Users.UserByID(ctx, res.UserID)
	if err != nil {
		log.Printf("Receipt for %s skipped: %v", res.Code, err)
		return
	}
	spot, err := s.Spots.GetSpot(ctx, res.SpotID)
	if err != nil {
		log.Printf("Receipt for %s skipped: %v", res.Code, err)
		return
	}

	data := entities.ReservationEmailData{
		UserName:      user.FullName,
		Code:          res.Code,
		SpotLabel:     spot.Label,
		VehiclePlate:  res.VehiclePlate,
		StartTime:     res.StartTime,
		EndTime:       *res.EndTime,
		BillableHours: billing.BillableHours(res.StartTime, *res.EndTime),
		FinalCost:     *res.FinalCost,
	}
	go s.sender.SendReleaseReceipt(user.Email, data)
}
