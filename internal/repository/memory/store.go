// Package memory holds a mutex-guarded, map-backed implementation of the
// repository interfaces. The server runs on postgres; this store backs the
// test suite and keeps the same atomicity guarantees under one lock.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"parkside/internal/billing"
	"parkside/internal/db"
	"parkside/internal/errors"
	"parkside/internal/repository"
)

type Store struct {
	mu sync.Mutex

	users        map[int]*db.User
	vehicles     map[int]*db.Vehicle
	addresses    map[int]*db.Address
	lots         map[int]*db.ParkingLot
	spots        map[int]*db.ParkingSpot
	reservations map[int]*db.Reservation

	nextUser        int
	nextVehicle     int
	nextAddress     int
	nextLot         int
	nextSpot        int
	nextReservation int
}

func NewStore() *Store {
	return &Store{
		users:        make(map[int]*db.User),
		vehicles:     make(map[int]*db.Vehicle),
		addresses:    make(map[int]*db.Address),
		lots:         make(map[int]*db.ParkingLot),
		spots:        make(map[int]*db.ParkingSpot),
		reservations: make(map[int]*db.Reservation),
	}
}

var (
	_ repository.UserRepository        = (*Store)(nil)
	_ repository.LotRepository         = (*Store)(nil)
	_ repository.SpotRepository        = (*Store)(nil)
	_ repository.ReservationRepository = (*Store)(nil)
	_ repository.ReportRepository      = (*Store)(nil)
)

// --- reservations ---

func (s *Store) BookSpot(_ context.Context, lotID int, res *db.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lots[lotID]; !ok {
		return fmt.Errorf("lot %d: %w", lotID, errors.ErrNotFound)
	}

	// Lowest spot id wins.
	var chosen *db.ParkingSpot
	for _, id := range s.sortedSpotIDs() {
		spot := s.spots[id]
		if spot.LotID == lotID && spot.Status == db.SpotAvailable && spot.IsActive {
			chosen = spot
			break
		}
	}
	if chosen == nil {
		return fmt.Errorf("lot %d: %w", lotID, errors.ErrNoAvailableSpot)
	}

	chosen.Status = db.SpotOccupied
	chosen.UpdatedOn = res.StartTime

	s.nextReservation++
	res.ID = s.nextReservation
	res.SpotID = chosen.ID
	stored := *res
	s.reservations[res.ID] = &stored
	return nil
}

func (s *Store) ReservationByID(_ context.Context, id int) (*db.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.reservations[id]
	if !ok {
		return nil, fmt.Errorf("reservation %d: %w", id, errors.ErrNotFound)
	}
	copied := *res
	return &copied, nil
}

func (s *Store) ReservationByCode(_ context.Context, code string) (*db.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, res := range s.reservations {
		if res.Code == code {
			copied := *res
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("reservation %q: %w", code, errors.ErrNotFound)
}

func (s *Store) ReleaseActive(_ context.Context, reservationID int, end time.Time, status string) (*db.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releaseLocked(reservationID, end, status)
}

func (s *Store) ReleaseActiveBySpot(_ context.Context, spotID int, end time.Time, status string) (*db.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.spots[spotID]; !ok {
		return nil, fmt.Errorf("spot %d: %w", spotID, errors.ErrNotFound)
	}

	var active []int
	for id, res := range s.reservations {
		if res.SpotID == spotID && res.Status == db.ReservationActive {
			active = append(active, id)
		}
	}
	switch {
	case len(active) == 0:
		return nil, fmt.Errorf("spot %d: %w", spotID, errors.ErrNoActiveReservation)
	case len(active) > 1:
		return nil, fmt.Errorf("spot %d has %d active reservations: %w", spotID, len(active), errors.ErrDataIntegrity)
	}
	return s.releaseLocked(active[0], end, status)
}

func (s *Store) releaseLocked(reservationID int, end time.Time, status string) (*db.Reservation, error) {
	res, ok := s.reservations[reservationID]
	if !ok {
		return nil, fmt.Errorf("reservation %d: %w", reservationID, errors.ErrNotFound)
	}
	if res.Status != db.ReservationActive {
		return nil, fmt.Errorf("reservation %d is %s: %w", reservationID, res.Status, errors.ErrAlreadyReleased)
	}

	spot, ok := s.spots[res.SpotID]
	if !ok {
		return nil, fmt.Errorf("spot %d: %w", res.SpotID, errors.ErrNotFound)
	}
	lot, ok := s.lots[spot.LotID]
	if !ok {
		return nil, fmt.Errorf("lot %d: %w", spot.LotID, errors.ErrNotFound)
	}

	cost := billing.Cost(res.StartTime, end, lot.PricePerHour)
	res.Status = status
	res.EndTime = &end
	res.FinalCost = &cost

	if spot.IsActive {
		spot.Status = db.SpotAvailable
	} else {
		spot.Status = db.SpotMaintenance
	}
	spot.UpdatedOn = end

	copied := *res
	return &copied, nil
}

func (s *Store) ListReservations(_ context.Context, filter repository.ReservationFilter) ([]db.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	search := strings.ToLower(filter.Search)
	var result []db.Reservation
	for _, res := range s.reservations {
		if filter.Status != "" && res.Status != filter.Status {
			continue
		}
		if filter.UserID != 0 && res.UserID != filter.UserID {
			continue
		}
		if filter.From != nil && res.StartTime.Before(*filter.From) {
			continue
		}
		if filter.To != nil && res.StartTime.After(*filter.To) {
			continue
		}
		if search != "" {
			user := s.users[res.UserID]
			haystack := strings.ToLower(res.VehiclePlate)
			if user != nil {
				haystack += " " + strings.ToLower(user.Email) + " " + strings.ToLower(user.FullName)
			}
			if !strings.Contains(haystack, search) {
				continue
			}
		}
		result = append(result, *res)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.After(result[j].StartTime)
	})
	return result, nil
}

func (s *Store) ActiveIDsOlderThan(_ context.Context, cutoff time.Time) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []int
	for id, res := range s.reservations {
		if res.Status == db.ReservationActive && res.StartTime.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

// --- lots ---

func (s *Store) CreateLot(_ context.Context, lot *db.ParkingLot, addr *db.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	s.nextAddress++
	addr.ID = s.nextAddress
	storedAddr := *addr
	s.addresses[addr.ID] = &storedAddr

	s.nextLot++
	lot.ID = s.nextLot
	lot.AddressID = addr.ID
	lot.CreatedOn = now
	lot.UpdatedOn = now
	storedLot := *lot
	s.lots[lot.ID] = &storedLot

	for i := 1; i <= lot.MaxSpots; i++ {
		s.nextSpot++
		s.spots[s.nextSpot] = &db.ParkingSpot{
			ID:        s.nextSpot,
			LotID:     lot.ID,
			Label:     strconv.Itoa(i),
			Status:    db.SpotAvailable,
			IsActive:  true,
			CreatedOn: now,
			UpdatedOn: now,
		}
	}
	return nil
}

func (s *Store) GetLot(_ context.Context, id int) (*db.ParkingLot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lot, ok := s.lots[id]
	if !ok {
		return nil, fmt.Errorf("lot %d: %w", id, errors.ErrNotFound)
	}
	copied := *lot
	return &copied, nil
}

func (s *Store) UpdateLot(_ context.Context, lot *db.ParkingLot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.lots[lot.ID]
	if !ok {
		return fmt.Errorf("lot %d: %w", lot.ID, errors.ErrNotFound)
	}
	stored.Name = lot.Name
	stored.PricePerHour = lot.PricePerHour
	stored.UpdatedOn = time.Now().UTC()
	return nil
}

func (s *Store) ListLots(_ context.Context, search string) ([]db.ParkingLot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	needle := strings.ToLower(search)
	var lots []db.ParkingLot
	for _, id := range s.sortedLotIDs() {
		lot := s.lots[id]
		if needle != "" {
			haystack := strings.ToLower(lot.Name)
			if addr, ok := s.addresses[lot.AddressID]; ok {
				haystack += " " + strings.ToLower(addr.Line) + " " + strings.ToLower(addr.City) + " " + addr.Pincode
			}
			if !strings.Contains(haystack, needle) {
				continue
			}
		}
		lots = append(lots, *lot)
	}
	return lots, nil
}

func (s *Store) ListAvailability(_ context.Context) ([]repository.LotAvailability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []repository.LotAvailability
	for _, id := range s.sortedLotIDs() {
		la := repository.LotAvailability{Lot: *s.lots[id]}
		for _, spot := range s.spots {
			if spot.LotID != id {
				continue
			}
			switch spot.Status {
			case db.SpotAvailable:
				la.Available++
			case db.SpotOccupied:
				la.Occupied++
			case db.SpotMaintenance:
				la.Maintenance++
			}
		}
		result = append(result, la)
	}
	return result, nil
}

func (s *Store) ResizeLot(_ context.Context, lotID, newCapacity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lot, ok := s.lots[lotID]
	if !ok {
		return fmt.Errorf("lot %d: %w", lotID, errors.ErrNotFound)
	}

	now := time.Now().UTC()
	var current []int
	for id, spot := range s.spots {
		if spot.LotID == lotID {
			current = append(current, id)
		}
	}
	sort.Ints(current)

	switch {
	case newCapacity > len(current):
		for i := len(current) + 1; i <= newCapacity; i++ {
			s.nextSpot++
			s.spots[s.nextSpot] = &db.ParkingSpot{
				ID:        s.nextSpot,
				LotID:     lotID,
				Label:     strconv.Itoa(i),
				Status:    db.SpotAvailable,
				IsActive:  true,
				CreatedOn: now,
				UpdatedOn: now,
			}
		}
	case newCapacity < len(current):
		need := len(current) - newCapacity
		// Newest removable spots first; occupied spots and spots with
		// reservation history never qualify.
		var removable []int
		for i := len(current) - 1; i >= 0 && len(removable) < need; i-- {
			id := current[i]
			if s.spots[id].Status == db.SpotAvailable && !s.spotReservedLocked(id) {
				removable = append(removable, id)
			}
		}
		if len(removable) < need {
			return fmt.Errorf("lot %d: need %d removable spots, found %d: %w",
				lotID, need, len(removable), errors.ErrCannotShrink)
		}
		for _, id := range removable {
			delete(s.spots, id)
		}
	}

	lot.MaxSpots = newCapacity
	lot.UpdatedOn = now
	return nil
}

func (s *Store) DeleteLot(_ context.Context, lotID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lots[lotID]; !ok {
		return fmt.Errorf("lot %d: %w", lotID, errors.ErrNotFound)
	}
	for id, spot := range s.spots {
		if spot.LotID == lotID && s.spotReservedLocked(id) {
			return fmt.Errorf("lot %d: %w", lotID, errors.ErrHasReservationHistory)
		}
	}
	for id, spot := range s.spots {
		if spot.LotID == lotID {
			delete(s.spots, id)
		}
	}
	delete(s.lots, lotID)
	return nil
}

// --- spots ---

func (s *Store) AddSpot(_ context.Context, spot *db.ParkingSpot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lot, ok := s.lots[spot.LotID]
	if !ok {
		return fmt.Errorf("lot %d: %w", spot.LotID, errors.ErrNotFound)
	}
	for _, existing := range s.spots {
		if existing.LotID == spot.LotID && existing.Label == spot.Label {
			return fmt.Errorf("label %q in lot %d: %w", spot.Label, spot.LotID, errors.ErrDuplicateLabel)
		}
	}

	now := time.Now().UTC()
	s.nextSpot++
	spot.ID = s.nextSpot
	spot.CreatedOn = now
	spot.UpdatedOn = now
	stored := *spot
	s.spots[spot.ID] = &stored

	lot.MaxSpots++
	lot.UpdatedOn = now
	return nil
}

func (s *Store) GetSpot(_ context.Context, id int) (*db.ParkingSpot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	spot, ok := s.spots[id]
	if !ok {
		return nil, fmt.Errorf("spot %d: %w", id, errors.ErrNotFound)
	}
	copied := *spot
	return &copied, nil
}

func (s *Store) ListSpots(_ context.Context, lotID int, status string) ([]db.ParkingSpot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var spots []db.ParkingSpot
	for _, id := range s.sortedSpotIDs() {
		spot := s.spots[id]
		if spot.LotID != lotID {
			continue
		}
		if status != "" && spot.Status != status {
			continue
		}
		spots = append(spots, *spot)
	}
	return spots, nil
}

func (s *Store) UpdateSpot(_ context.Context, spot *db.ParkingSpot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.spots[spot.ID]
	if !ok {
		return fmt.Errorf("spot %d: %w", spot.ID, errors.ErrNotFound)
	}
	for id, existing := range s.spots {
		if id != spot.ID && existing.LotID == stored.LotID && existing.Label == spot.Label {
			return fmt.Errorf("label %q in lot %d: %w", spot.Label, stored.LotID, errors.ErrDuplicateLabel)
		}
	}
	stored.Label = spot.Label
	stored.Status = spot.Status
	stored.IsActive = spot.IsActive
	stored.UpdatedOn = time.Now().UTC()
	return nil
}

func (s *Store) RemoveSpot(_ context.Context, spotID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	spot, ok := s.spots[spotID]
	if !ok {
		return fmt.Errorf("spot %d: %w", spotID, errors.ErrNotFound)
	}
	if s.spotReservedLocked(spotID) {
		return fmt.Errorf("spot %d: %w", spotID, errors.ErrHasReservationHistory)
	}

	lot := s.lots[spot.LotID]
	delete(s.spots, spotID)
	if lot != nil {
		lot.MaxSpots--
		lot.UpdatedOn = time.Now().UTC()
	}
	return nil
}

// --- users ---

func (s *Store) CreateUser(_ context.Context, user *db.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == user.Email {
			return fmt.Errorf("email %q: %w", user.Email, errors.ErrDuplicateEmail)
		}
	}
	now := time.Now().UTC()
	s.nextUser++
	user.ID = s.nextUser
	user.RegisteredOn = now
	user.UpdatedOn = now
	stored := *user
	s.users[user.ID] = &stored
	return nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (*db.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", email, errors.ErrNotFound)
}

func (s *Store) UserByID(_ context.Context, id int) (*db.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, errors.ErrNotFound)
	}
	copied := *user
	return &copied, nil
}

func (s *Store) UpdateProfile(_ context.Context, user *db.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.users[user.ID]
	if !ok {
		return fmt.Errorf("user %d: %w", user.ID, errors.ErrNotFound)
	}
	for id, existing := range s.users {
		if id != user.ID && existing.Email == user.Email {
			return fmt.Errorf("email %q: %w", user.Email, errors.ErrDuplicateEmail)
		}
	}
	stored.FullName = user.FullName
	stored.Email = user.Email
	stored.Phone = user.Phone
	stored.PasswordHash = user.PasswordHash
	stored.UpdatedOn = time.Now().UTC()
	return nil
}

func (s *Store) AddVehicle(_ context.Context, vehicle *db.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextVehicle++
	vehicle.ID = s.nextVehicle
	vehicle.RegisteredOn = time.Now().UTC()
	stored := *vehicle
	s.vehicles[vehicle.ID] = &stored
	return nil
}

func (s *Store) VehiclesByUser(_ context.Context, userID int) ([]db.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []int
	for id, v := range s.vehicles {
		if v.UserID == userID {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	var vehicles []db.Vehicle
	for _, id := range ids {
		vehicles = append(vehicles, *s.vehicles[id])
	}
	return vehicles, nil
}

func (s *Store) UpsertAddress(_ context.Context, userID int, addr *db.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %d: %w", userID, errors.ErrNotFound)
	}
	if user.AddressID != nil {
		addr.ID = *user.AddressID
		stored := *addr
		s.addresses[addr.ID] = &stored
		return nil
	}
	s.nextAddress++
	addr.ID = s.nextAddress
	stored := *addr
	s.addresses[addr.ID] = &stored
	user.AddressID = &addr.ID
	user.UpdatedOn = time.Now().UTC()
	return nil
}

// --- reports ---

func (s *Store) AdminCounts(_ context.Context) (*repository.AdminCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := &repository.AdminCounts{Lots: len(s.lots), Spots: len(s.spots)}
	for _, user := range s.users {
		if !user.IsAdmin {
			counts.Users++
		}
	}
	for _, res := range s.reservations {
		if res.Status == db.ReservationActive {
			counts.ActiveReservations++
		}
	}
	return counts, nil
}

func (s *Store) SpotStatusCounts(_ context.Context) (*repository.SpotStatusCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var counts repository.SpotStatusCounts
	for _, spot := range s.spots {
		switch spot.Status {
		case db.SpotAvailable:
			counts.Available++
		case db.SpotOccupied:
			counts.Occupied++
		case db.SpotMaintenance:
			counts.Maintenance++
		}
	}
	return &counts, nil
}

func (s *Store) RevenueByDay(_ context.Context, from, to time.Time) ([]repository.DayRevenue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byDay := make(map[time.Time]float64)
	for _, res := range s.reservations {
		if res.EndTime == nil || res.FinalCost == nil {
			continue
		}
		end := res.EndTime.In(time.UTC)
		if end.Before(from) || !end.Before(to) {
			continue
		}
		day := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
		byDay[day] += *res.FinalCost
	}

	var days []time.Time
	for day := range byDay {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	var revenue []repository.DayRevenue
	for _, day := range days {
		revenue = append(revenue, repository.DayRevenue{Day: day, Revenue: billing.RoundCents(byDay[day])})
	}
	return revenue, nil
}

func (s *Store) UserStats(_ context.Context, userID int) (*repository.UserStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats repository.UserStats
	for _, res := range s.reservations {
		if res.UserID != userID {
			continue
		}
		stats.TotalBookings++
		switch res.Status {
		case db.ReservationReleased:
			stats.Completed++
		case db.ReservationActive:
			stats.Active++
		}
		if res.FinalCost != nil {
			stats.TotalSpent += *res.FinalCost
		}
		if res.EndTime != nil {
			stats.TotalHours += res.EndTime.Sub(res.StartTime).Hours()
		}
	}
	return &stats, nil
}

// --- helpers ---

func (s *Store) spotReservedLocked(spotID int) bool {
	for _, res := range s.reservations {
		if res.SpotID == spotID {
			return true
		}
	}
	return false
}

func (s *Store) sortedSpotIDs() []int {
	ids := make([]int, 0, len(s.spots))
	for id := range s.spots {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (s *Store) sortedLotIDs() []int {
	ids := make([]int, 0, len(s.lots))
	for id := range s.lots {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
