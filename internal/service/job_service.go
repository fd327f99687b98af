package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"parkside/internal/db"
	"parkside/internal/repository"
)

// JobService runs the scheduled maintenance work, currently the expiry
// sweep that closes overstayed sessions.
type JobService struct {
	Reservations repository.ReservationRepository

	// MaxSessionAge is how long a reservation may stay active before the
	// sweep expires it.
	MaxSessionAge time.Duration

	now func() time.Time
}

func NewJobService(reservations repository.ReservationRepository, maxSessionHours int) *JobService {
	return &JobService{
		Reservations:  reservations,
		MaxSessionAge: time.Duration(maxSessionHours) * time.Hour,
		now:           time.Now,
	}
}

// ExpireOverdueReservations closes every active reservation older than
// MaxSessionAge as Expired, billing it and freeing its spot through the same
// path a release takes. Returns how many were expired.
func (s *JobService) ExpireOverdueReservations(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.MaxSessionAge)

	ids, err := s.Reservations.ActiveIDsOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expiry sweep: listing overdue reservations: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	log.Printf("Expiry sweep: %d overdue reservations found", len(ids))

	expired := 0
	for _, id := range ids {
		// A user releasing concurrently loses the race gracefully; the
		// reservation is simply no longer active.
		if _, err := s.Reservations.ReleaseActive(ctx, id, s.now().UTC(), db.ReservationExpired); err != nil {
			log.Printf("Expiry sweep: reservation %d: %v", id, err)
			continue
		}
		expired++
	}
	log.Printf("Expiry sweep: expired %d reservations", expired)
	return expired, nil
}
