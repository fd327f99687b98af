package service

import (
	"context"
	"fmt"
	"time"

	"parkside/internal/billing"
	"parkside/internal/db"
	"parkside/internal/entities"
	"parkside/internal/repository"
)

// ReportService serves read-only dashboards. Numbers are computed from
// committed state and may trail in-flight transactions.
type ReportService struct {
	Reports      repository.ReportRepository
	Reservations repository.ReservationRepository
	Spots        repository.SpotRepository
	Lots         repository.LotRepository

	now func() time.Time
}

func NewReportService(
	reports repository.ReportRepository,
	reservations repository.ReservationRepository,
	spots repository.SpotRepository,
	lots repository.LotRepository,
) *ReportService {
	return &ReportService{
		Reports:      reports,
		Reservations: reservations,
		Spots:        spots,
		Lots:         lots,
		now:          time.Now,
	}
}

func (s *ReportService) AdminSummary(ctx context.Context) (*entities.AdminSummaryResponse, error) {
	counts, err := s.Reports.AdminCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading admin counts: %w", err)
	}
	spotStatus, err := s.Reports.SpotStatusCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading spot status counts: %w", err)
	}

	now := s.now().UTC()
	revenue, err := s.Reports.RevenueByDay(ctx, now.AddDate(0, 0, -7), now)
	if err != nil {
		return nil, fmt.Errorf("loading revenue series: %w", err)
	}

	resp := &entities.AdminSummaryResponse{
		Users:              counts.Users,
		Lots:               counts.Lots,
		Spots:              counts.Spots,
		ActiveReservations: counts.ActiveReservations,
		SpotStatus: entities.SpotStatusBreakdown{
			Available:   spotStatus.Available,
			Occupied:    spotStatus.Occupied,
			Maintenance: spotStatus.Maintenance,
		},
	}
	for _, day := range revenue {
		resp.Revenue = append(resp.Revenue, entities.DayRevenueResponse{
			Day:     day.Day.Format("2006-01-02"),
			Revenue: day.Revenue,
		})
	}
	return resp, nil
}

func (s *ReportService) UserSummary(ctx context.Context, userID int) (*entities.UserSummaryResponse, error) {
	stats, err := s.Reports.UserStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading stats for user %d: %w", userID, err)
	}

	resp := &entities.UserSummaryResponse{
		TotalBookings: stats.TotalBookings,
		Completed:     stats.Completed,
		Active:        stats.Active,
		TotalSpent:    stats.TotalSpent,
		TotalHours:    stats.TotalHours,
	}

	if stats.Active > 0 {
		estimate, err := s.activeEstimate(ctx, userID)
		if err != nil {
			return nil, err
		}
		resp.ActiveEstimate = estimate
	}
	return resp, nil
}

func (s *ReportService) activeEstimate(ctx context.Context, userID int) (*float64, error) {
	active, err := s.Reservations.ListReservations(ctx, repository.ReservationFilter{
		UserID: userID,
		Status: db.ReservationActive,
	})
	if err != nil || len(active) == 0 {
		return nil, err
	}

	res := active[0]
	spot, err := s.Spots.GetSpot(ctx, res.SpotID)
	if err != nil {
		return nil, err
	}
	lot, err := s.Lots.GetLot(ctx, spot.LotID)
	if err != nil {
		return nil, err
	}
	cost := billing.Cost(res.StartTime, s.now().UTC(), lot.PricePerHour)
	return &cost, nil
}
