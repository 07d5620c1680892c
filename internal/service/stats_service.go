package service

import (
	"context"

	"confcheckin/internal/dto"
	"confcheckin/internal/repository"

	"github.com/shopspring/decimal"
)

const (
	DefaultRecentLimit = 10
	MaxRecentLimit     = 100
)

// StatsService derives aggregates from the attendee table on every call.
// Nothing is cached, so the numbers cannot drift from the stored state.
type StatsService interface {
	Stats(ctx context.Context) (*dto.StatsResponse, error)
	RecentCheckIns(ctx context.Context, limit int) ([]dto.RecentCheckInResponse, error)
}

type statsService struct {
	repo repository.AttendeeRepository
}

func NewStatsService(repo repository.AttendeeRepository) StatsService {
	return &statsService{repo: repo}
}

func (s *statsService) Stats(ctx context.Context) (*dto.StatsResponse, error) {
	c, err := s.repo.CountStats(ctx)
	if err != nil {
		return nil, internalError("count attendees", err)
	}
	return &dto.StatsResponse{
		TotalRegistered:    c.Total,
		CheckedIn:          c.CheckedIn,
		Pending:            c.Total - c.CheckedIn,
		AttendeeCount:      c.Attendees,
		StaffCount:         c.Staff,
		CheckInRatePercent: CheckInRate(c.CheckedIn, c.Total),
	}, nil
}

// CheckInRate is round(checkedIn / total * 100), half away from zero.
// Zero when nobody is registered.
func CheckInRate(checkedIn, total int64) int64 {
	if total <= 0 {
		return 0
	}
	return decimal.NewFromInt(checkedIn).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(total)).
		Round(0).
		IntPart()
}

// ClampRecentLimit maps 0 to the default and clamps everything else to [1, MaxRecentLimit].
func ClampRecentLimit(limit int) int {
	switch {
	case limit == 0:
		return DefaultRecentLimit
	case limit < 1:
		return 1
	case limit > MaxRecentLimit:
		return MaxRecentLimit
	}
	return limit
}

func (s *statsService) RecentCheckIns(ctx context.Context, limit int) ([]dto.RecentCheckInResponse, error) {
	list, err := s.repo.ListRecentCheckIns(ctx, ClampRecentLimit(limit))
	if err != nil {
		return nil, internalError("list recent check-ins", err)
	}
	resp := make([]dto.RecentCheckInResponse, 0, len(list))
	for _, a := range list {
		if a.CheckedInAt == nil {
			continue
		}
		resp = append(resp, dto.RecentCheckInResponse{
			ID:          a.ID.String(),
			Name:        a.Name,
			Email:       a.Email,
			CheckedInAt: *a.CheckedInAt,
		})
	}
	return resp, nil
}
