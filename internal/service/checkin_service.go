package service

import (
	"context"
	"strings"
	"time"

	"confcheckin/internal/dto"
	"confcheckin/internal/metrics"
	"confcheckin/internal/model"
	"confcheckin/internal/repository"
	"confcheckin/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Metric labels for the three transition paths.
const (
	pathToken    = "token"
	pathManual   = "manual"
	pathCheckout = "checkout"
)

// CheckInService owns every write to checked_in / checked_in_at.
//
// Transitions are decided by a conditional update in the repository, so two
// requests racing on the same record cannot both succeed.
type CheckInService interface {
	// CheckInByToken is the scanner path. A repeat scan is not an error: it
	// returns Success=false, AlreadyCheckedIn=true.
	CheckInByToken(ctx context.Context, token string) (*dto.CheckInResponse, error)
	// CheckInByID is the manual path. A repeat is ReasonAlreadyCheckedIn.
	CheckInByID(ctx context.Context, id uuid.UUID) (*dto.CheckInResponse, error)
	CheckOutByID(ctx context.Context, id uuid.UUID) (*dto.CheckInResponse, error)
}

type checkInService struct {
	repo      repository.AttendeeRepository
	jobs      JobEnqueuer
	metrics   *metrics.Metrics
	eventName string
	now       func() time.Time
}

func NewCheckInService(repo repository.AttendeeRepository, jobs JobEnqueuer, m *metrics.Metrics, eventName string) CheckInService {
	return &checkInService{
		repo:      repo,
		jobs:      jobs,
		metrics:   m,
		eventName: eventName,
		now:       time.Now,
	}
}

func (s *checkInService) CheckInByToken(ctx context.Context, token string) (resp *dto.CheckInResponse, err error) {
	defer s.observe(pathToken, s.now(), &resp, &err)

	// Foreign QR codes (URLs, vCards) are just unknown tokens; anything too
	// long for the column cannot match and skips the lookup.
	token = strings.TrimSpace(token)
	if token == "" || len(token) > model.QRTokenMaxLen {
		return nil, newError(ReasonNotFound, "attendee not found")
	}
	a, err := lookup(s.repo.FindByToken(ctx, token))
	if err != nil {
		return nil, err
	}
	return s.checkIn(ctx, a, false)
}

func (s *checkInService) CheckInByID(ctx context.Context, id uuid.UUID) (resp *dto.CheckInResponse, err error) {
	defer s.observe(pathManual, s.now(), &resp, &err)

	a, err := lookup(s.repo.FindByID(ctx, id))
	if err != nil {
		return nil, err
	}
	return s.checkIn(ctx, a, true)
}

func (s *checkInService) checkIn(ctx context.Context, a *model.Attendee, strict bool) (*dto.CheckInResponse, error) {
	if a.IsStaff() {
		return nil, newError(ReasonForbiddenRole, "staff records cannot be checked in")
	}
	if a.CheckedIn {
		return s.alreadyCheckedIn(a, strict)
	}

	at := s.now().UTC()
	ok, err := s.repo.MarkCheckedIn(ctx, a.ID, at)
	if err != nil {
		return nil, internalError("mark checked in", err)
	}
	if !ok {
		// lost the race to a concurrent check-in
		return s.alreadyCheckedIn(a, strict)
	}

	log.Ctx(ctx).Info().Str("attendee_id", a.ID.String()).Time("checked_in_at", at).Msg("attendee checked in")
	s.enqueueConfirmation(ctx, a, at)
	return &dto.CheckInResponse{Success: true, User: checkInUser(a)}, nil
}

func (s *checkInService) alreadyCheckedIn(a *model.Attendee, strict bool) (*dto.CheckInResponse, error) {
	if strict {
		return nil, newError(ReasonAlreadyCheckedIn, "attendee already checked in")
	}
	return &dto.CheckInResponse{Success: false, AlreadyCheckedIn: true, User: checkInUser(a)}, nil
}

func (s *checkInService) CheckOutByID(ctx context.Context, id uuid.UUID) (resp *dto.CheckInResponse, err error) {
	defer s.observe(pathCheckout, s.now(), &resp, &err)

	a, err := lookup(s.repo.FindByID(ctx, id))
	if err != nil {
		return nil, err
	}
	if a.IsStaff() {
		return nil, newError(ReasonForbiddenRole, "staff records cannot be checked out")
	}
	if !a.CheckedIn {
		return nil, newError(ReasonNotCheckedIn, "attendee is not checked in")
	}

	ok, err := s.repo.MarkCheckedOut(ctx, a.ID)
	if err != nil {
		return nil, internalError("mark checked out", err)
	}
	if !ok {
		return nil, newError(ReasonNotCheckedIn, "attendee is not checked in")
	}

	log.Ctx(ctx).Info().Str("attendee_id", a.ID.String()).Msg("attendee checked out")
	return &dto.CheckInResponse{Success: true, User: checkInUser(a)}, nil
}

func (s *checkInService) enqueueConfirmation(ctx context.Context, a *model.Attendee, at time.Time) {
	if s.jobs == nil {
		return
	}
	err := s.jobs.EnqueueEmail(ctx, worker.EmailJobPayload{
		Kind:        worker.EmailCheckedIn,
		ToEmail:     a.Email,
		Name:        a.Name,
		Role:        a.Role,
		EventName:   s.eventName,
		QRToken:     a.QRToken,
		CheckedInAt: &at,
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("attendee_id", a.ID.String()).Msg("checkin: enqueue confirmation failed")
	}
}

func (s *checkInService) observe(path string, start time.Time, resp **dto.CheckInResponse, err *error) {
	outcome := "success"
	switch {
	case *err != nil:
		outcome = string(ReasonOf(*err))
	case *resp != nil && (*resp).AlreadyCheckedIn:
		outcome = string(ReasonAlreadyCheckedIn)
	}
	s.metrics.IncrementOutcome(path, outcome)
	s.metrics.ObserveTransition(path, s.now().Sub(start))
}

func checkInUser(a *model.Attendee) dto.CheckInUser {
	return dto.CheckInUser{Name: a.Name, Email: a.Email}
}
