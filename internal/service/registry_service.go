package service

import (
	"context"
	"errors"
	"strings"

	"confcheckin/internal/dto"
	"confcheckin/internal/model"
	"confcheckin/internal/repository"
	"confcheckin/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	tokenAttempts = 3
	passwordCost  = 12

	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
)

// JobEnqueuer is satisfied by *worker.Dispatcher. A nil JobEnqueuer disables
// outgoing mail.
type JobEnqueuer interface {
	EnqueueEmail(ctx context.Context, payload worker.EmailJobPayload) error
}

// NewAttendee is the input to RegistryService.Create.
type NewAttendee struct {
	Email    string
	Name     string
	Role     string
	Password string
}

type RegistryService interface {
	Create(ctx context.Context, in NewAttendee) (*model.Attendee, error)
	Register(ctx context.Context, req dto.RegisterAttendeeRequest) (*dto.AttendeeResponse, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Attendee, error)
	FindByEmail(ctx context.Context, email string) (*model.Attendee, error)
	FindByToken(ctx context.Context, token string) (*model.Attendee, error)
	Search(ctx context.Context, query string, limit int) ([]dto.AttendeeResponse, error)
	Profile(ctx context.Context, id uuid.UUID) (*dto.ProfileResponse, error)
}

type registryService struct {
	repo        repository.AttendeeRepository
	jobs        JobEnqueuer
	eventName   string
	tokenPrefix string
	newSuffix   func() string
}

func NewRegistryService(repo repository.AttendeeRepository, jobs JobEnqueuer, eventName, tokenPrefix string) RegistryService {
	return &registryService{
		repo:        repo,
		jobs:        jobs,
		eventName:   eventName,
		tokenPrefix: tokenPrefix,
		newSuffix:   randomSuffix,
	}
}

// randomSuffix returns model.QRTokenSuffixLen upper-case hex characters taken
// from a v4 UUID.
func randomSuffix() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:model.QRTokenSuffixLen])
}

// NormalizeEmail is the canonical stored form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *registryService) Create(ctx context.Context, in NewAttendee) (*model.Attendee, error) {
	email := NormalizeEmail(in.Email)
	role := in.Role
	if role == "" {
		role = model.RoleAttendee
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, newError(ReasonDuplicateEmail, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, internalError("lookup email", err)
	}

	var hash string
	if in.Password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(in.Password), passwordCost)
		if err != nil {
			return nil, internalError("hash password", err)
		}
		hash = string(h)
	}

	for attempt := 1; attempt <= tokenAttempts; attempt++ {
		a := &model.Attendee{
			ID:           uuid.New(),
			Email:        email,
			Name:         strings.TrimSpace(in.Name),
			Role:         role,
			QRToken:      s.tokenPrefix + "-" + s.newSuffix(),
			PasswordHash: hash,
		}
		err := s.repo.Create(ctx, a)
		if err == nil {
			return a, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, internalError("create attendee", err)
		}
		// Either the email raced in from another request or the token collided.
		if _, ferr := s.repo.FindByEmail(ctx, email); ferr == nil {
			return nil, newError(ReasonDuplicateEmail, "email already registered")
		}
		log.Ctx(ctx).Warn().Int("attempt", attempt).Msg("registry: qr token collision, regenerating")
	}
	return nil, internalError("allocate unique qr token", nil)
}

func (s *registryService) Register(ctx context.Context, req dto.RegisterAttendeeRequest) (*dto.AttendeeResponse, error) {
	a, err := s.Create(ctx, NewAttendee{Email: req.Email, Name: req.Name, Role: req.Role, Password: req.Password})
	if err != nil {
		return nil, err
	}

	if s.jobs != nil {
		err := s.jobs.EnqueueEmail(ctx, worker.EmailJobPayload{
			Kind:      worker.EmailWelcome,
			ToEmail:   a.Email,
			Name:      a.Name,
			Role:      a.Role,
			EventName: s.eventName,
			QRToken:   a.QRToken,
		})
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Str("attendee_id", a.ID.String()).Msg("registry: enqueue welcome email failed")
		}
	}

	resp := toAttendeeResponse(a)
	return &resp, nil
}

func (s *registryService) FindByID(ctx context.Context, id uuid.UUID) (*model.Attendee, error) {
	return lookup(s.repo.FindByID(ctx, id))
}

func (s *registryService) FindByEmail(ctx context.Context, email string) (*model.Attendee, error) {
	return lookup(s.repo.FindByEmail(ctx, NormalizeEmail(email)))
}

func (s *registryService) FindByToken(ctx context.Context, token string) (*model.Attendee, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, newError(ReasonNotFound, "attendee not found")
	}
	return lookup(s.repo.FindByToken(ctx, token))
}

func (s *registryService) Search(ctx context.Context, query string, limit int) ([]dto.AttendeeResponse, error) {
	switch {
	case limit <= 0:
		limit = DefaultSearchLimit
	case limit > MaxSearchLimit:
		limit = MaxSearchLimit
	}
	list, err := s.repo.Search(ctx, query, limit)
	if err != nil {
		return nil, internalError("search attendees", err)
	}
	resp := make([]dto.AttendeeResponse, len(list))
	for i := range list {
		resp[i] = toAttendeeResponse(&list[i])
	}
	return resp, nil
}

func (s *registryService) Profile(ctx context.Context, id uuid.UUID) (*dto.ProfileResponse, error) {
	a, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p := toProfileResponse(a)
	return &p, nil
}

// lookup maps a repository read to the domain error vocabulary.
func lookup(a *model.Attendee, err error) (*model.Attendee, error) {
	switch {
	case err == nil:
		return a, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, newError(ReasonNotFound, "attendee not found")
	default:
		return nil, internalError("load attendee", err)
	}
}

func toAttendeeResponse(a *model.Attendee) dto.AttendeeResponse {
	return dto.AttendeeResponse{
		ID: a.ID.String(), Email: a.Email, Name: a.Name, Role: a.Role,
		CheckedIn: a.CheckedIn, CheckedInAt: a.CheckedInAt,
	}
}

func toProfileResponse(a *model.Attendee) dto.ProfileResponse {
	return dto.ProfileResponse{
		ID: a.ID.String(), Email: a.Email, Name: a.Name, Role: a.Role,
		QRToken: a.QRToken, CheckedIn: a.CheckedIn, CheckedInAt: a.CheckedInAt,
	}
}
