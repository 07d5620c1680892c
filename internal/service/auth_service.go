package service

import (
	"context"
	"errors"
	"time"

	"confcheckin/internal/config"
	"confcheckin/internal/dto"
	"confcheckin/internal/model"
	"confcheckin/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthService issues staff and attendee JWTs. Password management beyond
// login lives elsewhere.
type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error)
}

type authService struct {
	repo repository.AttendeeRepository
	cfg  *config.Config
	now  func() time.Time
}

func NewAuthService(repo repository.AttendeeRepository, cfg *config.Config) AuthService {
	return &authService{repo: repo, cfg: cfg, now: time.Now}
}

var errBadCredentials = newError(ReasonUnauthorized, "invalid credentials")

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.repo.FindByEmail(ctx, NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errBadCredentials
		}
		return nil, internalError("load user", err)
	}
	if user.PasswordHash == "" {
		return nil, errBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errBadCredentials
	}
	return s.issue(user)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error) {
	claims, err := ParseToken(s.cfg.JWTSecret, refreshToken, TokenRefresh)
	if err != nil {
		return nil, err
	}

	// Re-read the record so a role change takes effect on the next refresh.
	user, err := s.repo.FindByID(ctx, uuid.MustParse(claims.UserID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(ReasonUnauthorized, "user not found")
		}
		return nil, internalError("load user", err)
	}
	return s.issue(user)
}

func (s *authService) issue(user *model.Attendee) (*dto.LoginResponse, error) {
	accessToken, err := s.sign(user, TokenAccess, time.Duration(s.cfg.JWTExpirationHours)*time.Hour)
	if err != nil {
		return nil, internalError("sign access token", err)
	}
	refreshToken, err := s.sign(user, TokenRefresh, time.Duration(s.cfg.JWTRefreshHours)*time.Hour)
	if err != nil {
		return nil, internalError("sign refresh token", err)
	}
	return &dto.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    s.cfg.JWTExpirationHours * 3600,
		User:         toProfileResponse(user),
	}, nil
}

func (s *authService) sign(user *model.Attendee, kind string, ttl time.Duration) (string, error) {
	now := s.now()
	return SignToken(s.cfg.JWTSecret, Claims{
		UserID: user.ID.String(),
		Email:  user.Email,
		Role:   user.Role,
		Type:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
}
