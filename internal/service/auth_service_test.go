package service

import (
	"context"
	"testing"
	"time"

	"confcheckin/internal/config"
	"confcheckin/internal/dto"
	"confcheckin/internal/model"
	"confcheckin/internal/repository/repotest"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test_jwt_secret_32_chars_minimum!"

func newTestCfg() *config.Config {
	return &config.Config{
		JWTSecret:          testSecret,
		JWTExpirationHours: 8,
		JWTRefreshHours:    24,
	}
}

func seedStaffWithPassword(t *testing.T, repo *repotest.MemoryAttendees, email, password string) *model.Attendee {
	t.Helper()
	a, err := newRegistry(repo, nil).Create(context.Background(), NewAttendee{
		Email: email, Name: "Staff", Role: model.RoleStaff, Password: password,
	})
	require.NoError(t, err)
	return a
}

func TestLogin_IssuesTokenWithRoleClaims(t *testing.T) {
	repo := repotest.NewMemoryAttendees()
	staff := seedStaffWithPassword(t, repo, "ops@example.com", "hunter22")
	svc := NewAuthService(repo, newTestCfg())

	resp, err := svc.Login(context.Background(), dto.LoginRequest{Email: "OPS@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, 8*3600, resp.ExpiresIn)
	assert.Equal(t, staff.QRToken, resp.User.QRToken)

	claims, err := ParseToken(testSecret, resp.AccessToken, TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, staff.ID.String(), claims.UserID)
	assert.Equal(t, model.RoleStaff, claims.Role)
	assert.Equal(t, "ops@example.com", claims.Email)

	_, err = ParseToken(testSecret, resp.RefreshToken, TokenAccess)
	assert.True(t, IsReason(err, ReasonUnauthorized), "refresh token is not an access token")
}

func TestLogin_RejectsBadCredentials(t *testing.T) {
	repo := repotest.NewMemoryAttendees()
	seedStaffWithPassword(t, repo, "ops@example.com", "hunter22")
	seedAttendee(t, repo, "No Password", "nopw@example.com", model.RoleAttendee, "SC2026-NOPW")
	svc := NewAuthService(repo, newTestCfg())
	ctx := context.Background()

	_, err := svc.Login(ctx, dto.LoginRequest{Email: "ops@example.com", Password: "wrong-pass"})
	assert.True(t, IsReason(err, ReasonUnauthorized))

	_, err = svc.Login(ctx, dto.LoginRequest{Email: "ghost@example.com", Password: "hunter22"})
	assert.True(t, IsReason(err, ReasonUnauthorized))

	_, err = svc.Login(ctx, dto.LoginRequest{Email: "nopw@example.com", Password: ""})
	assert.True(t, IsReason(err, ReasonUnauthorized))
}

func TestRefresh(t *testing.T) {
	repo := repotest.NewMemoryAttendees()
	seedStaffWithPassword(t, repo, "ops@example.com", "hunter22")
	svc := NewAuthService(repo, newTestCfg())
	ctx := context.Background()

	login, err := svc.Login(ctx, dto.LoginRequest{Email: "ops@example.com", Password: "hunter22"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Equal(t, login.User.ID, refreshed.User.ID)

	_, err = svc.Refresh(ctx, "not-a-jwt")
	assert.True(t, IsReason(err, ReasonUnauthorized))

	_, err = svc.Refresh(ctx, login.AccessToken)
	assert.True(t, IsReason(err, ReasonUnauthorized), "access tokens cannot refresh")

	expired, err := SignToken(testSecret, Claims{
		UserID: login.User.ID,
		Type:   TokenRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, expired)
	assert.True(t, IsReason(err, ReasonUnauthorized))

	unknown, err := SignToken(testSecret, Claims{
		UserID: "6f1c2a52-5d0c-4e0c-9d54-6c3f0b7e7a11",
		Type:   TokenRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, unknown)
	assert.True(t, IsReason(err, ReasonUnauthorized))
}
