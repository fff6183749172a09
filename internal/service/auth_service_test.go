package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/cnhs-records-api/internal/models"
	appErrors "github.com/noah-isme/cnhs-records-api/pkg/errors"
)

func newAuth(t *testing.T, cfg AuthConfig) *AuthService {
	t.Helper()
	if cfg.AccessTokenSecret == "" {
		cfg.AccessTokenSecret = "test-secret"
	}
	if cfg.AdminEmail == "" {
		cfg.AdminEmail = "admin@cnhs.edu.ph"
	}
	svc, err := NewAuthService(nil, nil, cfg)
	require.NoError(t, err)
	return svc
}

func TestLoginIssuesToken(t *testing.T) {
	svc := newAuth(t, AuthConfig{AdminPassword: "admin123", Issuer: "cnhs-records-api", AccessTokenExpiry: time.Hour})

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: " Admin@CNHS.edu.ph", Password: "admin123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, defaultActivityUser, resp.User.FullName)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin@cnhs.edu.ph", claims.Subject)
	assert.Equal(t, "cnhs-records-api", claims.Issuer)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newAuth(t, AuthConfig{AdminPassword: "admin123"})
	ctx := context.Background()

	_, err := svc.Login(ctx, models.LoginRequest{Email: "admin@cnhs.edu.ph", Password: "wrong"})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = svc.Login(ctx, models.LoginRequest{Email: "other@cnhs.edu.ph", Password: "admin123"})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = svc.Login(ctx, models.LoginRequest{Email: "not-an-email", Password: "admin123"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestLoginWithConfiguredHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	svc := newAuth(t, AuthConfig{AdminPassword: "ignored", AdminPasswordHash: string(hash)})

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "admin@cnhs.edu.ph", Password: "s3cret"})
	require.NoError(t, err)
	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "admin@cnhs.edu.ph", Password: "ignored"})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestNewAuthServiceRejectsBadConfig(t *testing.T) {
	_, err := NewAuthService(nil, nil, AuthConfig{AdminPassword: "x"})
	assert.Error(t, err)
	_, err = NewAuthService(nil, nil, AuthConfig{AccessTokenSecret: "s"})
	assert.Error(t, err)
	_, err = NewAuthService(nil, nil, AuthConfig{AccessTokenSecret: "s", AdminPasswordHash: "plain"})
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpiredAndForeign(t *testing.T) {
	svc := newAuth(t, AuthConfig{AdminPassword: "admin123", AccessTokenExpiry: time.Minute})
	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@cnhs.edu.ph", Password: "admin123"})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = svc.ValidateToken(resp.AccessToken)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))

	other := newAuth(t, AuthConfig{AdminPassword: "admin123", AccessTokenSecret: "other-secret"})
	_, err = other.ValidateToken(resp.AccessToken)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))

	_, err = svc.ValidateToken("garbage")
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}
