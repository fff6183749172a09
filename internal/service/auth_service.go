package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/cnhs-records-api/internal/models"
	appErrors "github.com/noah-isme/cnhs-records-api/pkg/errors"
)

// AuthConfig defines the single portal account and token settings.
type AuthConfig struct {
	AdminEmail        string
	AdminPassword     string
	AdminPasswordHash string
	AdminFullName     string
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
}

// AuthService is the portal login gate: one configured administrator,
// a bcrypt-checked password and an HS256 access token.
type AuthService struct {
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	hash      []byte
	now       func() time.Time
}

// NewAuthService constructs an AuthService. When no password hash is
// configured the plain password is hashed once here.
func NewAuthService(validate *validator.Validate, logger *zap.Logger, config AuthConfig) (*AuthService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 12 * time.Hour
	}
	if config.AdminFullName == "" {
		config.AdminFullName = defaultActivityUser
	}
	if config.AccessTokenSecret == "" {
		return nil, fmt.Errorf("access token secret is required")
	}

	hash := []byte(config.AdminPasswordHash)
	if len(hash) == 0 {
		if config.AdminPassword == "" {
			return nil, fmt.Errorf("admin password or password hash is required")
		}
		generated, err := bcrypt.GenerateFromPassword([]byte(config.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
		hash = generated
		logger.Warn("admin password hash not configured; using hashed plain password")
	} else if _, err := bcrypt.Cost(hash); err != nil {
		return nil, fmt.Errorf("admin password hash: %w", err)
	}
	config.AdminPassword = ""

	return &AuthService{validator: validate, logger: logger, config: config, hash: hash, now: time.Now}, nil
}

// Login checks the credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid login payload")
	}
	emailOK := subtle.ConstantTimeCompare(
		[]byte(strings.ToLower(strings.TrimSpace(req.Email))),
		[]byte(strings.ToLower(s.config.AdminEmail)),
	) == 1
	passwordErr := bcrypt.CompareHashAndPassword(s.hash, []byte(req.Password))
	if !emailOK || passwordErr != nil {
		s.logger.Info("portal login rejected", zap.String("email", req.Email))
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	issuedAt := s.now().UTC()
	token, err := s.generateAccessToken(issuedAt)
	if err != nil {
		return nil, internalErr(err, "failed to create access token")
	}
	s.logger.Info("portal login", zap.String("email", s.config.AdminEmail))
	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:    issuedAt,
		User:        s.user(),
	}, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}
	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

func (s *AuthService) user() models.UserInfo {
	return models.UserInfo{Email: s.config.AdminEmail, FullName: s.config.AdminFullName, Role: models.RoleAdmin}
}

func (s *AuthService) generateAccessToken(issuedAt time.Time) (string, error) {
	user := s.user()
	claims := &models.JWTClaims{
		Email:    user.Email,
		FullName: user.FullName,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.Email,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.AccessTokenSecret))
}
