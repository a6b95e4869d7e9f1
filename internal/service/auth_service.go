package service

import (
	"crypto/subtle"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/storyline-app/storyline-api/internal/models"
	"github.com/storyline-app/storyline-api/pkg/config"
	appErrors "github.com/storyline-app/storyline-api/pkg/errors"
)

// AuthService issues and validates the administrator token. A single signed,
// time-boxed bearer credential is the only admin authentication scheme.
type AuthService struct {
	cfg    config.AdminConfig
	logger *zap.Logger
	clock  func() time.Time
}

// NewAuthService constructs an AuthService.
func NewAuthService(cfg config.AdminConfig, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{cfg: cfg, logger: logger, clock: time.Now}
}

// Login checks the admin password and returns a signed token on success.
func (s *AuthService) Login(password string) (string, error) {
	if password == "" || !s.passwordMatches(password) {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "Invalid password")
	}

	now := s.clock()
	claims := models.AdminClaims{
		Admin: true,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenExpiry)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}

	s.logger.Info("admin login")
	return token, nil
}

// ValidateToken parses a bearer token and verifies the admin claim.
func (s *AuthService) ValidateToken(token string) (*models.AdminClaims, error) {
	claims := &models.AdminClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !parsed.Valid || !claims.Admin {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "Invalid or expired token")
	}
	return claims, nil
}

func (s *AuthService) passwordMatches(password string) bool {
	if s.cfg.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(s.cfg.PasswordHash), []byte(password)) == nil
	}
	if s.cfg.Password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.cfg.Password), []byte(password)) == 1
}
