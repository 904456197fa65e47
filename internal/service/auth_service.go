package service

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/dismissal-api/internal/dto"
	"github.com/noah-isme/dismissal-api/internal/middleware"
)

// ErrInvalidAdminCode indicates the staff code did not match.
var ErrInvalidAdminCode = errors.New("invalid admin code")

// AuthService exchanges the shared staff code for a staff token.
type AuthService interface {
	IssueStaffToken(code string) (dto.StaffTokenResponse, error)
}

type authService struct {
	code   string
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

// NewAuthService constructs the staff gate.
func NewAuthService(code, secret string, ttl time.Duration, logger zerolog.Logger) AuthService {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &authService{
		code:   strings.TrimSpace(code),
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		logger: logger.With().Str("component", "auth_service").Logger(),
	}
}

func (s *authService) IssueStaffToken(code string) (dto.StaffTokenResponse, error) {
	candidate := strings.TrimSpace(code)
	if s.code == "" || subtle.ConstantTimeCompare([]byte(s.code), []byte(candidate)) != 1 {
		s.logger.Warn().Msg("staff code rejected")
		return dto.StaffTokenResponse{}, ErrInvalidAdminCode
	}

	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.ttl)
	claims := jwt.MapClaims{
		"sub":  "staff:" + uuid.NewString(),
		"role": middleware.RoleTeacher,
		"iat":  issuedAt.Unix(),
		"exp":  expiresAt.Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return dto.StaffTokenResponse{}, err
	}

	s.logger.Info().Time("expires_at", expiresAt).Msg("staff token issued")
	return dto.StaffTokenResponse{
		Token:     signed,
		Role:      middleware.RoleTeacher,
		ExpiresAt: expiresAt.UTC(),
	}, nil
}
