package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid admin id or password")
	ErrInvalidToken       = errors.New("invalid token")
)

// Claims represents the JWT claims of an admin session
type Claims struct {
	AdminID int64  `json:"admin_id"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService defines the interface for admin authentication
type AuthService interface {
	// AdminLogin authenticates an administrator by id and shared password
	// and returns a signed access token.
	AdminLogin(adminID int64, password string) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
	IsAdmin(userID int64) bool
}

type authService struct {
	jwtSecret    string
	passwordHash string
	adminIDs     map[int64]struct{}
	tokenExpiry  time.Duration
	logger       *zap.Logger
}

// NewAuthService creates a new instance of AuthService
func NewAuthService(jwtSecret, passwordHash string, adminIDs []int64, tokenExpiry time.Duration, logger *zap.Logger) AuthService {
	ids := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		ids[id] = struct{}{}
	}
	return &authService{
		jwtSecret:    jwtSecret,
		passwordHash: passwordHash,
		adminIDs:     ids,
		tokenExpiry:  tokenExpiry,
		logger:       logger,
	}
}

func (s *authService) AdminLogin(adminID int64, password string) (string, error) {
	if !s.IsAdmin(adminID) {
		s.logger.Warn("Login attempt from non-admin id", zap.Int64("admin_id", adminID))
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	now := time.Now()
	claims := &Claims{
		AdminID: adminID,
		Role:    "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	s.logger.Info("Admin logged in", zap.Int64("admin_id", adminID))
	return tokenString, nil
}

// ValidateToken parses and validates an access token and returns its claims
func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// IsAdmin reports whether the id is on the administrator allow-list
func (s *authService) IsAdmin(userID int64) bool {
	_, ok := s.adminIDs[userID]
	return ok
}
