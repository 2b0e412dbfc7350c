// Package api implements the optional introspection server (spec.md §9
// Design Notes): read-only flight/stats/LOS-event snapshots, a bearer-token
// guarded admin subset (reload rule config, force a checkpoint), and a
// websocket feed of region-transition and LOS events. Adapted from the
// teacher's cmd/web-server + internal/auth, scoped down to operational
// tooling rather than a multi-user login system.
package api

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidToken is returned when a bearer token fails validation.
var ErrInvalidToken = errors.New("invalid or expired token")

// ErrInvalidCredentials is returned when the admin password doesn't match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// adminClaims is the JWT payload minted for the single admin principal.
// There is no per-user identity here: CanManageUsers-style RBAC from the
// teacher's multi-role system doesn't apply to a one-operator admin guard.
type adminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthConfig configures an AuthService.
type AuthConfig struct {
	// JWTSecret signs and verifies admin bearer tokens. An AuthService
	// built with an empty secret rejects every login and every token.
	JWTSecret string

	// AdminPasswordHash is a bcrypt hash of the admin password, checked by
	// Login. Left empty, Login always fails closed.
	AdminPasswordHash string

	TokenDuration time.Duration
}

// AuthService mints and validates the admin bearer token.
type AuthService struct {
	cfg AuthConfig
}

// NewAuthService builds an AuthService, defaulting TokenDuration to one hour.
func NewAuthService(cfg AuthConfig) *AuthService {
	if cfg.TokenDuration == 0 {
		cfg.TokenDuration = time.Hour
	}
	return &AuthService{cfg: cfg}
}

// HashAdminPassword bcrypt-hashes password for storage in configuration.
func HashAdminPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Login checks password against the configured admin hash and, on success,
// mints a signed bearer token good for the admin subset of the API.
func (s *AuthService) Login(password string) (string, error) {
	if s.cfg.JWTSecret == "" || s.cfg.AdminPasswordHash == "" {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.AdminPasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	claims := &adminClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.cfg.TokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "adsbactions",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// ValidateToken verifies tokenString's signature and expiry.
func (s *AuthService) ValidateToken(tokenString string) error {
	if s.cfg.JWTSecret == "" {
		return ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &adminClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
