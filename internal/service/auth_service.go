package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"multi-merchant-settlement/internal/core/ports"
	"multi-merchant-settlement/pkg/apperror"
)

// AdminAuthServiceImpl implements ports.AdminAuthService for the single
// installation admin configured under admin.*.
type AdminAuthServiceImpl struct {
	username     string
	passwordHash string
	hashSvc      ports.HashService
	tokenSvc     ports.TokenService
}

// NewAdminAuthService creates a new AdminAuthServiceImpl. An empty password
// hash disables admin login.
func NewAdminAuthService(
	username string,
	passwordHash string,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
) *AdminAuthServiceImpl {
	return &AdminAuthServiceImpl{
		username:     username,
		passwordHash: passwordHash,
		hashSvc:      hashSvc,
		tokenSvc:     tokenSvc,
	}
}

// Login validates credentials and returns a JWT token.
func (s *AdminAuthServiceImpl) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	if s.passwordHash == "" {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}
	if subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) != 1 {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	valid, err := s.hashSvc.Verify(password, s.passwordHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	token, expiry, err := s.tokenSvc.Generate(username)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	return token, expiry, nil
}
