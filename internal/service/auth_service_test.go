package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"multi-merchant-settlement/internal/core/ports/mocks"
	"multi-merchant-settlement/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func setupAdminAuth(t *testing.T, passwordHash string) (*AdminAuthServiceImpl, *mocks.MockHashService, *mocks.MockTokenService) {
	ctrl := gomock.NewController(t)
	hashSvc := mocks.NewMockHashService(ctrl)
	tokenSvc := mocks.NewMockTokenService(ctrl)
	return NewAdminAuthService("admin", passwordHash, hashSvc, tokenSvc), hashSvc, tokenSvc
}

func TestAdminAuthService_Login_Success(t *testing.T) {
	svc, hashSvc, tokenSvc := setupAdminAuth(t, "$argon2id$hash")
	expiry := time.Now().Add(8 * time.Hour)

	hashSvc.EXPECT().Verify("s3cret", "$argon2id$hash").Return(true, nil)
	tokenSvc.EXPECT().Generate("admin").Return("jwt-token", expiry, nil)

	token, exp, err := svc.Login(context.Background(), "admin", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", token)
	assert.Equal(t, expiry, exp)
}

func TestAdminAuthService_Login_WrongUsername(t *testing.T) {
	svc, _, _ := setupAdminAuth(t, "$argon2id$hash")

	_, _, err := svc.Login(context.Background(), "root", "s3cret")
	assert.True(t, apperror.HasPrefix(err, "AUTH_001"))
}

func TestAdminAuthService_Login_WrongPassword(t *testing.T) {
	svc, hashSvc, _ := setupAdminAuth(t, "$argon2id$hash")
	hashSvc.EXPECT().Verify("nope", "$argon2id$hash").Return(false, nil)

	_, _, err := svc.Login(context.Background(), "admin", "nope")
	assert.True(t, apperror.HasPrefix(err, "AUTH_001"))
}

func TestAdminAuthService_Login_Disabled(t *testing.T) {
	svc, _, _ := setupAdminAuth(t, "")

	_, _, err := svc.Login(context.Background(), "admin", "anything")
	assert.True(t, apperror.HasPrefix(err, "AUTH_001"))
}

func TestAdminAuthService_Login_CorruptHash(t *testing.T) {
	svc, hashSvc, _ := setupAdminAuth(t, "garbage")
	hashSvc.EXPECT().Verify("s3cret", "garbage").Return(false, errors.New("invalid hash"))

	_, _, err := svc.Login(context.Background(), "admin", "s3cret")
	assert.True(t, apperror.HasPrefix(err, "SYS_001"))
}

func TestAdminAuthService_Login_TokenFailure(t *testing.T) {
	svc, hashSvc, tokenSvc := setupAdminAuth(t, "$argon2id$hash")
	hashSvc.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(true, nil)
	tokenSvc.EXPECT().Generate("admin").Return("", time.Time{}, errors.New("sign failed"))

	_, _, err := svc.Login(context.Background(), "admin", "s3cret")
	assert.True(t, apperror.HasPrefix(err, "SYS_001"))
}
