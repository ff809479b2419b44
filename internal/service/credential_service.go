package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"multi-merchant-settlement/internal/core/domain"
	"multi-merchant-settlement/internal/core/ports"
	"multi-merchant-settlement/pkg/apperror"

	"github.com/google/uuid"
)

type credentialService struct {
	repo    ports.CredentialRepository
	encSvc  ports.EncryptionService
	gateway ports.ProcessorGateway
}

// NewCredentialService creates the merchant credential management service.
func NewCredentialService(
	repo ports.CredentialRepository,
	encSvc ports.EncryptionService,
	gateway ports.ProcessorGateway,
) ports.CredentialService {
	return &credentialService{
		repo:    repo,
		encSvc:  encSvc,
		gateway: gateway,
	}
}

func (s *credentialService) Save(ctx context.Context, req ports.SaveCredentialRequest) (*domain.MerchantCredential, error) {
	if req.Merchant.UserID <= 0 || req.Merchant.SiteID <= 0 {
		return nil, apperror.Validation("merchant user id and site id are required")
	}
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, apperror.Validation("processor username and password are required")
	}

	passwordEnc, err := s.encSvc.Encrypt(req.Password)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("encrypt password: %w", err))
	}
	apiKeyEnc, err := s.encSvc.Encrypt(strings.TrimSpace(req.APIKey))
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("encrypt api key: %w", err))
	}

	now := time.Now().UTC()
	cred := &domain.MerchantCredential{
		ID:          uuid.New(),
		UserID:      req.Merchant.UserID,
		SiteID:      req.Merchant.SiteID,
		Username:    username,
		PasswordEnc: passwordEnc,
		APIKeyEnc:   apiKeyEnc,
		Active:      req.Active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Upsert(ctx, cred); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("upsert credential: %w", err))
	}
	return cred, nil
}

func (s *credentialService) Get(ctx context.Context, ref domain.MerchantRef) (*domain.MerchantCredential, error) {
	cred, err := s.repo.Get(ctx, ref)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if cred == nil {
		return nil, apperror.ErrNotFound("Merchant credential")
	}
	return cred, nil
}

func (s *credentialService) List(ctx context.Context, activeOnly bool) ([]domain.MerchantCredential, error) {
	creds, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return creds, nil
}

// Test checks plaintext credentials against the processor before they are saved.
func (s *credentialService) Test(ctx context.Context, username, password, apiKey string) bool {
	creds := domain.ProcessorCredentials{Username: username, Password: password, APIKey: apiKey}
	if !creds.IsComplete() {
		return false
	}
	return s.gateway.TestCredentials(ctx, creds)
}

func (s *credentialService) TestStored(ctx context.Context, ref domain.MerchantRef) (bool, error) {
	cred, err := s.Get(ctx, ref)
	if err != nil {
		return false, err
	}
	creds, err := s.Reveal(cred)
	if err != nil {
		return false, err
	}
	if !creds.IsComplete() {
		return false, nil
	}
	return s.gateway.TestCredentials(ctx, creds), nil
}

func (s *credentialService) Deactivate(ctx context.Context, ref domain.MerchantRef) error {
	return s.mapNotFound(s.repo.SetActive(ctx, ref, false))
}

func (s *credentialService) Delete(ctx context.Context, ref domain.MerchantRef) error {
	return s.mapNotFound(s.repo.Delete(ctx, ref))
}

func (s *credentialService) Reveal(cred *domain.MerchantCredential) (domain.ProcessorCredentials, error) {
	password, err := s.encSvc.Decrypt(cred.PasswordEnc)
	if err != nil {
		return domain.ProcessorCredentials{}, apperror.ErrEncryptionFailure(fmt.Errorf("decrypt password for %s: %w", cred.Ref(), err))
	}
	apiKey, err := s.encSvc.Decrypt(cred.APIKeyEnc)
	if err != nil {
		return domain.ProcessorCredentials{}, apperror.ErrEncryptionFailure(fmt.Errorf("decrypt api key for %s: %w", cred.Ref(), err))
	}
	return domain.ProcessorCredentials{
		Username: cred.Username,
		Password: password,
		APIKey:   apiKey,
	}, nil
}

func (s *credentialService) mapNotFound(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNotFound):
		return apperror.ErrNotFound("Merchant credential")
	default:
		return apperror.InternalError(err)
	}
}
