package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ledgermap/ledgermap_backend/internal/apperrors"
	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	"github.com/ledgermap/ledgermap_backend/internal/core/ports/repositories"
	portssvc "github.com/ledgermap/ledgermap_backend/internal/core/ports/services"
	"github.com/ledgermap/ledgermap_backend/internal/utils"
)

// API tokens authenticate sync agents that push trial balance exports without
// an interactive session. The plaintext form is "lmt_<tokenID>.<secret>"; the
// embedded ID locates the record so the secret can be checked against its
// bcrypt hash without scanning the table.
const apiTokenPrefix = "lmt_"

const apiTokenSecretBytes = 32

// apiTokenService implements the APITokenSvc interface
type apiTokenService struct {
	BaseService
	tokenRepo repositories.APITokenRepository
	userSvc   portssvc.UserSvcFacade
}

// NewAPITokenService creates a new instance of apiTokenService
func NewAPITokenService(tokenRepo repositories.APITokenRepository, userSvc portssvc.UserSvcFacade) portssvc.APITokenSvc {
	return &apiTokenService{
		tokenRepo: tokenRepo,
		userSvc:   userSvc,
	}
}

var _ portssvc.APITokenSvc = (*apiTokenService)(nil)

// CreateToken generates a new API token for the user
func (s *apiTokenService) CreateToken(ctx context.Context, userID, name string, expiresIn *time.Duration) (string, *domain.APIToken, error) {
	if userID == "" {
		return "", nil, fmt.Errorf("%w: user ID is required", apperrors.ErrValidation)
	}
	if name == "" {
		return "", nil, fmt.Errorf("%w: token name is required", apperrors.ErrValidation)
	}

	tokenID := uuid.NewString()
	secret, err := utils.GenerateSecureRandomString(apiTokenSecretBytes)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token secret: %w", err)
	}

	// Only the secret half is hashed; the ID half is the lookup key.
	secretHash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("failed to hash token secret: %w", err)
	}

	var expiresAt *time.Time
	if expiresIn != nil {
		expiry := time.Now().Add(*expiresIn)
		expiresAt = &expiry
	}

	apiToken := &domain.APIToken{
		ID:        tokenID,
		UserID:    userID,
		Name:      name,
		TokenHash: string(secretHash),
		ExpiresAt: expiresAt,
	}

	if err := s.tokenRepo.Create(ctx, apiToken); err != nil {
		s.LogError(ctx, err, "Failed to save API token", slog.String("user_id", userID))
		return "", nil, fmt.Errorf("failed to save token: %w", err)
	}

	// The plaintext token is only available here, never again.
	plaintext := apiTokenPrefix + tokenID + "." + secret
	return plaintext, apiToken, nil
}

// ListTokens returns all API tokens for a user
func (s *apiTokenService) ListTokens(ctx context.Context, userID string) ([]domain.APIToken, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user ID is required", apperrors.ErrValidation)
	}

	tokens, err := s.tokenRepo.FindByUserID(ctx, userID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list API tokens", slog.String("user_id", userID))
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	return tokens, nil
}

// RevokeToken deletes a specific API token for a user
func (s *apiTokenService) RevokeToken(ctx context.Context, userID, tokenID string) error {
	if userID == "" || tokenID == "" {
		return fmt.Errorf("%w: user ID and token ID are required", apperrors.ErrValidation)
	}

	token, err := s.tokenRepo.FindByID(ctx, tokenID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find API token", slog.String("token_id", tokenID))
		}
		return err
	}
	if token.UserID != userID {
		// Do not reveal that the token exists under another user
		return apperrors.ErrNotFound
	}

	if err := s.tokenRepo.Delete(ctx, tokenID); err != nil {
		s.LogError(ctx, err, "Failed to revoke API token", slog.String("token_id", tokenID))
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// RevokeAllTokens deletes all API tokens for a user
func (s *apiTokenService) RevokeAllTokens(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user ID is required", apperrors.ErrValidation)
	}

	if err := s.tokenRepo.DeleteByUserID(ctx, userID); err != nil {
		s.LogError(ctx, err, "Failed to revoke all API tokens", slog.String("user_id", userID))
		return fmt.Errorf("failed to revoke all tokens: %w", err)
	}
	return nil
}

// ValidateToken checks if a token is valid and returns the associated user
func (s *apiTokenService) ValidateToken(ctx context.Context, tokenString string) (*domain.User, error) {
	tokenID, secret, err := splitAPIToken(tokenString)
	if err != nil {
		return nil, err
	}

	token, err := s.tokenRepo.FindByID(ctx, tokenID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid token", apperrors.ErrUnauthorized)
		}
		s.LogError(ctx, err, "Failed to find API token", slog.String("token_id", tokenID))
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(token.TokenHash), []byte(secret)); err != nil {
		return nil, fmt.Errorf("%w: invalid token", apperrors.ErrUnauthorized)
	}

	if token.IsExpired() {
		// Auto-revoke expired tokens
		if err := s.tokenRepo.Delete(ctx, token.ID); err != nil {
			s.LogWarn(ctx, "Failed to delete expired API token", slog.String("token_id", token.ID))
		}
		return nil, fmt.Errorf("%w: token has expired", apperrors.ErrUnauthorized)
	}

	// Track usage; validation succeeds even if the touch fails.
	token.UpdateLastUsed()
	if err := s.tokenRepo.Update(ctx, token); err != nil {
		s.LogWarn(ctx, "Failed to update token last used timestamp", slog.String("token_id", token.ID))
	}

	user, err := s.userSvc.GetUserByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: token user no longer exists", apperrors.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to get user for token: %w", err)
	}
	return user, nil
}

// splitAPIToken parses the plaintext token into its ID and secret halves.
func splitAPIToken(tokenString string) (tokenID, secret string, err error) {
	rest, ok := strings.CutPrefix(tokenString, apiTokenPrefix)
	if !ok || rest == "" {
		return "", "", fmt.Errorf("%w: malformed token", apperrors.ErrUnauthorized)
	}
	tokenID, secret, ok = strings.Cut(rest, ".")
	if !ok || tokenID == "" || secret == "" {
		return "", "", fmt.Errorf("%w: malformed token", apperrors.ErrUnauthorized)
	}
	return tokenID, secret, nil
}
