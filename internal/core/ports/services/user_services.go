package services

import (
	"context"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	"github.com/ledgermap/ledgermap_backend/internal/dto"
)

// UserReaderSvc defines read operations for user data
type UserReaderSvc interface {
	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, userID string) (*domain.User, error)

	// ListUsers retrieves a paginated list of users.
	ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error)
}

// UserWriterSvc defines write operations for user data
type UserWriterSvc interface {
	// CreateUser creates a new user.
	CreateUser(ctx context.Context, req dto.CreateUserRequest) (*domain.User, error)

	// UpdateUser updates an existing user.
	UpdateUser(ctx context.Context, userID string, req dto.UpdateUserRequest, requestingUserID string) (*domain.User, error)
}

// UserLifecycleSvc defines operations for managing user lifecycle
type UserLifecycleSvc interface {
	// DeleteUser marks a user as deleted (soft delete).
	DeleteUser(ctx context.Context, userID string, requestingUserID string) error
}

// PlatformAuthorizerSvc checks platform-level privileges. Unlike firm roles,
// which scope access to one firm's data, platform-admin gates mutations of
// global reference data shared by every firm.
type PlatformAuthorizerSvc interface {
	// AuthorizePlatformAdmin returns apperrors.ErrForbidden when the user is
	// not a platform admin, and passes through lookup failures unchanged.
	AuthorizePlatformAdmin(ctx context.Context, userID string) error
}

// UserSvcFacade combines all user-related service interfaces
type UserSvcFacade interface {
	UserReaderSvc
	UserWriterSvc
	UserLifecycleSvc
	PlatformAuthorizerSvc
}
