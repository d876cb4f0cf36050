package services

import (
	"context"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
)

// FirmReaderSvc defines read operations for firm data
type FirmReaderSvc interface {
	// FindFirmByID retrieves a specific firm by its ID.
	FindFirmByID(ctx context.Context, firmID string) (*domain.Firm, error)

	// ListUserFirms retrieves the firms a user belongs to.
	// If includeDisabled is true, it includes inactive firms.
	ListUserFirms(ctx context.Context, userID string, includeDisabled bool) ([]domain.Firm, error)

	// ListFirmUsers retrieves all users and their roles for a specific firm.
	// Only members of the firm can access this data.
	ListFirmUsers(ctx context.Context, firmID string, requestingUserID string) ([]domain.FirmMember, error)
}

// FirmWriterSvc defines write operations for firm data
type FirmWriterSvc interface {
	// CreateFirm persists a new firm and enrolls the creator as its admin.
	CreateFirm(ctx context.Context, name, description, creatorUserID string) (*domain.Firm, error)

	// DeactivateFirm marks a firm as inactive.
	DeactivateFirm(ctx context.Context, firmID string, requestingUserID string) error

	// ActivateFirm marks a firm as active.
	ActivateFirm(ctx context.Context, firmID string, requestingUserID string) error
}

// FirmMembershipSvc defines operations for managing firm membership
type FirmMembershipSvc interface {
	// AddUserToFirm adds a user to a firm with a specific role.
	AddUserToFirm(ctx context.Context, addingUserID, targetUserID, firmID string, role domain.FirmRole) error

	// RemoveUserFromFirm removes a user from a firm.
	// Only firm admins can remove users from a firm.
	RemoveUserFromFirm(ctx context.Context, requestingUserID, targetUserID, firmID string) error

	// UpdateUserFirmRole updates a user's role in a firm.
	// Only firm admins can update user roles.
	UpdateUserFirmRole(ctx context.Context, requestingUserID, targetUserID, firmID string, newRole domain.FirmRole) error
}

// FirmAuthorizerSvc defines operations for firm authorization
type FirmAuthorizerSvc interface {
	// AuthorizeUserAction checks if a user has required permissions for a firm.
	AuthorizeUserAction(ctx context.Context, userID, firmID string, requiredRole domain.FirmRole) error
}

// FirmSvcFacade combines all firm-related service interfaces
// This is a facade for clients that need access to all operations
type FirmSvcFacade interface {
	FirmReaderSvc
	FirmWriterSvc
	FirmMembershipSvc
	FirmAuthorizerSvc
}
