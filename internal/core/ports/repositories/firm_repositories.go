package repositories

import (
	"context"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
)

// FirmReader defines read operations for firm data
type FirmReader interface {
	// FindFirmByID retrieves a specific firm by its ID.
	FindFirmByID(ctx context.Context, firmID string) (*domain.Firm, error)

	// ListFirmsByUserID retrieves all firms a user belongs to. Memberships
	// with the REMOVED role are excluded.
	ListFirmsByUserID(ctx context.Context, userID string) ([]domain.Firm, error)

	// ListFirmMembers retrieves all memberships of a firm, joined with user
	// names, excluding removed members.
	ListFirmMembers(ctx context.Context, firmID string) ([]domain.FirmMember, error)
}

// FirmWriter defines write operations for firm data
type FirmWriter interface {
	// SaveFirm persists a new firm.
	SaveFirm(ctx context.Context, firm domain.Firm) error

	// UpdateFirm updates an existing firm's mutable fields.
	UpdateFirm(ctx context.Context, firm domain.Firm) error
}

// FirmMembershipManager defines operations for managing firm memberships
type FirmMembershipManager interface {
	// AddUserToFirm adds a user to a firm with a specific role.
	AddUserToFirm(ctx context.Context, membership domain.FirmMember) error

	// FindUserFirmRole retrieves the role of a user in a firm.
	FindUserFirmRole(ctx context.Context, userID, firmID string) (*domain.FirmMember, error)

	// UpdateUserFirmRole changes the role of an existing membership. Removal
	// is modeled as a role change to REMOVED.
	UpdateUserFirmRole(ctx context.Context, userID, firmID string, role domain.FirmRole) error
}

// FirmRepositoryFacade combines all firm-related repository interfaces
// This is a facade for clients that need access to all operations
type FirmRepositoryFacade interface {
	FirmReader
	FirmWriter
	FirmMembershipManager
}

// FirmRepositoryWithTx extends FirmRepositoryFacade with transaction capabilities
type FirmRepositoryWithTx interface {
	FirmRepositoryFacade
	TransactionManager
}
