package repositories

import (
	"context"
	"time"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
)

// UserReader reads reviewer and operator identities. Audit fields and
// mapping history reference users by ID, so reads must resolve soft-deleted
// profiles as not found without breaking those references.
type UserReader interface {
	// FindUserByID retrieves a user by ID. Soft-deleted users return
	// apperrors.ErrNotFound.
	FindUserByID(ctx context.Context, userID string) (*domain.User, error)

	// FindUsers retrieves a paginated directory of active users.
	FindUsers(ctx context.Context, limit int, offset int) ([]domain.User, error)
}

// UserWriter persists user profiles.
type UserWriter interface {
	// SaveUser persists a newly provisioned user.
	SaveUser(ctx context.Context, user domain.User) error

	// UpdateUser updates an existing user's profile fields.
	UpdateUser(ctx context.Context, user domain.User) error
}

// UserLifecycleManager manages the end of a user's life on the platform.
type UserLifecycleManager interface {
	// MarkUserDeleted soft-deletes a user. The row survives so past mapping
	// decisions keep a resolvable reviewer identity.
	MarkUserDeleted(ctx context.Context, userID string, deletedAt time.Time, deletedBy string) error
}

// UserRepositoryFacade combines all user-related repository interfaces.
type UserRepositoryFacade interface {
	UserReader
	UserWriter
	UserLifecycleManager
}
