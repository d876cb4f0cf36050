package repositories

import (
	"context"
	"time"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
)

// AccountReader defines read operations for canonical chart-of-accounts data
type AccountReader interface {
	// FindAccountByCode retrieves a specific account by its canonical code.
	FindAccountByCode(ctx context.Context, code string) (*domain.Account, error)

	// ListAccounts retrieves the whole taxonomy, ordered by code. The canonical
	// chart is bounded reference data, so no pagination is applied.
	ListAccounts(ctx context.Context) ([]domain.Account, error)

	// ListChildren retrieves the direct children of an account, ordered by code.
	ListChildren(ctx context.Context, parentCode string) ([]domain.Account, error)

	// HasConfirmedMappingsForCodes reports whether any of the given account
	// codes is referenced by a confirmed or manual mapping.
	HasConfirmedMappingsForCodes(ctx context.Context, codes []string) (bool, error)
}

// AccountWriter defines write operations for canonical chart-of-accounts data
type AccountWriter interface {
	// SaveAccount persists a new account. When flipParentLeaf is set, the
	// parent's leaf flag is cleared within the same transaction.
	SaveAccount(ctx context.Context, account domain.Account, flipParentLeaf bool) error

	// SaveAccounts persists a validated batch of new accounts in one
	// transaction. clearLeafCodes lists pre-existing parents whose leaf flag
	// must be cleared because the batch adds children under them.
	SaveAccounts(ctx context.Context, accounts []domain.Account, clearLeafCodes []string) error

	// UpdateAccount updates an existing account's details.
	UpdateAccount(ctx context.Context, account domain.Account) error

	// DeactivateAccount marks an account as inactive.
	DeactivateAccount(ctx context.Context, code string, userID string, now time.Time) error
}

// AccountRepositoryFacade combines all account-related repository interfaces
// This is a facade for clients that need access to all operations
type AccountRepositoryFacade interface {
	AccountReader
	AccountWriter
}

// AccountRepositoryWithTx extends AccountRepositoryFacade with transaction capabilities
type AccountRepositoryWithTx interface {
	AccountRepositoryFacade
	TransactionManager
}
