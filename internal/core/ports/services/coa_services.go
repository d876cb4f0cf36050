package services

import (
	"context"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	"github.com/ledgermap/ledgermap_backend/internal/dto"
)

// COAReaderSvc defines read operations over the canonical chart of accounts.
type COAReaderSvc interface {
	// GetAccountByCode retrieves a single canonical account by its code.
	GetAccountByCode(ctx context.Context, code string) (*domain.Account, error)

	// ListAccounts retrieves the full canonical chart of accounts.
	ListAccounts(ctx context.Context) ([]domain.Account, error)

	// ListChildren retrieves the direct children of the given account code.
	ListChildren(ctx context.Context, code string) ([]domain.Account, error)

	// Taxonomy returns an immutable in-memory snapshot of the chart of
	// accounts, indexed for traversal and concept lookup.
	Taxonomy(ctx context.Context) (*domain.Taxonomy, error)
}

// COAWriterSvc defines write operations over the canonical chart of accounts.
type COAWriterSvc interface {
	// CreateAccount adds a new account to the canonical chart.
	CreateAccount(ctx context.Context, req dto.CreateAccountRequest, creatorUserID string) (*domain.Account, error)

	// UpdateAccount updates the mutable attributes of an existing account.
	// Structural fields (code, parent, type) are frozen once the account has
	// confirmed mappings against it.
	UpdateAccount(ctx context.Context, code string, req dto.UpdateAccountRequest, updaterUserID string) (*domain.Account, error)

	// DeactivateAccount marks an account inactive so it stops being a mapping
	// target. Fails if any descendant is still active.
	DeactivateAccount(ctx context.Context, code string, deleterUserID string) error

	// ImportAccounts bulk-loads canonical accounts, validating the tree as a
	// whole before persisting. Used by administrative tooling.
	ImportAccounts(ctx context.Context, req dto.ImportAccountsRequest, creatorUserID string) ([]domain.Account, error)
}

// COASvcFacade combines all chart-of-accounts service interfaces.
type COASvcFacade interface {
	COAReaderSvc
	COAWriterSvc
}
