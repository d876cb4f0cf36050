package repositories

import (
	"context"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
)

// TrialBalanceReader defines read operations for trial balance data
type TrialBalanceReader interface {
	// FindTrialBalanceByID retrieves a specific trial balance by its unique identifier.
	FindTrialBalanceByID(ctx context.Context, trialBalanceID string) (*domain.TrialBalance, error)

	// ListTrialBalancesByFirm retrieves a paginated list of trial balances for a firm
	// using token-based pagination, newest first.
	// It returns the trial balances, a token for the next page, and an error.
	ListTrialBalancesByFirm(ctx context.Context, firmID string, limit int, nextToken *string) ([]domain.TrialBalance, *string, error)

	// FindLineByID retrieves a specific trial balance line.
	FindLineByID(ctx context.Context, lineID string) (*domain.TrialBalanceLine, error)

	// ListLines retrieves a paginated list of lines ordered by line number
	// using token-based pagination. A non-nil status restricts the page to
	// lines in that review state.
	ListLines(ctx context.Context, trialBalanceID string, status *domain.LineStatus, limit int, nextToken *string) ([]domain.TrialBalanceLine, *string, error)

	// ListAllLines retrieves every line of a trial balance ordered by line
	// number. Used by suggestion batches and validation, which need the
	// complete set.
	ListAllLines(ctx context.Context, trialBalanceID string) ([]domain.TrialBalanceLine, error)

	// ListDeclaredSubtotals retrieves the independently supplied subtotals for
	// a trial balance.
	ListDeclaredSubtotals(ctx context.Context, trialBalanceID string) ([]domain.DeclaredSubtotal, error)

	// HasConfirmedLines reports whether any line of the trial balance carries
	// a confirmed or manual mapping.
	HasConfirmedLines(ctx context.Context, trialBalanceID string) (bool, error)

	// SumMappedNetByAccount sums the net amounts of confirmed and manually
	// mapped lines grouped by their mapped account code, with the number of
	// contributing lines per account.
	SumMappedNetByAccount(ctx context.Context, trialBalanceID string) ([]domain.MappedAccountNet, error)

	// CountLinesByStatus counts the trial balance's lines grouped by status.
	CountLinesByStatus(ctx context.Context, trialBalanceID string) (map[domain.LineStatus]int, error)
}

// TrialBalanceWriter defines write operations for trial balance data
type TrialBalanceWriter interface {
	// SaveTrialBalance persists a trial balance with its lines and declared
	// subtotals within a single transaction.
	SaveTrialBalance(ctx context.Context, tb domain.TrialBalance, lines []domain.TrialBalanceLine, subtotals []domain.DeclaredSubtotal) error

	// SupersedeTrialBalance persists the replacement trial balance with its
	// lines and subtotals and marks the old trial balance superseded with a
	// pointer to it, all within a single transaction.
	SupersedeTrialBalance(ctx context.Context, oldTrialBalanceID string, tb domain.TrialBalance, lines []domain.TrialBalanceLine, subtotals []domain.DeclaredSubtotal) error

	// ApplyReviewDecision atomically updates the line (guarded by
	// expectedVersion), the reviewed suggestion (when non-nil), and appends
	// the mapping history row (when non-nil). A stale version yields
	// apperrors.ErrVersionConflict and leaves all three untouched.
	ApplyReviewDecision(ctx context.Context, line domain.TrialBalanceLine, expectedVersion int64, suggestion *domain.MappingSuggestion, history *domain.MappingHistory) error

	// ReopenLine atomically resets a terminal line back to suggested and
	// marks its reviewed suggestion reopened. Reopen takes no expected
	// version; it still bumps the line version so in-flight reviews conflict.
	ReopenLine(ctx context.Context, line domain.TrialBalanceLine, suggestionID string) error
}

// TrialBalanceRepositoryFacade combines all trial-balance-related repository interfaces
// This is a facade for clients that need access to all operations
type TrialBalanceRepositoryFacade interface {
	TrialBalanceReader
	TrialBalanceWriter
}

// TrialBalanceRepositoryWithTx extends TrialBalanceRepositoryFacade with transaction capabilities
type TrialBalanceRepositoryWithTx interface {
	TrialBalanceRepositoryFacade
	TransactionManager
}
