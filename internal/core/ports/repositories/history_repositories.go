package repositories

import (
	"context"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
)

// HistoryReader defines read operations for the append-only mapping history.
// History rows are written only inside the review decision transaction (see
// TrialBalanceWriter.ApplyReviewDecision); no standalone writer exists, which
// keeps the store append-only by construction.
type HistoryReader interface {
	// FindPrecedents retrieves the firm's prior confirmed mappings whose
	// normalized source text matches exactly, newest first.
	FindPrecedents(ctx context.Context, firmID string, normalizedSource string) ([]domain.MappingHistory, error)

	// FindPrecedentsGlobal retrieves prior confirmed mappings across all
	// firms for the normalized source text, newest first.
	FindPrecedentsGlobal(ctx context.Context, normalizedSource string) ([]domain.MappingHistory, error)

	// ListHistoryByAccountCode retrieves a paginated list of a firm's history
	// rows for one canonical account using token-based pagination, newest
	// first. It returns the rows, a token for the next page, and an error.
	ListHistoryByAccountCode(ctx context.Context, firmID string, accountCode string, limit int, nextToken *string) ([]domain.MappingHistory, *string, error)
}

// HistoryRepositoryFacade combines all history-related repository interfaces
type HistoryRepositoryFacade interface {
	HistoryReader
}

// HistoryRepositoryWithTx extends HistoryRepositoryFacade with transaction capabilities
type HistoryRepositoryWithTx interface {
	HistoryRepositoryFacade
	TransactionManager
}
