package repositories

import (
	"context"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
)

// SuggestionReader defines read operations for mapping suggestion data
type SuggestionReader interface {
	// FindSuggestionByID retrieves a specific suggestion by its unique identifier.
	FindSuggestionByID(ctx context.Context, suggestionID string) (*domain.MappingSuggestion, error)

	// FindActiveSuggestionByLineID retrieves the single active suggestion for
	// a line, or apperrors.ErrNotFound when the line has none.
	FindActiveSuggestionByLineID(ctx context.Context, lineID string) (*domain.MappingSuggestion, error)

	// ListSuggestionsByLineID retrieves a line's full suggestion chain,
	// newest first, including superseded records.
	ListSuggestionsByLineID(ctx context.Context, lineID string) ([]domain.MappingSuggestion, error)
}

// SuggestionWriter defines write operations for mapping suggestion data
type SuggestionWriter interface {
	// ReplaceActiveSuggestion atomically supersedes the line's current active
	// suggestion (if any) and inserts the new one as active. When
	// markLineSuggested is set, the line's status is moved to suggested in
	// the same transaction, guarded so terminal lines are never downgraded.
	ReplaceActiveSuggestion(ctx context.Context, suggestion domain.MappingSuggestion, markLineSuggested bool) error
}

// SuggestionRepositoryFacade combines all suggestion-related repository interfaces
// This is a facade for clients that need access to all operations
type SuggestionRepositoryFacade interface {
	SuggestionReader
	SuggestionWriter
}

// SuggestionRepositoryWithTx extends SuggestionRepositoryFacade with transaction capabilities
type SuggestionRepositoryWithTx interface {
	SuggestionRepositoryFacade
	TransactionManager
}
