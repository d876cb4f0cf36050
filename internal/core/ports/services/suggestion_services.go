package services

import (
	"context"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	"github.com/ledgermap/ledgermap_backend/internal/dto"
)

// SuggestionGeneratorSvc produces mapping suggestions for trial balance lines.
type SuggestionGeneratorSvc interface {
	// GenerateSuggestions runs the mapping engine over the requested lines of
	// a trial balance and stores one active suggestion per line. Bulk runs
	// (no subset given) skip confirmed and manually mapped lines; explicitly
	// requested lines always get a fresh suggestion, with the line's terminal
	// status and mapping left untouched for comparison. Returns a per-line
	// outcome summary.
	GenerateSuggestions(ctx context.Context, firmID string, trialBalanceID string, req dto.GenerateSuggestionsRequest, userID string) (*dto.GenerateSuggestionsResponse, error)

	// PreviewSuggestion runs the engine for a single line without persisting
	// anything. Used to explain what the engine would propose.
	PreviewSuggestion(ctx context.Context, firmID string, lineID string, userID string) (*domain.RankedSuggestion, error)
}

// SuggestionReaderSvc defines read operations for stored suggestions.
type SuggestionReaderSvc interface {
	// GetActiveSuggestion retrieves the current active suggestion for a line.
	GetActiveSuggestion(ctx context.Context, firmID string, lineID string, userID string) (*domain.MappingSuggestion, error)

	// ListSuggestionsByLine retrieves every suggestion ever produced for a
	// line, newest first, including superseded ones.
	ListSuggestionsByLine(ctx context.Context, firmID string, lineID string, userID string) ([]domain.MappingSuggestion, error)
}

// SuggestionSvcFacade combines all suggestion service interfaces.
type SuggestionSvcFacade interface {
	SuggestionGeneratorSvc
	SuggestionReaderSvc
}
