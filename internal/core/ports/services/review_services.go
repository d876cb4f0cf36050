package services

import (
	"context"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
)

// ReviewSvc applies reviewer decisions to suggested mappings. Every mutation
// takes the version the caller last saw; a stale version fails with a conflict
// instead of overwriting a concurrent decision. Each call returns the line in
// its new state.
type ReviewSvc interface {
	// ConfirmSuggestion accepts the active suggestion's top candidate as the
	// line's mapping and records the decision as a precedent.
	ConfirmSuggestion(ctx context.Context, firmID string, lineID string, expectedVersion int64, reviewerUserID string) (*domain.TrialBalanceLine, error)

	// SelectAlternative accepts one of the active suggestion's listed
	// alternatives instead of the top candidate.
	SelectAlternative(ctx context.Context, firmID string, lineID string, accountCode string, expectedVersion int64, reviewerUserID string) (*domain.TrialBalanceLine, error)

	// RejectSuggestion records that no proposed candidate is acceptable and
	// flags the line for manual mapping.
	RejectSuggestion(ctx context.Context, firmID string, lineID string, expectedVersion int64, feedback string, reviewerUserID string) (*domain.TrialBalanceLine, error)

	// ManualMap assigns a canonical account chosen by the reviewer, bypassing
	// the engine's candidates entirely.
	ManualMap(ctx context.Context, firmID string, lineID string, accountCode string, expectedVersion int64, reviewerUserID string) (*domain.TrialBalanceLine, error)

	// ReopenLine moves a confirmed or manually mapped line back to suggested
	// so it can be re-reviewed. The original decision stays in history.
	ReopenLine(ctx context.Context, firmID string, lineID string, reviewerUserID string) (*domain.TrialBalanceLine, error)
}
