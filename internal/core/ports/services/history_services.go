package services

import (
	"context"

	"github.com/ledgermap/ledgermap_backend/internal/dto"
)

// HistorySvc exposes the read side of the append-only mapping history for
// auditors. Writes happen only inside review decision transactions.
type HistorySvc interface {
	// ListHistory retrieves mapping history scoped by canonical target account
	// or by source text, newest first.
	ListHistory(ctx context.Context, firmID string, params dto.ListHistoryParams, userID string) (*dto.ListHistoryResponse, error)
}
