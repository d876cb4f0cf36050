package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ledgermap/ledgermap_backend/internal/apperrors"
	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	portsrepo "github.com/ledgermap/ledgermap_backend/internal/core/ports/repositories"
	portssvc "github.com/ledgermap/ledgermap_backend/internal/core/ports/services"
	"github.com/ledgermap/ledgermap_backend/internal/dto"
	"github.com/ledgermap/ledgermap_backend/internal/utils/textnorm"
)

// historyService exposes the append-only mapping history to auditors. Rows
// are written exclusively inside review decision transactions, so this
// service is read-only by construction.
type historyService struct {
	BaseService
	historyRepo portsrepo.HistoryReader
}

// NewHistoryService creates a new history service.
func NewHistoryService(historyRepo portsrepo.HistoryReader, authorizer portssvc.FirmAuthorizerSvc) portssvc.HistorySvc {
	return &historyService{
		BaseService: BaseService{FirmAuthorizer: authorizer},
		historyRepo: historyRepo,
	}
}

var _ portssvc.HistorySvc = (*historyService)(nil)

// ListHistory retrieves mapping history scoped by target account or by source
// text, newest first. Exactly one scope must be given.
func (s *historyService) ListHistory(ctx context.Context, firmID string, params dto.ListHistoryParams, userID string) (*dto.ListHistoryResponse, error) {
	if err := s.AuthorizeUser(ctx, userID, firmID, domain.RoleReadOnly); err != nil {
		return nil, err
	}

	byAccount := params.AccountCode != ""
	bySource := params.SourceText != ""
	if byAccount == bySource {
		return nil, fmt.Errorf("%w: exactly one of accountCode or sourceText is required", apperrors.ErrValidation)
	}

	limit := normalizeLimit(params.Limit, defaultLineListLimit)

	if byAccount {
		entries, nextToken, err := s.historyRepo.ListHistoryByAccountCode(ctx, firmID, params.AccountCode, limit, params.NextToken)
		if err != nil {
			s.LogError(ctx, err, "Failed to list mapping history by account",
				slog.String("firm_id", firmID),
				slog.String("account_code", params.AccountCode),
			)
			return nil, fmt.Errorf("failed to list mapping history for account %s: %w", params.AccountCode, err)
		}
		resp := dto.ToListHistoryResponse(entries, nextToken)
		return &resp, nil
	}

	normalized := textnorm.Normalize(params.SourceText)
	if normalized == "" {
		return nil, fmt.Errorf("%w: source text normalizes to empty", apperrors.ErrValidation)
	}
	entries, err := s.historyRepo.FindPrecedents(ctx, firmID, normalized)
	if err != nil {
		s.LogError(ctx, err, "Failed to find mapping precedents",
			slog.String("firm_id", firmID),
			slog.String("normalized_source", normalized),
		)
		return nil, fmt.Errorf("failed to find mapping precedents: %w", err)
	}
	// Precedent lists are keyed by exact normalized text and stay small; the
	// limit is applied directly instead of paginating.
	if len(entries) > limit {
		entries = entries[:limit]
	}
	resp := dto.ToListHistoryResponse(entries, nil)
	return &resp, nil
}
