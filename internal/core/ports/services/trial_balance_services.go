package services

import (
	"context"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	"github.com/ledgermap/ledgermap_backend/internal/dto"
)

// TrialBalanceReaderSvc defines read operations for trial balances.
type TrialBalanceReaderSvc interface {
	// GetTrialBalanceByID retrieves a trial balance header, checking firm membership.
	GetTrialBalanceByID(ctx context.Context, firmID string, trialBalanceID string, userID string) (*domain.TrialBalance, error)

	// ListTrialBalances retrieves a paginated list of the firm's trial balances,
	// newest first.
	ListTrialBalances(ctx context.Context, firmID string, userID string, params dto.ListTrialBalancesParams) (*dto.ListTrialBalancesResponse, error)

	// GetLineByID retrieves a single trial balance line with its active
	// suggestion, if any.
	GetLineByID(ctx context.Context, firmID string, lineID string, userID string) (*dto.LineDetailResponse, error)

	// ListLines retrieves a paginated list of lines for a trial balance in
	// source order, optionally filtered by mapping status.
	ListLines(ctx context.Context, firmID string, trialBalanceID string, userID string, params dto.ListLinesParams) (*dto.ListLinesResponse, error)

	// GetMappingProgress summarizes line counts per mapping status for a
	// trial balance.
	GetMappingProgress(ctx context.Context, firmID string, trialBalanceID string, userID string) (*dto.MappingProgressResponse, error)
}

// TrialBalanceWriterSvc defines write operations for trial balances.
type TrialBalanceWriterSvc interface {
	// ImportTrialBalance ingests a raw trial balance, normalizes its lines and
	// persists header, lines and declared subtotals atomically. Structural
	// defects (duplicate line numbers, negative amounts, both sides populated)
	// reject the whole import.
	ImportTrialBalance(ctx context.Context, firmID string, req dto.ImportTrialBalanceRequest, creatorUserID string) (*domain.TrialBalance, error)

	// SupersedeTrialBalance imports a corrected trial balance and marks the
	// prior version superseded by it. The superseded version stays readable.
	SupersedeTrialBalance(ctx context.Context, firmID string, oldTrialBalanceID string, req dto.ImportTrialBalanceRequest, creatorUserID string) (*domain.TrialBalance, error)
}

// TrialBalanceValidatorSvc runs integrity checks over an imported trial balance.
type TrialBalanceValidatorSvc interface {
	// ValidateTrialBalance recomputes the balance check and rolls mapped line
	// nets up the canonical tree, comparing against declared subtotals where
	// the source provided them.
	ValidateTrialBalance(ctx context.Context, firmID string, trialBalanceID string, userID string) (*domain.ValidationReport, error)
}

// TrialBalanceSvcFacade combines all trial-balance service interfaces.
type TrialBalanceSvcFacade interface {
	TrialBalanceReaderSvc
	TrialBalanceWriterSvc
	TrialBalanceValidatorSvc
}
