package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgermap/ledgermap_backend/internal/apperrors"
	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	portsrepo "github.com/ledgermap/ledgermap_backend/internal/core/ports/repositories"
	portssvc "github.com/ledgermap/ledgermap_backend/internal/core/ports/services"
	"github.com/ledgermap/ledgermap_backend/internal/dto"
	"github.com/ledgermap/ledgermap_backend/internal/utils/accounting"
	"github.com/ledgermap/ledgermap_backend/internal/utils/textnorm"
)

const (
	defaultTrialBalanceListLimit = 20
	defaultLineListLimit         = 50
	maxListLimit                 = 100
)

// trialBalanceService handles trial balance import, reading and validation.
// Imports are rejected only for structural defects; an unbalanced trial
// balance is flagged and kept, since the imbalance is exactly what the
// auditor needs to see.
type trialBalanceService struct {
	BaseService
	tbRepo               portsrepo.TrialBalanceRepositoryFacade
	suggestionRepo       portsrepo.SuggestionReader
	coaSvc               portssvc.COAReaderSvc
	balanceTolerance     decimal.Decimal
	materialityThreshold decimal.Decimal
}

// NewTrialBalanceService creates a new trial balance service.
func NewTrialBalanceService(
	tbRepo portsrepo.TrialBalanceRepositoryFacade,
	suggestionRepo portsrepo.SuggestionReader,
	coaSvc portssvc.COAReaderSvc,
	authorizer portssvc.FirmAuthorizerSvc,
	balanceTolerance decimal.Decimal,
	materialityThreshold decimal.Decimal,
) portssvc.TrialBalanceSvcFacade {
	return &trialBalanceService{
		BaseService:          BaseService{FirmAuthorizer: authorizer},
		tbRepo:               tbRepo,
		suggestionRepo:       suggestionRepo,
		coaSvc:               coaSvc,
		balanceTolerance:     balanceTolerance,
		materialityThreshold: materialityThreshold,
	}
}

var _ portssvc.TrialBalanceSvcFacade = (*trialBalanceService)(nil)

// ImportTrialBalance ingests a raw trial balance export. The whole batch is
// rejected when any line is structurally invalid; balance differences are
// recorded, never rejected.
func (s *trialBalanceService) ImportTrialBalance(ctx context.Context, firmID string, req dto.ImportTrialBalanceRequest, creatorUserID string) (*domain.TrialBalance, error) {
	if err := s.AuthorizeUser(ctx, creatorUserID, firmID, domain.RoleMember); err != nil {
		return nil, err
	}

	tb, lines, subtotals, err := s.buildTrialBalance(ctx, firmID, req, creatorUserID)
	if err != nil {
		return nil, err
	}

	if err := s.tbRepo.SaveTrialBalance(ctx, *tb, lines, subtotals); err != nil {
		s.LogError(ctx, err, "Failed to save trial balance", slog.String("firm_id", firmID))
		return nil, fmt.Errorf("failed to save trial balance: %w", err)
	}

	s.LogInfo(ctx, "Trial balance imported",
		slog.String("trial_balance_id", tb.TrialBalanceID),
		slog.String("firm_id", firmID),
		slog.Int("line_count", tb.LineCount),
		slog.Bool("is_balanced", tb.IsBalanced),
	)
	return tb, nil
}

// SupersedeTrialBalance imports a corrected trial balance and marks the prior
// version superseded in the same transaction. The old version stays readable
// but frozen.
func (s *trialBalanceService) SupersedeTrialBalance(ctx context.Context, firmID string, oldTrialBalanceID string, req dto.ImportTrialBalanceRequest, creatorUserID string) (*domain.TrialBalance, error) {
	if err := s.AuthorizeUser(ctx, creatorUserID, firmID, domain.RoleMember); err != nil {
		return nil, err
	}

	old, err := s.findFirmTrialBalance(ctx, firmID, oldTrialBalanceID)
	if err != nil {
		return nil, err
	}
	if old.Status == domain.TBSuperseded {
		return nil, fmt.Errorf("%w: trial balance %s is already superseded", apperrors.ErrValidation, oldTrialBalanceID)
	}

	hasConfirmed, err := s.tbRepo.HasConfirmedLines(ctx, oldTrialBalanceID)
	if err != nil {
		s.LogError(ctx, err, "Failed to check confirmed lines before supersede", slog.String("trial_balance_id", oldTrialBalanceID))
		return nil, fmt.Errorf("failed to check confirmed lines: %w", err)
	}
	if hasConfirmed {
		// Allowed, but worth flagging: confirmed review work on the old
		// import is frozen and will not carry over.
		s.LogWarn(ctx, "Superseding trial balance with confirmed mappings",
			slog.String("trial_balance_id", oldTrialBalanceID),
			slog.String("firm_id", firmID),
		)
	}

	tb, lines, subtotals, err := s.buildTrialBalance(ctx, firmID, req, creatorUserID)
	if err != nil {
		return nil, err
	}

	if err := s.tbRepo.SupersedeTrialBalance(ctx, oldTrialBalanceID, *tb, lines, subtotals); err != nil {
		s.LogError(ctx, err, "Failed to supersede trial balance",
			slog.String("old_trial_balance_id", oldTrialBalanceID),
			slog.String("new_trial_balance_id", tb.TrialBalanceID),
		)
		return nil, fmt.Errorf("failed to supersede trial balance %s: %w", oldTrialBalanceID, err)
	}

	s.LogInfo(ctx, "Trial balance superseded",
		slog.String("old_trial_balance_id", oldTrialBalanceID),
		slog.String("new_trial_balance_id", tb.TrialBalanceID),
		slog.String("firm_id", firmID),
	)
	return tb, nil
}

// buildTrialBalance validates the import structurally and assembles the
// domain header, lines and declared subtotals.
func (s *trialBalanceService) buildTrialBalance(ctx context.Context, firmID string, req dto.ImportTrialBalanceRequest, creatorUserID string) (*domain.TrialBalance, []domain.TrialBalanceLine, []domain.DeclaredSubtotal, error) {
	if len(req.Lines) == 0 {
		return nil, nil, nil, fmt.Errorf("%w: trial balance must contain at least one line", apperrors.ErrValidation)
	}

	now := time.Now()
	audit := domain.AuditFields{
		CreatedAt:     now,
		CreatedBy:     creatorUserID,
		LastUpdatedAt: now,
		LastUpdatedBy: creatorUserID,
	}
	tbID := uuid.NewString()

	lines := make([]domain.TrialBalanceLine, 0, len(req.Lines))
	seenLineNumbers := make(map[int]bool, len(req.Lines))
	for _, l := range req.Lines {
		if seenLineNumbers[l.LineNumber] {
			return nil, nil, nil, fmt.Errorf("%w: duplicate line number %d", apperrors.ErrValidation, l.LineNumber)
		}
		seenLineNumbers[l.LineNumber] = true

		if err := accounting.ValidateLineAmounts(l.LineNumber, l.Debit, l.Credit); err != nil {
			return nil, nil, nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
		}

		net := accounting.LineNet(l.Debit, l.Credit)
		lines = append(lines, domain.TrialBalanceLine{
			LineID:           uuid.NewString(),
			TrialBalanceID:   tbID,
			LineNumber:       l.LineNumber,
			SourceCode:       l.SourceCode,
			SourceName:       l.SourceName,
			NormalizedSource: textnorm.Normalize(l.SourceName),
			Debit:            l.Debit,
			Credit:           l.Credit,
			Net:              net,
			IsMaterial:       accounting.IsMaterial(net, s.materialityThreshold),
			Status:           domain.LineUnmapped,
			Version:          1,
			AuditFields:      audit,
		})
	}

	subtotals := make([]domain.DeclaredSubtotal, 0, len(req.DeclaredSubtotals))
	seenSubtotalCodes := make(map[string]bool, len(req.DeclaredSubtotals))
	for _, st := range req.DeclaredSubtotals {
		if seenSubtotalCodes[st.AccountCode] {
			return nil, nil, nil, fmt.Errorf("%w: duplicate declared subtotal for account %s", apperrors.ErrValidation, st.AccountCode)
		}
		seenSubtotalCodes[st.AccountCode] = true
		subtotals = append(subtotals, domain.DeclaredSubtotal{
			TrialBalanceID: tbID,
			AccountCode:    st.AccountCode,
			Amount:         st.Amount,
		})
	}

	totalDebits, totalCredits := accounting.Totals(lines)
	tb := &domain.TrialBalance{
		TrialBalanceID:       tbID,
		FirmID:               firmID,
		EngagementID:         req.EngagementID,
		PeriodEnd:            req.PeriodEnd,
		SourceSystem:         req.SourceSystem,
		CurrencyCode:         req.CurrencyCode,
		DeclaredTotalDebits:  req.DeclaredTotalDebits,
		DeclaredTotalCredits: req.DeclaredTotalCredits,
		TotalDebits:          totalDebits,
		TotalCredits:         totalCredits,
		Difference:           totalDebits.Sub(totalCredits),
		IsBalanced:           accounting.IsBalanced(totalDebits, totalCredits, s.balanceTolerance),
		LineCount:            len(lines),
		Status:               domain.TBActive,
		AuditFields:          audit,
	}

	if req.DeclaredTotalDebits != nil && !req.DeclaredTotalDebits.Equal(totalDebits) {
		s.LogWarn(ctx, "Declared total debits differ from computed",
			slog.String("trial_balance_id", tbID),
			slog.String("declared", req.DeclaredTotalDebits.String()),
			slog.String("computed", totalDebits.String()),
		)
	}
	if req.DeclaredTotalCredits != nil && !req.DeclaredTotalCredits.Equal(totalCredits) {
		s.LogWarn(ctx, "Declared total credits differ from computed",
			slog.String("trial_balance_id", tbID),
			slog.String("declared", req.DeclaredTotalCredits.String()),
			slog.String("computed", totalCredits.String()),
		)
	}

	return tb, lines, subtotals, nil
}

// GetTrialBalanceByID retrieves a trial balance header within the firm scope.
func (s *trialBalanceService) GetTrialBalanceByID(ctx context.Context, firmID string, trialBalanceID string, userID string) (*domain.TrialBalance, error) {
	if err := s.AuthorizeUser(ctx, userID, firmID, domain.RoleReadOnly); err != nil {
		return nil, err
	}
	return s.findFirmTrialBalance(ctx, firmID, trialBalanceID)
}

// ListTrialBalances retrieves a page of the firm's trial balances, newest first.
func (s *trialBalanceService) ListTrialBalances(ctx context.Context, firmID string, userID string, params dto.ListTrialBalancesParams) (*dto.ListTrialBalancesResponse, error) {
	if err := s.AuthorizeUser(ctx, userID, firmID, domain.RoleReadOnly); err != nil {
		return nil, err
	}

	limit := normalizeLimit(params.Limit, defaultTrialBalanceListLimit)
	tbs, nextToken, err := s.tbRepo.ListTrialBalancesByFirm(ctx, firmID, limit, params.NextToken)
	if err != nil {
		s.LogError(ctx, err, "Failed to list trial balances", slog.String("firm_id", firmID))
		return nil, fmt.Errorf("failed to list trial balances for firm %s: %w", firmID, err)
	}

	resp := &dto.ListTrialBalancesResponse{
		TrialBalances: make([]dto.TrialBalanceResponse, 0, len(tbs)),
		NextToken:     nextToken,
	}
	for i := range tbs {
		resp.TrialBalances = append(resp.TrialBalances, dto.ToTrialBalanceResponse(&tbs[i]))
	}
	return resp, nil
}

// GetLineByID retrieves one line together with its active suggestion and the
// full suggestion chain, newest first.
func (s *trialBalanceService) GetLineByID(ctx context.Context, firmID string, lineID string, userID string) (*dto.LineDetailResponse, error) {
	if err := s.AuthorizeUser(ctx, userID, firmID, domain.RoleReadOnly); err != nil {
		return nil, err
	}

	line, err := s.tbRepo.FindLineByID(ctx, lineID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find trial balance line", slog.String("line_id", lineID))
		}
		return nil, err
	}
	// The line carries no firm reference of its own; scope through its parent.
	if _, err := s.findFirmTrialBalance(ctx, firmID, line.TrialBalanceID); err != nil {
		return nil, err
	}

	detail := &dto.LineDetailResponse{Line: dto.ToLineResponse(line)}

	active, err := s.suggestionRepo.FindActiveSuggestionByLineID(ctx, lineID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		s.LogError(ctx, err, "Failed to find active suggestion", slog.String("line_id", lineID))
		return nil, fmt.Errorf("failed to find active suggestion for line %s: %w", lineID, err)
	}
	if active != nil {
		resp := dto.ToSuggestionResponse(active)
		detail.ActiveSuggestion = &resp
	}

	chain, err := s.suggestionRepo.ListSuggestionsByLineID(ctx, lineID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list suggestions for line", slog.String("line_id", lineID))
		return nil, fmt.Errorf("failed to list suggestions for line %s: %w", lineID, err)
	}
	detail.Suggestions = dto.ToListSuggestionsResponse(chain)

	return detail, nil
}

// ListLines retrieves a page of lines in source order, optionally restricted
// to one review status.
func (s *trialBalanceService) ListLines(ctx context.Context, firmID string, trialBalanceID string, userID string, params dto.ListLinesParams) (*dto.ListLinesResponse, error) {
	if err := s.AuthorizeUser(ctx, userID, firmID, domain.RoleReadOnly); err != nil {
		return nil, err
	}
	if _, err := s.findFirmTrialBalance(ctx, firmID, trialBalanceID); err != nil {
		return nil, err
	}

	var status *domain.LineStatus
	if params.Status != "" {
		st := domain.LineStatus(params.Status)
		status = &st
	}

	limit := normalizeLimit(params.Limit, defaultLineListLimit)
	lines, nextToken, err := s.tbRepo.ListLines(ctx, trialBalanceID, status, limit, params.NextToken)
	if err != nil {
		s.LogError(ctx, err, "Failed to list trial balance lines", slog.String("trial_balance_id", trialBalanceID))
		return nil, fmt.Errorf("failed to list lines for trial balance %s: %w", trialBalanceID, err)
	}

	resp := &dto.ListLinesResponse{
		Lines:     make([]dto.LineResponse, 0, len(lines)),
		NextToken: nextToken,
	}
	for i := range lines {
		resp.Lines = append(resp.Lines, dto.ToLineResponse(&lines[i]))
	}
	return resp, nil
}

// GetMappingProgress summarizes how far review has progressed on a trial balance.
func (s *trialBalanceService) GetMappingProgress(ctx context.Context, firmID string, trialBalanceID string, userID string) (*dto.MappingProgressResponse, error) {
	if err := s.AuthorizeUser(ctx, userID, firmID, domain.RoleReadOnly); err != nil {
		return nil, err
	}
	if _, err := s.findFirmTrialBalance(ctx, firmID, trialBalanceID); err != nil {
		return nil, err
	}

	counts, err := s.tbRepo.CountLinesByStatus(ctx, trialBalanceID)
	if err != nil {
		s.LogError(ctx, err, "Failed to count lines by status", slog.String("trial_balance_id", trialBalanceID))
		return nil, fmt.Errorf("failed to count lines for trial balance %s: %w", trialBalanceID, err)
	}

	// Zero-fill so every status is present in the response.
	byStatus := map[domain.LineStatus]int{
		domain.LineUnmapped:  0,
		domain.LineSuggested: 0,
		domain.LineConfirmed: 0,
		domain.LineRejected:  0,
		domain.LineManual:    0,
	}
	total := 0
	for status, n := range counts {
		byStatus[status] = n
		total += n
	}

	return &dto.MappingProgressResponse{
		TrialBalanceID: trialBalanceID,
		TotalLines:     total,
		CountByStatus:  byStatus,
		MappedLines:    byStatus[domain.LineConfirmed] + byStatus[domain.LineManual],
	}, nil
}

// ValidateTrialBalance recomputes the balance check and rolls confirmed and
// manually mapped nets up the canonical hierarchy, comparing computed rollups
// against declared subtotals where the source supplied them. Variances flag
// rows for review; they never fail the report.
func (s *trialBalanceService) ValidateTrialBalance(ctx context.Context, firmID string, trialBalanceID string, userID string) (*domain.ValidationReport, error) {
	if err := s.AuthorizeUser(ctx, userID, firmID, domain.RoleReadOnly); err != nil {
		return nil, err
	}
	tb, err := s.findFirmTrialBalance(ctx, firmID, trialBalanceID)
	if err != nil {
		return nil, err
	}

	mapped, err := s.tbRepo.SumMappedNetByAccount(ctx, trialBalanceID)
	if err != nil {
		s.LogError(ctx, err, "Failed to sum mapped nets", slog.String("trial_balance_id", trialBalanceID))
		return nil, fmt.Errorf("failed to sum mapped nets for trial balance %s: %w", trialBalanceID, err)
	}
	mappedByCode := make(map[string]domain.MappedAccountNet, len(mapped))
	for _, m := range mapped {
		mappedByCode[m.AccountCode] = m
	}

	subtotals, err := s.tbRepo.ListDeclaredSubtotals(ctx, trialBalanceID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list declared subtotals", slog.String("trial_balance_id", trialBalanceID))
		return nil, fmt.Errorf("failed to list declared subtotals for trial balance %s: %w", trialBalanceID, err)
	}
	declaredByCode := make(map[string]decimal.Decimal, len(subtotals))
	for _, st := range subtotals {
		declaredByCode[st.AccountCode] = st.Amount
	}

	tax, err := s.coaSvc.Taxonomy(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load taxonomy for validation: %w", err)
	}

	rollups := s.computeRollups(tax, mappedByCode, declaredByCode)

	counts, err := s.tbRepo.CountLinesByStatus(ctx, trialBalanceID)
	if err != nil {
		s.LogError(ctx, err, "Failed to count lines by status", slog.String("trial_balance_id", trialBalanceID))
		return nil, fmt.Errorf("failed to count lines for trial balance %s: %w", trialBalanceID, err)
	}
	unmapped := 0
	for status, n := range counts {
		if !status.IsTerminal() {
			unmapped += n
		}
	}

	return &domain.ValidationReport{
		TrialBalanceID: trialBalanceID,
		Balance: domain.BalanceCheck{
			TotalDebits:  tb.TotalDebits,
			TotalCredits: tb.TotalCredits,
			Difference:   tb.Difference,
			Tolerance:    s.balanceTolerance,
			IsBalanced:   accounting.IsBalanced(tb.TotalDebits, tb.TotalCredits, s.balanceTolerance),
		},
		Rollups:       rollups,
		UnmappedLines: unmapped,
	}, nil
}

// computeRollups produces one row per non-leaf account with mapped
// descendants, plus a row for every account carrying a declared subtotal,
// ordered by account code.
func (s *trialBalanceService) computeRollups(tax *domain.Taxonomy, mappedByCode map[string]domain.MappedAccountNet, declaredByCode map[string]decimal.Decimal) []domain.RollupRow {
	var rollups []domain.RollupRow
	seen := make(map[string]bool, len(declaredByCode))

	for _, account := range tax.Accounts() {
		computed := decimal.Zero
		lineCount := 0
		for _, leaf := range tax.LeafDescendants(account.Code) {
			if m, ok := mappedByCode[leaf.Code]; ok {
				computed = computed.Add(m.Net)
				lineCount += m.LineCount
			}
		}

		declared, hasDeclared := declaredByCode[account.Code]
		if account.IsLeaf && !hasDeclared {
			continue
		}
		if lineCount == 0 && !hasDeclared {
			continue
		}

		row := domain.RollupRow{
			AccountCode:     account.Code,
			AccountName:     account.Name,
			ComputedNet:     computed,
			MappedLineCount: lineCount,
		}
		if hasDeclared {
			seen[account.Code] = true
			variance := computed.Sub(declared)
			row.DeclaredNet = &declared
			row.Variance = &variance
			row.RequiresReview = variance.Abs().GreaterThan(s.balanceTolerance)
		}
		rollups = append(rollups, row)
	}

	// Declared subtotals for codes outside the canonical tree still surface,
	// with a zero computed side, so a typoed code is visible instead of lost.
	for code, declared := range declaredByCode {
		if seen[code] {
			continue
		}
		variance := decimal.Zero.Sub(declared)
		rollups = append(rollups, domain.RollupRow{
			AccountCode:    code,
			ComputedNet:    decimal.Zero,
			DeclaredNet:    &declared,
			Variance:       &variance,
			RequiresReview: variance.Abs().GreaterThan(s.balanceTolerance),
		})
	}

	sort.Slice(rollups, func(i, j int) bool { return rollups[i].AccountCode < rollups[j].AccountCode })
	return rollups
}

// findFirmTrialBalance fetches a trial balance and hides ones belonging to
// other firms.
func (s *trialBalanceService) findFirmTrialBalance(ctx context.Context, firmID string, trialBalanceID string) (*domain.TrialBalance, error) {
	tb, err := s.tbRepo.FindTrialBalanceByID(ctx, trialBalanceID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find trial balance", slog.String("trial_balance_id", trialBalanceID))
		}
		return nil, err
	}
	if tb.FirmID != firmID {
		return nil, apperrors.ErrNotFound
	}
	return tb, nil
}

// normalizeLimit clamps a requested page size into the allowed range.
func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
