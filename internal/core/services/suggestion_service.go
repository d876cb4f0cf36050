package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ledgermap/ledgermap_backend/internal/apperrors"
	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	portsrepo "github.com/ledgermap/ledgermap_backend/internal/core/ports/repositories"
	portssvc "github.com/ledgermap/ledgermap_backend/internal/core/ports/services"
	"github.com/ledgermap/ledgermap_backend/internal/dto"
)

const (
	defaultSuggestionWorkers = 8
	defaultBatchTimeout      = 2 * time.Minute
	defaultRuleMatchCap      = 3
)

// suggestionService orchestrates the mapping engine: rule snapshot, history
// matcher and ML adapter feed the ranker, and the winning candidate set is
// persisted as the line's active suggestion. Line evaluations are independent
// and read-only against the shared snapshots, so the batch fans out across a
// bounded worker pool.
type suggestionService struct {
	BaseService
	tbRepo         portsrepo.TrialBalanceReader
	suggestionRepo portsrepo.SuggestionRepositoryFacade
	ruleRepo       portsrepo.RuleReader
	coaSvc         portssvc.COAReaderSvc
	historyMatcher *HistoryMatcher
	mlAdapter      *MLAdapter
	ranker         *CandidateRanker
	workers        int
	batchTimeout   time.Duration
	ruleMatchCap   int
	modelVersion   string // pinned classifier version when a batch does not request one
}

// NewSuggestionService creates a new suggestion service.
func NewSuggestionService(
	tbRepo portsrepo.TrialBalanceReader,
	suggestionRepo portsrepo.SuggestionRepositoryFacade,
	ruleRepo portsrepo.RuleReader,
	coaSvc portssvc.COAReaderSvc,
	authorizer portssvc.FirmAuthorizerSvc,
	historyMatcher *HistoryMatcher,
	mlAdapter *MLAdapter,
	ranker *CandidateRanker,
	workers int,
	batchTimeout time.Duration,
	ruleMatchCap int,
	modelVersion string,
) portssvc.SuggestionSvcFacade {
	if workers <= 0 {
		workers = defaultSuggestionWorkers
	}
	if batchTimeout <= 0 {
		batchTimeout = defaultBatchTimeout
	}
	if ruleMatchCap <= 0 {
		ruleMatchCap = defaultRuleMatchCap
	}
	return &suggestionService{
		BaseService:    BaseService{FirmAuthorizer: authorizer},
		tbRepo:         tbRepo,
		suggestionRepo: suggestionRepo,
		ruleRepo:       ruleRepo,
		coaSvc:         coaSvc,
		historyMatcher: historyMatcher,
		mlAdapter:      mlAdapter,
		ranker:         ranker,
		workers:        workers,
		batchTimeout:   batchTimeout,
		ruleMatchCap:   ruleMatchCap,
		modelVersion:   modelVersion,
	}
}

var _ portssvc.SuggestionSvcFacade = (*suggestionService)(nil)

// GenerateSuggestions runs the engine over a trial balance. Bulk runs skip
// terminal lines; explicitly requested lines always get a fresh suggestion,
// with terminal status and mapping left untouched for comparison.
func (s *suggestionService) GenerateSuggestions(ctx context.Context, firmID string, trialBalanceID string, req dto.GenerateSuggestionsRequest, userID string) (*dto.GenerateSuggestionsResponse, error) {
	if err := s.AuthorizeUser(ctx, userID, firmID, domain.RoleMember); err != nil {
		return nil, err
	}
	if req.ModelVersion == "" {
		req.ModelVersion = s.modelVersion
	}

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
	if tb.Status == domain.TBSuperseded {
		return nil, fmt.Errorf("%w: trial balance %s has been superseded", apperrors.ErrImmutable, trialBalanceID)
	}

	targeted := len(req.LineIDs) > 0
	lines, err := s.collectLines(ctx, trialBalanceID, req.LineIDs)
	if err != nil {
		return nil, err
	}

	tax, err := s.coaSvc.Taxonomy(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load taxonomy for suggestion run: %w", err)
	}
	rules, err := s.ruleRepo.ListRulesByFirm(ctx, firmID, false)
	if err != nil {
		s.LogError(ctx, err, "Failed to load mapping rules", slog.String("firm_id", firmID))
		return nil, fmt.Errorf("failed to load mapping rules for firm %s: %w", firmID, err)
	}
	snapshot := NewRuleSnapshot(ctx, rules)

	batchCtx, cancel := context.WithTimeout(ctx, s.batchTimeout)
	defer cancel()

	now := time.Now()
	outcomes := make([]dto.LineOutcome, len(lines))

	g, gctx := errgroup.WithContext(batchCtx)
	g.SetLimit(s.workers)
	for i := range lines {
		g.Go(func() error {
			// Cancellation is honored between lines, never mid-line.
			if err := gctx.Err(); err != nil {
				outcomes[i] = dto.LineOutcome{
					LineID:  lines[i].LineID,
					Outcome: dto.OutcomeFailed,
					Message: fmt.Sprintf("batch cancelled before evaluation: %v", err),
				}
				return nil
			}
			outcomes[i] = s.generateForLine(gctx, tax, snapshot, firmID, &lines[i], req, targeted, userID, now)
			return nil
		})
	}
	// Workers record failures per line instead of returning errors, so the
	// batch never aborts halfway.
	_ = g.Wait()

	resp := &dto.GenerateSuggestionsResponse{
		TrialBalanceID: trialBalanceID,
		ModelVersion:   req.ModelVersion,
		Outcomes:       outcomes,
	}
	for _, o := range outcomes {
		switch o.Outcome {
		case dto.OutcomeSuggested:
			resp.Suggested++
		case dto.OutcomeNoCandidates:
			resp.NoCandidates++
		case dto.OutcomeSkippedTerminal:
			resp.Skipped++
		case dto.OutcomeFailed:
			resp.Failed++
		}
	}

	s.LogInfo(ctx, "Suggestion run completed",
		slog.String("trial_balance_id", trialBalanceID),
		slog.String("firm_id", firmID),
		slog.Int("suggested", resp.Suggested),
		slog.Int("no_candidates", resp.NoCandidates),
		slog.Int("skipped", resp.Skipped),
		slog.Int("failed", resp.Failed),
	)
	return resp, nil
}

// collectLines resolves the lines a run operates on: the explicit subset when
// given, otherwise every line of the trial balance.
func (s *suggestionService) collectLines(ctx context.Context, trialBalanceID string, lineIDs []string) ([]domain.TrialBalanceLine, error) {
	if len(lineIDs) == 0 {
		lines, err := s.tbRepo.ListAllLines(ctx, trialBalanceID)
		if err != nil {
			s.LogError(ctx, err, "Failed to list trial balance lines", slog.String("trial_balance_id", trialBalanceID))
			return nil, fmt.Errorf("failed to list lines for trial balance %s: %w", trialBalanceID, err)
		}
		return lines, nil
	}

	lines := make([]domain.TrialBalanceLine, 0, len(lineIDs))
	for _, id := range lineIDs {
		line, err := s.tbRepo.FindLineByID(ctx, id)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, fmt.Errorf("%w: line %s not found", apperrors.ErrValidation, id)
			}
			s.LogError(ctx, err, "Failed to find trial balance line", slog.String("line_id", id))
			return nil, err
		}
		if line.TrialBalanceID != trialBalanceID {
			return nil, fmt.Errorf("%w: line %s does not belong to trial balance %s", apperrors.ErrValidation, id, trialBalanceID)
		}
		lines = append(lines, *line)
	}
	return lines, nil
}

// generateForLine evaluates all evidence sources for one line, ranks the
// merged candidates and persists the winner as the line's active suggestion.
func (s *suggestionService) generateForLine(ctx context.Context, tax *domain.Taxonomy, snapshot *RuleSnapshot, firmID string, line *domain.TrialBalanceLine, req dto.GenerateSuggestionsRequest, targeted bool, userID string, now time.Time) dto.LineOutcome {
	if line.Status.IsTerminal() && !targeted {
		return dto.LineOutcome{LineID: line.LineID, Outcome: dto.OutcomeSkippedTerminal}
	}

	candidates := snapshot.Evaluate(line.SourceCode, line.SourceName, s.ruleMatchCap)

	historyCandidates, err := s.historyMatcher.Candidates(ctx, firmID, line.NormalizedSource, now)
	if err != nil {
		s.LogError(ctx, err, "History lookup failed for line", slog.String("line_id", line.LineID))
		return dto.LineOutcome{LineID: line.LineID, Outcome: dto.OutcomeFailed, Message: "history lookup failed"}
	}
	candidates = append(candidates, historyCandidates...)

	if !req.SkipML && s.mlAdapter.Enabled() {
		candidates = append(candidates, s.mlAdapter.Candidates(ctx, tax, line, req.ModelVersion)...)
	}

	ranked := s.ranker.Rank(tax, candidates)
	if ranked == nil {
		// No candidate from any source; the line stays as it is.
		return dto.LineOutcome{LineID: line.LineID, Outcome: dto.OutcomeNoCandidates}
	}

	suggestion := buildSuggestion(line, ranked, req.ModelVersion, userID, now)
	markLineSuggested := !line.Status.IsTerminal()
	if err := s.suggestionRepo.ReplaceActiveSuggestion(ctx, suggestion, markLineSuggested); err != nil {
		s.LogError(ctx, err, "Failed to persist suggestion", slog.String("line_id", line.LineID))
		return dto.LineOutcome{LineID: line.LineID, Outcome: dto.OutcomeFailed, Message: "failed to persist suggestion"}
	}

	return dto.LineOutcome{LineID: line.LineID, Outcome: dto.OutcomeSuggested}
}

// buildSuggestion turns a ranked engine result into the persisted suggestion
// record for a line.
func buildSuggestion(line *domain.TrialBalanceLine, ranked *domain.RankedSuggestion, batchModelVersion string, userID string, now time.Time) domain.MappingSuggestion {
	top := ranked.Top

	method := domain.MappingMethod("")
	if len(top.Sources) > 0 {
		method = top.Sources[0].Method()
	}

	modelVersion := top.ModelVersion
	if modelVersion == "" {
		for _, alt := range ranked.Alternatives {
			if alt.ModelVersion != "" {
				modelVersion = alt.ModelVersion
				break
			}
		}
	}
	if modelVersion == "" {
		modelVersion = batchModelVersion
	}

	return domain.MappingSuggestion{
		SuggestionID:         uuid.NewString(),
		LineID:               line.LineID,
		SuggestedAccountCode: top.AccountCode,
		SuggestedAccountName: top.AccountName,
		Confidence:           top.Score,
		ConfidenceBucket:     top.Bucket,
		Method:               method,
		RuleID:               top.RuleID,
		ModelVersion:         modelVersion,
		Alternatives:         ranked.Alternatives,
		IsActive:             true,
		ReviewStatus:         domain.ReviewPending,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}
}

// PreviewSuggestion runs the engine for one line without persisting anything.
func (s *suggestionService) PreviewSuggestion(ctx context.Context, firmID string, lineID string, userID string) (*domain.RankedSuggestion, error) {
	if err := s.AuthorizeUser(ctx, userID, firmID, domain.RoleReadOnly); err != nil {
		return nil, err
	}

	line, _, err := s.findFirmLine(ctx, firmID, lineID)
	if err != nil {
		return nil, err
	}

	tax, err := s.coaSvc.Taxonomy(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load taxonomy for preview: %w", err)
	}
	rules, err := s.ruleRepo.ListRulesByFirm(ctx, firmID, false)
	if err != nil {
		s.LogError(ctx, err, "Failed to load mapping rules", slog.String("firm_id", firmID))
		return nil, fmt.Errorf("failed to load mapping rules for firm %s: %w", firmID, err)
	}
	snapshot := NewRuleSnapshot(ctx, rules)

	candidates := snapshot.Evaluate(line.SourceCode, line.SourceName, s.ruleMatchCap)
	historyCandidates, err := s.historyMatcher.Candidates(ctx, firmID, line.NormalizedSource, time.Now())
	if err != nil {
		s.LogError(ctx, err, "History lookup failed for line", slog.String("line_id", lineID))
		return nil, fmt.Errorf("history lookup failed for line %s: %w", lineID, err)
	}
	candidates = append(candidates, historyCandidates...)
	if s.mlAdapter.Enabled() {
		candidates = append(candidates, s.mlAdapter.Candidates(ctx, tax, line, s.modelVersion)...)
	}

	ranked := s.ranker.Rank(tax, candidates)
	if ranked == nil {
		return nil, fmt.Errorf("%w: no mapping candidates for line %s", apperrors.ErrNotFound, lineID)
	}
	return ranked, nil
}

// GetActiveSuggestion retrieves the current active suggestion for a line.
func (s *suggestionService) GetActiveSuggestion(ctx context.Context, firmID string, lineID string, userID string) (*domain.MappingSuggestion, error) {
	if err := s.AuthorizeUser(ctx, userID, firmID, domain.RoleReadOnly); err != nil {
		return nil, err
	}
	if _, _, err := s.findFirmLine(ctx, firmID, lineID); err != nil {
		return nil, err
	}

	suggestion, err := s.suggestionRepo.FindActiveSuggestionByLineID(ctx, lineID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find active suggestion", slog.String("line_id", lineID))
		}
		return nil, err
	}
	return suggestion, nil
}

// ListSuggestionsByLine retrieves a line's full suggestion chain, newest first.
func (s *suggestionService) ListSuggestionsByLine(ctx context.Context, firmID string, lineID string, userID string) ([]domain.MappingSuggestion, error) {
	if err := s.AuthorizeUser(ctx, userID, firmID, domain.RoleReadOnly); err != nil {
		return nil, err
	}
	if _, _, err := s.findFirmLine(ctx, firmID, lineID); err != nil {
		return nil, err
	}

	suggestions, err := s.suggestionRepo.ListSuggestionsByLineID(ctx, lineID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list suggestions for line", slog.String("line_id", lineID))
		return nil, fmt.Errorf("failed to list suggestions for line %s: %w", lineID, err)
	}
	if suggestions == nil {
		return []domain.MappingSuggestion{}, nil
	}
	return suggestions, nil
}

// findFirmLine fetches a line and its trial balance, hiding lines that belong
// to other firms.
func (s *suggestionService) findFirmLine(ctx context.Context, firmID string, lineID string) (*domain.TrialBalanceLine, *domain.TrialBalance, error) {
	line, err := s.tbRepo.FindLineByID(ctx, lineID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find trial balance line", slog.String("line_id", lineID))
		}
		return nil, nil, err
	}
	tb, err := s.tbRepo.FindTrialBalanceByID(ctx, line.TrialBalanceID)
	if err != nil {
		s.LogError(ctx, err, "Failed to find trial balance for line", slog.String("line_id", lineID))
		return nil, nil, err
	}
	if tb.FirmID != firmID {
		return nil, nil, apperrors.ErrNotFound
	}
	return line, tb, nil
}
