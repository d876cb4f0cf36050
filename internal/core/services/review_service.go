package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ledgermap/ledgermap_backend/internal/apperrors"
	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	portsrepo "github.com/ledgermap/ledgermap_backend/internal/core/ports/repositories"
	portssvc "github.com/ledgermap/ledgermap_backend/internal/core/ports/services"
	"github.com/ledgermap/ledgermap_backend/internal/utils"
)

// divergenceEvent is the quality-monitoring event emitted when a reviewer's
// choice differs from the engine's top candidate.
const divergenceEvent = "mapping_review_divergence"

// reviewService applies reviewer decisions to suggested mappings. Line, reviewed
// suggestion and history row are written in one transaction guarded by the
// line version the reviewer last saw, so concurrent decisions on the same line
// conflict instead of overwriting each other. Every terminal decision is
// published to the training feed best-effort.
type reviewService struct {
	BaseService
	tbRepo         portsrepo.TrialBalanceRepositoryFacade
	suggestionRepo portsrepo.SuggestionReader
	coaSvc         portssvc.COAReaderSvc
	trainingFeed   portssvc.TrainingFeedPublisher
	posthogClient  *utils.PosthogClientWrapper
}

// NewReviewService creates a new review service.
func NewReviewService(
	tbRepo portsrepo.TrialBalanceRepositoryFacade,
	suggestionRepo portsrepo.SuggestionReader,
	coaSvc portssvc.COAReaderSvc,
	authorizer portssvc.FirmAuthorizerSvc,
	trainingFeed portssvc.TrainingFeedPublisher,
	posthogClient *utils.PosthogClientWrapper,
) portssvc.ReviewSvc {
	return &reviewService{
		BaseService:    BaseService{FirmAuthorizer: authorizer},
		tbRepo:         tbRepo,
		suggestionRepo: suggestionRepo,
		coaSvc:         coaSvc,
		trainingFeed:   trainingFeed,
		posthogClient:  posthogClient,
	}
}

var _ portssvc.ReviewSvc = (*reviewService)(nil)

// ConfirmSuggestion accepts the active suggestion's top candidate as the
// line's mapping and appends the decision to mapping history.
func (s *reviewService) ConfirmSuggestion(ctx context.Context, firmID string, lineID string, expectedVersion int64, reviewerUserID string) (*domain.TrialBalanceLine, error) {
	if err := s.AuthorizeUser(ctx, reviewerUserID, firmID, domain.RoleMember); err != nil {
		return nil, err
	}
	line, tb, err := s.loadReviewTarget(ctx, firmID, lineID)
	if err != nil {
		return nil, err
	}
	suggestion, err := s.loadReviewableSuggestion(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if !line.Status.CanTransitionTo(domain.LineConfirmed) {
		return nil, fmt.Errorf("%w: cannot confirm a line in status %s", apperrors.ErrValidation, line.Status)
	}

	now := time.Now()
	updated := appliedMapping(line, domain.LineConfirmed, suggestion.SuggestedAccountCode, suggestion.Confidence, suggestion.Method, expectedVersion, reviewerUserID, now)
	reviewed := reviewedSuggestion(suggestion, domain.ReviewConfirmed, suggestion.SuggestedAccountCode, "", reviewerUserID, now)
	history := s.historyRow(firmID, line, suggestion.SuggestedAccountCode, suggestion.Method, suggestion.Confidence, suggestion.SuggestionID, reviewerUserID, now)

	if err := s.tbRepo.ApplyReviewDecision(ctx, *updated, expectedVersion, reviewed, history); err != nil {
		return nil, s.decisionError(ctx, err, "confirm", lineID)
	}

	s.publishDecision(ctx, decisionEvent(tb, line, reviewed, now))
	s.LogInfo(ctx, "Suggestion confirmed",
		slog.String("line_id", lineID),
		slog.String("account_code", suggestion.SuggestedAccountCode),
		slog.String("reviewer", reviewerUserID),
	)
	return updated, nil
}

// SelectAlternative accepts one of the active suggestion's alternatives. The
// divergence from the top candidate is recorded for quality monitoring.
func (s *reviewService) SelectAlternative(ctx context.Context, firmID string, lineID string, accountCode string, expectedVersion int64, reviewerUserID string) (*domain.TrialBalanceLine, error) {
	if err := s.AuthorizeUser(ctx, reviewerUserID, firmID, domain.RoleMember); err != nil {
		return nil, err
	}
	line, tb, err := s.loadReviewTarget(ctx, firmID, lineID)
	if err != nil {
		return nil, err
	}
	suggestion, err := s.loadReviewableSuggestion(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if !line.Status.CanTransitionTo(domain.LineConfirmed) {
		return nil, fmt.Errorf("%w: cannot confirm a line in status %s", apperrors.ErrValidation, line.Status)
	}

	var alternative *domain.RankedCandidate
	for i := range suggestion.Alternatives {
		if suggestion.Alternatives[i].AccountCode == accountCode {
			alternative = &suggestion.Alternatives[i]
			break
		}
	}
	if alternative == nil {
		return nil, fmt.Errorf("%w: account %s is not an alternative of the active suggestion", apperrors.ErrValidation, accountCode)
	}

	method := domain.MappingMethod("")
	if len(alternative.Sources) > 0 {
		method = alternative.Sources[0].Method()
	}

	now := time.Now()
	updated := appliedMapping(line, domain.LineConfirmed, alternative.AccountCode, alternative.Score, method, expectedVersion, reviewerUserID, now)
	reviewed := reviewedSuggestion(suggestion, domain.ReviewConfirmed, alternative.AccountCode, "", reviewerUserID, now)
	history := s.historyRow(firmID, line, alternative.AccountCode, method, alternative.Score, suggestion.SuggestionID, reviewerUserID, now)

	if err := s.tbRepo.ApplyReviewDecision(ctx, *updated, expectedVersion, reviewed, history); err != nil {
		return nil, s.decisionError(ctx, err, "select alternative", lineID)
	}

	s.publishDecision(ctx, decisionEvent(tb, line, reviewed, now))
	s.LogInfo(ctx, "Alternative selected",
		slog.String("line_id", lineID),
		slog.String("suggested_account_code", suggestion.SuggestedAccountCode),
		slog.String("chosen_account_code", alternative.AccountCode),
		slog.String("reviewer", reviewerUserID),
	)
	return updated, nil
}

// RejectSuggestion records that no proposed candidate is acceptable. The line
// is flagged for manual mapping; no history row is written, since history
// holds only accepted mappings, but the rejection still feeds training.
func (s *reviewService) RejectSuggestion(ctx context.Context, firmID string, lineID string, expectedVersion int64, feedback string, reviewerUserID string) (*domain.TrialBalanceLine, error) {
	if err := s.AuthorizeUser(ctx, reviewerUserID, firmID, domain.RoleMember); err != nil {
		return nil, err
	}
	line, tb, err := s.loadReviewTarget(ctx, firmID, lineID)
	if err != nil {
		return nil, err
	}
	suggestion, err := s.loadReviewableSuggestion(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if !line.Status.CanTransitionTo(domain.LineRejected) {
		return nil, fmt.Errorf("%w: cannot reject a line in status %s", apperrors.ErrValidation, line.Status)
	}

	now := time.Now()
	updated := appliedMapping(line, domain.LineRejected, "", 0, "", expectedVersion, reviewerUserID, now)
	reviewed := reviewedSuggestion(suggestion, domain.ReviewRejected, "", feedback, reviewerUserID, now)

	if err := s.tbRepo.ApplyReviewDecision(ctx, *updated, expectedVersion, reviewed, nil); err != nil {
		return nil, s.decisionError(ctx, err, "reject", lineID)
	}

	s.publishDecision(ctx, decisionEvent(tb, line, reviewed, now))
	s.LogInfo(ctx, "Suggestion rejected",
		slog.String("line_id", lineID),
		slog.String("reviewer", reviewerUserID),
	)
	return updated, nil
}

// ManualMap assigns a reviewer-chosen canonical account directly, bypassing
// the engine's candidates. Any unreviewed active suggestion is marked
// overridden.
func (s *reviewService) ManualMap(ctx context.Context, firmID string, lineID string, accountCode string, expectedVersion int64, reviewerUserID string) (*domain.TrialBalanceLine, error) {
	if err := s.AuthorizeUser(ctx, reviewerUserID, firmID, domain.RoleMember); err != nil {
		return nil, err
	}
	line, tb, err := s.loadReviewTarget(ctx, firmID, lineID)
	if err != nil {
		return nil, err
	}
	if !line.Status.CanTransitionTo(domain.LineManual) {
		return nil, fmt.Errorf("%w: cannot manually map a line in status %s", apperrors.ErrValidation, line.Status)
	}

	account, err := s.coaSvc.GetAccountByCode(ctx, accountCode)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: account %s not found", apperrors.ErrValidation, accountCode)
		}
		return nil, err
	}
	if !account.IsMappingTarget() {
		return nil, fmt.Errorf("%w: account %s is not a mapping target", apperrors.ErrValidation, accountCode)
	}

	// A manual map is legal with or without an active suggestion.
	suggestion, err := s.suggestionRepo.FindActiveSuggestionByLineID(ctx, lineID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		s.LogError(ctx, err, "Failed to find active suggestion", slog.String("line_id", lineID))
		return nil, fmt.Errorf("failed to find active suggestion for line %s: %w", lineID, err)
	}

	now := time.Now()
	// Manual mappings carry full confidence; the reviewer is the authority.
	updated := appliedMapping(line, domain.LineManual, accountCode, 1.0, domain.MethodManual, expectedVersion, reviewerUserID, now)

	var reviewed *domain.MappingSuggestion
	suggestionID := ""
	if suggestion != nil && isReviewable(suggestion.ReviewStatus) {
		reviewed = reviewedSuggestion(suggestion, domain.ReviewOverridden, accountCode, "", reviewerUserID, now)
		suggestionID = suggestion.SuggestionID
	}
	history := s.historyRow(firmID, line, accountCode, domain.MethodManual, 1.0, suggestionID, reviewerUserID, now)

	if err := s.tbRepo.ApplyReviewDecision(ctx, *updated, expectedVersion, reviewed, history); err != nil {
		return nil, s.decisionError(ctx, err, "manually map", lineID)
	}

	event := domain.ReviewDecisionEvent{
		FirmID:            tb.FirmID,
		TrialBalanceID:    tb.TrialBalanceID,
		LineID:            line.LineID,
		SourceCode:        line.SourceCode,
		SourceName:        line.SourceName,
		NormalizedSource:  line.NormalizedSource,
		ChosenAccountCode: accountCode,
		Decision:          domain.ReviewOverridden,
		Method:            string(domain.MethodManual),
		DecidedBy:         reviewerUserID,
		DecidedAt:         now,
	}
	if reviewed != nil {
		event.SuggestionID = reviewed.SuggestionID
		event.SuggestedAccountCode = reviewed.SuggestedAccountCode
		event.IsDivergent = reviewed.IsDivergent
		event.Confidence = reviewed.Confidence
		event.ModelVersion = reviewed.ModelVersion
		event.RuleID = reviewed.RuleID
	}
	s.publishDecision(ctx, event)

	s.LogInfo(ctx, "Line manually mapped",
		slog.String("line_id", lineID),
		slog.String("account_code", accountCode),
		slog.String("reviewer", reviewerUserID),
	)
	return updated, nil
}

// ReopenLine moves a confirmed or manually mapped line back to suggested for
// re-review. The prior decision stays in mapping history untouched; reopening
// is the only path out of a terminal status and is reserved for firm admins.
func (s *reviewService) ReopenLine(ctx context.Context, firmID string, lineID string, reviewerUserID string) (*domain.TrialBalanceLine, error) {
	if err := s.AuthorizeUser(ctx, reviewerUserID, firmID, domain.RoleAdmin); err != nil {
		return nil, err
	}
	line, _, err := s.loadReviewTarget(ctx, firmID, lineID)
	if err != nil {
		return nil, err
	}
	if !line.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: only confirmed or manually mapped lines can be reopened, line is %s", apperrors.ErrValidation, line.Status)
	}

	suggestion, err := s.suggestionRepo.FindActiveSuggestionByLineID(ctx, lineID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		s.LogError(ctx, err, "Failed to find active suggestion", slog.String("line_id", lineID))
		return nil, fmt.Errorf("failed to find active suggestion for line %s: %w", lineID, err)
	}

	now := time.Now()
	updated := *line
	updated.Status = domain.LineSuggested
	updated.MappedAccountCode = ""
	updated.MappingConfidence = 0
	updated.MappingMethod = ""
	updated.Version = line.Version + 1
	updated.LastUpdatedAt = now
	updated.LastUpdatedBy = reviewerUserID

	suggestionID := ""
	if suggestion != nil {
		suggestionID = suggestion.SuggestionID
	}
	if err := s.tbRepo.ReopenLine(ctx, updated, suggestionID); err != nil {
		s.LogError(ctx, err, "Failed to reopen line", slog.String("line_id", lineID))
		return nil, fmt.Errorf("failed to reopen line %s: %w", lineID, err)
	}

	s.LogInfo(ctx, "Line reopened for re-review",
		slog.String("line_id", lineID),
		slog.String("previous_status", string(line.Status)),
		slog.String("reviewer", reviewerUserID),
	)
	return &updated, nil
}

// loadReviewTarget fetches a line and its trial balance, hiding lines of
// other firms and refusing decisions on superseded imports.
func (s *reviewService) loadReviewTarget(ctx context.Context, firmID string, lineID string) (*domain.TrialBalanceLine, *domain.TrialBalance, error) {
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
	if tb.Status == domain.TBSuperseded {
		return nil, nil, fmt.Errorf("%w: trial balance %s has been superseded", apperrors.ErrImmutable, tb.TrialBalanceID)
	}
	return line, tb, nil
}

// loadReviewableSuggestion fetches the line's active suggestion and verifies
// it still awaits a decision.
func (s *reviewService) loadReviewableSuggestion(ctx context.Context, lineID string) (*domain.MappingSuggestion, error) {
	suggestion, err := s.suggestionRepo.FindActiveSuggestionByLineID(ctx, lineID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: line %s has no active suggestion", apperrors.ErrValidation, lineID)
		}
		s.LogError(ctx, err, "Failed to find active suggestion", slog.String("line_id", lineID))
		return nil, fmt.Errorf("failed to find active suggestion for line %s: %w", lineID, err)
	}
	if !isReviewable(suggestion.ReviewStatus) {
		return nil, fmt.Errorf("%w: suggestion %s was already reviewed", apperrors.ErrValidation, suggestion.SuggestionID)
	}
	return suggestion, nil
}

// isReviewable reports whether a suggestion still accepts a decision.
// Reopened suggestions are reviewable again.
func isReviewable(status domain.ReviewStatus) bool {
	return status == domain.ReviewPending || status == domain.ReviewReopened
}

// appliedMapping copies a line with the decided mapping applied and the
// version advanced past the one the reviewer saw.
func appliedMapping(line *domain.TrialBalanceLine, status domain.LineStatus, accountCode string, confidence float64, method domain.MappingMethod, expectedVersion int64, reviewerUserID string, now time.Time) *domain.TrialBalanceLine {
	updated := *line
	updated.Status = status
	updated.MappedAccountCode = accountCode
	updated.MappingConfidence = confidence
	updated.MappingMethod = method
	updated.Version = expectedVersion + 1
	updated.LastUpdatedAt = now
	updated.LastUpdatedBy = reviewerUserID
	return &updated
}

// reviewedSuggestion copies a suggestion with the reviewer's decision applied.
func reviewedSuggestion(suggestion *domain.MappingSuggestion, status domain.ReviewStatus, chosenAccountCode string, feedback string, reviewerUserID string, now time.Time) *domain.MappingSuggestion {
	reviewed := *suggestion
	reviewed.ReviewStatus = status
	reviewed.ChosenAccountCode = chosenAccountCode
	reviewed.IsDivergent = chosenAccountCode != "" && chosenAccountCode != suggestion.SuggestedAccountCode
	reviewed.ReviewedBy = reviewerUserID
	reviewed.ReviewedAt = &now
	if feedback != "" {
		reviewed.Feedback = feedback
	}
	reviewed.LastUpdatedAt = now
	reviewed.LastUpdatedBy = reviewerUserID
	return &reviewed
}

// historyRow builds the append-only precedent record for an accepted mapping.
func (s *reviewService) historyRow(firmID string, line *domain.TrialBalanceLine, accountCode string, method domain.MappingMethod, confidence float64, suggestionID string, reviewerUserID string, now time.Time) *domain.MappingHistory {
	return &domain.MappingHistory{
		HistoryID:        uuid.NewString(),
		FirmID:           firmID,
		SourceCode:       line.SourceCode,
		SourceName:       line.SourceName,
		NormalizedSource: line.NormalizedSource,
		AccountCode:      accountCode,
		Method:           method,
		Confidence:       confidence,
		LineID:           line.LineID,
		SuggestionID:     suggestionID,
		ConfirmedBy:      reviewerUserID,
		ConfirmedAt:      now,
	}
}

// decisionEvent builds the training signal for a decision taken on an active
// suggestion.
func decisionEvent(tb *domain.TrialBalance, line *domain.TrialBalanceLine, reviewed *domain.MappingSuggestion, now time.Time) domain.ReviewDecisionEvent {
	return domain.ReviewDecisionEvent{
		FirmID:               tb.FirmID,
		TrialBalanceID:       tb.TrialBalanceID,
		LineID:               line.LineID,
		SuggestionID:         reviewed.SuggestionID,
		SourceCode:           line.SourceCode,
		SourceName:           line.SourceName,
		NormalizedSource:     line.NormalizedSource,
		SuggestedAccountCode: reviewed.SuggestedAccountCode,
		ChosenAccountCode:    reviewed.ChosenAccountCode,
		Decision:             reviewed.ReviewStatus,
		IsDivergent:          reviewed.IsDivergent,
		Method:               string(reviewed.Method),
		Confidence:           reviewed.Confidence,
		ModelVersion:         reviewed.ModelVersion,
		RuleID:               reviewed.RuleID,
		DecidedBy:            reviewed.ReviewedBy,
		DecidedAt:            now,
	}
}

// publishDecision sends the decision to the training feed and, on divergence,
// to product analytics. Both are best-effort; a decision is never rolled back
// because a downstream consumer is unavailable.
func (s *reviewService) publishDecision(ctx context.Context, event domain.ReviewDecisionEvent) {
	if s.trainingFeed != nil {
		if err := s.trainingFeed.PublishReviewDecision(ctx, event); err != nil {
			s.LogWarn(ctx, "Failed to publish review decision to training feed",
				slog.String("line_id", event.LineID),
				slog.String("error", err.Error()),
			)
		}
	}
	if event.IsDivergent && s.posthogClient != nil {
		s.posthogClient.Enqueue(event.DecidedBy, divergenceEvent, map[string]any{
			"firmID":               event.FirmID,
			"trialBalanceID":       event.TrialBalanceID,
			"lineID":               event.LineID,
			"suggestedAccountCode": event.SuggestedAccountCode,
			"chosenAccountCode":    event.ChosenAccountCode,
			"method":               event.Method,
			"confidence":           event.Confidence,
		})
	}
}

// decisionError normalizes repository failures from a review transaction.
// Version conflicts pass through untouched so handlers can map them to 409.
func (s *reviewService) decisionError(ctx context.Context, err error, action string, lineID string) error {
	if errors.Is(err, apperrors.ErrVersionConflict) {
		s.LogWarn(ctx, "Concurrent review decision detected",
			slog.String("line_id", lineID),
			slog.String("action", action),
		)
		return err
	}
	s.LogError(ctx, err, "Failed to apply review decision",
		slog.String("line_id", lineID),
		slog.String("action", action),
	)
	return fmt.Errorf("failed to %s for line %s: %w", action, lineID, err)
}
