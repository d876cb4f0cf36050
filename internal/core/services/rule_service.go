package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/ledgermap/ledgermap_backend/internal/apperrors"
	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	portsrepo "github.com/ledgermap/ledgermap_backend/internal/core/ports/repositories"
	portssvc "github.com/ledgermap/ledgermap_backend/internal/core/ports/services"
	"github.com/ledgermap/ledgermap_backend/internal/dto"
	"github.com/google/uuid"
)

// ruleService manages firm mapping rules. Rule administration is firm-admin
// territory; evaluation itself happens in the rule snapshot during
// suggestion generation.
type ruleService struct {
	BaseService
	ruleRepo portsrepo.RuleRepositoryFacade
	coaSvc   portssvc.COAReaderSvc
}

// NewRuleService creates a new rule service.
func NewRuleService(rr portsrepo.RuleRepositoryFacade, coaSvc portssvc.COAReaderSvc, authorizer portssvc.FirmAuthorizerSvc) portssvc.RuleSvcFacade {
	return &ruleService{
		BaseService: BaseService{FirmAuthorizer: authorizer},
		ruleRepo:    rr,
		coaSvc:      coaSvc,
	}
}

var _ portssvc.RuleSvcFacade = (*ruleService)(nil)

// GetRuleByID retrieves a single rule, hiding rules of other firms.
func (s *ruleService) GetRuleByID(ctx context.Context, firmID string, ruleID string, userID string) (*domain.MappingRule, error) {
	if err := s.AuthorizeUser(ctx, userID, firmID, domain.RoleReadOnly); err != nil {
		return nil, err
	}

	rule, err := s.ruleRepo.FindRuleByID(ctx, ruleID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find rule by ID", slog.String("rule_id", ruleID))
		}
		return nil, err
	}
	if rule.FirmID != firmID {
		// Do not reveal that the rule exists under another firm
		return nil, apperrors.ErrNotFound
	}
	return rule, nil
}

// ListRules retrieves the firm's rules in evaluation order.
func (s *ruleService) ListRules(ctx context.Context, firmID string, includeInactive bool, userID string) ([]domain.MappingRule, error) {
	if err := s.AuthorizeUser(ctx, userID, firmID, domain.RoleReadOnly); err != nil {
		return nil, err
	}

	rules, err := s.ruleRepo.ListRulesByFirm(ctx, firmID, includeInactive)
	if err != nil {
		s.LogError(ctx, err, "Failed to list rules", slog.String("firm_id", firmID))
		return nil, fmt.Errorf("failed to list rules for firm %s: %w", firmID, err)
	}
	if rules == nil {
		return []domain.MappingRule{}, nil
	}
	return rules, nil
}

// CreateRule validates and persists a new mapping rule.
func (s *ruleService) CreateRule(ctx context.Context, firmID string, req dto.CreateRuleRequest, creatorUserID string) (*domain.MappingRule, error) {
	if err := s.AuthorizeUser(ctx, creatorUserID, firmID, domain.RoleAdmin); err != nil {
		return nil, err
	}

	matchMode := req.MatchMode
	if req.IsRegex && matchMode == "" {
		matchMode = domain.MatchPartial
	}
	if !req.IsRegex {
		matchMode = "" // literal rules always match by containment
	}

	rule := domain.MappingRule{
		RuleID:            uuid.NewString(),
		FirmID:            firmID,
		Name:              req.Name,
		Pattern:           req.Pattern,
		IsRegex:           req.IsRegex,
		MatchMode:         matchMode,
		TargetAccountCode: req.TargetAccountCode,
		Priority:          req.Priority,
		ConfidenceBoost:   clampBoost(req.ConfidenceBoost),
		IsActive:          true,
	}
	if err := s.validateRule(ctx, &rule); err != nil {
		return nil, err
	}

	now := time.Now()
	rule.AuditFields = domain.AuditFields{
		CreatedAt:     now,
		CreatedBy:     creatorUserID,
		LastUpdatedAt: now,
		LastUpdatedBy: creatorUserID,
	}

	if err := s.ruleRepo.SaveRule(ctx, rule); err != nil {
		s.LogError(ctx, err, "Failed to save rule", slog.String("firm_id", firmID), slog.String("rule_name", req.Name))
		return nil, err
	}

	s.LogInfo(ctx, "Mapping rule created",
		slog.String("rule_id", rule.RuleID),
		slog.String("firm_id", firmID),
		slog.String("target", rule.TargetAccountCode),
		slog.Int("priority", rule.Priority))
	return &rule, nil
}

// UpdateRule applies partial updates to an existing rule.
func (s *ruleService) UpdateRule(ctx context.Context, firmID string, ruleID string, req dto.UpdateRuleRequest, updaterUserID string) (*domain.MappingRule, error) {
	if err := s.AuthorizeUser(ctx, updaterUserID, firmID, domain.RoleAdmin); err != nil {
		return nil, err
	}

	rule, err := s.ruleRepo.FindRuleByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	if rule.FirmID != firmID {
		return nil, apperrors.ErrNotFound
	}

	if req.Name != nil {
		rule.Name = *req.Name
	}
	if req.Pattern != nil {
		rule.Pattern = *req.Pattern
	}
	if req.IsRegex != nil {
		rule.IsRegex = *req.IsRegex
	}
	if req.MatchMode != nil {
		rule.MatchMode = *req.MatchMode
	}
	if req.TargetAccountCode != nil {
		rule.TargetAccountCode = *req.TargetAccountCode
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}
	if req.ConfidenceBoost != nil {
		rule.ConfidenceBoost = clampBoost(*req.ConfidenceBoost)
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}
	if rule.IsRegex && rule.MatchMode == "" {
		rule.MatchMode = domain.MatchPartial
	}
	if !rule.IsRegex {
		rule.MatchMode = ""
	}

	if err := s.validateRule(ctx, rule); err != nil {
		return nil, err
	}

	rule.LastUpdatedAt = time.Now()
	rule.LastUpdatedBy = updaterUserID

	if err := s.ruleRepo.UpdateRule(ctx, *rule); err != nil {
		s.LogError(ctx, err, "Failed to update rule", slog.String("rule_id", ruleID))
		return nil, err
	}

	s.LogInfo(ctx, "Mapping rule updated", slog.String("rule_id", ruleID), slog.String("firm_id", firmID))
	return rule, nil
}

// DeactivateRule takes a rule out of evaluation while preserving it for
// audit replay of past suggestions.
func (s *ruleService) DeactivateRule(ctx context.Context, firmID string, ruleID string, deleterUserID string) error {
	if err := s.AuthorizeUser(ctx, deleterUserID, firmID, domain.RoleAdmin); err != nil {
		return err
	}

	rule, err := s.ruleRepo.FindRuleByID(ctx, ruleID)
	if err != nil {
		return err
	}
	if rule.FirmID != firmID {
		return apperrors.ErrNotFound
	}

	if err := s.ruleRepo.DeactivateRule(ctx, ruleID, deleterUserID, time.Now()); err != nil {
		s.LogError(ctx, err, "Failed to deactivate rule", slog.String("rule_id", ruleID))
		return err
	}

	s.LogInfo(ctx, "Mapping rule deactivated", slog.String("rule_id", ruleID), slog.String("firm_id", firmID))
	return nil
}

// DeleteRule hard-deletes a rule. Rules that contributed to confirmed
// mappings are needed for audit replay and can only be deactivated.
func (s *ruleService) DeleteRule(ctx context.Context, firmID string, ruleID string, deleterUserID string) error {
	if err := s.AuthorizeUser(ctx, deleterUserID, firmID, domain.RoleAdmin); err != nil {
		return err
	}

	rule, err := s.ruleRepo.FindRuleByID(ctx, ruleID)
	if err != nil {
		return err
	}
	if rule.FirmID != firmID {
		return apperrors.ErrNotFound
	}

	contributed, err := s.ruleRepo.HasContributedMappings(ctx, ruleID)
	if err != nil {
		s.LogError(ctx, err, "Failed to check rule contributions", slog.String("rule_id", ruleID))
		return fmt.Errorf("failed to check rule contributions: %w", err)
	}
	if contributed {
		s.LogWarn(ctx, "Refusing to delete contributing rule; deactivate instead",
			slog.String("rule_id", ruleID),
			slog.String("firm_id", firmID))
		return apperrors.ErrRuleInUse
	}

	if err := s.ruleRepo.DeleteRule(ctx, ruleID); err != nil {
		s.LogError(ctx, err, "Failed to delete rule", slog.String("rule_id", ruleID))
		return err
	}

	s.LogInfo(ctx, "Mapping rule deleted", slog.String("rule_id", ruleID), slog.String("firm_id", firmID))
	return nil
}

// validateRule enforces admin-time invariants: pattern present and
// compilable when regex, target resolvable to an active leaf account.
// Runtime evaluation still skips malformed patterns defensively, since rules
// may also arrive through bulk imports.
func (s *ruleService) validateRule(ctx context.Context, rule *domain.MappingRule) error {
	if rule.Pattern == "" {
		return fmt.Errorf("%w: rule pattern is required", apperrors.ErrValidation)
	}
	if rule.IsRegex {
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			return fmt.Errorf("%w: invalid regex pattern: %v", apperrors.ErrValidation, err)
		}
	}

	target, err := s.coaSvc.GetAccountByCode(ctx, rule.TargetAccountCode)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: target account %s not found", apperrors.ErrValidation, rule.TargetAccountCode)
		}
		return fmt.Errorf("failed to resolve target account: %w", err)
	}
	if !target.IsMappingTarget() {
		return fmt.Errorf("%w: target account %s is not a mappable leaf", apperrors.ErrValidation, rule.TargetAccountCode)
	}
	return nil
}

// clampBoost bounds a confidence boost to [-1, 1].
func clampBoost(boost float64) float64 {
	if boost < -1 {
		return -1
	}
	if boost > 1 {
		return 1
	}
	return boost
}
