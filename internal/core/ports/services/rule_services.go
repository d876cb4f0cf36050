package services

import (
	"context"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	"github.com/ledgermap/ledgermap_backend/internal/dto"
)

// RuleReaderSvc defines read operations for firm mapping rules.
type RuleReaderSvc interface {
	// GetRuleByID retrieves a single mapping rule, checking firm membership.
	GetRuleByID(ctx context.Context, firmID string, ruleID string, userID string) (*domain.MappingRule, error)

	// ListRules retrieves the firm's rules in evaluation order (priority
	// descending, then creation time, then rule ID).
	ListRules(ctx context.Context, firmID string, includeInactive bool, userID string) ([]domain.MappingRule, error)
}

// RuleWriterSvc defines write operations for firm mapping rules.
type RuleWriterSvc interface {
	// CreateRule creates a new mapping rule for the firm.
	CreateRule(ctx context.Context, firmID string, req dto.CreateRuleRequest, creatorUserID string) (*domain.MappingRule, error)

	// UpdateRule updates an existing mapping rule.
	UpdateRule(ctx context.Context, firmID string, ruleID string, req dto.UpdateRuleRequest, updaterUserID string) (*domain.MappingRule, error)

	// DeactivateRule marks a rule inactive so it is skipped during evaluation
	// but keeps it for provenance on past suggestions.
	DeactivateRule(ctx context.Context, firmID string, ruleID string, deleterUserID string) error

	// DeleteRule removes a rule permanently. Rules that have contributed to
	// confirmed mappings cannot be deleted, only deactivated.
	DeleteRule(ctx context.Context, firmID string, ruleID string, deleterUserID string) error
}

// RuleSvcFacade combines all mapping-rule service interfaces.
type RuleSvcFacade interface {
	RuleReaderSvc
	RuleWriterSvc
}
