package repositories

import (
	"context"
	"time"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
)

// RuleReader defines read operations for mapping rule data
type RuleReader interface {
	// FindRuleByID retrieves a specific rule by its unique identifier.
	FindRuleByID(ctx context.Context, ruleID string) (*domain.MappingRule, error)

	// ListRulesByFirm retrieves a firm's rules ordered by priority descending,
	// creation time ascending, rule id ascending. When includeInactive is
	// false only active rules are returned.
	ListRulesByFirm(ctx context.Context, firmID string, includeInactive bool) ([]domain.MappingRule, error)

	// HasContributedMappings reports whether the rule backed any suggestion
	// that a reviewer confirmed. Such rules must stay replayable for audit.
	HasContributedMappings(ctx context.Context, ruleID string) (bool, error)
}

// RuleWriter defines write operations for mapping rule data
type RuleWriter interface {
	// SaveRule persists a new rule.
	SaveRule(ctx context.Context, rule domain.MappingRule) error

	// UpdateRule updates an existing rule's details.
	UpdateRule(ctx context.Context, rule domain.MappingRule) error

	// DeactivateRule marks a rule as inactive.
	DeactivateRule(ctx context.Context, ruleID string, userID string, now time.Time) error

	// DeleteRule removes a rule permanently. Callers must ensure the rule has
	// not contributed to any confirmed mapping.
	DeleteRule(ctx context.Context, ruleID string) error
}

// RuleRepositoryFacade combines all rule-related repository interfaces
// This is a facade for clients that need access to all operations
type RuleRepositoryFacade interface {
	RuleReader
	RuleWriter
}

// RuleRepositoryWithTx extends RuleRepositoryFacade with transaction capabilities
type RuleRepositoryWithTx interface {
	RuleRepositoryFacade
	TransactionManager
}
