package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ledgermap/ledgermap_backend/internal/apperrors"
	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	portsrepo "github.com/ledgermap/ledgermap_backend/internal/core/ports/repositories"
	"github.com/ledgermap/ledgermap_backend/internal/models"
	"github.com/ledgermap/ledgermap_backend/internal/utils/mapping"
)

type PgxRuleRepository struct {
	db *pgxpool.Pool
}

// newPgxRuleRepository creates a new repository for firm mapping rules.
func newPgxRuleRepository(db *pgxpool.Pool) portsrepo.RuleRepositoryFacade {
	return &PgxRuleRepository{db: db}
}

// Ensure PgxRuleRepository implements portsrepo.RuleRepositoryFacade
var _ portsrepo.RuleRepositoryFacade = (*PgxRuleRepository)(nil)

func (r *PgxRuleRepository) SaveRule(ctx context.Context, rule domain.MappingRule) error {
	modelRule := mapping.ToModelMappingRule(rule)
	query := `
		INSERT INTO mapping_rules (
			rule_id, firm_id, name, pattern, is_regex, match_mode, target_account_code,
			priority, confidence_boost, is_active,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
	`
	_, err := r.db.Exec(ctx, query,
		modelRule.RuleID,
		modelRule.FirmID,
		modelRule.Name,
		modelRule.Pattern,
		modelRule.IsRegex,
		modelRule.MatchMode,
		modelRule.TargetAccountCode,
		modelRule.Priority,
		modelRule.ConfidenceBoost,
		modelRule.IsActive,
		modelRule.CreatedAt,
		modelRule.CreatedBy,
		modelRule.LastUpdatedAt,
		modelRule.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return fmt.Errorf("%w: rule %s already exists", apperrors.ErrDuplicate, modelRule.RuleID)
			}
			if pgErr.Code == "23503" { // foreign_key_violation
				return fmt.Errorf("%w: target account %s does not exist", apperrors.ErrValidation, modelRule.TargetAccountCode)
			}
		}
		return fmt.Errorf("failed to save rule %s: %w", modelRule.RuleID, err)
	}
	return nil
}

func (r *PgxRuleRepository) FindRuleByID(ctx context.Context, ruleID string) (*domain.MappingRule, error) {
	query := `
		SELECT rule_id, firm_id, name, pattern, is_regex, match_mode, target_account_code,
		       priority, confidence_boost, is_active,
		       created_at, created_by, last_updated_at, last_updated_by
		FROM mapping_rules
		WHERE rule_id = $1;
	`
	var m models.MappingRule
	err := r.db.QueryRow(ctx, query, ruleID).Scan(
		&m.RuleID,
		&m.FirmID,
		&m.Name,
		&m.Pattern,
		&m.IsRegex,
		&m.MatchMode,
		&m.TargetAccountCode,
		&m.Priority,
		&m.ConfidenceBoost,
		&m.IsActive,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find rule by ID %s: %w", ruleID, err)
	}

	domainRule := mapping.ToDomainMappingRule(m)
	return &domainRule, nil
}

// ListRulesByFirm retrieves a firm's rules in evaluation order: priority
// descending, then creation time and rule id ascending so equal priorities
// resolve deterministically.
func (r *PgxRuleRepository) ListRulesByFirm(ctx context.Context, firmID string, includeInactive bool) ([]domain.MappingRule, error) {
	query := `
		SELECT rule_id, firm_id, name, pattern, is_regex, match_mode, target_account_code,
		       priority, confidence_boost, is_active,
		       created_at, created_by, last_updated_at, last_updated_by
		FROM mapping_rules
		WHERE firm_id = $1
	`
	if !includeInactive {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY priority DESC, created_at ASC, rule_id ASC;`

	rows, err := r.db.Query(ctx, query, firmID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules for firm %s: %w", firmID, err)
	}
	defer rows.Close()

	modelRules := []models.MappingRule{}
	for rows.Next() {
		var m models.MappingRule
		err := rows.Scan(
			&m.RuleID,
			&m.FirmID,
			&m.Name,
			&m.Pattern,
			&m.IsRegex,
			&m.MatchMode,
			&m.TargetAccountCode,
			&m.Priority,
			&m.ConfidenceBoost,
			&m.IsActive,
			&m.CreatedAt,
			&m.CreatedBy,
			&m.LastUpdatedAt,
			&m.LastUpdatedBy,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule row for firm %s: %w", firmID, err)
		}
		modelRules = append(modelRules, m)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating rule rows for firm %s: %w", firmID, rows.Err())
	}

	return mapping.ToDomainMappingRuleSlice(modelRules), nil
}

// HasContributedMappings reports whether any suggestion backed by this rule
// landed in the mapping history. History rows are append-only, so once a rule
// has contributed it stays contributed.
func (r *PgxRuleRepository) HasContributedMappings(ctx context.Context, ruleID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM mapping_history h
			JOIN mapping_suggestions s ON s.suggestion_id = h.suggestion_id
			WHERE s.rule_id = $1
		);
	`
	var exists bool
	err := r.db.QueryRow(ctx, query, ruleID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check contributed mappings for rule %s: %w", ruleID, err)
	}
	return exists, nil
}

func (r *PgxRuleRepository) UpdateRule(ctx context.Context, rule domain.MappingRule) error {
	modelRule := mapping.ToModelMappingRule(rule)
	query := `
		UPDATE mapping_rules
		SET name = $2, pattern = $3, is_regex = $4, match_mode = $5, target_account_code = $6,
		    priority = $7, confidence_boost = $8, is_active = $9, last_updated_at = $10, last_updated_by = $11
		WHERE rule_id = $1;
	`
	cmdTag, err := r.db.Exec(ctx, query,
		modelRule.RuleID,
		modelRule.Name,
		modelRule.Pattern,
		modelRule.IsRegex,
		modelRule.MatchMode,
		modelRule.TargetAccountCode,
		modelRule.Priority,
		modelRule.ConfidenceBoost,
		modelRule.IsActive,
		modelRule.LastUpdatedAt,
		modelRule.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23503" { // foreign_key_violation
				return fmt.Errorf("%w: target account %s does not exist", apperrors.ErrValidation, modelRule.TargetAccountCode)
			}
		}
		return fmt.Errorf("failed to execute update rule %s: %w", modelRule.RuleID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PgxRuleRepository) DeactivateRule(ctx context.Context, ruleID string, userID string, now time.Time) error {
	query := `
		UPDATE mapping_rules
		SET is_active = FALSE, last_updated_at = $2, last_updated_by = $3
		WHERE rule_id = $1 AND is_active = TRUE;
	`
	cmdTag, err := r.db.Exec(ctx, query, ruleID, now, userID)
	if err != nil {
		return fmt.Errorf("failed to deactivate rule %s: %w", ruleID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		// Either the rule doesn't exist or it was already inactive.
		_, findErr := r.FindRuleByID(ctx, ruleID)
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return apperrors.ErrNotFound
		} else if findErr != nil {
			return fmt.Errorf("failed to check rule status after deactivation attempt for %s: %w", ruleID, findErr)
		}
		return fmt.Errorf("%w: rule %s is already inactive", apperrors.ErrValidation, ruleID)
	}
	return nil
}

// DeleteRule removes a rule permanently. The service layer guards this with
// HasContributedMappings; rules that backed confirmed mappings are only ever
// deactivated.
func (r *PgxRuleRepository) DeleteRule(ctx context.Context, ruleID string) error {
	query := `DELETE FROM mapping_rules WHERE rule_id = $1;`
	cmdTag, err := r.db.Exec(ctx, query, ruleID)
	if err != nil {
		return fmt.Errorf("failed to delete rule %s: %w", ruleID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
