package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ledgermap/ledgermap_backend/internal/apperrors"
	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	portsrepo "github.com/ledgermap/ledgermap_backend/internal/core/ports/repositories"
	"github.com/ledgermap/ledgermap_backend/internal/models"
	"github.com/ledgermap/ledgermap_backend/internal/utils/mapping"
)

type PgxSuggestionRepository struct {
	BaseRepository
}

// newPgxSuggestionRepository creates a new repository for mapping suggestion data.
func newPgxSuggestionRepository(pool *pgxpool.Pool) portsrepo.SuggestionRepositoryWithTx {
	return &PgxSuggestionRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxSuggestionRepository implements portsrepo.SuggestionRepositoryWithTx
var _ portsrepo.SuggestionRepositoryWithTx = (*PgxSuggestionRepository)(nil)

const suggestionSelectColumns = `
	suggestion_id, line_id, suggested_account_code, suggested_account_name,
	confidence, confidence_bucket, method, rule_id, model_version, alternatives,
	is_active, review_status, chosen_account_code, is_divergent,
	reviewed_by, reviewed_at, feedback,
	created_at, created_by, last_updated_at, last_updated_by
`

// scanSuggestionRow scans one suggestion row in suggestionSelectColumns order.
func scanSuggestionRow(row pgx.Row) (models.MappingSuggestion, error) {
	var m models.MappingSuggestion
	var ruleID, modelVersion, chosenAccountCode, reviewedBy, feedback sql.NullString
	err := row.Scan(
		&m.SuggestionID,
		&m.LineID,
		&m.SuggestedAccountCode,
		&m.SuggestedAccountName,
		&m.Confidence,
		&m.ConfidenceBucket,
		&m.Method,
		&ruleID,
		&modelVersion,
		&m.Alternatives,
		&m.IsActive,
		&m.ReviewStatus,
		&chosenAccountCode,
		&m.IsDivergent,
		&reviewedBy,
		&m.ReviewedAt,
		&feedback,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return models.MappingSuggestion{}, err
	}
	m.RuleID = ruleID.String
	m.ModelVersion = modelVersion.String
	m.ChosenAccountCode = chosenAccountCode.String
	m.ReviewedBy = reviewedBy.String
	m.Feedback = feedback.String
	return m, nil
}

// FindSuggestionByID retrieves a suggestion by its ID.
func (r *PgxSuggestionRepository) FindSuggestionByID(ctx context.Context, suggestionID string) (*domain.MappingSuggestion, error) {
	query := `
		SELECT ` + suggestionSelectColumns + `
		FROM mapping_suggestions
		WHERE suggestion_id = $1;
	`
	m, err := scanSuggestionRow(r.Pool.QueryRow(ctx, query, suggestionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find suggestion by ID "+suggestionID, err)
	}

	domainSuggestion, err := mapping.ToDomainMappingSuggestion(m)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to map suggestion "+suggestionID, err)
	}
	return &domainSuggestion, nil
}

// FindActiveSuggestionByLineID retrieves the single active suggestion for a
// line, or ErrNotFound when the line has none.
func (r *PgxSuggestionRepository) FindActiveSuggestionByLineID(ctx context.Context, lineID string) (*domain.MappingSuggestion, error) {
	query := `
		SELECT ` + suggestionSelectColumns + `
		FROM mapping_suggestions
		WHERE line_id = $1 AND is_active = TRUE;
	`
	m, err := scanSuggestionRow(r.Pool.QueryRow(ctx, query, lineID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find active suggestion for line "+lineID, err)
	}

	domainSuggestion, err := mapping.ToDomainMappingSuggestion(m)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to map active suggestion for line "+lineID, err)
	}
	return &domainSuggestion, nil
}

// ListSuggestionsByLineID retrieves a line's full suggestion chain, newest
// first, including superseded records.
func (r *PgxSuggestionRepository) ListSuggestionsByLineID(ctx context.Context, lineID string) ([]domain.MappingSuggestion, error) {
	query := `
		SELECT ` + suggestionSelectColumns + `
		FROM mapping_suggestions
		WHERE line_id = $1
		ORDER BY created_at DESC, suggestion_id DESC;
	`
	rows, err := r.Pool.Query(ctx, query, lineID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query suggestions for line "+lineID, err)
	}
	defer rows.Close()

	modelSuggestions := []models.MappingSuggestion{}
	for rows.Next() {
		m, scanErr := scanSuggestionRow(rows)
		if scanErr != nil {
			return nil, apperrors.NewAppError(500, "failed to scan suggestion row for line "+lineID, scanErr)
		}
		modelSuggestions = append(modelSuggestions, m)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating suggestion rows for line "+lineID, err)
	}

	domainSuggestions, err := mapping.ToDomainMappingSuggestionSlice(modelSuggestions)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to map suggestions for line "+lineID, err)
	}
	return domainSuggestions, nil
}

// ReplaceActiveSuggestion supersedes the line's current active suggestion and
// inserts the new one as active, in one transaction. When markLineSuggested is
// set the line moves to suggested; terminal lines abort the whole transaction
// so a concurrent confirm is never stomped.
func (r *PgxSuggestionRepository) ReplaceActiveSuggestion(ctx context.Context, suggestion domain.MappingSuggestion, markLineSuggested bool) error {
	modelSuggestion, err := mapping.ToModelMappingSuggestion(suggestion)
	if err != nil {
		return apperrors.NewAppError(500, "failed to map suggestion "+suggestion.SuggestionID, err)
	}

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	supersedeQuery := `
		UPDATE mapping_suggestions
		SET is_active = FALSE, last_updated_at = $2, last_updated_by = $3
		WHERE line_id = $1 AND is_active = TRUE;
	`
	// Zero rows affected just means the line had no prior suggestion.
	_, err = tx.Exec(ctx, supersedeQuery, modelSuggestion.LineID, modelSuggestion.LastUpdatedAt, modelSuggestion.LastUpdatedBy)
	if err != nil {
		return apperrors.NewAppError(500, "failed to supersede active suggestion for line "+modelSuggestion.LineID, err)
	}

	insertQuery := `
		INSERT INTO mapping_suggestions (
			suggestion_id, line_id, suggested_account_code, suggested_account_name,
			confidence, confidence_bucket, method, rule_id, model_version, alternatives,
			is_active, review_status, chosen_account_code, is_divergent,
			reviewed_by, reviewed_at, feedback,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21);
	`
	var ruleID, modelVersion, chosenAccountCode, reviewedBy, feedback sql.NullString
	if modelSuggestion.RuleID != "" {
		ruleID = sql.NullString{String: modelSuggestion.RuleID, Valid: true}
	}
	if modelSuggestion.ModelVersion != "" {
		modelVersion = sql.NullString{String: modelSuggestion.ModelVersion, Valid: true}
	}
	if modelSuggestion.ChosenAccountCode != "" {
		chosenAccountCode = sql.NullString{String: modelSuggestion.ChosenAccountCode, Valid: true}
	}
	if modelSuggestion.ReviewedBy != "" {
		reviewedBy = sql.NullString{String: modelSuggestion.ReviewedBy, Valid: true}
	}
	if modelSuggestion.Feedback != "" {
		feedback = sql.NullString{String: modelSuggestion.Feedback, Valid: true}
	}

	_, err = tx.Exec(ctx, insertQuery,
		modelSuggestion.SuggestionID,
		modelSuggestion.LineID,
		modelSuggestion.SuggestedAccountCode,
		modelSuggestion.SuggestedAccountName,
		modelSuggestion.Confidence,
		modelSuggestion.ConfidenceBucket,
		modelSuggestion.Method,
		ruleID,
		modelVersion,
		modelSuggestion.Alternatives,
		modelSuggestion.IsActive,
		modelSuggestion.ReviewStatus,
		chosenAccountCode,
		modelSuggestion.IsDivergent,
		reviewedBy,
		modelSuggestion.ReviewedAt,
		feedback,
		modelSuggestion.CreatedAt,
		modelSuggestion.CreatedBy,
		modelSuggestion.LastUpdatedAt,
		modelSuggestion.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return fmt.Errorf("%w: suggestion %s already exists", apperrors.ErrDuplicate, modelSuggestion.SuggestionID)
			}
			if pgErr.Code == "23503" { // foreign_key_violation
				return fmt.Errorf("%w: line %s does not exist", apperrors.ErrNotFound, modelSuggestion.LineID)
			}
		}
		return apperrors.NewAppError(500, "failed to insert suggestion "+modelSuggestion.SuggestionID, err)
	}

	if markLineSuggested {
		lineQuery := `
			UPDATE trial_balance_lines
			SET status = $2, version = version + 1, last_updated_at = $3, last_updated_by = $4
			WHERE line_id = $1 AND status IN ($5, $6, $7);
		`
		cmdTag, err := tx.Exec(ctx, lineQuery,
			modelSuggestion.LineID,
			string(domain.LineSuggested),
			modelSuggestion.LastUpdatedAt,
			modelSuggestion.LastUpdatedBy,
			string(domain.LineUnmapped),
			string(domain.LineSuggested),
			string(domain.LineRejected),
		)
		if err != nil {
			return apperrors.NewAppError(500, "failed to mark line "+modelSuggestion.LineID+" suggested", err)
		}
		if cmdTag.RowsAffected() == 0 {
			return fmt.Errorf("%w: line %s moved to a terminal status", apperrors.ErrVersionConflict, modelSuggestion.LineID)
		}
	}

	return r.Commit(ctx, tx)
}
