package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ledgermap/ledgermap_backend/internal/apperrors"
	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	portsrepo "github.com/ledgermap/ledgermap_backend/internal/core/ports/repositories"
	"github.com/ledgermap/ledgermap_backend/internal/models"
	"github.com/ledgermap/ledgermap_backend/internal/utils/mapping"
	"github.com/ledgermap/ledgermap_backend/internal/utils/pagination"
)

type PgxTrialBalanceRepository struct {
	BaseRepository
}

// newPgxTrialBalanceRepository creates a new repository for trial balance and line data.
func newPgxTrialBalanceRepository(pool *pgxpool.Pool) portsrepo.TrialBalanceRepositoryWithTx {
	return &PgxTrialBalanceRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxTrialBalanceRepository implements portsrepo.TrialBalanceRepositoryWithTx
var _ portsrepo.TrialBalanceRepositoryWithTx = (*PgxTrialBalanceRepository)(nil)

const trialBalanceSelectColumns = `
	trial_balance_id, firm_id, engagement_id, period_end, source_system, currency_code,
	declared_total_debits, declared_total_credits, total_debits, total_credits,
	difference, is_balanced, line_count, status, superseded_by,
	created_at, created_by, last_updated_at, last_updated_by
`

const lineSelectColumns = `
	line_id, trial_balance_id, line_number, source_code, source_name, normalized_source,
	debit, credit, net, is_material, status, mapped_account_code, mapping_confidence,
	mapping_method, version,
	created_at, created_by, last_updated_at, last_updated_by
`

// scanTrialBalanceLineRow scans one line row in lineSelectColumns order.
func scanTrialBalanceLineRow(row pgx.Row) (models.TrialBalanceLine, error) {
	var m models.TrialBalanceLine
	var mappedAccountCode, mappingMethod sql.NullString
	err := row.Scan(
		&m.LineID,
		&m.TrialBalanceID,
		&m.LineNumber,
		&m.SourceCode,
		&m.SourceName,
		&m.NormalizedSource,
		&m.Debit,
		&m.Credit,
		&m.Net,
		&m.IsMaterial,
		&m.Status,
		&mappedAccountCode,
		&m.MappingConfidence,
		&mappingMethod,
		&m.Version,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return models.TrialBalanceLine{}, err
	}
	m.MappedAccountCode = mappedAccountCode.String
	m.MappingMethod = mappingMethod.String
	return m, nil
}

// insertTrialBalanceContents inserts the trial balance header, its lines and
// its declared subtotals using the supplied transaction. The caller owns
// commit and rollback.
func (r *PgxTrialBalanceRepository) insertTrialBalanceContents(ctx context.Context, tx pgx.Tx, tb domain.TrialBalance, lines []domain.TrialBalanceLine, subtotals []domain.DeclaredSubtotal) error {
	modelTB := mapping.ToModelTrialBalance(tb)

	tbQuery := `
		INSERT INTO trial_balances (
			trial_balance_id, firm_id, engagement_id, period_end, source_system, currency_code,
			declared_total_debits, declared_total_credits, total_debits, total_credits,
			difference, is_balanced, line_count, status, superseded_by,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19);
	`
	var supersededBy sql.NullString
	if modelTB.SupersededBy != "" {
		supersededBy = sql.NullString{String: modelTB.SupersededBy, Valid: true}
	}

	_, err := tx.Exec(ctx, tbQuery,
		modelTB.TrialBalanceID,
		modelTB.FirmID,
		modelTB.EngagementID,
		modelTB.PeriodEnd,
		modelTB.SourceSystem,
		modelTB.CurrencyCode,
		modelTB.DeclaredTotalDebits,
		modelTB.DeclaredTotalCredits,
		modelTB.TotalDebits,
		modelTB.TotalCredits,
		modelTB.Difference,
		modelTB.IsBalanced,
		modelTB.LineCount,
		modelTB.Status,
		supersededBy,
		modelTB.CreatedAt,
		modelTB.CreatedBy,
		modelTB.LastUpdatedAt,
		modelTB.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return fmt.Errorf("%w: trial balance %s already exists", apperrors.ErrDuplicate, modelTB.TrialBalanceID)
			}
		}
		return apperrors.NewAppError(500, "failed to insert trial balance "+modelTB.TrialBalanceID, err)
	}

	batch := &pgx.Batch{}
	lineQuery := `
		INSERT INTO trial_balance_lines (
			line_id, trial_balance_id, line_number, source_code, source_name, normalized_source,
			debit, credit, net, is_material, status, mapped_account_code, mapping_confidence,
			mapping_method, version,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19);
	`
	for _, line := range lines {
		modelLine := mapping.ToModelTrialBalanceLine(line)

		var mappedAccountCode, mappingMethod sql.NullString
		if modelLine.MappedAccountCode != "" {
			mappedAccountCode = sql.NullString{String: modelLine.MappedAccountCode, Valid: true}
		}
		if modelLine.MappingMethod != "" {
			mappingMethod = sql.NullString{String: modelLine.MappingMethod, Valid: true}
		}

		batch.Queue(lineQuery,
			modelLine.LineID,
			modelLine.TrialBalanceID,
			modelLine.LineNumber,
			modelLine.SourceCode,
			modelLine.SourceName,
			modelLine.NormalizedSource,
			modelLine.Debit,
			modelLine.Credit,
			modelLine.Net,
			modelLine.IsMaterial,
			modelLine.Status,
			mappedAccountCode,
			modelLine.MappingConfidence,
			mappingMethod,
			modelLine.Version,
			modelLine.CreatedAt,
			modelLine.CreatedBy,
			modelLine.LastUpdatedAt,
			modelLine.LastUpdatedBy,
		)
	}

	subtotalQuery := `
		INSERT INTO declared_subtotals (trial_balance_id, account_code, amount)
		VALUES ($1, $2, $3);
	`
	for _, subtotal := range subtotals {
		modelSubtotal := mapping.ToModelDeclaredSubtotal(subtotal)
		batch.Queue(subtotalQuery,
			modelSubtotal.TrialBalanceID,
			modelSubtotal.AccountCode,
			modelSubtotal.Amount,
		)
	}

	br := tx.SendBatch(ctx, batch)
	if err := br.Close(); err != nil { // Close surfaces errors from each queued command
		return apperrors.NewAppError(500, "failed to execute line batch for trial balance "+modelTB.TrialBalanceID, err)
	}

	return nil
}

// SaveTrialBalance persists a trial balance with its lines and declared
// subtotals within a single transaction.
func (r *PgxTrialBalanceRepository) SaveTrialBalance(ctx context.Context, tb domain.TrialBalance, lines []domain.TrialBalanceLine, subtotals []domain.DeclaredSubtotal) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if err := r.insertTrialBalanceContents(ctx, tx, tb, lines, subtotals); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// SupersedeTrialBalance marks the old trial balance superseded and inserts
// its replacement in the same transaction, so readers never observe two
// active imports for the engagement period.
func (r *PgxTrialBalanceRepository) SupersedeTrialBalance(ctx context.Context, oldTrialBalanceID string, tb domain.TrialBalance, lines []domain.TrialBalanceLine, subtotals []domain.DeclaredSubtotal) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	supersedeQuery := `
		UPDATE trial_balances
		SET status = $2, superseded_by = $3, last_updated_at = $4, last_updated_by = $5
		WHERE trial_balance_id = $1 AND status = $6;
	`
	cmdTag, err := tx.Exec(ctx, supersedeQuery,
		oldTrialBalanceID,
		string(domain.TBSuperseded),
		tb.TrialBalanceID,
		tb.CreatedAt,
		tb.CreatedBy,
		string(domain.TBActive),
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to supersede trial balance "+oldTrialBalanceID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		// Lost a race with another re-import; the old version is already frozen.
		return fmt.Errorf("%w: trial balance %s is no longer active", apperrors.ErrImmutable, oldTrialBalanceID)
	}

	if err := r.insertTrialBalanceContents(ctx, tx, tb, lines, subtotals); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// ApplyReviewDecision atomically updates the line, its reviewed suggestion and
// the mapping history. The line update is guarded by expectedVersion; a stale
// version rolls everything back with ErrVersionConflict.
func (r *PgxTrialBalanceRepository) ApplyReviewDecision(ctx context.Context, line domain.TrialBalanceLine, expectedVersion int64, suggestion *domain.MappingSuggestion, history *domain.MappingHistory) error {
	modelLine := mapping.ToModelTrialBalanceLine(line)

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	lineQuery := `
		UPDATE trial_balance_lines
		SET status = $3, mapped_account_code = $4, mapping_confidence = $5, mapping_method = $6,
		    version = version + 1, last_updated_at = $7, last_updated_by = $8
		WHERE line_id = $1 AND version = $2;
	`
	var mappedAccountCode, mappingMethod sql.NullString
	if modelLine.MappedAccountCode != "" {
		mappedAccountCode = sql.NullString{String: modelLine.MappedAccountCode, Valid: true}
	}
	if modelLine.MappingMethod != "" {
		mappingMethod = sql.NullString{String: modelLine.MappingMethod, Valid: true}
	}

	cmdTag, err := tx.Exec(ctx, lineQuery,
		modelLine.LineID,
		expectedVersion,
		modelLine.Status,
		mappedAccountCode,
		modelLine.MappingConfidence,
		mappingMethod,
		modelLine.LastUpdatedAt,
		modelLine.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update line "+modelLine.LineID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: line %s was modified by another review (expected version %d)", apperrors.ErrVersionConflict, modelLine.LineID, expectedVersion)
	}

	if suggestion != nil {
		if err := updateSuggestionReviewTx(ctx, tx, *suggestion); err != nil {
			return err
		}
	}

	if history != nil {
		if err := insertMappingHistoryTx(ctx, tx, *history); err != nil {
			return err
		}
	}

	return r.Commit(ctx, tx)
}

// ReopenLine resets a terminal line and marks its reviewed suggestion
// reopened. The version still bumps so concurrent reviews conflict.
func (r *PgxTrialBalanceRepository) ReopenLine(ctx context.Context, line domain.TrialBalanceLine, suggestionID string) error {
	modelLine := mapping.ToModelTrialBalanceLine(line)

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	lineQuery := `
		UPDATE trial_balance_lines
		SET status = $2, mapped_account_code = NULL, mapping_confidence = 0, mapping_method = NULL,
		    version = version + 1, last_updated_at = $3, last_updated_by = $4
		WHERE line_id = $1;
	`
	cmdTag, err := tx.Exec(ctx, lineQuery,
		modelLine.LineID,
		modelLine.Status,
		modelLine.LastUpdatedAt,
		modelLine.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to reopen line "+modelLine.LineID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	if suggestionID != "" {
		// The decision is withdrawn but the reviewed record is kept intact
		// for audit; only its review status changes.
		suggestionQuery := `
			UPDATE mapping_suggestions
			SET review_status = $2, last_updated_at = $3, last_updated_by = $4
			WHERE suggestion_id = $1;
		`
		cmdTag, err := tx.Exec(ctx, suggestionQuery,
			suggestionID,
			string(domain.ReviewReopened),
			modelLine.LastUpdatedAt,
			modelLine.LastUpdatedBy,
		)
		if err != nil {
			return apperrors.NewAppError(500, "failed to mark suggestion "+suggestionID+" reopened", err)
		}
		if cmdTag.RowsAffected() == 0 {
			return fmt.Errorf("%w: suggestion %s not found during reopen", apperrors.ErrNotFound, suggestionID)
		}
	}

	return r.Commit(ctx, tx)
}

// updateSuggestionReviewTx writes the review outcome onto a suggestion row.
func updateSuggestionReviewTx(ctx context.Context, tx pgx.Tx, suggestion domain.MappingSuggestion) error {
	modelSuggestion, err := mapping.ToModelMappingSuggestion(suggestion)
	if err != nil {
		return apperrors.NewAppError(500, "failed to map suggestion "+suggestion.SuggestionID, err)
	}

	query := `
		UPDATE mapping_suggestions
		SET review_status = $2, chosen_account_code = $3, is_divergent = $4,
		    reviewed_by = $5, reviewed_at = $6, feedback = $7,
		    last_updated_at = $8, last_updated_by = $9
		WHERE suggestion_id = $1;
	`
	var chosenAccountCode, reviewedBy, feedback sql.NullString
	if modelSuggestion.ChosenAccountCode != "" {
		chosenAccountCode = sql.NullString{String: modelSuggestion.ChosenAccountCode, Valid: true}
	}
	if modelSuggestion.ReviewedBy != "" {
		reviewedBy = sql.NullString{String: modelSuggestion.ReviewedBy, Valid: true}
	}
	if modelSuggestion.Feedback != "" {
		feedback = sql.NullString{String: modelSuggestion.Feedback, Valid: true}
	}

	cmdTag, err := tx.Exec(ctx, query,
		modelSuggestion.SuggestionID,
		modelSuggestion.ReviewStatus,
		chosenAccountCode,
		modelSuggestion.IsDivergent,
		reviewedBy,
		modelSuggestion.ReviewedAt,
		feedback,
		modelSuggestion.LastUpdatedAt,
		modelSuggestion.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update reviewed suggestion "+modelSuggestion.SuggestionID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: suggestion %s not found during review", apperrors.ErrNotFound, modelSuggestion.SuggestionID)
	}
	return nil
}

// insertMappingHistoryTx appends one precedent row. History is append-only;
// there is no update or delete path anywhere in the codebase.
func insertMappingHistoryTx(ctx context.Context, tx pgx.Tx, history domain.MappingHistory) error {
	modelHistory := mapping.ToModelMappingHistory(history)

	query := `
		INSERT INTO mapping_history (
			history_id, firm_id, source_code, source_name, normalized_source, account_code,
			method, confidence, line_id, suggestion_id, confirmed_by, confirmed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	var suggestionID sql.NullString
	if modelHistory.SuggestionID != "" {
		suggestionID = sql.NullString{String: modelHistory.SuggestionID, Valid: true}
	}

	_, err := tx.Exec(ctx, query,
		modelHistory.HistoryID,
		modelHistory.FirmID,
		modelHistory.SourceCode,
		modelHistory.SourceName,
		modelHistory.NormalizedSource,
		modelHistory.AccountCode,
		modelHistory.Method,
		modelHistory.Confidence,
		modelHistory.LineID,
		suggestionID,
		modelHistory.ConfirmedBy,
		modelHistory.ConfirmedAt,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert mapping history for line "+modelHistory.LineID, err)
	}
	return nil
}

// FindTrialBalanceByID retrieves a trial balance by its ID.
func (r *PgxTrialBalanceRepository) FindTrialBalanceByID(ctx context.Context, trialBalanceID string) (*domain.TrialBalance, error) {
	query := `
		SELECT ` + trialBalanceSelectColumns + `
		FROM trial_balances
		WHERE trial_balance_id = $1;
	`
	var m models.TrialBalance
	var supersededBy sql.NullString

	err := r.Pool.QueryRow(ctx, query, trialBalanceID).Scan(
		&m.TrialBalanceID,
		&m.FirmID,
		&m.EngagementID,
		&m.PeriodEnd,
		&m.SourceSystem,
		&m.CurrencyCode,
		&m.DeclaredTotalDebits,
		&m.DeclaredTotalCredits,
		&m.TotalDebits,
		&m.TotalCredits,
		&m.Difference,
		&m.IsBalanced,
		&m.LineCount,
		&m.Status,
		&supersededBy,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find trial balance by ID "+trialBalanceID, err)
	}

	m.SupersededBy = supersededBy.String
	domainTB := mapping.ToDomainTrialBalance(m)
	return &domainTB, nil
}

// ListTrialBalancesByFirm retrieves a paginated list of a firm's trial
// balances using token-based pagination, newest first.
func (r *PgxTrialBalanceRepository) ListTrialBalancesByFirm(ctx context.Context, firmID string, limit int, nextToken *string) ([]domain.TrialBalance, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	// Fetch one extra item to determine if there's a next page.
	fetchLimit := limit + 1

	baseQuery := `
		SELECT ` + trialBalanceSelectColumns + `
		FROM trial_balances
		WHERE firm_id = $1
	`
	// Ordering must be stable; trial_balance_id breaks created_at ties.
	orderByClause := `ORDER BY created_at DESC, trial_balance_id DESC`

	args := []any{firmID}
	query := baseQuery

	if nextToken != nil && *nextToken != "" {
		fields, decodeErr := pagination.DecodeMultiFieldToken(*nextToken)
		if decodeErr != nil || len(fields) != 2 {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", decodeErr)
		}
		lastCreatedAt, parseErr := time.Parse(time.RFC3339Nano, fields[0])
		if parseErr != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", parseErr)
		}

		// Tuple comparison keeps the cursor condition concise and index friendly.
		query += ` AND (created_at, trial_balance_id) < ($2, $3) `
		args = append(args, lastCreatedAt, fields[1])
	}

	query += " " + orderByClause + " LIMIT $" + strconv.Itoa(len(args)+1) + ";"
	args = append(args, fetchLimit)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to query trial balances for firm "+firmID, err)
	}
	defer rows.Close()

	modelTBs := make([]models.TrialBalance, 0, fetchLimit)
	for rows.Next() {
		var m models.TrialBalance
		var supersededBy sql.NullString

		scanErr := rows.Scan(
			&m.TrialBalanceID,
			&m.FirmID,
			&m.EngagementID,
			&m.PeriodEnd,
			&m.SourceSystem,
			&m.CurrencyCode,
			&m.DeclaredTotalDebits,
			&m.DeclaredTotalCredits,
			&m.TotalDebits,
			&m.TotalCredits,
			&m.Difference,
			&m.IsBalanced,
			&m.LineCount,
			&m.Status,
			&supersededBy,
			&m.CreatedAt,
			&m.CreatedBy,
			&m.LastUpdatedAt,
			&m.LastUpdatedBy,
		)
		if scanErr != nil {
			return nil, nil, apperrors.NewAppError(500, "failed to scan trial balance row for firm "+firmID, scanErr)
		}

		m.SupersededBy = supersededBy.String
		modelTBs = append(modelTBs, m)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, apperrors.NewAppError(500, "error iterating trial balance rows for firm "+firmID, err)
	}

	// Determine the next token from the last item included in this page.
	var nextTokenVal *string
	results := modelTBs
	if len(modelTBs) > limit {
		lastTB := modelTBs[limit-1]
		newToken := pagination.EncodeMultiFieldToken(lastTB.CreatedAt.Format(time.RFC3339Nano), lastTB.TrialBalanceID)
		nextTokenVal = &newToken
		results = modelTBs[:limit]
	}

	domainTBs := make([]domain.TrialBalance, len(results))
	for i, m := range results {
		domainTBs[i] = mapping.ToDomainTrialBalance(m)
	}

	return domainTBs, nextTokenVal, nil
}

// FindLineByID retrieves a single trial balance line.
func (r *PgxTrialBalanceRepository) FindLineByID(ctx context.Context, lineID string) (*domain.TrialBalanceLine, error) {
	query := `
		SELECT ` + lineSelectColumns + `
		FROM trial_balance_lines
		WHERE line_id = $1;
	`
	m, err := scanTrialBalanceLineRow(r.Pool.QueryRow(ctx, query, lineID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find line by ID "+lineID, err)
	}

	domainLine := mapping.ToDomainTrialBalanceLine(m)
	return &domainLine, nil
}

// ListLines retrieves a paginated list of lines ordered by line number. A
// non-nil status restricts the page to lines in that review state.
func (r *PgxTrialBalanceRepository) ListLines(ctx context.Context, trialBalanceID string, status *domain.LineStatus, limit int, nextToken *string) ([]domain.TrialBalanceLine, *string, error) {
	if limit <= 0 {
		limit = 50
	}
	// Fetch one extra item to determine if there's a next page.
	fetchLimit := limit + 1

	query := `
		SELECT ` + lineSelectColumns + `
		FROM trial_balance_lines
		WHERE trial_balance_id = $1
	`
	args := []any{trialBalanceID}

	if status != nil {
		query += ` AND status = $` + strconv.Itoa(len(args)+1)
		args = append(args, string(*status))
	}

	if nextToken != nil && *nextToken != "" {
		fields, decodeErr := pagination.DecodeMultiFieldToken(*nextToken)
		if decodeErr != nil || len(fields) != 1 {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", decodeErr)
		}
		lastLineNumber, parseErr := strconv.Atoi(fields[0])
		if parseErr != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", parseErr)
		}

		query += ` AND line_number > $` + strconv.Itoa(len(args)+1)
		args = append(args, lastLineNumber)
	}

	query += ` ORDER BY line_number ASC LIMIT $` + strconv.Itoa(len(args)+1) + `;`
	args = append(args, fetchLimit)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to query lines for trial balance "+trialBalanceID, err)
	}
	defer rows.Close()

	modelLines := make([]models.TrialBalanceLine, 0, fetchLimit)
	for rows.Next() {
		m, scanErr := scanTrialBalanceLineRow(rows)
		if scanErr != nil {
			return nil, nil, apperrors.NewAppError(500, "failed to scan line row for trial balance "+trialBalanceID, scanErr)
		}
		modelLines = append(modelLines, m)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, apperrors.NewAppError(500, "error iterating line rows for trial balance "+trialBalanceID, err)
	}

	var nextTokenVal *string
	results := modelLines
	if len(modelLines) > limit {
		lastLine := modelLines[limit-1]
		newToken := pagination.EncodeMultiFieldToken(strconv.Itoa(lastLine.LineNumber))
		nextTokenVal = &newToken
		results = modelLines[:limit]
	}

	return mapping.ToDomainTrialBalanceLineSlice(results), nextTokenVal, nil
}

// ListAllLines retrieves every line of a trial balance ordered by line number.
// Suggestion batches and validation operate on the complete set.
func (r *PgxTrialBalanceRepository) ListAllLines(ctx context.Context, trialBalanceID string) ([]domain.TrialBalanceLine, error) {
	query := `
		SELECT ` + lineSelectColumns + `
		FROM trial_balance_lines
		WHERE trial_balance_id = $1
		ORDER BY line_number ASC;
	`
	rows, err := r.Pool.Query(ctx, query, trialBalanceID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query all lines for trial balance "+trialBalanceID, err)
	}
	defer rows.Close()

	modelLines := []models.TrialBalanceLine{}
	for rows.Next() {
		m, scanErr := scanTrialBalanceLineRow(rows)
		if scanErr != nil {
			return nil, apperrors.NewAppError(500, "failed to scan line row for trial balance "+trialBalanceID, scanErr)
		}
		modelLines = append(modelLines, m)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating line rows for trial balance "+trialBalanceID, err)
	}

	return mapping.ToDomainTrialBalanceLineSlice(modelLines), nil
}

// ListDeclaredSubtotals retrieves the independently supplied subtotals.
func (r *PgxTrialBalanceRepository) ListDeclaredSubtotals(ctx context.Context, trialBalanceID string) ([]domain.DeclaredSubtotal, error) {
	query := `
		SELECT trial_balance_id, account_code, amount
		FROM declared_subtotals
		WHERE trial_balance_id = $1
		ORDER BY account_code;
	`
	rows, err := r.Pool.Query(ctx, query, trialBalanceID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query declared subtotals for trial balance "+trialBalanceID, err)
	}
	defer rows.Close()

	subtotals := []domain.DeclaredSubtotal{}
	for rows.Next() {
		var m models.DeclaredSubtotal
		if err := rows.Scan(&m.TrialBalanceID, &m.AccountCode, &m.Amount); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan declared subtotal row", err)
		}
		subtotals = append(subtotals, mapping.ToDomainDeclaredSubtotal(m))
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating declared subtotal rows", err)
	}

	return subtotals, nil
}

// HasConfirmedLines reports whether any line carries a confirmed or manual mapping.
func (r *PgxTrialBalanceRepository) HasConfirmedLines(ctx context.Context, trialBalanceID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM trial_balance_lines
			WHERE trial_balance_id = $1 AND status IN ($2, $3)
		);
	`
	var exists bool
	err := r.Pool.QueryRow(ctx, query, trialBalanceID, string(domain.LineConfirmed), string(domain.LineManual)).Scan(&exists)
	if err != nil {
		return false, apperrors.NewAppError(500, "failed to check confirmed lines for trial balance "+trialBalanceID, err)
	}
	return exists, nil
}

// SumMappedNetByAccount sums the net amounts of confirmed and manually mapped
// lines grouped by their mapped account code.
func (r *PgxTrialBalanceRepository) SumMappedNetByAccount(ctx context.Context, trialBalanceID string) ([]domain.MappedAccountNet, error) {
	query := `
		SELECT mapped_account_code, SUM(net) AS net, COUNT(*) AS line_count
		FROM trial_balance_lines
		WHERE trial_balance_id = $1 AND status IN ($2, $3) AND mapped_account_code IS NOT NULL
		GROUP BY mapped_account_code
		ORDER BY mapped_account_code;
	`
	rows, err := r.Pool.Query(ctx, query, trialBalanceID, string(domain.LineConfirmed), string(domain.LineManual))
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to sum mapped net for trial balance "+trialBalanceID, err)
	}
	defer rows.Close()

	nets := []domain.MappedAccountNet{}
	for rows.Next() {
		var n domain.MappedAccountNet
		if err := rows.Scan(&n.AccountCode, &n.Net, &n.LineCount); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan mapped net row", err)
		}
		nets = append(nets, n)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating mapped net rows", err)
	}

	return nets, nil
}

// CountLinesByStatus counts the trial balance's lines grouped by status.
func (r *PgxTrialBalanceRepository) CountLinesByStatus(ctx context.Context, trialBalanceID string) (map[domain.LineStatus]int, error) {
	query := `
		SELECT status, COUNT(*)
		FROM trial_balance_lines
		WHERE trial_balance_id = $1
		GROUP BY status;
	`
	rows, err := r.Pool.Query(ctx, query, trialBalanceID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to count lines by status for trial balance "+trialBalanceID, err)
	}
	defer rows.Close()

	counts := make(map[domain.LineStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan line status count row", err)
		}
		counts[domain.LineStatus(status)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating line status count rows", err)
	}

	return counts, nil
}
