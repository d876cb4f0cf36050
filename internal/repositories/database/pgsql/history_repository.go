package pgsql

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ledgermap/ledgermap_backend/internal/apperrors"
	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	portsrepo "github.com/ledgermap/ledgermap_backend/internal/core/ports/repositories"
	"github.com/ledgermap/ledgermap_backend/internal/models"
	"github.com/ledgermap/ledgermap_backend/internal/utils/mapping"
	"github.com/ledgermap/ledgermap_backend/internal/utils/pagination"
)

// PgxHistoryRepository reads the append-only precedent store. Writes happen
// exclusively inside the review decision transaction owned by the trial
// balance repository, so no write methods exist here.
type PgxHistoryRepository struct {
	db *pgxpool.Pool
}

// newPgxHistoryRepository creates a new repository for mapping history reads.
func newPgxHistoryRepository(db *pgxpool.Pool) portsrepo.HistoryRepositoryFacade {
	return &PgxHistoryRepository{db: db}
}

// Ensure PgxHistoryRepository implements portsrepo.HistoryRepositoryFacade
var _ portsrepo.HistoryRepositoryFacade = (*PgxHistoryRepository)(nil)

var FULL_HISTORY_SELECT_QUERY = `
SELECT
	h.history_id, h.firm_id, h.source_code, h.source_name, h.normalized_source,
	h.account_code, h.method, h.confidence, h.line_id, h.suggestion_id,
	h.confirmed_by, h.confirmed_at
FROM mapping_history h
`

// getHistory private func to fetch history rows for the select query filters
func (r *PgxHistoryRepository) getHistory(ctx context.Context, filterQuery string, args ...any) ([]domain.MappingHistory, error) {
	query := FULL_HISTORY_SELECT_QUERY + filterQuery
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query mapping history", err)
	}
	defer rows.Close()

	modelHistory := []models.MappingHistory{}
	for rows.Next() {
		var m models.MappingHistory
		var suggestionID sql.NullString
		err := rows.Scan(
			&m.HistoryID,
			&m.FirmID,
			&m.SourceCode,
			&m.SourceName,
			&m.NormalizedSource,
			&m.AccountCode,
			&m.Method,
			&m.Confidence,
			&m.LineID,
			&suggestionID,
			&m.ConfirmedBy,
			&m.ConfirmedAt,
		)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan mapping history row", err)
		}
		m.SuggestionID = suggestionID.String
		modelHistory = append(modelHistory, m)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating mapping history rows", err)
	}

	return mapping.ToDomainMappingHistorySlice(modelHistory), nil
}

// FindPrecedents retrieves the firm's prior confirmed mappings whose
// normalized source text matches exactly, newest first.
func (r *PgxHistoryRepository) FindPrecedents(ctx context.Context, firmID string, normalizedSource string) ([]domain.MappingHistory, error) {
	query := `WHERE h.firm_id = $1 AND h.normalized_source = $2 ORDER BY h.confirmed_at DESC, h.history_id DESC;`
	return r.getHistory(ctx, query, firmID, normalizedSource)
}

// FindPrecedentsGlobal retrieves prior confirmed mappings across all firms
// for the normalized source text, newest first.
func (r *PgxHistoryRepository) FindPrecedentsGlobal(ctx context.Context, normalizedSource string) ([]domain.MappingHistory, error) {
	query := `WHERE h.normalized_source = $1 ORDER BY h.confirmed_at DESC, h.history_id DESC;`
	return r.getHistory(ctx, query, normalizedSource)
}

// ListHistoryByAccountCode retrieves a paginated list of a firm's history
// rows for one canonical account using token-based pagination, newest first.
func (r *PgxHistoryRepository) ListHistoryByAccountCode(ctx context.Context, firmID string, accountCode string, limit int, nextToken *string) ([]domain.MappingHistory, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	// Fetch one extra item to determine if there's a next page.
	fetchLimit := limit + 1

	filterQuery := `WHERE h.firm_id = $1 AND h.account_code = $2`
	args := []any{firmID, accountCode}

	if nextToken != nil && *nextToken != "" {
		fields, decodeErr := pagination.DecodeMultiFieldToken(*nextToken)
		if decodeErr != nil || len(fields) != 2 {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", decodeErr)
		}
		lastConfirmedAt, parseErr := time.Parse(time.RFC3339Nano, fields[0])
		if parseErr != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", parseErr)
		}

		filterQuery += ` AND (h.confirmed_at, h.history_id) < ($3, $4)`
		args = append(args, lastConfirmedAt, fields[1])
	}

	filterQuery += ` ORDER BY h.confirmed_at DESC, h.history_id DESC LIMIT $` + strconv.Itoa(len(args)+1) + `;`
	args = append(args, fetchLimit)

	history, err := r.getHistory(ctx, filterQuery, args...)
	if err != nil {
		return nil, nil, err
	}

	// Determine the next token from the last item included in this page.
	var nextTokenVal *string
	if len(history) > limit {
		lastRow := history[limit-1]
		newToken := pagination.EncodeMultiFieldToken(lastRow.ConfirmedAt.Format(time.RFC3339Nano), lastRow.HistoryID)
		nextTokenVal = &newToken
		history = history[:limit]
	}

	return history, nextTokenVal, nil
}
