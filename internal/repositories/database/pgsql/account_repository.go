package pgsql

import (
	"context"
	"database/sql"
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

type PgxAccountRepository struct {
	BaseRepository
}

// newPgxAccountRepository creates a new repository for canonical chart-of-accounts data.
func newPgxAccountRepository(pool *pgxpool.Pool) portsrepo.AccountRepositoryWithTx {
	return &PgxAccountRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxAccountRepository implements portsrepo.AccountRepositoryWithTx
var _ portsrepo.AccountRepositoryWithTx = (*PgxAccountRepository)(nil)

const insertAccountQuery = `
	INSERT INTO accounts (
		account_id, code, name, account_type, subtype, parent_code, level, is_leaf,
		normal_balance, concept_tag, is_active,
		created_at, created_by, last_updated_at, last_updated_by
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
`

var FULL_ACCOUNT_SELECT_QUERY = `
SELECT
	a.account_id, a.code, a.name, a.account_type, a.subtype, a.parent_code,
	a.level, a.is_leaf, a.normal_balance, a.concept_tag, a.is_active,
	a.created_at, a.created_by, a.last_updated_at, a.last_updated_by
FROM accounts a
`

// getAccounts private func to fetch accounts for the select query filters
func (r *PgxAccountRepository) getAccounts(ctx context.Context, filterQuery string, args ...any) ([]domain.Account, error) {
	query := FULL_ACCOUNT_SELECT_QUERY + filterQuery
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query accounts", err)
	}
	defer rows.Close()

	modelAccounts := []models.Account{}
	for rows.Next() {
		var m models.Account
		var subtype, parentCode, conceptTag sql.NullString
		err := rows.Scan(
			&m.AccountID,
			&m.Code,
			&m.Name,
			&m.AccountType,
			&subtype,
			&parentCode,
			&m.Level,
			&m.IsLeaf,
			&m.NormalBalance,
			&conceptTag,
			&m.IsActive,
			&m.CreatedAt,
			&m.CreatedBy,
			&m.LastUpdatedAt,
			&m.LastUpdatedBy,
		)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan account row", err)
		}
		m.Subtype = subtype.String
		m.ParentCode = parentCode.String
		m.ConceptTag = conceptTag.String
		modelAccounts = append(modelAccounts, m)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating account rows", err)
	}

	return mapping.ToDomainAccountSlice(modelAccounts), nil
}

// accountInsertArgs builds the positional args for insertAccountQuery.
// Empty subtype, parent_code and concept_tag are stored as NULL.
func accountInsertArgs(m models.Account) []any {
	var subtype, parentCode, conceptTag sql.NullString
	if m.Subtype != "" {
		subtype = sql.NullString{String: m.Subtype, Valid: true}
	}
	if m.ParentCode != "" {
		parentCode = sql.NullString{String: m.ParentCode, Valid: true}
	}
	if m.ConceptTag != "" {
		conceptTag = sql.NullString{String: m.ConceptTag, Valid: true}
	}
	return []any{
		m.AccountID,
		m.Code,
		m.Name,
		m.AccountType,
		subtype,
		parentCode,
		m.Level,
		m.IsLeaf,
		m.NormalBalance,
		conceptTag,
		m.IsActive,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	}
}

// SaveAccount inserts a new account. When flipParentLeaf is set, the parent's
// leaf flag is cleared in the same transaction so the hierarchy stays coherent.
func (r *PgxAccountRepository) SaveAccount(ctx context.Context, account domain.Account, flipParentLeaf bool) error {
	modelAcc := mapping.ToModelAccount(account)

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	_, err = tx.Exec(ctx, insertAccountQuery, accountInsertArgs(modelAcc)...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return fmt.Errorf("%w: account code %s already exists", apperrors.ErrDuplicate, modelAcc.Code)
			}
		}
		return apperrors.NewAppError(500, "failed to save account "+modelAcc.Code, err)
	}

	if flipParentLeaf {
		clearLeafQuery := `
			UPDATE accounts
			SET is_leaf = FALSE, last_updated_at = $2, last_updated_by = $3
			WHERE code = $1 AND is_leaf = TRUE;
		`
		_, err = tx.Exec(ctx, clearLeafQuery, modelAcc.ParentCode, modelAcc.LastUpdatedAt, modelAcc.LastUpdatedBy)
		if err != nil {
			return apperrors.NewAppError(500, "failed to clear leaf flag on parent "+modelAcc.ParentCode, err)
		}
	}

	return r.Commit(ctx, tx)
}

// SaveAccounts inserts a validated batch of accounts in one transaction.
// clearLeafCodes lists pre-existing parents that gain children in this batch.
func (r *PgxAccountRepository) SaveAccounts(ctx context.Context, accounts []domain.Account, clearLeafCodes []string) error {
	if len(accounts) == 0 {
		return nil
	}

	// Use consistent audit values from the first account of the batch
	now := accounts[0].CreatedAt
	userID := accounts[0].CreatedBy

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	batch := &pgx.Batch{}
	for _, account := range accounts {
		modelAcc := mapping.ToModelAccount(account)
		batch.Queue(insertAccountQuery, accountInsertArgs(modelAcc)...)
	}

	clearLeafQuery := `
		UPDATE accounts
		SET is_leaf = FALSE, last_updated_at = $2, last_updated_by = $3
		WHERE code = $1 AND is_leaf = TRUE;
	`
	for _, code := range clearLeafCodes {
		batch.Queue(clearLeafQuery, code, now, userID)
	}

	br := tx.SendBatch(ctx, batch)
	err = br.Close() // Close the batch results to surface errors from each command
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return fmt.Errorf("%w: batch contains an account code that already exists", apperrors.ErrDuplicate)
			}
		}
		return apperrors.NewAppError(500, "failed to execute account insert batch", err)
	}

	return r.Commit(ctx, tx)
}

// FindAccountByCode retrieves an account by its canonical code.
func (r *PgxAccountRepository) FindAccountByCode(ctx context.Context, code string) (*domain.Account, error) {
	query := `WHERE a.code = $1`
	accounts, err := r.getAccounts(ctx, query, code)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return &accounts[0], nil
}

// ListAccounts retrieves the whole taxonomy ordered by code. The canonical
// chart is bounded reference data, so no pagination is applied here.
func (r *PgxAccountRepository) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	query := `ORDER BY a.code;`
	return r.getAccounts(ctx, query)
}

// ListChildren retrieves the direct children of an account ordered by code.
func (r *PgxAccountRepository) ListChildren(ctx context.Context, parentCode string) ([]domain.Account, error) {
	query := `WHERE a.parent_code = $1 ORDER BY a.code;`
	return r.getAccounts(ctx, query, parentCode)
}

// HasConfirmedMappingsForCodes reports whether any of the given codes is
// referenced by a confirmed or manual mapping. Every confirm and manual map
// appends a mapping_history row, so the history table is the complete record.
func (r *PgxAccountRepository) HasConfirmedMappingsForCodes(ctx context.Context, codes []string) (bool, error) {
	if len(codes) == 0 {
		return false, nil
	}

	query := `
		SELECT EXISTS (
			SELECT 1 FROM mapping_history h WHERE h.account_code = ANY($1)
		);
	`
	var exists bool
	err := r.Pool.QueryRow(ctx, query, codes).Scan(&exists)
	if err != nil {
		return false, apperrors.NewAppError(500, "failed to check confirmed mappings for account codes", err)
	}
	return exists, nil
}

// UpdateAccount updates an existing account's details.
func (r *PgxAccountRepository) UpdateAccount(ctx context.Context, account domain.Account) error {
	modelAcc := mapping.ToModelAccount(account)

	query := `
		UPDATE accounts
		SET name = $2, account_type = $3, subtype = $4, normal_balance = $5,
		    concept_tag = $6, is_active = $7, last_updated_at = $8, last_updated_by = $9
		WHERE code = $1;
	`
	// Note: parent_code, level and is_leaf are not updated here. Moving an
	// account within the hierarchy is not supported.

	var subtype, conceptTag sql.NullString
	if modelAcc.Subtype != "" {
		subtype = sql.NullString{String: modelAcc.Subtype, Valid: true}
	}
	if modelAcc.ConceptTag != "" {
		conceptTag = sql.NullString{String: modelAcc.ConceptTag, Valid: true}
	}

	cmdTag, err := r.Pool.Exec(ctx, query,
		modelAcc.Code,
		modelAcc.Name,
		modelAcc.AccountType,
		subtype,
		modelAcc.NormalBalance,
		conceptTag,
		modelAcc.IsActive,
		modelAcc.LastUpdatedAt,
		modelAcc.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to execute update account "+modelAcc.Code, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// DeactivateAccount marks an account as inactive.
func (r *PgxAccountRepository) DeactivateAccount(ctx context.Context, code string, userID string, now time.Time) error {
	query := `
		UPDATE accounts
		SET is_active = FALSE, last_updated_at = $2, last_updated_by = $3
		WHERE code = $1 AND is_active = TRUE;
	` // Only update if it was active

	cmdTag, err := r.Pool.Exec(ctx, query, code, now, userID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to execute deactivate account "+code, err)
	}

	if cmdTag.RowsAffected() == 0 {
		// Either the account doesn't exist or it was already inactive.
		_, findErr := r.FindAccountByCode(ctx, code)
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return apperrors.ErrNotFound
		} else if findErr != nil {
			return fmt.Errorf("failed to check account status after deactivation attempt for %s: %w", code, findErr)
		}
		// The account exists but was already inactive.
		return fmt.Errorf("%w: account %s is already inactive", apperrors.ErrValidation, code)
	}

	return nil
}
