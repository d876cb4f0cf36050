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

type PgxAPITokenRepository struct {
	BaseRepository
}

// newPgxAPITokenRepository creates a new instance of PgxAPITokenRepository
func newPgxAPITokenRepository(db *pgxpool.Pool) portsrepo.APITokenRepository {
	return &PgxAPITokenRepository{
		BaseRepository: BaseRepository{Pool: db},
	}
}

// Ensure PgxAPITokenRepository implements portsrepo.APITokenRepository
var _ portsrepo.APITokenRepository = (*PgxAPITokenRepository)(nil)

const (
	apiTokensTable = "api_tokens"

	selectAPITokenFields = `
		id, user_id, name, token_hash,
		last_used_at, expires_at, created_at, updated_at
	`

	// The token ID is generated by the service because it doubles as the
	// lookup half of the plaintext token.
	insertAPITokenQuery = `
		INSERT INTO ` + apiTokensTable + ` (
			id, user_id, name, token_hash, expires_at
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + selectAPITokenFields

	findAPITokenByIDQuery = `
		SELECT ` + selectAPITokenFields + `
		FROM ` + apiTokensTable + `
		WHERE id = $1 AND deleted_at IS NULL
	`

	findAPITokensByUserIDQuery = `
		SELECT ` + selectAPITokenFields + `
		FROM ` + apiTokensTable + `
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`

	updateAPITokenQuery = `
		UPDATE ` + apiTokensTable + `
		SET
			last_used_at = COALESCE($2, last_used_at),
			updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	deleteAPITokenQuery = `
		UPDATE ` + apiTokensTable + `
		SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	deleteAPITokensByUserIDQuery = `
		UPDATE ` + apiTokensTable + `
		SET deleted_at = NOW()
		WHERE user_id = $1 AND deleted_at IS NULL
	`

	deleteExpiredAPITokensQuery = `
		UPDATE ` + apiTokensTable + `
		SET deleted_at = NOW()
		WHERE expires_at < $1 AND deleted_at IS NULL
	`
)

// Create persists a new API token
func (r *PgxAPITokenRepository) Create(ctx context.Context, token *domain.APIToken) error {
	if token == nil {
		return fmt.Errorf("%w: token cannot be nil", apperrors.ErrValidation)
	}

	modelToken := mapping.ToModelAPIToken(*token)

	row := r.Pool.QueryRow(
		ctx,
		insertAPITokenQuery,
		modelToken.ID,
		modelToken.UserID,
		modelToken.Name,
		modelToken.TokenHash,
		modelToken.ExpiresAt,
	)

	createdToken, err := scanAPIToken(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return fmt.Errorf("%w: token %s already exists", apperrors.ErrDuplicate, modelToken.ID)
		}
		return fmt.Errorf("failed to create API token: %w", err)
	}

	// Pick up the database-assigned timestamps
	token.CreatedAt = createdToken.CreatedAt
	token.UpdatedAt = createdToken.UpdatedAt

	return nil
}

// FindByID retrieves an API token by its ID
func (r *PgxAPITokenRepository) FindByID(ctx context.Context, id string) (*domain.APIToken, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id cannot be empty", apperrors.ErrValidation)
	}

	row := r.Pool.QueryRow(ctx, findAPITokenByIDQuery, id)
	token, err := scanAPIToken(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find API token %s: %w", id, err)
	}

	domainToken := mapping.ToDomainAPIToken(*token)
	return &domainToken, nil
}

// FindByUserID retrieves all API tokens for a specific user
func (r *PgxAPITokenRepository) FindByUserID(ctx context.Context, userID string) ([]domain.APIToken, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user ID cannot be empty", apperrors.ErrValidation)
	}

	rows, err := r.Pool.Query(ctx, findAPITokensByUserIDQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query API tokens for user %s: %w", userID, err)
	}
	defer rows.Close()

	var tokens []domain.APIToken
	for rows.Next() {
		token, err := scanAPIToken(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan API token row: %w", err)
		}
		tokens = append(tokens, mapping.ToDomainAPIToken(*token))
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating API token rows: %w", err)
	}

	return tokens, nil
}

// Update updates an existing API token (currently only last_used_at)
func (r *PgxAPITokenRepository) Update(ctx context.Context, token *domain.APIToken) error {
	if token == nil {
		return fmt.Errorf("%w: token cannot be nil", apperrors.ErrValidation)
	}

	modelToken := mapping.ToModelAPIToken(*token)

	result, err := r.Pool.Exec(
		ctx,
		updateAPITokenQuery,
		modelToken.ID,
		modelToken.LastUsedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update API token %s: %w", modelToken.ID, err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// Delete removes an API token by ID (soft delete)
func (r *PgxAPITokenRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: id cannot be empty", apperrors.ErrValidation)
	}

	result, err := r.Pool.Exec(ctx, deleteAPITokenQuery, id)
	if err != nil {
		return fmt.Errorf("failed to delete API token %s: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// DeleteByUserID removes all API tokens for a specific user (soft delete)
func (r *PgxAPITokenRepository) DeleteByUserID(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user ID cannot be empty", apperrors.ErrValidation)
	}

	_, err := r.Pool.Exec(ctx, deleteAPITokensByUserIDQuery, userID)
	if err != nil {
		return fmt.Errorf("failed to delete API tokens for user %s: %w", userID, err)
	}
	return nil
}

// DeleteExpired removes all API tokens that expired before the given time (soft delete)
func (r *PgxAPITokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.Pool.Exec(ctx, deleteExpiredAPITokensQuery, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired API tokens: %w", err)
	}

	return result.RowsAffected(), nil
}

// scanAPIToken scans an API token from a row
func scanAPIToken(row pgx.Row) (*models.APIToken, error) {
	var token models.APIToken
	err := row.Scan(
		&token.ID,
		&token.UserID,
		&token.Name,
		&token.TokenHash,
		&token.LastUsedAt,
		&token.ExpiresAt,
		&token.CreatedAt,
		&token.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &token, nil
}
