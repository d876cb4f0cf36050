package pgsql

import (
	"context"
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

type PgxFirmRepository struct {
	BaseRepository
}

// newPgxFirmRepository creates a new repository for firm and membership data.
func newPgxFirmRepository(pool *pgxpool.Pool) portsrepo.FirmRepositoryWithTx {
	return &PgxFirmRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxFirmRepository implements portsrepo.FirmRepositoryWithTx
var _ portsrepo.FirmRepositoryWithTx = (*PgxFirmRepository)(nil)

var FULL_FIRM_SELECT_QUERY = `
SELECT
	f.firm_id, f.name, f.description, f.is_active,
	f.created_at, f.created_by, f.last_updated_at, f.last_updated_by
FROM firms f
`

// getFirms private func to fetch firms for the select query filters
func (r *PgxFirmRepository) getFirms(ctx context.Context, filterQuery string, args ...any) ([]domain.Firm, error) {
	query := FULL_FIRM_SELECT_QUERY + filterQuery
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query firms", err)
	}
	defer rows.Close()

	domainFirms := []domain.Firm{}
	for rows.Next() {
		var m models.Firm
		err := rows.Scan(
			&m.FirmID,
			&m.Name,
			&m.Description,
			&m.IsActive,
			&m.CreatedAt,
			&m.CreatedBy,
			&m.LastUpdatedAt,
			&m.LastUpdatedBy,
		)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan firm row", err)
		}
		domainFirms = append(domainFirms, mapping.ToDomainFirm(m))
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating firm rows", err)
	}

	return domainFirms, nil
}

func (r *PgxFirmRepository) SaveFirm(ctx context.Context, firm domain.Firm) error {
	modelFirm := mapping.ToModelFirm(firm)
	query := `
		INSERT INTO firms (
			firm_id, name, description, is_active,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	_, err := r.Pool.Exec(ctx, query,
		modelFirm.FirmID,
		modelFirm.Name,
		modelFirm.Description,
		modelFirm.IsActive,
		modelFirm.CreatedAt,
		modelFirm.CreatedBy,
		modelFirm.LastUpdatedAt,
		modelFirm.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return fmt.Errorf("%w: firm %s already exists", apperrors.ErrDuplicate, modelFirm.FirmID)
			}
		}
		return apperrors.NewAppError(500, "failed to save firm "+modelFirm.FirmID, err)
	}
	return nil
}

func (r *PgxFirmRepository) UpdateFirm(ctx context.Context, firm domain.Firm) error {
	modelFirm := mapping.ToModelFirm(firm)
	query := `
		UPDATE firms
		SET name = $2, description = $3, is_active = $4, last_updated_at = $5, last_updated_by = $6
		WHERE firm_id = $1;
	`
	cmdTag, err := r.Pool.Exec(ctx, query,
		modelFirm.FirmID,
		modelFirm.Name,
		modelFirm.Description,
		modelFirm.IsActive,
		modelFirm.LastUpdatedAt,
		modelFirm.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update firm "+modelFirm.FirmID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PgxFirmRepository) FindFirmByID(ctx context.Context, firmID string) (*domain.Firm, error) {
	query := `WHERE f.firm_id = $1`
	firms, err := r.getFirms(ctx, query, firmID)
	if err != nil {
		return nil, err
	}
	if len(firms) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return &firms[0], nil
}

// ListFirmsByUserID retrieves all firms a user belongs to, excluding
// memberships with the REMOVED role.
func (r *PgxFirmRepository) ListFirmsByUserID(ctx context.Context, userID string) ([]domain.Firm, error) {
	query := `
		JOIN firm_members fm ON f.firm_id = fm.firm_id
		WHERE fm.user_id = $1 AND fm.role != $2
		ORDER BY f.name;
	`
	return r.getFirms(ctx, query, userID, domain.RoleRemoved)
}

func (r *PgxFirmRepository) AddUserToFirm(ctx context.Context, membership domain.FirmMember) error {
	query := `
		INSERT INTO firm_members (user_id, firm_id, role, joined_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, firm_id) DO UPDATE SET role = EXCLUDED.role;
	` // Upsert: add user or update their role if they already exist
	_, err := r.Pool.Exec(ctx, query,
		membership.UserID,
		membership.FirmID,
		membership.Role,
		membership.JoinedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23503" { // foreign_key_violation
				return fmt.Errorf("%w: user or firm does not exist", apperrors.ErrValidation)
			}
		}
		return apperrors.NewAppError(500, "failed to add user "+membership.UserID+" to firm "+membership.FirmID, err)
	}
	return nil
}

func (r *PgxFirmRepository) FindUserFirmRole(ctx context.Context, userID, firmID string) (*domain.FirmMember, error) {
	query := `
		SELECT user_id, firm_id, role, joined_at
		FROM firm_members
		WHERE user_id = $1 AND firm_id = $2;
	`
	var m models.FirmMember
	err := r.Pool.QueryRow(ctx, query, userID, firmID).Scan(
		&m.UserID,
		&m.FirmID,
		&m.Role,
		&m.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Absence of a membership row reads the same as an unknown firm.
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find role of user "+userID+" in firm "+firmID, err)
	}

	member := mapping.ToDomainFirmMember(m)
	return &member, nil
}

// ListFirmMembers retrieves all memberships of a firm joined with user names,
// excluding removed members.
func (r *PgxFirmRepository) ListFirmMembers(ctx context.Context, firmID string) ([]domain.FirmMember, error) {
	query := `
		SELECT fm.user_id, u.name AS user_name, fm.firm_id, fm.role, fm.joined_at
		FROM firm_members fm
		JOIN users u ON fm.user_id = u.user_id
		WHERE fm.firm_id = $1 AND fm.role != $2
		ORDER BY fm.joined_at DESC;
	`
	rows, err := r.Pool.Query(ctx, query, firmID, domain.RoleRemoved)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query members for firm "+firmID, err)
	}
	defer rows.Close()

	var members []domain.FirmMember
	for rows.Next() {
		var member domain.FirmMember
		err := rows.Scan(
			&member.UserID,
			&member.UserName,
			&member.FirmID,
			&member.Role,
			&member.JoinedAt,
		)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan firm member row", err)
		}
		members = append(members, member)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating firm member rows", err)
	}

	return members, nil
}

// UpdateUserFirmRole changes the role of an existing membership. Removal is
// modeled as a role change to REMOVED so the join history stays intact.
func (r *PgxFirmRepository) UpdateUserFirmRole(ctx context.Context, userID, firmID string, role domain.FirmRole) error {
	query := `
		UPDATE firm_members
		SET role = $3
		WHERE user_id = $1 AND firm_id = $2;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, userID, firmID, role)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update role for user "+userID+" in firm "+firmID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
