package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledgermap/ledgermap_backend/internal/apperrors"
	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	portsrepo "github.com/ledgermap/ledgermap_backend/internal/core/ports/repositories"
	portssvc "github.com/ledgermap/ledgermap_backend/internal/core/ports/services"
	"github.com/ledgermap/ledgermap_backend/internal/dto"
	"github.com/google/uuid"
)

// coaService manages the canonical chart of accounts. The chart is global
// reference data shared by every firm; it must exist before any mapping can
// be produced. Reads are open to any authenticated user, writes require
// platform admin.
type coaService struct {
	BaseService
	accountRepo  portsrepo.AccountRepositoryFacade
	platformAuth portssvc.PlatformAuthorizerSvc
}

// NewCOAService creates a new chart-of-accounts service.
func NewCOAService(repo portsrepo.AccountRepositoryFacade, platformAuth portssvc.PlatformAuthorizerSvc) portssvc.COASvcFacade {
	return &coaService{accountRepo: repo, platformAuth: platformAuth}
}

var _ portssvc.COASvcFacade = (*coaService)(nil)

// GetAccountByCode retrieves a single canonical account.
func (s *coaService) GetAccountByCode(ctx context.Context, code string) (*domain.Account, error) {
	account, err := s.accountRepo.FindAccountByCode(ctx, code)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find account by code", slog.String("code", code))
		}
		return nil, err
	}
	return account, nil
}

// ListAccounts retrieves the full canonical chart, ordered by code.
func (s *coaService) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.accountRepo.ListAccounts(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to list accounts")
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	if accounts == nil {
		return []domain.Account{}, nil
	}
	return accounts, nil
}

// ListChildren retrieves the direct children of an account.
func (s *coaService) ListChildren(ctx context.Context, code string) ([]domain.Account, error) {
	if _, err := s.accountRepo.FindAccountByCode(ctx, code); err != nil {
		return nil, err
	}
	children, err := s.accountRepo.ListChildren(ctx, code)
	if err != nil {
		s.LogError(ctx, err, "Failed to list account children", slog.String("code", code))
		return nil, fmt.Errorf("failed to list children of %s: %w", code, err)
	}
	if children == nil {
		return []domain.Account{}, nil
	}
	return children, nil
}

// Taxonomy builds a fresh read-only snapshot of the chart. The engine takes
// one snapshot per batch so every line of the batch sees the same tree.
func (s *coaService) Taxonomy(ctx context.Context) (*domain.Taxonomy, error) {
	accounts, err := s.accountRepo.ListAccounts(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to load accounts for taxonomy snapshot")
		return nil, fmt.Errorf("failed to snapshot taxonomy: %w", err)
	}
	return domain.NewTaxonomy(accounts), nil
}

// CreateAccount validates and inserts one account into the canonical tree.
func (s *coaService) CreateAccount(ctx context.Context, req dto.CreateAccountRequest, creatorUserID string) (*domain.Account, error) {
	if err := s.platformAuth.AuthorizePlatformAdmin(ctx, creatorUserID); err != nil {
		return nil, err
	}

	account, flipParentLeaf, err := s.validateInsert(ctx, req)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	account.AccountID = uuid.NewString()
	account.IsActive = true
	account.AuditFields = domain.AuditFields{
		CreatedAt:     now,
		CreatedBy:     creatorUserID,
		LastUpdatedAt: now,
		LastUpdatedBy: creatorUserID,
	}

	if err := s.accountRepo.SaveAccount(ctx, *account, flipParentLeaf); err != nil {
		s.LogError(ctx, err, "Failed to save account", slog.String("code", account.Code))
		return nil, err
	}

	s.LogInfo(ctx, "Canonical account created",
		slog.String("code", account.Code),
		slog.Int("level", account.Level),
		slog.Bool("is_leaf", account.IsLeaf))
	return account, nil
}

// validateInsert enforces the tree invariants for one new account: unique
// code, existing active parent, level = parent.level+1. A parent that is a
// mapped leaf cannot gain children, since that would retroactively turn a
// mapping target into a rollup node.
func (s *coaService) validateInsert(ctx context.Context, req dto.CreateAccountRequest) (*domain.Account, bool, error) {
	if req.Code == "" {
		return nil, false, fmt.Errorf("%w: account code is required", apperrors.ErrValidation)
	}

	if _, err := s.accountRepo.FindAccountByCode(ctx, req.Code); err == nil {
		return nil, false, fmt.Errorf("%w: account code %s already exists", apperrors.ErrDuplicate, req.Code)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to check code uniqueness: %w", err)
	}

	level := 1
	flipParentLeaf := false
	if req.ParentCode != "" {
		parent, err := s.accountRepo.FindAccountByCode(ctx, req.ParentCode)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, false, fmt.Errorf("%w: parent account %s not found", apperrors.ErrValidation, req.ParentCode)
			}
			return nil, false, fmt.Errorf("failed to resolve parent account: %w", err)
		}
		if !parent.IsActive {
			return nil, false, fmt.Errorf("%w: parent account %s is inactive", apperrors.ErrValidation, req.ParentCode)
		}
		if parent.IsLeaf {
			mapped, err := s.accountRepo.HasConfirmedMappingsForCodes(ctx, []string{parent.Code})
			if err != nil {
				return nil, false, fmt.Errorf("failed to check parent mappings: %w", err)
			}
			if mapped {
				return nil, false, fmt.Errorf("%w: account %s has confirmed mappings and cannot gain children", apperrors.ErrImmutable, parent.Code)
			}
			flipParentLeaf = true
		}
		level = parent.Level + 1
	}

	return &domain.Account{
		Code:          req.Code,
		Name:          req.Name,
		AccountType:   req.AccountType,
		Subtype:       req.Subtype,
		ParentCode:    req.ParentCode,
		Level:         level,
		IsLeaf:        req.IsLeaf,
		NormalBalance: req.NormalBalance,
		ConceptTag:    req.ConceptTag,
	}, flipParentLeaf, nil
}

// UpdateAccount updates the mutable attributes of an account. Structural
// fields and the normal balance are not reachable from the request type, so
// historical reports stay consistent by construction.
func (s *coaService) UpdateAccount(ctx context.Context, code string, req dto.UpdateAccountRequest, updaterUserID string) (*domain.Account, error) {
	if err := s.platformAuth.AuthorizePlatformAdmin(ctx, updaterUserID); err != nil {
		return nil, err
	}

	account, err := s.accountRepo.FindAccountByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		account.Name = *req.Name
	}
	if req.Subtype != nil {
		account.Subtype = *req.Subtype
	}
	if req.ConceptTag != nil {
		account.ConceptTag = *req.ConceptTag
	}
	if req.IsActive != nil && *req.IsActive != account.IsActive {
		if !*req.IsActive {
			if err := s.ensureDeactivatable(ctx, account); err != nil {
				return nil, err
			}
		}
		account.IsActive = *req.IsActive
	}

	account.LastUpdatedAt = time.Now()
	account.LastUpdatedBy = updaterUserID

	if err := s.accountRepo.UpdateAccount(ctx, *account); err != nil {
		s.LogError(ctx, err, "Failed to update account", slog.String("code", code))
		return nil, err
	}

	s.LogInfo(ctx, "Canonical account updated", slog.String("code", code))
	return account, nil
}

// DeactivateAccount marks an account inactive so it stops accepting mappings.
func (s *coaService) DeactivateAccount(ctx context.Context, code string, deleterUserID string) error {
	if err := s.platformAuth.AuthorizePlatformAdmin(ctx, deleterUserID); err != nil {
		return err
	}

	account, err := s.accountRepo.FindAccountByCode(ctx, code)
	if err != nil {
		return err
	}
	if !account.IsActive {
		return fmt.Errorf("%w: account %s is already inactive", apperrors.ErrValidation, code)
	}
	if err := s.ensureDeactivatable(ctx, account); err != nil {
		return err
	}

	if err := s.accountRepo.DeactivateAccount(ctx, code, deleterUserID, time.Now()); err != nil {
		s.LogError(ctx, err, "Failed to deactivate account", slog.String("code", code))
		return err
	}

	s.LogInfo(ctx, "Canonical account deactivated", slog.String("code", code), slog.String("deleted_by", deleterUserID))
	return nil
}

// ensureDeactivatable rejects deactivation while any direct child is active,
// so the active tree never contains orphaned subtrees.
func (s *coaService) ensureDeactivatable(ctx context.Context, account *domain.Account) error {
	children, err := s.accountRepo.ListChildren(ctx, account.Code)
	if err != nil {
		return fmt.Errorf("failed to check children of %s: %w", account.Code, err)
	}
	for _, child := range children {
		if child.IsActive {
			return fmt.Errorf("%w: account %s still has active child %s", apperrors.ErrValidation, account.Code, child.Code)
		}
	}
	return nil
}

// ImportAccounts bulk-loads canonical accounts in one transaction. Rows must
// arrive parent-before-child; the whole batch is validated against the
// existing tree plus earlier rows before anything is persisted.
func (s *coaService) ImportAccounts(ctx context.Context, req dto.ImportAccountsRequest, creatorUserID string) ([]domain.Account, error) {
	if err := s.platformAuth.AuthorizePlatformAdmin(ctx, creatorUserID); err != nil {
		return nil, err
	}

	existing, err := s.accountRepo.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing accounts: %w", err)
	}

	known := make(map[string]*domain.Account, len(existing)+len(req.Accounts))
	for i := range existing {
		known[existing[i].Code] = &existing[i]
	}

	now := time.Now()
	accounts := make([]domain.Account, 0, len(req.Accounts)) // capacity fixed so map pointers below stay valid
	clearLeaf := make([]string, 0)
	clearLeafSeen := make(map[string]bool)
	batchCodes := make(map[string]bool, len(req.Accounts))

	for i, row := range req.Accounts {
		if row.Code == "" {
			return nil, fmt.Errorf("%w: row %d: account code is required", apperrors.ErrValidation, i+1)
		}
		if _, dup := known[row.Code]; dup {
			return nil, fmt.Errorf("%w: row %d: account code %s already exists", apperrors.ErrDuplicate, i+1, row.Code)
		}

		level := 1
		if row.ParentCode != "" {
			parent, ok := known[row.ParentCode]
			if !ok {
				return nil, fmt.Errorf("%w: row %d: parent account %s not found (parents must precede children)", apperrors.ErrValidation, i+1, row.ParentCode)
			}
			if !parent.IsActive {
				return nil, fmt.Errorf("%w: row %d: parent account %s is inactive", apperrors.ErrValidation, i+1, row.ParentCode)
			}
			if parent.IsLeaf {
				mapped, err := s.accountRepo.HasConfirmedMappingsForCodes(ctx, []string{parent.Code})
				if err != nil {
					return nil, fmt.Errorf("failed to check parent mappings: %w", err)
				}
				if mapped {
					return nil, fmt.Errorf("%w: row %d: account %s has confirmed mappings and cannot gain children", apperrors.ErrImmutable, i+1, parent.Code)
				}
				parent.IsLeaf = false
				if !batchCodes[parent.Code] && !clearLeafSeen[parent.Code] {
					// Pre-existing parent, needs its stored leaf flag cleared
					clearLeaf = append(clearLeaf, parent.Code)
					clearLeafSeen[parent.Code] = true
				}
			}
			level = parent.Level + 1
		}

		account := domain.Account{
			AccountID:     uuid.NewString(),
			Code:          row.Code,
			Name:          row.Name,
			AccountType:   row.AccountType,
			Subtype:       row.Subtype,
			ParentCode:    row.ParentCode,
			Level:         level,
			IsLeaf:        row.IsLeaf,
			NormalBalance: row.NormalBalance,
			ConceptTag:    row.ConceptTag,
			IsActive:      true,
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     creatorUserID,
				LastUpdatedAt: now,
				LastUpdatedBy: creatorUserID,
			},
		}
		accounts = append(accounts, account)
		known[account.Code] = &accounts[len(accounts)-1]
		batchCodes[account.Code] = true
	}

	if err := s.accountRepo.SaveAccounts(ctx, accounts, clearLeaf); err != nil {
		s.LogError(ctx, err, "Failed to save account batch", slog.Int("count", len(accounts)))
		return nil, err
	}

	s.LogInfo(ctx, "Canonical accounts imported",
		slog.Int("count", len(accounts)),
		slog.Int("parents_unlocked", len(clearLeaf)))
	return accounts, nil
}
