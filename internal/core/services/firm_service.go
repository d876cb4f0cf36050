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
	"github.com/google/uuid"
)

// firmService handles business logic related to firms and memberships.
// Firms are the scoping boundary for all engagement data; most other services
// depend on its AuthorizeUserAction.
type firmService struct {
	BaseService
	firmRepo portsrepo.FirmRepositoryFacade
}

// NewFirmService creates a new firm service.
func NewFirmService(fr portsrepo.FirmRepositoryFacade) portssvc.FirmSvcFacade {
	return &firmService{firmRepo: fr}
}

var _ portssvc.FirmSvcFacade = (*firmService)(nil)

// CreateFirm creates a new firm and makes the creator the initial admin.
func (s *firmService) CreateFirm(ctx context.Context, name, description, creatorUserID string) (*domain.Firm, error) {
	now := time.Now()
	newFirmID := uuid.NewString()

	firm := domain.Firm{
		FirmID:      newFirmID,
		Name:        name,
		Description: description,
		IsActive:    true,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	if err := s.firmRepo.SaveFirm(ctx, firm); err != nil {
		s.LogError(ctx, err, "Failed to save firm in repository", slog.String("firm_name", name))
		return nil, fmt.Errorf("failed to create firm: %w", err)
	}

	membership := domain.FirmMember{
		UserID:   creatorUserID,
		FirmID:   newFirmID,
		Role:     domain.RoleAdmin,
		JoinedAt: now,
	}
	if err := s.firmRepo.AddUserToFirm(ctx, membership); err != nil {
		s.LogError(ctx, err, "Failed to add creator as admin to new firm",
			slog.String("firm_id", newFirmID),
			slog.String("user_id", creatorUserID))
		return nil, fmt.Errorf("failed to enroll creator in firm: %w", err)
	}

	s.LogInfo(ctx, "Firm created successfully",
		slog.String("firm_id", newFirmID),
		slog.String("creator_user_id", creatorUserID))
	return &firm, nil
}

// FindFirmByID retrieves a firm by its ID.
func (s *firmService) FindFirmByID(ctx context.Context, firmID string) (*domain.Firm, error) {
	firm, err := s.firmRepo.FindFirmByID(ctx, firmID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find firm by ID", slog.String("firm_id", firmID))
		}
		return nil, err
	}
	return firm, nil
}

// ListUserFirms retrieves the firms a user belongs to.
func (s *firmService) ListUserFirms(ctx context.Context, userID string, includeDisabled bool) ([]domain.Firm, error) {
	firms, err := s.firmRepo.ListFirmsByUserID(ctx, userID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list firms for user", slog.String("user_id", userID))
		return nil, fmt.Errorf("failed to list firms for user %s: %w", userID, err)
	}

	if !includeDisabled {
		active := firms[:0]
		for _, f := range firms {
			if f.IsActive {
				active = append(active, f)
			}
		}
		firms = active
	}

	if firms == nil {
		return []domain.Firm{}, nil
	}
	return firms, nil
}

// ListFirmUsers retrieves all memberships of a firm. Requires membership.
func (s *firmService) ListFirmUsers(ctx context.Context, firmID string, requestingUserID string) ([]domain.FirmMember, error) {
	if err := s.AuthorizeUserAction(ctx, requestingUserID, firmID, domain.RoleReadOnly); err != nil {
		return nil, err
	}

	members, err := s.firmRepo.ListFirmMembers(ctx, firmID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list firm members", slog.String("firm_id", firmID))
		return nil, fmt.Errorf("failed to list members of firm %s: %w", firmID, err)
	}
	if members == nil {
		return []domain.FirmMember{}, nil
	}
	return members, nil
}

// DeactivateFirm marks a firm as inactive. Admin only.
func (s *firmService) DeactivateFirm(ctx context.Context, firmID string, requestingUserID string) error {
	return s.setFirmActive(ctx, firmID, requestingUserID, false)
}

// ActivateFirm marks a firm as active. Admin only.
func (s *firmService) ActivateFirm(ctx context.Context, firmID string, requestingUserID string) error {
	return s.setFirmActive(ctx, firmID, requestingUserID, true)
}

func (s *firmService) setFirmActive(ctx context.Context, firmID, requestingUserID string, active bool) error {
	if err := s.AuthorizeUserAction(ctx, requestingUserID, firmID, domain.RoleAdmin); err != nil {
		return err
	}

	firm, err := s.firmRepo.FindFirmByID(ctx, firmID)
	if err != nil {
		return err
	}
	if firm.IsActive == active {
		return nil // Already in the requested state
	}

	firm.IsActive = active
	firm.LastUpdatedAt = time.Now()
	firm.LastUpdatedBy = requestingUserID
	if err := s.firmRepo.UpdateFirm(ctx, *firm); err != nil {
		s.LogError(ctx, err, "Failed to update firm active status", slog.String("firm_id", firmID))
		return fmt.Errorf("failed to update firm %s: %w", firmID, err)
	}

	s.LogInfo(ctx, "Firm active status changed",
		slog.String("firm_id", firmID),
		slog.Bool("is_active", active),
		slog.String("updated_by", requestingUserID))
	return nil
}

// AddUserToFirm adds a user to a firm with a specific role. Admin only.
func (s *firmService) AddUserToFirm(ctx context.Context, addingUserID, targetUserID, firmID string, role domain.FirmRole) error {
	if err := s.AuthorizeUserAction(ctx, addingUserID, firmID, domain.RoleAdmin); err != nil {
		return err
	}

	now := time.Now()
	membership := domain.FirmMember{
		UserID:   targetUserID,
		FirmID:   firmID,
		Role:     role,
		JoinedAt: now,
	}

	if err := s.firmRepo.AddUserToFirm(ctx, membership); err != nil {
		s.LogError(ctx, err, "Failed to add user to firm",
			slog.String("target_user_id", targetUserID),
			slog.String("firm_id", firmID))
		return fmt.Errorf("failed to add user %s to firm %s: %w", targetUserID, firmID, err)
	}

	s.LogInfo(ctx, "User added to firm",
		slog.String("target_user_id", targetUserID),
		slog.String("firm_id", firmID),
		slog.String("role", string(role)),
		slog.String("added_by_user_id", addingUserID))
	return nil
}

// RemoveUserFromFirm marks a membership as removed. Admin only; admins cannot
// remove themselves, so a firm always keeps at least one admin.
func (s *firmService) RemoveUserFromFirm(ctx context.Context, requestingUserID, targetUserID, firmID string) error {
	if err := s.AuthorizeUserAction(ctx, requestingUserID, firmID, domain.RoleAdmin); err != nil {
		return err
	}
	if requestingUserID == targetUserID {
		return fmt.Errorf("%w: admins cannot remove themselves from a firm", apperrors.ErrValidation)
	}

	if err := s.firmRepo.UpdateUserFirmRole(ctx, targetUserID, firmID, domain.RoleRemoved); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to remove user from firm",
				slog.String("target_user_id", targetUserID),
				slog.String("firm_id", firmID))
		}
		return err
	}

	s.LogInfo(ctx, "User removed from firm",
		slog.String("target_user_id", targetUserID),
		slog.String("firm_id", firmID),
		slog.String("removed_by_user_id", requestingUserID))
	return nil
}

// UpdateUserFirmRole changes a member's role. Admin only.
func (s *firmService) UpdateUserFirmRole(ctx context.Context, requestingUserID, targetUserID, firmID string, newRole domain.FirmRole) error {
	if err := s.AuthorizeUserAction(ctx, requestingUserID, firmID, domain.RoleAdmin); err != nil {
		return err
	}
	if requestingUserID == targetUserID && newRole != domain.RoleAdmin {
		return fmt.Errorf("%w: admins cannot demote themselves", apperrors.ErrValidation)
	}

	if err := s.firmRepo.UpdateUserFirmRole(ctx, targetUserID, firmID, newRole); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to update user firm role",
				slog.String("target_user_id", targetUserID),
				slog.String("firm_id", firmID))
		}
		return err
	}

	s.LogInfo(ctx, "User firm role updated",
		slog.String("target_user_id", targetUserID),
		slog.String("firm_id", firmID),
		slog.String("new_role", string(newRole)),
		slog.String("updated_by_user_id", requestingUserID))
	return nil
}

// AuthorizeUserAction checks if a user has the required role (or higher)
// within a specific firm.
// Returns apperrors.ErrForbidden if the user is not a member or lacks the role.
func (s *firmService) AuthorizeUserAction(ctx context.Context, userID, firmID string, requiredRole domain.FirmRole) error {
	membership, err := s.firmRepo.FindUserFirmRole(ctx, userID, firmID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.LogDebug(ctx, "User not a member of firm",
				slog.String("user_id", userID),
				slog.String("firm_id", firmID))
			return apperrors.ErrForbidden
		}
		s.LogError(ctx, err, "Failed to find user firm role",
			slog.String("user_id", userID),
			slog.String("firm_id", firmID))
		return fmt.Errorf("failed to check authorization: %w", err)
	}

	if !hasRequiredRole(membership.Role, requiredRole) {
		s.LogDebug(ctx, "User does not have required role",
			slog.String("user_id", userID),
			slog.String("firm_id", firmID),
			slog.String("user_role", string(membership.Role)),
			slog.String("required_role", string(requiredRole)))
		return apperrors.ErrForbidden
	}

	return nil
}

// roleRank orders firm roles for hierarchy checks. REMOVED ranks below
// everything and never authorizes.
var roleRank = map[domain.FirmRole]int{
	domain.RoleReadOnly: 1,
	domain.RoleMember:   2,
	domain.RoleAdmin:    3,
}

// hasRequiredRole checks if the user's role meets or exceeds the required role
func hasRequiredRole(userRole, requiredRole domain.FirmRole) bool {
	userRank, ok := roleRank[userRole]
	if !ok {
		return false
	}
	requiredRank, ok := roleRank[requiredRole]
	if !ok {
		return false
	}
	return userRank >= requiredRank
}
