package dto

import (
	"time"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
)

// --- Firm DTOs ---

// CreateFirmRequest defines data for creating a new firm.
type CreateFirmRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// FirmResponse defines data returned for a firm.
type FirmResponse struct {
	FirmID        string    `json:"firmID"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	CreatedBy     string    `json:"createdBy"` // UserID
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	LastUpdatedBy string    `json:"lastUpdatedBy"` // UserID
}

// ToFirmResponse converts domain.Firm to DTO.
func ToFirmResponse(f *domain.Firm) FirmResponse {
	return FirmResponse{
		FirmID:        f.FirmID,
		Name:          f.Name,
		Description:   f.Description,
		IsActive:      f.IsActive,
		CreatedAt:     f.CreatedAt,
		CreatedBy:     f.CreatedBy,
		LastUpdatedAt: f.LastUpdatedAt,
		LastUpdatedBy: f.LastUpdatedBy,
	}
}

// ListFirmsResponse wraps a list of firms.
type ListFirmsResponse struct {
	Firms []FirmResponse `json:"firms"`
}

// ToListFirmsResponse converts a slice of domain.Firm to DTO.
func ToListFirmsResponse(fs []domain.Firm) ListFirmsResponse {
	list := make([]FirmResponse, len(fs))
	for i, f := range fs {
		list[i] = ToFirmResponse(&f)
	}
	return ListFirmsResponse{Firms: list}
}

// --- Firm Membership DTOs ---

// AddUserToFirmRequest defines data for adding a user to a firm.
type AddUserToFirmRequest struct {
	UserID string          `json:"userID" binding:"required"`
	Role   domain.FirmRole `json:"role" binding:"required,oneof=ADMIN MEMBER READONLY"`
}

// UpdateFirmMemberRoleRequest defines data for changing a member's role.
type UpdateFirmMemberRoleRequest struct {
	Role domain.FirmRole `json:"role" binding:"required,oneof=ADMIN MEMBER READONLY"`
}

// FirmMemberResponse defines data returned about a user's membership.
type FirmMemberResponse struct {
	UserID   string          `json:"userID"`
	UserName string          `json:"userName,omitempty"`
	FirmID   string          `json:"firmID"`
	Role     domain.FirmRole `json:"role"`
	JoinedAt time.Time       `json:"joinedAt"`
}

// ToFirmMemberResponse converts domain.FirmMember to DTO.
func ToFirmMemberResponse(m *domain.FirmMember) FirmMemberResponse {
	return FirmMemberResponse{
		UserID:   m.UserID,
		UserName: m.UserName,
		FirmID:   m.FirmID,
		Role:     m.Role,
		JoinedAt: m.JoinedAt,
	}
}

// ToListFirmMembersResponse converts a slice of domain.FirmMember to DTOs.
func ToListFirmMembersResponse(members []domain.FirmMember) []FirmMemberResponse {
	res := make([]FirmMemberResponse, len(members))
	for i, m := range members {
		res[i] = ToFirmMemberResponse(&m)
	}
	return res
}
