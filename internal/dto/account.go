package dto

import (
	"time"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
)

// CreateAccountRequest defines the data needed to create a new canonical account.
type CreateAccountRequest struct {
	Code          string               `json:"code" binding:"required"`
	Name          string               `json:"name" binding:"required"`
	AccountType   domain.AccountType   `json:"accountType" binding:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE CONTRA"`
	Subtype       string               `json:"subtype"`    // Optional refinement
	ParentCode    string               `json:"parentCode"` // Optional, empty for root categories
	IsLeaf        bool                 `json:"isLeaf"`
	NormalBalance domain.NormalBalance `json:"normalBalance" binding:"required,oneof=DEBIT CREDIT"`
	ConceptTag    string               `json:"conceptTag"` // Optional external-taxonomy tag
}

// UpdateAccountRequest defines the data allowed for updating an account.
// Use pointers to distinguish between zero-value updates and fields not provided.
// Structural fields (code, parent, type, normal balance) are intentionally
// absent: they freeze once the account has confirmed mappings.
type UpdateAccountRequest struct {
	Name       *string `json:"name"`       // Optional: New name
	Subtype    *string `json:"subtype"`    // Optional: New subtype
	ConceptTag *string `json:"conceptTag"` // Optional: New concept tag
	IsActive   *bool   `json:"isActive"`   // Optional: New active status
}

// ImportAccountsRequest bulk-loads canonical accounts. The whole tree is
// validated before anything is persisted.
type ImportAccountsRequest struct {
	Accounts []CreateAccountRequest `json:"accounts" binding:"required,min=1,dive"`
}

// AccountResponse defines the data returned for a canonical account.
// Mirrors domain.Account.
type AccountResponse struct {
	AccountID     string               `json:"accountID"`
	Code          string               `json:"code"`
	Name          string               `json:"name"`
	AccountType   domain.AccountType   `json:"accountType"`
	Subtype       string               `json:"subtype,omitempty"`
	ParentCode    string               `json:"parentCode,omitempty"` // Empty for root categories
	Level         int                  `json:"level"`
	IsLeaf        bool                 `json:"isLeaf"`
	NormalBalance domain.NormalBalance `json:"normalBalance"`
	ConceptTag    string               `json:"conceptTag,omitempty"`
	IsActive      bool                 `json:"isActive"`
	CreatedAt     time.Time            `json:"createdAt"`
	CreatedBy     string               `json:"createdBy"`
	LastUpdatedAt time.Time            `json:"lastUpdatedAt"`
	LastUpdatedBy string               `json:"lastUpdatedBy"`
}

// ToAccountResponse converts a domain.Account to AccountResponse DTO
func ToAccountResponse(acc *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:     acc.AccountID,
		Code:          acc.Code,
		Name:          acc.Name,
		AccountType:   acc.AccountType,
		Subtype:       acc.Subtype,
		ParentCode:    acc.ParentCode,
		Level:         acc.Level,
		IsLeaf:        acc.IsLeaf,
		NormalBalance: acc.NormalBalance,
		ConceptTag:    acc.ConceptTag,
		IsActive:      acc.IsActive,
		CreatedAt:     acc.CreatedAt,
		CreatedBy:     acc.CreatedBy,
		LastUpdatedAt: acc.LastUpdatedAt,
		LastUpdatedBy: acc.LastUpdatedBy,
	}
}

// ToListAccountResponse converts a slice of domain.Account to a slice of AccountResponse DTOs
func ToListAccountResponse(accounts []domain.Account) []AccountResponse {
	res := make([]AccountResponse, len(accounts))
	for i, acc := range accounts {
		res[i] = ToAccountResponse(&acc)
	}
	return res
}

// ListAccountsResponse wraps the canonical chart of accounts.
type ListAccountsResponse struct {
	Accounts []AccountResponse `json:"accounts"`
}
