package dto

import (
	"time"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
)

// CreateRuleRequest defines the data needed to create a mapping rule.
type CreateRuleRequest struct {
	Name              string           `json:"name" binding:"required"`
	Pattern           string           `json:"pattern" binding:"required"`
	IsRegex           bool             `json:"isRegex"`
	MatchMode         domain.MatchMode `json:"matchMode" binding:"omitempty,oneof=PARTIAL FULL"` // Regex rules only, defaults to PARTIAL
	TargetAccountCode string           `json:"targetAccountCode" binding:"required"`
	Priority          int              `json:"priority"`
	ConfidenceBoost   float64          `json:"confidenceBoost" binding:"gte=-1,lte=1"`
}

// UpdateRuleRequest defines the data allowed for updating a mapping rule.
// Use pointers to distinguish between zero-value updates and fields not provided.
type UpdateRuleRequest struct {
	Name              *string           `json:"name"`
	Pattern           *string           `json:"pattern"`
	IsRegex           *bool             `json:"isRegex"`
	MatchMode         *domain.MatchMode `json:"matchMode" binding:"omitempty,oneof=PARTIAL FULL"`
	TargetAccountCode *string           `json:"targetAccountCode"`
	Priority          *int              `json:"priority"`
	ConfidenceBoost   *float64          `json:"confidenceBoost" binding:"omitempty,gte=-1,lte=1"`
	IsActive          *bool             `json:"isActive"`
}

// RuleResponse defines the data returned for a mapping rule.
type RuleResponse struct {
	RuleID            string           `json:"ruleID"`
	FirmID            string           `json:"firmID"`
	Name              string           `json:"name"`
	Pattern           string           `json:"pattern"`
	IsRegex           bool             `json:"isRegex"`
	MatchMode         domain.MatchMode `json:"matchMode,omitempty"`
	TargetAccountCode string           `json:"targetAccountCode"`
	Priority          int              `json:"priority"`
	ConfidenceBoost   float64          `json:"confidenceBoost"`
	IsActive          bool             `json:"isActive"`
	CreatedAt         time.Time        `json:"createdAt"`
	CreatedBy         string           `json:"createdBy"`
	LastUpdatedAt     time.Time        `json:"lastUpdatedAt"`
	LastUpdatedBy     string           `json:"lastUpdatedBy"`
}

// ToRuleResponse converts a domain.MappingRule to RuleResponse DTO
func ToRuleResponse(r *domain.MappingRule) RuleResponse {
	return RuleResponse{
		RuleID:            r.RuleID,
		FirmID:            r.FirmID,
		Name:              r.Name,
		Pattern:           r.Pattern,
		IsRegex:           r.IsRegex,
		MatchMode:         r.MatchMode,
		TargetAccountCode: r.TargetAccountCode,
		Priority:          r.Priority,
		ConfidenceBoost:   r.ConfidenceBoost,
		IsActive:          r.IsActive,
		CreatedAt:         r.CreatedAt,
		CreatedBy:         r.CreatedBy,
		LastUpdatedAt:     r.LastUpdatedAt,
		LastUpdatedBy:     r.LastUpdatedBy,
	}
}

// ListRulesParams defines query parameters for listing rules.
type ListRulesParams struct {
	IncludeInactive bool `form:"includeInactive,default=false"`
}

// ListRulesResponse wraps the firm's rules in evaluation order.
type ListRulesResponse struct {
	Rules []RuleResponse `json:"rules"`
}

// ToListRulesResponse converts a slice of domain.MappingRule to ListRulesResponse DTO
func ToListRulesResponse(rules []domain.MappingRule) ListRulesResponse {
	res := make([]RuleResponse, len(rules))
	for i, r := range rules {
		res[i] = ToRuleResponse(&r)
	}
	return ListRulesResponse{Rules: res}
}
