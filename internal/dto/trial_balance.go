package dto

import (
	"time"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ImportLineRequest is one raw trial balance line as exported by the client's
// bookkeeping system.
type ImportLineRequest struct {
	LineNumber int             `json:"lineNumber" binding:"required,gt=0"`
	SourceCode string          `json:"sourceCode"`
	SourceName string          `json:"sourceName" binding:"required"`
	Debit      decimal.Decimal `json:"debit"`
	Credit     decimal.Decimal `json:"credit"`
}

// DeclaredSubtotalRequest is an independently supplied rollup figure for one
// canonical account.
type DeclaredSubtotalRequest struct {
	AccountCode string          `json:"accountCode" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
}

// ImportTrialBalanceRequest defines the data needed to ingest a trial balance.
type ImportTrialBalanceRequest struct {
	EngagementID         string                    `json:"engagementID" binding:"required"`
	PeriodEnd            time.Time                 `json:"periodEnd" binding:"required"`
	SourceSystem         string                    `json:"sourceSystem"`
	CurrencyCode         string                    `json:"currencyCode" binding:"required,iso4217"`
	DeclaredTotalDebits  *decimal.Decimal          `json:"declaredTotalDebits"`  // Optional, as stated by the source system
	DeclaredTotalCredits *decimal.Decimal          `json:"declaredTotalCredits"` // Optional
	Lines                []ImportLineRequest       `json:"lines" binding:"required,min=1,dive"`
	DeclaredSubtotals    []DeclaredSubtotalRequest `json:"declaredSubtotals" binding:"omitempty,dive"`
}

// TrialBalanceResponse defines the data returned for a trial balance header.
type TrialBalanceResponse struct {
	TrialBalanceID       string                    `json:"trialBalanceID"`
	FirmID               string                    `json:"firmID"`
	EngagementID         string                    `json:"engagementID"`
	PeriodEnd            time.Time                 `json:"periodEnd"`
	SourceSystem         string                    `json:"sourceSystem,omitempty"`
	CurrencyCode         string                    `json:"currencyCode"`
	DeclaredTotalDebits  *decimal.Decimal          `json:"declaredTotalDebits,omitempty"`
	DeclaredTotalCredits *decimal.Decimal          `json:"declaredTotalCredits,omitempty"`
	TotalDebits          decimal.Decimal           `json:"totalDebits"`
	TotalCredits         decimal.Decimal           `json:"totalCredits"`
	Difference           decimal.Decimal           `json:"difference"`
	IsBalanced           bool                      `json:"isBalanced"`
	LineCount            int                       `json:"lineCount"`
	Status               domain.TrialBalanceStatus `json:"status"`
	SupersededBy         string                    `json:"supersededBy,omitempty"`
	CreatedAt            time.Time                 `json:"createdAt"`
	CreatedBy            string                    `json:"createdBy"`
	LastUpdatedAt        time.Time                 `json:"lastUpdatedAt"`
	LastUpdatedBy        string                    `json:"lastUpdatedBy"`
}

// ToTrialBalanceResponse converts a domain.TrialBalance to TrialBalanceResponse DTO
func ToTrialBalanceResponse(tb *domain.TrialBalance) TrialBalanceResponse {
	return TrialBalanceResponse{
		TrialBalanceID:       tb.TrialBalanceID,
		FirmID:               tb.FirmID,
		EngagementID:         tb.EngagementID,
		PeriodEnd:            tb.PeriodEnd,
		SourceSystem:         tb.SourceSystem,
		CurrencyCode:         tb.CurrencyCode,
		DeclaredTotalDebits:  tb.DeclaredTotalDebits,
		DeclaredTotalCredits: tb.DeclaredTotalCredits,
		TotalDebits:          tb.TotalDebits,
		TotalCredits:         tb.TotalCredits,
		Difference:           tb.Difference,
		IsBalanced:           tb.IsBalanced,
		LineCount:            tb.LineCount,
		Status:               tb.Status,
		SupersededBy:         tb.SupersededBy,
		CreatedAt:            tb.CreatedAt,
		CreatedBy:            tb.CreatedBy,
		LastUpdatedAt:        tb.LastUpdatedAt,
		LastUpdatedBy:        tb.LastUpdatedBy,
	}
}

// ListTrialBalancesParams defines query parameters for listing trial balances.
type ListTrialBalancesParams struct {
	Limit     int     `form:"limit,default=20"`
	NextToken *string `form:"nextToken"`
}

// ListTrialBalancesResponse wraps a page of trial balances, newest first.
type ListTrialBalancesResponse struct {
	TrialBalances []TrialBalanceResponse `json:"trialBalances"`
	NextToken     *string                `json:"nextToken,omitempty"`
}

// LineResponse defines the data returned for a trial balance line.
type LineResponse struct {
	LineID            string               `json:"lineID"`
	TrialBalanceID    string               `json:"trialBalanceID"`
	LineNumber        int                  `json:"lineNumber"`
	SourceCode        string               `json:"sourceCode,omitempty"`
	SourceName        string               `json:"sourceName"`
	NormalizedSource  string               `json:"normalizedSource"`
	Debit             decimal.Decimal      `json:"debit"`
	Credit            decimal.Decimal      `json:"credit"`
	Net               decimal.Decimal      `json:"net"`
	IsMaterial        bool                 `json:"isMaterial"`
	Status            domain.LineStatus    `json:"status"`
	MappedAccountCode string               `json:"mappedAccountCode,omitempty"`
	MappingConfidence float64              `json:"mappingConfidence,omitempty"`
	MappingMethod     domain.MappingMethod `json:"mappingMethod,omitempty"`
	Version           int64                `json:"version"`
	LastUpdatedAt     time.Time            `json:"lastUpdatedAt"`
	LastUpdatedBy     string               `json:"lastUpdatedBy,omitempty"`
}

// ToLineResponse converts a domain.TrialBalanceLine to LineResponse DTO
func ToLineResponse(l *domain.TrialBalanceLine) LineResponse {
	return LineResponse{
		LineID:            l.LineID,
		TrialBalanceID:    l.TrialBalanceID,
		LineNumber:        l.LineNumber,
		SourceCode:        l.SourceCode,
		SourceName:        l.SourceName,
		NormalizedSource:  l.NormalizedSource,
		Debit:             l.Debit,
		Credit:            l.Credit,
		Net:               l.Net,
		IsMaterial:        l.IsMaterial,
		Status:            l.Status,
		MappedAccountCode: l.MappedAccountCode,
		MappingConfidence: l.MappingConfidence,
		MappingMethod:     l.MappingMethod,
		Version:           l.Version,
		LastUpdatedAt:     l.LastUpdatedAt,
		LastUpdatedBy:     l.LastUpdatedBy,
	}
}

// ListLinesParams defines query parameters for listing trial balance lines.
type ListLinesParams struct {
	Limit     int     `form:"limit,default=50"`
	NextToken *string `form:"nextToken"`
	Status    string  `form:"status" binding:"omitempty,oneof=UNMAPPED SUGGESTED CONFIRMED REJECTED MANUAL"`
}

// ListLinesResponse wraps a page of lines in source order.
type ListLinesResponse struct {
	Lines     []LineResponse `json:"lines"`
	NextToken *string        `json:"nextToken,omitempty"`
}

// LineDetailResponse combines a line with its active suggestion and the full
// suggestion chain, newest first.
type LineDetailResponse struct {
	Line             LineResponse         `json:"line"`
	ActiveSuggestion *SuggestionResponse  `json:"activeSuggestion,omitempty"`
	Suggestions      []SuggestionResponse `json:"suggestions,omitempty"` // Includes superseded suggestions
}

// MappingProgressResponse summarizes review progress for a trial balance.
type MappingProgressResponse struct {
	TrialBalanceID string                    `json:"trialBalanceID"`
	TotalLines     int                       `json:"totalLines"`
	CountByStatus  map[domain.LineStatus]int `json:"countByStatus"`
	MappedLines    int                       `json:"mappedLines"` // Confirmed plus manual
}

// BalanceCheckResponse mirrors domain.BalanceCheck.
type BalanceCheckResponse struct {
	TotalDebits  decimal.Decimal `json:"totalDebits"`
	TotalCredits decimal.Decimal `json:"totalCredits"`
	Difference   decimal.Decimal `json:"difference"`
	Tolerance    decimal.Decimal `json:"tolerance"`
	IsBalanced   bool            `json:"isBalanced"`
}

// RollupRowResponse mirrors domain.RollupRow.
type RollupRowResponse struct {
	AccountCode     string           `json:"accountCode"`
	AccountName     string           `json:"accountName"`
	ComputedNet     decimal.Decimal  `json:"computedNet"`
	DeclaredNet     *decimal.Decimal `json:"declaredNet,omitempty"`
	Variance        *decimal.Decimal `json:"variance,omitempty"`
	RequiresReview  bool             `json:"requiresReview"`
	MappedLineCount int              `json:"mappedLineCount"`
}

// ValidationReportResponse defines the data returned by trial balance validation.
type ValidationReportResponse struct {
	TrialBalanceID string               `json:"trialBalanceID"`
	Balance        BalanceCheckResponse `json:"balance"`
	Rollups        []RollupRowResponse  `json:"rollups"`
	UnmappedLines  int                  `json:"unmappedLines"`
}

// ToValidationReportResponse converts a domain.ValidationReport to its DTO.
func ToValidationReportResponse(rep *domain.ValidationReport) ValidationReportResponse {
	rollups := make([]RollupRowResponse, len(rep.Rollups))
	for i, r := range rep.Rollups {
		rollups[i] = RollupRowResponse{
			AccountCode:     r.AccountCode,
			AccountName:     r.AccountName,
			ComputedNet:     r.ComputedNet,
			DeclaredNet:     r.DeclaredNet,
			Variance:        r.Variance,
			RequiresReview:  r.RequiresReview,
			MappedLineCount: r.MappedLineCount,
		}
	}
	return ValidationReportResponse{
		TrialBalanceID: rep.TrialBalanceID,
		Balance: BalanceCheckResponse{
			TotalDebits:  rep.Balance.TotalDebits,
			TotalCredits: rep.Balance.TotalCredits,
			Difference:   rep.Balance.Difference,
			Tolerance:    rep.Balance.Tolerance,
			IsBalanced:   rep.Balance.IsBalanced,
		},
		Rollups:       rollups,
		UnmappedLines: rep.UnmappedLines,
	}
}
