package domain

import "github.com/shopspring/decimal"

// BalanceCheck is the balance-integrity result for one trial balance.
type BalanceCheck struct {
	TotalDebits  decimal.Decimal `json:"totalDebits"`
	TotalCredits decimal.Decimal `json:"totalCredits"`
	Difference   decimal.Decimal `json:"difference"`
	Tolerance    decimal.Decimal `json:"tolerance"`
	IsBalanced   bool            `json:"isBalanced"`
}

// RollupRow is the computed net for one non-leaf account, summed over the
// confirmed and manually mapped lines of its leaf descendants.
type RollupRow struct {
	AccountCode     string           `json:"accountCode"`
	AccountName     string           `json:"accountName"`
	ComputedNet     decimal.Decimal  `json:"computedNet"`
	DeclaredNet     *decimal.Decimal `json:"declaredNet,omitempty"` // From declared subtotals, when supplied
	Variance        *decimal.Decimal `json:"variance,omitempty"`    // computedNet - declaredNet
	RequiresReview  bool             `json:"requiresReview"`        // Variance beyond tolerance; never a hard failure
	MappedLineCount int              `json:"mappedLineCount"`
}

// MappedAccountNet aggregates the confirmed and manually mapped lines of one
// canonical account within a trial balance.
type MappedAccountNet struct {
	AccountCode string          `json:"accountCode"`
	Net         decimal.Decimal `json:"net"` // Debit-positive sum over mapped lines
	LineCount   int             `json:"lineCount"`
}

// ValidationReport combines the balance check with hierarchy rollups.
type ValidationReport struct {
	TrialBalanceID string       `json:"trialBalanceID"`
	Balance        BalanceCheck `json:"balance"`
	Rollups        []RollupRow  `json:"rollups"`
	UnmappedLines  int          `json:"unmappedLines"` // Lines not yet contributing to rollups
}
