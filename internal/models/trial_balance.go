package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TrialBalance represents a stored trial balance import.
type TrialBalance struct {
	TrialBalanceID       string           `db:"trial_balance_id"`
	FirmID               string           `db:"firm_id"`
	EngagementID         string           `db:"engagement_id"`
	PeriodEnd            time.Time        `db:"period_end"`
	SourceSystem         string           `db:"source_system"`
	CurrencyCode         string           `db:"currency_code"`
	DeclaredTotalDebits  *decimal.Decimal `db:"declared_total_debits"`  // Nullable
	DeclaredTotalCredits *decimal.Decimal `db:"declared_total_credits"` // Nullable
	TotalDebits          decimal.Decimal  `db:"total_debits"`
	TotalCredits         decimal.Decimal  `db:"total_credits"`
	Difference           decimal.Decimal  `db:"difference"`
	IsBalanced           bool             `db:"is_balanced"`
	LineCount            int              `db:"line_count"`
	Status               string           `db:"status"`
	SupersededBy         string           `db:"superseded_by"` // Nullable
	AuditFields
}

// TrialBalanceLine represents a stored trial balance line.
type TrialBalanceLine struct {
	LineID            string          `db:"line_id"`
	TrialBalanceID    string          `db:"trial_balance_id"`
	LineNumber        int             `db:"line_number"`
	SourceCode        string          `db:"source_code"`
	SourceName        string          `db:"source_name"`
	NormalizedSource  string          `db:"normalized_source"`
	Debit             decimal.Decimal `db:"debit"`
	Credit            decimal.Decimal `db:"credit"`
	Net               decimal.Decimal `db:"net"`
	IsMaterial        bool            `db:"is_material"`
	Status            string          `db:"status"`
	MappedAccountCode string          `db:"mapped_account_code"` // Nullable
	MappingConfidence float64         `db:"mapping_confidence"`
	MappingMethod     string          `db:"mapping_method"` // Nullable
	Version           int64           `db:"version"`
	AuditFields
}

// DeclaredSubtotal represents an independently supplied rollup figure.
type DeclaredSubtotal struct {
	TrialBalanceID string          `db:"trial_balance_id"`
	AccountCode    string          `db:"account_code"`
	Amount         decimal.Decimal `db:"amount"`
}
