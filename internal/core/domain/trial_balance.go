package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TrialBalanceStatus tracks whether an import is the live version for its period.
type TrialBalanceStatus string

const (
	TBActive     TrialBalanceStatus = "ACTIVE"
	TBSuperseded TrialBalanceStatus = "SUPERSEDED" // Replaced by a controlled re-import
)

// TrialBalance represents one client trial balance import event.
type TrialBalance struct {
	TrialBalanceID       string             `json:"trialBalanceID"` // Primary Key (e.g., UUID)
	FirmID               string             `json:"firmID"`         // FK -> firms.firm_id (NON-NULL)
	EngagementID         string             `json:"engagementID"`   // Client engagement the import belongs to
	PeriodEnd            time.Time          `json:"periodEnd"`      // Reporting period end date
	SourceSystem         string             `json:"sourceSystem"`   // Bookkeeping system tag (e.g., "quickbooks")
	CurrencyCode         string             `json:"currencyCode"`
	DeclaredTotalDebits  *decimal.Decimal   `json:"declaredTotalDebits,omitempty"` // As stated by the source system
	DeclaredTotalCredits *decimal.Decimal   `json:"declaredTotalCredits,omitempty"`
	TotalDebits          decimal.Decimal    `json:"totalDebits"` // Computed from lines at import
	TotalCredits         decimal.Decimal    `json:"totalCredits"`
	Difference           decimal.Decimal    `json:"difference"` // totalDebits - totalCredits, recorded even when balanced
	IsBalanced           bool               `json:"isBalanced"` // |difference| <= tolerance
	LineCount            int                `json:"lineCount"`
	Status               TrialBalanceStatus `json:"status"`
	SupersededBy         string             `json:"supersededBy,omitempty"` // Nullable FK -> trial_balances
	AuditFields
}

// DeclaredSubtotal is an independently supplied rollup figure for one
// canonical account, compared against computed rollups during validation.
type DeclaredSubtotal struct {
	TrialBalanceID string          `json:"trialBalanceID"`
	AccountCode    string          `json:"accountCode"` // Canonical account the subtotal is declared for
	Amount         decimal.Decimal `json:"amount"`      // Net amount, debit-positive
}

// LineStatus is the review state of a single trial balance line.
type LineStatus string

const (
	LineUnmapped  LineStatus = "UNMAPPED"  // Initial; also the outcome when no candidate exists
	LineSuggested LineStatus = "SUGGESTED" // An active suggestion awaits review
	LineConfirmed LineStatus = "CONFIRMED" // Reviewer accepted a candidate
	LineRejected  LineStatus = "REJECTED"  // No acceptable candidate; flagged for manual mapping
	LineManual    LineStatus = "MANUAL"    // Reviewer supplied the target directly
)

// lineTransitions enumerates the legal status changes. Confirmed and manual
// are terminal except for reopen; rejected lines remain eligible for
// re-suggestion and manual mapping.
var lineTransitions = map[LineStatus]map[LineStatus]bool{
	LineUnmapped:  {LineSuggested: true, LineManual: true},
	LineSuggested: {LineSuggested: true, LineConfirmed: true, LineRejected: true, LineManual: true},
	LineRejected:  {LineSuggested: true, LineManual: true},
	LineConfirmed: {LineSuggested: true},
	LineManual:    {LineSuggested: true},
}

// CanTransitionTo reports whether a line may move from s to next.
func (s LineStatus) CanTransitionTo(next LineStatus) bool {
	return lineTransitions[s][next]
}

// IsTerminal reports whether s ends review for this import, absent a reopen.
func (s LineStatus) IsTerminal() bool {
	return s == LineConfirmed || s == LineManual
}

// MappingMethod records which evidence path produced a mapping.
type MappingMethod string

const (
	MethodRule    MappingMethod = "RULE"
	MethodHistory MappingMethod = "HISTORY"
	MethodML      MappingMethod = "ML"
	MethodManual  MappingMethod = "MANUAL"
)

// TrialBalanceLine is one source account balance within a trial balance.
type TrialBalanceLine struct {
	LineID            string          `json:"lineID"`           // Primary Key (e.g., UUID)
	TrialBalanceID    string          `json:"trialBalanceID"`   // FK -> trial_balances (NON-NULL)
	LineNumber        int             `json:"lineNumber"`       // Unique within the trial balance
	SourceCode        string          `json:"sourceCode"`       // Account code as exported by the client system
	SourceName        string          `json:"sourceName"`       // Account name as exported by the client system
	NormalizedSource  string          `json:"normalizedSource"` // Normalized name used for precedent matching
	Debit             decimal.Decimal `json:"debit"`
	Credit            decimal.Decimal `json:"credit"`
	Net               decimal.Decimal `json:"net"`        // debit - credit
	IsMaterial        bool            `json:"isMaterial"` // |net| >= materiality threshold
	Status            LineStatus      `json:"status"`
	MappedAccountCode string          `json:"mappedAccountCode,omitempty"` // Nullable until confirmed or manually mapped
	MappingConfidence float64         `json:"mappingConfidence,omitempty"` // Meaningful only once mapped
	MappingMethod     MappingMethod   `json:"mappingMethod,omitempty"`     // Nullable until mapped
	Version           int64           `json:"version"`                     // Optimistic concurrency guard for review transitions
	AuditFields
}

// IsMapped reports whether the line carries an accepted mapping.
func (l *TrialBalanceLine) IsMapped() bool {
	return l.MappedAccountCode != "" && l.Status.IsTerminal()
}
