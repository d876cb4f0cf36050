package domain

// AccountType defines the fundamental accounting type of an account.
type AccountType string

const (
	Asset     AccountType = "ASSET"
	Liability AccountType = "LIABILITY"
	Equity    AccountType = "EQUITY"
	Revenue   AccountType = "REVENUE"
	Expense   AccountType = "EXPENSE"
	Contra    AccountType = "CONTRA"
)

// NormalBalance indicates which side increases an account's balance.
type NormalBalance string

const (
	NormalDebit  NormalBalance = "DEBIT"
	NormalCredit NormalBalance = "CREDIT"
)

// Account represents one node of the canonical chart of accounts.
// The code is the stable natural key used in mappings and rules;
// AccountID is the storage key.
type Account struct {
	AccountID     string        `json:"accountID"`     // Primary Key (e.g., UUID)
	Code          string        `json:"code"`          // Canonical code, unique, stable across renames
	Name          string        `json:"name"`          // Display name
	AccountType   AccountType   `json:"accountType"`   // ASSET, LIABILITY, etc.
	Subtype       string        `json:"subtype"`       // Nullable refinement (e.g., "CURRENT_ASSET")
	ParentCode    string        `json:"parentCode"`    // Nullable; empty for root categories
	Level         int           `json:"level"`         // Depth in the tree, root = 1
	IsLeaf        bool          `json:"isLeaf"`        // Only leaf accounts accept mappings
	NormalBalance NormalBalance `json:"normalBalance"` // DEBIT or CREDIT; frozen once mapped against
	ConceptTag    string        `json:"conceptTag"`    // Nullable external-taxonomy tag
	IsActive      bool          `json:"isActive"`      // Soft delete or status flag
	AuditFields
}

// IsMappingTarget reports whether trial balance lines may map to this account.
func (a *Account) IsMappingTarget() bool {
	return a.IsLeaf && a.IsActive
}
