package models

// Account represents one node of the canonical chart of accounts.
// Note: ParentCode uses string for the nullable self-reference; empty means root.
type Account struct {
	AccountID     string `db:"account_id"`
	Code          string `db:"code"` // Unique natural key
	Name          string `db:"name"`
	AccountType   string `db:"account_type"`
	Subtype       string `db:"subtype"`     // Nullable
	ParentCode    string `db:"parent_code"` // Nullable
	Level         int    `db:"level"`
	IsLeaf        bool   `db:"is_leaf"`
	NormalBalance string `db:"normal_balance"`
	ConceptTag    string `db:"concept_tag"` // Nullable
	IsActive      bool   `db:"is_active"`
	AuditFields          // Embed common audit fields
}
