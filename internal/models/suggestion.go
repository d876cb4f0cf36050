package models

import "time"

// MappingSuggestion represents a stored suggestion record. Alternatives hold
// the ranked runner-up candidates as a JSONB payload.
type MappingSuggestion struct {
	SuggestionID         string     `db:"suggestion_id"`
	LineID               string     `db:"line_id"`
	SuggestedAccountCode string     `db:"suggested_account_code"`
	SuggestedAccountName string     `db:"suggested_account_name"`
	Confidence           float64    `db:"confidence"`
	ConfidenceBucket     string     `db:"confidence_bucket"`
	Method               string     `db:"method"`
	RuleID               string     `db:"rule_id"`        // Nullable
	ModelVersion         string     `db:"model_version"`  // Nullable
	Alternatives         []byte     `db:"alternatives"`   // JSONB
	IsActive             bool       `db:"is_active"`
	ReviewStatus         string     `db:"review_status"`
	ChosenAccountCode    string     `db:"chosen_account_code"` // Nullable
	IsDivergent          bool       `db:"is_divergent"`
	ReviewedBy           string     `db:"reviewed_by"` // Nullable
	ReviewedAt           *time.Time `db:"reviewed_at"` // Nullable
	Feedback             string     `db:"feedback"`    // Nullable
	AuditFields
}
