package domain

// MatchMode selects how a regex rule is applied to the source text.
type MatchMode string

const (
	MatchPartial MatchMode = "PARTIAL" // pattern may match anywhere in the text
	MatchFull    MatchMode = "FULL"    // pattern must cover the whole text
)

// MappingRule is a firm-authored pattern that proposes a canonical target
// account for matching source accounts. Literal rules test case-insensitive
// containment against the source code and name; regex rules compile Pattern
// and apply it per MatchMode.
type MappingRule struct {
	RuleID            string    `json:"ruleID"`            // Primary Key (e.g., UUID)
	FirmID            string    `json:"firmID"`            // FK -> firms.firm_id (NON-NULL)
	Name              string    `json:"name"`              // Admin-facing label
	Pattern           string    `json:"pattern"`           // Literal fragment or regular expression
	IsRegex           bool      `json:"isRegex"`           // Pattern is a regular expression
	MatchMode         MatchMode `json:"matchMode"`         // Regex rules only; literals always match partially
	TargetAccountCode string    `json:"targetAccountCode"` // Canonical account the rule proposes
	Priority          int       `json:"priority"`          // Higher priority evaluates first
	ConfidenceBoost   float64   `json:"confidenceBoost"`   // Bounded [-1,1]; shifts the 0.5 base score
	IsActive          bool      `json:"isActive"`          // Deactivation is the only removal path once contributing
	AuditFields
}
