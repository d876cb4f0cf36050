package models

// MappingRule represents a stored firm mapping rule.
type MappingRule struct {
	RuleID            string  `db:"rule_id"`
	FirmID            string  `db:"firm_id"`
	Name              string  `db:"name"`
	Pattern           string  `db:"pattern"`
	IsRegex           bool    `db:"is_regex"`
	MatchMode         string  `db:"match_mode"`
	TargetAccountCode string  `db:"target_account_code"`
	Priority          int     `db:"priority"`
	ConfidenceBoost   float64 `db:"confidence_boost"`
	IsActive          bool    `db:"is_active"`
	AuditFields
}
