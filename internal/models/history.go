package models

import "time"

// MappingHistory represents one append-only precedent row.
type MappingHistory struct {
	HistoryID        string    `db:"history_id"`
	FirmID           string    `db:"firm_id"`
	SourceCode       string    `db:"source_code"`
	SourceName       string    `db:"source_name"`
	NormalizedSource string    `db:"normalized_source"`
	AccountCode      string    `db:"account_code"`
	Method           string    `db:"method"`
	Confidence       float64   `db:"confidence"`
	LineID           string    `db:"line_id"`
	SuggestionID     string    `db:"suggestion_id"` // Nullable
	ConfirmedBy      string    `db:"confirmed_by"`
	ConfirmedAt      time.Time `db:"confirmed_at"`
}
