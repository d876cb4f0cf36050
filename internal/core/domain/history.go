package domain

import "time"

// MappingHistory is one append-only record of a confirmed or manually
// assigned mapping. Rows are never mutated or deleted; they are the precedent
// store for future suggestions and the training substrate for the external
// classifier.
type MappingHistory struct {
	HistoryID        string        `json:"historyID"` // Primary Key (e.g., UUID)
	FirmID           string        `json:"firmID"`    // FK -> firms.firm_id (NON-NULL)
	SourceCode       string        `json:"sourceCode"`
	SourceName       string        `json:"sourceName"`
	NormalizedSource string        `json:"normalizedSource"` // Lookup key for precedent matching
	AccountCode      string        `json:"accountCode"`      // Canonical target that was accepted
	Method           MappingMethod `json:"method"`
	Confidence       float64       `json:"confidence"`
	LineID           string        `json:"lineID"`
	SuggestionID     string        `json:"suggestionID,omitempty"` // Empty for manual maps made without a suggestion
	ConfirmedBy      string        `json:"confirmedBy"`
	ConfirmedAt      time.Time     `json:"confirmedAt"`
}
