package domain

import "time"

// ReviewDecisionEvent is the training signal emitted after every review
// decision. Consumers use it to retrain the classifier, so it carries both
// what the engine proposed and what the reviewer chose.
type ReviewDecisionEvent struct {
	FirmID               string       `json:"firmId"`                         // Firm the line belongs to
	TrialBalanceID       string       `json:"trialBalanceId"`                 // Trial balance the line belongs to
	LineID               string       `json:"lineId"`                         // Line the decision applies to
	SuggestionID         string       `json:"suggestionId,omitempty"`         // Suggestion under review, empty for manual maps of unmapped lines
	SourceCode           string       `json:"sourceCode"`                     // Raw account code from the source system
	SourceName           string       `json:"sourceName"`                     // Raw account name from the source system
	NormalizedSource     string       `json:"normalizedSource"`               // Normalized source text used for precedent matching
	SuggestedAccountCode string       `json:"suggestedAccountCode,omitempty"` // Engine's top candidate, if any
	ChosenAccountCode    string       `json:"chosenAccountCode,omitempty"`    // Account the reviewer settled on, empty on reject
	Decision             ReviewStatus `json:"decision"`                       // CONFIRMED, OVERRIDDEN or REJECTED
	IsDivergent          bool         `json:"isDivergent"`                    // True when the chosen account differs from the suggestion
	Method               string       `json:"method,omitempty"`               // Method of the suggestion under review
	Confidence           float64      `json:"confidence,omitempty"`           // Confidence of the suggestion under review
	ModelVersion         string       `json:"modelVersion,omitempty"`         // Classifier version, when the ML path contributed
	RuleID               string       `json:"ruleId,omitempty"`               // Rule that produced the base score, when the rule path contributed
	DecidedBy            string       `json:"decidedBy"`                      // Reviewer user ID
	DecidedAt            time.Time    `json:"decidedAt"`                      // When the decision was made
}
