package dto

import (
	"time"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
)

// GenerateSuggestionsRequest scopes a suggestion run. With no line IDs the
// engine processes every non-terminal line of the trial balance.
type GenerateSuggestionsRequest struct {
	LineIDs      []string `json:"lineIDs"`      // Optional subset of lines to process
	ModelVersion string   `json:"modelVersion"` // Optional classifier version pin for the batch
	SkipML       bool     `json:"skipML"`       // Run rules and history only
}

// Outcome values reported per line by a suggestion run.
const (
	OutcomeSuggested       = "suggested"
	OutcomeNoCandidates    = "no_candidates"
	OutcomeSkippedTerminal = "skipped_terminal"
	OutcomeFailed          = "failed"
)

// LineOutcome is the per-line result of a suggestion run.
type LineOutcome struct {
	LineID  string `json:"lineID"`
	Outcome string `json:"outcome"`           // suggested, no_candidates, skipped_terminal or failed
	Message string `json:"message,omitempty"` // Failure detail, when outcome is failed
}

// GenerateSuggestionsResponse summarizes a suggestion run.
type GenerateSuggestionsResponse struct {
	TrialBalanceID string        `json:"trialBalanceID"`
	ModelVersion   string        `json:"modelVersion,omitempty"` // Classifier version consulted, empty when unavailable
	Suggested      int           `json:"suggested"`
	NoCandidates   int           `json:"noCandidates"`
	Skipped        int           `json:"skipped"`
	Failed         int           `json:"failed"`
	Outcomes       []LineOutcome `json:"outcomes"`
}

// RankedCandidateResponse mirrors domain.RankedCandidate.
type RankedCandidateResponse struct {
	AccountCode  string                   `json:"accountCode"`
	AccountName  string                   `json:"accountName"`
	Score        float64                  `json:"score"`
	Bucket       domain.ConfidenceBucket  `json:"bucket"`
	Sources      []domain.CandidateSource `json:"sources"`
	RuleID       string                   `json:"ruleID,omitempty"`
	ModelVersion string                   `json:"modelVersion,omitempty"`
	Evidence     string                   `json:"evidence,omitempty"`
}

// SuggestionResponse defines the data returned for a stored suggestion.
type SuggestionResponse struct {
	SuggestionID         string                    `json:"suggestionID"`
	LineID               string                    `json:"lineID"`
	SuggestedAccountCode string                    `json:"suggestedAccountCode"`
	SuggestedAccountName string                    `json:"suggestedAccountName"`
	Confidence           float64                   `json:"confidence"`
	ConfidenceBucket     domain.ConfidenceBucket   `json:"confidenceBucket"`
	Method               domain.MappingMethod      `json:"method"`
	RuleID               string                    `json:"ruleID,omitempty"`
	ModelVersion         string                    `json:"modelVersion,omitempty"`
	Alternatives         []RankedCandidateResponse `json:"alternatives"`
	IsActive             bool                      `json:"isActive"`
	ReviewStatus         domain.ReviewStatus       `json:"reviewStatus"`
	ChosenAccountCode    string                    `json:"chosenAccountCode,omitempty"`
	IsDivergent          bool                      `json:"isDivergent"`
	ReviewedBy           string                    `json:"reviewedBy,omitempty"`
	ReviewedAt           *time.Time                `json:"reviewedAt,omitempty"`
	Feedback             string                    `json:"feedback,omitempty"`
	CreatedAt            time.Time                 `json:"createdAt"`
}

// ToRankedCandidateResponse converts a domain.RankedCandidate to its DTO.
func ToRankedCandidateResponse(c *domain.RankedCandidate) RankedCandidateResponse {
	return RankedCandidateResponse{
		AccountCode:  c.AccountCode,
		AccountName:  c.AccountName,
		Score:        c.Score,
		Bucket:       c.Bucket,
		Sources:      c.Sources,
		RuleID:       c.RuleID,
		ModelVersion: c.ModelVersion,
		Evidence:     c.Evidence,
	}
}

// ToSuggestionResponse converts a domain.MappingSuggestion to SuggestionResponse DTO
func ToSuggestionResponse(s *domain.MappingSuggestion) SuggestionResponse {
	alts := make([]RankedCandidateResponse, len(s.Alternatives))
	for i, alt := range s.Alternatives {
		alts[i] = ToRankedCandidateResponse(&alt)
	}
	return SuggestionResponse{
		SuggestionID:         s.SuggestionID,
		LineID:               s.LineID,
		SuggestedAccountCode: s.SuggestedAccountCode,
		SuggestedAccountName: s.SuggestedAccountName,
		Confidence:           s.Confidence,
		ConfidenceBucket:     s.ConfidenceBucket,
		Method:               s.Method,
		RuleID:               s.RuleID,
		ModelVersion:         s.ModelVersion,
		Alternatives:         alts,
		IsActive:             s.IsActive,
		ReviewStatus:         s.ReviewStatus,
		ChosenAccountCode:    s.ChosenAccountCode,
		IsDivergent:          s.IsDivergent,
		ReviewedBy:           s.ReviewedBy,
		ReviewedAt:           s.ReviewedAt,
		Feedback:             s.Feedback,
		CreatedAt:            s.CreatedAt,
	}
}

// ToListSuggestionsResponse converts a slice of domain.MappingSuggestion to DTOs.
func ToListSuggestionsResponse(suggestions []domain.MappingSuggestion) []SuggestionResponse {
	res := make([]SuggestionResponse, len(suggestions))
	for i, s := range suggestions {
		res[i] = ToSuggestionResponse(&s)
	}
	return res
}

// RankedSuggestionResponse is the transient engine output for a preview.
type RankedSuggestionResponse struct {
	Top          RankedCandidateResponse   `json:"top"`
	Alternatives []RankedCandidateResponse `json:"alternatives"`
}

// ToRankedSuggestionResponse converts a domain.RankedSuggestion to its DTO.
func ToRankedSuggestionResponse(r *domain.RankedSuggestion) RankedSuggestionResponse {
	alts := make([]RankedCandidateResponse, len(r.Alternatives))
	for i, alt := range r.Alternatives {
		alts[i] = ToRankedCandidateResponse(&alt)
	}
	return RankedSuggestionResponse{
		Top:          ToRankedCandidateResponse(&r.Top),
		Alternatives: alts,
	}
}
