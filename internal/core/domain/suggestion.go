package domain

import "time"

// CandidateSource tags which evidence source produced a mapping candidate.
type CandidateSource string

const (
	SourceRule    CandidateSource = "RULE"
	SourceHistory CandidateSource = "HISTORY"
	SourceML      CandidateSource = "ML"
)

// Precedence orders sources for tie-breaking: rule beats history beats ml.
func (s CandidateSource) Precedence() int {
	switch s {
	case SourceRule:
		return 0
	case SourceHistory:
		return 1
	case SourceML:
		return 2
	default:
		return 3
	}
}

// Method converts a source tag into the mapping method recorded on confirm.
func (s CandidateSource) Method() MappingMethod {
	switch s {
	case SourceRule:
		return MethodRule
	case SourceHistory:
		return MethodHistory
	case SourceML:
		return MethodML
	default:
		return ""
	}
}

// MappingCandidate is one source's proposal for a line, before ranking.
// A single tagged record shape keeps merging and testing uniform across
// the three evidence sources.
type MappingCandidate struct {
	AccountCode  string          `json:"accountCode"`
	Score        float64         `json:"score"` // [0,1]
	Source       CandidateSource `json:"source"`
	RuleID       string          `json:"ruleID,omitempty"`       // Source == RULE
	ModelVersion string          `json:"modelVersion,omitempty"` // Source == ML
	Evidence     string          `json:"evidence,omitempty"`     // Human-readable justification
}

// ConfidenceBucket discretizes a continuous score for reviewers.
type ConfidenceBucket string

const (
	BucketLow      ConfidenceBucket = "LOW"
	BucketMedium   ConfidenceBucket = "MEDIUM"
	BucketHigh     ConfidenceBucket = "HIGH"
	BucketVeryHigh ConfidenceBucket = "VERY_HIGH"
)

// BucketForScore maps a score onto its confidence bucket.
// Thresholds: <0.40 low, <0.70 medium, <0.90 high, otherwise very high.
func BucketForScore(score float64) ConfidenceBucket {
	switch {
	case score >= 0.90:
		return BucketVeryHigh
	case score >= 0.70:
		return BucketHigh
	case score >= 0.40:
		return BucketMedium
	default:
		return BucketLow
	}
}

// RankedCandidate is one merged target with its combined score, produced by
// the resolver. Also the persisted shape of a suggestion's alternatives.
type RankedCandidate struct {
	AccountCode  string            `json:"accountCode"`
	AccountName  string            `json:"accountName"`
	Score        float64           `json:"score"`
	Bucket       ConfidenceBucket  `json:"bucket"`
	Sources      []CandidateSource `json:"sources"` // Contributing sources in precedence order
	RuleID       string            `json:"ruleID,omitempty"`
	ModelVersion string            `json:"modelVersion,omitempty"`
	Evidence     string            `json:"evidence,omitempty"`
}

// RankedSuggestion is the resolver output for one line: the winning target
// plus the recorded runner-up candidates.
type RankedSuggestion struct {
	Top          RankedCandidate   `json:"top"`
	Alternatives []RankedCandidate `json:"alternatives"`
}

// Method returns the mapping method implied by the top candidate's primary source.
func (r *RankedSuggestion) Method() MappingMethod {
	if len(r.Top.Sources) == 0 {
		return ""
	}
	return r.Top.Sources[0].Method()
}

// ReviewStatus is the review state of one suggestion record.
type ReviewStatus string

const (
	ReviewPending    ReviewStatus = "PENDING"
	ReviewConfirmed  ReviewStatus = "CONFIRMED"  // Top or alternative accepted
	ReviewRejected   ReviewStatus = "REJECTED"   // No acceptable candidate
	ReviewOverridden ReviewStatus = "OVERRIDDEN" // Reviewer mapped manually past the candidates
	ReviewReopened   ReviewStatus = "REOPENED"   // Decision withdrawn by an authorized re-review
)

// MappingSuggestion is the persisted ranked output for one line. Exactly one
// active suggestion exists per line; superseded records are retained, never
// overwritten, so every past recommendation stays auditable.
type MappingSuggestion struct {
	SuggestionID         string            `json:"suggestionID"`         // Primary Key (e.g., UUID)
	LineID               string            `json:"lineID"`               // FK -> trial_balance_lines (NON-NULL)
	SuggestedAccountCode string            `json:"suggestedAccountCode"` // Top candidate
	SuggestedAccountName string            `json:"suggestedAccountName"`
	Confidence           float64           `json:"confidence"`
	ConfidenceBucket     ConfidenceBucket  `json:"confidenceBucket"`
	Method               MappingMethod     `json:"method"`                 // Primary evidence source of the top candidate
	RuleID               string            `json:"ruleID,omitempty"`       // Contributing rule, when Method is RULE
	ModelVersion         string            `json:"modelVersion,omitempty"` // Classifier version consulted for the batch
	Alternatives         []RankedCandidate `json:"alternatives"`
	IsActive             bool              `json:"isActive"` // Superseded suggestions keep IsActive = false
	ReviewStatus         ReviewStatus      `json:"reviewStatus"`
	ChosenAccountCode    string            `json:"chosenAccountCode,omitempty"` // Reviewer's accepted target
	IsDivergent          bool              `json:"isDivergent"`                 // Chosen target differs from the suggested top
	ReviewedBy           string            `json:"reviewedBy,omitempty"`
	ReviewedAt           *time.Time        `json:"reviewedAt,omitempty"`
	Feedback             string            `json:"feedback,omitempty"` // Reviewer free text, notably on reject
	AuditFields
}
