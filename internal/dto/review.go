package dto

// ConfirmSuggestionRequest accepts the active suggestion's top candidate.
type ConfirmSuggestionRequest struct {
	ExpectedVersion int64 `json:"expectedVersion" binding:"required,gt=0"` // Line version the reviewer last saw
}

// SelectAlternativeRequest accepts a listed alternative instead of the top candidate.
type SelectAlternativeRequest struct {
	AccountCode     string `json:"accountCode" binding:"required"`
	ExpectedVersion int64  `json:"expectedVersion" binding:"required,gt=0"`
}

// RejectSuggestionRequest records that no proposed candidate is acceptable.
type RejectSuggestionRequest struct {
	ExpectedVersion int64  `json:"expectedVersion" binding:"required,gt=0"`
	Feedback        string `json:"feedback"` // Optional reviewer note, fed back to training
}

// ManualMapRequest assigns a reviewer-chosen canonical account directly.
type ManualMapRequest struct {
	AccountCode     string `json:"accountCode" binding:"required"`
	ExpectedVersion int64  `json:"expectedVersion" binding:"required,gt=0"`
}
