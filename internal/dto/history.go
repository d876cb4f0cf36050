package dto

import (
	"time"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
)

// HistoryEntryResponse defines the data returned for one mapping history record.
type HistoryEntryResponse struct {
	HistoryID        string               `json:"historyID"`
	FirmID           string               `json:"firmID"`
	SourceCode       string               `json:"sourceCode,omitempty"`
	SourceName       string               `json:"sourceName"`
	NormalizedSource string               `json:"normalizedSource"`
	AccountCode      string               `json:"accountCode"`
	Method           domain.MappingMethod `json:"method"`
	Confidence       float64              `json:"confidence"`
	LineID           string               `json:"lineID"`
	SuggestionID     string               `json:"suggestionID,omitempty"`
	ConfirmedBy      string               `json:"confirmedBy"`
	ConfirmedAt      time.Time            `json:"confirmedAt"`
}

// ToHistoryEntryResponse converts a domain.MappingHistory to its DTO.
func ToHistoryEntryResponse(h *domain.MappingHistory) HistoryEntryResponse {
	return HistoryEntryResponse{
		HistoryID:        h.HistoryID,
		FirmID:           h.FirmID,
		SourceCode:       h.SourceCode,
		SourceName:       h.SourceName,
		NormalizedSource: h.NormalizedSource,
		AccountCode:      h.AccountCode,
		Method:           h.Method,
		Confidence:       h.Confidence,
		LineID:           h.LineID,
		SuggestionID:     h.SuggestionID,
		ConfirmedBy:      h.ConfirmedBy,
		ConfirmedAt:      h.ConfirmedAt,
	}
}

// ListHistoryParams defines query parameters for auditing mapping history.
// Exactly one of AccountCode or SourceText scopes the query.
type ListHistoryParams struct {
	AccountCode string  `form:"accountCode"` // Canonical target account
	SourceText  string  `form:"sourceText"`  // Raw source text, normalized before lookup
	Limit       int     `form:"limit,default=50"`
	NextToken   *string `form:"nextToken"`
}

// ListHistoryResponse wraps a page of mapping history records, newest first.
type ListHistoryResponse struct {
	Entries   []HistoryEntryResponse `json:"entries"`
	NextToken *string                `json:"nextToken,omitempty"`
}

// ToListHistoryResponse converts a slice of domain.MappingHistory to DTOs.
func ToListHistoryResponse(entries []domain.MappingHistory, nextToken *string) ListHistoryResponse {
	res := make([]HistoryEntryResponse, len(entries))
	for i, h := range entries {
		res[i] = ToHistoryEntryResponse(&h)
	}
	return ListHistoryResponse{Entries: res, NextToken: nextToken}
}
