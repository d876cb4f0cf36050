package mapping

import (
	"encoding/json"
	"fmt"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	"github.com/ledgermap/ledgermap_backend/internal/models"
)

// ToModelMappingSuggestion converts a domain MappingSuggestion to a model
// MappingSuggestion, serializing the alternatives to their JSONB payload.
func ToModelMappingSuggestion(d domain.MappingSuggestion) (models.MappingSuggestion, error) {
	alternatives, err := json.Marshal(d.Alternatives)
	if err != nil {
		return models.MappingSuggestion{}, fmt.Errorf("failed to marshal suggestion alternatives: %w", err)
	}
	return models.MappingSuggestion{
		SuggestionID:         d.SuggestionID,
		LineID:               d.LineID,
		SuggestedAccountCode: d.SuggestedAccountCode,
		SuggestedAccountName: d.SuggestedAccountName,
		Confidence:           d.Confidence,
		ConfidenceBucket:     string(d.ConfidenceBucket),
		Method:               string(d.Method),
		RuleID:               d.RuleID,
		ModelVersion:         d.ModelVersion,
		Alternatives:         alternatives,
		IsActive:             d.IsActive,
		ReviewStatus:         string(d.ReviewStatus),
		ChosenAccountCode:    d.ChosenAccountCode,
		IsDivergent:          d.IsDivergent,
		ReviewedBy:           d.ReviewedBy,
		ReviewedAt:           d.ReviewedAt,
		Feedback:             d.Feedback,
		AuditFields:          ToModelAuditFields(d.AuditFields),
	}, nil
}

// ToDomainMappingSuggestion converts a model MappingSuggestion to a domain
// MappingSuggestion, deserializing the alternatives payload.
func ToDomainMappingSuggestion(m models.MappingSuggestion) (domain.MappingSuggestion, error) {
	var alternatives []domain.RankedCandidate
	if len(m.Alternatives) > 0 {
		if err := json.Unmarshal(m.Alternatives, &alternatives); err != nil {
			return domain.MappingSuggestion{}, fmt.Errorf("failed to unmarshal suggestion alternatives: %w", err)
		}
	}
	return domain.MappingSuggestion{
		SuggestionID:         m.SuggestionID,
		LineID:               m.LineID,
		SuggestedAccountCode: m.SuggestedAccountCode,
		SuggestedAccountName: m.SuggestedAccountName,
		Confidence:           m.Confidence,
		ConfidenceBucket:     domain.ConfidenceBucket(m.ConfidenceBucket),
		Method:               domain.MappingMethod(m.Method),
		RuleID:               m.RuleID,
		ModelVersion:         m.ModelVersion,
		Alternatives:         alternatives,
		IsActive:             m.IsActive,
		ReviewStatus:         domain.ReviewStatus(m.ReviewStatus),
		ChosenAccountCode:    m.ChosenAccountCode,
		IsDivergent:          m.IsDivergent,
		ReviewedBy:           m.ReviewedBy,
		ReviewedAt:           m.ReviewedAt,
		Feedback:             m.Feedback,
		AuditFields:          ToDomainAuditFields(m.AuditFields),
	}, nil
}

// ToDomainMappingSuggestionSlice converts a slice of model suggestions to domain suggestions
func ToDomainMappingSuggestionSlice(ms []models.MappingSuggestion) ([]domain.MappingSuggestion, error) {
	ds := make([]domain.MappingSuggestion, len(ms))
	for i, m := range ms {
		d, err := ToDomainMappingSuggestion(m)
		if err != nil {
			return nil, err
		}
		ds[i] = d
	}
	return ds, nil
}
