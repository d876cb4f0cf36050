package mapping

import (
	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	"github.com/ledgermap/ledgermap_backend/internal/models"
)

// ToModelMappingHistory converts a domain MappingHistory to a model MappingHistory
func ToModelMappingHistory(d domain.MappingHistory) models.MappingHistory {
	return models.MappingHistory{
		HistoryID:        d.HistoryID,
		FirmID:           d.FirmID,
		SourceCode:       d.SourceCode,
		SourceName:       d.SourceName,
		NormalizedSource: d.NormalizedSource,
		AccountCode:      d.AccountCode,
		Method:           string(d.Method),
		Confidence:       d.Confidence,
		LineID:           d.LineID,
		SuggestionID:     d.SuggestionID,
		ConfirmedBy:      d.ConfirmedBy,
		ConfirmedAt:      d.ConfirmedAt,
	}
}

// ToDomainMappingHistory converts a model MappingHistory to a domain MappingHistory
func ToDomainMappingHistory(m models.MappingHistory) domain.MappingHistory {
	return domain.MappingHistory{
		HistoryID:        m.HistoryID,
		FirmID:           m.FirmID,
		SourceCode:       m.SourceCode,
		SourceName:       m.SourceName,
		NormalizedSource: m.NormalizedSource,
		AccountCode:      m.AccountCode,
		Method:           domain.MappingMethod(m.Method),
		Confidence:       m.Confidence,
		LineID:           m.LineID,
		SuggestionID:     m.SuggestionID,
		ConfirmedBy:      m.ConfirmedBy,
		ConfirmedAt:      m.ConfirmedAt,
	}
}

// ToDomainMappingHistorySlice converts a slice of model history rows to domain history rows
func ToDomainMappingHistorySlice(ms []models.MappingHistory) []domain.MappingHistory {
	ds := make([]domain.MappingHistory, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainMappingHistory(m)
	}
	return ds
}
