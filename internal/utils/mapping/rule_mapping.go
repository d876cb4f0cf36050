package mapping

import (
	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	"github.com/ledgermap/ledgermap_backend/internal/models"
)

// ToModelMappingRule converts a domain MappingRule to a model MappingRule
func ToModelMappingRule(d domain.MappingRule) models.MappingRule {
	return models.MappingRule{
		RuleID:            d.RuleID,
		FirmID:            d.FirmID,
		Name:              d.Name,
		Pattern:           d.Pattern,
		IsRegex:           d.IsRegex,
		MatchMode:         string(d.MatchMode),
		TargetAccountCode: d.TargetAccountCode,
		Priority:          d.Priority,
		ConfidenceBoost:   d.ConfidenceBoost,
		IsActive:          d.IsActive,
		AuditFields:       ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainMappingRule converts a model MappingRule to a domain MappingRule
func ToDomainMappingRule(m models.MappingRule) domain.MappingRule {
	return domain.MappingRule{
		RuleID:            m.RuleID,
		FirmID:            m.FirmID,
		Name:              m.Name,
		Pattern:           m.Pattern,
		IsRegex:           m.IsRegex,
		MatchMode:         domain.MatchMode(m.MatchMode),
		TargetAccountCode: m.TargetAccountCode,
		Priority:          m.Priority,
		ConfidenceBoost:   m.ConfidenceBoost,
		IsActive:          m.IsActive,
		AuditFields:       ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainMappingRuleSlice converts a slice of model MappingRules to a slice of domain MappingRules
func ToDomainMappingRuleSlice(ms []models.MappingRule) []domain.MappingRule {
	ds := make([]domain.MappingRule, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainMappingRule(m)
	}
	return ds
}
