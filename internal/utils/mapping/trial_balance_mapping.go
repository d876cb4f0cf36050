package mapping

import (
	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	"github.com/ledgermap/ledgermap_backend/internal/models"
)

// ToModelTrialBalance converts a domain TrialBalance to a model TrialBalance
func ToModelTrialBalance(d domain.TrialBalance) models.TrialBalance {
	return models.TrialBalance{
		TrialBalanceID:       d.TrialBalanceID,
		FirmID:               d.FirmID,
		EngagementID:         d.EngagementID,
		PeriodEnd:            d.PeriodEnd,
		SourceSystem:         d.SourceSystem,
		CurrencyCode:         d.CurrencyCode,
		DeclaredTotalDebits:  d.DeclaredTotalDebits,
		DeclaredTotalCredits: d.DeclaredTotalCredits,
		TotalDebits:          d.TotalDebits,
		TotalCredits:         d.TotalCredits,
		Difference:           d.Difference,
		IsBalanced:           d.IsBalanced,
		LineCount:            d.LineCount,
		Status:               string(d.Status),
		SupersededBy:         d.SupersededBy,
		AuditFields:          ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainTrialBalance converts a model TrialBalance to a domain TrialBalance
func ToDomainTrialBalance(m models.TrialBalance) domain.TrialBalance {
	return domain.TrialBalance{
		TrialBalanceID:       m.TrialBalanceID,
		FirmID:               m.FirmID,
		EngagementID:         m.EngagementID,
		PeriodEnd:            m.PeriodEnd,
		SourceSystem:         m.SourceSystem,
		CurrencyCode:         m.CurrencyCode,
		DeclaredTotalDebits:  m.DeclaredTotalDebits,
		DeclaredTotalCredits: m.DeclaredTotalCredits,
		TotalDebits:          m.TotalDebits,
		TotalCredits:         m.TotalCredits,
		Difference:           m.Difference,
		IsBalanced:           m.IsBalanced,
		LineCount:            m.LineCount,
		Status:               domain.TrialBalanceStatus(m.Status),
		SupersededBy:         m.SupersededBy,
		AuditFields:          ToDomainAuditFields(m.AuditFields),
	}
}

// ToModelTrialBalanceLine converts a domain TrialBalanceLine to a model TrialBalanceLine
func ToModelTrialBalanceLine(d domain.TrialBalanceLine) models.TrialBalanceLine {
	return models.TrialBalanceLine{
		LineID:            d.LineID,
		TrialBalanceID:    d.TrialBalanceID,
		LineNumber:        d.LineNumber,
		SourceCode:        d.SourceCode,
		SourceName:        d.SourceName,
		NormalizedSource:  d.NormalizedSource,
		Debit:             d.Debit,
		Credit:            d.Credit,
		Net:               d.Net,
		IsMaterial:        d.IsMaterial,
		Status:            string(d.Status),
		MappedAccountCode: d.MappedAccountCode,
		MappingConfidence: d.MappingConfidence,
		MappingMethod:     string(d.MappingMethod),
		Version:           d.Version,
		AuditFields:       ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainTrialBalanceLine converts a model TrialBalanceLine to a domain TrialBalanceLine
func ToDomainTrialBalanceLine(m models.TrialBalanceLine) domain.TrialBalanceLine {
	return domain.TrialBalanceLine{
		LineID:            m.LineID,
		TrialBalanceID:    m.TrialBalanceID,
		LineNumber:        m.LineNumber,
		SourceCode:        m.SourceCode,
		SourceName:        m.SourceName,
		NormalizedSource:  m.NormalizedSource,
		Debit:             m.Debit,
		Credit:            m.Credit,
		Net:               m.Net,
		IsMaterial:        m.IsMaterial,
		Status:            domain.LineStatus(m.Status),
		MappedAccountCode: m.MappedAccountCode,
		MappingConfidence: m.MappingConfidence,
		MappingMethod:     domain.MappingMethod(m.MappingMethod),
		Version:           m.Version,
		AuditFields:       ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainTrialBalanceLineSlice converts a slice of model lines to domain lines
func ToDomainTrialBalanceLineSlice(ms []models.TrialBalanceLine) []domain.TrialBalanceLine {
	ds := make([]domain.TrialBalanceLine, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainTrialBalanceLine(m)
	}
	return ds
}

// ToModelDeclaredSubtotal converts a domain DeclaredSubtotal to a model DeclaredSubtotal
func ToModelDeclaredSubtotal(d domain.DeclaredSubtotal) models.DeclaredSubtotal {
	return models.DeclaredSubtotal{
		TrialBalanceID: d.TrialBalanceID,
		AccountCode:    d.AccountCode,
		Amount:         d.Amount,
	}
}

// ToDomainDeclaredSubtotal converts a model DeclaredSubtotal to a domain DeclaredSubtotal
func ToDomainDeclaredSubtotal(m models.DeclaredSubtotal) domain.DeclaredSubtotal {
	return domain.DeclaredSubtotal{
		TrialBalanceID: m.TrialBalanceID,
		AccountCode:    m.AccountCode,
		Amount:         m.Amount,
	}
}
