package mapping

import (
	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	"github.com/ledgermap/ledgermap_backend/internal/models"
)

// ToModelFirm converts a domain Firm to a model Firm
func ToModelFirm(d domain.Firm) models.Firm {
	return models.Firm{
		FirmID:      d.FirmID,
		Name:        d.Name,
		Description: d.Description,
		IsActive:    d.IsActive,
		AuditFields: ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainFirm converts a model Firm to a domain Firm
func ToDomainFirm(m models.Firm) domain.Firm {
	return domain.Firm{
		FirmID:      m.FirmID,
		Name:        m.Name,
		Description: m.Description,
		IsActive:    m.IsActive,
		AuditFields: ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainFirmMember converts a model FirmMember to a domain FirmMember.
// The user name is joined in separately where listings need it.
func ToDomainFirmMember(m models.FirmMember) domain.FirmMember {
	return domain.FirmMember{
		UserID:   m.UserID,
		FirmID:   m.FirmID,
		Role:     domain.FirmRole(m.Role),
		JoinedAt: m.JoinedAt,
	}
}
