package models

import "time"

// Firm represents a stored accounting firm.
type Firm struct {
	FirmID      string `db:"firm_id"`
	Name        string `db:"name"`
	Description string `db:"description"` // Nullable
	IsActive    bool   `db:"is_active"`
	AuditFields
}

// FirmMember represents the membership of a user in a firm.
type FirmMember struct {
	UserID   string    `db:"user_id"`
	FirmID   string    `db:"firm_id"`
	Role     string    `db:"role"`
	JoinedAt time.Time `db:"joined_at"`
}
