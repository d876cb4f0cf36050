package domain

import "time"

// User represents a user of the application in the domain.
type User struct {
	UserID string `json:"userID"` // Primary Key (e.g., UUID)
	Name   string `json:"name"`
	// IsPlatformAdmin marks operators allowed to mutate platform-global
	// reference data such as the canonical chart of accounts. Firm roles
	// never grant this.
	IsPlatformAdmin bool `json:"isPlatformAdmin"`
	AuditFields
	DeletedAt *time.Time `json:"deletedAt,omitempty" db:"deleted_at"` // Used for soft delete
}
