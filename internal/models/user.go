package models

import "time"

// User represents a platform user referenced as reviewer and auditor identity.
// Users are provisioned by the surrounding platform; this service only reads them.
type User struct {
	UserID          string `db:"user_id"`
	Name            string `db:"name"`
	IsPlatformAdmin bool   `db:"is_platform_admin"`
	AuditFields
	DeletedAt *time.Time `db:"deleted_at"` // Used for soft delete
}
