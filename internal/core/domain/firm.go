package domain

import "time"

// Firm represents an accounting firm; all engagement data is firm-scoped.
type Firm struct {
	FirmID      string `json:"firmID"`      // Primary Key (e.g., UUID)
	Name        string `json:"name"`        // Firm display name
	Description string `json:"description"` // Optional description
	IsActive    bool   `json:"isActive"`    // Indicates whether the firm is active or disabled
	AuditFields        // Embed common audit fields
}

// FirmRole defines the possible roles a user can have within a firm.
type FirmRole string

const (
	RoleAdmin    FirmRole = "ADMIN"
	RoleMember   FirmRole = "MEMBER"
	RoleReadOnly FirmRole = "READONLY" // Users with read-only access to firm data
	RoleRemoved  FirmRole = "REMOVED"  // For users who have been removed from the firm
)

// FirmMember represents the membership of a User in a Firm.
type FirmMember struct {
	UserID   string    `json:"userID"`   // FK -> users.user_id
	UserName string    `json:"userName"` // Name of the user
	FirmID   string    `json:"firmID"`   // FK -> firms.firm_id
	Role     FirmRole  `json:"role"`     // Role of the user in this specific firm
	JoinedAt time.Time `json:"joinedAt"` // Timestamp when the user joined the firm
}
