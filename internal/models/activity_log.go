package models

import "time"

// Activity log categories.
const (
	ActivityUser     = "user"
	ActivityAdmin    = "admin"
	ActivitySystem   = "system"
	ActivitySecurity = "security"
)

// ActivityLog is one append-only audit trail entry. Actor fields are
// optional; system events carry none.
type ActivityLog struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Category  string    `json:"type"`
	Action    string    `json:"action"`
	UserID    *string   `json:"userId,omitempty"`
	UserName  *string   `json:"userName,omitempty"`
	IPAddress *string   `json:"ipAddress,omitempty"`
	Details   *string   `json:"details,omitempty"`
}
