package models

import "time"

// APIKey is a long-lived machine credential for cross-API access. Only the
// SHA-256 hash of the secret is stored; MaskedKey is a display-safe stub.
type APIKey struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	MaskedKey  string     `json:"key"`
	KeyHash    string     `json:"-"`
	IsActive   bool       `json:"isActive"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
	CreatedBy  *string    `json:"createdByUserId,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}

// Expired reports whether the key has an expiry in the past.
func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && k.ExpiresAt.Before(now)
}
