// Package settings reads dynamic site configuration owned by the external
// settings API. Every auth decision re-fetches the current snapshot; if the
// settings source is unreachable the hardcoded safe defaults apply.
package settings

import (
	"strings"

	"github.com/seannyti/kfcweb/pkg/auth"
)

// Settings is an immutable snapshot of the externally-owned configuration.
type Settings struct {
	AllowRegistration   bool   `json:"allowRegistration"`
	MaxLoginAttempts    int    `json:"maxLoginAttempts"`
	EnableIPWhitelist   bool   `json:"enableIpWhitelist"`
	WhitelistedIPs      string `json:"whitelistedIps"` // comma-separated
	MinPasswordLength   int    `json:"minPasswordLength"`
	RequireUppercase    bool   `json:"requireUppercase"`
	RequireNumbers      bool   `json:"requireNumbers"`
	RequireSpecialChars bool   `json:"requireSpecialChars"`
	MaintenanceMode     bool   `json:"maintenanceMode"`
	EnableAPIAccess     bool   `json:"enableApiAccess"`
}

// Defaults returns the conservative fallback used when the settings source
// cannot be reached.
func Defaults() Settings {
	return Settings{
		AllowRegistration:   true,
		MaxLoginAttempts:    5,
		EnableIPWhitelist:   false,
		WhitelistedIPs:      "",
		MinPasswordLength:   8,
		RequireUppercase:    true,
		RequireNumbers:      true,
		RequireSpecialChars: true,
		MaintenanceMode:     false,
		EnableAPIAccess:     true,
	}
}

// PasswordPolicy projects the snapshot onto the password validator's policy.
func (s Settings) PasswordPolicy() auth.PasswordPolicy {
	return auth.PasswordPolicy{
		MinLength:           s.MinPasswordLength,
		RequireUppercase:    s.RequireUppercase,
		RequireNumbers:      s.RequireNumbers,
		RequireSpecialChars: s.RequireSpecialChars,
	}
}

// IPAllowed evaluates the admin-tier IP allow-list against a connecting IP.
// A disabled or empty list allows everything; an unknown IP is denied when
// the list is enforced.
func (s Settings) IPAllowed(ip string) bool {
	if !s.EnableIPWhitelist || strings.TrimSpace(s.WhitelistedIPs) == "" {
		return true
	}
	if ip == "" {
		return false
	}
	for _, allowed := range strings.Split(s.WhitelistedIPs, ",") {
		if strings.TrimSpace(allowed) == ip {
			return true
		}
	}
	return false
}
