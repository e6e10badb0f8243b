package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost           = 12
	VerificationTokenLen = 16 // bytes of entropy, hex-encoded to 32 chars
)

// specialChars is the fixed set counted as special characters by the policy.
const specialChars = `!@#$%^&*(),.?"':{}|<>`

// PasswordPolicy holds the externally-configured password rules.
type PasswordPolicy struct {
	MinLength           int
	RequireUppercase    bool
	RequireNumbers      bool
	RequireSpecialChars bool
}

// ValidatePassword checks a candidate password against the policy and returns
// one message per violated rule. Every rule is evaluated; an empty slice means
// the password is acceptable.
func ValidatePassword(password string, policy PasswordPolicy) []string {
	var violations []string

	if len(password) < policy.MinLength {
		violations = append(violations, fmt.Sprintf("Password must be at least %d characters long", policy.MinLength))
	}

	hasUpper := false
	hasDigit := false
	hasSpecial := false
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(specialChars, r):
			hasSpecial = true
		}
	}

	if policy.RequireUppercase && !hasUpper {
		violations = append(violations, "Password must contain at least one uppercase letter")
	}
	if policy.RequireNumbers && !hasDigit {
		violations = append(violations, "Password must contain at least one number")
	}
	if policy.RequireSpecialChars && !hasSpecial {
		violations = append(violations, "Password must contain at least one special character")
	}

	return violations
}

// HashPassword produces a salted one-way hash of the password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// ComparePassword checks a plaintext password against a stored hash.
func ComparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// GenerateVerificationToken returns an opaque unguessable token for email
// verification links.
func GenerateVerificationToken() (string, error) {
	bytes := make([]byte, VerificationTokenLen)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate verification token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
