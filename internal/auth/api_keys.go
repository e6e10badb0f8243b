package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// APIKeyPrefix marks every issued key so callers (and support staff) can
// recognize the credential type at a glance.
const APIKeyPrefix = "kfc_"

// apiKeySecretLen is the length in hex characters of the random portion.
const apiKeySecretLen = 64

// GenerateAPIKey creates a new API key. It returns the full plaintext key
// (shown exactly once), its SHA-256 hash for storage, and a masked form
// safe to display in listings.
func GenerateAPIKey() (plainKey, hash, masked string, err error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	secret := hex.EncodeToString(randomBytes)
	plainKey = APIKeyPrefix + secret
	hash = HashAPIKeySecret(secret)
	masked = MaskAPIKey(secret)

	return plainKey, hash, masked, nil
}

// HashAPIKeySecret hashes the secret portion of a key (the part after the
// prefix). The prefix is routing metadata, not part of the credential.
func HashAPIKeySecret(secret string) string {
	digest := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(digest[:])
}

// MaskAPIKey renders a display-safe stub: prefix, first 8 and last 8
// characters of the secret.
func MaskAPIKey(secret string) string {
	if len(secret) < 16 {
		return APIKeyPrefix + "..."
	}
	return fmt.Sprintf("%s%s...%s", APIKeyPrefix, secret[:8], secret[len(secret)-8:])
}

// SplitAPIKey validates the presented key's shape and returns the secret
// portion. It rejects keys without the expected prefix or length before
// any database work happens.
func SplitAPIKey(presented string) (string, error) {
	if !strings.HasPrefix(presented, APIKeyPrefix) {
		return "", errors.New("invalid API key format: missing prefix")
	}
	secret := strings.TrimPrefix(presented, APIKeyPrefix)
	if len(secret) != apiKeySecretLen {
		return "", fmt.Errorf("invalid API key format: expected %d chars after prefix, got %d", apiKeySecretLen, len(secret))
	}
	return secret, nil
}
