package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// GenerateSecret generates a cryptographically secure random secret
func GenerateSecret(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateBookingReference returns a reference like BK-20261019-3FA9C1.
// Uniqueness is enforced by the bookings table; callers retry on conflict.
func GenerateBookingReference(now time.Time) (string, error) {
	suffix, err := GenerateSecret(3)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("BK-%s-%s", now.Format("20060102"), strings.ToUpper(suffix)), nil
}
