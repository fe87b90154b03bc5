package helpers

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// NewVerificationToken returns 32 random bytes hex encoded and the expiry ttl from now.
func NewVerificationToken(ttl time.Duration) (string, time.Time, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", time.Time{}, err
	}
	return hex.EncodeToString(b), time.Now().UTC().Add(ttl), nil
}
