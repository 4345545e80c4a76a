package auth

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// ResetTokenTTL bounds how long a password-reset token stays valid.
const ResetTokenTTL = 15 * time.Minute

// NewResetToken returns a random opaque token for the forgot-password flow.
// It is deliberately unrelated to the signed JWTs: possession of the value
// is the whole credential, so it is never derived from any user data.
func NewResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
