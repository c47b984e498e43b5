package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"
)

// NewResetToken derives a password-reset session token: the SHA-256 hex
// digest of "email:unixMillis:random", where random is 32 crypto/rand bytes
// in unpadded base64url. The digest form keeps the stored key free of
// user-controlled characters.
func NewResetToken(email string) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	rnd := base64.RawURLEncoding.EncodeToString(b)
	base := fmt.Sprintf("%s:%d:%s", email, time.Now().UnixMilli(), rnd)
	sum := sha256.Sum256([]byte(base))
	return hex.EncodeToString(sum[:]), nil
}
