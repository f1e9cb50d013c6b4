package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign answers a gateway challenge with HMAC-SHA256 over the shared secret
func Sign(secret, challenge string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(challenge))
	return hex.EncodeToString(h.Sum(nil))
}

// Verify reports whether signature answers challenge
func Verify(secret, challenge, signature string) bool {
	return hmac.Equal([]byte(Sign(secret, challenge)), []byte(signature))
}
