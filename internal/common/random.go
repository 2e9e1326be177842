package common

import (
	"crypto/rand"
	"encoding/base64"
)

// MakeRandURLString returns a URL-safe random string of exactly length
// characters drawn from the base64url alphabet. Each character carries
// 6 bits of entropy, so length 22 gives a little over 128 bits.
func MakeRandURLString(length int) (string, error) {
	raw := make([]byte, (length*6+7)/8+1)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw)[:length], nil
}
