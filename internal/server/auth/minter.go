package auth

import (
	"fmt"

	"github.com/avolkov/uniadmin/internal/common"
)

// MinRefreshTokenLength is the smallest permitted token length: 22 base64url
// characters carry just over 128 bits of entropy.
const MinRefreshTokenLength = 22

// TokenMinter generates opaque refresh tokens. The values carry no claims;
// they are only meaningful as lookup keys in the session store.
type TokenMinter struct {
	length int
}

func NewTokenMinter(length int) (*TokenMinter, error) {
	if length < MinRefreshTokenLength {
		return nil, fmt.Errorf("refresh token length %d below minimum %d", length, MinRefreshTokenLength)
	}
	return &TokenMinter{length: length}, nil
}

// Mint returns a fixed-length URL-safe random string.
func (m *TokenMinter) Mint() (string, error) {
	token, err := common.MakeRandURLString(m.length)
	if err != nil {
		return "", fmt.Errorf("minting refresh token: %w", err)
	}
	return token, nil
}
