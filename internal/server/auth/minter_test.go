package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenMinter_RejectsShortLength(t *testing.T) {
	_, err := NewTokenMinter(21)
	assert.Error(t, err)

	_, err = NewTokenMinter(22)
	assert.NoError(t, err)
}

func TestTokenMinter_Mint(t *testing.T) {
	m, err := NewTokenMinter(32)
	require.NoError(t, err)

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		token, err := m.Mint()
		require.NoError(t, err)
		require.Len(t, token, 32)

		for _, r := range token {
			ok := r == '-' || r == '_' ||
				(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
			require.True(t, ok, "token %q not URL-safe", token)
		}

		_, dup := seen[token]
		require.False(t, dup, "minted duplicate token")
		seen[token] = struct{}{}
	}
}
