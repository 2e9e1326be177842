// Package auth holds the credential primitives of the core: password
// hashing, bearer-token issuing, opaque refresh-token minting, and the clock.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avolkov/uniadmin/internal/common"
)

// Claims is the verified payload carried inside a bearer token. ExpiresAt is
// whole seconds since the Unix epoch. Claims are a pure projection; they are
// never stored.
type Claims struct {
	AccountID int64
	Email     string
	ExpiresAt int64
}

type bearerClaims struct {
	jwt.RegisteredClaims
	AccountID int64  `json:"uid"`
	Email     string `json:"email"`
}

// BearerIssuer encodes and decodes HS256-signed bearer tokens. The signing
// secret is process-wide read-only state.
type BearerIssuer struct {
	secret []byte
}

func NewBearerIssuer(secret []byte) *BearerIssuer {
	return &BearerIssuer{secret: secret}
}

// Encode signs the claims into a compact token string.
func (b *BearerIssuer) Encode(c Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, bearerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Unix(c.ExpiresAt, 0)),
		},
		AccountID: c.AccountID,
		Email:     c.Email,
	})
	return token.SignedString(b.secret)
}

// Decode verifies the signature and structural shape and returns the claims.
// It deliberately does NOT check expiry; callers compare Claims.ExpiresAt
// against the Clock. Every failure mode collapses to ErrorInvalidToken so a
// caller cannot distinguish a bad signature from a malformed token.
func (b *BearerIssuer) Decode(tokenString string) (*Claims, error) {
	parsed := &bearerClaims{}

	token, err := jwt.ParseWithClaims(tokenString, parsed,
		func(t *jwt.Token) (any, error) { return b.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || !token.Valid {
		return nil, common.ErrorInvalidToken
	}
	if parsed.ExpiresAt == nil || parsed.AccountID == 0 {
		return nil, common.ErrorInvalidToken
	}

	return &Claims{
		AccountID: parsed.AccountID,
		Email:     parsed.Email,
		ExpiresAt: parsed.ExpiresAt.Unix(),
	}, nil
}
