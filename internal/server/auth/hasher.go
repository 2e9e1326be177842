package auth

import (
	"context"
	"fmt"
	"runtime"

	"github.com/alexedwards/argon2id"
	"golang.org/x/sync/semaphore"

	"github.com/avolkov/uniadmin/internal/common"
)

// PasswordHasher derives and verifies argon2id hashes. The produced hash
// string is self-describing (variant, parameters, salt, tag), so parameters
// can be rotated without a schema change.
//
// Hashing is CPU- and memory-heavy; a weighted semaphore sized to GOMAXPROCS
// keeps concurrent derivations from starving the rest of the scheduler.
// Acquisition respects context cancellation.
type PasswordHasher struct {
	params *argon2id.Params
	sem    *semaphore.Weighted
}

func NewPasswordHasher(params *argon2id.Params) *PasswordHasher {
	return &PasswordHasher{
		params: params,
		sem:    semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}
}

// Hash derives a new hash with a fresh random salt. The plaintext is never
// logged or echoed back.
func (h *PasswordHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	hash, err := argon2id.CreateHash(plaintext, h.params)
	if err != nil {
		return "", fmt.Errorf("deriving password hash: %w", err)
	}
	return hash, nil
}

// Compare reports whether plaintext matches the stored hash. A stored hash
// that fails to parse is data corruption and comes back as an error wrapping
// ErrorInternal, never as a plain mismatch.
func (h *PasswordHasher) Compare(ctx context.Context, plaintext, hash string) (bool, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.sem.Release(1)

	match, err := argon2id.ComparePasswordAndHash(plaintext, hash)
	if err != nil {
		return false, fmt.Errorf("%w: stored hash unparseable: %v", common.ErrorInternal, err)
	}
	return match, nil
}
