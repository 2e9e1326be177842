// Package sessions declares the repository contract for the per-device
// session table.
package sessions

import (
	"context"

	"github.com/avolkov/uniadmin/internal/server/models"
)

// Repository persists sessions keyed by (account id, fingerprint).
type Repository interface {
	// Find returns the session for the key or common.ErrorNotFound.
	Find(ctx context.Context, accountID int64, fingerprint string) (*models.Session, error)

	// List returns every session for the account, expired rows included.
	List(ctx context.Context, accountID int64) ([]models.Session, error)

	// Count returns the total number of sessions for the account, whether
	// expired or not.
	Count(ctx context.Context, accountID int64) (int64, error)

	// Upsert inserts the session or atomically replaces the refresh token and
	// expiry of an existing row with the same key. A missing account surfaces
	// as common.ErrorAccountMissing.
	Upsert(ctx context.Context, session *models.Session) error

	// Delete removes one session; an absent key yields common.ErrorNotFound.
	Delete(ctx context.Context, accountID int64, fingerprint string) error

	// DeleteAll removes every session for the account and returns the
	// removed rows. Used on forced invalidation.
	DeleteAll(ctx context.Context, accountID int64) ([]models.Session, error)
}
