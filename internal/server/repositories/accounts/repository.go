// Package accounts declares the repository contract for account records.
package accounts

import (
	"context"

	"github.com/avolkov/uniadmin/internal/server/models"
)

// Repository persists account records keyed by id and by email.
type Repository interface {
	// Create inserts a new account and returns it with the store-assigned ID.
	// A duplicate email (case-insensitive) yields common.ErrorAlreadyExists
	// with no partial state.
	Create(ctx context.Context, account *models.Account) (*models.Account, error)

	// FindByEmail matches case-insensitively. Absence yields common.ErrorNotFound.
	FindByEmail(ctx context.Context, email string) (*models.Account, error)

	// FindByID returns the account or common.ErrorNotFound.
	FindByID(ctx context.Context, id int64) (*models.Account, error)

	// UpdatePassword replaces the stored hash. An unknown id yields
	// common.ErrorNotFound.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}
