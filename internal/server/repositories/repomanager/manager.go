// Package repomanager hands out dialect-specific repositories bound to a
// plain connection or to a transaction, and owns schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/avolkov/uniadmin/internal/dbx"
	"github.com/avolkov/uniadmin/internal/server/repositories/accounts"
	"github.com/avolkov/uniadmin/internal/server/repositories/sessions"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Sessions(db dbx.DBTX) sessions.Repository
}
