package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/avolkov/uniadmin/internal/common"
	"github.com/avolkov/uniadmin/internal/dbx"
	"github.com/avolkov/uniadmin/internal/server/models"
)

// SQLiteRepository mirrors PostgresRepository on SQLite. Foreign keys must be
// enabled on the connection (the sqlite manager opens the DSN with
// _pragma=foreign_keys(1)).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func isConstraint(err error, codes ...int) bool {
	var sqErr *sqlite.Error
	if !errors.As(err, &sqErr) {
		return false
	}
	for _, c := range codes {
		if sqErr.Code() == c {
			return true
		}
	}
	return false
}

func (r *SQLiteRepository) Find(ctx context.Context, accountID int64, fingerprint string) (*models.Session, error) {
	query :=
		`SELECT account_id, fingerprint, refresh_token, expires_at FROM sessions
		 WHERE account_id = ? AND fingerprint = ?
		 `

	s := &models.Session{}
	err := r.db.QueryRowContext(ctx, query, accountID, fingerprint).
		Scan(&s.AccountID, &s.Fingerprint, &s.RefreshToken, &s.ExpiresAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return s, nil
}

func (r *SQLiteRepository) List(ctx context.Context, accountID int64) ([]models.Session, error) {
	query :=
		`SELECT account_id, fingerprint, refresh_token, expires_at FROM sessions
		 WHERE account_id = ?
		 ORDER BY fingerprint
		 `

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}

func (r *SQLiteRepository) Count(ctx context.Context, accountID int64) (int64, error) {
	query := `SELECT count(*) FROM sessions WHERE account_id = ?`

	var n int64
	if err := r.db.QueryRowContext(ctx, query, accountID).Scan(&n); err != nil {
		return 0, fmt.Errorf("error performing sql request: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, session *models.Session) error {
	query :=
		`INSERT INTO sessions (account_id, fingerprint, refresh_token, expires_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (account_id, fingerprint)
		 DO UPDATE SET refresh_token = excluded.refresh_token, expires_at = excluded.expires_at
		 `

	_, err := r.db.ExecContext(ctx, query,
		session.AccountID, session.Fingerprint, session.RefreshToken, session.ExpiresAt)

	if err != nil {
		if isConstraint(err, sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY) {
			return common.ErrorAccountMissing
		}
		if isConstraint(err, sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("error performing sql request: %w", err)
	}

	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, accountID int64, fingerprint string) error {
	query :=
		`DELETE FROM sessions
		 WHERE account_id = ? AND fingerprint = ?
		 `

	res, err := r.db.ExecContext(ctx, query, accountID, fingerprint)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context, accountID int64) ([]models.Session, error) {
	query :=
		`DELETE FROM sessions
		 WHERE account_id = ?
		 RETURNING account_id, fingerprint, refresh_token, expires_at
		 `

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}
