package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/avolkov/uniadmin/internal/common"
	"github.com/avolkov/uniadmin/internal/dbx"
	"github.com/avolkov/uniadmin/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Find(ctx context.Context, accountID int64, fingerprint string) (*models.Session, error) {
	query :=
		`SELECT account_id, fingerprint, refresh_token, expires_at FROM sessions
		 WHERE account_id = $1 AND fingerprint = $2
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

func (r *PostgresRepository) List(ctx context.Context, accountID int64) ([]models.Session, error) {
	query :=
		`SELECT account_id, fingerprint, refresh_token, expires_at FROM sessions
		 WHERE account_id = $1
		 ORDER BY fingerprint
		 `

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}

func (r *PostgresRepository) Count(ctx context.Context, accountID int64) (int64, error) {
	query := `SELECT count(*) FROM sessions WHERE account_id = $1`

	var n int64
	if err := r.db.QueryRowContext(ctx, query, accountID).Scan(&n); err != nil {
		return 0, fmt.Errorf("error performing sql request: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, session *models.Session) error {
	query :=
		`INSERT INTO sessions (account_id, fingerprint, refresh_token, expires_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (account_id, fingerprint)
		 DO UPDATE SET refresh_token = EXCLUDED.refresh_token, expires_at = EXCLUDED.expires_at
		 `

	_, err := r.db.ExecContext(ctx, query,
		session.AccountID, session.Fingerprint, session.RefreshToken, session.ExpiresAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.ForeignKeyViolation:
				return common.ErrorAccountMissing
			case pgerrcode.UniqueViolation:
				return common.ErrorAlreadyExists
			}
		}
		return fmt.Errorf("error performing sql request: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, accountID int64, fingerprint string) error {
	query :=
		`DELETE FROM sessions
		 WHERE account_id = $1 AND fingerprint = $2
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

func (r *PostgresRepository) DeleteAll(ctx context.Context, accountID int64) ([]models.Session, error) {
	query :=
		`DELETE FROM sessions
		 WHERE account_id = $1
		 RETURNING account_id, fingerprint, refresh_token, expires_at
		 `

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}

func scanSessions(rows *sql.Rows) ([]models.Session, error) {
	var out []models.Session
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(&s.AccountID, &s.Fingerprint, &s.RefreshToken, &s.ExpiresAt); err != nil {
			return nil, fmt.Errorf("error scanning session row: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session rows: %w", err)
	}
	return out, nil
}
