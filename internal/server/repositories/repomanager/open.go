package repomanager

import (
	"database/sql"
	"fmt"
	"strings"
)

// Open connects to the database named by driver ("pgx" or "sqlite") and
// returns the handle together with the matching repository manager.
func Open(driver, dsn string) (*sql.DB, RepositoryManager, error) {
	switch driver {
	case "pgx":
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("opening postgres: %w", err)
		}
		return db, NewPostgresRepositoryManager(), nil

	case "sqlite":
		if !strings.Contains(dsn, "_pragma=foreign_keys") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "_pragma=foreign_keys(1)"
		}
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite: %w", err)
		}
		// SQLite serializes writers anyway; one connection sidesteps
		// SQLITE_BUSY and keeps :memory: databases on a single handle.
		db.SetMaxOpenConns(1)
		return db, NewSQLiteRepositoryManager(), nil

	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
