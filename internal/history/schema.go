package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var baseSchema string

// migrations upgrade the ledger one version at a time; entry i moves a
// database from user_version i to i+1. Append only.
var migrations = []string{
	baseSchema,
	`ALTER TABLE runs ADD COLUMN folders_pending INTEGER NOT NULL DEFAULT 0`,
}

// ErrSchemaMismatch is returned when the ledger was written by a newer build.
var ErrSchemaMismatch = errors.New("schema version mismatch")

func (s *Store) migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read ledger version: %w", err)
	}
	if version > len(migrations) {
		return fmt.Errorf("%w: ledger has version %d, this build knows %d (delete %s to start a new ledger)",
			ErrSchemaMismatch, version, len(migrations), s.path)
	}
	for ; version < len(migrations); version++ {
		next := version + 1
		stmt := migrations[version]
		err := s.write(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
			// PRAGMA does not take bind parameters.
			_, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", next))
			return err
		})
		if err != nil {
			return fmt.Errorf("migrate ledger to version %d: %w", next, err)
		}
	}
	return nil
}
