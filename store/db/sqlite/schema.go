package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS feedback (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	text TEXT NOT NULL,
	source VARCHAR(50) NOT NULL,
	sentiment VARCHAR(20),
	created_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now')),
	metadata TEXT
);
CREATE INDEX IF NOT EXISTS idx_feedback_created_ts ON feedback (created_ts);
CREATE INDEX IF NOT EXISTS idx_feedback_sentiment ON feedback (sentiment);
CREATE INDEX IF NOT EXISTS idx_feedback_source ON feedback (source);

CREATE TABLE IF NOT EXISTS system_setting (
	name TEXT NOT NULL PRIMARY KEY,
	value TEXT NOT NULL,
	updated_ts BIGINT NOT NULL
);
`

const schemaVersionKey = "schema_version"

func (d *DB) ApplySchema(ctx context.Context) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to create tables")
	}
	return errors.Wrap(tx.Commit(), "failed to commit schema")
}

// GetSchemaVersion returns an empty string when no version has been recorded.
func (d *DB) GetSchemaVersion(ctx context.Context) (string, error) {
	var exists bool
	if err := d.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM sqlite_master WHERE type='table' AND name='system_setting')").Scan(&exists); err != nil {
		return "", errors.Wrap(err, "failed to check system_setting table")
	}
	if !exists {
		return "", nil
	}

	var value string
	err := d.db.QueryRowContext(ctx, "SELECT value FROM system_setting WHERE name = ?", schemaVersionKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to get schema version")
	}
	return value, nil
}

func (d *DB) UpsertSchemaVersion(ctx context.Context, version string) error {
	stmt := `
		INSERT INTO system_setting (name, value, updated_ts)
		VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			value = excluded.value,
			updated_ts = excluded.updated_ts
	`
	if _, err := d.db.ExecContext(ctx, stmt, schemaVersionKey, version, time.Now().Unix()); err != nil {
		return errors.Wrap(err, "failed to upsert schema version")
	}
	return nil
}
