package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const schema = `
CREATE TABLE IF NOT EXISTS feedback (
	id SERIAL PRIMARY KEY,
	text TEXT NOT NULL,
	source VARCHAR(50) NOT NULL,
	sentiment VARCHAR(20),
	created_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
	metadata JSONB
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
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}
	return nil
}

func (d *DB) GetSchemaVersion(ctx context.Context) (string, error) {
	var exists bool
	if err := d.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = 'system_setting')").Scan(&exists); err != nil {
		return "", fmt.Errorf("failed to check system_setting table: %w", err)
	}
	if !exists {
		return "", nil
	}

	var value string
	err := d.db.QueryRowContext(ctx, "SELECT value FROM system_setting WHERE name = "+placeholder(1), schemaVersionKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get schema version: %w", err)
	}
	return value, nil
}

func (d *DB) UpsertSchemaVersion(ctx context.Context, version string) error {
	stmt := `INSERT INTO system_setting (name, value, updated_ts)
		VALUES (` + placeholder(1) + `, ` + placeholder(2) + `, ` + placeholder(3) + `)
		ON CONFLICT (name) DO UPDATE SET
			value = EXCLUDED.value,
			updated_ts = EXCLUDED.updated_ts`
	if _, err := d.db.ExecContext(ctx, stmt, schemaVersionKey, version, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to upsert schema version: %w", err)
	}
	return nil
}
