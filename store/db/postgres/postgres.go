package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/hrygo/feedlens/internal/profile"
	"github.com/hrygo/feedlens/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	// Open the PostgreSQL connection
	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		return nil, errors.Wrap(err, "failed to open db")
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	var driver store.Driver = &DB{
		db:      db,
		profile: profile,
	}

	// Return the DB struct
	return driver, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) IsInitialized(ctx context.Context) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = 'feedback')").Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check if database is initialized: %w", err)
	}
	return exists, nil
}

// placeholder returns the n-th positional parameter marker.
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}
