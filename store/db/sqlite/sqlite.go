package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"strings"

	"github.com/pkg/errors"
	msqlite "modernc.org/sqlite"

	"github.com/hrygo/feedlens/internal/profile"
	"github.com/hrygo/feedlens/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

const pragmas = "_pragma=foreign_keys(0)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)"

// SQLite's built-in LOWER only folds ASCII.
func init() {
	msqlite.MustRegisterDeterministicScalarFunction("unicode_lower", 1, unicodeLower)
}

func unicodeLower(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// NewDB opens a database specified by its database driver name and a
// driver-specific data source name, usually consisting of at least a
// database name and connection information.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	// Ensure a DSN is set before attempting to open the database.
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	// Connect to the database with some sane settings:
	// - No foreign key constraints.
	// - Journal mode set to WAL: it prevents locking issues for readers.
	//
	// When using the `modernc.org/sqlite` driver, each pragma must be prefixed with `_pragma=`.
	sep := "?"
	if strings.Contains(profile.DSN, "?") {
		sep = "&"
	}
	sqliteDB, err := sql.Open("sqlite", profile.DSN+sep+pragmas)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	// SQLite: single connection is optimal with WAL
	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetMaxIdleConns(1)
	sqliteDB.SetConnMaxLifetime(0)
	sqliteDB.SetConnMaxIdleTime(0)

	return &DB{db: sqliteDB, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) IsInitialized(ctx context.Context) (bool, error) {
	// Check if the database is initialized by checking if the feedback table exists.
	var exists bool
	err := d.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM sqlite_master WHERE type='table' AND name='feedback')").Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check if database is initialized")
	}
	return exists, nil
}
