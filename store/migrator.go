package store

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/hrygo/feedlens/internal/version"
)

// LatestSchemaVersion is the schema version the drivers create.
const LatestSchemaVersion = "1.0.0"

// Migrate applies the schema when the database is new or records an older version.
func (s *Store) Migrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check database initialization")
	}

	if initialized {
		current, err := s.driver.GetSchemaVersion(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to get schema version")
		}
		if current != "" && version.IsVersionGreaterOrEqualThan(current, LatestSchemaVersion) {
			slog.Debug("schema is up to date", "version", current)
			return nil
		}
		slog.Info("upgrading schema", "from", current, "to", LatestSchemaVersion)
	} else {
		slog.Info("initializing schema", "version", LatestSchemaVersion)
	}

	if err := s.driver.ApplySchema(ctx); err != nil {
		return errors.Wrap(err, "failed to apply schema")
	}
	if err := s.driver.UpsertSchemaVersion(ctx, LatestSchemaVersion); err != nil {
		return errors.Wrap(err, "failed to record schema version")
	}
	return nil
}
