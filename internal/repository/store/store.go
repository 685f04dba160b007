// Package store opens the repository backend named by a DSN.
package store

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pressly/goose/v3"

	"github.com/sakif/marketplace-api/internal/repository"
	"github.com/sakif/marketplace-api/internal/repository/postgres"
	"github.com/sakif/marketplace-api/internal/repository/sqlite"
)

// Backend names as reported by Kind.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Kind reports which backend Open would pick for dsn.
// postgres:// and postgresql:// URLs go to PostgreSQL; anything else is a SQLite path.
func Kind(dsn string) string {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return BackendPostgres
	}
	return BackendSQLite
}

// Open connects to the backend for dsn and applies its migrations.
// Migration progress is logged to logger.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (repository.Store, error) {
	goose.SetLogger(migrationLogger{logger: logger})

	// Explicit nil returns keep a failed open from yielding a non-nil
	// interface around a nil pointer.
	if Kind(dsn) == BackendPostgres {
		db, err := postgres.New(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := sqlite.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return db, nil
}
