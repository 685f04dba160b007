// Package sqlite implements the repository interfaces on an embedded SQLite
// database.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary needs
// no C toolchain. The database is a single file (or ":memory:").
//
// DATABASE/SQL RECAP:
//   - sql.DB   is a connection pool, not a single connection
//   - sql.Row  is a single result row (Scan returns sql.ErrNoRows when empty)
//   - sql.Rows must always be closed
//
// Schema changes live in migrations/*.sql and are applied with goose on open.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/marketplace-api/internal/repository"
)

//go:embed migrations/*.sql
var migrations embed.FS

// compile-time check that *DB implements repository.Store
var _ repository.Store = (*DB)(nil)

// DB wraps the sql.DB pool and vends the per-collection repositories.
type DB struct {
	conn     *sql.DB
	accounts *AccountDB
	products *ProductDB
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/marketplace.db" → file-based database
//   - ":memory:"            → in-memory database, lost on close
func New(ctx context.Context, dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", withPragmas(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every new connection to ":memory:" is a brand-new empty database, so
	// the pool must never grow past one.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in progress.
	if _, err := conn.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if err := migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return &DB{
		conn:     conn,
		accounts: &AccountDB{conn: conn},
		products: &ProductDB{conn: conn},
	}, nil
}

// withPragmas appends per-connection pragmas to the DSN.
//
// PRAGMA foreign_keys is connection-scoped and sql.DB may open several
// connections, so it has to ride on the DSN rather than a one-off Exec.
// products.owner_id relies on it for ON DELETE CASCADE.
func withPragmas(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func migrate(ctx context.Context, conn *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	return goose.UpContext(ctx, conn, "migrations")
}

// Accounts returns the account collection.
func (db *DB) Accounts() repository.AccountRepository { return db.accounts }

// Products returns the product collection.
func (db *DB) Products() repository.ProductRepository { return db.products }

// Ping checks that the database file is still reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// Close closes the connection pool. Defer it right after New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// isUniqueViolation reports whether err is a UNIQUE / PRIMARY KEY constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
