// Package postgres implements the repository interfaces on PostgreSQL through
// the pgx database/sql driver. Migrations are embedded and applied with goose.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/sakif/marketplace-api/internal/repository"
)

//go:embed migrations/*.sql
var migrations embed.FS

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

var _ repository.Store = (*DB)(nil)

// DB owns the connection pool and vends the per-collection repositories.
type DB struct {
	conn     *sql.DB
	accounts *AccountDB
	products *ProductDB
}

// New connects to dsn (a postgres:// URL), verifies the connection and runs
// pending migrations.
func New(ctx context.Context, dsn string) (*DB, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: opening database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}

	if err := migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("postgres: running migrations: %w", err)
	}

	return NewWithConn(conn), nil
}

// NewWithConn wraps an already open pool without touching the schema.
func NewWithConn(conn *sql.DB) *DB {
	return &DB{
		conn:     conn,
		accounts: &AccountDB{conn: conn},
		products: &ProductDB{conn: conn},
	}
}

func migrate(ctx context.Context, conn *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	return goose.UpContext(ctx, conn, "migrations")
}

func (db *DB) Accounts() repository.AccountRepository { return db.accounts }

func (db *DB) Products() repository.ProductRepository { return db.products }

func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres: ping: %w", err)
	}
	return nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

type rowScanner interface {
	Scan(dest ...any) error
}
