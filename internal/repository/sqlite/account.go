package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/marketplace-api/internal/apperror"
	"github.com/sakif/marketplace-api/internal/model"
	"github.com/sakif/marketplace-api/internal/repository"
)

// compile-time check that *AccountDB implements repository.AccountRepository
var _ repository.AccountRepository = (*AccountDB)(nil)

// AccountDB handles account persistence. It shares the connection pool owned by DB.
type AccountDB struct {
	conn *sql.DB
}

const accountColumns = `id, name, email, password_hash, phone, address, created_at, updated_at`

// Create inserts a new account. ID and timestamps are set on the passed struct.
// A taken email comes back as apperror.ErrDuplicateIdentifier.
func (a *AccountDB) Create(ctx context.Context, account *model.Account) error {
	now := time.Now().UTC()
	account.ID = xid.New().String()
	account.CreatedAt = now
	account.UpdatedAt = now

	_, err := a.conn.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.Name,
		account.Email,
		account.PasswordHash,
		account.Phone,
		account.Address,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Duplicate("correo", account.Email)
		}
		return fmt.Errorf("sqlite: inserting account: %w", err)
	}
	return nil
}

// GetByID returns apperror.ErrNotFound if no account has that id.
func (a *AccountDB) GetByID(ctx context.Context, id string) (*model.Account, error) {
	row := a.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("account", id)
		}
		return nil, fmt.Errorf("sqlite: getting account %s: %w", id, err)
	}
	return account, nil
}

// GetByEmail looks an account up by its login identifier (exact match).
func (a *AccountDB) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	row := a.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &apperror.AppError{
				Err:     apperror.ErrNotFound,
				Message: fmt.Sprintf("account not found with correo %s", email),
			}
		}
		return nil, fmt.Errorf("sqlite: getting account by email: %w", err)
	}
	return account, nil
}

// List returns every account, oldest first.
func (a *AccountDB) List(ctx context.Context) ([]model.Account, error) {
	rows, err := a.conn.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing accounts: %w", err)
	}
	defer rows.Close()

	// Non-nil so an empty table encodes as [] rather than null.
	accounts := make([]model.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning account row: %w", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating account rows: %w", err)
	}
	return accounts, nil
}

// Update overwrites every mutable column of the account and bumps UpdatedAt.
func (a *AccountDB) Update(ctx context.Context, account *model.Account) error {
	account.UpdatedAt = time.Now().UTC()

	result, err := a.conn.ExecContext(ctx,
		`UPDATE accounts
		 SET name = ?, email = ?, password_hash = ?, phone = ?, address = ?, updated_at = ?
		 WHERE id = ?`,
		account.Name,
		account.Email,
		account.PasswordHash,
		account.Phone,
		account.Address,
		account.UpdatedAt,
		account.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Duplicate("correo", account.Email)
		}
		return fmt.Errorf("sqlite: updating account %s: %w", account.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("account", account.ID)
	}
	return nil
}

// Delete removes the account. Its products go with it (ON DELETE CASCADE).
func (a *AccountDB) Delete(ctx context.Context, id string) error {
	result, err := a.conn.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting account %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("account", id)
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*model.Account, error) {
	var acc model.Account
	err := row.Scan(
		&acc.ID,
		&acc.Name,
		&acc.Email,
		&acc.PasswordHash,
		&acc.Phone,
		&acc.Address,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}
