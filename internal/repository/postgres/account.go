package postgres

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

var _ repository.AccountRepository = (*AccountDB)(nil)

type AccountDB struct {
	conn *sql.DB
}

const accountColumns = `id, name, email, password_hash, phone, address, created_at, updated_at`

func (a *AccountDB) Create(ctx context.Context, account *model.Account) error {
	now := time.Now().UTC()
	account.ID = xid.New().String()
	account.CreatedAt = now
	account.UpdatedAt = now

	_, err := a.conn.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		account.ID, account.Name, account.Email, account.PasswordHash,
		account.Phone, account.Address, account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Duplicate("correo", account.Email)
		}
		return fmt.Errorf("postgres: inserting account: %w", err)
	}
	return nil
}

func (a *AccountDB) GetByID(ctx context.Context, id string) (*model.Account, error) {
	account, err := scanAccount(a.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("account", id)
		}
		return nil, fmt.Errorf("postgres: getting account %s: %w", id, err)
	}
	return account, nil
}

func (a *AccountDB) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	account, err := scanAccount(a.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &apperror.AppError{
				Err:     apperror.ErrNotFound,
				Message: fmt.Sprintf("account not found with correo %s", email),
			}
		}
		return nil, fmt.Errorf("postgres: getting account by email: %w", err)
	}
	return account, nil
}

func (a *AccountDB) List(ctx context.Context) ([]model.Account, error) {
	rows, err := a.conn.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]model.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scanning account row: %w", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating account rows: %w", err)
	}
	return accounts, nil
}

func (a *AccountDB) Update(ctx context.Context, account *model.Account) error {
	account.UpdatedAt = time.Now().UTC()

	result, err := a.conn.ExecContext(ctx,
		`UPDATE accounts
		 SET name = $1, email = $2, password_hash = $3, phone = $4, address = $5, updated_at = $6
		 WHERE id = $7`,
		account.Name, account.Email, account.PasswordHash, account.Phone,
		account.Address, account.UpdatedAt, account.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Duplicate("correo", account.Email)
		}
		return fmt.Errorf("postgres: updating account %s: %w", account.ID, err)
	}
	return expectOneRow(result, "account", account.ID)
}

// Delete removes the account; products follow through ON DELETE CASCADE.
func (a *AccountDB) Delete(ctx context.Context, id string) error {
	result, err := a.conn.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: deleting account %s: %w", id, err)
	}
	return expectOneRow(result, "account", id)
}

func scanAccount(row rowScanner) (*model.Account, error) {
	var acc model.Account
	if err := row.Scan(&acc.ID, &acc.Name, &acc.Email, &acc.PasswordHash,
		&acc.Phone, &acc.Address, &acc.CreatedAt, &acc.UpdatedAt); err != nil {
		return nil, err
	}
	return &acc, nil
}

// expectOneRow turns "no rows touched" into a NotFound for resource/id.
func expectOneRow(result sql.Result, resource, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
