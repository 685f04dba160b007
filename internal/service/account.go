package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/marketplace-api/internal/apperror"
	"github.com/sakif/marketplace-api/internal/auth"
	"github.com/sakif/marketplace-api/internal/model"
	"github.com/sakif/marketplace-api/internal/repository"
)

// AccountService manages existing accounts. Creating one goes through
// AuthService.Register.
//
// With enforceOwnership off (the default) any authenticated caller may update
// or delete any account by id, matching the behaviour existing clients rely
// on. With it on, only the account itself may.
type AccountService struct {
	accounts         repository.AccountRepository
	products         repository.ProductRepository
	passwords        *auth.PasswordService
	enforceOwnership bool
	logger           *slog.Logger
}

func NewAccountService(
	accounts repository.AccountRepository,
	products repository.ProductRepository,
	passwords *auth.PasswordService,
	enforceOwnership bool,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		accounts:         accounts,
		products:         products,
		passwords:        passwords,
		enforceOwnership: enforceOwnership,
		logger:           logger,
	}
}

// List returns every account. Hashes are on the structs but never serialised.
func (s *AccountService) List(ctx context.Context) ([]model.Account, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/account: listing: %w", err)
	}
	return accounts, nil
}

func (s *AccountService) GetByID(ctx context.Context, id string) (*model.Account, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperror.ValidationFailed("id", "account id is required")
	}
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/account: getting %s: %w", id, err)
	}
	return account, nil
}

// Profile returns the caller's account together with every product they own.
func (s *AccountService) Profile(ctx context.Context, caller *model.Account) (*model.Account, []model.Product, error) {
	// Re-read so the profile reflects writes made since the guard resolved it.
	account, err := s.GetByID(ctx, caller.ID)
	if err != nil {
		return nil, nil, err
	}

	products, err := s.products.List(ctx, repository.ProductFilter{OwnerID: account.ID})
	if err != nil {
		return nil, nil, fmt.Errorf("service/account: listing products of %s: %w", account.ID, err)
	}
	return account, products, nil
}

// Update applies patch to the account with the given id.
func (s *AccountService) Update(ctx context.Context, caller *model.Account, id string, patch model.AccountPatch) (*model.Account, error) {
	if s.enforceOwnership && caller.ID != id {
		s.logger.Warn("account update refused",
			slog.String("callerID", caller.ID),
			slog.String("targetID", id),
		)
		return nil, apperror.Forbidden("you can only modify your own account")
	}
	return s.update(ctx, id, patch)
}

// UpdateMe applies patch to the caller's own account.
func (s *AccountService) UpdateMe(ctx context.Context, caller *model.Account, patch model.AccountPatch) (*model.Account, error) {
	return s.update(ctx, caller.ID, patch)
}

func (s *AccountService) update(ctx context.Context, id string, patch model.AccountPatch) (*model.Account, error) {
	account, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		if account.Name, err = requiredString("nombre", *patch.Name); err != nil {
			return nil, err
		}
	}
	if patch.Email != nil {
		if account.Email, err = requiredString("correo", *patch.Email); err != nil {
			return nil, err
		}
	}
	if patch.Phone != nil {
		if account.Phone, err = requiredString("telefono", *patch.Phone); err != nil {
			return nil, err
		}
	}
	if patch.Address != nil {
		account.Address = strings.TrimSpace(*patch.Address)
	}
	// Only a supplied password is re-hashed. An empty one is a mistake,
	// not a request to clear it.
	if patch.Password != nil {
		if *patch.Password == "" {
			return nil, apperror.ValidationFailed("contraseña", "contraseña must not be empty")
		}
		if account.PasswordHash, err = hashPassword(s.passwords, *patch.Password); err != nil {
			return nil, err
		}
	}

	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("service/account: updating %s: %w", id, err)
	}

	s.logger.Info("account updated",
		slog.String("accountID", id),
		slog.Bool("passwordChanged", patch.Password != nil),
	)
	return account, nil
}

// Delete removes the account (and its products) and returns what was deleted.
// Tokens issued to it stop working on the next request.
func (s *AccountService) Delete(ctx context.Context, caller *model.Account, id string) (*model.Account, error) {
	if s.enforceOwnership && caller.ID != id {
		s.logger.Warn("account delete refused",
			slog.String("callerID", caller.ID),
			slog.String("targetID", id),
		)
		return nil, apperror.Forbidden("you can only delete your own account")
	}

	account, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("service/account: deleting %s: %w", id, err)
	}

	s.logger.Info("account deleted", slog.String("accountID", id))
	return account, nil
}
