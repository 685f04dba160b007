package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/marketplace-api/internal/apperror"
	"github.com/sakif/marketplace-api/internal/auth"
	"github.com/sakif/marketplace-api/internal/model"
	"github.com/sakif/marketplace-api/internal/repository"
)

// invalidCredentialsMessage is the only thing a failed login tells the client.
// Unknown correo and wrong contraseña look the same from outside.
const invalidCredentialsMessage = "invalid credentials"

// AuthService verifies credentials and registers new accounts.
type AuthService struct {
	accounts  repository.AccountRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger

	// dummyHash is compared against when the correo is unknown, so a miss
	// costs one bcrypt comparison just like a wrong password.
	dummyHash string
}

func NewAuthService(
	accounts repository.AccountRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) (*AuthService, error) {
	dummy, err := passwords.Hash("marketplace-api-login-timing-pad")
	if err != nil {
		return nil, fmt.Errorf("service/auth: preparing dummy hash: %w", err)
	}
	return &AuthService{
		accounts:  accounts,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
		dummyHash: dummy,
	}, nil
}

// AuthResult is what a successful login hands back to the client.
type AuthResult struct {
	Token   string
	Account model.SessionAccount
}

// Registration is the input to Register. Address is optional.
type Registration struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Address  string
}

// Login checks email + password and issues a one-hour token.
//
//  1. Both fields must be present (400 otherwise)
//  2. Exactly one account must match the email (exact, case-sensitive)
//  3. bcrypt must accept the password
//
// Failures in 2 and 3 both return apperror.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if email == "" {
		return nil, apperror.ValidationFailed("correo", "correo is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("contraseña", "contraseña is required")
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("service/auth: looking up account: %w", err)
		}
		_ = s.passwords.Verify(s.dummyHash, password)
		s.logger.Info("login failed", slog.String("reason", "unknown correo"))
		return nil, apperror.Unauthorized(apperror.ErrInvalidCredentials, invalidCredentialsMessage)
	}

	if err := s.passwords.Verify(account.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Error("stored password hash unreadable",
				slog.String("accountID", account.ID),
				slog.String("error", err.Error()),
			)
		}
		s.logger.Info("login failed", slog.String("reason", "wrong password"), slog.String("accountID", account.ID))
		return nil, apperror.Unauthorized(apperror.ErrInvalidCredentials, invalidCredentialsMessage)
	}

	token, err := s.tokens.Generate(account.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for %s: %w", account.ID, err)
	}

	s.logger.Info("account logged in", slog.String("accountID", account.ID))
	return &AuthResult{Token: token, Account: account.Session()}, nil
}

// Register creates a new account with a freshly hashed password.
// A taken email returns apperror.ErrDuplicateIdentifier and stores nothing.
func (s *AuthService) Register(ctx context.Context, reg Registration) (*model.Account, error) {
	name, err := requiredString("nombre", reg.Name)
	if err != nil {
		return nil, err
	}
	email := strings.TrimSpace(reg.Email)
	if email == "" {
		return nil, apperror.ValidationFailed("correo", "correo is required")
	}
	if reg.Password == "" {
		return nil, apperror.ValidationFailed("contraseña", "contraseña is required")
	}
	phone, err := requiredString("telefono", reg.Phone)
	if err != nil {
		return nil, err
	}

	// Checked up front for a clean message. The UNIQUE index still catches
	// a concurrent registration of the same email.
	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, apperror.Duplicate("correo", email)
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: checking correo: %w", err)
	}

	hash, err := hashPassword(s.passwords, reg.Password)
	if err != nil {
		return nil, err
	}

	account := &model.Account{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Phone:        phone,
		Address:      strings.TrimSpace(reg.Address),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("service/auth: creating account: %w", err)
	}

	s.logger.Info("account registered", slog.String("accountID", account.ID))
	return account, nil
}

func hashPassword(passwords *auth.PasswordService, plaintext string) (string, error) {
	hash, err := passwords.Hash(plaintext)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return "", apperror.ValidationFailed("contraseña", "contraseña must be 72 bytes or fewer")
		}
		return "", fmt.Errorf("service: hashing password: %w", err)
	}
	return hash, nil
}
