package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/marketplace-api/internal/apperror"
	"github.com/sakif/marketplace-api/internal/model"
)

// contextKey is unexported so no other package can read or shadow our values.
type contextKey string

const accountKey contextKey = "account"

// AccountFinder resolves the login identifier carried by a token.
// repository.AccountRepository satisfies it.
type AccountFinder interface {
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
}

// RejectFunc writes the response for a request the Guard turned away.
type RejectFunc func(w http.ResponseWriter, r *http.Request, err error)

// Guard decides, per request, whether the caller is a live account.
//
// Each request walks the same steps and stops at the first failure:
//
//	ExtractHeader            no Authorization header      → ErrMissingToken
//	ExtractToken             not "Bearer <token>"         → ErrMalformedToken
//	VerifySignatureAndExpiry bad signature, expired, ...  → ErrInvalidToken
//	ResolveAccount           no account for the identifier → ErrAccountNotFound
//	Authorize                account attached to the request context
//
// All four rejections map to 401.
type Guard struct {
	tokens   *TokenService
	accounts AccountFinder
	logger   *slog.Logger
}

func NewGuard(tokens *TokenService, accounts AccountFinder, logger *slog.Logger) *Guard {
	return &Guard{tokens: tokens, accounts: accounts, logger: logger}
}

// Authenticate runs the steps above for r and returns the resolved account.
// A store failure while resolving the account is returned as-is (a 500, not a 401).
func (g *Guard) Authenticate(r *http.Request) (*model.Account, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, apperror.Unauthorized(apperror.ErrMissingToken, "authorization token is required")
	}

	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return nil, apperror.Unauthorized(apperror.ErrMalformedToken, "authorization header must be 'Bearer <token>'")
	}

	email, err := g.tokens.Validate(token)
	if err != nil {
		return nil, apperror.Unauthorized(apperror.ErrInvalidToken, "invalid or expired token")
	}

	account, err := g.accounts.GetByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(apperror.ErrAccountNotFound, "account for this token no longer exists")
		}
		return nil, fmt.Errorf("auth: resolving token account: %w", err)
	}

	return account, nil
}

// RequireAuth is the middleware form of Authenticate.
//
// On success the account is stored in the request context (read it with
// AccountFromContext). On failure reject writes the response and the chain stops.
func (g *Guard) RequireAuth(reject RejectFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account, err := g.Authenticate(r)
			if err != nil {
				if errors.Is(err, apperror.ErrUnauthorized) {
					// never log the token itself
					g.logger.Warn("request rejected",
						"reason", rejectionReason(err),
						"method", r.Method,
						"path", r.URL.Path,
					)
				}
				reject(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), accountKey, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccountFromContext returns the account RequireAuth attached to ctx.
// ok is false on routes that are not behind the guard.
func AccountFromContext(ctx context.Context) (*model.Account, bool) {
	account, ok := ctx.Value(accountKey).(*model.Account)
	return account, ok && account != nil
}

// WithAccount returns a copy of ctx carrying account. Handler tests use it to
// skip the token round trip.
func WithAccount(ctx context.Context, account *model.Account) context.Context {
	return context.WithValue(ctx, accountKey, account)
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, apperror.ErrMissingToken):
		return "MissingToken"
	case errors.Is(err, apperror.ErrMalformedToken):
		return "MalformedToken"
	case errors.Is(err, apperror.ErrInvalidToken):
		return "InvalidOrExpiredToken"
	case errors.Is(err, apperror.ErrAccountNotFound):
		return "AccountNotFound"
	default:
		return "Unauthorized"
	}
}
