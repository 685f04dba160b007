// Package auth issues and verifies session tokens, hashes passwords and guards
// routes that need a logged-in account.
//
// TOKEN FLOW:
//  1. POST /api/auth/login checks correo + contraseña and returns a signed JWT
//  2. The client sends it back as "Authorization: Bearer <token>"
//  3. The Guard verifies signature and expiry, then loads the account the
//     token names. Deleting an account therefore invalidates its tokens even
//     though they are still cryptographically valid.
//
// JWT STRUCTURE:
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header:  {"alg":"HS256","typ":"JWT"}
//	- Payload: {"correo":"ana@x.com","sub":"ana@x.com","iss":"marketplace-api","exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secret)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is the fixed lifetime of every issued token. There is no refresh.
const TokenTTL = time.Hour

const issuer = "marketplace-api"

// MinSecretLength is the shortest signing secret NewTokenService accepts.
const MinSecretLength = 16

// TokenService signs and verifies HS256 tokens with a single shared secret.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("auth: JWT secret must be at least %d characters", MinSecretLength)
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims is the JWT payload.
//
// Email carries the login identifier under "correo", the claim name existing
// clients decode. The same value goes in "sub".
type claims struct {
	Email string `json:"correo"`
	jwt.RegisteredClaims
}

// Generate signs a token for the given login identifier, valid for TokenTTL.
func (s *TokenService) Generate(email string) (string, error) {
	return s.GenerateWithDuration(email, TokenTTL)
}

// GenerateWithDuration signs a token with a custom lifetime.
// Tests use a negative duration to mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(email string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// ErrTokenExpired is returned by Validate for a well-signed token past its expiry.
var ErrTokenExpired = errors.New("auth: token expired")

// Validate verifies signature, algorithm, issuer and expiry and returns the
// login identifier the token was issued for.
//
// Pinning the method list to HS256 blocks "alg":"none" and RS/HS confusion.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", errors.New("auth: invalid token claims")
	}

	email := c.Email
	if email == "" {
		email = c.Subject
	}
	if email == "" {
		return "", errors.New("auth: token has no subject")
	}
	return email, nil
}
