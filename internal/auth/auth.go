// Package auth resolves storefront user identities from the bearer tokens
// issued by the hosted auth platform.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMissingCredential = errors.New("missing bearer credential")
	ErrInvalidCredential = errors.New("invalid bearer credential")
)

// Identity is the authenticated caller resolved from an access token.
type Identity struct {
	UserID uuid.UUID
	Email  string
}

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 access tokens against the platform's shared secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) (*Verifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("auth secret is required")
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// VerifyToken parses and validates an access token and returns the caller's
// identity. The token subject must be the platform user id.
func (v *Verifier) VerifyToken(tokenString string) (Identity, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return Identity{}, ErrMissingCredential
	}

	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if !token.Valid {
		return Identity{}, ErrInvalidCredential
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: subject is not a user id", ErrInvalidCredential)
	}

	return Identity{UserID: userID, Email: claims.Email}, nil
}

// VerifyAuthorizationHeader resolves an identity from an HTTP Authorization
// header value of the form "Bearer <token>".
func (v *Verifier) VerifyAuthorizationHeader(header string) (Identity, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return Identity{}, ErrMissingCredential
	}

	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return Identity{}, ErrInvalidCredential
	}
	return v.VerifyToken(header[len(prefix):])
}

type identityContextKey struct{}

// WithIdentity returns a context carrying the authenticated identity.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext returns the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	identity, ok := ctx.Value(identityContextKey{}).(Identity)
	return identity, ok
}
