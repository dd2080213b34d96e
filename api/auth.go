package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/bearer"
	"github.com/shaj13/go-guardian/store"
	"go.uber.org/zap"

	"github.com/moyijulius/crime-report-platform/databases"
	"github.com/moyijulius/crime-report-platform/models"
)

// revocationCacheTTL bounds how long a verified token skips the revocation lookup
const revocationCacheTTL = time.Minute

var (
	// ErrMissingToken is returned when the request carries no bearer token
	ErrMissingToken = errors.New("no bearer token")
	// ErrInvalidToken is returned for malformed, expired or revoked tokens
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims are the JWT claims issued at login
type Claims struct {
	UserID string      `json:"userId"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// HasRole reports whether the claims carry one of roles
func (c *Claims) HasRole(roles ...models.Role) bool {
	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}

// Authenticator issues and verifies the platform's bearer tokens
type Authenticator struct {
	secret   []byte
	ttl      time.Duration
	tokens   databases.TokenDatabase
	strategy auth.Strategy
}

// NewAuthenticator builds an Authenticator. Verified tokens are cached by a
// go-guardian bearer strategy so the revocation collection is only consulted
// once per token per cache period.
func NewAuthenticator(ctx context.Context, secret string, ttl time.Duration, tokens databases.TokenDatabase) *Authenticator {
	a := &Authenticator{
		secret: []byte(secret),
		ttl:    ttl,
		tokens: tokens,
	}
	a.strategy = bearer.New(a.verify, store.NewFIFO(ctx, revocationCacheTTL))
	return a
}

// IssueToken signs a token for user valid for the configured TTL
func (a *Authenticator) IssueToken(user models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: user.ID.Hex(),
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// ParseToken verifies the signature and expiry of a token
func (a *Authenticator) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	return claims, nil
}

// Authenticate resolves the claims of the bearer token presented on r
func (a *Authenticator) Authenticate(r *http.Request) (*Claims, error) {
	raw, ok := BearerToken(r)
	if !ok {
		return nil, ErrMissingToken
	}
	if _, err := a.strategy.Authenticate(r.Context(), r); err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	// cached entries may outlive the token itself
	return a.ParseToken(raw)
}

// Revoke rejects the token presented on r from now until it expires
func (a *Authenticator) Revoke(ctx context.Context, r *http.Request, claims *Claims) error {
	raw, ok := BearerToken(r)
	if !ok {
		return ErrMissingToken
	}
	expiresAt := time.Now().Add(a.ttl)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	err := a.tokens.InsertOne(ctx, models.RevokedToken{
		TokenHash: hashToken(raw),
		UserID:    claims.UserID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	})
	if err != nil && !errors.Is(err, databases.ErrDuplicate) {
		return err
	}
	if err := auth.Revoke(a.strategy, raw, r); err != nil {
		zap.S().Debugw("failed to evict revoked token from cache", "error", err)
	}
	return nil
}

func (a *Authenticator) verify(ctx context.Context, r *http.Request, token string) (auth.Info, error) {
	claims, err := a.ParseToken(token)
	if err != nil {
		return nil, err
	}
	ctx, cancel := WithQueryTimeout(ctx)
	defer cancel()
	revoked, err := a.tokens.IsRevoked(ctx, hashToken(token))
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrInvalidToken
	}
	return auth.NewDefaultUser(claims.UserID, claims.UserID, []string{string(claims.Role)}, nil), nil
}

// BearerToken extracts the token from the Authorization header
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
