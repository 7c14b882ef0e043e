// Package auth verifies the bearer tokens issued by the identity service.
// Tokens are only read here: issuing, refresh and revocation live with the
// identity service.
package auth

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/coopmarket/backend/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// RoleAdmin may move orders through their lifecycle and operate the outbox
const RoleAdmin = "admin"

// leeway tolerates clock skew between the identity service and this one
const leeway = 30 * time.Second

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrInvalidClaims = errors.New("invalid token claims")
)

// Claims are the claims of an access token. The subject is the buyer id.
type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles,omitempty"`
}

// BuyerID parses the subject claim
func (c *Claims) BuyerID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: subject is not a buyer id", ErrInvalidClaims)
	}
	return id, nil
}

// HasRole reports whether the token grants role
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// TokenVerifier validates HS256 access tokens
type TokenVerifier struct {
	secret []byte
	issuer string
}

// NewTokenVerifier creates a verifier for tokens signed with cfg.Secret. When
// cfg.Issuer is set the iss claim must match it.
func NewTokenVerifier(cfg config.JWTConfig) *TokenVerifier {
	return &TokenVerifier{secret: []byte(cfg.Secret), issuer: cfg.Issuer}
}

// Verify checks signature, expiry and issuer and returns the claims
func (v *TokenVerifier) Verify(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(leeway),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if _, err := claims.BuyerID(); err != nil {
		return nil, err
	}
	return claims, nil
}

// Sign issues a token for buyerID. Production tokens come from the identity
// service; this is for local tooling and tests sharing the secret.
func (v *TokenVerifier) Sign(buyerID uuid.UUID, roles []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    v.issuer,
			Subject:   buyerID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Roles: roles,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
