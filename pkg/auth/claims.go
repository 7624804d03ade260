// Package auth provides JWT-based authentication for delphi-engine.
// It validates bearer tokens issued by the identity provider using JWKS endpoints.
package auth

import (
	"context"
	"fmt"
	"slices"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing JWT claims.
	ClaimsKey contextKey = "claims"
	// TokenKey is the context key for storing the raw JWT token string.
	TokenKey contextKey = "token"
)

// RoleMaster marks panel administrators. Masters create cases, assign
// experts, tune thresholds and trigger round analyses.
const RoleMaster = "master"

// Claims represents the JWT claims structure issued by the identity provider.
// The subject is the user's UUID; roles carry panel permissions.
type Claims struct {
	jwt.RegisteredClaims
	Email    string   `json:"email,omitempty"` // User email address
	FullName string   `json:"name,omitempty"`  // Display name
	Roles    []string `json:"roles,omitempty"` // Panel roles ("master", "expert")
}

// HasRole reports whether the claims carry the given role.
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// GetClaims retrieves JWT claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// GetToken retrieves the raw JWT token string from the request context.
// Returns empty string and false if token is not present.
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}

// UserIDFromContext extracts the authenticated user's UUID from JWT claims
// in context. Returns error if not authenticated or the subject is malformed.
func UserIDFromContext(ctx context.Context) (uuid.UUID, error) {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return uuid.Nil, fmt.Errorf("authentication required: no claims in context")
	}

	if claims.Subject == "" {
		return uuid.Nil, fmt.Errorf("missing subject in JWT claims")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid subject format: %w", err)
	}

	return userID, nil
}
