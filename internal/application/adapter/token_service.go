package adapter

import (
	"context"
	"time"
)

// Operator roles. Viewers read; operators also run reconciliations and resolve exceptions.
const (
	RoleViewer   = "viewer"
	RoleOperator = "operator"
)

// TokenClaims represents the claims contained in an operator token.
type TokenClaims struct {
	Operator  string
	Role      string
	ExpiresAt time.Time
}

// TokenService defines the interface for operator token operations.
type TokenService interface {
	// IssueToken signs a token for the operator, valid for ttl.
	IssueToken(operator, role string, ttl time.Duration) (string, error)

	// ValidateAccessToken validates a token and returns its claims.
	ValidateAccessToken(ctx context.Context, token string) (*TokenClaims, error)
}
