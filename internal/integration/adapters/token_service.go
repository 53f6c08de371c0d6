// Package adapters implements adapter interfaces from the application layer.
package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/settlement-recon/backend/internal/application/adapter"
	domainerror "github.com/settlement-recon/backend/internal/domain/error"
)

const tokenIssuer = "settlement-recon"

// OperatorClaims represents the custom claims for operator tokens.
type OperatorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// tokenService implements the adapter.TokenService interface.
type tokenService struct {
	secret []byte
}

// NewTokenService creates a new token service instance.
func NewTokenService(secret string) adapter.TokenService {
	return &tokenService{
		secret: []byte(secret),
	}
}

// IssueToken signs a token identifying the operator.
func (s *tokenService) IssueToken(operator, role string, ttl time.Duration) (string, error) {
	if operator == "" {
		return "", fmt.Errorf("operator identity is required")
	}

	now := time.Now().UTC()
	claims := OperatorClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   operator,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateAccessToken validates a token and returns its claims.
func (s *tokenService) ValidateAccessToken(_ context.Context, tokenString string) (*adapter.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &OperatorClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domainerror.NewAuthError(domainerror.ErrCodeExpiredToken, "token has expired", domainerror.ErrExpiredToken)
		}
		return nil, domainerror.NewAuthError(domainerror.ErrCodeInvalidToken, "failed to parse token", errors.Join(domainerror.ErrInvalidToken, err))
	}

	claims, ok := token.Claims.(*OperatorClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, domainerror.NewAuthError(domainerror.ErrCodeInvalidToken, "invalid token claims", domainerror.ErrInvalidToken)
	}

	return &adapter.TokenClaims{
		Operator:  claims.Subject,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
