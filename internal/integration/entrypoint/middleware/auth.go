// Package middleware provides HTTP middleware for the API endpoints.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/settlement-recon/backend/internal/application/adapter"
	domainerror "github.com/settlement-recon/backend/internal/domain/error"
	"github.com/settlement-recon/backend/internal/integration/entrypoint/dto"
)

// ContextKey is a type for context keys.
type ContextKey string

const (
	// OperatorKey is the context key for the authenticated operator's identity.
	OperatorKey ContextKey = "operator"
	// RoleKey is the context key for the authenticated operator's role.
	RoleKey ContextKey = "role"
)

// AuthMiddleware provides JWT authentication middleware.
type AuthMiddleware struct {
	tokenService adapter.TokenService
}

// NewAuthMiddleware creates a new auth middleware instance.
func NewAuthMiddleware(tokenService adapter.TokenService) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
	}
}

// Authenticate returns a Gin middleware handler that enforces JWT authentication.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error: "Authorization header is required",
				Code:  string(domainerror.ErrCodeMissingToken),
			})
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error: "Invalid authorization header format",
				Code:  string(domainerror.ErrCodeInvalidToken),
			})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error: "Token is required",
				Code:  string(domainerror.ErrCodeMissingToken),
			})
			return
		}

		claims, err := m.tokenService.ValidateAccessToken(c.Request.Context(), token)
		if err != nil {
			code := domainerror.ErrCodeInvalidToken
			message := "Invalid token"
			if errors.Is(err, domainerror.ErrExpiredToken) {
				code = domainerror.ErrCodeExpiredToken
				message = "Token has expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error: message,
				Code:  string(code),
			})
			return
		}

		c.Set(string(OperatorKey), claims.Operator)
		c.Set(string(RoleKey), claims.Role)

		c.Next()
	}
}

// RequireOperator rejects authenticated callers that only hold the viewer role.
// It must run after Authenticate.
func (m *AuthMiddleware) RequireOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get(string(RoleKey))
		if role != adapter.RoleOperator {
			err := domainerror.NewAuthError(domainerror.ErrCodeInsufficientRole, "Operator role is required", domainerror.ErrInsufficientRole)
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusForbidden, dto.ErrorResponse{
				Error: err.Message,
				Code:  string(err.Code),
			})
			return
		}
		c.Next()
	}
}

// GetOperatorFromContext extracts the operator identity from the Gin context.
func GetOperatorFromContext(c *gin.Context) (string, bool) {
	operator, exists := c.Get(string(OperatorKey))
	if !exists {
		return "", false
	}
	name, ok := operator.(string)
	return name, ok && name != ""
}
