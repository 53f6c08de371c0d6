package adapters_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/settlement-recon/backend/internal/application/adapter"
	domainerror "github.com/settlement-recon/backend/internal/domain/error"
	"github.com/settlement-recon/backend/internal/integration/adapters"
)

func TestTokenService(t *testing.T) {
	service := adapters.NewTokenService("test-secret")

	token, err := service.IssueToken("ops@example.com", adapter.RoleOperator, time.Hour)
	require.NoError(t, err)

	claims, err := service.ValidateAccessToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Operator)
	assert.Equal(t, adapter.RoleOperator, claims.Role)
	assert.True(t, claims.ExpiresAt.After(time.Now()))

	tests := []struct {
		name     string
		token    func(t *testing.T) string
		wantCode domainerror.AuthErrorCode
	}{
		{
			name: "expired",
			token: func(t *testing.T) string {
				tok, err := service.IssueToken("ops@example.com", adapter.RoleViewer, -time.Minute)
				require.NoError(t, err)
				return tok
			},
			wantCode: domainerror.ErrCodeExpiredToken,
		},
		{
			name: "other secret",
			token: func(t *testing.T) string {
				tok, err := adapters.NewTokenService("other").IssueToken("ops@example.com", adapter.RoleViewer, time.Hour)
				require.NoError(t, err)
				return tok
			},
			wantCode: domainerror.ErrCodeInvalidToken,
		},
		{
			name:     "garbage",
			token:    func(*testing.T) string { return "not.a.token" },
			wantCode: domainerror.ErrCodeInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.ValidateAccessToken(context.Background(), tt.token(t))
			var authErr *domainerror.AuthError
			require.True(t, errors.As(err, &authErr))
			assert.Equal(t, tt.wantCode, authErr.Code)
		})
	}

	_, err = service.IssueToken("", adapter.RoleViewer, time.Hour)
	assert.Error(t, err)
}

func TestSnowflakeEntryNumbers(t *testing.T) {
	gen, err := adapters.NewSnowflakeEntryNumbers(7)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		n := gen.Next("RET")
		assert.True(t, strings.HasPrefix(n, "RET-"))
		assert.False(t, seen[n], "duplicate entry number %s", n)
		seen[n] = true
	}

	_, err = adapters.NewSnowflakeEntryNumbers(5000)
	assert.Error(t, err)
}
