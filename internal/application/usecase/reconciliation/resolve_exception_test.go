package reconciliation

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/settlement-recon/backend/internal/domain/entity"
	domainerror "github.com/settlement-recon/backend/internal/domain/error"
)

func openException() *entity.Exception {
	return &entity.Exception{
		ID:              uuid.New(),
		Type:            entity.ExceptionUnmatchedTransaction,
		Severity:        entity.SeverityHigh,
		TransactionID:   "txn_open",
		Amount:          decimal.NewFromInt(2500),
		Date:            day(2024, time.November, 3),
		SuggestedAction: entity.ActionCreateEntry,
	}
}

func TestResolveException(t *testing.T) {
	ctx := context.Background()

	t.Run("second resolution is rejected and the first is kept", func(t *testing.T) {
		exc := openException()
		repo := newFakeExceptions(exc)
		uc := NewResolveExceptionUseCase(repo, newKeyedLocker(), nil)

		resolved, err := uc.Execute(ctx, ResolveExceptionInput{
			ExceptionID: exc.ID,
			Action:      entity.ActionCreateEntry,
			Notes:       "posted JE-100",
			Resolver:    "alice",
		})
		require.NoError(t, err)
		assert.True(t, resolved.Resolved)
		require.NotNil(t, resolved.ResolvedAt)

		_, err = uc.Execute(ctx, ResolveExceptionInput{
			ExceptionID: exc.ID,
			Action:      entity.ActionIgnore,
			Notes:       "not needed",
			Resolver:    "bob",
		})
		require.ErrorIs(t, err, domainerror.ErrInvalidState)
		require.ErrorIs(t, err, domainerror.ErrExceptionAlreadyResolved)

		stored, err := repo.GetByID(ctx, exc.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", stored.ResolvedBy)
		assert.Equal(t, entity.ActionCreateEntry, stored.ResolutionAction)
		assert.Equal(t, "posted JE-100", stored.Notes)
		assert.Equal(t, *resolved.ResolvedAt, *stored.ResolvedAt)
	})

	t.Run("unknown exception is a state error", func(t *testing.T) {
		uc := NewResolveExceptionUseCase(newFakeExceptions(), newKeyedLocker(), nil)

		_, err := uc.Execute(ctx, ResolveExceptionInput{ExceptionID: uuid.New(), Action: entity.ActionIgnore, Resolver: "alice"})

		require.ErrorIs(t, err, domainerror.ErrInvalidState)
		require.ErrorIs(t, err, domainerror.ErrExceptionNotFound)
	})

	t.Run("validation", func(t *testing.T) {
		exc := openException()
		uc := NewResolveExceptionUseCase(newFakeExceptions(exc), newKeyedLocker(), nil)

		tests := []struct {
			name  string
			input ResolveExceptionInput
			want  domainerror.ReconciliationErrorCode
		}{
			{
				name:  "unknown action",
				input: ResolveExceptionInput{ExceptionID: exc.ID, Action: "delete", Resolver: "alice"},
				want:  domainerror.ErrCodeInvalidResolutionAction,
			},
			{
				name:  "missing resolver",
				input: ResolveExceptionInput{ExceptionID: exc.ID, Action: entity.ActionIgnore, Resolver: "  "},
				want:  domainerror.ErrCodeMissingResolver,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := uc.Execute(ctx, tt.input)

				var recErr *domainerror.ReconciliationError
				require.ErrorAs(t, err, &recErr)
				assert.Equal(t, tt.want, recErr.Code)
			})
		}
	})

	t.Run("concurrent resolutions have exactly one winner", func(t *testing.T) {
		exc := openException()
		uc := NewResolveExceptionUseCase(newFakeExceptions(exc), newKeyedLocker(), nil)

		var wins, rejections atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := uc.Execute(ctx, ResolveExceptionInput{ExceptionID: exc.ID, Action: entity.ActionIgnore, Resolver: "ops"})
				if err == nil {
					wins.Add(1)
					return
				}
				if assert.ErrorIs(t, err, domainerror.ErrExceptionAlreadyResolved) {
					rejections.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), wins.Load())
		assert.Equal(t, int32(7), rejections.Load())
	})

	t.Run("lock timeout is reported as a state error", func(t *testing.T) {
		exc := openException()
		locker := newKeyedLocker()
		uc := NewResolveExceptionUseCase(newFakeExceptions(exc), locker, nil)

		release, err := locker.Lock(ctx, exceptionLockPrefix+exc.ID.String())
		require.NoError(t, err)
		defer release()

		timeoutCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()

		_, err = uc.Execute(timeoutCtx, ResolveExceptionInput{ExceptionID: exc.ID, Action: entity.ActionIgnore, Resolver: "ops"})

		require.ErrorIs(t, err, domainerror.ErrLockNotAcquired)
		assert.ErrorIs(t, err, domainerror.ErrInvalidState)
	})
}
