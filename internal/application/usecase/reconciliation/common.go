// Package reconciliation contains settlement reconciliation use cases.
package reconciliation

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/settlement-recon/backend/internal/application/adapter"
	domainerror "github.com/settlement-recon/backend/internal/domain/error"
)

var tracer = otel.Tracer("github.com/settlement-recon/backend/reconciliation")

// Lock key prefixes for per-entity serialization.
const (
	transactionLockPrefix = "recon:lock:transaction:"
	exceptionLockPrefix   = "recon:lock:exception:"
)

// acquireLock takes the per-entity lock, mapping a timeout to a coded state error.
func acquireLock(ctx context.Context, locker adapter.EntityLocker, key string) (func(), error) {
	release, err := locker.Lock(ctx, key)
	if err == nil {
		return release, nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		errors.Is(err, domainerror.ErrLockNotAcquired) {
		return nil, domainerror.NewReconciliationError(
			domainerror.ErrCodeLockNotAcquired,
			"another operation holds the lock for "+key,
			domainerror.ErrLockNotAcquired,
		)
	}
	return nil, err
}

// utcNow is the default clock.
func utcNow() time.Time {
	return time.Now().UTC()
}
