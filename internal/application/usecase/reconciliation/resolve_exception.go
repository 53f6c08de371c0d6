package reconciliation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/settlement-recon/backend/internal/application/adapter"
	"github.com/settlement-recon/backend/internal/domain/entity"
	domainerror "github.com/settlement-recon/backend/internal/domain/error"
)

// ResolveExceptionInput represents the input for resolving an exception.
type ResolveExceptionInput struct {
	ExceptionID uuid.UUID
	Action      entity.SuggestedAction
	Notes       string
	Resolver    string
}

// ResolveExceptionUseCase handles closing an open exception.
type ResolveExceptionUseCase struct {
	exceptionRepo adapter.ExceptionRepository
	locker        adapter.EntityLocker
	logger        *zap.Logger
	now           func() time.Time
}

// NewResolveExceptionUseCase creates a new ResolveExceptionUseCase instance.
func NewResolveExceptionUseCase(
	exceptionRepo adapter.ExceptionRepository,
	locker adapter.EntityLocker,
	logger *zap.Logger,
) *ResolveExceptionUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResolveExceptionUseCase{
		exceptionRepo: exceptionRepo,
		locker:        locker,
		logger:        logger,
		now:           utcNow,
	}
}

// Execute resolves the exception. An exception is resolved at most once.
func (uc *ResolveExceptionUseCase) Execute(ctx context.Context, input ResolveExceptionInput) (*entity.Exception, error) {
	if !input.Action.IsValid() {
		return nil, domainerror.NewReconciliationError(
			domainerror.ErrCodeInvalidResolutionAction,
			"action must be one of create_entry, adjust_entry, ignore, manual_review",
			domainerror.ErrInvalidResolutionAction,
		)
	}
	if strings.TrimSpace(input.Resolver) == "" {
		return nil, domainerror.NewReconciliationError(
			domainerror.ErrCodeMissingResolver,
			"resolver is required",
			domainerror.ErrMissingResolver,
		)
	}

	release, err := acquireLock(ctx, uc.locker, exceptionLockPrefix+input.ExceptionID.String())
	if err != nil {
		return nil, err
	}
	defer release()

	exception, err := uc.exceptionRepo.GetByID(ctx, input.ExceptionID)
	if err != nil {
		return nil, err
	}
	if exception == nil {
		return nil, domainerror.NewReconciliationError(
			domainerror.ErrCodeExceptionNotFound,
			"exception "+input.ExceptionID.String()+" does not exist",
			domainerror.ErrExceptionNotFound,
		)
	}
	if exception.Resolved {
		return nil, alreadyResolved(exception)
	}

	exception.Resolve(input.Action, input.Notes, input.Resolver, uc.now())

	updated, err := uc.exceptionRepo.Resolve(ctx, exception)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, alreadyResolved(exception)
	}

	uc.logger.Info("exception resolved",
		zap.String("exception_id", exception.ID.String()),
		zap.String("action", string(input.Action)),
		zap.String("resolver", input.Resolver),
	)

	return exception, nil
}

func alreadyResolved(exception *entity.Exception) error {
	return domainerror.NewReconciliationError(
		domainerror.ErrCodeExceptionAlreadyResolved,
		"exception "+exception.ID.String()+" is already resolved",
		domainerror.ErrExceptionAlreadyResolved,
	)
}
