package reconciliation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/settlement-recon/backend/internal/application/adapter"
	"github.com/settlement-recon/backend/internal/domain/entity"
	domainerror "github.com/settlement-recon/backend/internal/domain/error"
)

// SyncTransactionsInput represents the window to pull from the processor.
type SyncTransactionsInput struct {
	Start time.Time
	End   time.Time
}

// SyncTransactionsOutput represents the result of a sync.
type SyncTransactionsOutput struct {
	Fetched  int
	Stored   int
	Rejected int
}

// SyncTransactionsUseCase ingests processor settlement records.
// Records are validated here so malformed shapes never reach the matcher.
type SyncTransactionsUseCase struct {
	feed   adapter.ProcessorFeed
	txRepo adapter.ProcessorTransactionRepository
	logger *zap.Logger
}

// NewSyncTransactionsUseCase creates a new SyncTransactionsUseCase instance.
func NewSyncTransactionsUseCase(
	feed adapter.ProcessorFeed,
	txRepo adapter.ProcessorTransactionRepository,
	logger *zap.Logger,
) *SyncTransactionsUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncTransactionsUseCase{
		feed:   feed,
		txRepo: txRepo,
		logger: logger,
	}
}

// Execute fetches the window and stores records not seen before.
func (uc *SyncTransactionsUseCase) Execute(ctx context.Context, input SyncTransactionsInput) (*SyncTransactionsOutput, error) {
	if input.Start.IsZero() || input.End.IsZero() || input.Start.After(input.End) {
		return nil, domainerror.NewReconciliationError(
			domainerror.ErrCodeInvalidPeriod,
			"sync window start must not be after end",
			domainerror.ErrInvalidPeriod,
		)
	}

	fetched, err := uc.feed.Fetch(ctx, input.Start, input.End)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch processor transactions: %w", err)
	}

	output := &SyncTransactionsOutput{Fetched: len(fetched)}

	valid := make([]*entity.ProcessorTransaction, 0, len(fetched))
	for _, tx := range fetched {
		if reason := tx.Validate(); reason != "" {
			output.Rejected++
			uc.logger.Warn("rejected processor transaction",
				zap.String("transaction_id", tx.ID),
				zap.String("reason", reason),
			)
			continue
		}
		valid = append(valid, tx)
	}

	stored, err := uc.txRepo.Upsert(ctx, valid)
	if err != nil {
		return nil, fmt.Errorf("failed to store processor transactions: %w", err)
	}
	output.Stored = stored

	uc.logger.Info("processor transactions synced",
		zap.Time("start", input.Start),
		zap.Time("end", input.End),
		zap.Int("fetched", output.Fetched),
		zap.Int("stored", output.Stored),
		zap.Int("rejected", output.Rejected),
	)

	return output, nil
}
