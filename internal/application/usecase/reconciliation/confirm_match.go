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
	"github.com/settlement-recon/backend/internal/domain/valueobject"
)

// manualConfidence is the confidence recorded for operator-confirmed matches.
const manualConfidence = 100

// ConfirmMatchInput represents the input for confirming a match.
type ConfirmMatchInput struct {
	TransactionID string
	EntryID       uuid.UUID
	Notes         string
	ConfirmedBy   string
}

// ConfirmMatchOutput represents the result of confirming a match.
type ConfirmMatchOutput struct {
	Match   *entity.Match
	Created bool // False when the same pair was already confirmed
}

// ConfirmMatchUseCase handles operator confirmation of a transaction/entry pair.
type ConfirmMatchUseCase struct {
	txRepo     adapter.ProcessorTransactionRepository
	ledgerRepo adapter.LedgerRepository
	matchRepo  adapter.MatchRepository
	locker     adapter.EntityLocker
	config     valueobject.MatchingConfig
	logger     *zap.Logger
	now        func() time.Time
}

// NewConfirmMatchUseCase creates a new ConfirmMatchUseCase instance.
func NewConfirmMatchUseCase(
	txRepo adapter.ProcessorTransactionRepository,
	ledgerRepo adapter.LedgerRepository,
	matchRepo adapter.MatchRepository,
	locker adapter.EntityLocker,
	config valueobject.MatchingConfig,
	logger *zap.Logger,
) *ConfirmMatchUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfirmMatchUseCase{
		txRepo:     txRepo,
		ledgerRepo: ledgerRepo,
		matchRepo:  matchRepo,
		locker:     locker,
		config:     config,
		logger:     logger,
		now:        utcNow,
	}
}

// Execute confirms the match. Confirming a different entry supersedes the previous
// confirmation; the previous match is kept.
func (uc *ConfirmMatchUseCase) Execute(ctx context.Context, input ConfirmMatchInput) (*ConfirmMatchOutput, error) {
	if strings.TrimSpace(input.TransactionID) == "" || input.EntryID == uuid.Nil {
		return nil, domainerror.NewReconciliationError(
			domainerror.ErrCodeMissingReconciliationArg,
			"transaction_id and entry_id are required",
			nil,
		)
	}
	if strings.TrimSpace(input.ConfirmedBy) == "" {
		return nil, domainerror.NewReconciliationError(
			domainerror.ErrCodeMissingResolver,
			"confirming operator is required",
			domainerror.ErrMissingResolver,
		)
	}

	release, err := acquireLock(ctx, uc.locker, transactionLockPrefix+input.TransactionID)
	if err != nil {
		return nil, err
	}
	defer release()

	tx, err := uc.txRepo.GetByID(ctx, input.TransactionID)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, domainerror.NewReconciliationError(
			domainerror.ErrCodeTransactionNotFound,
			"processor transaction "+input.TransactionID+" does not exist",
			domainerror.ErrTransactionNotFound,
		)
	}

	entry, err := uc.ledgerRepo.GetByID(ctx, input.EntryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, domainerror.NewReconciliationError(
			domainerror.ErrCodeEntryNotFound,
			"ledger entry "+input.EntryID.String()+" does not exist",
			domainerror.ErrEntryNotFound,
		)
	}

	active, err := uc.matchRepo.GetActiveByTransaction(ctx, tx.ID)
	if err != nil {
		return nil, err
	}
	if active != nil && active.EntryID != nil && *active.EntryID == entry.ID {
		return &ConfirmMatchOutput{Match: active, Created: false}, nil
	}

	match := uc.buildMatch(tx, entry, input)
	if active != nil {
		supersedes := active.ID
		match.SupersedesID = &supersedes
	}

	if err := uc.matchRepo.Create(ctx, match); err != nil {
		return nil, err
	}

	fields := []zap.Field{
		zap.String("transaction_id", tx.ID),
		zap.String("entry_id", entry.ID.String()),
		zap.String("confirmed_by", input.ConfirmedBy),
	}
	if match.SupersedesID != nil {
		fields = append(fields, zap.String("supersedes", match.SupersedesID.String()))
	}
	uc.logger.Info("match confirmed", fields...)

	return &ConfirmMatchOutput{Match: match, Created: true}, nil
}

func (uc *ConfirmMatchUseCase) buildMatch(tx *entity.ProcessorTransaction, entry *entity.LedgerEntry, input ConfirmMatchInput) *entity.Match {
	txAmount := valueobject.MinorToMajor(tx.AbsAmount())
	entryAmount := valueobject.MinorToMajor(entry.Total())
	entryID := entry.ID

	return &entity.Match{
		ID:            uuid.New(),
		TransactionID: tx.ID,
		EntryID:       &entryID,
		Amount:        entryAmount,
		Date:          entry.Date,
		Confidence:    manualConfidence,
		Type:          entity.MatchTypeManual,
		Differences: entity.MatchDifferences{
			AmountDifference:      txAmount.Sub(entryAmount).Abs(),
			DateDifferenceDays:    valueobject.DaysBetween(tx.CreatedAt, entry.Date),
			DescriptionSimilarity: valueobject.DescriptionSimilarity(tx.Description, entry.Description),
		},
		Notes:       input.Notes,
		ConfirmedBy: input.ConfirmedBy,
		CreatedAt:   uc.now(),
	}
}
