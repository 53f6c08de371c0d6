package reconciliation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/settlement-recon/backend/internal/application/adapter"
	"github.com/settlement-recon/backend/internal/domain/entity"
	domainerror "github.com/settlement-recon/backend/internal/domain/error"
	"github.com/settlement-recon/backend/internal/domain/valueobject"
)

// returnEntryPrefix prefixes entry numbers of return adjustments.
const returnEntryPrefix = "RET"

// ReturnAccounts names the ledger accounts a return adjustment posts to.
type ReturnAccounts struct {
	ClearingAccountID  string
	FeeIncomeAccountID string
}

// ProcessReturnsInput represents a batch of returned payments.
type ProcessReturnsInput struct {
	Returns []*entity.ProcessorTransaction
}

// ProcessReturnsOutput represents the result of processing a batch of returns.
type ProcessReturnsOutput struct {
	CreatedEntries []*entity.LedgerEntry
	Exceptions     []*entity.Exception
	Skipped        int // Returns whose adjustment entry was already posted
}

// ProcessReturnsUseCase posts adjustment entries for returned payments.
// Entries are only ever appended; nothing existing is modified.
type ProcessReturnsUseCase struct {
	ledgerRepo    adapter.LedgerRepository
	exceptionRepo adapter.ExceptionRepository
	customers     adapter.CustomerAccountResolver
	numbers       adapter.EntryNumberGenerator
	fees          valueobject.ReturnFeeTable
	accounts      ReturnAccounts
	metrics       adapter.ReconciliationMetrics
	logger        *zap.Logger
	now           func() time.Time
}

// NewProcessReturnsUseCase creates a new ProcessReturnsUseCase instance.
func NewProcessReturnsUseCase(
	ledgerRepo adapter.LedgerRepository,
	exceptionRepo adapter.ExceptionRepository,
	customers adapter.CustomerAccountResolver,
	numbers adapter.EntryNumberGenerator,
	fees valueobject.ReturnFeeTable,
	accounts ReturnAccounts,
	logger *zap.Logger,
) *ProcessReturnsUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProcessReturnsUseCase{
		ledgerRepo:    ledgerRepo,
		exceptionRepo: exceptionRepo,
		customers:     customers,
		numbers:       numbers,
		fees:          fees,
		accounts:      accounts,
		logger:        logger,
		now:           utcNow,
	}
}

// WithMetrics records created and failed adjustments.
func (uc *ProcessReturnsUseCase) WithMetrics(metrics adapter.ReconciliationMetrics) *ProcessReturnsUseCase {
	uc.metrics = metrics
	return uc
}

// Execute processes every return in the batch. A failing return becomes a
// missing_entry exception and the rest of the batch continues.
func (uc *ProcessReturnsUseCase) Execute(ctx context.Context, input ProcessReturnsInput) (*ProcessReturnsOutput, error) {
	output := &ProcessReturnsOutput{
		CreatedEntries: []*entity.LedgerEntry{},
		Exceptions:     []*entity.Exception{},
	}

	for _, ret := range input.Returns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry, err := uc.buildEntry(ctx, ret)
		if err == nil {
			var created bool
			created, err = uc.ledgerRepo.Append(ctx, entry)
			if err == nil && !created {
				uc.logger.Info("return adjustment already posted", zap.String("transaction_id", ret.ID))
				output.Skipped++
				continue
			}
		}

		if err != nil {
			uc.logger.Warn("failed to post return adjustment",
				zap.String("transaction_id", ret.ID),
				zap.String("return_code", ret.ReturnCode),
				zap.Error(err),
			)
			output.Exceptions = append(output.Exceptions, uc.failure(ret, err))
			continue
		}

		output.CreatedEntries = append(output.CreatedEntries, entry)
	}

	if len(output.Exceptions) > 0 {
		if err := uc.exceptionRepo.CreateMany(ctx, output.Exceptions); err != nil {
			return nil, fmt.Errorf("failed to save return exceptions: %w", err)
		}
	}

	if uc.metrics != nil {
		uc.metrics.ObserveReturns(len(output.CreatedEntries), len(output.Exceptions))
	}

	uc.logger.Info("returns processed",
		zap.Int("returns", len(input.Returns)),
		zap.Int("created", len(output.CreatedEntries)),
		zap.Int("skipped", output.Skipped),
		zap.Int("failed", len(output.Exceptions)),
	)

	return output, nil
}

// buildEntry constructs the balanced adjustment for one return:
// debit receivable (amount + fee), credit clearing (amount), credit fee income (fee).
func (uc *ProcessReturnsUseCase) buildEntry(ctx context.Context, ret *entity.ProcessorTransaction) (*entity.LedgerEntry, error) {
	switch {
	case strings.TrimSpace(ret.ID) == "":
		return nil, invalidReturn("missing transaction id")
	case strings.TrimSpace(ret.ReturnCode) == "":
		return nil, invalidReturn("missing return code")
	case ret.Amount == 0:
		return nil, invalidReturn("zero amount")
	case strings.TrimSpace(ret.CustomerID) == "":
		return nil, unknownCustomer("missing customer id")
	}

	receivable, ok, err := uc.customers.ReceivableAccount(ctx, ret.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve receivable account: %w", err)
	}
	if !ok {
		return nil, unknownCustomer("no receivable account for customer " + ret.CustomerID)
	}

	code := strings.ToUpper(strings.TrimSpace(ret.ReturnCode))
	amount := ret.AbsAmount()
	fee := uc.fees.FeeFor(code)

	return &entity.LedgerEntry{
		ID:          valueobject.DeterministicID("return", ret.ID),
		EntryNumber: uc.numbers.Next(returnEntryPrefix),
		Description: fmt.Sprintf("Return %s for %s %s", code, ret.ID, ret.Description),
		Date:        ret.CreatedAt,
		Status:      entity.LedgerEntryStatusPosted,
		Lines: []entity.LedgerLine{
			{AccountID: receivable, Direction: entity.DirectionDebit, Amount: amount + fee},
			{AccountID: uc.accounts.ClearingAccountID, Direction: entity.DirectionCredit, Amount: amount},
			{AccountID: uc.accounts.FeeIncomeAccountID, Direction: entity.DirectionCredit, Amount: fee},
		},
		Source:    "return:" + code,
		CreatedAt: uc.now(),
	}, nil
}

func (uc *ProcessReturnsUseCase) failure(ret *entity.ProcessorTransaction, cause error) *entity.Exception {
	id := uuid.New()
	if ret.ID != "" {
		id = valueobject.DeterministicID("exception", "returns", string(entity.ExceptionMissingEntry), ret.ID)
	}

	return &entity.Exception{
		ID:              id,
		Type:            entity.ExceptionMissingEntry,
		Severity:        entity.SeverityHigh,
		TransactionID:   ret.ID,
		Amount:          valueobject.MinorToMajor(ret.Amount),
		Date:            ret.CreatedAt,
		Description:     "return adjustment not posted: " + cause.Error(),
		SuggestedAction: entity.ActionManualReview,
		CreatedAt:       uc.now(),
	}
}

func invalidReturn(reason string) error {
	return domainerror.NewReconciliationError(domainerror.ErrCodeInvalidReturn, reason, domainerror.ErrInvalidReturn)
}

func unknownCustomer(reason string) error {
	return domainerror.NewReconciliationError(domainerror.ErrCodeUnknownCustomer, reason, domainerror.ErrUnknownCustomer)
}
