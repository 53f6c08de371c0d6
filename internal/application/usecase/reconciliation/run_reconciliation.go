package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/settlement-recon/backend/internal/application/adapter"
	"github.com/settlement-recon/backend/internal/domain/entity"
	domainerror "github.com/settlement-recon/backend/internal/domain/error"
	"github.com/settlement-recon/backend/internal/domain/valueobject"
)

// Run outcomes recorded in metrics.
const (
	RunStatusSuccess   = "success"
	RunStatusFailed    = "failed"
	RunStatusCancelled = "cancelled"
)

// RunReconciliationInput represents the input for a reconciliation run.
type RunReconciliationInput struct {
	StartDate time.Time
	EndDate   time.Time
}

// RunReconciliationOutput represents the result of a reconciliation run.
type RunReconciliationOutput struct {
	Report  *entity.ReconciliationReport
	Matches []*entity.Match
}

// RunReconciliationRepositories groups the stores a run reads from and writes to.
type RunReconciliationRepositories struct {
	Ledger       adapter.LedgerRepository
	Transactions adapter.ProcessorTransactionRepository
	Matches      adapter.MatchRepository
	Exceptions   adapter.ExceptionRepository
	Reports      adapter.ReportRepository
}

// RunReconciliationUseCase matches a period's processor transactions against the ledger,
// classifies the discrepancies and stores the resulting report.
type RunReconciliationUseCase struct {
	repos      RunReconciliationRepositories
	matcher    *Matcher
	classifier *Classifier
	cache      adapter.ReportCache
	notifier   adapter.AlertNotifier
	metrics    adapter.ReconciliationMetrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewRunReconciliationUseCase creates a new RunReconciliationUseCase instance.
func NewRunReconciliationUseCase(
	repos RunReconciliationRepositories,
	matcher *Matcher,
	classifier *Classifier,
	logger *zap.Logger,
) *RunReconciliationUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunReconciliationUseCase{
		repos:      repos,
		matcher:    matcher,
		classifier: classifier,
		logger:     logger,
		now:        utcNow,
	}
}

// WithReportCache caches each generated report.
func (uc *RunReconciliationUseCase) WithReportCache(cache adapter.ReportCache) *RunReconciliationUseCase {
	uc.cache = cache
	return uc
}

// WithAlertNotifier sends an alert for reports holding critical exceptions.
func (uc *RunReconciliationUseCase) WithAlertNotifier(notifier adapter.AlertNotifier) *RunReconciliationUseCase {
	uc.notifier = notifier
	return uc
}

// WithMetrics records run outcomes.
func (uc *RunReconciliationUseCase) WithMetrics(metrics adapter.ReconciliationMetrics) *RunReconciliationUseCase {
	uc.metrics = metrics
	return uc
}

// WithClock overrides the clock used for GeneratedAt.
func (uc *RunReconciliationUseCase) WithClock(now func() time.Time) *RunReconciliationUseCase {
	uc.now = now
	return uc
}

// Execute performs a reconciliation run.
func (uc *RunReconciliationUseCase) Execute(ctx context.Context, input RunReconciliationInput) (*RunReconciliationOutput, error) {
	period := valueobject.NewPeriod(input.StartDate, input.EndDate)
	if input.StartDate.IsZero() || input.EndDate.IsZero() || !period.IsValid() {
		return nil, domainerror.NewReconciliationError(
			domainerror.ErrCodeInvalidPeriod,
			"start date must not be after end date",
			domainerror.ErrInvalidPeriod,
		)
	}

	ctx, span := tracer.Start(ctx, "RunReconciliation")
	defer span.End()
	span.SetAttributes(attribute.String("period", period.Key()))

	started := time.Now()
	logger := uc.logger.With(zap.String("period", period.Key()))
	logger.Info("starting reconciliation run")

	output, err := uc.run(ctx, period, logger)
	duration := time.Since(started)

	if err != nil {
		status := RunStatusFailed
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = RunStatusCancelled
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
		uc.observe(status, duration, nil, nil)
		logger.Error("reconciliation run failed", zap.String("status", status), zap.Error(err))
		return nil, err
	}

	uc.observe(RunStatusSuccess, duration, output.Report, output.Matches)
	logger.Info("reconciliation run completed",
		zap.Int("transactions", output.Report.TotalTransactions),
		zap.Int("matched", output.Report.MatchedTransactions),
		zap.Int("exceptions", len(output.Report.Exceptions)),
		zap.String("rate", output.Report.ReconciliationRate.StringFixed(2)),
		zap.Duration("duration", duration),
	)

	uc.publish(ctx, period, output.Report, logger)
	return output, nil
}

func (uc *RunReconciliationUseCase) run(ctx context.Context, period valueobject.Period, logger *zap.Logger) (*RunReconciliationOutput, error) {
	transactions, err := uc.repos.Transactions.ListByDateRange(ctx, period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("failed to load processor transactions: %w", err)
	}

	entries, err := uc.repos.Ledger.ListByDateRange(ctx, period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger entries: %w", err)
	}

	var dataExceptions []*entity.Exception

	validTx := make([]*entity.ProcessorTransaction, 0, len(transactions))
	txIDs := make([]string, 0, len(transactions))
	for _, tx := range transactions {
		if reason := tx.Validate(); reason != "" {
			logger.Warn("skipping invalid processor transaction", zap.String("transaction_id", tx.ID), zap.String("reason", reason))
			dataExceptions = append(dataExceptions, uc.classifier.InvalidTransaction(period, tx, reason))
			continue
		}
		validTx = append(validTx, tx)
		txIDs = append(txIDs, tx.ID)
	}

	manual, err := uc.repos.Matches.ListActiveManual(ctx, txIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load manual matches: %w", err)
	}

	overridden := make(map[string]bool, len(manual))
	claimed := make(map[uuid.UUID]bool, len(manual))
	for _, m := range manual {
		overridden[m.TransactionID] = true
		if m.EntryID != nil {
			claimed[*m.EntryID] = true
		}
	}

	validEntries := make([]*entity.LedgerEntry, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsPosted() {
			continue
		}
		if reason := entry.Validate(); reason != "" {
			logger.Warn("skipping malformed ledger entry", zap.String("entry_id", entry.ID.String()), zap.String("reason", reason))
			dataExceptions = append(dataExceptions, uc.classifier.InvalidEntry(period, entry, reason))
			continue
		}
		validEntries = append(validEntries, entry)
	}

	toMatch := make([]*entity.ProcessorTransaction, 0, len(validTx))
	for _, tx := range validTx {
		if !overridden[tx.ID] {
			toMatch = append(toMatch, tx)
		}
	}
	candidates := make([]*entity.LedgerEntry, 0, len(validEntries))
	for _, entry := range validEntries {
		if !claimed[entry.ID] {
			candidates = append(candidates, entry)
		}
	}

	automated, err := uc.matcher.MatchAll(ctx, period, toMatch, candidates)
	if err != nil {
		return nil, fmt.Errorf("matching interrupted: %w", err)
	}

	matches := make([]*entity.Match, 0, len(automated)+len(manual))
	matches = append(matches, automated...)
	matches = append(matches, manual...)
	sortMatches(matches)

	_, classifySpan := tracer.Start(ctx, "ClassifyExceptions")
	exceptions := uc.classifier.Classify(period, validTx, validEntries, matches)
	exceptions = append(exceptions, dataExceptions...)
	SortExceptions(exceptions)
	classifySpan.SetAttributes(attribute.Int("exceptions", len(exceptions)))
	classifySpan.End()

	report := GenerateReport(period, transactions, matches, exceptions, uc.now())

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	createdAt := report.GeneratedAt
	for _, m := range automated {
		m.CreatedAt = createdAt
	}
	for _, exc := range exceptions {
		exc.CreatedAt = createdAt
	}

	if err := uc.repos.Matches.CreateMany(ctx, automated); err != nil {
		return nil, fmt.Errorf("failed to save matches: %w", err)
	}
	if err := uc.repos.Exceptions.CreateMany(ctx, exceptions); err != nil {
		return nil, fmt.Errorf("failed to save exceptions: %w", err)
	}
	if err := uc.repos.Reports.Save(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to save report: %w", err)
	}

	return &RunReconciliationOutput{
		Report:  report,
		Matches: matches,
	}, nil
}

// publish caches the report and raises alerts. Failures are logged, never returned.
func (uc *RunReconciliationUseCase) publish(ctx context.Context, period valueobject.Period, report *entity.ReconciliationReport, logger *zap.Logger) {
	if uc.cache != nil {
		if err := uc.cache.Set(ctx, period.Key(), report); err != nil {
			logger.Warn("failed to cache reconciliation report", zap.Error(err))
		}
	}

	if uc.notifier == nil {
		return
	}
	if critical := report.CountBySeverity(entity.SeverityCritical); critical > 0 {
		if err := uc.notifier.NotifyCritical(ctx, report); err != nil {
			logger.Warn("failed to send critical exception alert", zap.Int("critical", critical), zap.Error(err))
		}
	}
}

func (uc *RunReconciliationUseCase) observe(status string, duration time.Duration, report *entity.ReconciliationReport, matches []*entity.Match) {
	if uc.metrics != nil {
		uc.metrics.ObserveRun(status, duration, report, matches)
	}
}
