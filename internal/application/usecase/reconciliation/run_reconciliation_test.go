package reconciliation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/settlement-recon/backend/internal/domain/entity"
	domainerror "github.com/settlement-recon/backend/internal/domain/error"
	"github.com/settlement-recon/backend/internal/domain/valueobject"
)

type runFixture struct {
	ledger     *fakeLedger
	txs        *fakeTransactions
	matches    *fakeMatches
	exceptions *fakeExceptions
	reports    *fakeReports
	cache      *fakeCache
	notifier   *fakeNotifier
	metrics    *fakeMetrics
	useCase    *RunReconciliationUseCase
}

var fixedNow = time.Date(2024, time.December, 1, 9, 0, 0, 0, time.UTC)

func newRunFixture(txs []*entity.ProcessorTransaction, entries []*entity.LedgerEntry, manual ...*entity.Match) *runFixture {
	f := &runFixture{
		ledger:     newFakeLedger(entries...),
		txs:        newFakeTransactions(txs...),
		matches:    newFakeMatches(manual...),
		exceptions: newFakeExceptions(),
		reports:    &fakeReports{},
		cache:      newFakeCache(),
		notifier:   &fakeNotifier{},
		metrics:    &fakeMetrics{},
	}
	config := valueobject.DefaultMatchingConfig()
	f.useCase = NewRunReconciliationUseCase(
		RunReconciliationRepositories{
			Ledger:       f.ledger,
			Transactions: f.txs,
			Matches:      f.matches,
			Exceptions:   f.exceptions,
			Reports:      f.reports,
		},
		NewMatcher(config),
		NewClassifier(config, valueobject.DefaultUnmatchedSeverityTable()),
		nil,
	).WithReportCache(f.cache).
		WithAlertNotifier(f.notifier).
		WithMetrics(f.metrics).
		WithClock(func() time.Time { return fixedNow })
	return f
}

var novemberInput = RunReconciliationInput{
	StartDate: time.Date(2024, time.November, 1, 0, 0, 0, 0, time.UTC),
	EndDate:   time.Date(2024, time.November, 30, 0, 0, 0, 0, time.UTC),
}

func TestRunReconciliation_Scenarios(t *testing.T) {
	entryA := newEntry(15000, day(2024, time.November, 1), "Office rent")
	entryB1 := newEntry(10000, day(2024, time.November, 9), "Payment received")
	entryB2 := newEntry(10000, day(2024, time.November, 11), "Deposit")

	txA := newTx("txn_a", 15000, day(2024, time.November, 2), "Stripe charge ch_991")
	txB := newTx("txn_b", 10000, day(2024, time.November, 10), "Payment")
	txC := newTx("txn_c", 1200000, day(2024, time.November, 15), "Wire transfer")

	f := newRunFixture(
		[]*entity.ProcessorTransaction{txA, txB, txC},
		[]*entity.LedgerEntry{entryA, entryB1, entryB2},
	)

	output, err := f.useCase.Execute(context.Background(), novemberInput)
	require.NoError(t, err)

	require.Len(t, output.Matches, 2)
	matchA, matchB := output.Matches[0], output.Matches[1]

	assert.Equal(t, "txn_a", matchA.TransactionID)
	assert.Equal(t, entity.MatchTypeExact, matchA.Type)
	assert.Equal(t, 70, matchA.Confidence)
	assert.Equal(t, entryA.ID, *matchA.EntryID)

	assert.Equal(t, "txn_b", matchB.TransactionID)
	assert.Equal(t, entity.MatchTypeManual, matchB.Type)
	assert.Equal(t, 50, matchB.Confidence)
	assert.Nil(t, matchB.EntryID)

	unmatched := exceptionsOfType(output.Report.Exceptions, entity.ExceptionUnmatchedTransaction)
	require.Len(t, unmatched, 1)
	assert.Equal(t, "txn_c", unmatched[0].TransactionID)
	assert.Equal(t, entity.SeverityCritical, unmatched[0].Severity)

	report := output.Report
	assert.Equal(t, 3, report.TotalTransactions)
	assert.Equal(t, 1, report.MatchedTransactions)
	assert.Equal(t, "33.33", report.ReconciliationRate.StringFixed(2))
	assert.Equal(t, fixedNow, report.GeneratedAt)

	assert.Len(t, f.matches.all(), 2)
	assert.Equal(t, len(report.Exceptions), f.exceptions.count())
	assert.Len(t, f.reports.saved, 1)

	cached, err := f.cache.Get(context.Background(), valueobject.NewPeriod(novemberInput.StartDate, novemberInput.EndDate).Key())
	require.NoError(t, err)
	assert.Same(t, report, cached)

	assert.Equal(t, 1, f.notifier.calls)
	assert.Equal(t, []string{RunStatusSuccess}, f.metrics.statuses)
}

func TestRunReconciliation_Idempotent(t *testing.T) {
	entries := []*entity.LedgerEntry{
		newEntry(15000, day(2024, time.November, 1), "Office rent"),
		newEntry(990, day(2024, time.November, 3), "Bank fee"),
	}
	txs := []*entity.ProcessorTransaction{
		newTx("txn_a", 15000, day(2024, time.November, 2), "charge"),
		newTx("txn_z", 42000, day(2024, time.November, 7), "charge"),
	}
	f := newRunFixture(txs, entries)

	first, err := f.useCase.Execute(context.Background(), novemberInput)
	require.NoError(t, err)
	second, err := f.useCase.Execute(context.Background(), novemberInput)
	require.NoError(t, err)

	assert.Equal(t, first.Matches, second.Matches)
	assert.Equal(t, first.Report, second.Report)
	assert.Len(t, f.matches.all(), len(first.Matches))
	assert.Equal(t, len(first.Report.Exceptions), f.exceptions.count())
}

func TestRunReconciliation_ManualOverride(t *testing.T) {
	confirmed := newEntry(20000, day(2024, time.November, 20), "Consulting")
	tx := newTx("txn_m", 19000, day(2024, time.November, 5), "Consulting invoice")
	entryID := confirmed.ID
	manual := &entity.Match{
		ID:            uuid.New(),
		TransactionID: tx.ID,
		EntryID:       &entryID,
		Confidence:    100,
		Type:          entity.MatchTypeManual,
		ConfirmedBy:   "ops@example.com",
	}

	f := newRunFixture([]*entity.ProcessorTransaction{tx}, []*entity.LedgerEntry{confirmed}, manual)

	output, err := f.useCase.Execute(context.Background(), novemberInput)
	require.NoError(t, err)

	require.Len(t, output.Matches, 1)
	assert.Equal(t, manual.ID, output.Matches[0].ID)
	assert.Equal(t, 1, output.Report.MatchedTransactions)
	assert.Empty(t, output.Report.Exceptions)
	assert.Equal(t, 0, f.notifier.calls)
}

func TestRunReconciliation_DataErrorsBecomeExceptions(t *testing.T) {
	bad := newTx("txn_bad", 5000, day(2024, time.November, 4), "x")
	bad.Currency = ""
	broken := newEntry(5000, day(2024, time.November, 4), "x")
	broken.Lines = broken.Lines[:1]
	good := newTx("txn_ok", 800, day(2024, time.November, 6), "y")
	goodEntry := newEntry(800, day(2024, time.November, 6), "y")

	f := newRunFixture(
		[]*entity.ProcessorTransaction{bad, good},
		[]*entity.LedgerEntry{broken, goodEntry},
	)

	output, err := f.useCase.Execute(context.Background(), novemberInput)
	require.NoError(t, err)

	require.Len(t, output.Report.Exceptions, 2)
	for _, exc := range output.Report.Exceptions {
		assert.Equal(t, entity.SeverityHigh, exc.Severity)
		assert.Equal(t, entity.ActionManualReview, exc.SuggestedAction)
	}
	assert.Equal(t, 2, output.Report.TotalTransactions)
	assert.Equal(t, 1, output.Report.MatchedTransactions)
}

func TestRunReconciliation_Errors(t *testing.T) {
	t.Run("reversed period is a validation error", func(t *testing.T) {
		f := newRunFixture(nil, nil)

		_, err := f.useCase.Execute(context.Background(), RunReconciliationInput{
			StartDate: novemberInput.EndDate,
			EndDate:   novemberInput.StartDate,
		})

		var recErr *domainerror.ReconciliationError
		require.ErrorAs(t, err, &recErr)
		assert.Equal(t, domainerror.ErrCodeInvalidPeriod, recErr.Code)
		assert.False(t, errors.Is(err, domainerror.ErrInvalidState))
	})

	t.Run("store failure propagates and nothing is saved", func(t *testing.T) {
		f := newRunFixture(nil, nil)
		storeErr := errors.New("connection refused")
		f.ledger.listErr = storeErr

		_, err := f.useCase.Execute(context.Background(), novemberInput)

		require.ErrorIs(t, err, storeErr)
		assert.Empty(t, f.reports.saved)
		assert.Equal(t, []string{RunStatusFailed}, f.metrics.statuses)
	})

	t.Run("cancelled run persists nothing", func(t *testing.T) {
		f := newRunFixture(
			[]*entity.ProcessorTransaction{newTx("txn_1", 100, day(2024, time.November, 1), "a")},
			[]*entity.LedgerEntry{newEntry(100, day(2024, time.November, 1), "a")},
		)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := f.useCase.Execute(ctx, novemberInput)

		require.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, f.matches.all())
		assert.Equal(t, 0, f.exceptions.count())
		assert.Empty(t, f.reports.saved)
		assert.Equal(t, []string{RunStatusCancelled}, f.metrics.statuses)
	})

	t.Run("alert failure does not fail the run", func(t *testing.T) {
		f := newRunFixture([]*entity.ProcessorTransaction{newTx("txn_big", 5000000, day(2024, time.November, 1), "a")}, nil)
		f.notifier.err = errors.New("smtp down")

		output, err := f.useCase.Execute(context.Background(), novemberInput)

		require.NoError(t, err)
		assert.Equal(t, 1, output.Report.CountBySeverity(entity.SeverityCritical))
		assert.Equal(t, 1, f.notifier.calls)
	})
}
