package reconciliation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/settlement-recon/backend/internal/domain/entity"
)

// fakeLedger is an in-memory append-only ledger.
type fakeLedger struct {
	mu        sync.Mutex
	entries   map[uuid.UUID]*entity.LedgerEntry
	listErr   error
	appendErr error
}

func newFakeLedger(entries ...*entity.LedgerEntry) *fakeLedger {
	l := &fakeLedger{entries: make(map[uuid.UUID]*entity.LedgerEntry)}
	for _, e := range entries {
		l.entries[e.ID] = e
	}
	return l
}

func (l *fakeLedger) ListByDateRange(_ context.Context, start, end time.Time) ([]*entity.LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listErr != nil {
		return nil, l.listErr
	}
	var out []*entity.LedgerEntry
	for _, e := range l.entries {
		if !e.Date.Before(start) && !e.Date.After(end) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (l *fakeLedger) GetByID(_ context.Context, id uuid.UUID) (*entity.LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries[id], nil
}

func (l *fakeLedger) Append(_ context.Context, entry *entity.LedgerEntry) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.appendErr != nil {
		return false, l.appendErr
	}
	if _, exists := l.entries[entry.ID]; exists {
		return false, nil
	}
	l.entries[entry.ID] = entry
	return true, nil
}

// fakeTransactions is an in-memory processor transaction store.
type fakeTransactions struct {
	mu      sync.Mutex
	txs     map[string]*entity.ProcessorTransaction
	listErr error
}

func newFakeTransactions(txs ...*entity.ProcessorTransaction) *fakeTransactions {
	r := &fakeTransactions{txs: make(map[string]*entity.ProcessorTransaction)}
	for _, tx := range txs {
		r.txs[tx.ID] = tx
	}
	return r
}

func (r *fakeTransactions) ListByDateRange(_ context.Context, start, end time.Time) ([]*entity.ProcessorTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []*entity.ProcessorTransaction
	for _, tx := range r.txs {
		if !tx.CreatedAt.Before(start) && !tx.CreatedAt.After(end) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTransactions) GetByID(_ context.Context, id string) (*entity.ProcessorTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.txs[id], nil
}

func (r *fakeTransactions) Upsert(_ context.Context, txs []*entity.ProcessorTransaction) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := 0
	for _, tx := range txs {
		if _, ok := r.txs[tx.ID]; ok {
			continue
		}
		r.txs[tx.ID] = tx
		stored++
	}
	return stored, nil
}

// fakeMatches is an in-memory insert-only match store.
type fakeMatches struct {
	mu      sync.Mutex
	matches []*entity.Match
	ids     map[uuid.UUID]bool
	saveErr error
}

func newFakeMatches(matches ...*entity.Match) *fakeMatches {
	r := &fakeMatches{ids: make(map[uuid.UUID]bool)}
	for _, m := range matches {
		r.ids[m.ID] = true
		r.matches = append(r.matches, m)
	}
	return r
}

func (r *fakeMatches) Create(_ context.Context, match *entity.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	if r.ids[match.ID] {
		return fmt.Errorf("duplicate match %s", match.ID)
	}
	r.ids[match.ID] = true
	r.matches = append(r.matches, match)
	return nil
}

func (r *fakeMatches) CreateMany(_ context.Context, matches []*entity.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	for _, m := range matches {
		if r.ids[m.ID] {
			continue
		}
		r.ids[m.ID] = true
		r.matches = append(r.matches, m)
	}
	return nil
}

func (r *fakeMatches) GetActiveByTransaction(_ context.Context, transactionID string) (*entity.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeLocked(transactionID), nil
}

func (r *fakeMatches) ListActiveManual(_ context.Context, transactionIDs []string) ([]*entity.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Match
	for _, id := range transactionIDs {
		if m := r.activeLocked(id); m != nil {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMatches) activeLocked(transactionID string) *entity.Match {
	superseded := make(map[uuid.UUID]bool)
	for _, m := range r.matches {
		if m.SupersedesID != nil {
			superseded[*m.SupersedesID] = true
		}
	}
	var active *entity.Match
	for _, m := range r.matches {
		if m.TransactionID != transactionID || m.Type != entity.MatchTypeManual ||
			m.EntryID == nil || m.ConfirmedBy == "" || superseded[m.ID] {
			continue
		}
		active = m
	}
	return active
}

func (r *fakeMatches) all() []*entity.Match {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*entity.Match(nil), r.matches...)
}

// fakeExceptions stores copies so callers cannot mutate stored state.
type fakeExceptions struct {
	mu      sync.Mutex
	items   map[uuid.UUID]entity.Exception
	order   []uuid.UUID
	saveErr error
}

func newFakeExceptions(exceptions ...*entity.Exception) *fakeExceptions {
	r := &fakeExceptions{items: make(map[uuid.UUID]entity.Exception)}
	_ = r.CreateMany(context.Background(), exceptions)
	return r
}

func (r *fakeExceptions) CreateMany(_ context.Context, exceptions []*entity.Exception) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	for _, exc := range exceptions {
		if _, ok := r.items[exc.ID]; ok {
			continue
		}
		r.items[exc.ID] = *exc
		r.order = append(r.order, exc.ID)
	}
	return nil
}

func (r *fakeExceptions) List(_ context.Context, filter entity.ExceptionFilter) ([]*entity.Exception, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Exception
	for _, id := range r.order {
		exc := r.items[id]
		if filter.Severity != nil && exc.Severity != *filter.Severity {
			continue
		}
		if filter.Resolved != nil && exc.Resolved != *filter.Resolved {
			continue
		}
		out = append(out, &exc)
	}
	return out, nil
}

func (r *fakeExceptions) GetByID(_ context.Context, id uuid.UUID) (*entity.Exception, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exc, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return &exc, nil
}

func (r *fakeExceptions) Resolve(_ context.Context, exception *entity.Exception) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[exception.ID]
	if !ok || stored.Resolved {
		return false, nil
	}
	r.items[exception.ID] = *exception
	return true, nil
}

func (r *fakeExceptions) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

type fakeReports struct {
	mu    sync.Mutex
	saved []*entity.ReconciliationReport
}

func (r *fakeReports) Save(_ context.Context, report *entity.ReconciliationReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, report)
	return nil
}

type fakeCache struct {
	mu      sync.Mutex
	reports map[string]*entity.ReconciliationReport
}

func newFakeCache() *fakeCache {
	return &fakeCache{reports: make(map[string]*entity.ReconciliationReport)}
}

func (c *fakeCache) Get(_ context.Context, key string) (*entity.ReconciliationReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reports[key], nil
}

func (c *fakeCache) Set(_ context.Context, key string, report *entity.ReconciliationReport) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports[key] = report
	return nil
}

type fakeNotifier struct {
	calls int
	err   error
}

func (n *fakeNotifier) NotifyCritical(_ context.Context, _ *entity.ReconciliationReport) error {
	n.calls++
	return n.err
}

type fakeMetrics struct {
	mu       sync.Mutex
	statuses []string
	created  int
	failed   int
}

func (m *fakeMetrics) ObserveRun(status string, _ time.Duration, _ *entity.ReconciliationReport, _ []*entity.Match) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, status)
}

func (m *fakeMetrics) ObserveReturns(created, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created += created
	m.failed += failed
}

type fakeCustomers map[string]string

func (c fakeCustomers) ReceivableAccount(_ context.Context, customerID string) (string, bool, error) {
	account, ok := c[customerID]
	return account, ok, nil
}

type sequenceNumbers struct {
	mu   sync.Mutex
	next int
}

func (s *sequenceNumbers) Next(prefix string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return fmt.Sprintf("%s-%d", prefix, s.next)
}

// keyedLocker is an in-process per-key mutex.
type keyedLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newKeyedLocker() *keyedLocker {
	return &keyedLocker{locks: make(map[string]chan struct{})}
}

func (l *keyedLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	ch, ok := l.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[key] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type fakeFeed struct {
	txs []*entity.ProcessorTransaction
	err error
}

func (f *fakeFeed) Fetch(_ context.Context, _, _ time.Time) ([]*entity.ProcessorTransaction, error) {
	return f.txs, f.err
}

// Builders.

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func newTx(id string, amount int64, at time.Time, description string) *entity.ProcessorTransaction {
	return &entity.ProcessorTransaction{
		ID:          id,
		Amount:      amount,
		Currency:    "usd",
		Net:         amount,
		Status:      entity.ProcessorStatusAvailable,
		Kind:        entity.ProcessorKindCharge,
		CreatedAt:   at,
		AvailableOn: at,
		Description: description,
	}
}

func newEntry(amount int64, at time.Time, description string) *entity.LedgerEntry {
	return &entity.LedgerEntry{
		ID:          uuid.New(),
		EntryNumber: "JE-" + uuid.NewString()[:8],
		Description: description,
		Date:        at,
		Status:      entity.LedgerEntryStatusPosted,
		Lines: []entity.LedgerLine{
			{AccountID: "1000-cash", Direction: entity.DirectionDebit, Amount: amount},
			{AccountID: "4000-revenue", Direction: entity.DirectionCredit, Amount: amount},
		},
		Source:    "manual",
		CreatedAt: at,
	}
}
