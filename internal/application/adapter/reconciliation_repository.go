// Package adapter defines interfaces that will be implemented in the integration layer.
package adapter

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/settlement-recon/backend/internal/domain/entity"
)

// LedgerRepository defines the ledger operations the reconciliation engine consumes.
// Entries are append-only from the engine's point of view.
type LedgerRepository interface {
	// ListByDateRange retrieves ledger entries dated within [start, end].
	ListByDateRange(ctx context.Context, start, end time.Time) ([]*entity.LedgerEntry, error)

	// GetByID retrieves a single ledger entry with its lines.
	// Returns (nil, nil) when the entry does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*entity.LedgerEntry, error)

	// Append stores a new entry. It reports false without error when an entry
	// with the same ID already exists, leaving the stored entry untouched.
	Append(ctx context.Context, entry *entity.LedgerEntry) (bool, error)
}

// ProcessorTransactionRepository defines persistence for ingested processor records.
type ProcessorTransactionRepository interface {
	// ListByDateRange retrieves transactions created within [start, end].
	ListByDateRange(ctx context.Context, start, end time.Time) ([]*entity.ProcessorTransaction, error)

	// GetByID retrieves a transaction. Returns (nil, nil) when it does not exist.
	GetByID(ctx context.Context, id string) (*entity.ProcessorTransaction, error)

	// Upsert stores transactions that are not yet known; existing records are never modified.
	// Returns the number of newly stored transactions.
	Upsert(ctx context.Context, transactions []*entity.ProcessorTransaction) (int, error)
}

// MatchRepository defines persistence for matches. Matches are insert-only.
type MatchRepository interface {
	// Create stores a single match.
	Create(ctx context.Context, match *entity.Match) error

	// CreateMany stores matches, skipping any whose ID already exists.
	CreateMany(ctx context.Context, matches []*entity.Match) error

	// GetActiveByTransaction returns the newest manual match for a transaction
	// that no other match supersedes. Returns (nil, nil) when there is none.
	GetActiveByTransaction(ctx context.Context, transactionID string) (*entity.Match, error)

	// ListActiveManual returns the active manual matches for the given transactions.
	ListActiveManual(ctx context.Context, transactionIDs []string) ([]*entity.Match, error)
}

// ExceptionRepository defines persistence for exceptions.
type ExceptionRepository interface {
	// CreateMany stores exceptions, skipping any whose ID already exists so that
	// a resolved exception is never reopened by a rerun.
	CreateMany(ctx context.Context, exceptions []*entity.Exception) error

	// List returns exceptions matching the filter, most severe first.
	List(ctx context.Context, filter entity.ExceptionFilter) ([]*entity.Exception, error)

	// GetByID retrieves an exception. Returns (nil, nil) when it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Exception, error)

	// Resolve persists the resolution fields, only if the stored exception is still open.
	// Reports false when no open exception was updated.
	Resolve(ctx context.Context, exception *entity.Exception) (bool, error)
}

// ReportRepository stores generated reports.
type ReportRepository interface {
	Save(ctx context.Context, report *entity.ReconciliationReport) error
}

// ReportCache keeps the latest report per period for quick reads.
type ReportCache interface {
	// Get returns (nil, nil) on a cache miss.
	Get(ctx context.Context, periodKey string) (*entity.ReconciliationReport, error)
	Set(ctx context.Context, periodKey string, report *entity.ReconciliationReport) error
}

// CustomerAccountResolver maps a processor customer to the ledger account holding its receivable.
type CustomerAccountResolver interface {
	// ReceivableAccount returns ("", false, nil) when the customer is unknown.
	ReceivableAccount(ctx context.Context, customerID string) (string, bool, error)
}

// EntryNumberGenerator issues human-readable ledger entry numbers.
type EntryNumberGenerator interface {
	Next(prefix string) string
}

// EntityLocker serializes writes per entity key.
type EntityLocker interface {
	// Lock blocks until the lock for key is held or ctx is done.
	// The returned function releases the lock.
	Lock(ctx context.Context, key string) (func(), error)
}

// ProcessorFeed reads settlement records from an external payment processor.
type ProcessorFeed interface {
	Fetch(ctx context.Context, start, end time.Time) ([]*entity.ProcessorTransaction, error)
}
