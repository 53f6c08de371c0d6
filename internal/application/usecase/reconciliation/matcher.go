// Package reconciliation contains settlement reconciliation use cases.
package reconciliation

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/settlement-recon/backend/internal/domain/entity"
	"github.com/settlement-recon/backend/internal/domain/valueobject"
)

// candidate is a ledger entry that satisfies the tolerance rules for a transaction.
type candidate struct {
	entry      *entity.LedgerEntry
	amountDiff decimal.Decimal
	days       int
	similarity float64
	dateOK     bool
}

// Matcher pairs processor transactions with ledger entries.
// It holds no mutable state, so one Matcher may be shared by concurrent workers.
type Matcher struct {
	config valueobject.MatchingConfig
}

// NewMatcher creates a new Matcher instance.
func NewMatcher(config valueobject.MatchingConfig) *Matcher {
	return &Matcher{config: config}
}

// MatchAll matches every transaction against the full entry set.
// Transactions are bucketed by calendar day and the buckets are matched concurrently;
// the merged result is sorted by transaction ID so it does not depend on scheduling.
// On cancellation the matches produced so far are returned together with the context error.
func (m *Matcher) MatchAll(
	ctx context.Context,
	period valueobject.Period,
	transactions []*entity.ProcessorTransaction,
	entries []*entity.LedgerEntry,
) ([]*entity.Match, error) {
	ctx, span := tracer.Start(ctx, "MatchTransactions")
	defer span.End()
	span.SetAttributes(
		attribute.Int("transactions", len(transactions)),
		attribute.Int("entries", len(entries)),
	)

	buckets := bucketByDay(transactions)
	results := make([][]*entity.Match, len(buckets))

	workers := m.config.Workers
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, bucket := range buckets {
		g.Go(func() error {
			for _, tx := range bucket {
				if err := gctx.Err(); err != nil {
					return err
				}
				if match := m.MatchTransaction(period, tx, entries); match != nil {
					results[i] = append(results[i], match)
				}
			}
			return nil
		})
	}

	err := g.Wait()

	var matches []*entity.Match
	for _, bucketMatches := range results {
		matches = append(matches, bucketMatches...)
	}
	sortMatches(matches)

	span.SetAttributes(attribute.Int("matches", len(matches)))
	return matches, err
}

// MatchTransaction finds the match for a single transaction.
// Returns nil when no entry qualifies.
func (m *Matcher) MatchTransaction(
	period valueobject.Period,
	tx *entity.ProcessorTransaction,
	entries []*entity.LedgerEntry,
) *entity.Match {
	candidates := m.findCandidates(tx, entries)

	switch len(candidates) {
	case 0:
		return nil
	case 1:
		return m.exactMatch(period, tx, candidates[0])
	default:
		return m.ambiguousMatch(period, tx, candidates)
	}
}

// findCandidates returns the posted entries within amount tolerance and within
// date tolerance or description similarity.
func (m *Matcher) findCandidates(tx *entity.ProcessorTransaction, entries []*entity.LedgerEntry) []candidate {
	txAmount := valueobject.MinorToMajor(tx.AbsAmount())

	var candidates []candidate
	for _, entry := range entries {
		if !entry.IsPosted() {
			continue
		}

		entryAmount := valueobject.MinorToMajor(entry.Total())
		if !m.config.IsWithinAmountTolerance(txAmount, entryAmount) {
			continue
		}

		days := valueobject.DaysBetween(tx.CreatedAt, entry.Date)
		dateOK := m.config.IsWithinDateTolerance(days)
		similarity := valueobject.DescriptionSimilarity(tx.Description, entry.Description)
		if !dateOK && !m.config.IsSimilarDescription(similarity) {
			continue
		}

		candidates = append(candidates, candidate{
			entry:      entry,
			amountDiff: txAmount.Sub(entryAmount).Abs(),
			days:       days,
			similarity: similarity,
			dateOK:     dateOK,
		})
	}

	return candidates
}

// exactMatch builds the match for a transaction with exactly one candidate.
func (m *Matcher) exactMatch(period valueobject.Period, tx *entity.ProcessorTransaction, c candidate) *entity.Match {
	entryID := c.entry.ID

	return &entity.Match{
		ID:            valueobject.DeterministicID("match", period.Key(), tx.ID, entryID.String()),
		TransactionID: tx.ID,
		EntryID:       &entryID,
		Amount:        valueobject.MinorToMajor(c.entry.Total()),
		Date:          c.entry.Date,
		Confidence:    m.config.Confidence(true, c.dateOK, c.similarity),
		Type:          entity.MatchTypeExact,
		Differences: entity.MatchDifferences{
			AmountDifference:      c.amountDiff,
			DateDifferenceDays:    c.days,
			DescriptionSimilarity: c.similarity,
		},
	}
}

// ambiguousMatch flags a transaction with several qualifying entries for manual review.
// It never picks one of the candidates.
func (m *Matcher) ambiguousMatch(period valueobject.Period, tx *entity.ProcessorTransaction, candidates []candidate) *entity.Match {
	ids := make([]uuid.UUID, len(candidates))
	for i, c := range candidates {
		ids[i] = c.entry.ID
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})

	return &entity.Match{
		ID:                valueobject.DeterministicID("match", period.Key(), tx.ID, "ambiguous"),
		TransactionID:     tx.ID,
		CandidateEntryIDs: ids,
		Amount:            valueobject.MinorToMajor(tx.AbsAmount()),
		Date:              tx.CreatedAt,
		Confidence:        m.config.AmbiguousConfidence,
		Type:              entity.MatchTypeManual,
		Differences: entity.MatchDifferences{
			AmountDifference:      decimal.Zero,
			DescriptionSimilarity: m.config.AmbiguousDescriptionSimilarity,
		},
		Notes: fmt.Sprintf("%d ledger entries qualify; manual selection required", len(ids)),
	}
}

// bucketByDay groups transactions by calendar day, in day order.
func bucketByDay(transactions []*entity.ProcessorTransaction) [][]*entity.ProcessorTransaction {
	byDay := make(map[string][]*entity.ProcessorTransaction)
	for _, tx := range transactions {
		day := valueobject.TruncateToDay(tx.CreatedAt).Format("2006-01-02")
		byDay[day] = append(byDay[day], tx)
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	buckets := make([][]*entity.ProcessorTransaction, len(days))
	for i, day := range days {
		buckets[i] = byDay[day]
	}
	return buckets
}

// sortMatches orders matches by transaction ID, then match ID.
func sortMatches(matches []*entity.Match) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].TransactionID != matches[j].TransactionID {
			return matches[i].TransactionID < matches[j].TransactionID
		}
		return matches[i].ID.String() < matches[j].ID.String()
	})
}
