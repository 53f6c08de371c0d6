package reconciliation

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/settlement-recon/backend/internal/domain/entity"
	"github.com/settlement-recon/backend/internal/domain/valueobject"
)

// Classifier derives exceptions from the outcome of a matching pass.
// It is pure: the same inputs always produce the same exceptions in the same order.
type Classifier struct {
	config   valueobject.MatchingConfig
	severity valueobject.SeverityTable
}

// NewClassifier creates a new Classifier instance.
func NewClassifier(config valueobject.MatchingConfig, severity valueobject.SeverityTable) *Classifier {
	return &Classifier{
		config:   config,
		severity: severity,
	}
}

// Classify returns the exceptions for one period.
func (c *Classifier) Classify(
	period valueobject.Period,
	transactions []*entity.ProcessorTransaction,
	entries []*entity.LedgerEntry,
	matches []*entity.Match,
) []*entity.Exception {
	matchByTx := make(map[string]*entity.Match, len(matches))
	linked := make(map[uuid.UUID]bool)
	claims := make(map[uuid.UUID][]*entity.Match)

	for _, m := range matches {
		matchByTx[m.TransactionID] = m
		if m.EntryID == nil {
			continue
		}
		linked[*m.EntryID] = true
		if m.IsAutomated() {
			claims[*m.EntryID] = append(claims[*m.EntryID], m)
		}
	}

	var exceptions []*entity.Exception

	for _, tx := range transactions {
		m, ok := matchByTx[tx.ID]
		if !ok {
			exceptions = append(exceptions, c.unmatched(period, tx))
			continue
		}

		if m.IsAmbiguous() {
			exceptions = append(exceptions, c.newException(period, entity.ExceptionDuplicate, tx.ID, nil, exceptionDetails{
				severity:    entity.SeverityMedium,
				action:      entity.ActionManualReview,
				amount:      valueobject.MinorToMajor(tx.Amount),
				date:        tx.CreatedAt,
				description: fmt.Sprintf("%d ledger entries qualify for transaction %s", len(m.CandidateEntryIDs), tx.ID),
			}))
			continue
		}

		if !m.IsAutomated() || m.EntryID == nil {
			continue
		}

		if days := m.Differences.DateDifferenceDays; !c.config.IsWithinDateTolerance(days) {
			exceptions = append(exceptions, c.newException(period, entity.ExceptionDateMismatch, tx.ID, m.EntryID, exceptionDetails{
				severity:    entity.SeverityLow,
				action:      entity.ActionAdjustEntry,
				amount:      valueobject.MinorToMajor(tx.Amount),
				date:        tx.CreatedAt,
				description: fmt.Sprintf("matched on description; dates are %d days apart", days),
			}))
		}

		if !m.Differences.AmountDifference.IsZero() {
			exceptions = append(exceptions, c.newException(period, entity.ExceptionAmountMismatch, tx.ID, m.EntryID, exceptionDetails{
				severity:    entity.SeverityLow,
				action:      entity.ActionAdjustEntry,
				amount:      m.Differences.AmountDifference,
				date:        tx.CreatedAt,
				description: fmt.Sprintf("amounts differ by %s", m.Differences.AmountDifference.StringFixed(2)),
			}))
		}
	}

	for entryID, claiming := range claims {
		if len(claiming) < 2 {
			continue
		}
		for _, m := range claiming {
			id := entryID
			exceptions = append(exceptions, c.newException(period, entity.ExceptionDuplicate, m.TransactionID, &id, exceptionDetails{
				severity:    entity.SeverityHigh,
				action:      entity.ActionManualReview,
				amount:      m.Amount,
				date:        m.Date,
				description: fmt.Sprintf("ledger entry %s is matched by %d transactions", entryID, len(claiming)),
			}))
		}
	}

	for _, entry := range entries {
		if !entry.IsPosted() || linked[entry.ID] {
			continue
		}
		id := entry.ID
		exceptions = append(exceptions, c.newException(period, entity.ExceptionMissingEntry, "", &id, exceptionDetails{
			severity:    entity.SeverityMedium,
			action:      entity.ActionManualReview,
			amount:      valueobject.MinorToMajor(entry.Total()),
			date:        entry.Date,
			description: fmt.Sprintf("ledger entry %s has no processor transaction", entryLabel(entry)),
		}))
	}

	SortExceptions(exceptions)
	return exceptions
}

// InvalidTransaction reports a processor record that cannot be reconciled.
func (c *Classifier) InvalidTransaction(period valueobject.Period, tx *entity.ProcessorTransaction, reason string) *entity.Exception {
	return c.newException(period, entity.ExceptionUnmatchedTransaction, tx.ID, nil, exceptionDetails{
		severity:    entity.SeverityHigh,
		action:      entity.ActionManualReview,
		amount:      valueobject.MinorToMajor(tx.Amount),
		date:        tx.CreatedAt,
		description: "invalid processor transaction: " + reason,
	})
}

// InvalidEntry reports a posted ledger entry that cannot be matched.
func (c *Classifier) InvalidEntry(period valueobject.Period, entry *entity.LedgerEntry, reason string) *entity.Exception {
	id := entry.ID
	return c.newException(period, entity.ExceptionMissingEntry, "", &id, exceptionDetails{
		severity:    entity.SeverityHigh,
		action:      entity.ActionManualReview,
		amount:      valueobject.MinorToMajor(entry.Total()),
		date:        entry.Date,
		description: fmt.Sprintf("malformed ledger entry %s: %s", entryLabel(entry), reason),
	})
}

func (c *Classifier) unmatched(period valueobject.Period, tx *entity.ProcessorTransaction) *entity.Exception {
	amount := valueobject.MinorToMajor(tx.Amount)

	return c.newException(period, entity.ExceptionUnmatchedTransaction, tx.ID, nil, exceptionDetails{
		severity:    c.severity.Lookup(amount),
		action:      entity.ActionCreateEntry,
		amount:      amount,
		date:        tx.CreatedAt,
		description: fmt.Sprintf("no ledger entry matches %s %s (%s)", amount.StringFixed(2), tx.Currency, tx.Description),
	})
}

type exceptionDetails struct {
	severity    entity.Severity
	action      entity.SuggestedAction
	amount      decimal.Decimal
	date        time.Time
	description string
}

func (c *Classifier) newException(
	period valueobject.Period,
	excType entity.ExceptionType,
	transactionID string,
	entryID *uuid.UUID,
	details exceptionDetails,
) *entity.Exception {
	return &entity.Exception{
		ID:              valueobject.DeterministicID("exception", period.Key(), string(excType), transactionID, entryKey(entryID)),
		Type:            excType,
		Severity:        details.severity,
		TransactionID:   transactionID,
		EntryID:         entryID,
		Amount:          details.amount,
		Date:            details.date,
		Description:     details.description,
		SuggestedAction: details.action,
	}
}

// SortExceptions orders exceptions by transaction ID, type and entry ID.
func SortExceptions(exceptions []*entity.Exception) {
	sort.SliceStable(exceptions, func(i, j int) bool {
		a, b := exceptions[i], exceptions[j]
		if a.TransactionID != b.TransactionID {
			return a.TransactionID < b.TransactionID
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return entryKey(a.EntryID) < entryKey(b.EntryID)
	})
}

func entryKey(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func entryLabel(entry *entity.LedgerEntry) string {
	if entry.EntryNumber != "" {
		return entry.EntryNumber
	}
	return entry.ID.String()
}
