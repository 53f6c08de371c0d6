// Package entity defines the core business entities for the domain layer.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// LedgerEntryStatus represents the posting status of a ledger entry.
type LedgerEntryStatus string

const (
	LedgerEntryStatusDraft  LedgerEntryStatus = "draft"
	LedgerEntryStatusPosted LedgerEntryStatus = "posted"
)

// LineDirection is the side of a double-entry line.
type LineDirection string

const (
	DirectionDebit  LineDirection = "debit"
	DirectionCredit LineDirection = "credit"
)

// LedgerLine is a single debit or credit against an account.
type LedgerLine struct {
	AccountID string
	Direction LineDirection
	Amount    int64 // Minor units, always positive
}

// LedgerEntry is a double-entry accounting record.
// Posted entries are never edited; corrections are new entries.
type LedgerEntry struct {
	ID          uuid.UUID
	EntryNumber string
	Description string
	Date        time.Time
	Status      LedgerEntryStatus
	Lines       []LedgerLine
	Source      string
	CreatedAt   time.Time
}

// Total returns the sum of the debit lines in minor units.
func (e *LedgerEntry) Total() int64 {
	var total int64
	for _, line := range e.Lines {
		if line.Direction == DirectionDebit {
			total += line.Amount
		}
	}
	return total
}

// CreditTotal returns the sum of the credit lines in minor units.
func (e *LedgerEntry) CreditTotal() int64 {
	var total int64
	for _, line := range e.Lines {
		if line.Direction == DirectionCredit {
			total += line.Amount
		}
	}
	return total
}

// IsBalanced reports whether debits equal credits.
func (e *LedgerEntry) IsBalanced() bool {
	return e.Total() == e.CreditTotal()
}

// IsPosted reports whether the entry has been posted.
func (e *LedgerEntry) IsPosted() bool {
	return e.Status == LedgerEntryStatusPosted
}

// Validate checks a posted entry for the fields the matcher relies on.
// It returns a human-readable reason, or an empty string when the entry is usable.
func (e *LedgerEntry) Validate() string {
	switch {
	case e.ID == uuid.Nil:
		return "missing entry id"
	case e.Date.IsZero():
		return "missing entry date"
	case len(e.Lines) == 0:
		return "entry has no lines"
	}
	for _, line := range e.Lines {
		if line.AccountID == "" {
			return "line without account"
		}
		if line.Amount < 0 {
			return "negative line amount"
		}
		if line.Direction != DirectionDebit && line.Direction != DirectionCredit {
			return "unknown line direction " + string(line.Direction)
		}
	}
	if e.IsPosted() && !e.IsBalanced() {
		return "posted entry is unbalanced"
	}
	return ""
}
