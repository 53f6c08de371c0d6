// Package entity defines the core business entities for the domain layer.
package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MatchType describes how a match was produced.
type MatchType string

const (
	MatchTypeExact  MatchType = "exact"
	MatchTypeFuzzy  MatchType = "fuzzy"
	MatchTypeManual MatchType = "manual"
)

// MatchDifferences records how far apart the paired records are.
type MatchDifferences struct {
	AmountDifference      decimal.Decimal // Currency units, absolute
	DateDifferenceDays    int
	DescriptionSimilarity float64
}

// Match links a processor transaction to at most one ledger entry.
// Matches are immutable; re-matching creates a new Match that supersedes the old one.
type Match struct {
	ID                uuid.UUID
	TransactionID     string
	EntryID           *uuid.UUID
	CandidateEntryIDs []uuid.UUID // Populated when several entries qualified
	Amount            decimal.Decimal
	Date              time.Time
	Confidence        int
	Type              MatchType
	Differences       MatchDifferences
	Notes             string
	SupersedesID      *uuid.UUID
	ConfirmedBy       string
	CreatedAt         time.Time
}

// IsResolved reports whether the match points at a ledger entry.
func (m *Match) IsResolved() bool {
	return m.EntryID != nil
}

// IsAutomated reports whether the match was produced by the matcher rather than an operator.
func (m *Match) IsAutomated() bool {
	return m.Type == MatchTypeExact || m.Type == MatchTypeFuzzy
}

// IsAmbiguous reports whether the matcher found several candidates and declined to pick one.
func (m *Match) IsAmbiguous() bool {
	return m.EntryID == nil && len(m.CandidateEntryIDs) > 1
}
