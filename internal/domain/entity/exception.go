// Package entity defines the core business entities for the domain layer.
package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExceptionType classifies a reconciliation discrepancy.
type ExceptionType string

const (
	ExceptionUnmatchedTransaction ExceptionType = "unmatched_transaction"
	ExceptionAmountMismatch       ExceptionType = "amount_mismatch"
	ExceptionDateMismatch         ExceptionType = "date_mismatch"
	ExceptionDuplicate            ExceptionType = "duplicate"
	ExceptionMissingEntry         ExceptionType = "missing_entry"
)

// Severity ranks how urgently an exception needs attention.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IsValid reports whether the severity is one of the known values.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// SuggestedAction is the remedy proposed for an exception.
type SuggestedAction string

const (
	ActionCreateEntry  SuggestedAction = "create_entry"
	ActionAdjustEntry  SuggestedAction = "adjust_entry"
	ActionIgnore       SuggestedAction = "ignore"
	ActionManualReview SuggestedAction = "manual_review"
)

// IsValid reports whether the action is one of the known values.
func (a SuggestedAction) IsValid() bool {
	switch a {
	case ActionCreateEntry, ActionAdjustEntry, ActionIgnore, ActionManualReview:
		return true
	}
	return false
}

// Exception is a classified discrepancy. It is created open and resolved at most once.
type Exception struct {
	ID              uuid.UUID
	Type            ExceptionType
	Severity        Severity
	TransactionID   string
	EntryID         *uuid.UUID
	Amount          decimal.Decimal // Currency units
	Date            time.Time
	Description     string
	SuggestedAction SuggestedAction

	Resolved         bool
	ResolvedBy       string
	ResolvedAt       *time.Time
	ResolutionAction SuggestedAction
	Notes            string

	CreatedAt time.Time
}

// Resolve marks the exception as resolved. Callers must check Resolved first.
func (e *Exception) Resolve(action SuggestedAction, notes, resolver string, at time.Time) {
	e.Resolved = true
	e.ResolutionAction = action
	e.Notes = notes
	e.ResolvedBy = resolver
	e.ResolvedAt = &at
}

// ExceptionFilter narrows exception listings.
type ExceptionFilter struct {
	Severity *Severity
	Resolved *bool
	Limit    int
	Offset   int
}
