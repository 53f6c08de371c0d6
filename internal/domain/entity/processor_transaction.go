// Package entity defines the core business entities for the domain layer.
package entity

import (
	"strings"
	"time"
)

// ProcessorTransactionStatus represents the settlement status reported by the processor.
type ProcessorTransactionStatus string

const (
	ProcessorStatusPending   ProcessorTransactionStatus = "pending"
	ProcessorStatusAvailable ProcessorTransactionStatus = "available"
	ProcessorStatusFailed    ProcessorTransactionStatus = "failed"
)

// ProcessorTransactionKind represents the kind of money movement.
type ProcessorTransactionKind string

const (
	ProcessorKindCharge     ProcessorTransactionKind = "charge"
	ProcessorKindRefund     ProcessorTransactionKind = "refund"
	ProcessorKindAdjustment ProcessorTransactionKind = "adjustment"
	ProcessorKindTransfer   ProcessorTransactionKind = "transfer"
	ProcessorKindPayment    ProcessorTransactionKind = "payment"
	ProcessorKindPayout     ProcessorTransactionKind = "payout"
)

// ProcessorTransaction is a settlement record reported by an external payment processor.
// Records are immutable once ingested.
type ProcessorTransaction struct {
	ID          string
	Amount      int64 // Signed, minor units
	Currency    string
	Fee         int64
	Net         int64
	Status      ProcessorTransactionStatus
	Kind        ProcessorTransactionKind
	CreatedAt   time.Time
	AvailableOn time.Time
	Description string
	SourceRef   string

	// Set only for returned payments.
	ReturnCode string
	CustomerID string
}

// AbsAmount returns the magnitude of the transaction amount in minor units.
func (t *ProcessorTransaction) AbsAmount() int64 {
	if t.Amount < 0 {
		return -t.Amount
	}
	return t.Amount
}

// IsReturn reports whether the processor flagged this transaction as a returned payment.
func (t *ProcessorTransaction) IsReturn() bool {
	return t.Status == ProcessorStatusFailed || t.ReturnCode != ""
}

// Validate checks the fields required to reconcile the transaction.
// It returns a human-readable reason, or an empty string when the record is usable.
func (t *ProcessorTransaction) Validate() string {
	switch {
	case strings.TrimSpace(t.ID) == "":
		return "missing transaction id"
	case t.CreatedAt.IsZero():
		return "missing creation time"
	case strings.TrimSpace(t.Currency) == "":
		return "missing currency"
	case !t.Status.IsValid():
		return "unknown status " + string(t.Status)
	case !t.Kind.IsValid():
		return "unknown kind " + string(t.Kind)
	}
	return ""
}

// IsValid reports whether the status is one of the known values.
func (s ProcessorTransactionStatus) IsValid() bool {
	switch s {
	case ProcessorStatusPending, ProcessorStatusAvailable, ProcessorStatusFailed:
		return true
	}
	return false
}

// IsValid reports whether the kind is one of the known values.
func (k ProcessorTransactionKind) IsValid() bool {
	switch k {
	case ProcessorKindCharge, ProcessorKindRefund, ProcessorKindAdjustment,
		ProcessorKindTransfer, ProcessorKindPayment, ProcessorKindPayout:
		return true
	}
	return false
}
