// Package valueobject contains domain value objects for the reconciliation engine.
package valueobject

import (
	"github.com/shopspring/decimal"

	"github.com/settlement-recon/backend/internal/domain/entity"
)

// SeverityThreshold assigns a severity to amounts strictly greater than Above.
type SeverityThreshold struct {
	Above    decimal.Decimal
	Severity entity.Severity
}

// SeverityTable maps an amount (currency units) to a severity.
// Thresholds are checked in order; the first one exceeded wins.
type SeverityTable struct {
	Thresholds []SeverityThreshold
	Default    entity.Severity
}

// DefaultUnmatchedSeverityTable returns the severity table for unmatched transactions.
func DefaultUnmatchedSeverityTable() SeverityTable {
	return SeverityTable{
		Thresholds: []SeverityThreshold{
			{Above: decimal.NewFromInt(10000), Severity: entity.SeverityCritical},
			{Above: decimal.NewFromInt(1000), Severity: entity.SeverityHigh},
			{Above: decimal.NewFromInt(100), Severity: entity.SeverityMedium},
		},
		Default: entity.SeverityLow,
	}
}

// Lookup returns the severity for the magnitude of the given amount.
func (t SeverityTable) Lookup(amount decimal.Decimal) entity.Severity {
	abs := amount.Abs()
	for _, threshold := range t.Thresholds {
		if abs.GreaterThan(threshold.Above) {
			return threshold.Severity
		}
	}
	return t.Default
}
