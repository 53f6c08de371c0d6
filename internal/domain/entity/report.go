// Package entity defines the core business entities for the domain layer.
package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReconciliationReport summarizes one reconciliation run for a period.
type ReconciliationReport struct {
	PeriodStart           time.Time
	PeriodEnd             time.Time
	TotalTransactions     int
	MatchedTransactions   int
	UnmatchedTransactions int
	TotalAmount           decimal.Decimal
	MatchedAmount         decimal.Decimal
	UnmatchedAmount       decimal.Decimal
	ReconciliationRate    decimal.Decimal // Percentage, 0-100
	Exceptions            []*Exception
	GeneratedAt           time.Time
}

// CountBySeverity returns how many exceptions carry the given severity.
func (r *ReconciliationReport) CountBySeverity(severity Severity) int {
	count := 0
	for _, exc := range r.Exceptions {
		if exc.Severity == severity {
			count++
		}
	}
	return count
}
