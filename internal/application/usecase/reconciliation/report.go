package reconciliation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/settlement-recon/backend/internal/domain/entity"
	"github.com/settlement-recon/backend/internal/domain/valueobject"
)

var hundred = decimal.NewFromInt(100)

// GenerateReport summarizes a reconciliation pass.
// A transaction counts as matched when a match links it to a ledger entry;
// ambiguous matches leave it unmatched. Amounts are transaction magnitudes in currency units.
func GenerateReport(
	period valueobject.Period,
	transactions []*entity.ProcessorTransaction,
	matches []*entity.Match,
	exceptions []*entity.Exception,
	generatedAt time.Time,
) *entity.ReconciliationReport {
	linked := make(map[string]bool, len(matches))
	for _, m := range matches {
		if m.IsResolved() {
			linked[m.TransactionID] = true
		}
	}

	report := &entity.ReconciliationReport{
		PeriodStart:        period.Start,
		PeriodEnd:          period.End,
		TotalTransactions:  len(transactions),
		TotalAmount:        decimal.Zero,
		MatchedAmount:      decimal.Zero,
		UnmatchedAmount:    decimal.Zero,
		ReconciliationRate: decimal.Zero,
		Exceptions:         exceptions,
		GeneratedAt:        generatedAt,
	}
	if report.Exceptions == nil {
		report.Exceptions = []*entity.Exception{}
	}

	counted := make(map[string]bool, len(transactions))
	for _, tx := range transactions {
		amount := valueobject.MinorToMajor(tx.AbsAmount())
		report.TotalAmount = report.TotalAmount.Add(amount)

		if linked[tx.ID] && !counted[tx.ID] {
			counted[tx.ID] = true
			report.MatchedTransactions++
			report.MatchedAmount = report.MatchedAmount.Add(amount)
		}
	}

	report.UnmatchedTransactions = report.TotalTransactions - report.MatchedTransactions
	report.UnmatchedAmount = report.TotalAmount.Sub(report.MatchedAmount)

	if report.TotalTransactions > 0 {
		report.ReconciliationRate = decimal.NewFromInt(int64(report.MatchedTransactions)).
			Mul(hundred).
			Div(decimal.NewFromInt(int64(report.TotalTransactions))).
			Round(2)
	}

	return report
}
