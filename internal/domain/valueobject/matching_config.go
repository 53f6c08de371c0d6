// Package valueobject contains domain value objects for the reconciliation engine.
package valueobject

import (
	"math"

	"github.com/shopspring/decimal"
)

// MatchingConfig contains the tunable rules for pairing processor transactions with ledger entries.
type MatchingConfig struct {
	// Tolerances
	AmountTolerance          decimal.Decimal // 0.01 currency units
	DateToleranceDays        int             // 3 days
	DescriptionSimilarityMin float64         // 0.8

	// Confidence weights, summing to 100
	AmountWeight      float64 // 40
	DateWeight        float64 // 30
	DescriptionWeight float64 // 30

	// Ambiguous (multi-candidate) match defaults
	AmbiguousConfidence            int     // 50
	AmbiguousDescriptionSimilarity float64 // 0.5

	// Workers is the number of concurrent matching workers.
	Workers int
}

// DefaultMatchingConfig returns the default matching configuration.
func DefaultMatchingConfig() MatchingConfig {
	return MatchingConfig{
		AmountTolerance:                decimal.New(1, -2),
		DateToleranceDays:              3,
		DescriptionSimilarityMin:       0.8,
		AmountWeight:                   40,
		DateWeight:                     30,
		DescriptionWeight:              30,
		AmbiguousConfidence:            50,
		AmbiguousDescriptionSimilarity: 0.5,
		Workers:                        4,
	}
}

// IsWithinAmountTolerance checks if two amounts (currency units) differ by no more than the tolerance.
func (c MatchingConfig) IsWithinAmountTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(c.AmountTolerance)
}

// IsWithinDateTolerance checks if a calendar-day distance is within tolerance.
func (c MatchingConfig) IsWithinDateTolerance(days int) bool {
	if days < 0 {
		days = -days
	}
	return days <= c.DateToleranceDays
}

// IsSimilarDescription checks if a similarity score clears the description threshold.
func (c MatchingConfig) IsSimilarDescription(similarity float64) bool {
	return similarity >= c.DescriptionSimilarityMin
}

// Confidence computes the 0-100 confidence score for a single-candidate match.
func (c MatchingConfig) Confidence(amountOK, dateOK bool, similarity float64) int {
	score := c.DescriptionWeight * similarity
	if amountOK {
		score += c.AmountWeight
	}
	if dateOK {
		score += c.DateWeight
	}

	rounded := int(math.Round(score))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}
