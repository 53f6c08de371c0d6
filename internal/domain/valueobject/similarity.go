// Package valueobject contains domain value objects for the reconciliation engine.
package valueobject

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DescriptionSimilarity scores two free-text descriptions in [0, 1] as the number of
// shared words divided by the word count of the longer description.
// Words are whitespace-separated and compared case-insensitively.
func DescriptionSimilarity(a, b string) float64 {
	wordsA := strings.Fields(strings.ToLower(a))
	wordsB := strings.Fields(strings.ToLower(b))
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(wordsA))
	for _, w := range wordsA {
		setA[w] = struct{}{}
	}

	common := 0
	seen := make(map[string]struct{}, len(wordsB))
	for _, w := range wordsB {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		if _, ok := setA[w]; ok {
			common++
		}
	}

	longest := len(wordsA)
	if len(wordsB) > longest {
		longest = len(wordsB)
	}
	return float64(common) / float64(longest)
}

// DaysBetween returns the absolute number of calendar days between two instants, compared in UTC.
func DaysBetween(a, b time.Time) int {
	dayA := TruncateToDay(a)
	dayB := TruncateToDay(b)
	days := int(dayA.Sub(dayB).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}

// TruncateToDay returns midnight UTC of the instant's calendar day.
func TruncateToDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// MinorToMajor converts an amount in minor units (cents) to currency units.
func MinorToMajor(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}

// MajorToMinor converts currency units to minor units, rounding half away from zero.
func MajorToMinor(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
