// Package valueobject contains domain value objects for the reconciliation engine.
package valueobject

import (
	"time"

	"github.com/google/uuid"
)

// Period is an inclusive date range a reconciliation run covers.
type Period struct {
	Start time.Time
	End   time.Time
}

// NewPeriod normalizes the bounds to whole UTC days: Start at midnight, End at the last instant of its day.
func NewPeriod(start, end time.Time) Period {
	return Period{
		Start: TruncateToDay(start),
		End:   TruncateToDay(end).Add(24*time.Hour - time.Nanosecond),
	}
}

// IsValid reports whether both bounds are set and Start does not come after End.
func (p Period) IsValid() bool {
	return !p.Start.IsZero() && !p.End.IsZero() && !p.Start.After(p.End)
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// Key returns a stable string identifying the period, e.g. "2024-11-01_2024-11-30".
func (p Period) Key() string {
	return p.Start.Format(time.DateOnly) + "_" + p.End.Format(time.DateOnly)
}

// reconciliationNamespace seeds deterministic ids so reruns over the same inputs yield the same ids.
var reconciliationNamespace = uuid.MustParse("6f1c2a9e-4b1d-5e0a-9c3f-2d7b8e4a1f60")

// DeterministicID derives a stable UUID (v5) from the given parts.
func DeterministicID(parts ...string) uuid.UUID {
	name := ""
	for i, part := range parts {
		if i > 0 {
			name += "|"
		}
		name += part
	}
	return uuid.NewSHA1(reconciliationNamespace, []byte(name))
}
