// Package billing holds the cost rule shared by release, force-release and
// estimation: partial hours always round up, so billing favors the operator.
package billing

import (
	"math"
	"time"
)

// BillableHours returns the whole hours charged for the interval. Any
// positive fraction of an hour counts as a full hour; a zero or negative
// interval bills nothing.
func BillableHours(start, end time.Time) int {
	seconds := end.Sub(start).Seconds()
	if seconds <= 0 {
		return 0
	}
	return int(math.Ceil(seconds / 3600))
}

// Cost computes the charge for the interval at the given hourly rate,
// rounded half-up to cents.
func Cost(start, end time.Time, pricePerHour float64) float64 {
	return RoundCents(float64(BillableHours(start, end)) * pricePerHour)
}

// RoundCents rounds to two decimal places, half away from zero.
func RoundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}
