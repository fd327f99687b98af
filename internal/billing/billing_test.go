package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBillableHours(t *testing.T) {
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		end   time.Time
		hours int
	}{
		{"zero duration", start, 0},
		{"end before start", start.Add(-time.Minute), 0},
		{"one minute", start.Add(time.Minute), 1},
		{"45 minutes", start.Add(45 * time.Minute), 1},
		{"exactly one hour", start.Add(time.Hour), 1},
		{"61 minutes", start.Add(61 * time.Minute), 2},
		{"23h59m", start.Add(24*time.Hour - time.Minute), 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.hours, BillableHours(start, tt.end))
		})
	}
}

func TestCost(t *testing.T) {
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, 10.00, Cost(start, start.Add(45*time.Minute), 10))
	assert.Equal(t, 10.00, Cost(start, start.Add(time.Hour), 10))
	assert.Equal(t, 20.00, Cost(start, start.Add(61*time.Minute), 10))
	assert.Equal(t, 0.00, Cost(start, start, 10))

	// Fractional rates still come out in whole cents.
	assert.Equal(t, 7.35, Cost(start, start.Add(3*time.Hour), 2.45))
}

func TestRoundCents(t *testing.T) {
	assert.Equal(t, 10.13, RoundCents(10.125))
	assert.Equal(t, 10.12, RoundCents(10.124))
	assert.Equal(t, 0.00, RoundCents(0))
}
