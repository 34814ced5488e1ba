package matcher

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestAmountComparatorTolerance(t *testing.T) {
	comparator := NewAmountComparator(DefaultRunConfig().Tolerance)

	tests := []struct {
		name      string
		reference int64
		expected  string
	}{
		// Large references: 1% capped at 5000.
		{"large amount below cap", 200000, "2000"},
		{"large amount at cap boundary", 500000, "5000"},
		{"large amount above cap", 1000000, "5000"},
		{"threshold itself counts as large", 100000, "1000"},
		// Small references: 2% with a floor of 1.
		{"small amount above floor", 1000, "20"},
		{"small amount at floor boundary", 50, "1"},
		{"small amount below floor", 10, "1"},
		{"zero reference keeps the floor", 0, "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := comparator.Tolerance(decimal.NewFromInt(tt.reference))
			if !got.Equal(decimal.RequireFromString(tt.expected)) {
				t.Errorf("Tolerance(%d) = %s, expected %s", tt.reference, got, tt.expected)
			}
		})
	}
}

func TestAmountComparatorCompare(t *testing.T) {
	comparator := NewAmountComparator(DefaultRunConfig().Tolerance)

	tests := []struct {
		name      string
		reference int64
		candidate int64
		expected  AmountMatch
	}{
		{"equal amounts", 1500, 1500, AmountExact},
		{"within small tolerance", 1500, 1520, AmountClose},
		{"outside small tolerance", 1500, 1531, AmountMismatch},
		// Tolerance of a 1,000,000 reference is capped at 5,000.
		{"large diff exactly at cap", 1000000, 995000, AmountClose},
		{"large diff one over cap", 1000000, 994999, AmountMismatch},
		{"large diff above reference at cap", 1000000, 1005000, AmountClose},
		{"large diff above reference over cap", 1000000, 1005001, AmountMismatch},
		{"tiny amounts within floor", 10, 11, AmountClose},
		{"tiny amounts outside floor", 10, 12, AmountMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := comparator.Compare(decimal.NewFromInt(tt.reference), decimal.NewFromInt(tt.candidate))
			if got != tt.expected {
				t.Errorf("Compare(%d, %d) = %s, expected %s", tt.reference, tt.candidate, got, tt.expected)
			}
		})
	}
}

func TestAmountComparatorAsymmetry(t *testing.T) {
	// The tolerance derives from the reference side, so comparing across the
	// large-amount threshold is direction-sensitive.
	cfg := DefaultRunConfig().Tolerance
	comparator := NewAmountComparator(cfg)

	large := decimal.NewFromInt(100000) // tolerance 1000 (1%)
	small := decimal.NewFromInt(99100)  // tolerance 1982 (2%)

	if got := comparator.Compare(large, small); got != AmountClose {
		t.Errorf("Compare(large, small) = %s, expected close", got)
	}
	if got := comparator.Compare(small, large); got != AmountClose {
		t.Errorf("Compare(small, large) = %s, expected close", got)
	}

	further := decimal.NewFromInt(98900) // 1100 off: outside large tolerance, inside small
	if got := comparator.Compare(large, further); got != AmountMismatch {
		t.Errorf("Compare(100000, 98900) = %s, expected mismatch", got)
	}
	if got := comparator.Compare(further, large); got != AmountClose {
		t.Errorf("Compare(98900, 100000) = %s, expected close", got)
	}
}

func TestAmountComparatorWithinTolerance(t *testing.T) {
	comparator := NewAmountComparator(DefaultRunConfig().Tolerance)

	if !comparator.WithinTolerance(decimal.NewFromInt(1500), decimal.NewFromInt(1500)) {
		t.Error("Exact amounts must be within tolerance")
	}
	if !comparator.WithinTolerance(decimal.NewFromInt(1500), decimal.NewFromInt(1510)) {
		t.Error("Close amounts must be within tolerance")
	}
	if comparator.WithinTolerance(decimal.NewFromInt(1500), decimal.NewFromInt(2000)) {
		t.Error("Distant amounts must not be within tolerance")
	}
}
