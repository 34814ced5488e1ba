package matcher

import "github.com/shopspring/decimal"

// AmountMatch is the outcome of comparing two monetary magnitudes
type AmountMatch int

const (
	// AmountExact means the magnitudes are equal
	AmountExact AmountMatch = iota

	// AmountClose means the candidate lies within the contextual tolerance
	// of the reference
	AmountClose

	// AmountMismatch means the candidate is outside the tolerance
	AmountMismatch
)

// String returns the string representation of AmountMatch
func (m AmountMatch) String() string {
	switch m {
	case AmountExact:
		return "exact"
	case AmountClose:
		return "close"
	case AmountMismatch:
		return "mismatch"
	default:
		return "unknown"
	}
}

// AmountComparator applies the contextual tolerance curve of a run
// configuration to pairs of non-negative magnitudes. The tolerance scales
// with the reference amount: large references get a percentage tolerance
// capped in absolute terms, small references a percentage with a floor.
type AmountComparator struct {
	cfg ToleranceConfig
}

// NewAmountComparator creates a comparator for the given tolerance curve
func NewAmountComparator(cfg ToleranceConfig) *AmountComparator {
	return &AmountComparator{cfg: cfg}
}

// Tolerance returns the absolute tolerance for a reference magnitude
func (ac *AmountComparator) Tolerance(reference decimal.Decimal) decimal.Decimal {
	if reference.GreaterThanOrEqual(ac.cfg.LargeAmountThreshold) {
		tolerance := reference.Mul(decimal.NewFromFloat(ac.cfg.LargePercent))
		if tolerance.GreaterThan(ac.cfg.MaxAbsoluteCap) {
			return ac.cfg.MaxAbsoluteCap
		}
		return tolerance
	}

	tolerance := reference.Mul(decimal.NewFromFloat(ac.cfg.SmallPercent))
	if tolerance.LessThan(ac.cfg.MinAbsoluteFloor) {
		return ac.cfg.MinAbsoluteFloor
	}
	return tolerance
}

// Compare classifies the candidate magnitude against the reference.
// Exact equality wins before any tolerance is computed.
func (ac *AmountComparator) Compare(reference, candidate decimal.Decimal) AmountMatch {
	if reference.Equal(candidate) {
		return AmountExact
	}

	difference := reference.Sub(candidate).Abs()
	if difference.LessThanOrEqual(ac.Tolerance(reference)) {
		return AmountClose
	}

	return AmountMismatch
}

// WithinTolerance reports whether candidate is an exact or close match
func (ac *AmountComparator) WithinTolerance(reference, candidate decimal.Decimal) bool {
	return ac.Compare(reference, candidate) != AmountMismatch
}
