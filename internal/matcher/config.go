// Package matcher implements the core bank/ledger matching engine.
//
// A reconciliation run walks a fixed sequence of phases over the supplied
// bank transactions and ledger entries:
//  1. Exact pairwise matching (phase 1)
//  2. Probable pairwise matching (phase 2)
//  3. Optional payment-link and ML-prediction phases
//  4. Combinatorial N:1 / 1:N group matching (phase 2.5)
//  5. Heuristic classification of residual items
//
// All phases share one claim set: an item explained by an earlier phase is
// never revisited by a later one. A per-run deadline is polled cooperatively
// between units of work; when it fires, remaining phases are skipped and the
// run finishes with a partial (but valid) result.
//
// Example usage:
//
//	cfg := matcher.DefaultRunConfig()
//	cfg.Timeout = 30 * time.Second
//
//	runner := matcher.NewRunner(nil, nil)
//	result, err := runner.Run(ctx, "acme", periodStart, periodEnd, txns, entries, cfg)
package matcher

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SimilarityAlgorithm selects the text-similarity strategy used by the
// pair scorer. Dispatch is a plain switch; adding an algorithm means adding
// a case, not registering anything.
type SimilarityAlgorithm int

const (
	// SimilarityJaccard scores token overlap of whitespace-split words.
	SimilarityJaccard SimilarityAlgorithm = iota

	// SimilarityLevenshtein scores normalized edit distance.
	SimilarityLevenshtein

	// SimilarityJaroWinkler scores character transpositions with a
	// common-prefix boost, which suits short bank labels well.
	SimilarityJaroWinkler

	// SimilarityComposite takes the maximum of the three base algorithms.
	// Deterministic for fixed input.
	SimilarityComposite
)

// String returns the string representation of SimilarityAlgorithm
func (a SimilarityAlgorithm) String() string {
	switch a {
	case SimilarityJaccard:
		return "jaccard"
	case SimilarityLevenshtein:
		return "levenshtein"
	case SimilarityJaroWinkler:
		return "jaro-winkler"
	case SimilarityComposite:
		return "composite"
	default:
		return "unknown"
	}
}

// ParseSimilarityAlgorithm parses an algorithm name as used in config files
func ParseSimilarityAlgorithm(s string) (SimilarityAlgorithm, error) {
	switch s {
	case "jaccard":
		return SimilarityJaccard, nil
	case "levenshtein":
		return SimilarityLevenshtein, nil
	case "jaro-winkler", "jaro_winkler":
		return SimilarityJaroWinkler, nil
	case "composite", "advanced":
		return SimilarityComposite, nil
	default:
		return 0, fmt.Errorf("unknown similarity algorithm: %q", s)
	}
}

// ToleranceConfig describes the amount-tolerance curve. Large amounts get a
// percentage tolerance capped in absolute terms; small amounts get a
// percentage tolerance with an absolute floor. This avoids over-matching
// small amounts and under-matching large ones.
type ToleranceConfig struct {
	// LargeAmountThreshold separates "large" from "small" reference amounts
	LargeAmountThreshold decimal.Decimal `json:"large_amount_threshold"`

	// LargePercent is the fractional tolerance for large amounts (0.01 = 1%)
	LargePercent float64 `json:"large_percent"`

	// MaxAbsoluteCap caps the tolerance for large amounts
	MaxAbsoluteCap decimal.Decimal `json:"max_absolute_cap"`

	// SmallPercent is the fractional tolerance for small amounts
	SmallPercent float64 `json:"small_percent"`

	// MinAbsoluteFloor keeps the tolerance for small amounts usable
	MinAbsoluteFloor decimal.Decimal `json:"min_absolute_floor"`
}

// DateTierConfig defines the date-proximity scoring tiers, in days.
// Zero days apart is always the "exact" tier.
type DateTierConfig struct {
	GoodDays int `json:"good_days"`
	FairDays int `json:"fair_days"`
	LowDays  int `json:"low_days"`
}

// TextConfig controls the text-similarity contribution to the pair score.
// Similarity at or above Threshold adds the fixed Weight; below it adds
// nothing. There is no partial credit.
type TextConfig struct {
	Algorithm SimilarityAlgorithm `json:"algorithm"`
	Weight    float64             `json:"weight"`
	Threshold float64             `json:"threshold"`
}

// RunConfig holds every tunable of a reconciliation run. It is supplied once
// per run and treated as immutable while the run executes.
//
// Use the factory functions for common profiles:
//   - DefaultRunConfig(): balanced settings for most ledgers
//   - StrictRunConfig(): tight tolerances for critical reconciliation
//   - RelaxedRunConfig(): loose tolerances for exploratory matching
type RunConfig struct {
	Tolerance ToleranceConfig `json:"tolerance"`
	DateTiers DateTierConfig  `json:"date_tiers"`
	Text      TextConfig      `json:"text"`

	// AutoApproveThreshold is the 0-100 confidence at or above which a
	// suggestion no longer requires manual review
	AutoApproveThreshold int `json:"auto_approve_threshold"`

	// Timeout is the wall-clock budget for the whole run. Zero disables it.
	Timeout time.Duration `json:"timeout"`

	// MaxItemsPerPhase truncates the inputs of the pairwise phases.
	// Callers are expected to supply items most-recent-first; truncation
	// keeps the head of the input.
	MaxItemsPerPhase int `json:"max_items_per_phase"`

	// MaxCandidatesForGrouping bounds the candidate pool of a single
	// group search, largest magnitudes first
	MaxCandidatesForGrouping int `json:"max_candidates_for_grouping"`

	// MaxGroupSize bounds the member count of a group suggestion
	MaxGroupSize int `json:"max_group_size"`

	// MaxGroupDateRangeDays bounds how far a group candidate's date may
	// sit from the target item's date
	MaxGroupDateRangeDays int `json:"max_group_date_range_days"`

	// GroupConfidence is the fixed 0-100 confidence given to group
	// suggestions; groups always require manual review
	GroupConfidence int `json:"group_confidence"`

	// MLMinConfidence is the minimum 0-100 confidence an ML prediction
	// must report before it becomes a suggestion
	MLMinConfidence int `json:"ml_min_confidence"`
}

// DefaultRunConfig returns a configuration with sensible defaults
func DefaultRunConfig() *RunConfig {
	return &RunConfig{
		Tolerance: ToleranceConfig{
			LargeAmountThreshold: decimal.NewFromInt(100000),
			LargePercent:         0.01,
			MaxAbsoluteCap:       decimal.NewFromInt(5000),
			SmallPercent:         0.02,
			MinAbsoluteFloor:     decimal.NewFromInt(1),
		},
		DateTiers: DateTierConfig{
			GoodDays: 3,
			FairDays: 7,
			LowDays:  15,
		},
		Text: TextConfig{
			Algorithm: SimilarityComposite,
			Weight:    20,
			Threshold: 0.6,
		},
		AutoApproveThreshold:     95,
		Timeout:                  60 * time.Second,
		MaxItemsPerPhase:         5000,
		MaxCandidatesForGrouping: 20,
		MaxGroupSize:             5,
		MaxGroupDateRangeDays:    10,
		GroupConfidence:          75,
		MLMinConfidence:          80,
	}
}

// StrictRunConfig returns a configuration for strict matching
func StrictRunConfig() *RunConfig {
	cfg := DefaultRunConfig()
	cfg.Tolerance.LargePercent = 0.005
	cfg.Tolerance.MaxAbsoluteCap = decimal.NewFromInt(1000)
	cfg.Tolerance.SmallPercent = 0.005
	cfg.DateTiers = DateTierConfig{GoodDays: 1, FairDays: 3, LowDays: 7}
	cfg.Text.Threshold = 0.8
	cfg.AutoApproveThreshold = 98
	cfg.MaxGroupDateRangeDays = 5
	cfg.MLMinConfidence = 90
	return cfg
}

// RelaxedRunConfig returns a configuration for exploratory matching
func RelaxedRunConfig() *RunConfig {
	cfg := DefaultRunConfig()
	cfg.Tolerance.LargePercent = 0.02
	cfg.Tolerance.MaxAbsoluteCap = decimal.NewFromInt(20000)
	cfg.Tolerance.SmallPercent = 0.05
	cfg.DateTiers = DateTierConfig{GoodDays: 5, FairDays: 15, LowDays: 30}
	cfg.Text.Threshold = 0.4
	cfg.AutoApproveThreshold = 90
	cfg.MaxGroupSize = 8
	cfg.MaxGroupDateRangeDays = 30
	cfg.MLMinConfidence = 60
	return cfg
}

// Validate checks if the run configuration is valid
func (c *RunConfig) Validate() error {
	if c.Tolerance.LargePercent < 0 || c.Tolerance.LargePercent > 1 {
		return fmt.Errorf("large tolerance percent must be between 0 and 1: %f", c.Tolerance.LargePercent)
	}

	if c.Tolerance.SmallPercent < 0 || c.Tolerance.SmallPercent > 1 {
		return fmt.Errorf("small tolerance percent must be between 0 and 1: %f", c.Tolerance.SmallPercent)
	}

	if c.Tolerance.LargeAmountThreshold.IsNegative() {
		return fmt.Errorf("large amount threshold cannot be negative: %s", c.Tolerance.LargeAmountThreshold)
	}

	if c.Tolerance.MaxAbsoluteCap.IsNegative() || c.Tolerance.MinAbsoluteFloor.IsNegative() {
		return fmt.Errorf("tolerance cap and floor cannot be negative")
	}

	if c.DateTiers.GoodDays < 0 || c.DateTiers.FairDays < c.DateTiers.GoodDays || c.DateTiers.LowDays < c.DateTiers.FairDays {
		return fmt.Errorf("date tiers must satisfy 0 <= good <= fair <= low, got %d/%d/%d",
			c.DateTiers.GoodDays, c.DateTiers.FairDays, c.DateTiers.LowDays)
	}

	if c.Text.Threshold < 0 || c.Text.Threshold > 1 {
		return fmt.Errorf("text similarity threshold must be between 0 and 1: %f", c.Text.Threshold)
	}

	if c.Text.Weight < 0 {
		return fmt.Errorf("text similarity weight cannot be negative: %f", c.Text.Weight)
	}

	if c.AutoApproveThreshold < 0 || c.AutoApproveThreshold > 100 {
		return fmt.Errorf("auto-approve threshold must be between 0 and 100: %d", c.AutoApproveThreshold)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative: %s", c.Timeout)
	}

	if c.MaxItemsPerPhase <= 0 {
		return fmt.Errorf("max items per phase must be positive: %d", c.MaxItemsPerPhase)
	}

	if c.MaxCandidatesForGrouping < 2 {
		return fmt.Errorf("max candidates for grouping must be at least 2: %d", c.MaxCandidatesForGrouping)
	}

	if c.MaxGroupSize < 2 {
		return fmt.Errorf("max group size must be at least 2: %d", c.MaxGroupSize)
	}

	if c.MaxGroupDateRangeDays < 0 {
		return fmt.Errorf("max group date range cannot be negative: %d", c.MaxGroupDateRangeDays)
	}

	if c.GroupConfidence < 0 || c.GroupConfidence > 100 {
		return fmt.Errorf("group confidence must be between 0 and 100: %d", c.GroupConfidence)
	}

	if c.MLMinConfidence < 0 || c.MLMinConfidence > 100 {
		return fmt.Errorf("ml minimum confidence must be between 0 and 100: %d", c.MLMinConfidence)
	}

	return nil
}

// Clone creates a deep copy of the run configuration
func (c *RunConfig) Clone() *RunConfig {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// String returns a human-readable description of the configuration
func (c *RunConfig) String() string {
	return fmt.Sprintf("RunConfig{Text: %s, DateTiers: %d/%d/%d, AutoApprove: %d, Timeout: %s}",
		c.Text.Algorithm, c.DateTiers.GoodDays, c.DateTiers.FairDays, c.DateTiers.LowDays,
		c.AutoApproveThreshold, c.Timeout)
}
