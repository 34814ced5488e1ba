// Package config assembles engine, parser and reporter configurations
// from CLI-level inputs.
package config

import (
	"fmt"
	"strings"
	"time"

	"bank-reconciliation-engine/internal/matcher"
	"bank-reconciliation-engine/internal/parsers"
	"bank-reconciliation-engine/internal/reporter"
)

// Known file format presets
const (
	PresetGeneric = "generic"
	PresetFrench  = "french"
)

// Known matching profiles
const (
	ProfileDefault = "default"
	ProfileStrict  = "strict"
	ProfileRelaxed = "relaxed"
)

// CreateBankFileConfig returns the bank statement parser configuration
// for a format preset
func CreateBankFileConfig(preset string) (*parsers.BankFileConfig, error) {
	switch strings.ToLower(strings.TrimSpace(preset)) {
	case "", PresetGeneric:
		return parsers.DefaultBankFileConfig(), nil
	case PresetFrench:
		return parsers.FrenchBankFileConfig(), nil
	default:
		return nil, fmt.Errorf("unknown file format preset %q (expected generic or french)", preset)
	}
}

// CreateLedgerFileConfig returns the ledger export parser configuration
// for a format preset
func CreateLedgerFileConfig(preset string) (*parsers.LedgerFileConfig, error) {
	switch strings.ToLower(strings.TrimSpace(preset)) {
	case "", PresetGeneric:
		return parsers.DefaultLedgerFileConfig(), nil
	case PresetFrench:
		return parsers.FrenchLedgerFileConfig(), nil
	default:
		return nil, fmt.Errorf("unknown file format preset %q (expected generic or french)", preset)
	}
}

// CreateRunConfig builds the engine configuration from a matching profile
// and CLI overrides. A zero timeout keeps the profile's own budget; a
// negative timeout disables it.
func CreateRunConfig(profile string, timeout time.Duration) (*matcher.RunConfig, error) {
	var cfg *matcher.RunConfig
	switch strings.ToLower(strings.TrimSpace(profile)) {
	case "", ProfileDefault:
		cfg = matcher.DefaultRunConfig()
	case ProfileStrict:
		cfg = matcher.StrictRunConfig()
	case ProfileRelaxed:
		cfg = matcher.RelaxedRunConfig()
	default:
		return nil, fmt.Errorf("unknown matching profile %q (expected default, strict or relaxed)", profile)
	}

	if timeout < 0 {
		cfg.Timeout = 0
	} else if timeout > 0 {
		cfg.Timeout = timeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// CreateReportConfig creates a report configuration for the output format
func CreateReportConfig(format string, withReasons bool) (*reporter.ReportConfig, error) {
	parsed, err := reporter.ParseOutputFormat(format)
	if err != nil {
		return nil, err
	}

	cfg := reporter.DefaultReportConfig()
	cfg.Format = parsed
	cfg.IncludeReasonTrails = withReasons
	return cfg, nil
}
