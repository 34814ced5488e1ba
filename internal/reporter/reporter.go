// Package reporter renders reconciliation run results for people and
// machines.
//
// Supported output formats:
//   - Text: human-readable sections for terminal display
//   - JSON: the full run result for programmatic consumption
//   - CSV: one row per suggestion and unmatched item, for spreadsheets
//
// A partial run (timeout fired before all phases completed) is flagged
// prominently in every format so a reviewer never mistakes a truncated
// result for a complete one.
//
// Example usage:
//
//	generator, err := reporter.NewReportGenerator(nil)
//	err = generator.GenerateReport(result, os.Stdout)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"bank-reconciliation-engine/internal/models"
)

// OutputFormat selects how a run result is rendered
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatCSV  OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatText, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ParseOutputFormat converts a user-supplied format name
func ParseOutputFormat(s string) (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	if !format.IsValid() {
		return "", fmt.Errorf("unsupported output format %q (expected text, json or csv)", s)
	}
	return format, nil
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// Detail level options
	IncludeSuggestions    bool `json:"include_suggestions"`
	IncludeUnmatchedItems bool `json:"include_unmatched_items"`
	IncludeReasonTrails   bool `json:"include_reason_trails"`

	// Text formatting options
	MaxListedItems int `json:"max_listed_items"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:                FormatText,
		IncludeSuggestions:    true,
		IncludeUnmatchedItems: true,
		IncludeReasonTrails:   false,
		MaxListedItems:        10,
		CSVDelimiter:          ',',
		CSVHeaders:            true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	if c.MaxListedItems < 1 {
		return fmt.Errorf("max listed items must be at least 1, got %d", c.MaxListedItems)
	}
	return nil
}

// ReportGenerator renders run results in the configured format
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a generator; a nil config gets defaults
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}
	return &ReportGenerator{config: config}, nil
}

// GenerateReport renders the run result to the writer
func (rg *ReportGenerator) GenerateReport(result *models.RunResult, writer io.Writer) error {
	if result == nil {
		return fmt.Errorf("run result cannot be nil")
	}

	switch rg.config.Format {
	case FormatText:
		return rg.generateTextReport(result, writer)
	case FormatJSON:
		return rg.generateJSONReport(result, writer)
	case FormatCSV:
		return rg.generateCSVReport(result, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

func (rg *ReportGenerator) generateTextReport(result *models.RunResult, writer io.Writer) error {
	fmt.Fprintf(writer, "RECONCILIATION REPORT\n")
	if result.Company != "" {
		fmt.Fprintf(writer, "Company: %s\n", result.Company)
	}
	if !result.PeriodStart.IsZero() || !result.PeriodEnd.IsZero() {
		fmt.Fprintf(writer, "Period:  %s to %s\n",
			formatPeriodBound(result.PeriodStart), formatPeriodBound(result.PeriodEnd))
	}
	fmt.Fprintf(writer, "Elapsed: %v\n\n", result.Statistics.Elapsed)

	if result.IsPartial {
		fmt.Fprintf(writer, "*** PARTIAL RESULT ***\n")
		fmt.Fprintf(writer, "The run stopped before all items were examined. Unexamined\n")
		fmt.Fprintf(writer, "items appear as unmatched; rerun with a larger time budget\n")
		fmt.Fprintf(writer, "for a complete picture.\n\n")
	}

	fmt.Fprintf(writer, "=== SUMMARY ===\n")
	rg.printSummaryTable(result, writer)
	fmt.Fprintf(writer, "\n")

	fmt.Fprintf(writer, "=== MATCH BREAKDOWN ===\n")
	rg.printBreakdownTable(&result.Statistics, writer)
	fmt.Fprintf(writer, "\n")

	if rg.config.IncludeSuggestions && len(result.Suggestions) > 0 {
		fmt.Fprintf(writer, "=== SUGGESTIONS ===\n")
		rg.printSuggestions(result.Suggestions, writer)
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeUnmatchedItems {
		if len(result.UnmatchedBankTransactions) > 0 {
			fmt.Fprintf(writer, "=== UNMATCHED BANK TRANSACTIONS ===\n")
			rg.printUnmatchedTransactions(result.UnmatchedBankTransactions, writer)
			fmt.Fprintf(writer, "\n")
		}
		if len(result.UnmatchedLedgerEntries) > 0 {
			fmt.Fprintf(writer, "=== UNMATCHED LEDGER ENTRIES ===\n")
			rg.printUnmatchedEntries(result.UnmatchedLedgerEntries, writer)
			fmt.Fprintf(writer, "\n")
		}
	}

	if len(result.Messages) > 0 {
		fmt.Fprintf(writer, "=== MESSAGES ===\n")
		for _, msg := range result.Messages {
			fmt.Fprintf(writer, "  - %s\n", msg)
		}
	}

	return nil
}

func (rg *ReportGenerator) generateJSONReport(result *models.RunResult, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func (rg *ReportGenerator) generateCSVReport(result *models.RunResult, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	defer csvWriter.Flush()

	if rg.config.CSVHeaders {
		headers := []string{
			"Type",
			"Kind",
			"Bank_Transaction_IDs",
			"Ledger_Entry_IDs",
			"Confidence_Score",
			"Confidence_Level",
			"Requires_Manual_Review",
			"Status",
			"Notes",
		}
		if err := csvWriter.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	if rg.config.IncludeSuggestions {
		for _, s := range result.Suggestions {
			record := []string{
				"Suggestion",
				s.Kind.String(),
				strings.Join(s.BankTransactionIDs, "|"),
				strings.Join(s.LedgerEntryIDs, "|"),
				strconv.Itoa(s.ConfidenceScore),
				string(s.ConfidenceLevel),
				strconv.FormatBool(s.RequiresManualReview),
				string(s.Status),
				strings.Join(s.ReasonTrail, "; "),
			}
			if err := csvWriter.Write(record); err != nil {
				return fmt.Errorf("failed to write suggestion record: %w", err)
			}
		}
	}

	if rg.config.IncludeUnmatchedItems {
		for _, u := range result.UnmatchedBankTransactions {
			record := []string{
				"Unmatched Bank Transaction",
				"",
				u.Transaction.ID,
				"",
				"",
				"",
				"",
				"",
				u.Reason,
			}
			if err := csvWriter.Write(record); err != nil {
				return fmt.Errorf("failed to write unmatched transaction record: %w", err)
			}
		}
		for _, u := range result.UnmatchedLedgerEntries {
			record := []string{
				"Unmatched Ledger Entry",
				"",
				"",
				u.Entry.ID,
				"",
				"",
				"",
				"",
				u.Reason,
			}
			if err := csvWriter.Write(record); err != nil {
				return fmt.Errorf("failed to write unmatched entry record: %w", err)
			}
		}
	}

	return nil
}

// Helper methods for text output formatting

func (rg *ReportGenerator) printSummaryTable(result *models.RunResult, writer io.Writer) {
	stats := &result.Statistics

	matchedTxns := stats.TotalBankTransactions - len(result.UnmatchedBankTransactions)
	matchedEntries := stats.TotalLedgerEntries - len(result.UnmatchedLedgerEntries)

	fmt.Fprintf(writer, "Bank Transactions:\n")
	fmt.Fprintf(writer, "  Total:     %d\n", stats.TotalBankTransactions)
	fmt.Fprintf(writer, "  Matched:   %d (%.1f%%)\n",
		matchedTxns, percentage(matchedTxns, stats.TotalBankTransactions))
	fmt.Fprintf(writer, "  Unmatched: %d (%.1f%%)\n",
		len(result.UnmatchedBankTransactions),
		percentage(len(result.UnmatchedBankTransactions), stats.TotalBankTransactions))

	fmt.Fprintf(writer, "\nLedger Entries:\n")
	fmt.Fprintf(writer, "  Total:     %d\n", stats.TotalLedgerEntries)
	fmt.Fprintf(writer, "  Matched:   %d (%.1f%%)\n",
		matchedEntries, percentage(matchedEntries, stats.TotalLedgerEntries))
	fmt.Fprintf(writer, "  Unmatched: %d (%.1f%%)\n",
		len(result.UnmatchedLedgerEntries),
		percentage(len(result.UnmatchedLedgerEntries), stats.TotalLedgerEntries))

	fmt.Fprintf(writer, "\nSuggestions:        %d\n", len(result.Suggestions))
	fmt.Fprintf(writer, "Auto-Approved:      %d\n", stats.AutoApproved)
	fmt.Fprintf(writer, "Average Confidence: %.1f\n", stats.AverageConfidence)
}

func (rg *ReportGenerator) printBreakdownTable(stats *models.RunStatistics, writer io.Writer) {
	fmt.Fprintf(writer, "Exact Matches:        %d\n", stats.ExactMatches)
	fmt.Fprintf(writer, "Probable Matches:     %d\n", stats.ProbableMatches)
	fmt.Fprintf(writer, "Payment Links:        %d\n", stats.PaymentLinkMatches)
	fmt.Fprintf(writer, "ML Predicted:         %d\n", stats.MLPredictedMatches)
	fmt.Fprintf(writer, "Group Matches:        %d\n", stats.GroupMatches)
	fmt.Fprintf(writer, "Heuristic (Bank):     %d\n", stats.HeuristicBankMatches)
	fmt.Fprintf(writer, "Heuristic (Ledger):   %d\n", stats.HeuristicGLMatches)
}

func (rg *ReportGenerator) printSuggestions(suggestions []*models.Suggestion, writer io.Writer) {
	for i, s := range suggestions {
		review := ""
		if s.RequiresManualReview {
			review = " [review]"
		}
		fmt.Fprintf(writer, "  %d. %s  %s <-> %s  confidence %d (%s)%s\n",
			i+1,
			s.Kind,
			joinOrDash(s.BankTransactionIDs),
			joinOrDash(s.LedgerEntryIDs),
			s.ConfidenceScore,
			s.ConfidenceLevel,
			review)

		if rg.config.IncludeReasonTrails {
			for _, reason := range s.ReasonTrail {
				fmt.Fprintf(writer, "       - %s\n", reason)
			}
		}

		if i+1 >= rg.config.MaxListedItems && len(suggestions) > rg.config.MaxListedItems {
			fmt.Fprintf(writer, "  ... and %d more\n", len(suggestions)-rg.config.MaxListedItems)
			break
		}
	}
}

func (rg *ReportGenerator) printUnmatchedTransactions(unmatched []models.UnmatchedBankTransaction, writer io.Writer) {
	for i, u := range unmatched {
		fmt.Fprintf(writer, "  %d. %s  %s  %s\n",
			i+1,
			u.Transaction.ID,
			u.Transaction.Amount.StringFixed(2),
			u.Transaction.Date.Format("2006-01-02"))
		fmt.Fprintf(writer, "     %s\n", u.Reason)

		if i+1 >= rg.config.MaxListedItems && len(unmatched) > rg.config.MaxListedItems {
			fmt.Fprintf(writer, "  ... and %d more\n", len(unmatched)-rg.config.MaxListedItems)
			break
		}
	}
}

func (rg *ReportGenerator) printUnmatchedEntries(unmatched []models.UnmatchedLedgerEntry, writer io.Writer) {
	for i, u := range unmatched {
		fmt.Fprintf(writer, "  %d. %s  %s  %s\n",
			i+1,
			u.Entry.ID,
			u.Entry.Magnitude().StringFixed(2),
			u.Entry.Date.Format("2006-01-02"))
		fmt.Fprintf(writer, "     %s\n", u.Reason)

		if i+1 >= rg.config.MaxListedItems && len(unmatched) > rg.config.MaxListedItems {
			fmt.Fprintf(writer, "  ... and %d more\n", len(unmatched)-rg.config.MaxListedItems)
			break
		}
	}
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(part) / float64(total) * 100.0
}

func joinOrDash(ids []string) string {
	if len(ids) == 0 {
		return "-"
	}
	return strings.Join(ids, "+")
}

func formatPeriodBound(t time.Time) string {
	if t.IsZero() {
		return "open"
	}
	return t.Format("2006-01-02")
}
