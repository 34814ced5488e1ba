package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"bank-reconciliation-engine/cmd/reconengine/config"
	"bank-reconciliation-engine/internal/reconciler"
	"bank-reconciliation-engine/internal/reporter"
	"bank-reconciliation-engine/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the match command
var (
	bankFile     string
	ledgerFile   string
	company      string
	fileFormat   string
	profile      string
	timeout      time.Duration
	outputFormat string
	outputFile   string
	startDate    string
	endDate      string
	withReasons  bool
)

// matchCmd represents the match command
var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match bank transactions against ledger entries",
	Long: `Match compares a bank statement export with a general ledger export
and produces reconciliation suggestions: exact and probable pairs,
grouped matches for split payments, and heuristic classifications
for the leftovers.

This command requires:
- A bank statement file (CSV format)
- A ledger export file (CSV format)

Examples:
  # Basic matching
  reconengine match --bank-file releve.csv --ledger-file grand-livre.csv --company acme

  # French exports with a period filter
  reconengine match --bank-file releve.csv --ledger-file gl.csv --company acme \
    --file-format french --start-date 2024-03-01 --end-date 2024-03-31

  # Strict profile, JSON report to a file
  reconengine match --bank-file bank.csv --ledger-file gl.csv --company acme \
    --profile strict --output json --output-file report.json

  # Disable the time budget for very large files
  reconengine match --bank-file bank.csv --ledger-file gl.csv --company acme --timeout -1s`,

	PreRunE: validateMatchFlags,
	RunE:    runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	// Required flags
	matchCmd.Flags().StringVarP(&bankFile, "bank-file", "b", "", "path to the bank statement CSV file (required)")
	matchCmd.Flags().StringVarP(&ledgerFile, "ledger-file", "l", "", "path to the ledger export CSV file (required)")
	matchCmd.Flags().StringVarP(&company, "company", "c", "", "company identifier for the run (required)")

	// Input format flags
	matchCmd.Flags().StringVar(&fileFormat, "file-format", config.PresetGeneric, "file format preset: generic, french")

	// Matching configuration flags
	matchCmd.Flags().StringVarP(&profile, "profile", "p", config.ProfileDefault, "matching profile: default, strict, relaxed")
	matchCmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "time budget for the run (0 keeps the profile default, negative disables)")

	// Period filtering flags
	matchCmd.Flags().StringVar(&startDate, "start-date", "", "period start (YYYY-MM-DD)")
	matchCmd.Flags().StringVar(&endDate, "end-date", "", "period end (YYYY-MM-DD)")

	// Output flags
	matchCmd.Flags().StringVarP(&outputFormat, "output", "f", "text", "output format: text, json, csv")
	matchCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")
	matchCmd.Flags().BoolVar(&withReasons, "with-reasons", false, "include suggestion reason trails in the report")

	matchCmd.MarkFlagRequired("bank-file")
	matchCmd.MarkFlagRequired("ledger-file")
	matchCmd.MarkFlagRequired("company")

	// Bind flags to viper so config files and env can override
	viper.BindPFlag("bank-file", matchCmd.Flags().Lookup("bank-file"))
	viper.BindPFlag("ledger-file", matchCmd.Flags().Lookup("ledger-file"))
	viper.BindPFlag("company", matchCmd.Flags().Lookup("company"))
	viper.BindPFlag("file-format", matchCmd.Flags().Lookup("file-format"))
	viper.BindPFlag("profile", matchCmd.Flags().Lookup("profile"))
	viper.BindPFlag("timeout", matchCmd.Flags().Lookup("timeout"))
	viper.BindPFlag("start-date", matchCmd.Flags().Lookup("start-date"))
	viper.BindPFlag("end-date", matchCmd.Flags().Lookup("end-date"))
	viper.BindPFlag("output", matchCmd.Flags().Lookup("output"))
	viper.BindPFlag("output-file", matchCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("with-reasons", matchCmd.Flags().Lookup("with-reasons"))
}

func validateMatchFlags(cmd *cobra.Command, args []string) error {
	// Viper values win so a config file can override defaults
	bankFile = viper.GetString("bank-file")
	ledgerFile = viper.GetString("ledger-file")
	company = viper.GetString("company")
	fileFormat = viper.GetString("file-format")
	profile = viper.GetString("profile")
	timeout = viper.GetDuration("timeout")
	startDate = viper.GetString("start-date")
	endDate = viper.GetString("end-date")
	outputFormat = viper.GetString("output")
	outputFile = viper.GetString("output-file")
	withReasons = viper.GetBool("with-reasons")

	if bankFile == "" {
		return fmt.Errorf("bank-file is required")
	}
	if ledgerFile == "" {
		return fmt.Errorf("ledger-file is required")
	}
	if company == "" {
		return fmt.Errorf("company is required")
	}

	if err := validateFileExists(bankFile, "bank statement file"); err != nil {
		return err
	}
	if err := validateFileExists(ledgerFile, "ledger export file"); err != nil {
		return err
	}

	if _, err := reporter.ParseOutputFormat(outputFormat); err != nil {
		return err
	}

	if startDate != "" {
		if _, err := time.Parse("2006-01-02", startDate); err != nil {
			return fmt.Errorf("invalid start date format, use YYYY-MM-DD: %w", err)
		}
	}
	if endDate != "" {
		if _, err := time.Parse("2006-01-02", endDate); err != nil {
			return fmt.Errorf("invalid end date format, use YYYY-MM-DD: %w", err)
		}
	}
	if startDate != "" && endDate != "" {
		start, _ := time.Parse("2006-01-02", startDate)
		end, _ := time.Parse("2006-01-02", endDate)
		if start.After(end) {
			return fmt.Errorf("start date cannot be after end date")
		}
	}

	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

func runMatch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Starting reconciliation...\n")
		fmt.Fprintf(os.Stderr, "Bank file:   %s\n", bankFile)
		fmt.Fprintf(os.Stderr, "Ledger file: %s\n", ledgerFile)
		fmt.Fprintf(os.Stderr, "Company:     %s\n", company)
		fmt.Fprintf(os.Stderr, "Profile:     %s\n", profile)
	}

	bankConfig, err := config.CreateBankFileConfig(fileFormat)
	if err != nil {
		return err
	}
	ledgerConfig, err := config.CreateLedgerFileConfig(fileFormat)
	if err != nil {
		return err
	}
	runConfig, err := config.CreateRunConfig(profile, timeout)
	if err != nil {
		return err
	}

	source := reconciler.NewFileDataSource(bankFile, ledgerFile, bankConfig, ledgerConfig)
	store := reconciler.NewInMemorySuggestionStore()
	service := reconciler.NewRunService(source, store, reconciler.WithConfig(runConfig))

	request := &reconciler.RunRequest{Company: company}
	if startDate != "" {
		request.PeriodStart, _ = time.Parse("2006-01-02", startDate)
	}
	if endDate != "" {
		end, _ := time.Parse("2006-01-02", endDate)
		// Include the whole end day
		request.PeriodEnd = end.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
	}

	result, err := service.Execute(ctx, request)
	if err != nil {
		return err
	}

	reportConfig, err := config.CreateReportConfig(outputFormat, withReasons)
	if err != nil {
		return err
	}
	generator, err := reporter.NewSafeReportGenerator(reportConfig, logger.GetGlobalLogger())
	if err != nil {
		return err
	}

	var output *os.File
	if outputFile != "" {
		output, err = os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer output.Close()
	} else {
		output = os.Stdout
	}

	if err := generator.GenerateReportSafely(result, output); err != nil {
		return err
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "\nReconciliation completed.\n")
		fmt.Fprintf(os.Stderr, "Processed %d bank transactions and %d ledger entries.\n",
			result.Statistics.TotalBankTransactions, result.Statistics.TotalLedgerEntries)
		fmt.Fprintf(os.Stderr, "Produced %d suggestions, %d auto-approved.\n",
			len(result.Suggestions), result.Statistics.AutoApproved)
		if result.IsPartial {
			fmt.Fprintf(os.Stderr, "The run was partial; rerun with a larger --timeout.\n")
		}
		fmt.Fprintf(os.Stderr, "Elapsed: %v\n", result.Statistics.Elapsed)
	}

	return nil
}
