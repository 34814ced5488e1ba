package cmd

import (
	"fmt"
	"os"
	"strings"

	engerrors "bank-reconciliation-engine/pkg/errors"
	"bank-reconciliation-engine/pkg/logger"

	"github.com/spf13/viper"
)

// CLIErrorHandler turns engine errors into user-facing messages and
// process exit codes
type CLIErrorHandler struct {
	log     logger.Logger
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		log:     logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
	}
}

// HandleError prints a user-friendly message and returns the exit code
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.log.WithError(err).Error("Command failed")

	if engineErr, ok := engerrors.AsEngineError(err); ok {
		return h.handleEngineError(engineErr)
	}
	return h.handleGenericError(err)
}

func (h *CLIErrorHandler) handleEngineError(err *engerrors.EngineError) int {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		fmt.Fprintf(os.Stderr, "\nContext:\n")
		for key, value := range err.Context {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", key, value)
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", err.Suggestion)
	}

	if help := categoryHelp(err.Category); help != "" {
		fmt.Fprintf(os.Stderr, "\n%s\n", help)
	}

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(os.Stderr, "\nUnderlying error: %v\n", err.Cause)
	}

	return exitCodeFor(err.Category)
}

func (h *CLIErrorHandler) handleGenericError(err error) int {
	if os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: file not found\n")
		fmt.Fprintf(os.Stderr, "Suggestion: check that the file path is correct and the file exists\n")
		return 2
	}
	if os.IsPermission(err) {
		fmt.Fprintf(os.Stderr, "Error: permission denied\n")
		fmt.Fprintf(os.Stderr, "Suggestion: check file permissions and ensure you have read access\n")
		return 2
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if !h.verbose {
		fmt.Fprintf(os.Stderr, "Run with --verbose for more details\n")
	}
	return 1
}

// exitCodeFor maps error categories to process exit codes. User-fixable
// problems exit 2, engine faults exit 4.
func exitCodeFor(category engerrors.ErrorCategory) int {
	switch category {
	case engerrors.CategoryConfiguration, engerrors.CategoryData:
		return 2
	case engerrors.CategoryMatching:
		return 3
	case engerrors.CategoryInternal:
		return 4
	default:
		return 1
	}
}

func categoryHelp(category engerrors.ErrorCategory) string {
	switch category {
	case engerrors.CategoryConfiguration:
		return strings.TrimSpace(`
Configuration help:
  - Check the flag values and any config file passed with --config
  - Run 'reconengine match --help' for the accepted values`)

	case engerrors.CategoryData:
		return strings.TrimSpace(`
Data help:
  - Check that the CSV files exist and are readable
  - Verify the delimiter and column names match the --file-format preset
  - Rows with problems are listed in the parse statistics`)

	case engerrors.CategoryInternal:
		return strings.TrimSpace(`
This looks like a bug in the engine rather than a problem with your
inputs. Rerun with --verbose and report the output.`)

	default:
		return ""
	}
}
