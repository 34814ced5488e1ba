package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	engerrors "bank-reconciliation-engine/pkg/errors"
)

func TestValidateFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	validFile := filepath.Join(tmpDir, "valid.csv")
	if err := os.WriteFile(validFile, []byte("test"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	tests := []struct {
		name        string
		filePath    string
		expectError bool
	}{
		{"valid file", validFile, false},
		{"empty path", "", true},
		{"non-existent file", "/non/existent/file.csv", true},
		{"directory instead of file", tmpDir, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFileExists(tt.filePath, "test file")

			if tt.expectError && err == nil {
				t.Errorf("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateMatchFlags(t *testing.T) {
	tmpDir := t.TempDir()
	bank := filepath.Join(tmpDir, "bank.csv")
	ledger := filepath.Join(tmpDir, "ledger.csv")

	if err := os.WriteFile(bank, []byte("id,date,amount\nBT-1,2024-03-15,100.00"), 0644); err != nil {
		t.Fatalf("failed to create bank file: %v", err)
	}
	if err := os.WriteFile(ledger, []byte("id,date,debit,credit\nLE-1,2024-03-15,100.00,"), 0644); err != nil {
		t.Fatalf("failed to create ledger file: %v", err)
	}

	validFlags := func() {
		viper.Set("bank-file", bank)
		viper.Set("ledger-file", ledger)
		viper.Set("company", "acme")
		viper.Set("output", "text")
	}

	tests := []struct {
		name          string
		setupFlags    func()
		expectError   bool
		errorContains string
	}{
		{
			name:        "valid flags",
			setupFlags:  validFlags,
			expectError: false,
		},
		{
			name: "missing bank file",
			setupFlags: func() {
				validFlags()
				viper.Set("bank-file", "")
			},
			expectError:   true,
			errorContains: "bank-file is required",
		},
		{
			name: "missing ledger file",
			setupFlags: func() {
				validFlags()
				viper.Set("ledger-file", "")
			},
			expectError:   true,
			errorContains: "ledger-file is required",
		},
		{
			name: "missing company",
			setupFlags: func() {
				validFlags()
				viper.Set("company", "")
			},
			expectError:   true,
			errorContains: "company is required",
		},
		{
			name: "invalid output format",
			setupFlags: func() {
				validFlags()
				viper.Set("output", "xml")
			},
			expectError:   true,
			errorContains: "unsupported output format",
		},
		{
			name: "invalid start date",
			setupFlags: func() {
				validFlags()
				viper.Set("start-date", "15/03/2024")
			},
			expectError:   true,
			errorContains: "invalid start date format",
		},
		{
			name: "start date after end date",
			setupFlags: func() {
				validFlags()
				viper.Set("start-date", "2024-03-31")
				viper.Set("end-date", "2024-03-01")
			},
			expectError:   true,
			errorContains: "start date cannot be after end date",
		},
		{
			name: "missing output directory",
			setupFlags: func() {
				validFlags()
				viper.Set("output-file", "/no/such/dir/report.json")
			},
			expectError:   true,
			errorContains: "output directory does not exist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			tt.setupFlags()

			cmd := &cobra.Command{}
			err := validateMatchFlags(cmd, []string{})

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				} else if tt.errorContains != "" && !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("expected error to contain %q, got: %v", tt.errorContains, err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestMatchCommandHelp(t *testing.T) {
	for _, flag := range []string{"bank-file", "ledger-file", "company", "profile", "timeout", "output"} {
		if matchCmd.Flags().Lookup(flag) == nil {
			t.Errorf("%s flag not found", flag)
		}
	}

	var helpOutput bytes.Buffer
	matchCmd.SetOut(&helpOutput)
	matchCmd.Help()

	helpText := helpOutput.String()
	for _, section := range []string{"Usage:", "Examples:", "Flags:", "--bank-file", "--ledger-file", "--company"} {
		if !strings.Contains(helpText, section) {
			t.Errorf("help text should contain %q", section)
		}
	}
}

func TestCLIErrorHandlerExitCodes(t *testing.T) {
	handler := &CLIErrorHandler{}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, 0},
		{"configuration error", engerrors.ConfigurationError(engerrors.CodeMissingConfig, "company", nil), 2},
		{"data error", engerrors.DataError("bad row", nil), 2},
		{"internal error", engerrors.InvariantError("bank transaction", "BT-1"), 4},
		{"plain error", os.ErrClosed, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Keep test output clean
			devNull, _ := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
			oldStderr := os.Stderr
			os.Stderr = devNull
			defer func() {
				os.Stderr = oldStderr
				devNull.Close()
			}()

			if got := handlerExit(handler, tt.err); got != tt.want {
				t.Errorf("HandleError() = %d, want %d", got, tt.want)
			}
		})
	}
}

func handlerExit(h *CLIErrorHandler, err error) int {
	if err == nil {
		return h.HandleError(nil)
	}
	if engineErr, ok := engerrors.AsEngineError(err); ok {
		return h.handleEngineError(engineErr)
	}
	return h.handleGenericError(err)
}
