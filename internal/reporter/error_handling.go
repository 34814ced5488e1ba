package reporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"bank-reconciliation-engine/internal/models"
	engerrors "bank-reconciliation-engine/pkg/errors"
	"bank-reconciliation-engine/pkg/logger"
)

// SafeReportGenerator wraps ReportGenerator with logging and fallbacks.
// A report is the last observable artifact of a run; failing to render it
// should degrade, not lose the run.
type SafeReportGenerator struct {
	*ReportGenerator
	log logger.Logger
}

// NewSafeReportGenerator creates a safe report generator
func NewSafeReportGenerator(config *ReportConfig, log logger.Logger) (*SafeReportGenerator, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	generator, err := NewReportGenerator(config)
	if err != nil {
		return nil, engerrors.ConfigurationError(engerrors.CodeInvalidConfig, "report_config", err)
	}

	return &SafeReportGenerator{
		ReportGenerator: generator,
		log:             log.WithComponent("reporter"),
	}, nil
}

// GenerateReportSafely renders the result, falling back to the text format
// or a backup file when the primary attempt fails.
func (srg *SafeReportGenerator) GenerateReportSafely(result *models.RunResult, writer io.Writer) error {
	if result == nil {
		return engerrors.DataError("run result cannot be nil", nil)
	}
	if writer == nil {
		return engerrors.DataError("output writer cannot be nil", nil)
	}

	srg.log.WithFields(logger.Fields{
		"format": srg.config.Format,
		"output": writerDescription(writer),
	}).Info("Generating report")

	err := srg.GenerateReport(result, writer)
	if err == nil {
		return nil
	}
	srg.log.WithError(err).Warn("Report generation failed, attempting fallback")

	if srg.config.Format != FormatText {
		if fbErr := srg.generateTextFallback(result, writer, err); fbErr == nil {
			return nil
		}
	}

	if file, ok := writer.(*os.File); ok && file.Name() != "" {
		if fbErr := srg.generateBackupFile(result, file.Name(), err); fbErr == nil {
			return nil
		}
	}

	return engerrors.InternalError("report_generation", err).
		WithSuggestion("check the output destination and report format settings")
}

// generateTextFallback retries in the text format on the same writer
func (srg *SafeReportGenerator) generateTextFallback(result *models.RunResult, writer io.Writer, originalErr error) error {
	fallbackConfig := *srg.config
	fallbackConfig.Format = FormatText

	fallback, err := NewReportGenerator(&fallbackConfig)
	if err != nil {
		return err
	}

	fmt.Fprintf(writer, "NOTE: report rendered as text after the requested format failed\n")
	fmt.Fprintf(writer, "Original error: %v\n\n", originalErr)

	if err := fallback.GenerateReport(result, writer); err != nil {
		return err
	}
	srg.log.Info("Report generated using text fallback")
	return nil
}

// generateBackupFile writes the report next to the intended file
func (srg *SafeReportGenerator) generateBackupFile(result *models.RunResult, originalPath string, originalErr error) error {
	backupPath := backupPathFor(originalPath)

	backupFile, err := os.Create(backupPath)
	if err != nil {
		return err
	}
	defer backupFile.Close()

	fmt.Fprintf(backupFile, "NOTE: report saved to backup location, original output failed\n")
	fmt.Fprintf(backupFile, "Original file: %s\n", originalPath)
	fmt.Fprintf(backupFile, "Original error: %v\n\n", originalErr)

	if err := srg.GenerateReport(result, backupFile); err != nil {
		return err
	}

	srg.log.WithFields(logger.Fields{"backup_file": backupPath}).Info("Report saved to backup file")
	fmt.Fprintf(os.Stderr, "Warning: could not write to %s, report saved to %s\n", originalPath, backupPath)
	return nil
}

func backupPathFor(originalPath string) string {
	dir := filepath.Dir(originalPath)
	base := filepath.Base(originalPath)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]
	return filepath.Join(dir, fmt.Sprintf("%s_backup%s", name, ext))
}

func writerDescription(writer io.Writer) string {
	switch w := writer.(type) {
	case *os.File:
		if w.Name() != "" {
			return fmt.Sprintf("file:%s", w.Name())
		}
		return "file:unnamed"
	default:
		return fmt.Sprintf("writer:%T", writer)
	}
}
