package reconciler

import (
	"context"

	"bank-reconciliation-engine/internal/models"
	"bank-reconciliation-engine/internal/parsers"
	"bank-reconciliation-engine/pkg/logger"
)

// FileDataSource loads both sides of a run from CSV exports on disk
type FileDataSource struct {
	bankPath   string
	ledgerPath string
	bankCfg    *parsers.BankFileConfig
	ledgerCfg  *parsers.LedgerFileConfig
	log        logger.Logger

	// stats from the most recent load, for reporting
	BankStats   *parsers.ParseStats
	LedgerStats *parsers.ParseStats
}

// NewFileDataSource creates a source over the given files. Nil configs fall
// back to the generic column layout.
func NewFileDataSource(bankPath, ledgerPath string, bankCfg *parsers.BankFileConfig, ledgerCfg *parsers.LedgerFileConfig) *FileDataSource {
	return &FileDataSource{
		bankPath:   bankPath,
		ledgerPath: ledgerPath,
		bankCfg:    bankCfg,
		ledgerCfg:  ledgerCfg,
		log:        logger.GetGlobalLogger().WithComponent("file_data_source"),
	}
}

// LoadBankTransactions parses the bank statement file. Row-level errors are
// logged and surfaced through BankStats; only file-level failures abort.
func (f *FileDataSource) LoadBankTransactions(ctx context.Context) ([]*models.BankTransaction, error) {
	parser, err := parsers.NewBankFileParser(f.bankCfg)
	if err != nil {
		return nil, err
	}

	txns, stats, err := parser.ParseFile(ctx, f.bankPath)
	if err != nil {
		return nil, err
	}
	f.BankStats = stats

	if stats.HasErrors() {
		f.log.WithFields(logger.Fields{
			"file":        f.bankPath,
			"error_count": stats.ErrorCount,
		}).Warn("Bank statement contained unparseable rows")
	}
	return txns, nil
}

// LoadLedgerEntries parses the ledger export file
func (f *FileDataSource) LoadLedgerEntries(ctx context.Context) ([]*models.LedgerEntry, error) {
	parser, err := parsers.NewLedgerFileParser(f.ledgerCfg)
	if err != nil {
		return nil, err
	}

	entries, stats, err := parser.ParseFile(ctx, f.ledgerPath)
	if err != nil {
		return nil, err
	}
	f.LedgerStats = stats

	if stats.HasErrors() {
		f.log.WithFields(logger.Fields{
			"file":        f.ledgerPath,
			"error_count": stats.ErrorCount,
		}).Warn("Ledger export contained unparseable rows")
	}
	return entries, nil
}
