package parsers

import (
	"context"
	"io"

	"bank-reconciliation-engine/internal/models"
	engerrors "bank-reconciliation-engine/pkg/errors"
	"bank-reconciliation-engine/pkg/logger"
)

// BankFileParser loads bank statement CSV exports
type BankFileParser struct {
	*baseParser
	config *BankFileConfig
	log    logger.Logger
}

// NewBankFileParser creates a parser for the given file mapping
func NewBankFileParser(config *BankFileConfig) (*BankFileParser, error) {
	if config == nil {
		config = DefaultBankFileConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, engerrors.ConfigurationError(engerrors.CodeInvalidConfig, "bank_file_config", err)
	}

	return &BankFileParser{
		baseParser: newBaseParser(&ParseConfig{
			HasHeader:        config.HasHeader,
			Delimiter:        config.Delimiter,
			TrimLeadingSpace: true,
			SkipEmptyRows:    true,
			ValidateEncoding: true,
		}),
		config: config,
		log:    logger.GetGlobalLogger().WithComponent("bank_file_parser"),
	}, nil
}

// ParseFile loads every parseable row of the file. Row-level problems land
// in the returned stats; only file-level problems (missing file, missing
// columns, bad encoding) fail the call.
func (p *BankFileParser) ParseFile(ctx context.Context, path string) ([]*models.BankTransaction, *ParseStats, error) {
	p.log.WithField("file_path", path).Info("Parsing bank statement file")

	file, reader, err := p.openFile(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	pc := newParseContext(ctx)
	stats := &ParseStats{}

	required := []string{
		p.config.columnName("id"),
		p.config.columnName("date"),
		p.config.columnName("amount"),
	}
	if err := p.readHeaders(reader, pc, path, required); err != nil {
		return nil, stats, err
	}

	var txns []*models.BankTransaction
	for {
		if pc.cancelled() {
			return txns, stats, engerrors.InternalError("bank file parsing", pc.ctx.Err())
		}

		record, err := p.readRecord(reader, pc)
		if err != nil {
			if err == io.EOF {
				break
			}
			stats.AddError(&ParseError{Line: pc.lineNumber + 1, Field: "record", Message: "unreadable row", Err: err})
			continue
		}
		stats.RecordsParsed++

		tx, rowErr := p.transactionFromRecord(record, pc)
		if rowErr != nil {
			stats.AddError(rowErr)
			continue
		}
		if err := tx.Validate(); err != nil {
			stats.AddError(&ParseError{Line: pc.lineNumber, Field: "record", Message: "invalid transaction", Err: err})
			continue
		}

		stats.RecordsValid++
		txns = append(txns, tx)
	}

	p.log.WithFields(logger.Fields{
		"file_path": path,
		"valid":     stats.RecordsValid,
		"errors":    stats.ErrorCount,
	}).Info("Bank statement file parsed")

	return txns, stats, nil
}

func (p *BankFileParser) transactionFromRecord(record []string, pc *parseContext) (*models.BankTransaction, *ParseError) {
	id := pc.fieldValue(record, p.config.columnName("id"))
	if id == "" {
		return nil, &ParseError{Line: pc.lineNumber, Field: p.config.columnName("id"), Message: "missing transaction id"}
	}

	rawDate := pc.fieldValue(record, p.config.columnName("date"))
	date, err := parseDateField(rawDate, p.config.DateFormat)
	if err != nil {
		return nil, &ParseError{Line: pc.lineNumber, Field: p.config.columnName("date"), Value: rawDate, Message: "unparseable date", Err: err}
	}

	rawAmount := pc.fieldValue(record, p.config.columnName("amount"))
	amount, err := parseAmountField(rawAmount, p.config.DecimalComma)
	if err != nil {
		return nil, &ParseError{Line: pc.lineNumber, Field: p.config.columnName("amount"), Value: rawAmount, Message: "unparseable amount", Err: err}
	}

	return models.NewBankTransaction(
		id,
		date,
		amount,
		pc.fieldValue(record, p.config.columnName("description")),
		pc.fieldValue(record, p.config.columnName("reference")),
	), nil
}
