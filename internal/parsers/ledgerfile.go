package parsers

import (
	"context"
	"io"

	"github.com/shopspring/decimal"

	"bank-reconciliation-engine/internal/models"
	engerrors "bank-reconciliation-engine/pkg/errors"
	"bank-reconciliation-engine/pkg/logger"
)

// LedgerFileParser loads general ledger CSV exports
type LedgerFileParser struct {
	*baseParser
	config *LedgerFileConfig
	log    logger.Logger
}

// NewLedgerFileParser creates a parser for the given file mapping
func NewLedgerFileParser(config *LedgerFileConfig) (*LedgerFileParser, error) {
	if config == nil {
		config = DefaultLedgerFileConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, engerrors.ConfigurationError(engerrors.CodeInvalidConfig, "ledger_file_config", err)
	}

	return &LedgerFileParser{
		baseParser: newBaseParser(&ParseConfig{
			HasHeader:        config.HasHeader,
			Delimiter:        config.Delimiter,
			TrimLeadingSpace: true,
			SkipEmptyRows:    true,
			ValidateEncoding: true,
		}),
		config: config,
		log:    logger.GetGlobalLogger().WithComponent("ledger_file_parser"),
	}, nil
}

// ParseFile loads every parseable row of the file, accumulating row-level
// problems in the returned stats.
func (p *LedgerFileParser) ParseFile(ctx context.Context, path string) ([]*models.LedgerEntry, *ParseStats, error) {
	p.log.WithField("file_path", path).Info("Parsing ledger file")

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
		p.config.columnName("debit"),
		p.config.columnName("credit"),
	}
	if err := p.readHeaders(reader, pc, path, required); err != nil {
		return nil, stats, err
	}

	var entries []*models.LedgerEntry
	for {
		if pc.cancelled() {
			return entries, stats, engerrors.InternalError("ledger file parsing", pc.ctx.Err())
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

		entry, rowErr := p.entryFromRecord(record, pc)
		if rowErr != nil {
			stats.AddError(rowErr)
			continue
		}
		if err := entry.Validate(); err != nil {
			stats.AddError(&ParseError{Line: pc.lineNumber, Field: "record", Message: "invalid ledger entry", Err: err})
			continue
		}

		stats.RecordsValid++
		entries = append(entries, entry)
	}

	p.log.WithFields(logger.Fields{
		"file_path": path,
		"valid":     stats.RecordsValid,
		"errors":    stats.ErrorCount,
	}).Info("Ledger file parsed")

	return entries, stats, nil
}

func (p *LedgerFileParser) entryFromRecord(record []string, pc *parseContext) (*models.LedgerEntry, *ParseError) {
	id := pc.fieldValue(record, p.config.columnName("id"))
	if id == "" {
		return nil, &ParseError{Line: pc.lineNumber, Field: p.config.columnName("id"), Message: "missing entry id"}
	}

	rawDate := pc.fieldValue(record, p.config.columnName("date"))
	date, err := parseDateField(rawDate, p.config.DateFormat)
	if err != nil {
		return nil, &ParseError{Line: pc.lineNumber, Field: p.config.columnName("date"), Value: rawDate, Message: "unparseable date", Err: err}
	}

	debit, rowErr := p.sideAmount(record, pc, "debit")
	if rowErr != nil {
		return nil, rowErr
	}
	credit, rowErr := p.sideAmount(record, pc, "credit")
	if rowErr != nil {
		return nil, rowErr
	}

	return models.NewLedgerEntry(
		id,
		date,
		debit,
		credit,
		pc.fieldValue(record, p.config.columnName("description")),
		pc.fieldValue(record, p.config.columnName("reference")),
		pc.fieldValue(record, p.config.columnName("account")),
	), nil
}

// sideAmount parses one side of the entry; an empty cell means zero, which
// is how exports leave the unused side.
func (p *LedgerFileParser) sideAmount(record []string, pc *parseContext, side string) (decimal.Decimal, *ParseError) {
	column := p.config.columnName(side)
	raw := pc.fieldValue(record, column)
	if raw == "" {
		return decimal.Zero, nil
	}

	amount, err := parseAmountField(raw, p.config.DecimalComma)
	if err != nil {
		return decimal.Zero, &ParseError{Line: pc.lineNumber, Field: column, Value: raw, Message: "unparseable amount", Err: err}
	}
	return amount, nil
}
