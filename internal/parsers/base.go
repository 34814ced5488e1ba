// Package parsers loads bank statement and general ledger CSV files into
// the engine's input models.
//
// Real statement exports are messy: delimiters vary by bank (French exports
// favor semicolons), amounts carry currency symbols or comma decimal marks,
// dates come in several formats and headers differ per institution. The
// parsers absorb those variations through per-file configurations with
// column aliases, and collect row-level problems into ParseStats instead of
// failing the whole file on the first bad row.
//
// Example usage:
//
//	parser, err := parsers.NewBankFileParser(parsers.FrenchBankFileConfig())
//	txns, stats, err := parser.ParseFile(ctx, "releve_mars.csv")
package parsers

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	engerrors "bank-reconciliation-engine/pkg/errors"
	"bank-reconciliation-engine/pkg/logger"
)

// ParseError records one row-level problem with enough position detail to
// fix the offending cell
type ParseError struct {
	Line    int
	Field   string
	Value   string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse error at line %d (%s=%q): %s: %v",
			e.Line, e.Field, e.Value, e.Message, e.Err)
	}
	return fmt.Sprintf("parse error at line %d (%s=%q): %s",
		e.Line, e.Field, e.Value, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseConfig holds the CSV-level settings shared by both file parsers
type ParseConfig struct {
	HasHeader        bool
	Delimiter        rune
	TrimLeadingSpace bool
	SkipEmptyRows    bool
	ValidateEncoding bool
}

// DefaultParseConfig returns a configuration with sensible defaults
func DefaultParseConfig() *ParseConfig {
	return &ParseConfig{
		HasHeader:        true,
		Delimiter:        ',',
		TrimLeadingSpace: true,
		SkipEmptyRows:    true,
		ValidateEncoding: true,
	}
}

// baseParser carries the CSV plumbing both file parsers build on
type baseParser struct {
	config *ParseConfig
	log    logger.Logger
}

func newBaseParser(config *ParseConfig) *baseParser {
	if config == nil {
		config = DefaultParseConfig()
	}
	return &baseParser{
		config: config,
		log:    logger.GetGlobalLogger().WithComponent("csv_parser"),
	}
}

// parseContext holds per-file state while a parse runs
type parseContext struct {
	lineNumber int
	headers    []string
	headerIdx  map[string]int
	ctx        context.Context
}

func newParseContext(ctx context.Context) *parseContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &parseContext{
		headerIdx: make(map[string]int),
		ctx:       ctx,
	}
}

func (pc *parseContext) cancelled() bool {
	select {
	case <-pc.ctx.Done():
		return true
	default:
		return false
	}
}

// columnIndex resolves a header name case-insensitively, -1 when absent
func (pc *parseContext) columnIndex(name string) int {
	if index, ok := pc.headerIdx[name]; ok {
		return index
	}
	lower := strings.ToLower(name)
	for header, index := range pc.headerIdx {
		if strings.ToLower(header) == lower {
			return index
		}
	}
	return -1
}

// openFile opens the CSV and returns a configured reader
func (bp *baseParser) openFile(path string) (*os.File, *csv.Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, engerrors.FileError(engerrors.CodeFileNotFound, path, err).
				WithSuggestion("check the file path")
		}
		return nil, nil, engerrors.FileError(engerrors.CodeFileError, path, err)
	}

	if bp.config.ValidateEncoding {
		if err := bp.validateEncoding(file, path); err != nil {
			file.Close()
			return nil, nil, err
		}
		if _, err := file.Seek(0, 0); err != nil {
			file.Close()
			return nil, nil, engerrors.FileError(engerrors.CodeFileError, path, err)
		}
	}

	reader := csv.NewReader(file)
	reader.Comma = bp.config.Delimiter
	reader.TrimLeadingSpace = bp.config.TrimLeadingSpace
	reader.FieldsPerRecord = -1

	return file, reader, nil
}

// validateEncoding rejects files that are not valid UTF-8. Latin-1 exports
// are the usual culprit; the accented keywords the engine relies on would
// silently stop matching.
func (bp *baseParser) validateEncoding(file *os.File, path string) error {
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() && line < 100 {
		line++
		if !utf8.Valid(scanner.Bytes()) {
			return engerrors.RowError(path, line, "encoding",
				fmt.Errorf("invalid UTF-8")).
				WithSuggestion("re-export the file in UTF-8 encoding")
		}
	}
	if err := scanner.Err(); err != nil {
		return engerrors.FileError(engerrors.CodeFileError, path, err)
	}
	return nil
}

// readHeaders consumes the header row (or installs defaults when the file
// has none) and verifies the required columns are present.
func (bp *baseParser) readHeaders(reader *csv.Reader, pc *parseContext, path string, required []string) error {
	if !bp.config.HasHeader {
		pc.headers = append([]string(nil), required...)
		bp.buildHeaderIndex(pc)
		return nil
	}

	headers, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return engerrors.DataError(fmt.Sprintf("file '%s' is empty", path), nil).
				WithSuggestion("ensure the file contains a header row and data rows")
		}
		return engerrors.RowError(path, 1, "headers", err)
	}

	pc.lineNumber++
	pc.headers = make([]string, len(headers))
	for i, header := range headers {
		pc.headers[i] = strings.TrimSpace(header)
	}
	bp.buildHeaderIndex(pc)

	var missing []string
	for _, name := range required {
		if pc.columnIndex(name) == -1 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return engerrors.New(engerrors.CategoryData, engerrors.CodeMissingColumn,
			fmt.Sprintf("file '%s' is missing columns: %s", path, strings.Join(missing, ", "))).
			WithSuggestion("map the columns with aliases or fix the export").
			WithContext("available_headers", pc.headers)
	}

	return nil
}

func (bp *baseParser) buildHeaderIndex(pc *parseContext) {
	pc.headerIdx = make(map[string]int, len(pc.headers))
	for i, header := range pc.headers {
		pc.headerIdx[header] = i
	}
}

// readRecord returns the next non-empty record, io.EOF at end of file
func (bp *baseParser) readRecord(reader *csv.Reader, pc *parseContext) ([]string, error) {
	for {
		record, err := reader.Read()
		if err != nil {
			return nil, err
		}
		pc.lineNumber++

		if bp.config.SkipEmptyRows && isEmptyRecord(record) {
			continue
		}
		return record, nil
	}
}

func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// fieldValue retrieves a named field from the record, "" when the column is
// absent or the row is short
func (pc *parseContext) fieldValue(record []string, name string) string {
	index := pc.columnIndex(name)
	if index == -1 || index >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[index])
}

// ParseStats summarizes one file parse: how many rows were seen, how many
// produced a model, and what went wrong with the rest
type ParseStats struct {
	RecordsParsed int
	RecordsValid  int
	ErrorCount    int
	Errors        []*ParseError
}

// AddError records a row-level problem
func (ps *ParseStats) AddError(err *ParseError) {
	ps.Errors = append(ps.Errors, err)
	ps.ErrorCount++
}

// HasErrors reports whether any row failed to parse
func (ps *ParseStats) HasErrors() bool {
	return ps.ErrorCount > 0
}

// String returns a one-line summary
func (ps *ParseStats) String() string {
	return fmt.Sprintf("parsed %d records (%d valid), %d errors",
		ps.RecordsParsed, ps.RecordsValid, ps.ErrorCount)
}

// SampleErrors returns at most max formatted row errors for logging
func (ps *ParseStats) SampleErrors(max int) []string {
	limit := len(ps.Errors)
	if max > 0 && max < limit {
		limit = max
	}
	samples := make([]string, 0, limit)
	for i := 0; i < limit; i++ {
		samples = append(samples, ps.Errors[i].Error())
	}
	return samples
}
