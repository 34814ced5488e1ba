package parsers

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bank-reconciliation-engine/internal/models"
)

// parseAmountField parses a raw amount cell. With decimalComma set, French
// formatting is normalized first: spaces (including non-breaking ones) are
// thousand separators and the comma is the decimal mark.
func parseAmountField(value string, decimalComma bool) (decimal.Decimal, error) {
	if decimalComma {
		value = strings.ReplaceAll(value, " ", "")
		value = strings.ReplaceAll(value, " ", "")
		value = strings.ReplaceAll(value, ",", ".")
	}
	return models.ParseDecimalFromString(value)
}

// parseDateField parses a raw date cell, trying the configured format first
// and falling back to the common formats.
func parseDateField(value, format string) (time.Time, error) {
	if format != "" {
		if t, err := time.Parse(format, value); err == nil {
			return t, nil
		}
	}
	return models.ParseTimeWithFormats(value)
}
