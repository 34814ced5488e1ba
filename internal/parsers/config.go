package parsers

import (
	"fmt"
	"strings"
)

// BankFileConfig maps one bank's statement export onto the engine's bank
// transaction model. Aliases let the same logical column carry different
// names across institutions without touching code.
type BankFileConfig struct {
	IDColumn          string            `json:"id_column"`
	DateColumn        string            `json:"date_column"`
	AmountColumn      string            `json:"amount_column"`
	DescriptionColumn string            `json:"description_column"`
	ReferenceColumn   string            `json:"reference_column"`
	DateFormat        string            `json:"date_format,omitempty"`
	DecimalComma      bool              `json:"decimal_comma"`
	HasHeader         bool              `json:"has_header"`
	Delimiter         rune              `json:"delimiter"`
	ColumnAliases     map[string]string `json:"column_aliases,omitempty"`
}

// DefaultBankFileConfig returns the mapping for a generic comma-separated
// export with English headers
func DefaultBankFileConfig() *BankFileConfig {
	return &BankFileConfig{
		IDColumn:          "id",
		DateColumn:        "date",
		AmountColumn:      "amount",
		DescriptionColumn: "description",
		ReferenceColumn:   "reference",
		HasHeader:         true,
		Delimiter:         ',',
	}
}

// FrenchBankFileConfig returns the mapping for the semicolon-separated
// exports common to French banks, with comma decimal marks
func FrenchBankFileConfig() *BankFileConfig {
	return &BankFileConfig{
		IDColumn:          "id",
		DateColumn:        "date",
		AmountColumn:      "montant",
		DescriptionColumn: "libelle",
		ReferenceColumn:   "reference",
		DateFormat:        "02/01/2006",
		DecimalComma:      true,
		HasHeader:         true,
		Delimiter:         ';',
	}
}

// Validate checks that the required column mappings are set
func (c *BankFileConfig) Validate() error {
	for name, value := range map[string]string{
		"id column":     c.IDColumn,
		"date column":   c.DateColumn,
		"amount column": c.AmountColumn,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("bank file config: %s cannot be empty", name)
		}
	}
	return nil
}

// columnName resolves a logical column to the configured header, preferring
// an alias when one exists
func (c *BankFileConfig) columnName(logical string) string {
	if alias, ok := c.ColumnAliases[logical]; ok {
		return alias
	}
	switch logical {
	case "id":
		return c.IDColumn
	case "date":
		return c.DateColumn
	case "amount":
		return c.AmountColumn
	case "description":
		return c.DescriptionColumn
	case "reference":
		return c.ReferenceColumn
	default:
		return logical
	}
}

// LedgerFileConfig maps a general ledger export onto the engine's ledger
// entry model. Debit and credit are separate columns, as accounting systems
// export them.
type LedgerFileConfig struct {
	IDColumn          string            `json:"id_column"`
	DateColumn        string            `json:"date_column"`
	DebitColumn       string            `json:"debit_column"`
	CreditColumn      string            `json:"credit_column"`
	DescriptionColumn string            `json:"description_column"`
	ReferenceColumn   string            `json:"reference_column"`
	AccountColumn     string            `json:"account_column"`
	DateFormat        string            `json:"date_format,omitempty"`
	DecimalComma      bool              `json:"decimal_comma"`
	HasHeader         bool              `json:"has_header"`
	Delimiter         rune              `json:"delimiter"`
	ColumnAliases     map[string]string `json:"column_aliases,omitempty"`
}

// DefaultLedgerFileConfig returns the mapping for a generic ledger export
func DefaultLedgerFileConfig() *LedgerFileConfig {
	return &LedgerFileConfig{
		IDColumn:          "id",
		DateColumn:        "date",
		DebitColumn:       "debit",
		CreditColumn:      "credit",
		DescriptionColumn: "description",
		ReferenceColumn:   "reference",
		AccountColumn:     "account",
		HasHeader:         true,
		Delimiter:         ',',
	}
}

// FrenchLedgerFileConfig returns the mapping for French accounting exports
func FrenchLedgerFileConfig() *LedgerFileConfig {
	return &LedgerFileConfig{
		IDColumn:          "id",
		DateColumn:        "date",
		DebitColumn:       "debit",
		CreditColumn:      "credit",
		DescriptionColumn: "libelle",
		ReferenceColumn:   "reference",
		AccountColumn:     "compte",
		DateFormat:        "02/01/2006",
		DecimalComma:      true,
		HasHeader:         true,
		Delimiter:         ';',
	}
}

// Validate checks that the required column mappings are set
func (c *LedgerFileConfig) Validate() error {
	for name, value := range map[string]string{
		"id column":     c.IDColumn,
		"date column":   c.DateColumn,
		"debit column":  c.DebitColumn,
		"credit column": c.CreditColumn,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("ledger file config: %s cannot be empty", name)
		}
	}
	return nil
}

func (c *LedgerFileConfig) columnName(logical string) string {
	if alias, ok := c.ColumnAliases[logical]; ok {
		return alias
	}
	switch logical {
	case "id":
		return c.IDColumn
	case "date":
		return c.DateColumn
	case "debit":
		return c.DebitColumn
	case "credit":
		return c.CreditColumn
	case "description":
		return c.DescriptionColumn
	case "reference":
		return c.ReferenceColumn
	case "account":
		return c.AccountColumn
	default:
		return logical
	}
}
