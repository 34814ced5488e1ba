package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankTransaction represents a single movement on a bank statement.
// The sign convention follows the statement: positive amounts are inflows
// (credits on the account), negative amounts are outflows (debits).
// Instances are immutable inputs to a reconciliation run; the engine only
// marks them as claimed inside the run, it never mutates them.
type BankTransaction struct {
	ID          string          `json:"id"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Reference   string          `json:"reference"`
	Reconciled  bool            `json:"reconciled"`
}

// NewBankTransaction creates a new BankTransaction instance
func NewBankTransaction(id string, date time.Time, amount decimal.Decimal, description, reference string) *BankTransaction {
	return &BankTransaction{
		ID:          id,
		Date:        date,
		Amount:      amount,
		Description: description,
		Reference:   reference,
	}
}

// Validate performs basic validation on the BankTransaction
func (bt *BankTransaction) Validate() error {
	if strings.TrimSpace(bt.ID) == "" {
		return fmt.Errorf("bank transaction ID cannot be empty")
	}

	if bt.Amount.IsZero() {
		return fmt.Errorf("bank transaction amount cannot be zero")
	}

	if bt.Date.IsZero() {
		return fmt.Errorf("bank transaction date cannot be zero")
	}

	return nil
}

// IsCredit returns true if the transaction is an inflow (positive amount)
func (bt *BankTransaction) IsCredit() bool {
	return bt.Amount.IsPositive()
}

// IsDebit returns true if the transaction is an outflow (negative amount)
func (bt *BankTransaction) IsDebit() bool {
	return bt.Amount.IsNegative()
}

// Magnitude returns the absolute value of the transaction amount
func (bt *BankTransaction) Magnitude() decimal.Decimal {
	return bt.Amount.Abs()
}

// String returns a string representation of the BankTransaction
func (bt *BankTransaction) String() string {
	return fmt.Sprintf("BankTransaction{ID: %s, Date: %s, Amount: %s, Ref: %s}",
		bt.ID, bt.Date.Format("2006-01-02"), bt.Amount.String(), bt.Reference)
}

// LedgerEntry represents a recorded entry in the general ledger.
// A well-formed entry has exactly one of DebitAmount / CreditAmount non-zero.
type LedgerEntry struct {
	ID           string          `json:"id"`
	Date         time.Time       `json:"date"`
	DebitAmount  decimal.Decimal `json:"debit_amount"`
	CreditAmount decimal.Decimal `json:"credit_amount"`
	Description  string          `json:"description"`
	Reference    string          `json:"reference"`
	Account      string          `json:"account"`
}

// NewLedgerEntry creates a new LedgerEntry instance
func NewLedgerEntry(id string, date time.Time, debit, credit decimal.Decimal, description, reference, account string) *LedgerEntry {
	return &LedgerEntry{
		ID:           id,
		Date:         date,
		DebitAmount:  debit,
		CreditAmount: credit,
		Description:  description,
		Reference:    reference,
		Account:      account,
	}
}

// Validate performs basic validation on the LedgerEntry
func (le *LedgerEntry) Validate() error {
	if strings.TrimSpace(le.ID) == "" {
		return fmt.Errorf("ledger entry ID cannot be empty")
	}

	if le.DebitAmount.IsNegative() {
		return fmt.Errorf("ledger entry debit amount cannot be negative: %s", le.DebitAmount)
	}

	if le.CreditAmount.IsNegative() {
		return fmt.Errorf("ledger entry credit amount cannot be negative: %s", le.CreditAmount)
	}

	if le.DebitAmount.IsZero() == le.CreditAmount.IsZero() {
		return fmt.Errorf("ledger entry must have exactly one of debit or credit amount set")
	}

	if le.Date.IsZero() {
		return fmt.Errorf("ledger entry date cannot be zero")
	}

	return nil
}

// IsDebit returns true if the entry carries a debit amount
func (le *LedgerEntry) IsDebit() bool {
	return !le.DebitAmount.IsZero()
}

// IsCredit returns true if the entry carries a credit amount
func (le *LedgerEntry) IsCredit() bool {
	return !le.CreditAmount.IsZero()
}

// Magnitude returns the non-zero side of the entry as a positive amount
func (le *LedgerEntry) Magnitude() decimal.Decimal {
	if le.IsDebit() {
		return le.DebitAmount
	}
	return le.CreditAmount
}

// String returns a string representation of the LedgerEntry
func (le *LedgerEntry) String() string {
	return fmt.Sprintf("LedgerEntry{ID: %s, Date: %s, Debit: %s, Credit: %s, Account: %s}",
		le.ID, le.Date.Format("2006-01-02"), le.DebitAmount.String(), le.CreditAmount.String(), le.Account)
}

// SuggestionKind classifies how a suggestion was produced
type SuggestionKind string

const (
	KindSingle            SuggestionKind = "SINGLE"
	KindGroupNToOne       SuggestionKind = "GROUP_N_TO_1"
	KindGroupOneToN       SuggestionKind = "GROUP_1_TO_N"
	KindHeuristicBankOnly SuggestionKind = "HEURISTIC_BANK_ONLY"
	KindHeuristicGLOnly   SuggestionKind = "HEURISTIC_GL_ONLY"
	KindPaymentLink       SuggestionKind = "PAYMENT_LINK"
	KindMLPredicted       SuggestionKind = "ML_PREDICTED"
)

// String returns the string representation of SuggestionKind
func (k SuggestionKind) String() string {
	return string(k)
}

// IsValid checks if the suggestion kind is valid
func (k SuggestionKind) IsValid() bool {
	switch k {
	case KindSingle, KindGroupNToOne, KindGroupOneToN,
		KindHeuristicBankOnly, KindHeuristicGLOnly,
		KindPaymentLink, KindMLPredicted:
		return true
	}
	return false
}

// ConfidenceLevel buckets a numeric confidence score into a reviewer-facing label
type ConfidenceLevel string

const (
	LevelExcellent ConfidenceLevel = "EXCELLENT" // score >= 95
	LevelGood      ConfidenceLevel = "GOOD"      // score >= 80
	LevelFair      ConfidenceLevel = "FAIR"      // score >= 60
	LevelLow       ConfidenceLevel = "LOW"       // score < 60
)

// LevelForScore derives the confidence level bucket from a 0-100 score
func LevelForScore(score int) ConfidenceLevel {
	switch {
	case score >= 95:
		return LevelExcellent
	case score >= 80:
		return LevelGood
	case score >= 60:
		return LevelFair
	default:
		return LevelLow
	}
}

// SuggestionStatus tracks the review lifecycle of a suggestion
type SuggestionStatus string

const (
	StatusPending  SuggestionStatus = "PENDING"
	StatusApplied  SuggestionStatus = "APPLIED"
	StatusRejected SuggestionStatus = "REJECTED"
)

// Suggestion is a proposed reconciliation between bank transactions and
// ledger entries, produced by the matching engine and consumed by an
// external reviewer workflow.
type Suggestion struct {
	ID                   string           `json:"id"`
	Kind                 SuggestionKind   `json:"kind"`
	BankTransactionIDs   []string         `json:"bank_transaction_ids"`
	LedgerEntryIDs       []string         `json:"ledger_entry_ids"`
	ConfidenceScore      int              `json:"confidence_score"`
	ConfidenceLevel      ConfidenceLevel  `json:"confidence_level"`
	ReasonTrail          []string         `json:"reason_trail"`
	RequiresManualReview bool             `json:"requires_manual_review"`
	Status               SuggestionStatus `json:"status"`
	CreatedAt            time.Time        `json:"created_at"`
}

// NewSuggestion creates a pending suggestion with a derived confidence level.
// The raw engine score is clamped to the 0-100 presentation scale here, at
// the boundary; internal phase thresholds compare against the raw scale.
func NewSuggestion(kind SuggestionKind, bankIDs, ledgerIDs []string, score int, reasons []string, autoApproveThreshold int) *Suggestion {
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return &Suggestion{
		ID:                   uuid.NewString(),
		Kind:                 kind,
		BankTransactionIDs:   bankIDs,
		LedgerEntryIDs:       ledgerIDs,
		ConfidenceScore:      score,
		ConfidenceLevel:      LevelForScore(score),
		ReasonTrail:          reasons,
		RequiresManualReview: score < autoApproveThreshold,
		Status:               StatusPending,
		CreatedAt:            time.Now(),
	}
}

// Apply transitions a pending suggestion to APPLIED
func (s *Suggestion) Apply() error {
	if s.Status != StatusPending {
		return fmt.Errorf("cannot apply suggestion %s in status %s", s.ID, s.Status)
	}
	s.Status = StatusApplied
	return nil
}

// Reject transitions a pending suggestion to REJECTED
func (s *Suggestion) Reject() error {
	if s.Status != StatusPending {
		return fmt.Errorf("cannot reject suggestion %s in status %s", s.ID, s.Status)
	}
	s.Status = StatusRejected
	return nil
}

// MemberCount returns the total number of items on both sides of the suggestion
func (s *Suggestion) MemberCount() int {
	return len(s.BankTransactionIDs) + len(s.LedgerEntryIDs)
}

// UnmatchedBankTransaction is a bank transaction left unexplained by a run
type UnmatchedBankTransaction struct {
	Transaction *BankTransaction `json:"transaction"`
	Reason      string           `json:"reason"`
}

// UnmatchedLedgerEntry is a ledger entry left unexplained by a run
type UnmatchedLedgerEntry struct {
	Entry  *LedgerEntry `json:"entry"`
	Reason string       `json:"reason"`
}

// RunStatistics aggregates per-phase counters for a reconciliation run
type RunStatistics struct {
	TotalBankTransactions int           `json:"total_bank_transactions"`
	TotalLedgerEntries    int           `json:"total_ledger_entries"`
	ExactMatches          int           `json:"exact_matches"`
	ProbableMatches       int           `json:"probable_matches"`
	PaymentLinkMatches    int           `json:"payment_link_matches"`
	MLPredictedMatches    int           `json:"ml_predicted_matches"`
	GroupMatches          int           `json:"group_matches"`
	HeuristicBankMatches  int           `json:"heuristic_bank_matches"`
	HeuristicGLMatches    int           `json:"heuristic_gl_matches"`
	AutoApproved          int           `json:"auto_approved"`
	AverageConfidence     float64       `json:"average_confidence"`
	Elapsed               time.Duration `json:"elapsed"`
}

// RunResult is the complete outcome of one reconciliation run. A partial
// result (IsPartial) is still valid: every suggestion found before the
// timeout fired is retained.
type RunResult struct {
	Suggestions               []*Suggestion              `json:"suggestions"`
	UnmatchedBankTransactions []UnmatchedBankTransaction `json:"unmatched_bank_transactions"`
	UnmatchedLedgerEntries    []UnmatchedLedgerEntry     `json:"unmatched_ledger_entries"`
	Statistics                RunStatistics              `json:"statistics"`
	Messages                  []string                   `json:"messages"`
	IsPartial                 bool                       `json:"is_partial"`
	Company                   string                     `json:"company"`
	PeriodStart               time.Time                  `json:"period_start"`
	PeriodEnd                 time.Time                  `json:"period_end"`
}

// SuggestionsByKind groups the run's suggestions by kind for reporting
func (r *RunResult) SuggestionsByKind() map[SuggestionKind][]*Suggestion {
	byKind := make(map[SuggestionKind][]*Suggestion)
	for _, s := range r.Suggestions {
		byKind[s.Kind] = append(byKind[s.Kind], s)
	}
	return byKind
}

// ParseDecimalFromString parses a decimal value from string with validation.
// Common currency symbols and thousand separators are stripped first.
func ParseDecimalFromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	return d, nil
}

// ParseTimeWithFormats attempts to parse time from string using multiple common formats
func ParseTimeWithFormats(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("time string cannot be empty")
	}

	formats := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02",
		"02/01/2006",
		"02-01-2006",
		"2006/01/02",
		"Jan 2, 2006",
	}

	var lastErr error
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse time '%s': %w", s, lastErr)
}
