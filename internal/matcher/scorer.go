package matcher

import (
	"fmt"
	"strings"
	"time"

	"bank-reconciliation-engine/internal/models"
)

// Scoring contributions. The raw scale is deliberately unclamped: a pair can
// reach 150 (amount 50 + date 50 + reference 10 + text weight) and can go
// negative when the sign penalty outweighs the rest. Phase thresholds compare
// against this raw scale, never against a percentage.
const (
	scoreAmountExact  = 50.0
	scoreAmountClose  = 30.0
	scoreDateExact    = 50.0
	scoreDateGood     = 40.0
	scoreDateFair     = 25.0
	scoreDateLow      = 10.0
	scoreReference    = 10.0
	signPenalty       = 30.0
	exactThreshold    = 100.0
	probableThreshold = 90.0
)

// CandidatePair is an ephemeral scored pairing of a bank transaction and a
// ledger entry. It is never persisted; accepted pairs become suggestions.
type CandidatePair struct {
	Transaction *models.BankTransaction
	Entry       *models.LedgerEntry
	Score       float64
	Reasons     []string
}

// PairScorer combines amount, date, sign, reference and text signals into a
// single confidence score with human-readable reasons.
type PairScorer struct {
	cfg     *RunConfig
	amounts *AmountComparator
}

// NewPairScorer creates a scorer for the given run configuration
func NewPairScorer(cfg *RunConfig) *PairScorer {
	return &PairScorer{
		cfg:     cfg,
		amounts: NewAmountComparator(cfg.Tolerance),
	}
}

// Score evaluates one bank transaction against one ledger entry.
//
// An amount mismatch vetoes everything else and yields score 0. Otherwise
// signals accumulate; an incoherent debit/credit direction subtracts a flat
// penalty and may push the score negative, which downstream thresholds treat
// as an ordinary (failing) score.
func (ps *PairScorer) Score(tx *models.BankTransaction, entry *models.LedgerEntry) (float64, []string) {
	var reasons []string
	score := 0.0

	switch ps.amounts.Compare(tx.Magnitude(), entry.Magnitude()) {
	case AmountExact:
		score += scoreAmountExact
		reasons = append(reasons, "exact amount match")
	case AmountClose:
		score += scoreAmountClose
		reasons = append(reasons, fmt.Sprintf("amount within tolerance (%s vs %s)",
			tx.Magnitude(), entry.Magnitude()))
	default:
		return 0, []string{"amount mismatch"}
	}

	days := daysBetween(tx.Date, entry.Date)
	switch {
	case days == 0:
		score += scoreDateExact
		reasons = append(reasons, "same date")
	case days <= ps.cfg.DateTiers.GoodDays:
		score += scoreDateGood
		reasons = append(reasons, fmt.Sprintf("date within %d days", days))
	case days <= ps.cfg.DateTiers.FairDays:
		score += scoreDateFair
		reasons = append(reasons, fmt.Sprintf("date within %d days", days))
	case days <= ps.cfg.DateTiers.LowDays:
		score += scoreDateLow
		reasons = append(reasons, fmt.Sprintf("date within %d days", days))
	}

	// A bank credit should appear as a ledger debit on the bank account,
	// and a bank debit as a ledger credit.
	coherent := (tx.IsCredit() && entry.IsDebit()) || (tx.IsDebit() && entry.IsCredit())
	if !coherent {
		score -= signPenalty
		reasons = append(reasons, "debit/credit direction incoherent")
	}

	if referenceMatches(tx.Reference, entry.Reference) {
		score += scoreReference
		reasons = append(reasons, "reference match")
	}

	// A blank description is absence of evidence, not perfect similarity.
	if strings.TrimSpace(tx.Description) != "" && strings.TrimSpace(entry.Description) != "" {
		if similarity := Similarity(ps.cfg.Text.Algorithm, tx.Description, entry.Description); similarity >= ps.cfg.Text.Threshold {
			score += ps.cfg.Text.Weight
			reasons = append(reasons, fmt.Sprintf("description similarity %.2f (%s)",
				similarity, ps.cfg.Text.Algorithm))
		}
	}

	return score, reasons
}

// IsExact reports whether a raw score reaches the phase-1 threshold
func IsExact(score float64) bool {
	return score >= exactThreshold
}

// IsProbable reports whether a raw score falls in the phase-2 band
func IsProbable(score float64) bool {
	return score >= probableThreshold && score < exactThreshold
}

func referenceMatches(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(a, b)
}

// daysBetween returns the absolute calendar-day distance between two dates,
// ignoring the time-of-day component.
func daysBetween(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)

	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return int(diff / (24 * time.Hour))
}
