package matcher

import (
	"strings"

	"bank-reconciliation-engine/internal/models"
)

// ResidualClassifier labels items left unclaimed after the pairwise and
// group phases with a heuristic explanation. The keyword tables target
// French statement wording (virement, frais, prélèvement), which is what
// this engine mostly runs against.
type ResidualClassifier struct {
	cfg *RunConfig
}

// NewResidualClassifier creates a classifier for the given config
func NewResidualClassifier(cfg *RunConfig) *ResidualClassifier {
	return &ResidualClassifier{cfg: cfg}
}

// bankHeuristic is one keyword rule for unexplained bank movements
type bankHeuristic struct {
	keywords   []string
	creditOnly bool
	debitOnly  bool
	reason     string
	confidence int
}

var bankHeuristics = []bankHeuristic{
	{
		keywords:   []string{"frais", "commission", "agios"},
		reason:     "bank fees not yet recorded in ledger",
		confidence: 85,
	},
	{
		keywords:   []string{"prelevement", "prélèvement"},
		reason:     "direct debit not yet recorded in ledger",
		confidence: 80,
	},
	{
		keywords:   []string{"virement"},
		creditOnly: true,
		reason:     "incoming transfer not yet recorded in ledger",
		confidence: 80,
	},
	{
		keywords:   []string{"virement"},
		debitOnly:  true,
		reason:     "outgoing transfer not yet recorded in ledger",
		confidence: 75,
	},
}

// ClassifyBankTransaction produces a heuristic suggestion for an unclaimed
// bank transaction, or nil when the item defies classification.
func (rc *ResidualClassifier) ClassifyBankTransaction(tx *models.BankTransaction) *models.Suggestion {
	description := strings.ToLower(tx.Description)

	for _, h := range bankHeuristics {
		if h.creditOnly && !tx.IsCredit() {
			continue
		}
		if h.debitOnly && !tx.IsDebit() {
			continue
		}
		if !containsAny(description, h.keywords) {
			continue
		}
		return rc.bankSuggestion(tx, h.reason, h.confidence)
	}

	// Fallback by sign; zero-amount movements stay unclassified.
	switch {
	case tx.IsCredit():
		return rc.bankSuggestion(tx, "credit received, no matching ledger entry", 70)
	case tx.IsDebit():
		return rc.bankSuggestion(tx, "payment issued, no matching ledger entry", 70)
	default:
		return nil
	}
}

// ClassifyLedgerEntry produces a heuristic suggestion for an unclaimed
// ledger entry, or nil when the item defies classification.
func (rc *ResidualClassifier) ClassifyLedgerEntry(entry *models.LedgerEntry) *models.Suggestion {
	haystack := strings.ToLower(entry.Description + " " + entry.Reference)

	switch {
	case containsAny(haystack, []string{"cheque", "chèque", "chq"}):
		return rc.ledgerSuggestion(entry, "cheque issued, not yet cashed by beneficiary", 85)
	case containsAny(haystack, []string{"virement"}):
		return rc.ledgerSuggestion(entry, "deposit in transit, not yet on bank statement", 80)
	case entry.IsDebit():
		return rc.ledgerSuggestion(entry, "recorded receipt not yet on bank statement", 70)
	case entry.IsCredit():
		return rc.ledgerSuggestion(entry, "recorded payment not yet on bank statement", 70)
	default:
		return nil
	}
}

func (rc *ResidualClassifier) bankSuggestion(tx *models.BankTransaction, reason string, confidence int) *models.Suggestion {
	return models.NewSuggestion(
		models.KindHeuristicBankOnly,
		[]string{tx.ID},
		nil,
		confidence,
		[]string{reason},
		rc.cfg.AutoApproveThreshold,
	)
}

func (rc *ResidualClassifier) ledgerSuggestion(entry *models.LedgerEntry, reason string, confidence int) *models.Suggestion {
	return models.NewSuggestion(
		models.KindHeuristicGLOnly,
		nil,
		[]string{entry.ID},
		confidence,
		[]string{reason},
		rc.cfg.AutoApproveThreshold,
	)
}

func containsAny(s string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}
