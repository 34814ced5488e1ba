package matcher

import (
	"bank-reconciliation-engine/internal/models"
	"bank-reconciliation-engine/pkg/logger"
)

// Phase identifies a pairwise matching phase
type Phase int

const (
	// PhaseExact accepts only pairs reaching the exact threshold
	PhaseExact Phase = iota

	// PhaseProbable accepts pairs in the probable band below exact
	PhaseProbable
)

// String returns the string representation of Phase
func (p Phase) String() string {
	if p == PhaseExact {
		return "exact"
	}
	return "probable"
}

func (p Phase) accepts(score float64) bool {
	if p == PhaseExact {
		return IsExact(score)
	}
	return IsProbable(score)
}

// ExactProbableMatcher runs the 1:1 pairwise scans of phases 1 and 2.
//
// The scan is greedy and first-match-wins: for each unclaimed bank
// transaction, candidates are scored in input order and the first one
// reaching the phase threshold is accepted; remaining candidates are not
// examined. This mirrors how a clerk ticks off a statement line by line and
// keeps the pairing deterministic for a given input order. It is not an
// optimal assignment.
type ExactProbableMatcher struct {
	cfg    *RunConfig
	scorer *PairScorer
	log    logger.Logger
}

// NewExactProbableMatcher creates a pairwise matcher for the given config
func NewExactProbableMatcher(cfg *RunConfig, scorer *PairScorer) *ExactProbableMatcher {
	return &ExactProbableMatcher{
		cfg:    cfg,
		scorer: scorer,
		log:    logger.GetGlobalLogger().WithComponent("pairwise_matcher"),
	}
}

// Run scans the inputs for one phase, appending SINGLE suggestions to the
// ledger and claiming their members. It returns the number of matches made
// and whether the deadline cut the scan short. Inputs beyond
// MaxItemsPerPhase are dropped from the tail; callers supply items
// most-recent-first so truncation sheds the oldest.
func (m *ExactProbableMatcher) Run(
	phase Phase,
	txns []*models.BankTransaction,
	entries []*models.LedgerEntry,
	ledger *SuggestionLedger,
	guard *TimeoutGuard,
) (int, bool, error) {

	txns = truncateTransactions(txns, m.cfg.MaxItemsPerPhase)
	entries = truncateEntries(entries, m.cfg.MaxItemsPerPhase)

	matched := 0
	for _, tx := range txns {
		if guard.Expired() {
			m.log.WithField("phase", phase.String()).Warn("Deadline reached, aborting pairwise scan")
			return matched, true, nil
		}

		if tx.Reconciled || ledger.IsBankClaimed(tx.ID) {
			continue
		}

		for _, entry := range entries {
			if ledger.IsLedgerClaimed(entry.ID) {
				continue
			}

			score, reasons := m.scorer.Score(tx, entry)
			if !phase.accepts(score) {
				continue
			}

			suggestion := models.NewSuggestion(
				models.KindSingle,
				[]string{tx.ID},
				[]string{entry.ID},
				int(score),
				reasons,
				m.cfg.AutoApproveThreshold,
			)
			if err := ledger.Append(suggestion); err != nil {
				return matched, false, err
			}

			matched++
			break
		}
	}

	m.log.WithFields(logger.Fields{
		"phase":   phase.String(),
		"matched": matched,
	}).Debug("Pairwise phase completed")

	return matched, false, nil
}

func truncateTransactions(txns []*models.BankTransaction, max int) []*models.BankTransaction {
	if len(txns) <= max {
		return txns
	}
	return txns[:max]
}

func truncateEntries(entries []*models.LedgerEntry, max int) []*models.LedgerEntry {
	if len(entries) <= max {
		return entries
	}
	return entries[:max]
}
