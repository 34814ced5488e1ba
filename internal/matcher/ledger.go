package matcher

import (
	"sort"
	"strings"
	"sync"

	"bank-reconciliation-engine/internal/models"
	engerrors "bank-reconciliation-engine/pkg/errors"
)

// SuggestionLedger accumulates the suggestions of a run and owns the only
// piece of shared mutable state across phases: the claimed-id sets. Every
// mutation goes through the mutex so a parallelized phase cannot break the
// at-most-once-claimed invariant.
//
// The ledger is append-only during a run; deduplication drops a suggestion
// whose member set was already recorded.
type SuggestionLedger struct {
	mu            sync.Mutex
	suggestions   []*models.Suggestion
	claimedBank   map[string]bool
	claimedLedger map[string]bool
	seenMembers   map[string]bool
}

// NewSuggestionLedger creates an empty ledger
func NewSuggestionLedger() *SuggestionLedger {
	return &SuggestionLedger{
		claimedBank:   make(map[string]bool),
		claimedLedger: make(map[string]bool),
		seenMembers:   make(map[string]bool),
	}
}

// Append claims the suggestion's members and records it. A duplicate member
// set is dropped silently and claims nothing. A member that is already
// claimed by an earlier suggestion is a fatal internal error: it would mean
// a movement gets double-counted.
func (sl *SuggestionLedger) Append(s *models.Suggestion) error {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	key := memberKey(s)
	if sl.seenMembers[key] {
		return nil
	}

	for _, id := range s.BankTransactionIDs {
		if sl.claimedBank[id] {
			return engerrors.InvariantError("bank transaction", id)
		}
	}
	for _, id := range s.LedgerEntryIDs {
		if sl.claimedLedger[id] {
			return engerrors.InvariantError("ledger entry", id)
		}
	}

	for _, id := range s.BankTransactionIDs {
		sl.claimedBank[id] = true
	}
	for _, id := range s.LedgerEntryIDs {
		sl.claimedLedger[id] = true
	}

	sl.seenMembers[key] = true
	sl.suggestions = append(sl.suggestions, s)
	return nil
}

// IsBankClaimed reports whether a bank transaction is already explained
func (sl *SuggestionLedger) IsBankClaimed(id string) bool {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.claimedBank[id]
}

// IsLedgerClaimed reports whether a ledger entry is already explained
func (sl *SuggestionLedger) IsLedgerClaimed(id string) bool {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.claimedLedger[id]
}

// Len returns the number of recorded suggestions
func (sl *SuggestionLedger) Len() int {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return len(sl.suggestions)
}

// Ranked returns the suggestions ordered by confidence, highest first.
// Ties keep insertion order, so earlier phases rank ahead of later ones.
func (sl *SuggestionLedger) Ranked() []*models.Suggestion {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	ranked := make([]*models.Suggestion, len(sl.suggestions))
	copy(ranked, sl.suggestions)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ConfidenceScore > ranked[j].ConfidenceScore
	})

	return ranked
}

func memberKey(s *models.Suggestion) string {
	bank := append([]string(nil), s.BankTransactionIDs...)
	ledger := append([]string(nil), s.LedgerEntryIDs...)
	sort.Strings(bank)
	sort.Strings(ledger)
	return strings.Join(bank, ",") + "|" + strings.Join(ledger, ",")
}
