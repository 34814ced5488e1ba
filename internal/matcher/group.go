package matcher

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"bank-reconciliation-engine/internal/models"
	"bank-reconciliation-engine/pkg/logger"
)

// GroupMatcher handles residual amounts explainable only as a sum: several
// bank movements against one ledger entry (a combined payment, N:1) or one
// movement against several entries (a split deposit, 1:N).
//
// The subset search is a bounded depth-first walk over a truncated candidate
// pool, not an exhaustive subset-sum solver. The pool cap, the group-size
// cap and the date-range filter are the precision/performance trade-off, and
// they are all tunable through the run configuration.
type GroupMatcher struct {
	cfg     *RunConfig
	amounts *AmountComparator
	log     logger.Logger
}

// groupItem is either side of a grouping search, flattened to what the
// search needs: an id, a magnitude and a date offset from the target.
type groupItem struct {
	id        string
	magnitude decimal.Decimal
	dayDelta  int
}

// NewGroupMatcher creates a group matcher for the given config
func NewGroupMatcher(cfg *RunConfig) *GroupMatcher {
	return &GroupMatcher{
		cfg:     cfg,
		amounts: NewAmountComparator(cfg.Tolerance),
		log:     logger.GetGlobalLogger().WithComponent("group_matcher"),
	}
}

// RunNToOne searches, for each unclaimed ledger entry, a group of unclaimed
// bank transactions whose magnitudes sum to the entry's magnitude within
// tolerance. Returns matches made and whether the deadline fired.
func (gm *GroupMatcher) RunNToOne(
	txns []*models.BankTransaction,
	entries []*models.LedgerEntry,
	ledger *SuggestionLedger,
	guard *TimeoutGuard,
) (int, bool, error) {

	matched := 0
	for _, entry := range entries {
		if guard.Expired() {
			return matched, true, nil
		}

		if ledger.IsLedgerClaimed(entry.ID) {
			continue
		}

		var pool []groupItem
		for _, tx := range txns {
			if tx.Reconciled || ledger.IsBankClaimed(tx.ID) {
				continue
			}
			pool = append(pool, groupItem{
				id:        tx.ID,
				magnitude: tx.Magnitude(),
				dayDelta:  daysBetween(tx.Date, entry.Date),
			})
		}

		group := gm.findGroup(entry.Magnitude(), pool)
		if group == nil {
			continue
		}

		suggestion := models.NewSuggestion(
			models.KindGroupNToOne,
			group,
			[]string{entry.ID},
			gm.cfg.GroupConfidence,
			[]string{fmt.Sprintf("%d bank transactions sum to ledger entry amount %s within tolerance",
				len(group), entry.Magnitude())},
			gm.cfg.AutoApproveThreshold,
		)
		if err := ledger.Append(suggestion); err != nil {
			return matched, false, err
		}
		matched++
	}

	return matched, false, nil
}

// RunOneToN searches, for each unclaimed bank transaction, a group of
// unclaimed ledger entries summing to the transaction's magnitude.
func (gm *GroupMatcher) RunOneToN(
	txns []*models.BankTransaction,
	entries []*models.LedgerEntry,
	ledger *SuggestionLedger,
	guard *TimeoutGuard,
) (int, bool, error) {

	matched := 0
	for _, tx := range txns {
		if guard.Expired() {
			return matched, true, nil
		}

		if tx.Reconciled || ledger.IsBankClaimed(tx.ID) {
			continue
		}

		var pool []groupItem
		for _, entry := range entries {
			if ledger.IsLedgerClaimed(entry.ID) {
				continue
			}
			pool = append(pool, groupItem{
				id:        entry.ID,
				magnitude: entry.Magnitude(),
				dayDelta:  daysBetween(entry.Date, tx.Date),
			})
		}

		group := gm.findGroup(tx.Magnitude(), pool)
		if group == nil {
			continue
		}

		suggestion := models.NewSuggestion(
			models.KindGroupOneToN,
			[]string{tx.ID},
			group,
			gm.cfg.GroupConfidence,
			[]string{fmt.Sprintf("%d ledger entries sum to bank transaction amount %s within tolerance",
				len(group), tx.Magnitude())},
			gm.cfg.AutoApproveThreshold,
		)
		if err := ledger.Append(suggestion); err != nil {
			return matched, false, err
		}
		matched++
	}

	return matched, false, nil
}

// findGroup returns the ids of the best subset found for the target
// magnitude, or nil when no acceptable subset of size 2..MaxGroupSize
// exists within the pool bounds.
func (gm *GroupMatcher) findGroup(target decimal.Decimal, pool []groupItem) []string {
	// Noise-level contributions cannot meaningfully explain the target.
	noiseFloor := target.Div(decimal.NewFromInt(10))
	filtered := pool[:0:0]
	for _, item := range pool {
		if item.dayDelta > gm.cfg.MaxGroupDateRangeDays {
			continue
		}
		if item.magnitude.LessThanOrEqual(noiseFloor) {
			continue
		}
		filtered = append(filtered, item)
	}

	// A group needs at least two members by definition.
	if len(filtered) < 2 {
		return nil
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].magnitude.GreaterThan(filtered[j].magnitude)
	})
	if len(filtered) > gm.cfg.MaxCandidatesForGrouping {
		filtered = filtered[:gm.cfg.MaxCandidatesForGrouping]
	}

	tolerance := gm.amounts.Tolerance(target)
	search := &subsetSearch{
		items:     filtered,
		target:    target,
		tolerance: tolerance,
		maxSize:   gm.cfg.MaxGroupSize,
		bestDiff:  tolerance.Add(decimal.NewFromInt(1)),
	}
	search.walk(0, decimal.Zero, nil)

	if search.best == nil || len(search.best) < 2 {
		return nil
	}

	ids := make([]string, len(search.best))
	for i, item := range search.best {
		ids[i] = item.id
	}
	return ids
}

// subsetSearch is a depth-first subset walk bounded by the pool size and
// the maximum group size. Among subsets whose sum falls within tolerance of
// the target it keeps the one with the closest sum; an exact hit stops the
// walk early.
type subsetSearch struct {
	items     []groupItem
	target    decimal.Decimal
	tolerance decimal.Decimal
	maxSize   int
	best      []groupItem
	bestDiff  decimal.Decimal
	exactHit  bool
}

func (ss *subsetSearch) walk(index int, sum decimal.Decimal, chosen []groupItem) {
	if ss.exactHit {
		return
	}

	if len(chosen) >= 2 {
		diff := ss.target.Sub(sum).Abs()
		if diff.LessThanOrEqual(ss.tolerance) && diff.LessThan(ss.bestDiff) {
			ss.best = append([]groupItem(nil), chosen...)
			ss.bestDiff = diff
			if diff.IsZero() {
				ss.exactHit = true
				return
			}
		}
	}

	if index >= len(ss.items) || len(chosen) >= ss.maxSize {
		return
	}

	// Prune the include-branch once it overshoots target + tolerance.
	next := ss.items[index]
	withNext := sum.Add(next.magnitude)
	if withNext.Sub(ss.target).LessThanOrEqual(ss.tolerance) {
		ss.walk(index+1, withNext, append(chosen, next))
	}
	ss.walk(index+1, sum, chosen)
}
