package matcher

import (
	"sort"
	"testing"
	"time"

	"bank-reconciliation-engine/internal/models"
)

func runNToOne(t *testing.T, cfg *RunConfig, txns []*models.BankTransaction, entries []*models.LedgerEntry) (*SuggestionLedger, int) {
	t.Helper()

	ledger := NewSuggestionLedger()
	matched, timedOut, err := NewGroupMatcher(cfg).RunNToOne(txns, entries, ledger, NewTimeoutGuard(0))
	if err != nil {
		t.Fatalf("Group run failed: %v", err)
	}
	if timedOut {
		t.Fatal("Run without deadline must not time out")
	}
	return ledger, matched
}

func TestGroupNToOneFindsCombinedPayment(t *testing.T) {
	// Three deposits summing exactly to one ledger entry.
	txns := []*models.BankTransaction{
		testTx("BT1", day(0), 300000, "remise 1", ""),
		testTx("BT2", day(1), 300000, "remise 2", ""),
		testTx("BT3", day(2), 400000, "remise 3", ""),
	}
	entries := []*models.LedgerEntry{
		testDebitEntry("LE1", day(0), 1000000, "encaissement client", ""),
	}

	ledger, matched := runNToOne(t, DefaultRunConfig(), txns, entries)
	if matched != 1 {
		t.Fatalf("Expected 1 group match, got %d", matched)
	}

	suggestion := ledger.Ranked()[0]
	if suggestion.Kind != models.KindGroupNToOne {
		t.Errorf("Expected GROUP_N_TO_1, got %s", suggestion.Kind)
	}
	if suggestion.ConfidenceScore != 75 {
		t.Errorf("Expected fixed group confidence 75, got %d", suggestion.ConfidenceScore)
	}
	if suggestion.RequiresManualReview != true {
		t.Error("Group suggestions must require manual review")
	}

	members := append([]string(nil), suggestion.BankTransactionIDs...)
	sort.Strings(members)
	if len(members) != 3 || members[0] != "BT1" || members[1] != "BT2" || members[2] != "BT3" {
		t.Errorf("Expected all three transactions in the group, got %v", members)
	}

	for _, id := range []string{"BT1", "BT2", "BT3"} {
		if !ledger.IsBankClaimed(id) {
			t.Errorf("Group member %s must be claimed", id)
		}
	}
	if !ledger.IsLedgerClaimed("LE1") {
		t.Error("Group target must be claimed")
	}
}

func TestGroupNToOneRejectsSumOutsideTolerance(t *testing.T) {
	// The same deposits against 1,050,000: 50,000 off, far beyond the
	// 5,000 tolerance cap for a target this size.
	txns := []*models.BankTransaction{
		testTx("BT1", day(0), 300000, "", ""),
		testTx("BT2", day(1), 300000, "", ""),
		testTx("BT3", day(2), 400000, "", ""),
	}
	entries := []*models.LedgerEntry{
		testDebitEntry("LE1", day(0), 1050000, "", ""),
	}

	_, matched := runNToOne(t, DefaultRunConfig(), txns, entries)
	if matched != 0 {
		t.Errorf("Expected no group match outside tolerance, got %d", matched)
	}
}

func TestGroupRequiresAtLeastTwoMembers(t *testing.T) {
	// A single transaction covering the target alone is pairwise
	// territory, never a group.
	txns := []*models.BankTransaction{
		testTx("BT1", day(0), 1000, "", ""),
		testTx("BT2", day(0), 150, "", ""),
	}
	entries := []*models.LedgerEntry{
		testDebitEntry("LE1", day(0), 1000, "", ""),
	}

	_, matched := runNToOne(t, DefaultRunConfig(), txns, entries)
	if matched != 0 {
		t.Errorf("Expected no group for a solo cover, got %d matches", matched)
	}
}

func TestGroupFiltersCandidatesByDate(t *testing.T) {
	// BT2 sits 15 days out, beyond the 10-day group range; without it the
	// sum cannot be reached.
	txns := []*models.BankTransaction{
		testTx("BT1", day(0), 600, "", ""),
		testTx("BT2", day(15), 400, "", ""),
	}
	entries := []*models.LedgerEntry{
		testDebitEntry("LE1", day(0), 1000, "", ""),
	}

	_, matched := runNToOne(t, DefaultRunConfig(), txns, entries)
	if matched != 0 {
		t.Errorf("Expected the distant candidate to be filtered out, got %d matches", matched)
	}

	// Pulled inside the range, the group forms.
	txns[1].Date = day(8)
	_, matched = runNToOne(t, DefaultRunConfig(), txns, entries)
	if matched != 1 {
		t.Errorf("Expected a group match within the date range, got %d", matched)
	}
}

func TestGroupFiltersNoiseContributions(t *testing.T) {
	// 100 is exactly 10% of the target and gets filtered as noise even
	// though it would complete the sum.
	txns := []*models.BankTransaction{
		testTx("BT1", day(0), 500, "", ""),
		testTx("BT2", day(0), 400, "", ""),
		testTx("BT3", day(0), 100, "", ""),
	}
	entries := []*models.LedgerEntry{
		testDebitEntry("LE1", day(0), 1000, "", ""),
	}

	_, matched := runNToOne(t, DefaultRunConfig(), txns, entries)
	if matched != 0 {
		t.Errorf("Expected noise filtering to break the sum, got %d matches", matched)
	}
}

func TestGroupPrefersClosestSum(t *testing.T) {
	// Both {505, 500} and {505, 495} land within tolerance of 1000; the
	// exact sum must win.
	txns := []*models.BankTransaction{
		testTx("BT-505", day(0), 505, "", ""),
		testTx("BT-500", day(0), 500, "", ""),
		testTx("BT-495", day(0), 495, "", ""),
	}
	entries := []*models.LedgerEntry{
		testDebitEntry("LE1", day(0), 1000, "", ""),
	}

	ledger, matched := runNToOne(t, DefaultRunConfig(), txns, entries)
	if matched != 1 {
		t.Fatalf("Expected 1 group match, got %d", matched)
	}

	members := append([]string(nil), ledger.Ranked()[0].BankTransactionIDs...)
	sort.Strings(members)
	if len(members) != 2 || members[0] != "BT-495" || members[1] != "BT-505" {
		t.Errorf("Expected the exact-sum pair, got %v", members)
	}
}

func TestGroupHonorsMaxGroupSize(t *testing.T) {
	cfg := DefaultRunConfig()
	cfg.MaxGroupSize = 4

	txns := []*models.BankTransaction{
		testTx("BT1", day(0), 100, "", ""),
		testTx("BT2", day(0), 100, "", ""),
		testTx("BT3", day(0), 100, "", ""),
		testTx("BT4", day(0), 100, "", ""),
		testTx("BT5", day(0), 100, "", ""),
	}
	entries := []*models.LedgerEntry{
		testDebitEntry("LE1", day(0), 500, "", ""),
	}

	_, matched := runNToOne(t, cfg, txns, entries)
	if matched != 0 {
		t.Errorf("Expected no match with the group size capped at 4, got %d", matched)
	}

	cfg.MaxGroupSize = 5
	_, matched = runNToOne(t, cfg, txns, entries)
	if matched != 1 {
		t.Errorf("Expected a 5-member group once the cap allows it, got %d", matched)
	}
}

func TestGroupOneToNFindsSplitDeposit(t *testing.T) {
	// One bank movement settled by two ledger entries.
	txns := []*models.BankTransaction{
		testTx("BT1", day(0), 1000, "reglement groupe", ""),
	}
	entries := []*models.LedgerEntry{
		testDebitEntry("LE1", day(0), 600, "facture 1", ""),
		testDebitEntry("LE2", day(1), 400, "facture 2", ""),
	}

	ledger := NewSuggestionLedger()
	matched, timedOut, err := NewGroupMatcher(DefaultRunConfig()).RunOneToN(txns, entries, ledger, NewTimeoutGuard(0))
	if err != nil {
		t.Fatalf("Group run failed: %v", err)
	}
	if timedOut {
		t.Fatal("Run without deadline must not time out")
	}
	if matched != 1 {
		t.Fatalf("Expected 1 group match, got %d", matched)
	}

	suggestion := ledger.Ranked()[0]
	if suggestion.Kind != models.KindGroupOneToN {
		t.Errorf("Expected GROUP_1_TO_N, got %s", suggestion.Kind)
	}
	if len(suggestion.LedgerEntryIDs) != 2 {
		t.Errorf("Expected 2 ledger members, got %v", suggestion.LedgerEntryIDs)
	}
	if !ledger.IsBankClaimed("BT1") {
		t.Error("Group target must be claimed")
	}
}

func TestGroupHonorsDeadline(t *testing.T) {
	txns := []*models.BankTransaction{
		testTx("BT1", day(0), 600, "", ""),
		testTx("BT2", day(0), 400, "", ""),
	}
	entries := []*models.LedgerEntry{
		testDebitEntry("LE1", day(0), 1000, "", ""),
	}

	guard := NewTimeoutGuard(time.Nanosecond)
	time.Sleep(time.Millisecond)

	ledger := NewSuggestionLedger()
	matched, timedOut, err := NewGroupMatcher(DefaultRunConfig()).RunNToOne(txns, entries, ledger, guard)
	if err != nil {
		t.Fatalf("Group run failed: %v", err)
	}
	if !timedOut {
		t.Error("Expected the run to report a timeout")
	}
	if matched != 0 {
		t.Errorf("Expected no matches after the deadline, got %d", matched)
	}
}
