package matcher

import (
	"testing"
	"time"

	"bank-reconciliation-engine/internal/models"

	"github.com/shopspring/decimal"
)

// day returns a fixed-period date for test fixtures, offset in days from
// 2024-03-01.
func day(offset int) time.Time {
	return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func testTx(id string, date time.Time, amount float64, description, reference string) *models.BankTransaction {
	return &models.BankTransaction{
		ID:          id,
		Date:        date,
		Amount:      decimal.NewFromFloat(amount),
		Description: description,
		Reference:   reference,
	}
}

// testDebitEntry books a positive magnitude on the debit side, which is the
// coherent counterpart of a bank credit.
func testDebitEntry(id string, date time.Time, amount float64, description, reference string) *models.LedgerEntry {
	return &models.LedgerEntry{
		ID:          id,
		Date:        date,
		DebitAmount: decimal.NewFromFloat(amount),
		Description: description,
		Reference:   reference,
		Account:     "512000",
	}
}

func testCreditEntry(id string, date time.Time, amount float64, description, reference string) *models.LedgerEntry {
	return &models.LedgerEntry{
		ID:           id,
		Date:         date,
		CreditAmount: decimal.NewFromFloat(amount),
		Description:  description,
		Reference:    reference,
		Account:      "512000",
	}
}

func TestPairScorerExactPair(t *testing.T) {
	scorer := NewPairScorer(DefaultRunConfig())

	tx := testTx("BT1", day(0), 1500, "", "")
	entry := testDebitEntry("LE1", day(0), 1500, "", "")

	score, reasons := scorer.Score(tx, entry)
	if score != 100 {
		t.Errorf("Expected score 100 for identical amount and date, got %v", score)
	}
	if !IsExact(score) {
		t.Errorf("Expected score %v to qualify as exact", score)
	}
	if len(reasons) != 2 {
		t.Errorf("Expected amount and date reasons, got %v", reasons)
	}

	// The same pair scored again must yield the same result.
	again, _ := scorer.Score(tx, entry)
	if again != score {
		t.Errorf("Scoring is not deterministic: %v then %v", score, again)
	}
}

func TestPairScorerAmountMismatchVetoes(t *testing.T) {
	scorer := NewPairScorer(DefaultRunConfig())

	// Same date, same reference, same description: none of it matters once
	// the amounts disagree beyond tolerance.
	tx := testTx("BT1", day(0), 1500, "LOYER MARS", "INV-77")
	entry := testDebitEntry("LE1", day(0), 900, "LOYER MARS", "INV-77")

	score, reasons := scorer.Score(tx, entry)
	if score != 0 {
		t.Errorf("Expected veto score 0, got %v", score)
	}
	if len(reasons) != 1 || reasons[0] != "amount mismatch" {
		t.Errorf("Expected single mismatch reason, got %v", reasons)
	}
}

func TestPairScorerDateTiers(t *testing.T) {
	scorer := NewPairScorer(DefaultRunConfig())

	tests := []struct {
		name     string
		dayDelta int
		expected float64
	}{
		{"same day", 0, 100},
		{"within good tier", 2, 90},
		{"within fair tier", 5, 75},
		{"within low tier", 12, 60},
		{"beyond low tier", 20, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := testTx("BT1", day(0), 1500, "", "")
			entry := testDebitEntry("LE1", day(tt.dayDelta), 1500, "", "")

			score, _ := scorer.Score(tx, entry)
			if score != tt.expected {
				t.Errorf("Expected score %v at %d days apart, got %v", tt.expected, tt.dayDelta, score)
			}
		})
	}
}

func TestPairScorerSignPenalty(t *testing.T) {
	scorer := NewPairScorer(DefaultRunConfig())

	tx := testTx("BT1", day(0), 1500, "", "")

	coherent := testDebitEntry("LE1", day(0), 1500, "", "")
	incoherent := testCreditEntry("LE2", day(0), 1500, "", "")

	coherentScore, _ := scorer.Score(tx, coherent)
	incoherentScore, reasons := scorer.Score(tx, incoherent)

	if incoherentScore != coherentScore-30 {
		t.Errorf("Expected sign penalty of 30, got %v vs %v", coherentScore, incoherentScore)
	}

	found := false
	for _, reason := range reasons {
		if reason == "debit/credit direction incoherent" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected incoherence reason in %v", reasons)
	}
}

func TestPairScorerSignPenaltyFullyOffsetsCloseAmount(t *testing.T) {
	scorer := NewPairScorer(DefaultRunConfig())

	// Close amount is the only contribution (date outside every tier) and
	// the incoherent direction cancels it entirely.
	tx := testTx("BT1", day(0), -200000, "", "")
	entry := testDebitEntry("LE1", day(30), 199000, "", "")

	score, _ := scorer.Score(tx, entry)
	if score != 0 {
		t.Errorf("Expected 30 close - 30 penalty = 0, got %v", score)
	}
	if IsExact(score) || IsProbable(score) {
		t.Errorf("Score %v must not reach any phase threshold", score)
	}
}

func TestPairScorerReferenceBonus(t *testing.T) {
	scorer := NewPairScorer(DefaultRunConfig())

	tests := []struct {
		name     string
		txRef    string
		entryRef string
		bonus    float64
	}{
		{"matching references", "INV-2024-017", "INV-2024-017", 10},
		{"case-insensitive match", "inv-2024-017", "INV-2024-017", 10},
		{"different references", "INV-2024-017", "INV-2024-018", 0},
		{"both empty", "", "", 0},
		{"one empty", "INV-2024-017", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := testTx("BT1", day(0), 1500, "", tt.txRef)
			entry := testDebitEntry("LE1", day(0), 1500, "", tt.entryRef)

			score, _ := scorer.Score(tx, entry)
			if score != 100+tt.bonus {
				t.Errorf("Expected score %v, got %v", 100+tt.bonus, score)
			}
		})
	}
}

func TestPairScorerTextBonus(t *testing.T) {
	cfg := DefaultRunConfig()
	scorer := NewPairScorer(cfg)

	tx := testTx("BT1", day(0), 1500, "VIREMENT LOYER MARS DUPONT", "")

	similar := testDebitEntry("LE1", day(0), 1500, "Loyer mars Dupont", "")
	dissimilar := testDebitEntry("LE2", day(0), 1500, "Achat fournitures bureau", "")

	similarScore, _ := scorer.Score(tx, similar)
	dissimilarScore, _ := scorer.Score(tx, dissimilar)

	if similarScore != 100+cfg.Text.Weight {
		t.Errorf("Expected text bonus on similar descriptions, got %v", similarScore)
	}
	if dissimilarScore != 100 {
		t.Errorf("Expected no text bonus on dissimilar descriptions, got %v", dissimilarScore)
	}
}

func TestPhaseThresholds(t *testing.T) {
	tests := []struct {
		score    float64
		exact    bool
		probable bool
	}{
		{150, true, false},
		{110, true, false},
		{100, true, false},
		{99.9, false, true},
		{95, false, true},
		{90, false, true},
		{89.9, false, false},
		{0, false, false},
		{-30, false, false},
	}

	for _, tt := range tests {
		if IsExact(tt.score) != tt.exact {
			t.Errorf("IsExact(%v) = %v, expected %v", tt.score, IsExact(tt.score), tt.exact)
		}
		if IsProbable(tt.score) != tt.probable {
			t.Errorf("IsProbable(%v) = %v, expected %v", tt.score, IsProbable(tt.score), tt.probable)
		}
	}
}

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		name     string
		a, b     time.Time
		expected int
	}{
		{"same instant", day(0), day(0), 0},
		{"same calendar day, different hours",
			time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC),
			time.Date(2024, 3, 1, 0, 1, 0, 0, time.UTC), 0},
		{"adjacent days a minute apart",
			time.Date(2024, 3, 2, 0, 0, 30, 0, time.UTC),
			time.Date(2024, 3, 1, 23, 59, 30, 0, time.UTC), 1},
		{"order does not matter", day(3), day(10), 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := daysBetween(tt.a, tt.b); got != tt.expected {
				t.Errorf("daysBetween = %d, expected %d", got, tt.expected)
			}
		})
	}
}
