// Command generate produces paired bank statement and ledger export CSV
// fixtures with known reconciliation outcomes. Useful for exercising the
// CLI against files of arbitrary size.
//
// Usage:
//
//	go run ./testdata/generators -output-dir fixtures -pairs 500 -seed 42
//
// The generated pair contains, in controlled proportions: exact matches,
// probable matches shifted by a few days, split payments covered by
// several statement lines, bank fees with no ledger counterpart, cheques
// with no statement counterpart, and plain orphans on both sides.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
)

type generator struct {
	rng   *rand.Rand
	start time.Time
	days  int

	bankRows   [][]string
	ledgerRows [][]string
	nextID     int
}

func main() {
	var (
		outputDir = flag.String("output-dir", "fixtures", "output directory for the generated files")
		pairs     = flag.Int("pairs", 100, "number of exact match pairs to generate")
		seed      = flag.Int64("seed", time.Now().UnixNano(), "random seed for reproducible generation")
		french    = flag.Bool("french", false, "emit French column names, semicolons and decimal commas")
	)
	flag.Parse()

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	g := &generator{
		rng:   rand.New(rand.NewSource(*seed)),
		start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		days:  28,
	}

	g.addExactPairs(*pairs)
	g.addProbablePairs(*pairs / 5)
	g.addSplitPayments(*pairs / 10)
	g.addBankFees(*pairs / 10)
	g.addCheques(*pairs / 10)
	g.addOrphans(*pairs / 10)

	bankPath := filepath.Join(*outputDir, "bank.csv")
	ledgerPath := filepath.Join(*outputDir, "ledger.csv")
	if err := g.write(bankPath, ledgerPath, *french); err != nil {
		log.Fatalf("Failed to write fixtures: %v", err)
	}

	fmt.Printf("Generated %s (%d rows) and %s (%d rows)\n",
		bankPath, len(g.bankRows), ledgerPath, len(g.ledgerRows))
	fmt.Printf("Seed used: %d\n", *seed)
}

func (g *generator) id(prefix string) string {
	g.nextID++
	return fmt.Sprintf("%s-%05d", prefix, g.nextID)
}

func (g *generator) randomDate() time.Time {
	return g.start.AddDate(0, 0, g.rng.Intn(g.days))
}

func (g *generator) randomAmount(min, max int) decimal.Decimal {
	cents := int64(min*100) + g.rng.Int63n(int64((max-min)*100))
	return decimal.New(cents, -2)
}

// addExactPairs emits same-amount same-day pairs sharing a reference
func (g *generator) addExactPairs(n int) {
	for i := 0; i < n; i++ {
		date := g.randomDate()
		amount := g.randomAmount(10, 50000)
		ref := fmt.Sprintf("INV-%04d", g.rng.Intn(10000))

		g.bank(g.id("BT"), date, amount, "Virement client", ref)
		g.ledgerDebit(g.id("LE"), date, amount, "Facture client", ref)
	}
}

// addProbablePairs emits pairs a few days and a fraction of a percent apart
func (g *generator) addProbablePairs(n int) {
	for i := 0; i < n; i++ {
		date := g.randomDate()
		amount := g.randomAmount(100, 20000)
		drift := decimal.New(int64(g.rng.Intn(50)), -2)

		g.bank(g.id("BT"), date, amount, "Virement recu", "")
		g.ledgerDebit(g.id("LE"), date.AddDate(0, 0, 1+g.rng.Intn(2)), amount.Add(drift), "Reglement attendu", "")
	}
}

// addSplitPayments emits one ledger entry covered by several bank lines
func (g *generator) addSplitPayments(n int) {
	for i := 0; i < n; i++ {
		date := g.randomDate()
		parts := 2 + g.rng.Intn(2)

		total := decimal.Zero
		for p := 0; p < parts; p++ {
			part := g.randomAmount(1000, 5000)
			total = total.Add(part)
			g.bank(g.id("BT"), date.AddDate(0, 0, p), part, fmt.Sprintf("Virement echeance %d", p+1), "")
		}
		g.ledgerDebit(g.id("LE"), date, total, "Facture reglee en plusieurs fois", "")
	}
}

// addBankFees emits statement lines the heuristics should classify
func (g *generator) addBankFees(n int) {
	labels := []string{"FRAIS TENUE DE COMPTE", "COMMISSION CARTE", "AGIOS TRIMESTRE"}
	for i := 0; i < n; i++ {
		g.bank(g.id("BT"), g.randomDate(), g.randomAmount(1, 80).Neg(), labels[g.rng.Intn(len(labels))], "")
	}
}

// addCheques emits ledger entries the heuristics should classify
func (g *generator) addCheques(n int) {
	for i := 0; i < n; i++ {
		g.ledgerCredit(g.id("LE"), g.randomDate(), g.randomAmount(50, 2000),
			fmt.Sprintf("Cheque %d fournisseur", 1000+g.rng.Intn(9000)), "")
	}
}

// addOrphans emits items with no counterpart and no classifiable wording
func (g *generator) addOrphans(n int) {
	for i := 0; i < n; i++ {
		g.bank(g.id("BT"), g.randomDate(), g.randomAmount(10, 900), "Mouvement divers", "")
		g.ledgerDebit(g.id("LE"), g.randomDate(), g.randomAmount(10, 900), "Ecriture diverse", "")
	}
}

func (g *generator) bank(id string, date time.Time, amount decimal.Decimal, description, reference string) {
	g.bankRows = append(g.bankRows, []string{id, date.Format("2006-01-02"), amount.StringFixed(2), description, reference})
}

func (g *generator) ledgerDebit(id string, date time.Time, amount decimal.Decimal, description, reference string) {
	g.ledgerRows = append(g.ledgerRows, []string{id, date.Format("2006-01-02"), amount.StringFixed(2), "", description, reference, "411000"})
}

func (g *generator) ledgerCredit(id string, date time.Time, amount decimal.Decimal, description, reference string) {
	g.ledgerRows = append(g.ledgerRows, []string{id, date.Format("2006-01-02"), "", amount.StringFixed(2), description, reference, "401000"})
}

func (g *generator) write(bankPath, ledgerPath string, french bool) error {
	bankHeader := []string{"id", "date", "amount", "description", "reference"}
	ledgerHeader := []string{"id", "date", "debit", "credit", "description", "reference", "account"}
	delimiter := ','
	if french {
		bankHeader = []string{"id", "date", "montant", "libelle", "reference"}
		ledgerHeader = []string{"id", "date", "debit", "credit", "libelle", "reference", "compte"}
		delimiter = ';'
	}

	if err := writeCSV(bankPath, delimiter, bankHeader, g.bankRows, french); err != nil {
		return err
	}
	return writeCSV(ledgerPath, delimiter, ledgerHeader, g.ledgerRows, french)
}

func writeCSV(path string, delimiter rune, header []string, rows [][]string, decimalComma bool) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	writer.Comma = delimiter
	defer writer.Flush()

	if err := writer.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if decimalComma {
			row = frenchify(row)
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// frenchify rewrites decimal points as commas in amount-looking cells
func frenchify(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = cell
		for j := 0; j < len(cell); j++ {
			if cell[j] == '.' && j > 0 && j < len(cell)-1 && isDigit(cell[j-1]) && isDigit(cell[j+1]) {
				out[i] = cell[:j] + "," + cell[j+1:]
				break
			}
		}
	}
	return out
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
