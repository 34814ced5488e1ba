package matcher

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"bank-reconciliation-engine/internal/models"
	engerrors "bank-reconciliation-engine/pkg/errors"
	"bank-reconciliation-engine/pkg/logger"
)

// Predictor is an optional ML collaborator that ranks ledger-entry
// candidates for a bank transaction. A returned confidence is on the 0-100
// scale; a nil entry means no prediction.
type Predictor interface {
	PredictRankedLedgerEntry(ctx context.Context, tx *models.BankTransaction, candidates []*models.LedgerEntry) (*models.LedgerEntry, int, string, error)
}

// PaymentLink ties a bank transaction to an existing logical payment
// recorded outside the ledger proper.
type PaymentLink struct {
	BankTransactionID string
	PaymentID         string
	Score             int
	Amount            decimal.Decimal
	Date              time.Time
}

// PaymentLinker is an optional collaborator that surfaces existing payment
// records matching the company's bank movements.
type PaymentLinker interface {
	SuggestExistingPaymentLinks(ctx context.Context, company string) ([]PaymentLink, error)
}

// Runner sequences the matching phases of a reconciliation run, owns the
// run deadline and aggregates statistics into the final result.
//
// Phase order is fixed: exact, probable, payment links, ML predictions,
// group N:1, group 1:N, residual bank, residual ledger. The deadline is
// polled before each unit of work, not just between phases, so a large
// input cannot overrun the budget by a whole phase.
type Runner struct {
	predictor Predictor
	linker    PaymentLinker
	log       logger.Logger
}

// NewRunner creates a runner. Both collaborators are optional; pass nil to
// skip their phases.
func NewRunner(predictor Predictor, linker PaymentLinker) *Runner {
	return &Runner{
		predictor: predictor,
		linker:    linker,
		log:       logger.GetGlobalLogger().WithComponent("match_runner"),
	}
}

// Run executes one reconciliation run over the supplied inputs.
//
// The only error returns are an invalid configuration (nothing ran) and a
// claim-invariant violation (fatal, aborts the run). A timeout is not an
// error: the result carries IsPartial and an explanatory message, and every
// suggestion found before the cutoff is retained.
func (r *Runner) Run(
	ctx context.Context,
	company string,
	periodStart, periodEnd time.Time,
	txns []*models.BankTransaction,
	entries []*models.LedgerEntry,
	cfg *RunConfig,
) (*models.RunResult, error) {

	if cfg == nil {
		return nil, engerrors.ConfigurationError(engerrors.CodeMissingConfig, "run_config", nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, engerrors.ConfigurationError(engerrors.CodeInvalidConfig, "run_config", err)
	}

	r.log.WithFields(logger.Fields{
		"company":           company,
		"bank_transactions": len(txns),
		"ledger_entries":    len(entries),
		"timeout":           cfg.Timeout,
	}).Info("Starting reconciliation run")

	guard := NewTimeoutGuard(cfg.Timeout)
	timer := logger.NewPhaseTimer("reconciliation_run", r.log)
	ledger := NewSuggestionLedger()

	scorer := NewPairScorer(cfg)
	pairwise := NewExactProbableMatcher(cfg, scorer)
	groups := NewGroupMatcher(cfg)
	residual := NewResidualClassifier(cfg)

	run := &runState{
		cfg:    cfg,
		guard:  guard,
		ledger: ledger,
	}

	// Phase 1: exact pairwise matches.
	timer.Start("exact")
	if !run.expired("exact") {
		matched, timedOut, err := pairwise.Run(PhaseExact, txns, entries, ledger, guard)
		if err != nil {
			return nil, err
		}
		run.stats.ExactMatches = matched
		run.notePartial(timedOut, "exact")
	}

	// Phase 2: probable pairwise matches.
	timer.Start("probable")
	if !run.expired("probable") {
		matched, timedOut, err := pairwise.Run(PhaseProbable, txns, entries, ledger, guard)
		if err != nil {
			return nil, err
		}
		run.stats.ProbableMatches = matched
		run.notePartial(timedOut, "probable")
	}

	// Optional phase: existing payment links.
	timer.Start("payment_links")
	if r.linker != nil && !run.expired("payment links") {
		run.stats.PaymentLinkMatches = r.runPaymentLinkPhase(ctx, company, txns, run)
	}

	// Optional phase: ML predictions.
	timer.Start("ml_predictions")
	if r.predictor != nil && !run.expired("ML predictions") {
		matched, err := r.runPredictionPhase(ctx, txns, entries, run)
		if err != nil {
			return nil, err
		}
		run.stats.MLPredictedMatches = matched
	}

	// Phase 2.5: combinatorial grouping, N:1 then 1:N. An item claimed by
	// one direction is unavailable to the other.
	timer.Start("group_n_to_1")
	if !run.expired("group N:1") {
		matched, timedOut, err := groups.RunNToOne(txns, entries, ledger, guard)
		if err != nil {
			return nil, err
		}
		run.stats.GroupMatches += matched
		run.notePartial(timedOut, "group N:1")
	}

	timer.Start("group_1_to_n")
	if !run.expired("group 1:N") {
		matched, timedOut, err := groups.RunOneToN(txns, entries, ledger, guard)
		if err != nil {
			return nil, err
		}
		run.stats.GroupMatches += matched
		run.notePartial(timedOut, "group 1:N")
	}

	// Residual classification, bank side then ledger side.
	timer.Start("residual_bank")
	residualBankComplete := false
	if !run.expired("residual bank classification") {
		complete, err := r.classifyResidualBank(txns, residual, run)
		if err != nil {
			return nil, err
		}
		residualBankComplete = complete
	}

	timer.Start("residual_ledger")
	residualLedgerComplete := false
	if !run.expired("residual ledger classification") {
		complete, err := r.classifyResidualLedger(entries, residual, run)
		if err != nil {
			return nil, err
		}
		residualLedgerComplete = complete
	}
	timer.Finish()

	result := r.finalize(run, company, periodStart, periodEnd, txns, entries,
		residualBankComplete, residualLedgerComplete)

	r.log.WithFields(logger.Fields{
		"suggestions": len(result.Suggestions),
		"partial":     result.IsPartial,
		"elapsed":     guard.Elapsed(),
	}).Info("Reconciliation run finished")

	return result, nil
}

// runState carries the mutable bookkeeping of one run between phases
type runState struct {
	cfg      *RunConfig
	guard    *TimeoutGuard
	ledger   *SuggestionLedger
	stats    models.RunStatistics
	messages []string
	partial  bool
}

// expired reports whether the run deadline has fired, recording the
// partiality of the result the first time it observes it.
func (rs *runState) expired(phase string) bool {
	if !rs.guard.Expired() {
		return false
	}
	rs.notePartial(true, phase)
	return true
}

func (rs *runState) notePartial(timedOut bool, phase string) {
	if !timedOut {
		return
	}
	if !rs.partial {
		rs.messages = append(rs.messages, fmt.Sprintf(
			"time budget of %s exhausted at %s phase; remaining work skipped, results are partial",
			rs.cfg.Timeout, phase))
	}
	rs.partial = true
}

// runPaymentLinkPhase turns collaborator-provided payment links into
// bank-only suggestions. Collaborator failures (errors or panics) are
// logged and absorbed; the phase then yields nothing.
func (r *Runner) runPaymentLinkPhase(ctx context.Context, company string, txns []*models.BankTransaction, run *runState) int {
	links, err := r.safePaymentLinks(ctx, company)
	if err != nil {
		r.log.WithError(engerrors.CollaboratorError("payment_linker", err)).
			Warn("Payment-link collaborator failed, phase skipped")
		return 0
	}

	byID := make(map[string]*models.BankTransaction, len(txns))
	for _, tx := range txns {
		byID[tx.ID] = tx
	}

	matched := 0
	for _, link := range links {
		if run.guard.Expired() {
			run.notePartial(true, "payment links")
			return matched
		}

		tx, ok := byID[link.BankTransactionID]
		if !ok || tx.Reconciled || run.ledger.IsBankClaimed(tx.ID) {
			continue
		}

		suggestion := models.NewSuggestion(
			models.KindPaymentLink,
			[]string{tx.ID},
			nil,
			link.Score,
			[]string{fmt.Sprintf("existing payment %s matches this movement", link.PaymentID)},
			run.cfg.AutoApproveThreshold,
		)
		if err := run.ledger.Append(suggestion); err != nil {
			// Claims are checked before building the suggestion, so an
			// invariant failure here is a duplicate link from the
			// collaborator; drop it.
			r.log.WithError(err).Warn("Dropping conflicting payment link")
			continue
		}
		matched++
	}

	return matched
}

func (r *Runner) safePaymentLinks(ctx context.Context, company string) (links []PaymentLink, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return r.linker.SuggestExistingPaymentLinks(ctx, company)
}

// runPredictionPhase asks the ML collaborator to rank candidates for each
// still-unclaimed bank transaction. Per-item failures are absorbed.
func (r *Runner) runPredictionPhase(ctx context.Context, txns []*models.BankTransaction, entries []*models.LedgerEntry, run *runState) (int, error) {
	matched := 0
	for _, tx := range txns {
		if run.guard.Expired() {
			run.notePartial(true, "ML predictions")
			return matched, nil
		}

		if tx.Reconciled || run.ledger.IsBankClaimed(tx.ID) {
			continue
		}

		var candidates []*models.LedgerEntry
		for _, entry := range entries {
			if !run.ledger.IsLedgerClaimed(entry.ID) {
				candidates = append(candidates, entry)
			}
		}
		if len(candidates) == 0 {
			return matched, nil
		}

		entry, confidence, explanation, err := r.safePredict(ctx, tx, candidates)
		if err != nil {
			r.log.WithError(engerrors.CollaboratorError("ml_predictor", err)).
				WithField("bank_transaction", tx.ID).
				Warn("Prediction failed for item, skipping")
			continue
		}
		if entry == nil || confidence < run.cfg.MLMinConfidence {
			continue
		}
		if run.ledger.IsLedgerClaimed(entry.ID) {
			continue
		}

		suggestion := models.NewSuggestion(
			models.KindMLPredicted,
			[]string{tx.ID},
			[]string{entry.ID},
			confidence,
			[]string{explanation},
			run.cfg.AutoApproveThreshold,
		)
		if err := run.ledger.Append(suggestion); err != nil {
			return matched, err
		}
		matched++
	}
	return matched, nil
}

func (r *Runner) safePredict(ctx context.Context, tx *models.BankTransaction, candidates []*models.LedgerEntry) (entry *models.LedgerEntry, confidence int, explanation string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return r.predictor.PredictRankedLedgerEntry(ctx, tx, candidates)
}

func (r *Runner) classifyResidualBank(txns []*models.BankTransaction, residual *ResidualClassifier, run *runState) (bool, error) {
	for _, tx := range txns {
		if run.guard.Expired() {
			run.notePartial(true, "residual bank classification")
			return false, nil
		}

		if tx.Reconciled || run.ledger.IsBankClaimed(tx.ID) {
			continue
		}

		suggestion := residual.ClassifyBankTransaction(tx)
		if suggestion == nil {
			continue
		}
		if err := run.ledger.Append(suggestion); err != nil {
			return false, err
		}
		run.stats.HeuristicBankMatches++
	}
	return true, nil
}

func (r *Runner) classifyResidualLedger(entries []*models.LedgerEntry, residual *ResidualClassifier, run *runState) (bool, error) {
	for _, entry := range entries {
		if run.guard.Expired() {
			run.notePartial(true, "residual ledger classification")
			return false, nil
		}

		if run.ledger.IsLedgerClaimed(entry.ID) {
			continue
		}

		suggestion := residual.ClassifyLedgerEntry(entry)
		if suggestion == nil {
			continue
		}
		if err := run.ledger.Append(suggestion); err != nil {
			return false, err
		}
		run.stats.HeuristicGLMatches++
	}
	return true, nil
}

func (r *Runner) finalize(
	run *runState,
	company string,
	periodStart, periodEnd time.Time,
	txns []*models.BankTransaction,
	entries []*models.LedgerEntry,
	residualBankComplete, residualLedgerComplete bool,
) *models.RunResult {

	suggestions := run.ledger.Ranked()

	run.stats.TotalBankTransactions = len(txns)
	run.stats.TotalLedgerEntries = len(entries)
	run.stats.Elapsed = run.guard.Elapsed()

	totalConfidence := 0
	for _, s := range suggestions {
		totalConfidence += s.ConfidenceScore
		if !s.RequiresManualReview {
			run.stats.AutoApproved++
		}
	}
	if len(suggestions) > 0 {
		run.stats.AverageConfidence = float64(totalConfidence) / float64(len(suggestions))
	}

	var unmatchedBank []models.UnmatchedBankTransaction
	for _, tx := range txns {
		if tx.Reconciled || run.ledger.IsBankClaimed(tx.ID) {
			continue
		}
		reason := "no matching ledger entry and no heuristic classification applies"
		if !residualBankComplete {
			reason = "not examined: run timed out before this item was classified"
		}
		unmatchedBank = append(unmatchedBank, models.UnmatchedBankTransaction{
			Transaction: tx,
			Reason:      reason,
		})
	}

	var unmatchedLedger []models.UnmatchedLedgerEntry
	for _, entry := range entries {
		if run.ledger.IsLedgerClaimed(entry.ID) {
			continue
		}
		reason := "no matching bank transaction and no heuristic classification applies"
		if !residualLedgerComplete {
			reason = "not examined: run timed out before this item was classified"
		}
		unmatchedLedger = append(unmatchedLedger, models.UnmatchedLedgerEntry{
			Entry:  entry,
			Reason: reason,
		})
	}

	return &models.RunResult{
		Suggestions:               suggestions,
		UnmatchedBankTransactions: unmatchedBank,
		UnmatchedLedgerEntries:    unmatchedLedger,
		Statistics:                run.stats,
		Messages:                  run.messages,
		IsPartial:                 run.partial,
		Company:                   company,
		PeriodStart:               periodStart,
		PeriodEnd:                 periodEnd,
	}
}
