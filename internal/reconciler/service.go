// Package reconciler wires the matching engine to its surroundings: data
// sources, optional collaborators and suggestion persistence.
//
// The matching core in internal/matcher is deliberately pure (inputs in,
// result out); this package owns the workflow around it. RunService loads
// both sides from a DataSource, prepares them for the engine, executes a
// run and persists the outcome through a SuggestionStore. Review actions
// (apply, reject) also live here, since they touch storage rather than
// matching.
//
// Example usage:
//
//	source := reconciler.NewFileDataSource(bankPath, ledgerPath, nil, nil)
//	store := reconciler.NewInMemorySuggestionStore()
//	service := reconciler.NewRunService(source, store, reconciler.WithConfig(cfg))
//
//	result, err := service.Execute(ctx, &reconciler.RunRequest{
//		Company:     "acme",
//		PeriodStart: start,
//		PeriodEnd:   end,
//	})
package reconciler

import (
	"context"
	"sort"
	"strings"
	"time"

	"bank-reconciliation-engine/internal/matcher"
	"bank-reconciliation-engine/internal/models"
	engerrors "bank-reconciliation-engine/pkg/errors"
	"bank-reconciliation-engine/pkg/logger"
)

// DataSource supplies the two sides of a reconciliation run
type DataSource interface {
	LoadBankTransactions(ctx context.Context) ([]*models.BankTransaction, error)
	LoadLedgerEntries(ctx context.Context) ([]*models.LedgerEntry, error)
}

// RunRequest identifies one reconciliation run
type RunRequest struct {
	Company     string
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// Validate checks the request fields
func (r *RunRequest) Validate() error {
	if strings.TrimSpace(r.Company) == "" {
		return engerrors.ConfigurationError(engerrors.CodeMissingConfig, "company", nil)
	}
	if !r.PeriodStart.IsZero() && !r.PeriodEnd.IsZero() && r.PeriodEnd.Before(r.PeriodStart) {
		return engerrors.ConfigurationError(engerrors.CodeInvalidConfig, "period", nil).
			WithSuggestion("period end must not precede period start")
	}
	return nil
}

// RunService executes reconciliation runs end to end
type RunService struct {
	source    DataSource
	store     SuggestionStore
	runner    *matcher.Runner
	cfg       *matcher.RunConfig
	predictor matcher.Predictor
	linker    matcher.PaymentLinker
	log       logger.Logger
}

// Option configures a RunService
type Option func(*RunService)

// WithConfig sets the run configuration; the default profile applies
// otherwise
func WithConfig(cfg *matcher.RunConfig) Option {
	return func(s *RunService) { s.cfg = cfg }
}

// WithPredictor attaches an optional ML collaborator
func WithPredictor(p matcher.Predictor) Option {
	return func(s *RunService) { s.predictor = p }
}

// WithPaymentLinker attaches an optional payment-link collaborator
func WithPaymentLinker(l matcher.PaymentLinker) Option {
	return func(s *RunService) { s.linker = l }
}

// NewRunService creates a service over the given source and store. The
// store may be nil when results are consumed directly.
func NewRunService(source DataSource, store SuggestionStore, opts ...Option) *RunService {
	s := &RunService{
		source: source,
		store:  store,
		cfg:    matcher.DefaultRunConfig(),
		log:    logger.GetGlobalLogger().WithComponent("run_service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.runner = matcher.NewRunner(s.predictor, s.linker)
	return s
}

// Execute loads both sides, runs the engine over the request period and
// persists the result.
func (s *RunService) Execute(ctx context.Context, req *RunRequest) (*models.RunResult, error) {
	if req == nil {
		return nil, engerrors.ConfigurationError(engerrors.CodeMissingConfig, "run_request", nil)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.log.WithFields(logger.Fields{
		"company":      req.Company,
		"period_start": req.PeriodStart,
		"period_end":   req.PeriodEnd,
	}).Info("Executing reconciliation run")

	txns, err := s.source.LoadBankTransactions(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.source.LoadLedgerEntries(ctx)
	if err != nil {
		return nil, err
	}

	txns = prepareTransactions(txns, req.PeriodStart, req.PeriodEnd)
	entries = prepareEntries(entries, req.PeriodStart, req.PeriodEnd)

	result, err := s.runner.Run(ctx, req.Company, req.PeriodStart, req.PeriodEnd, txns, entries, s.cfg)
	if err != nil {
		return nil, err
	}

	if s.store != nil {
		if err := s.store.SaveRun(ctx, result); err != nil {
			// The run itself succeeded; a persistence failure must not
			// discard it.
			s.log.WithError(err).Error("Failed to persist run result")
			result.Messages = append(result.Messages, "run result could not be persisted: "+err.Error())
		}
	}

	return result, nil
}

// ApplySuggestion marks a stored suggestion as applied
func (s *RunService) ApplySuggestion(ctx context.Context, id string) error {
	return s.transition(ctx, id, func(sg *models.Suggestion) error { return sg.Apply() })
}

// RejectSuggestion marks a stored suggestion as rejected
func (s *RunService) RejectSuggestion(ctx context.Context, id string) error {
	return s.transition(ctx, id, func(sg *models.Suggestion) error { return sg.Reject() })
}

func (s *RunService) transition(ctx context.Context, id string, fn func(*models.Suggestion) error) error {
	if s.store == nil {
		return engerrors.ConfigurationError(engerrors.CodeMissingConfig, "suggestion_store", nil)
	}

	suggestion, err := s.store.GetSuggestion(ctx, id)
	if err != nil {
		return err
	}
	if err := fn(suggestion); err != nil {
		return engerrors.DataError("invalid suggestion transition", err).
			WithContext("suggestion_id", id)
	}
	return s.store.UpdateSuggestion(ctx, suggestion)
}

// prepareTransactions filters to the period and orders most-recent-first,
// which is the order the engine's truncation expects.
func prepareTransactions(txns []*models.BankTransaction, start, end time.Time) []*models.BankTransaction {
	seen := make(map[string]bool, len(txns))
	prepared := make([]*models.BankTransaction, 0, len(txns))
	for _, tx := range txns {
		if seen[tx.ID] || !withinPeriod(tx.Date, start, end) {
			continue
		}
		seen[tx.ID] = true
		prepared = append(prepared, tx)
	}

	sort.SliceStable(prepared, func(i, j int) bool {
		return prepared[i].Date.After(prepared[j].Date)
	})
	return prepared
}

func prepareEntries(entries []*models.LedgerEntry, start, end time.Time) []*models.LedgerEntry {
	seen := make(map[string]bool, len(entries))
	prepared := make([]*models.LedgerEntry, 0, len(entries))
	for _, entry := range entries {
		if seen[entry.ID] || !withinPeriod(entry.Date, start, end) {
			continue
		}
		seen[entry.ID] = true
		prepared = append(prepared, entry)
	}

	sort.SliceStable(prepared, func(i, j int) bool {
		return prepared[i].Date.After(prepared[j].Date)
	})
	return prepared
}

// withinPeriod treats zero bounds as open ends
func withinPeriod(date, start, end time.Time) bool {
	if !start.IsZero() && date.Before(start) {
		return false
	}
	if !end.IsZero() && date.After(end) {
		return false
	}
	return true
}
