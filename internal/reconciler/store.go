package reconciler

import (
	"context"
	"sync"

	"bank-reconciliation-engine/internal/models"
	engerrors "bank-reconciliation-engine/pkg/errors"
)

// SuggestionStore persists run outcomes and supports the review workflow
type SuggestionStore interface {
	SaveRun(ctx context.Context, result *models.RunResult) error
	GetSuggestion(ctx context.Context, id string) (*models.Suggestion, error)
	UpdateSuggestion(ctx context.Context, suggestion *models.Suggestion) error
	ListSuggestions(ctx context.Context, company string) ([]*models.Suggestion, error)
}

// InMemorySuggestionStore keeps runs and suggestions in process memory.
// Suitable for single-shot CLI runs and for tests.
type InMemorySuggestionStore struct {
	mu          sync.RWMutex
	runs        map[string]*models.RunResult // company -> latest run
	suggestions map[string]*models.Suggestion
	byCompany   map[string][]string // company -> suggestion IDs, run order
}

// NewInMemorySuggestionStore creates an empty store
func NewInMemorySuggestionStore() *InMemorySuggestionStore {
	return &InMemorySuggestionStore{
		runs:        make(map[string]*models.RunResult),
		suggestions: make(map[string]*models.Suggestion),
		byCompany:   make(map[string][]string),
	}
}

// SaveRun stores the run result and indexes its suggestions. A new run for
// the same company replaces the previous one; its suggestions stay
// addressable until overwritten by ID.
func (s *InMemorySuggestionStore) SaveRun(ctx context.Context, result *models.RunResult) error {
	if result == nil {
		return engerrors.DataError("cannot save nil run result", nil)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[result.Company] = result
	s.byCompany[result.Company] = s.byCompany[result.Company][:0]
	for _, suggestion := range result.Suggestions {
		s.suggestions[suggestion.ID] = suggestion
		s.byCompany[result.Company] = append(s.byCompany[result.Company], suggestion.ID)
	}
	return nil
}

// GetSuggestion returns the stored suggestion with the given ID
func (s *InMemorySuggestionStore) GetSuggestion(ctx context.Context, id string) (*models.Suggestion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	suggestion, ok := s.suggestions[id]
	if !ok {
		return nil, engerrors.New(engerrors.CategoryData, engerrors.CodeNotFound, "suggestion not found").
			WithContext("suggestion_id", id)
	}
	return suggestion, nil
}

// UpdateSuggestion replaces a stored suggestion
func (s *InMemorySuggestionStore) UpdateSuggestion(ctx context.Context, suggestion *models.Suggestion) error {
	if suggestion == nil {
		return engerrors.DataError("cannot update nil suggestion", nil)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.suggestions[suggestion.ID]; !ok {
		return engerrors.New(engerrors.CategoryData, engerrors.CodeNotFound, "suggestion not found").
			WithContext("suggestion_id", suggestion.ID)
	}
	s.suggestions[suggestion.ID] = suggestion
	return nil
}

// ListSuggestions returns the latest run's suggestions for a company
func (s *InMemorySuggestionStore) ListSuggestions(ctx context.Context, company string) ([]*models.Suggestion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byCompany[company]
	suggestions := make([]*models.Suggestion, 0, len(ids))
	for _, id := range ids {
		if suggestion, ok := s.suggestions[id]; ok {
			suggestions = append(suggestions, suggestion)
		}
	}
	return suggestions, nil
}

// LatestRun returns the most recent run saved for a company, or nil
func (s *InMemorySuggestionStore) LatestRun(company string) *models.RunResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runs[company]
}
