package logger

import (
	"sync"
	"time"
)

// PhaseTimer records how long each phase of a long-running operation takes
// and logs a line when a phase finishes. The runner uses it to expose where
// a run spent its budget.
type PhaseTimer struct {
	logger    Logger
	operation string

	mu        sync.Mutex
	current   string
	startedAt time.Time
	durations map[string]time.Duration
	order     []string
}

// NewPhaseTimer creates a timer for a named operation
func NewPhaseTimer(operation string, log Logger) *PhaseTimer {
	if log == nil {
		log = GetGlobalLogger()
	}
	return &PhaseTimer{
		logger:    log.WithComponent("phase_timer"),
		operation: operation,
		durations: make(map[string]time.Duration),
	}
}

// Start begins timing a phase, finishing any phase still open
func (pt *PhaseTimer) Start(phase string) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	pt.finishLocked()
	pt.current = phase
	pt.startedAt = time.Now()
}

// Finish closes the currently open phase, if any
func (pt *PhaseTimer) Finish() {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.finishLocked()
}

func (pt *PhaseTimer) finishLocked() {
	if pt.current == "" {
		return
	}

	elapsed := time.Since(pt.startedAt)
	pt.durations[pt.current] = elapsed
	pt.order = append(pt.order, pt.current)

	pt.logger.WithFields(Fields{
		"operation": pt.operation,
		"phase":     pt.current,
		"elapsed":   elapsed,
	}).Debug("Phase finished")

	pt.current = ""
}

// Durations returns the recorded phase durations in completion order
func (pt *PhaseTimer) Durations() map[string]time.Duration {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	out := make(map[string]time.Duration, len(pt.durations))
	for phase, d := range pt.durations {
		out[phase] = d
	}
	return out
}
