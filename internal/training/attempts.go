package training

import (
	"sync"

	"github.com/Ngum12/africa-risk-intelligence-platform/internal/models"
)

// maxAttempts bounds the in-process retraining history.
const maxAttempts = 20

// AttemptLog is a bounded, concurrency-safe record of recent retraining
// attempts. Oldest entries are evicted once the bound is reached; the log is
// process-local and not persisted.
type AttemptLog struct {
	mu      sync.RWMutex
	entries []models.RetrainingAttempt
}

// NewAttemptLog returns an empty attempt log.
func NewAttemptLog() *AttemptLog {
	return &AttemptLog{}
}

// Record appends one attempt, evicting the oldest entry at capacity.
func (l *AttemptLog) Record(attempt models.RetrainingAttempt) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, attempt)
	if len(l.entries) > maxAttempts {
		l.entries = l.entries[len(l.entries)-maxAttempts:]
	}
}

// List returns the recorded attempts, newest first.
func (l *AttemptLog) List() []models.RetrainingAttempt {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.RetrainingAttempt, len(l.entries))
	for i, a := range l.entries {
		out[len(l.entries)-1-i] = a
	}
	return out
}
