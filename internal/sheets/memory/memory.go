package memory

import (
	"context"
	"sync"

	"wealthwise/internal/core"
	ports "wealthwise/internal/sheets"
)

var _ ports.GoalExporter = (*Store)(nil)

// Store keeps the last exported table in memory.
type Store struct {
	mu      sync.Mutex
	rows    [][]any
	exports int
	err     error
}

func New() *Store {
	return &Store{}
}

// FailWith makes subsequent exports return err. A nil err restores success.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// ExportGoals replaces the stored table.
func (s *Store) ExportGoals(_ context.Context, goals []core.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.rows = ports.Rows(goals)
	s.exports++
	return nil
}

// Rows returns a copy of the last exported table, header included.
func (s *Store) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}

// Exports returns the number of successful exports.
func (s *Store) Exports() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exports
}
