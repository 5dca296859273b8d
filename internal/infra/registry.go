package infra

import (
	"sync"

	"github.com/codeglyph/agentshim/internal/domain"
)

// TrackedSet is the in-memory registry of live real subprocesses.
// Insertion happens on spawn, removal exactly once on the subprocess's
// own exit notification. Mutex-guarded: spawn requests, exit
// notifications, and signal teardown run on different goroutines.
type TrackedSet struct {
	mu      sync.Mutex
	entries map[int]domain.TrackedProcess
}

// NewTrackedSet creates an empty process registry.
func NewTrackedSet() *TrackedSet {
	return &TrackedSet{entries: make(map[int]domain.TrackedProcess)}
}

// Add records a live subprocess.
func (s *TrackedSet) Add(tp domain.TrackedProcess) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[tp.PID] = tp
}

// Remove drops the entry for pid. Unknown PIDs are a no-op.
func (s *TrackedSet) Remove(pid int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, pid)
}

// Snapshot returns the current entries.
func (s *TrackedSet) Snapshot() []domain.TrackedProcess {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.TrackedProcess, 0, len(s.entries))
	for _, tp := range s.entries {
		out = append(out, tp)
	}
	return out
}

// Len returns the number of tracked subprocesses.
func (s *TrackedSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Ensure TrackedSet implements domain.ProcessRegistry.
var _ domain.ProcessRegistry = (*TrackedSet)(nil)
