package infra

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codeglyph/agentshim/internal/domain"
)

func TestTrackedSet_AddRemoveLen(t *testing.T) {
	s := NewTrackedSet()
	assert.Equal(t, 0, s.Len())

	s.Add(domain.TrackedProcess{PID: 10, Path: "/usr/bin/git"})
	s.Add(domain.TrackedProcess{PID: 20, Path: "/usr/bin/rg"})
	assert.Equal(t, 2, s.Len())

	s.Remove(10)
	assert.Equal(t, 1, s.Len())

	// Removing an unknown PID is a no-op.
	s.Remove(999)
	assert.Equal(t, 1, s.Len())
}

func TestTrackedSet_AddReplacesSamePID(t *testing.T) {
	s := NewTrackedSet()
	s.Add(domain.TrackedProcess{PID: 10, Path: "/usr/bin/git"})
	s.Add(domain.TrackedProcess{PID: 10, Path: "/usr/bin/rg"})

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, "/usr/bin/rg", s.Snapshot()[0].Path)
}

func TestTrackedSet_SnapshotIsDetached(t *testing.T) {
	s := NewTrackedSet()
	s.Add(domain.TrackedProcess{PID: 10})

	snap := s.Snapshot()
	s.Remove(10)

	assert.Len(t, snap, 1)
	assert.Equal(t, 0, s.Len())
}

func TestTrackedSet_ConcurrentAccess(t *testing.T) {
	s := NewTrackedSet()

	var wg sync.WaitGroup
	for n := 1; n <= 50; n++ {
		wg.Add(1)
		go func(pid int) {
			defer wg.Done()
			s.Add(domain.TrackedProcess{PID: pid})
			s.Snapshot()
			if pid%2 == 0 {
				s.Remove(pid)
			}
		}(n)
	}
	wg.Wait()

	assert.Equal(t, 25, s.Len())
}
