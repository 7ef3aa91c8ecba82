package meter

import (
	"sync/atomic"
)

// StateManager publishes snapshots. Readers always see a complete
// snapshot; the refresh worker is the only writer.
type StateManager struct {
	current atomic.Pointer[Snapshot]
	changed chan struct{}
}

// NewStateManager creates a new StateManager instance
func NewStateManager() *StateManager {
	return &StateManager{changed: make(chan struct{}, 1)}
}

// Snapshot returns the latest snapshot, or nil before the first refresh.
func (sm *StateManager) Snapshot() *Snapshot {
	return sm.current.Load()
}

// Publish replaces the current snapshot and signals Changes.
func (sm *StateManager) Publish(s *Snapshot) {
	sm.current.Store(s)
	select {
	case sm.changed <- struct{}{}:
	default:
	}
}

// Changes fires after one or more Publish calls.
func (sm *StateManager) Changes() <-chan struct{} {
	return sm.changed
}
