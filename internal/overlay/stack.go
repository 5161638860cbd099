// Package overlay tracks the process-wide stack of open in-app overlays
// (modals/sheets). The stack is the only writer of overlay state; UI
// consumers observe read-only snapshots through Subscribe.
package overlay

import (
	"sync"
	"time"

	"github.com/iceinvein/bootleg-msn-sub000/internal/monitoring"
	"github.com/iceinvein/bootleg-msn-sub000/internal/shared/id"
	"github.com/iceinvein/bootleg-msn-sub000/internal/shared/types"
)

// OpenRequest describes an overlay to open. ID and creation time are
// assigned by the stack, never by the caller.
type OpenRequest struct {
	Type         types.OverlayType
	Props        map[string]interface{}
	PersistInURL bool
}

// Snapshot is a consistent read of the stack after one atomic mutation.
// Top is nil when the stack is empty.
type Snapshot struct {
	Stack []types.OverlayEntry
	Top   *types.OverlayEntry
	Count int
}

// Listener observes stack transitions. Each atomic mutation produces exactly
// one notification: CloseAll is a single transition, not N pops.
type Listener func(Snapshot)

// Stack is the ordered collection of open overlays, bottom to top.
type Stack struct {
	mu        sync.RWMutex
	entries   []types.OverlayEntry
	listeners map[int]Listener
	nextSub   int
	clock     func() time.Time // swappable in tests
	metrics   *monitoring.Metrics
}

// NewStack creates an empty overlay stack.
func NewStack() *Stack {
	return &Stack{
		listeners: make(map[int]Listener),
		clock:     time.Now,
	}
}

// WithMetrics adds metrics tracking to the stack.
func (s *Stack) WithMetrics(m *monitoring.Metrics) *Stack {
	s.metrics = m
	return s
}

// Open generates a fresh ID, appends the entry at the top, and returns the
// ID synchronously.
func (s *Stack) Open(req OpenRequest) string {
	entry := types.OverlayEntry{
		ID:           id.NewOverlayID(),
		Type:         req.Type,
		Props:        req.Props,
		CreatedAt:    s.clock(),
		PersistInURL: req.PersistInURL,
	}

	s.mu.Lock()
	s.entries = append(s.entries, entry)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.OverlaysOpened.Inc()
		s.metrics.OverlaysOpen.Set(float64(snap.Count))
	}
	s.notify(snap)
	return entry.ID
}

// Close removes the entry with the given ID from anywhere in the stack.
// Removing a non-top entry preserves the relative order of the remainder.
func (s *Stack) Close(entryID string) bool {
	s.mu.Lock()
	idx := s.indexLocked(entryID)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.entries = append(s.entries[:idx], s.entries[idx+1:]...)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.recordClosed(snap)
	s.notify(snap)
	return true
}

// CloseTop removes the top entry. No-op on an empty stack.
func (s *Stack) CloseTop() bool {
	s.mu.Lock()
	if len(s.entries) == 0 {
		s.mu.Unlock()
		return false
	}
	s.entries = s.entries[:len(s.entries)-1]
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.recordClosed(snap)
	s.notify(snap)
	return true
}

// CloseAll empties the stack in one atomic update.
func (s *Stack) CloseAll() {
	s.mu.Lock()
	if len(s.entries) == 0 {
		s.mu.Unlock()
		return
	}
	closed := len(s.entries)
	s.entries = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.OverlaysClosed.Add(float64(closed))
		s.metrics.OverlaysOpen.Set(0)
	}
	s.notify(snap)
}

// ReplaceTop atomically removes the current top (if any) and pushes the new
// entry, so observers never see a flash-to-empty between close and open.
func (s *Stack) ReplaceTop(req OpenRequest) string {
	entry := types.OverlayEntry{
		ID:           id.NewOverlayID(),
		Type:         req.Type,
		Props:        req.Props,
		CreatedAt:    s.clock(),
		PersistInURL: req.PersistInURL,
	}

	s.mu.Lock()
	if len(s.entries) > 0 {
		s.entries = s.entries[:len(s.entries)-1]
	}
	s.entries = append(s.entries, entry)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.OverlaysOpened.Inc()
		s.metrics.OverlaysOpen.Set(float64(snap.Count))
	}
	s.notify(snap)
	return entry.ID
}

// UpdateProps shallow-merges partial into the props of the entry with the
// given ID, wherever it sits in the stack. No-op if the ID is absent.
func (s *Stack) UpdateProps(entryID string, partial map[string]interface{}) bool {
	s.mu.Lock()
	idx := s.indexLocked(entryID)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	entry := &s.entries[idx]
	if entry.Props == nil {
		entry.Props = make(map[string]interface{}, len(partial))
	} else {
		merged := make(map[string]interface{}, len(entry.Props)+len(partial))
		for k, v := range entry.Props {
			merged[k] = v
		}
		entry.Props = merged
	}
	for k, v := range partial {
		entry.Props[k] = v
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return true
}

// Exists reports whether an entry with the given ID is open.
func (s *Stack) Exists(entryID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexLocked(entryID) >= 0
}

// GetByID returns a copy of the entry with the given ID.
func (s *Stack) GetByID(entryID string) (types.OverlayEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexLocked(entryID)
	if idx < 0 {
		return types.OverlayEntry{}, false
	}
	return s.entries[idx].Clone(), true
}

// HasOpen reports whether any overlay is open.
func (s *Stack) HasOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries) > 0
}

// Top returns a copy of the top entry, or nil when the stack is empty.
func (s *Stack) Top() *types.OverlayEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) == 0 {
		return nil
	}
	top := s.entries[len(s.entries)-1].Clone()
	return &top
}

// Count returns the number of open overlays.
func (s *Stack) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Entries returns a copy of the whole stack, bottom to top.
func (s *Stack) Entries() []types.OverlayEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked()
}

// Subscribe registers a listener for stack transitions and returns its
// unsubscribe function.
func (s *Stack) Subscribe(fn Listener) func() {
	s.mu.Lock()
	sub := s.nextSub
	s.nextSub++
	s.listeners[sub] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, sub)
		s.mu.Unlock()
	}
}

// ResetForTest empties the stack and drops all listeners. Test support only.
func (s *Stack) ResetForTest() {
	s.mu.Lock()
	s.entries = nil
	s.listeners = make(map[int]Listener)
	s.mu.Unlock()
}

func (s *Stack) recordClosed(snap Snapshot) {
	if s.metrics != nil {
		s.metrics.OverlaysClosed.Inc()
		s.metrics.OverlaysOpen.Set(float64(snap.Count))
	}
}

// indexLocked returns the position of an ID, or -1. Caller holds mu.
func (s *Stack) indexLocked(entryID string) int {
	for i := range s.entries {
		if s.entries[i].ID == entryID {
			return i
		}
	}
	return -1
}

// snapshotLocked builds a consistent snapshot. Caller holds mu.
func (s *Stack) snapshotLocked() Snapshot {
	snap := Snapshot{
		Stack: s.copyLocked(),
		Count: len(s.entries),
	}
	if snap.Count > 0 {
		top := snap.Stack[snap.Count-1]
		snap.Top = &top
	}
	return snap
}

func (s *Stack) copyLocked() []types.OverlayEntry {
	out := make([]types.OverlayEntry, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Clone()
	}
	return out
}

func (s *Stack) notify(snap Snapshot) {
	s.mu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(snap)
	}
}
