package transfer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jmmpc/lisfy/internal/events"
)

// ErrSessionNotFound is returned for an unknown session ID.
var ErrSessionNotFound = errors.New("session not found")

// Registry is a passive tracker of sessions keyed by ID. It does not run
// transfers: callers begin a session, report progress and finish it, and
// the registry publishes the matching transfer events.
type Registry struct {
	sessions []*Session
	byID     map[string]*Session
	mu       sync.RWMutex

	eventBus *events.EventBus
}

// NewRegistry creates a registry publishing to eventBus, which may be nil.
func NewRegistry(eventBus *events.EventBus) *Registry {
	return &Registry{
		byID:     make(map[string]*Session),
		eventBus: eventBus,
	}
}

// Begin creates, registers and starts a fresh session.
func (r *Registry) Begin(parent context.Context, typ TaskType, dir, name string, size int64) *Session {
	s := NewSession(parent, typ, dir, name, size)
	s.Start()

	r.mu.Lock()
	r.sessions = append(r.sessions, s)
	r.byID[s.ID] = s
	r.mu.Unlock()

	r.publish(events.EventTransferStarted, s)
	return s
}

// Get returns the session with the given ID.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	return s, ok
}

// Progress records progress for id and returns the new percentage.
func (r *Registry) Progress(id string, loaded, total int64) (int, error) {
	s, ok := r.Get(id)
	if !ok {
		return 0, ErrSessionNotFound
	}
	if s.IsTerminal() {
		return s.Percent(), nil
	}
	pct := s.UpdateProgress(loaded, total)
	r.publish(events.EventTransferProgress, s)
	return pct, nil
}

// Complete marks id completed. It reports false if the session had already
// finished, for example because it was aborted.
func (r *Registry) Complete(id string) bool {
	s, ok := r.Get(id)
	if !ok || !s.Complete() {
		return false
	}
	r.publish(events.EventTransferCompleted, s)
	return true
}

// Fail marks id failed with err.
func (r *Registry) Fail(id string, err error) bool {
	s, ok := r.Get(id)
	if !ok || !s.Fail(err) {
		return false
	}
	r.publish(events.EventTransferFailed, s)
	return true
}

// Abort cancels the session with the given ID. Aborting a finished session
// is a no-op.
func (r *Registry) Abort(id string) error {
	s, ok := r.Get(id)
	if !ok {
		return ErrSessionNotFound
	}
	if s.Abort() {
		r.publish(events.EventTransferCancelled, s)
	}
	return nil
}

// AbortAll cancels every unfinished session and returns how many were
// aborted.
func (r *Registry) AbortAll() int {
	r.mu.RLock()
	active := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		if !s.IsTerminal() {
			active = append(active, s)
		}
	}
	r.mu.RUnlock()

	n := 0
	for _, s := range active {
		if s.Abort() {
			n++
			r.publish(events.EventTransferCancelled, s)
		}
	}
	return n
}

// Sessions returns snapshots of all tracked sessions in creation order.
func (r *Registry) Sessions() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Snapshot, len(r.sessions))
	for i, s := range r.sessions {
		out[i] = s.Snapshot()
	}
	return out
}

// ClearFinished drops every terminal session.
func (r *Registry) ClearFinished() {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.sessions[:0]
	for _, s := range r.sessions {
		if s.IsTerminal() {
			delete(r.byID, s.ID)
			continue
		}
		kept = append(kept, s)
	}
	for i := len(kept); i < len(r.sessions); i++ {
		r.sessions[i] = nil
	}
	r.sessions = kept
}

func (r *Registry) publish(eventType events.EventType, s *Session) {
	if r.eventBus == nil {
		return
	}
	snap := s.Snapshot()
	var progress float64
	if snap.Size > 0 {
		progress = float64(snap.Loaded) / float64(snap.Size)
	}
	r.eventBus.Publish(&events.TransferEvent{
		BaseEvent: events.BaseEvent{
			EventType: eventType,
			Time:      time.Now(),
		},
		TaskID:   snap.ID,
		TaskType: string(snap.Type),
		Name:     snap.Name,
		Size:     snap.Size,
		Loaded:   snap.Loaded,
		Progress: progress,
		Error:    snap.Err,
	})
}
