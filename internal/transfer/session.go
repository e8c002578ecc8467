// Package transfer tracks upload and download sessions.
//
// A Session is created fresh for every transfer and moves through
// idle -> in_progress -> completed | failed | aborted. Terminal states are
// final; a finished session is never reused.
package transfer

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskType indicates whether a session is an upload or download.
type TaskType string

const (
	TaskTypeUpload   TaskType = "upload"
	TaskTypeDownload TaskType = "download"
)

// State is the lifecycle state of a session.
type State string

const (
	StateIdle       State = "idle"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StateAborted    State = "aborted"
)

// IsTerminal reports whether no further transition is possible from s.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateAborted
}

// Session is a single transfer. Thread-safe: use the provided methods.
type Session struct {
	ID   string
	Type TaskType
	Dir  string // Remote directory (upload) or remote path (download)
	Name string
	Size int64

	CreatedAt time.Time

	mu          sync.RWMutex
	state       State
	loaded      int64
	percent     int
	speed       float64
	err         error
	startedAt   time.Time
	completedAt time.Time

	lastBytes      int64
	lastUpdateTime time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// Snapshot is a point-in-time copy of a session for display.
type Snapshot struct {
	ID          string
	Type        TaskType
	Dir         string
	Name        string
	Size        int64
	State       State
	Loaded      int64
	Percent     int
	Speed       float64
	Err         error
	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

// NewSession creates an idle session whose context derives from parent.
func NewSession(parent context.Context, typ TaskType, dir, name string, size int64) *Session {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		ID:        uuid.NewString(),
		Type:      typ,
		Dir:       dir,
		Name:      name,
		Size:      size,
		CreatedAt: time.Now(),
		state:     StateIdle,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Percent converts a byte count into a whole percentage, rounded half away
// from zero. An unknown or zero total reports 0.
func Percent(loaded, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(loaded) * 100 / float64(total)))
}

// Context is cancelled when the session is aborted.
func (s *Session) Context() context.Context {
	return s.ctx
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsTerminal reports whether the session has finished.
func (s *Session) IsTerminal() bool {
	return s.State().IsTerminal()
}

// Err returns the failure cause, if any.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Percent returns the last reported percentage.
func (s *Session) Percent() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.percent
}

// Start moves an idle session to in_progress. It reports false for any
// other state.
func (s *Session) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return false
	}
	s.state = StateInProgress
	s.startedAt = time.Now()
	s.lastUpdateTime = s.startedAt
	return true
}

// UpdateProgress records loaded of total bytes and returns the new
// percentage. Updates after the session finished are ignored and return
// the last percentage.
func (s *Session) UpdateProgress(loaded, total int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return s.percent
	}

	now := time.Now()
	if loaded > s.lastBytes {
		elapsed := now.Sub(s.lastUpdateTime).Seconds()
		if elapsed > 0.1 {
			instantRate := float64(loaded-s.lastBytes) / elapsed
			const speedSmoothingAlpha = 0.25
			if s.speed > 0 {
				s.speed = speedSmoothingAlpha*instantRate + (1-speedSmoothingAlpha)*s.speed
			} else {
				s.speed = instantRate
			}
			s.lastBytes = loaded
			s.lastUpdateTime = now
		}
	}

	s.loaded = loaded
	if total > 0 {
		s.Size = total
	}
	s.percent = Percent(loaded, total)
	return s.percent
}

// Complete marks an in-progress session completed.
func (s *Session) Complete() bool {
	return s.finish(StateCompleted, nil)
}

// Fail marks an in-progress session failed with err.
func (s *Session) Fail(err error) bool {
	return s.finish(StateFailed, err)
}

// Abort cancels the session context and marks it aborted unless it had
// already finished. It reports whether the state changed.
func (s *Session) Abort() bool {
	s.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.IsTerminal() {
		return false
	}
	s.state = StateAborted
	s.completedAt = time.Now()
	return true
}

func (s *Session) finish(state State, err error) bool {
	s.mu.Lock()
	if s.state.IsTerminal() {
		s.mu.Unlock()
		return false
	}
	s.state = state
	s.err = err
	s.completedAt = time.Now()
	if state == StateCompleted {
		s.percent = 100
		s.loaded = s.Size
	}
	s.mu.Unlock()
	// Release the context; a finished session has nothing left to cancel.
	s.cancel()
	return true
}

// Snapshot returns a copy of the session's current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		ID:          s.ID,
		Type:        s.Type,
		Dir:         s.Dir,
		Name:        s.Name,
		Size:        s.Size,
		State:       s.state,
		Loaded:      s.loaded,
		Percent:     s.percent,
		Speed:       s.speed,
		Err:         s.err,
		CreatedAt:   s.CreatedAt,
		StartedAt:   s.startedAt,
		CompletedAt: s.completedAt,
	}
}
