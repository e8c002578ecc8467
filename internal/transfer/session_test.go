package transfer

import (
	"context"
	"errors"
	"testing"
)

func TestNewSession(t *testing.T) {
	s := NewSession(context.Background(), TaskTypeUpload, "/docs", "a.txt", 1024)

	if s.ID == "" {
		t.Error("Session ID should not be empty")
	}
	if s.State() != StateIdle {
		t.Errorf("Expected StateIdle, got %v", s.State())
	}
	if s.Percent() != 0 {
		t.Errorf("Expected 0%%, got %d", s.Percent())
	}

	other := NewSession(context.Background(), TaskTypeUpload, "/docs", "a.txt", 1024)
	if other.ID == s.ID {
		t.Error("Sessions should get distinct IDs")
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		loaded, total int64
		want          int
	}{
		{0, 100, 0},
		{50, 100, 50},
		{1, 3, 33},
		{2, 3, 67},
		{1, 200, 1}, // 0.5 rounds up
		{100, 100, 100},
		{10, 0, 0},
	}
	for _, tt := range tests {
		if got := Percent(tt.loaded, tt.total); got != tt.want {
			t.Errorf("Percent(%d, %d) = %d, want %d", tt.loaded, tt.total, got, tt.want)
		}
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := NewSession(context.Background(), TaskTypeUpload, "/", "b.bin", 200)

	if got := s.UpdateProgress(50, 200); got != 0 {
		t.Errorf("Progress before Start should be ignored, got %d", got)
	}
	if !s.Start() {
		t.Fatal("Start from idle should succeed")
	}
	if s.Start() {
		t.Error("Start twice should fail")
	}
	if got := s.UpdateProgress(50, 200); got != 25 {
		t.Errorf("Expected 25, got %d", got)
	}
	if !s.Complete() {
		t.Fatal("Complete should succeed")
	}
	snap := s.Snapshot()
	if snap.State != StateCompleted || snap.Percent != 100 {
		t.Errorf("Unexpected snapshot: %+v", snap)
	}
	if snap.CompletedAt.IsZero() {
		t.Error("CompletedAt should be set")
	}
	if s.Fail(errors.New("late")) {
		t.Error("Fail after Complete should be rejected")
	}
	if s.Abort() {
		t.Error("Abort after Complete should not change state")
	}
}

func TestSessionAbort(t *testing.T) {
	s := NewSession(context.Background(), TaskTypeUpload, "/", "c.bin", 10)
	s.Start()

	select {
	case <-s.Context().Done():
		t.Fatal("Context should not be cancelled initially")
	default:
	}

	if !s.Abort() {
		t.Fatal("Abort should succeed on an active session")
	}
	if s.State() != StateAborted {
		t.Errorf("Expected StateAborted, got %v", s.State())
	}
	select {
	case <-s.Context().Done():
	default:
		t.Error("Context should be cancelled after Abort")
	}
	if s.Complete() {
		t.Error("Complete after Abort should be rejected")
	}
}

func TestSessionFail(t *testing.T) {
	s := NewSession(context.Background(), TaskTypeDownload, "/x", "x", 10)
	s.Start()
	errBoom := errors.New("boom")
	if !s.Fail(errBoom) {
		t.Fatal("Fail should succeed")
	}
	if !errors.Is(s.Err(), errBoom) {
		t.Errorf("Expected boom, got %v", s.Err())
	}
	if !s.IsTerminal() {
		t.Error("Failed session should be terminal")
	}
}

func TestSessionParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	s := NewSession(parent, TaskTypeUpload, "/", "d", 1)
	cancel()
	select {
	case <-s.Context().Done():
	default:
		t.Error("Session context should follow its parent")
	}
}

func TestStateIsTerminal(t *testing.T) {
	tests := []struct {
		state    State
		terminal bool
	}{
		{StateIdle, false},
		{StateInProgress, false},
		{StateCompleted, true},
		{StateFailed, true},
		{StateAborted, true},
	}
	for _, tt := range tests {
		if tt.state.IsTerminal() != tt.terminal {
			t.Errorf("State %v: expected terminal=%v", tt.state, tt.terminal)
		}
	}
}
