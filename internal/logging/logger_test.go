package logging

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jmmpc/lisfy/internal/events"
)

func TestLogger_SetOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewDefaultCLILogger()
	l.SetOutput(&buf)

	l.Infof("listing %s", "/a")

	if !strings.Contains(buf.String(), "listing /a") {
		t.Errorf("expected message in output, got %q", buf.String())
	}
	if l.Output() != &buf {
		t.Error("Output() should return the writer passed to SetOutput")
	}
}

func TestLogger_JSONMode(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(ModeJSON, nil)
	l.SetOutput(&buf)

	l.Info().Str("path", "/x").Msg("served")

	out := buf.String()
	if !strings.Contains(out, `"path":"/x"`) || !strings.Contains(out, `"message":"served"`) {
		t.Errorf("expected JSON fields, got %q", out)
	}
}

func TestLogger_PublishesWarnings(t *testing.T) {
	bus := events.NewEventBus(10)
	defer bus.Close()
	ch := bus.Subscribe(events.EventLog)

	l := NewLogger(ModeCLI, bus)
	l.SetOutput(&bytes.Buffer{})

	l.Info().Msg("quiet")
	l.Warn().Msg("disk almost full")

	select {
	case ev := <-ch:
		le := ev.(*events.LogEvent)
		if le.Level != events.WarnLevel || le.Message != "disk almost full" {
			t.Errorf("unexpected log event: %+v", le)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected a log event for the warning")
	}

	select {
	case ev := <-ch:
		t.Errorf("info messages should not be published, got %+v", ev)
	default:
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
