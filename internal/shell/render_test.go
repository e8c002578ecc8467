package shell

import (
	"errors"
	"strings"
	"testing"

	"github.com/jmmpc/lisfy/internal/state"
	"github.com/jmmpc/lisfy/internal/transfer"
)

func TestRenderRows(t *testing.T) {
	rows := []state.Row{
		{Name: "docs", Class: state.ClassFolder, Size: state.DirSize, Date: "2024-01-02 03:04:05"},
		{Name: "a.txt", Class: state.ClassFile, Size: "1.50 KB", Date: "2024-01-02 03:04:06"},
	}
	out := RenderRows(rows)
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d:\n%s", len(lines), out)
	}
	for _, want := range []string{"1", "dir", "docs/", "2024-01-02 03:04:05"} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("folder line missing %q: %q", want, lines[0])
		}
	}
	if !strings.Contains(lines[1], "1.50 KB") || !strings.Contains(lines[1], "a.txt") {
		t.Errorf("file line = %q", lines[1])
	}

	if RenderRows(nil) != emptyStyle.Render("(empty)") {
		t.Errorf("empty list = %q", RenderRows(nil))
	}
}

func TestRenderModal(t *testing.T) {
	out := RenderModal(`File "x" uploaded`)
	if !strings.Contains(out, `File "x" uploaded`) || !strings.Contains(out, "close") {
		t.Errorf("modal = %q", out)
	}
}

func TestRenderHeader(t *testing.T) {
	if out := RenderHeader("/a/b", true); !strings.Contains(out, "/a/b") {
		t.Errorf("header = %q", out)
	}
}

func TestRenderTransfers(t *testing.T) {
	out := RenderTransfers([]transfer.Snapshot{
		{Type: transfer.TaskTypeUpload, State: transfer.StateCompleted, Percent: 100, Name: "a.bin"},
		{Type: transfer.TaskTypeUpload, State: transfer.StateFailed, Percent: 40, Name: "b.bin", Err: errors.New("boom")},
	})
	if !strings.Contains(out, "completed") || !strings.Contains(out, "100%") || !strings.Contains(out, "boom") {
		t.Errorf("transfers = %q", out)
	}
	if RenderTransfers(nil) == "" {
		t.Error("empty transfers should render a placeholder")
	}
}
