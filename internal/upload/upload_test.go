package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmmpc/lisfy/internal/api"
	"github.com/jmmpc/lisfy/internal/constants"
	"github.com/jmmpc/lisfy/internal/transfer"
)

type fakePanel struct {
	mu      sync.Mutex
	visible bool
	name    string
	percent []int
	hides   int
}

func (p *fakePanel) Show(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible, p.name, p.percent = true, name, nil
}

func (p *fakePanel) SetPercent(pct int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.percent = append(p.percent, pct)
}

func (p *fakePanel) Hide() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible = false
	p.hides++
}

func (p *fakePanel) isVisible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *fakeNotifier) Show(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, text)
}

func (n *fakeNotifier) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

// fakeTransport reads the body in two halves, reporting progress, then
// returns result. When block is set it waits for ctx before returning.
type fakeTransport struct {
	result  error
	block   bool
	started chan struct{}

	mu    sync.Mutex
	dir   string
	name  string
	bytes string
}

func (f *fakeTransport) Upload(ctx context.Context, dir, name string, body io.Reader, size int64, onProgress api.ProgressFunc) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.dir, f.name, f.bytes = dir, name, string(data)
	f.mu.Unlock()

	onProgress(size/2, size)
	if f.started != nil {
		close(f.started)
	}
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	onProgress(size, size)
	return f.result
}

func memFile(name, content string) File {
	return File{
		Name: name,
		Size: int64(len(content)),
		Open: func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(content)), nil },
	}
}

func TestUploadSuccess(t *testing.T) {
	tr := &fakeTransport{}
	panel := &fakePanel{}
	n := &fakeNotifier{}
	u := New(tr, panel, n, nil, nil)

	s, err := u.Upload(context.Background(), "/docs", memFile("a.txt", "abcd"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	u.Wait()

	if tr.dir != "/docs" || tr.name != "a.txt" || tr.bytes != "abcd" {
		t.Errorf("Unexpected request: %s %s %q", tr.dir, tr.name, tr.bytes)
	}
	if s.State() != transfer.StateCompleted {
		t.Errorf("Expected completed, got %v", s.State())
	}
	if got := panel.percent; len(got) != 2 || got[0] != 50 || got[1] != 100 {
		t.Errorf("Unexpected progress: %v", got)
	}
	if panel.isVisible() {
		t.Error("Panel should be hidden after completion")
	}
	msgs := n.messages()
	if len(msgs) != 1 || msgs[0] != `File "a.txt" uploaded` {
		t.Errorf("Unexpected notifications: %v", msgs)
	}
}

func TestUploadStatusError(t *testing.T) {
	tr := &fakeTransport{result: &api.StatusError{Op: "upload", Code: 500, Status: "Internal Server Error"}}
	panel := &fakePanel{}
	n := &fakeNotifier{}
	u := New(tr, panel, n, nil, nil)

	s, _ := u.Upload(context.Background(), "/", memFile("b.bin", "xy"))
	u.Wait()

	if s.State() != transfer.StateFailed {
		t.Errorf("Expected failed, got %v", s.State())
	}
	if msgs := n.messages(); len(msgs) != 1 || msgs[0] != "Error: Internal Server Error" {
		t.Errorf("Unexpected notifications: %v", msgs)
	}
	if panel.isVisible() {
		t.Error("Panel should be hidden after an error")
	}
}

func TestUploadConnectionErrorHidesPanel(t *testing.T) {
	tr := &fakeTransport{result: fmt.Errorf("%w: dial tcp: refused", api.ErrConnection)}
	panel := &fakePanel{}
	n := &fakeNotifier{}
	u := New(tr, panel, n, nil, nil)

	u.Upload(context.Background(), "/", memFile("c.bin", "xy"))
	u.Wait()

	if msgs := n.messages(); len(msgs) != 1 || msgs[0] != constants.ConnectionErrorMessage {
		t.Errorf("Unexpected notifications: %v", msgs)
	}
	if panel.isVisible() {
		t.Error("Panel should be hidden after a network error")
	}
}

func TestUploadAbortIsSilent(t *testing.T) {
	tr := &fakeTransport{block: true, started: make(chan struct{})}
	panel := &fakePanel{}
	n := &fakeNotifier{}
	u := New(tr, panel, n, nil, nil)

	s, _ := u.Upload(context.Background(), "/", memFile("d.bin", "abcdef"))
	<-tr.started

	if cur, ok := u.Current(); !ok || cur.ID != s.ID {
		t.Fatal("New session should own the panel")
	}
	if !u.Abort() {
		t.Fatal("Abort should report an aborted session")
	}
	if panel.isVisible() {
		t.Error("Abort should hide the panel immediately")
	}
	u.Wait()

	if s.State() != transfer.StateAborted {
		t.Errorf("Expected aborted, got %v", s.State())
	}
	if msgs := n.messages(); len(msgs) != 0 {
		t.Errorf("Abort should not notify, got %v", msgs)
	}
	if u.Abort() {
		t.Error("Second Abort should find nothing to abort")
	}
}

// byName routes each upload to its own fake.
type byName map[string]*fakeTransport

func (b byName) Upload(ctx context.Context, dir, name string, body io.Reader, size int64, onProgress api.ProgressFunc) error {
	return b[name].Upload(ctx, dir, name, body, size, onProgress)
}

func TestUploadNewSessionTakesPanel(t *testing.T) {
	first := &fakeTransport{block: true, started: make(chan struct{})}
	second := &fakeTransport{started: make(chan struct{})}
	panel := &fakePanel{}
	n := &fakeNotifier{}
	u := New(byName{"one": first, "two": second}, panel, n, transfer.NewRegistry(nil), nil)

	s1, _ := u.Upload(context.Background(), "/", memFile("one", "1111"))
	<-first.started
	s2, _ := u.Upload(context.Background(), "/", memFile("two", "22"))

	deadline := time.Now().Add(2 * time.Second)
	for !s2.IsTerminal() {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for the second upload")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if s1.State() != transfer.StateInProgress {
		t.Errorf("Older session should keep running, got %v", s1.State())
	}
	if len(u.Sessions()) != 2 {
		t.Errorf("Expected 2 tracked sessions, got %d", len(u.Sessions()))
	}

	if aborted := u.AbortAll(); aborted != 1 {
		t.Errorf("Expected 1 aborted session, got %d", aborted)
	}
	u.Wait()
	if s1.State() != transfer.StateAborted {
		t.Errorf("Expected older session aborted, got %v", s1.State())
	}
	if msgs := n.messages(); len(msgs) != 1 || msgs[0] != `File "two" uploaded` {
		t.Errorf("Unexpected notifications: %v", msgs)
	}
}

func TestUploadOpenError(t *testing.T) {
	panel := &fakePanel{}
	u := New(&fakeTransport{}, panel, &fakeNotifier{}, nil, nil)
	_, err := u.Upload(context.Background(), "/", File{
		Name: "x",
		Open: func() (io.ReadCloser, error) { return nil, errors.New("denied") },
	})
	if err == nil {
		t.Fatal("Expected open error")
	}
	if panel.isVisible() {
		t.Error("Panel should stay hidden when the file cannot be opened")
	}
}

func TestLocalFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(p, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := LocalFile(p)
	if err != nil {
		t.Fatalf("LocalFile: %v", err)
	}
	if f.Name != "note.txt" || f.Size != 5 {
		t.Errorf("Unexpected file: %+v", f)
	}
	rc, err := f.Open()
	if err != nil {
		t.Fatal(err)
	}
	rc.Close()

	if _, err := LocalFile(dir); err == nil {
		t.Error("Directories should be rejected")
	}
	if _, err := LocalFile(filepath.Join(dir, "missing")); err == nil {
		t.Error("Missing files should be rejected")
	}
}
