package app

import (
	"context"
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
	"github.com/jmmpc/lisfy/internal/events"
	"github.com/jmmpc/lisfy/internal/models"
	"github.com/jmmpc/lisfy/internal/notify"
	"github.com/jmmpc/lisfy/internal/state"
)

// fakeClient serves listings from a map. A path listed in gates blocks
// until its channel is closed.
type fakeClient struct {
	mu       sync.Mutex
	listings map[string][]models.DirectoryEntry
	errs     map[string]error
	gates    map[string]chan struct{}
	requests []string

	files   map[string]string
	modTime time.Time
	uploads []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		listings: map[string][]models.DirectoryEntry{},
		errs:     map[string]error{},
		gates:    map[string]chan struct{}{},
		files:    map[string]string{},
	}
}

func (c *fakeClient) ListDir(ctx context.Context, p string) ([]models.DirectoryEntry, error) {
	c.mu.Lock()
	c.requests = append(c.requests, p)
	gate := c.gates[p]
	c.mu.Unlock()

	if gate != nil {
		<-gate
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.errs[p]; err != nil {
		return nil, err
	}
	return c.listings[p], nil
}

func (c *fakeClient) Upload(ctx context.Context, dir, name string, body io.Reader, size int64, onProgress api.ProgressFunc) error {
	data, _ := io.ReadAll(body)
	onProgress(int64(len(data)), size)
	c.mu.Lock()
	c.uploads = append(c.uploads, dir+"|"+name+"|"+string(data))
	c.mu.Unlock()
	return nil
}

func (c *fakeClient) Download(ctx context.Context, p string, w io.Writer, prepare func(api.DownloadInfo) error, onProgress api.ProgressFunc) (int64, error) {
	c.mu.Lock()
	content, ok := c.files[p]
	c.mu.Unlock()
	if !ok {
		return 0, &api.StatusError{Op: "download", Code: 404, Status: "Not Found", Body: "no such file\n"}
	}
	if err := prepare(api.DownloadInfo{Size: int64(len(content)), ModTime: c.modTime}); err != nil {
		return 0, err
	}
	n, err := io.Copy(w, strings.NewReader(content))
	onProgress(n, int64(len(content)))
	return n, err
}

func (c *fakeClient) lastRequest() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.requests) == 0 {
		return ""
	}
	return c.requests[len(c.requests)-1]
}

type nopPanel struct{}

func (nopPanel) Show(string)    {}
func (nopPanel) SetPercent(int) {}
func (nopPanel) Hide()          {}

func newTestApp(t *testing.T, c *fakeClient) (*App, *notify.Notifier) {
	t.Helper()
	n := notify.NewNotifier(nil, nil, nil)
	a, err := New(Deps{
		Client:      c,
		Notifier:    n,
		Panel:       nopPanel{},
		Location:    time.UTC,
		DownloadDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a, n
}

func entries(names ...string) []models.DirectoryEntry {
	var out []models.DirectoryEntry
	for _, n := range names {
		isDir := strings.HasSuffix(n, "/")
		out = append(out, models.DirectoryEntry{Name: strings.TrimSuffix(n, "/"), IsDir: isDir, Size: 2048})
	}
	return out
}

func TestReadDirAppliesListing(t *testing.T) {
	c := newFakeClient()
	c.listings["/a/b"] = entries("docs/", "x.txt")
	a, _ := newTestApp(t, c)

	if err := a.ReadDir(context.Background(), "/a/b"); err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if a.CurrentPath() != "/a/b" {
		t.Errorf("CurrentPath = %q, want /a/b", a.CurrentPath())
	}
	if !a.BackEnabled() {
		t.Error("Back should be enabled below the root")
	}

	rows := a.Files().Rows()
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[0].Href != "/a/b/docs" || rows[0].Size != state.DirSize || rows[0].Class != state.ClassFolder {
		t.Errorf("Unexpected folder row: %+v", rows[0])
	}
	if rows[1].Href != "download/a/b/x.txt" || rows[1].Size != "2.00 KB" || rows[1].Class != state.ClassFile {
		t.Errorf("Unexpected file row: %+v", rows[1])
	}
}

func TestReadDirRootDisablesBack(t *testing.T) {
	c := newFakeClient()
	c.listings["/a"] = entries("f")
	a, _ := newTestApp(t, c)

	a.ReadDir(context.Background(), "/a")
	a.ReadDir(context.Background(), "/")
	if a.BackEnabled() {
		t.Error("Back should be disabled at the root")
	}
	if a.Files().Len() != 0 {
		t.Errorf("Empty listing should clear the rows, got %d", a.Files().Len())
	}
}

func TestReadDirStatusErrorShowsBody(t *testing.T) {
	c := newFakeClient()
	c.listings["/ok"] = entries("keep.txt")
	c.errs["/missing"] = &api.StatusError{Op: "list", Code: 404, Status: "Not Found", Body: "no such file or directory\n"}
	a, n := newTestApp(t, c)

	a.ReadDir(context.Background(), "/ok")
	if err := a.ReadDir(context.Background(), "/missing"); err == nil {
		t.Fatal("Expected an error")
	}

	if text, visible := n.Current(); !visible || text != "no such file or directory\n" {
		t.Errorf("Notification = %q, %v", text, visible)
	}
	if a.CurrentPath() != "/ok" || a.Files().Len() != 1 {
		t.Error("A failed listing must leave the state unchanged")
	}
}

func TestReadDirConnectionError(t *testing.T) {
	c := newFakeClient()
	c.errs["/"] = fmt.Errorf("%w: dial tcp: connection refused", api.ErrConnection)
	a, n := newTestApp(t, c)

	a.ReadDir(context.Background(), "/")
	if text, _ := n.Current(); text != constants.ConnectionErrorMessage {
		t.Errorf("Notification = %q", text)
	}
}

// blockingDesktop holds every Notify until release is closed.
type blockingDesktop struct {
	entered chan struct{}
	release chan struct{}
}

func (d *blockingDesktop) Notify(title, message string) error {
	d.entered <- struct{}{}
	<-d.release
	return nil
}

func TestFailureNotifiesWithoutHoldingState(t *testing.T) {
	tests := []struct {
		name string
		run  func(a *App) error
	}{
		{"ReadDir", func(a *App) error { return a.ReadDir(context.Background(), "/x") }},
		{"Download", func(a *App) error {
			_, err := a.Download(context.Background(), "/missing.txt")
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newFakeClient()
			c.errs["/x"] = &api.StatusError{Op: "list", Code: 404, Status: "Not Found", Body: "gone\n"}
			n := notify.NewNotifier(&notify.Config{DesktopEnabled: true}, nil, nil)
			d := &blockingDesktop{entered: make(chan struct{}, 1), release: make(chan struct{})}
			n.SetDesktop(d)
			a, err := New(Deps{Client: c, Notifier: n, Panel: nopPanel{}, Location: time.UTC, DownloadDir: t.TempDir()})
			if err != nil {
				t.Fatalf("New: %v", err)
			}

			done := make(chan error, 1)
			go func() { done <- tt.run(a) }()

			select {
			case <-d.entered:
			case <-time.After(2 * time.Second):
				close(d.release)
				t.Fatal("Desktop notification was never sent")
			}

			read := make(chan string, 1)
			go func() { read <- a.CurrentPath() }()
			select {
			case p := <-read:
				if p != "/" {
					t.Errorf("CurrentPath = %q", p)
				}
			case <-time.After(time.Second):
				t.Error("CurrentPath blocked while a desktop notification was in flight")
			}

			close(d.release)
			if err := <-done; err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestReadDirCancelledIsSilent(t *testing.T) {
	c := newFakeClient()
	c.errs["/"] = context.Canceled
	a, n := newTestApp(t, c)

	a.ReadDir(context.Background(), "/")
	if _, visible := n.Current(); visible {
		t.Error("Cancellation should not notify")
	}
}

func TestReadDirDropsSupersededResult(t *testing.T) {
	c := newFakeClient()
	c.listings["/slow"] = entries("slow.txt")
	c.listings["/fast"] = entries("fast.txt")
	gate := make(chan struct{})
	c.gates["/slow"] = gate
	a, _ := newTestApp(t, c)

	done := make(chan struct{})
	go func() {
		a.ReadDir(context.Background(), "/slow")
		close(done)
	}()
	for c.lastRequest() != "/slow" {
		time.Sleep(time.Millisecond)
	}

	a.ReadDir(context.Background(), "/fast")
	close(gate)
	<-done

	if a.CurrentPath() != "/fast" {
		t.Errorf("CurrentPath = %q, want /fast", a.CurrentPath())
	}
	if rows := a.Files().Rows(); len(rows) != 1 || rows[0].Name != "fast.txt" {
		t.Errorf("Unexpected rows: %+v", rows)
	}
}

func TestGoBackAndRefresh(t *testing.T) {
	c := newFakeClient()
	c.listings["/a/b"] = entries("x")
	c.listings["/a"] = entries("b/")
	a, _ := newTestApp(t, c)

	a.ReadDir(context.Background(), "/a/b")
	a.GoBack(context.Background())
	if c.lastRequest() != "/a" || a.CurrentPath() != "/a" {
		t.Errorf("GoBack read %q, current %q", c.lastRequest(), a.CurrentPath())
	}

	a.Refresh(context.Background())
	if c.lastRequest() != "/a" {
		t.Errorf("Refresh read %q", c.lastRequest())
	}

	a.ReadDir(context.Background(), "/")
	a.GoBack(context.Background())
	if c.lastRequest() != "/" {
		t.Errorf("GoBack at root read %q", c.lastRequest())
	}
}

func TestShowLocation(t *testing.T) {
	c := newFakeClient()
	c.listings["/deep/path"] = nil
	a, n := newTestApp(t, c)

	a.ReadDir(context.Background(), "/deep/path")
	a.ShowLocation()
	if text, visible := n.Current(); !visible || text != "/deep/path" {
		t.Errorf("Notification = %q, %v", text, visible)
	}
	if !a.Dismiss(events.DismissBackdrop) {
		t.Error("Dismiss should close the modal")
	}
}

func TestClickFolderNavigates(t *testing.T) {
	c := newFakeClient()
	c.listings["/"] = entries("docs/", "x.txt")
	c.listings["/docs"] = entries("inner.txt")
	a, _ := newTestApp(t, c)
	a.ReadDir(context.Background(), "/")

	local, err := a.Click(context.Background(), 0)
	if err != nil || local != "" {
		t.Fatalf("Click folder = %q, %v", local, err)
	}
	if a.CurrentPath() != "/docs" {
		t.Errorf("CurrentPath = %q, want /docs", a.CurrentPath())
	}
}

func TestClickFileDownloads(t *testing.T) {
	c := newFakeClient()
	c.listings["/"] = entries("docs/", "x.txt")
	c.files["/x.txt"] = "hello"
	c.modTime = time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)
	a, _ := newTestApp(t, c)
	a.ReadDir(context.Background(), "/")

	local, err := a.Click(context.Background(), 1)
	if err != nil {
		t.Fatalf("Click file: %v", err)
	}
	data, err := os.ReadFile(local)
	if err != nil || string(data) != "hello" {
		t.Fatalf("Downloaded %q, %v", data, err)
	}
	if fi, _ := os.Stat(local); !fi.ModTime().Equal(c.modTime) {
		t.Errorf("ModTime = %v, want %v", fi.ModTime(), c.modTime)
	}

	// A second download keeps the first copy.
	second, err := a.Click(context.Background(), 1)
	if err != nil {
		t.Fatalf("Second click: %v", err)
	}
	if second == local {
		t.Error("Second download should not overwrite the first")
	}
	if filepath.Dir(second) != filepath.Dir(local) {
		t.Errorf("Unexpected location %s", second)
	}
}

func TestDownloadMissingNotifies(t *testing.T) {
	c := newFakeClient()
	a, n := newTestApp(t, c)

	if _, err := a.Download(context.Background(), "/nope.txt"); err == nil {
		t.Fatal("Expected an error")
	}
	if text, _ := n.Current(); text != "Error: Not Found" {
		t.Errorf("Notification = %q", text)
	}
	if entries, _ := os.ReadDir(a.downloadDir); len(entries) != 0 {
		t.Error("A failed download must not leave a file behind")
	}
}

func TestClickOutOfRange(t *testing.T) {
	a, _ := newTestApp(t, newFakeClient())
	if _, err := a.Click(context.Background(), 3); err == nil {
		t.Error("Expected an error for a missing row")
	}
}

func TestRemotePath(t *testing.T) {
	tests := map[string]string{
		"download/x.txt":   "/x.txt",
		"download/a/b.txt": "/a/b.txt",
	}
	for in, want := range tests {
		if got := RemotePath(in); got != want {
			t.Errorf("RemotePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHandleFileInput(t *testing.T) {
	c := newFakeClient()
	c.listings["/up"] = nil
	a, n := newTestApp(t, c)
	a.ReadDir(context.Background(), "/up")

	dir := t.TempDir()
	first := filepath.Join(dir, "first.txt")
	second := filepath.Join(dir, "second.txt")
	os.WriteFile(first, []byte("one"), 0644)
	os.WriteFile(second, []byte("two"), 0644)

	in := NewPathInput(first, second)
	s, err := a.HandleFileInput(context.Background(), in)
	if err != nil || s == nil {
		t.Fatalf("HandleFileInput = %v, %v", s, err)
	}
	a.Uploader().Wait()

	if len(c.uploads) != 1 || c.uploads[0] != "/up|first.txt|one" {
		t.Errorf("Unexpected uploads: %v", c.uploads)
	}
	if text, _ := n.Current(); text != `File "first.txt" uploaded` {
		t.Errorf("Notification = %q", text)
	}
	if files, _ := in.Files(); len(files) != 0 {
		t.Error("Input should be reset after the upload starts")
	}

	if s, err := a.HandleFileInput(context.Background(), in); s != nil || err != nil {
		t.Errorf("Empty selection should do nothing, got %v, %v", s, err)
	}
}

func TestHandleCameraInput(t *testing.T) {
	c := newFakeClient()
	a, _ := newTestApp(t, c)

	dir := t.TempDir()
	old := filepath.Join(dir, "IMG_1.jpg")
	latest := filepath.Join(dir, "IMG_2.jpg")
	os.WriteFile(old, []byte("old"), 0644)
	os.WriteFile(latest, []byte("new"), 0644)
	past := time.Now().Add(-time.Hour)
	os.Chtimes(old, past, past)

	if _, err := a.HandleFileInput(context.Background(), CameraInput{Dir: dir}); err != nil {
		t.Fatalf("HandleFileInput: %v", err)
	}
	a.Uploader().Wait()
	if len(c.uploads) != 1 || c.uploads[0] != "/|IMG_2.jpg|new" {
		t.Errorf("Unexpected uploads: %v", c.uploads)
	}

	if _, err := a.HandleFileInput(context.Background(), CameraInput{Dir: t.TempDir()}); err == nil {
		t.Error("Expected an error for an empty capture directory")
	}
}

func TestNewRequiresDeps(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("Expected an error without a client")
	}
}
