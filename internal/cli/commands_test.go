package cli

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmmpc/lisfy/internal/config"
	"github.com/jmmpc/lisfy/internal/logging"
	"github.com/jmmpc/lisfy/internal/models"
	"github.com/jmmpc/lisfy/internal/server"
	"github.com/jmmpc/lisfy/internal/storage/providers/local"
)

// startServer serves a temp folder holding docs/report.txt.
func startServer(t *testing.T) (url, root string) {
	t.Helper()
	root = t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "docs"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "docs", "report.txt"), []byte("quarterly"), 0644); err != nil {
		t.Fatal(err)
	}

	backend, err := local.New(root)
	if err != nil {
		t.Fatal(err)
	}
	srv := server.New(backend, server.Options{}, logging.NewNopLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL, root
}

// run executes the CLI with args against an empty config file.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	rootCmd := NewRootCmd()
	AddCommands(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.ini")}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	rootCmd := NewRootCmd()
	AddCommands(rootCmd)

	for _, name := range []string{"browse", "ls", "upload", "download", "serve", "config", "completion"} {
		if _, _, err := rootCmd.Find([]string{name}); err != nil {
			t.Errorf("subcommand %q not found: %v", name, err)
		}
	}
}

func TestListCmd(t *testing.T) {
	url, _ := startServer(t)

	out, err := run(t, "ls", "--url", url)
	if err != nil {
		t.Fatalf("ls: %v", err)
	}
	if !strings.Contains(out, "docs/") {
		t.Errorf("listing missing docs/:\n%s", out)
	}

	out, err = run(t, "ls", "/docs", "--json", "--url", url)
	if err != nil {
		t.Fatalf("ls --json: %v", err)
	}
	var entries []models.DirectoryEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(entries) != 1 || entries[0].Name != "report.txt" || entries[0].Size != 9 {
		t.Errorf("entries = %+v", entries)
	}

	if _, err := run(t, "ls", "/missing", "--url", url); err == nil {
		t.Error("listing a missing folder should fail")
	}
}

func TestUploadCmd(t *testing.T) {
	url, root := startServer(t)
	src := filepath.Join(t.TempDir(), "photo.jpg")
	if err := os.WriteFile(src, []byte("jpeg bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "upload", src, "docs", "--url", url)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.Contains(out, `File "photo.jpg" uploaded`) {
		t.Errorf("output = %q", out)
	}

	matches, _ := filepath.Glob(filepath.Join(root, "docs", "photo_*.jpg"))
	if len(matches) != 1 {
		t.Fatalf("stored files = %v", matches)
	}
	data, _ := os.ReadFile(matches[0])
	if string(data) != "jpeg bytes" {
		t.Errorf("stored %q", data)
	}
}

func TestUploadCmd_MissingLocalFile(t *testing.T) {
	url, _ := startServer(t)
	if _, err := run(t, "upload", filepath.Join(t.TempDir(), "nope.bin"), "--url", url); err == nil {
		t.Error("expected an error for a missing local file")
	}
}

func TestDownloadCmd(t *testing.T) {
	url, _ := startServer(t)
	dest := t.TempDir()

	out, err := run(t, "download", "/docs/report.txt", "-o", dest, "--url", url)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	want := filepath.Join(dest, "report.txt")
	if !strings.Contains(out, "saved to "+want) {
		t.Errorf("output = %q", out)
	}
	data, err := os.ReadFile(want)
	if err != nil || string(data) != "quarterly" {
		t.Errorf("downloaded %q, %v", data, err)
	}

	// a second copy never overwrites the first
	if _, err := run(t, "download", "docs/report.txt", "-o", dest, "--url", url); err != nil {
		t.Fatal(err)
	}
	matches, _ := filepath.Glob(filepath.Join(dest, "report*.txt"))
	if len(matches) != 2 {
		t.Errorf("files = %v", matches)
	}
}

func TestCompletionCmd(t *testing.T) {
	out, err := run(t, "completion", "bash")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "lisfy") {
		t.Error("bash completion does not mention the command")
	}
	if _, err := run(t, "completion", "tcsh"); err == nil {
		t.Error("unknown shell should be rejected")
	}
}

func TestApplyServeFlags(t *testing.T) {
	cmd := newServeCmd()
	if err := cmd.ParseFlags([]string{"--no-gzip", "--root", "/srv"}); err != nil {
		t.Fatal(err)
	}
	cfg := loadDefaults(t)
	applyServeFlags(cmd, cfg, "", "/srv", "", "", true, false)
	if cfg.Server.Gzip {
		t.Error("--no-gzip ignored")
	}
	if !cfg.Server.Metrics {
		t.Error("metrics changed without --no-metrics")
	}
	if cfg.Server.Root != "/srv" {
		t.Errorf("Root = %q", cfg.Server.Root)
	}
}

func loadDefaults(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "none.ini"))
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}
