package diskspace

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckAvailableSpace(t *testing.T) {
	target := filepath.Join(t.TempDir(), "download.bin")

	if err := CheckAvailableSpace(target, 1024, 1.15); err != nil {
		t.Errorf("Expected room for 1 KB, got: %v", err)
	}

	// 100 TB should exceed any test machine.
	err := CheckAvailableSpace(target, 100*1024*1024*1024*1024, 1.15)
	if err == nil {
		t.Log("100 TB check passed; skipping insufficient-space assertion")
	} else if !IsInsufficientSpaceError(err) {
		t.Errorf("Expected InsufficientSpaceError, got: %T", err)
	}
}

func TestCheckAvailableSpaceUnknownDir(t *testing.T) {
	// An unreadable filesystem never blocks the transfer.
	target := filepath.Join(t.TempDir(), "missing", "deeper", "file")
	if err := CheckAvailableSpace(target, 1<<62, 1.0); err != nil {
		t.Errorf("Expected nil for unknown free space, got %v", err)
	}
}

func TestGetAvailableSpace(t *testing.T) {
	if available := GetAvailableSpace(filepath.Join(t.TempDir(), "x")); available == 0 {
		t.Error("Expected non-zero available space for a temp dir")
	}
}

func TestIsInsufficientSpaceError(t *testing.T) {
	err := &InsufficientSpaceError{Path: "/tmp/test.txt", RequiredBytes: 1000, AvailableBytes: 500}
	if !IsInsufficientSpaceError(err) {
		t.Error("Expected true for *InsufficientSpaceError")
	}
	if !IsInsufficientSpaceError(fmt.Errorf("download: %w", err)) {
		t.Error("Expected true for a wrapped error")
	}
	if IsInsufficientSpaceError(fmt.Errorf("some other error")) {
		t.Error("Expected false for other errors")
	}
	if IsInsufficientSpaceError(nil) {
		t.Error("Expected false for nil")
	}
}

func TestInsufficientSpaceErrorMessage(t *testing.T) {
	err := &InsufficientSpaceError{
		Path:           "/tmp/test.txt",
		RequiredBytes:  1024 * 1024 * 100,
		AvailableBytes: 1024 * 1024 * 50,
	}
	msg := err.Error()
	for _, want := range []string{"/tmp/test.txt", "100.00", "50.00"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error message %q should contain %q", msg, want)
		}
	}
}
