package app

import (
	"fmt"
	"sync"

	"github.com/jmmpc/lisfy/internal/localfs"
	"github.com/jmmpc/lisfy/internal/upload"
)

// FileInput is a file picker: it holds a selection until reset.
type FileInput interface {
	Files() ([]upload.File, error)
	Reset()
}

// PathInput is the plain file input: the selection is a list of local paths.
type PathInput struct {
	mu    sync.Mutex
	paths []string
}

// NewPathInput returns an input with paths selected.
func NewPathInput(paths ...string) *PathInput {
	return &PathInput{paths: paths}
}

// Select replaces the selection.
func (in *PathInput) Select(paths ...string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.paths = append([]string(nil), paths...)
}

// Files describes the selected paths. Only the first one has to be
// readable; the controller never looks past it.
func (in *PathInput) Files() ([]upload.File, error) {
	in.mu.Lock()
	paths := append([]string(nil), in.paths...)
	in.mu.Unlock()

	if len(paths) == 0 {
		return nil, nil
	}
	first, err := upload.LocalFile(paths[0])
	if err != nil {
		return nil, err
	}
	files := []upload.File{first}
	for _, p := range paths[1:] {
		if f, err := upload.LocalFile(p); err == nil {
			files = append(files, f)
		}
	}
	return files, nil
}

// Reset clears the selection.
func (in *PathInput) Reset() {
	in.Select()
}

// CameraInput is the capture input: its selection is the newest regular
// file in the directory a camera or screenshot tool writes to.
type CameraInput struct {
	Dir string
}

// Files returns the newest capture, or an error when there is none.
func (in CameraInput) Files() ([]upload.File, error) {
	if in.Dir == "" {
		return nil, fmt.Errorf("no capture directory configured")
	}
	e, err := localfs.Newest(in.Dir)
	if err != nil {
		return nil, fmt.Errorf("no capture in %s: %w", in.Dir, err)
	}
	f, err := upload.LocalFile(e.Path)
	if err != nil {
		return nil, err
	}
	return []upload.File{f}, nil
}

// Reset is a no-op: every capture is a new selection.
func (CameraInput) Reset() {}
