// Package local serves a directory tree of the local filesystem.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jmmpc/lisfy/internal/localfs"
	"github.com/jmmpc/lisfy/internal/models"
	"github.com/jmmpc/lisfy/internal/storage"
	"github.com/jmmpc/lisfy/internal/validation"
)

// Backend implements storage.Backend on a root directory.
type Backend struct {
	root string
}

// New serves root, which must be an existing directory.
func New(root string) (*Backend, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("root %s: %w", abs, mapError(err))
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", abs)
	}
	return &Backend{root: abs}, nil
}

// Root returns the absolute served directory.
func (b *Backend) Root() string { return b.root }

func (b *Backend) resolve(p string) (string, error) {
	name := filepath.Join(b.root, filepath.FromSlash(p))
	if err := validation.ValidatePathInDirectory(name, b.root); err != nil {
		return "", fmt.Errorf("%s: %w", p, storage.ErrPermission)
	}
	return name, nil
}

// mapError translates filesystem errors into storage errors, keeping the
// original in the chain.
func mapError(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %w", storage.ErrNotExist, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %w", storage.ErrPermission, err)
	case errors.Is(err, fs.ErrExist):
		return fmt.Errorf("%w: %w", storage.ErrExist, err)
	default:
		return err
	}
}

// Stat describes the entry at p.
func (b *Backend) Stat(ctx context.Context, p string) (models.DirectoryEntry, error) {
	name, err := b.resolve(p)
	if err != nil {
		return models.DirectoryEntry{}, err
	}
	fi, err := os.Stat(name)
	if err != nil {
		return models.DirectoryEntry{}, mapError(err)
	}
	return models.EntryFromFileInfo(fi), nil
}

// ReadDir lists directory p.
func (b *Backend) ReadDir(ctx context.Context, p string) ([]models.DirectoryEntry, error) {
	name, err := b.resolve(p)
	if err != nil {
		return nil, err
	}
	files, err := localfs.ListDirectory(name, localfs.ListOptions{})
	if err != nil {
		return nil, mapError(err)
	}
	entries := make([]models.DirectoryEntry, 0, len(files))
	for _, f := range files {
		entries = append(entries, models.EntryFromFileInfo(f.Info))
	}
	return entries, nil
}

// Open opens file p. The body is an *os.File and supports seeking.
func (b *Backend) Open(ctx context.Context, p string) (*storage.Object, error) {
	name, err := b.resolve(p)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, mapError(err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, mapError(err)
	}
	if fi.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%s: %w", p, storage.ErrIsDir)
	}
	return &storage.Object{Name: fi.Name(), Size: fi.Size(), ModTime: fi.ModTime(), Body: f}, nil
}

// Create writes r into a new file p. The parent directory must exist.
func (b *Backend) Create(ctx context.Context, p string, r io.Reader, size int64) (int64, error) {
	name, err := b.resolve(p)
	if err != nil {
		return 0, err
	}
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return 0, mapError(err)
	}

	n, err := io.Copy(f, storage.ContextReader(ctx, r))
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err == nil && size >= 0 && n != size {
		err = io.ErrUnexpectedEOF
	}
	if err != nil {
		os.Remove(name)
		return n, err
	}
	return n, nil
}

// Remove deletes file p.
func (b *Backend) Remove(ctx context.Context, p string) error {
	name, err := b.resolve(p)
	if err != nil {
		return err
	}
	if err := os.Remove(name); err != nil {
		return mapError(err)
	}
	return nil
}

// Type returns "local".
func (b *Backend) Type() string { return "local" }

// Close does nothing.
func (b *Backend) Close() error { return nil }

var _ storage.Backend = (*Backend)(nil)
