// Package storage defines the tree a file server exposes and the errors
// its backends report. Implementations live under providers/.
package storage

import (
	"context"
	"errors"
	"io"
	"sort"
	"time"

	"github.com/jmmpc/lisfy/internal/localfs"
	"github.com/jmmpc/lisfy/internal/models"
)

// Backend errors. Implementations wrap these so callers can use errors.Is.
var (
	ErrNotExist       = errors.New("no such file or directory")
	ErrPermission     = errors.New("permission denied")
	ErrIsDir          = errors.New("is a directory")
	ErrExist          = errors.New("file already exists")
	ErrLengthRequired = errors.New("content length required")
)

// Backend is a hierarchical file tree addressed by slash-separated paths
// rooted at "/". Paths passed in are already checked for ".." elements.
type Backend interface {
	// Stat describes a single entry.
	Stat(ctx context.Context, p string) (models.DirectoryEntry, error)

	// ReadDir lists directory p, folders first then by name, skipping
	// hidden entries and anything that is neither a file nor a folder.
	ReadDir(ctx context.Context, p string) ([]models.DirectoryEntry, error)

	// Open returns the content of file p. Opening a folder fails with ErrIsDir.
	Open(ctx context.Context, p string) (*Object, error)

	// Create stores r as a new file p and returns the bytes written. It
	// fails with ErrExist if p is already taken. size is -1 when unknown.
	// A partial file is removed when the copy fails.
	Create(ctx context.Context, p string, r io.Reader, size int64) (int64, error)

	// Remove deletes file p.
	Remove(ctx context.Context, p string) error

	// Type returns the backend identifier ("local", "s3", "azure").
	Type() string

	// Close releases any resources held by the backend.
	Close() error
}

// Object is an open file. Body may also implement io.ReadSeeker, in which
// case range requests can be served.
type Object struct {
	Name    string
	Size    int64 // -1 when unknown
	ModTime time.Time
	Body    io.ReadCloser
}

// Close closes the body.
func (o *Object) Close() error {
	return o.Body.Close()
}

// SortEntries orders entries folders first, then by name using localfs.Less.
func SortEntries(entries []models.DirectoryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return localfs.Less(entries[i].Name, entries[j].Name)
	})
}

// Visible reports whether a listing should include name.
func Visible(name string) bool {
	return name != "" && !localfs.IsHiddenName(name)
}

// ContextReader returns a reader that fails with the context's error once
// ctx is done, so a cancelled request body stops a copy between reads.
func ContextReader(ctx context.Context, r io.Reader) io.Reader {
	return &contextReader{ctx: ctx, r: r}
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
