// Package upload drives file uploads into the current remote directory.
//
// Every upload gets a fresh transfer.Session. The most recently started
// session owns the bottom panel; older sessions keep running in the
// background and still report their outcome through the notifier.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmmpc/lisfy/internal/api"
	"github.com/jmmpc/lisfy/internal/constants"
	"github.com/jmmpc/lisfy/internal/logging"
	"github.com/jmmpc/lisfy/internal/transfer"
)

// Transport sends a file body to the server.
type Transport interface {
	Upload(ctx context.Context, dir, name string, body io.Reader, size int64, onProgress api.ProgressFunc) error
}

// Panel is the bottom progress panel.
type Panel interface {
	Show(name string)
	SetPercent(pct int)
	Hide()
}

// Notifier shows a single message to the user.
type Notifier interface {
	Show(text string)
}

// File is one selected local file.
type File struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// LocalFile describes the regular file at path.
func LocalFile(path string) (File, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !fi.Mode().IsRegular() {
		return File{}, fmt.Errorf("%s is not a regular file", path)
	}
	return File{
		Name: filepath.Base(path),
		Size: fi.Size(),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// Uploader starts uploads and tracks them in a registry.
type Uploader struct {
	transport Transport
	panel     Panel
	notifier  Notifier
	registry  *transfer.Registry
	logger    *logging.Logger

	mu      sync.Mutex
	current string // ID of the session that owns the panel
	wg      sync.WaitGroup
}

// New creates an Uploader. A nil registry or logger gets a private default.
func New(transport Transport, panel Panel, notifier Notifier, registry *transfer.Registry, logger *logging.Logger) *Uploader {
	if registry == nil {
		registry = transfer.NewRegistry(nil)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Uploader{
		transport: transport,
		panel:     panel,
		notifier:  notifier,
		registry:  registry,
		logger:    logger,
	}
}

// Upload opens f, reveals the panel and starts sending f into the remote
// directory dir in the background. The returned session is already in
// progress. An error is returned only when f cannot be opened.
func (u *Uploader) Upload(ctx context.Context, dir string, f File) (*transfer.Session, error) {
	body, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
	}

	u.panel.Show(f.Name)
	s := u.registry.Begin(ctx, transfer.TaskTypeUpload, dir, f.Name, f.Size)

	u.mu.Lock()
	u.current = s.ID
	u.mu.Unlock()

	u.logger.Debug().Str("session", s.ID).Str("file", f.Name).Str("dir", dir).Int64("size", f.Size).Msg("upload started")

	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		defer body.Close()
		err := u.transport.Upload(s.Context(), dir, f.Name, body, f.Size, func(loaded, total int64) {
			pct, perr := u.registry.Progress(s.ID, loaded, total)
			if perr == nil && u.owns(s.ID) {
				u.panel.SetPercent(pct)
			}
		})
		u.finish(s, err)
	}()
	return s, nil
}

// finish applies the terminal outcome of s. Aborted sessions end silently.
func (u *Uploader) finish(s *transfer.Session, err error) {
	log := u.logger.With().Str("session", s.ID).Str("file", s.Name).Logger()

	if err != nil && errors.Is(err, context.Canceled) {
		// Aborted by the user or by shutdown of the parent context.
		_ = u.registry.Abort(s.ID)
		if u.release(s.ID) {
			u.panel.Hide()
		}
		log.Debug().Msg("upload aborted")
		return
	}

	var msg string
	if err == nil {
		if !u.registry.Complete(s.ID) {
			return
		}
		msg = fmt.Sprintf(constants.UploadedMessageFormat, s.Name)
		log.Info().Str("dir", s.Dir).Msg("upload completed")
	} else {
		if !u.registry.Fail(s.ID, err) {
			return
		}
		msg = failureMessage(err)
		log.Warn().Err(err).Msg("upload failed")
	}

	if u.release(s.ID) {
		u.panel.Hide()
	}
	u.notifier.Show(msg)
}

func failureMessage(err error) string {
	if se, ok := api.AsStatusError(err); ok {
		return fmt.Sprintf(constants.UploadErrorMessageFormat, se.Status)
	}
	if api.IsConnectionError(err) {
		return constants.ConnectionErrorMessage
	}
	return fmt.Sprintf(constants.UploadErrorMessageFormat, err.Error())
}

func (u *Uploader) owns(id string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.current == id
}

// release drops panel ownership for id and reports whether it had it.
func (u *Uploader) release(id string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.current != id {
		return false
	}
	u.current = ""
	return true
}

// Abort cancels the session that owns the panel and hides the panel.
// No notification is shown. It reports whether a session was aborted.
func (u *Uploader) Abort() bool {
	u.mu.Lock()
	id := u.current
	u.current = ""
	u.mu.Unlock()

	u.panel.Hide()
	if id == "" {
		return false
	}
	s, ok := u.registry.Get(id)
	if !ok || s.IsTerminal() {
		return false
	}
	return u.registry.Abort(id) == nil
}

// AbortAll cancels every in-flight upload and returns how many it stopped.
func (u *Uploader) AbortAll() int {
	u.mu.Lock()
	u.current = ""
	u.mu.Unlock()

	u.panel.Hide()
	return u.registry.AbortAll()
}

// Current returns the session that owns the panel.
func (u *Uploader) Current() (transfer.Snapshot, bool) {
	u.mu.Lock()
	id := u.current
	u.mu.Unlock()
	if id == "" {
		return transfer.Snapshot{}, false
	}
	s, ok := u.registry.Get(id)
	if !ok {
		return transfer.Snapshot{}, false
	}
	return s.Snapshot(), true
}

// Sessions returns every tracked upload in start order.
func (u *Uploader) Sessions() []transfer.Snapshot {
	return u.registry.Sessions()
}

// ClearFinished forgets every upload that has reached a terminal state.
func (u *Uploader) ClearFinished() {
	u.registry.ClearFinished()
}

// Wait blocks until all started uploads have finished.
func (u *Uploader) Wait() {
	u.wg.Wait()
}
