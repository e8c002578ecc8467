// Package app is the browser controller. It owns the current path and the
// back-button state, and wires the files list, the uploader and the
// notifier to the API client.
//
// State is changed only after a request completes; every change is
// published on the event bus for the renderer.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jmmpc/lisfy/internal/api"
	"github.com/jmmpc/lisfy/internal/constants"
	"github.com/jmmpc/lisfy/internal/events"
	"github.com/jmmpc/lisfy/internal/logging"
	"github.com/jmmpc/lisfy/internal/models"
	"github.com/jmmpc/lisfy/internal/pathutil"
	"github.com/jmmpc/lisfy/internal/progress"
	"github.com/jmmpc/lisfy/internal/state"
	"github.com/jmmpc/lisfy/internal/transfer"
	"github.com/jmmpc/lisfy/internal/upload"
)

// Client is the subset of *api.Client the controller uses.
type Client interface {
	ListDir(ctx context.Context, p string) ([]models.DirectoryEntry, error)
	Upload(ctx context.Context, dir, name string, body io.Reader, size int64, onProgress api.ProgressFunc) error
	Download(ctx context.Context, p string, w io.Writer, prepare func(api.DownloadInfo) error, onProgress api.ProgressFunc) (int64, error)
}

// Notifier shows and dismisses the modal.
type Notifier interface {
	Show(text string)
	Dismiss(reason events.DismissReason) bool
}

// Deps holds everything New needs. Client, Notifier and Panel are required.
type Deps struct {
	Client   Client
	Notifier Notifier
	Panel    upload.Panel
	Bus      *events.EventBus
	Logger   *logging.Logger
	Registry *transfer.Registry

	// Location renders row dates; nil means time.Local.
	Location *time.Location
	// DownloadDir receives downloaded files; empty means the working directory.
	DownloadDir string
	// NewReporter builds a progress reporter per download; nil disables it.
	NewReporter func() progress.Reporter
}

// App is the application state.
type App struct {
	client      Client
	notifier    Notifier
	files       *state.FilesList
	uploader    *upload.Uploader
	bus         *events.EventBus
	logger      *logging.Logger
	loc         *time.Location
	downloadDir string
	newReporter func() progress.Reporter

	mu          sync.Mutex
	currentPath string
	backEnabled bool
	generation  uint64
}

// New builds the controller at "/" with an empty list. Call ReadDir to
// load the first listing.
func New(d Deps) (*App, error) {
	if d.Client == nil {
		return nil, errors.New("app: client is required")
	}
	if d.Notifier == nil {
		return nil, errors.New("app: notifier is required")
	}
	if d.Panel == nil {
		return nil, errors.New("app: panel is required")
	}
	if d.Logger == nil {
		d.Logger = logging.NewNopLogger()
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.DownloadDir == "" {
		d.DownloadDir = "."
	}
	if d.NewReporter == nil {
		d.NewReporter = func() progress.Reporter { return progress.NoOpProgress{} }
	}
	if d.Registry == nil {
		d.Registry = transfer.NewRegistry(d.Bus)
	}

	a := &App{
		client:      d.Client,
		notifier:    d.Notifier,
		bus:         d.Bus,
		logger:      d.Logger,
		loc:         d.Location,
		downloadDir: d.DownloadDir,
		newReporter: d.NewReporter,
		currentPath: pathutil.Root,
	}
	a.files = state.NewFilesList(d.Bus, func(ctx context.Context, href string) {
		_ = a.ReadDir(ctx, href)
	})
	a.uploader = upload.New(d.Client, d.Panel, d.Notifier, d.Registry, d.Logger)
	return a, nil
}

// Files returns the rendered rows container.
func (a *App) Files() *state.FilesList { return a.files }

// Uploader returns the upload driver.
func (a *App) Uploader() *upload.Uploader { return a.uploader }

// CurrentPath returns the path of the last successful listing.
func (a *App) CurrentPath() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentPath
}

// BackEnabled reports whether GoBack has somewhere to go.
func (a *App) BackEnabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.backEnabled
}

// ReadDir lists p and, on success, makes it the current path and replaces
// the rows. Failures are shown as notifications and returned; the current
// path is left unchanged. A result that arrives after a newer ReadDir was
// issued is dropped.
func (a *App) ReadDir(ctx context.Context, p string) error {
	if p == "" {
		p = pathutil.Root
	}

	a.mu.Lock()
	a.generation++
	gen := a.generation
	a.mu.Unlock()

	entries, err := a.client.ListDir(ctx, p)

	a.mu.Lock()
	if gen != a.generation {
		a.mu.Unlock()
		a.logger.Debug().Str("path", p).Uint64("generation", gen).Msg("dropping superseded listing")
		return nil
	}

	if err != nil {
		a.mu.Unlock()
		// the notifier may block on the desktop; never call it under a.mu
		a.report(err, func(se *api.StatusError) string { return se.Body })
		return err
	}
	defer a.mu.Unlock()

	rows := make([]state.Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, state.MakeRow(p, e, a.loc))
	}
	a.currentPath = p
	a.backEnabled = p != pathutil.Root
	a.files.Replace(rows)
	a.bus.PublishPathChanged(p, a.backEnabled)

	a.logger.Debug().Str("path", p).Int("entries", len(rows)).Msg("listing applied")
	return nil
}

// GoBack lists the parent of the current path.
func (a *App) GoBack(ctx context.Context) error {
	return a.ReadDir(ctx, pathutil.Parent(a.CurrentPath()))
}

// Refresh lists the current path again.
func (a *App) Refresh(ctx context.Context) error {
	return a.ReadDir(ctx, a.CurrentPath())
}

// ShowLocation shows the full current path as a notification.
func (a *App) ShowLocation() {
	a.notifier.Show(a.CurrentPath())
}

// Dismiss closes the modal.
func (a *App) Dismiss(reason events.DismissReason) bool {
	return a.notifier.Dismiss(reason)
}

// Abort cancels the upload shown in the panel.
func (a *App) Abort() bool {
	return a.uploader.Abort()
}

// HandleFileInput uploads the first file selected in input into the
// current path, then resets input so the same file can be picked again.
func (a *App) HandleFileInput(ctx context.Context, input FileInput) (*transfer.Session, error) {
	defer input.Reset()

	files, err := input.Files()
	if err != nil {
		a.notifier.Show(fmt.Sprintf(constants.UploadErrorMessageFormat, err.Error()))
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	s, err := a.uploader.Upload(ctx, a.CurrentPath(), files[0])
	if err != nil {
		a.notifier.Show(fmt.Sprintf(constants.UploadErrorMessageFormat, err.Error()))
		return nil, err
	}
	return s, nil
}

// Click activates row i. Folder rows navigate and return an empty path;
// file rows are downloaded and the local path is returned.
func (a *App) Click(ctx context.Context, i int) (string, error) {
	row, handled, err := a.files.Click(ctx, i)
	if err != nil {
		return "", err
	}
	if handled {
		return "", nil
	}
	return a.Download(ctx, RemotePath(row.Href))
}

// report turns err into a notification. statusText picks what to show
// for a server rejection. Cancellation is silent. Callers must not hold a.mu.
func (a *App) report(err error, statusText func(*api.StatusError) string) {
	switch {
	case errors.Is(err, context.Canceled):
		a.logger.Debug().Err(err).Msg("request cancelled")
	case api.IsConnectionError(err):
		a.logger.Warn().Err(err).Msg("request failed")
		a.notifier.Show(constants.ConnectionErrorMessage)
	default:
		if se, ok := api.AsStatusError(err); ok {
			a.notifier.Show(statusText(se))
			return
		}
		a.notifier.Show(fmt.Sprintf(constants.UploadErrorMessageFormat, err.Error()))
	}
}
