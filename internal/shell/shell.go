// Package shell is the interactive terminal front end of the browser.
//
// Commands are read on one goroutine and turned into controller calls.
// Network work runs on background goroutines so the prompt stays
// responsive; results reach the terminal through the event bus, which a
// single renderer goroutine drains.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jmmpc/lisfy/internal/app"
	"github.com/jmmpc/lisfy/internal/events"
	"github.com/jmmpc/lisfy/internal/logging"
	"github.com/jmmpc/lisfy/internal/pathutil"
)

// Notifier is where the shell reports command-level messages.
type Notifier interface {
	Show(text string)
}

// Options configures a Shell.
type Options struct {
	App       *app.App
	Notifier  Notifier
	Bus       *events.EventBus
	Logger    *logging.Logger
	In        io.Reader
	Out       io.Writer
	CameraDir string
	StartPath string
}

// Shell is the read-eval-render loop.
type Shell struct {
	app       *app.App
	notifier  Notifier
	bus       *events.EventBus
	logger    *logging.Logger
	in        io.Reader
	render    *Renderer
	cameraDir string
	startPath string
	commands  []command

	wg sync.WaitGroup
}

// ErrQuit is returned by the quit command.
var ErrQuit = errors.New("quit")

// New creates a shell. App, Notifier and Bus are required.
func New(opts Options) (*Shell, error) {
	if opts.App == nil || opts.Notifier == nil || opts.Bus == nil {
		return nil, errors.New("shell: app, notifier and event bus are required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	if opts.StartPath == "" {
		opts.StartPath = pathutil.Root
	}
	s := &Shell{
		app:       opts.App,
		notifier:  opts.Notifier,
		bus:       opts.Bus,
		logger:    opts.Logger,
		in:        opts.In,
		render:    NewRenderer(opts.Out),
		cameraDir: opts.CameraDir,
		startPath: opts.StartPath,
	}
	s.commands = s.buildCommands()
	return s, nil
}

// Renderer returns the shell's output; the CLI points the logger at it.
func (s *Shell) Renderer() *Renderer {
	return s.render
}

// Run loads the start path and processes commands until input ends, the
// quit command runs, or ctx is cancelled. In-flight uploads are aborted on
// the way out.
func (s *Shell) Run(ctx context.Context) error {
	renderCtx, stopRender := context.WithCancel(ctx)
	renderDone := s.startRenderer(renderCtx)
	defer func() {
		s.app.Uploader().AbortAll()
		s.Wait()
		stopRender()
		<-renderDone
	}()

	s.async(ctx, func(ctx context.Context) { _ = s.app.ReadDir(ctx, s.startPath) })

	lines := make(chan string)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		scanner := bufio.NewScanner(s.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		s.render.Printf("%s", Prompt(s.app.CurrentPath()))
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			s.render.Println("")
			return err
		case line := <-lines:
			if err := s.Execute(ctx, line); err != nil {
				if errors.Is(err, ErrQuit) {
					return nil
				}
				s.render.Println("error: " + err.Error())
			}
		}
	}
}

// Execute runs one command line. Background work it starts is tracked by
// Wait.
func (s *Shell) Execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	name, args := strings.ToLower(fields[0]), fields[1:]
	// names may contain spaces
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))

	for _, c := range s.commands {
		if c.matches(name) {
			return c.run(ctx, args, rest)
		}
	}
	return fmt.Errorf("unknown command %q (try `help`)", name)
}

// Wait blocks until background commands have finished.
func (s *Shell) Wait() {
	s.wg.Wait()
	s.app.Uploader().Wait()
}

func (s *Shell) async(ctx context.Context, fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(ctx)
	}()
}

// startRenderer redraws on path changes and shows notifications until ctx
// is done.
func (s *Shell) startRenderer(ctx context.Context) <-chan struct{} {
	pathCh := s.bus.Subscribe(events.EventPathChanged)
	noteCh := s.bus.Subscribe(events.EventNotification)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer s.bus.Unsubscribe(events.EventPathChanged, pathCh)
		defer s.bus.Unsubscribe(events.EventNotification, noteCh)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-pathCh:
				if !ok {
					return
				}
				if e, ok := ev.(*events.PathChangedEvent); ok {
					s.onPathChanged(e)
				}
			case ev, ok := <-noteCh:
				if !ok {
					return
				}
				if e, ok := ev.(*events.NotificationEvent); ok && e.Visible {
					s.render.Println("\n" + RenderModal(e.Text))
				}
			}
		}
	}()
	return done
}

// onPathChanged draws the listing only while e.Path is still current.
func (s *Shell) onPathChanged(e *events.PathChangedEvent) {
	if e.Path != s.app.CurrentPath() {
		return
	}
	s.showListing(e.Path, e.BackEnabled)
}

func (s *Shell) showListing(path string, backEnabled bool) {
	s.render.Println("\n" + RenderHeader(path, backEnabled) + "\n" + RenderRows(s.app.Files().Rows()))
}
