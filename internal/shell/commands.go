package shell

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jmmpc/lisfy/internal/app"
	"github.com/jmmpc/lisfy/internal/constants"
	"github.com/jmmpc/lisfy/internal/events"
	"github.com/jmmpc/lisfy/internal/pathutil"
	"github.com/jmmpc/lisfy/internal/state"
)

type command struct {
	names []string
	usage string
	help  string
	// run gets the split arguments and the raw remainder of the line.
	run func(ctx context.Context, args []string, rest string) error
}

func (c command) matches(name string) bool {
	for _, n := range c.names {
		if n == name {
			return true
		}
	}
	return false
}

func (s *Shell) buildCommands() []command {
	return []command{
		{names: []string{"ls", "list"}, usage: "ls", help: "show the current listing", run: s.cmdList},
		{names: []string{"cd"}, usage: "cd <path>", help: "open a folder by path (relative or absolute)", run: s.cmdCd},
		{names: []string{"open"}, usage: "open <n|name>", help: "click a row: folders navigate, files download", run: s.cmdOpen},
		{names: []string{"get"}, usage: "get <n|name>", help: "download a file row", run: s.cmdGet},
		{names: []string{"back"}, usage: "back", help: "go to the parent folder", run: s.cmdBack},
		{names: []string{"refresh", "r"}, usage: "refresh", help: "reload the current folder", run: s.cmdRefresh},
		{names: []string{"pwd", "location"}, usage: "pwd", help: "show the full current path", run: s.cmdPwd},
		{names: []string{"put", "upload"}, usage: "put <local file>", help: "upload a file into the current folder", run: s.cmdPut},
		{names: []string{"camera"}, usage: "camera", help: "upload the newest capture", run: s.cmdCamera},
		{names: []string{"abort"}, usage: "abort [all]", help: "cancel the upload in the panel (or every upload)", run: s.cmdAbort},
		{names: []string{"transfers", "jobs"}, usage: "transfers [clear]", help: "list upload sessions, or forget finished ones", run: s.cmdTransfers},
		{names: []string{"close", "dismiss"}, usage: "close", help: "close the notification", run: s.dismiss(events.DismissClose)},
		{names: []string{"backdrop"}, usage: "backdrop", help: "close the notification as if clicking outside it", run: s.dismiss(events.DismissBackdrop)},
		{names: []string{"search"}, usage: "search <text>", help: "not supported", run: s.cmdSearch},
		{names: []string{"help", "?"}, usage: "help", help: "show this help", run: s.cmdHelp},
		{names: []string{"quit", "exit", "q"}, usage: "quit", help: "leave the shell", run: s.cmdQuit},
	}
}

// resolveRow maps a 1-based row number or a row name to a row index.
func (s *Shell) resolveRow(arg string) (int, error) {
	if arg == "" {
		return 0, errors.New("row number or name required")
	}
	files := s.app.Files()
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > files.Len() {
			return 0, fmt.Errorf("no row %d", n)
		}
		return n - 1, nil
	}
	if i := files.Find(arg); i >= 0 {
		return i, nil
	}
	return 0, fmt.Errorf("no row named %q", arg)
}

func (s *Shell) cmdList(ctx context.Context, args []string, rest string) error {
	s.showListing(s.app.CurrentPath(), s.app.BackEnabled())
	return nil
}

func (s *Shell) cmdCd(ctx context.Context, args []string, rest string) error {
	target := pathutil.Clean(s.app.CurrentPath(), rest)
	if rest == "" {
		target = pathutil.Root
	}
	s.async(ctx, func(ctx context.Context) { _ = s.app.ReadDir(ctx, target) })
	return nil
}

func (s *Shell) cmdOpen(ctx context.Context, args []string, rest string) error {
	i, err := s.resolveRow(rest)
	if err != nil {
		return err
	}
	s.async(ctx, func(ctx context.Context) {
		local, err := s.app.Click(ctx, i)
		if err == nil && local != "" {
			s.render.Println("saved to " + local)
		}
	})
	return nil
}

func (s *Shell) cmdGet(ctx context.Context, args []string, rest string) error {
	i, err := s.resolveRow(rest)
	if err != nil {
		return err
	}
	row, _ := s.app.Files().Row(i)
	if row.Class != state.ClassFile {
		return fmt.Errorf("%s is a folder", row.Name)
	}
	s.async(ctx, func(ctx context.Context) {
		if local, err := s.app.Download(ctx, app.RemotePath(row.Href)); err == nil {
			s.render.Println("saved to " + local)
		}
	})
	return nil
}

func (s *Shell) cmdBack(ctx context.Context, args []string, rest string) error {
	if !s.app.BackEnabled() {
		return errors.New("already at the top folder")
	}
	s.async(ctx, func(ctx context.Context) { _ = s.app.GoBack(ctx) })
	return nil
}

func (s *Shell) cmdRefresh(ctx context.Context, args []string, rest string) error {
	s.async(ctx, func(ctx context.Context) { _ = s.app.Refresh(ctx) })
	return nil
}

func (s *Shell) cmdPwd(ctx context.Context, args []string, rest string) error {
	s.app.ShowLocation()
	return nil
}

func (s *Shell) cmdPut(ctx context.Context, args []string, rest string) error {
	if rest == "" {
		return errors.New("local file path required")
	}
	// failures are already shown as a notification
	s.app.HandleFileInput(ctx, app.NewPathInput(rest))
	return nil
}

func (s *Shell) cmdCamera(ctx context.Context, args []string, rest string) error {
	s.app.HandleFileInput(ctx, app.CameraInput{Dir: s.cameraDir})
	return nil
}

func (s *Shell) cmdAbort(ctx context.Context, args []string, rest string) error {
	if rest == "all" {
		n := s.app.Uploader().AbortAll()
		s.render.Printf("%d upload(s) aborted\n", n)
		return nil
	}
	if !s.app.Abort() {
		return errors.New("no upload in progress")
	}
	return nil
}

func (s *Shell) cmdTransfers(ctx context.Context, args []string, rest string) error {
	switch rest {
	case "":
	case "clear":
		s.app.Uploader().ClearFinished()
		return nil
	default:
		return fmt.Errorf("unknown transfers argument %q", rest)
	}
	s.render.Println(RenderTransfers(s.app.Uploader().Sessions()))
	return nil
}

func (s *Shell) dismiss(reason events.DismissReason) func(context.Context, []string, string) error {
	return func(ctx context.Context, args []string, rest string) error {
		s.app.Dismiss(reason)
		return nil
	}
}

func (s *Shell) cmdSearch(ctx context.Context, args []string, rest string) error {
	s.notifier.Show(constants.SearchUnsupportedMessage)
	return nil
}

func (s *Shell) cmdHelp(ctx context.Context, args []string, rest string) error {
	s.render.Println(RenderHelp(s.commands))
	return nil
}

func (s *Shell) cmdQuit(ctx context.Context, args []string, rest string) error {
	return ErrQuit
}
