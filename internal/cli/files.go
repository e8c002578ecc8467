package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/jmmpc/lisfy/internal/app"
	"github.com/jmmpc/lisfy/internal/constants"
	"github.com/jmmpc/lisfy/internal/events"
	"github.com/jmmpc/lisfy/internal/pathutil"
	"github.com/jmmpc/lisfy/internal/progress"
	"github.com/jmmpc/lisfy/internal/shell"
	"github.com/jmmpc/lisfy/internal/state"
	"github.com/jmmpc/lisfy/internal/transfer"
)

// printNotifier prints every notification on its own line. One-shot
// commands have no modal to dismiss.
type printNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

func (n *printNotifier) Show(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintln(n.out, text)
}

func (n *printNotifier) Dismiss(events.DismissReason) bool { return false }

func newListCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "ls [path]",
		Aliases: []string{"list"},
		Short:   "List a folder on the server",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadClientConfig()
			if err != nil {
				return err
			}
			client, err := newAPIClient(cfg, GetLogger())
			if err != nil {
				return err
			}

			p := pathutil.Root
			if len(args) == 1 {
				p = pathutil.Clean(pathutil.Root, args[0])
			}
			entries, err := client.ListDir(cmd.Context(), p)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			rows := make([]state.Row, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, state.MakeRow(p, e, cfg.Location()))
			}
			fmt.Fprintln(out, shell.RenderHeader(p, p != pathutil.Root))
			fmt.Fprintln(out, shell.RenderRows(rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw listing as JSON")
	return cmd
}

func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <local file> [remote folder]",
		Short: "Upload a file into a folder on the server",
		Long: `Upload one local file. The server stores it under a name with a
timestamp suffix, so nothing on the server is overwritten.

Press Ctrl+C to abort the transfer.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadClientConfig()
			if err != nil {
				return err
			}
			logger := GetLogger()
			client, err := newAPIClient(cfg, logger)
			if err != nil {
				return err
			}

			bus := events.NewEventBus(constants.EventBusDefaultBuffer)
			defer bus.Close()
			panel := progress.NewPanel(bus)
			defer panel.Close()

			notifier := &printNotifier{out: cmd.OutOrStdout()}
			a, err := app.New(app.Deps{
				Client:   client,
				Notifier: notifier,
				Panel:    panel,
				Bus:      bus,
				Logger:   logger,
				Location: cfg.Location(),
			})
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			dir := pathutil.Root
			if len(args) == 2 {
				dir = pathutil.Clean(pathutil.Root, args[1])
			}
			// Loading the folder first reports a missing folder before any
			// bytes are sent.
			if err := a.ReadDir(ctx, dir); err != nil {
				return err
			}

			session, err := a.HandleFileInput(ctx, app.NewPathInput(args[0]))
			if err != nil {
				return err
			}
			if session == nil {
				return errors.New("nothing to upload")
			}
			a.Uploader().Wait()

			switch session.State() {
			case transfer.StateCompleted:
				return nil
			case transfer.StateAborted:
				return errors.New("upload aborted")
			default:
				return fmt.Errorf("upload failed: %w", session.Err())
			}
		},
	}
	return cmd
}

func newDownloadCmd() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "download <remote file>",
		Short: "Download a file from the server",
		Long: `Download one file into the output directory. An existing local file
is never overwritten: the new copy gets a timestamp suffix.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadClientConfig()
			if err != nil {
				return err
			}
			logger := GetLogger()
			client, err := newAPIClient(cfg, logger)
			if err != nil {
				return err
			}
			if outputDir == "" {
				outputDir = cfg.DownloadDir
			}

			// The panel only tracks uploads; it stays hidden here.
			panel := progress.NewPanel(nil)
			defer panel.Close()

			out := cmd.OutOrStdout()
			a, err := app.New(app.Deps{
				Client:      client,
				Notifier:    &printNotifier{out: out},
				Panel:       panel,
				Logger:      logger,
				DownloadDir: outputDir,
				NewReporter: func() progress.Reporter { return progress.NewCLIProgressTo(cmd.ErrOrStderr()) },
			})
			if err != nil {
				return err
			}

			local, err := a.Download(cmd.Context(), pathutil.Clean(pathutil.Root, args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "saved to %s\n", local)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (default: download_dir from config)")
	return cmd
}
