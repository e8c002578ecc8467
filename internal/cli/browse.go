package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jmmpc/lisfy/internal/app"
	"github.com/jmmpc/lisfy/internal/constants"
	"github.com/jmmpc/lisfy/internal/events"
	"github.com/jmmpc/lisfy/internal/logging"
	"github.com/jmmpc/lisfy/internal/notify"
	"github.com/jmmpc/lisfy/internal/pathutil"
	"github.com/jmmpc/lisfy/internal/progress"
	"github.com/jmmpc/lisfy/internal/shell"
)

func newBrowseCmd() *cobra.Command {
	var (
		startPath string
		cameraDir string
		desktop   bool
	)

	cmd := &cobra.Command{
		Use:   "browse [path]",
		Short: "Browse the server interactively",
		Long: `Open an interactive browser on the server.

Type "help" at the prompt for the list of commands. Uploads show a
progress panel at the bottom of the terminal; "abort" cancels the one
in the panel.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadClientConfig()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				startPath = args[0]
			}
			if cameraDir == "" {
				cameraDir = cfg.CameraDir
			}

			bus := events.NewEventBus(constants.EventBusDefaultBuffer)
			defer bus.Close()

			logger := logging.NewLogger(logging.ModeCLI, bus)
			client, err := newAPIClient(cfg, logger)
			if err != nil {
				return err
			}

			notifier := notify.NewNotifier(&notify.Config{
				DesktopEnabled: desktop || cfg.DesktopNotifications,
			}, bus, logger)

			panel := progress.NewPanel(bus)
			defer panel.Close()

			a, err := app.New(app.Deps{
				Client:      client,
				Notifier:    notifier,
				Panel:       panel,
				Bus:         bus,
				Logger:      logger,
				Location:    cfg.Location(),
				DownloadDir: cfg.DownloadDir,
				NewReporter: func() progress.Reporter { return progress.NewCLIProgressTo(panel.Writer()) },
			})
			if err != nil {
				return err
			}

			sh, err := shell.New(shell.Options{
				App:       a,
				Notifier:  notifier,
				Bus:       bus,
				Logger:    logger,
				In:        os.Stdin,
				Out:       cmd.OutOrStdout(),
				CameraDir: cameraDir,
				StartPath: pathutil.Clean(pathutil.Root, startPath),
			})
			if err != nil {
				return err
			}
			logger.SetOutput(sh.Renderer())

			return sh.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cameraDir, "camera-dir", "", "Folder whose newest file the camera command uploads")
	cmd.Flags().BoolVar(&desktop, "desktop-notifications", false, "Mirror notifications to the desktop")
	return cmd
}
