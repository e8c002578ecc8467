package cli

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"github.com/jmmpc/lisfy/internal/config"
	"github.com/jmmpc/lisfy/internal/logging"
	"github.com/jmmpc/lisfy/internal/metrics"
	"github.com/jmmpc/lisfy/internal/server"
	"github.com/jmmpc/lisfy/internal/storage/providers"
)

func newServeCmd() *cobra.Command {
	var (
		listen    string
		root      string
		storage   string
		logFormat string
		noGzip    bool
		noMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a folder, S3 bucket or Azure container over HTTP",
		Long: `Start the file server.

Routes:
  GET  /files/<path>     JSON listing of a folder (or a single entry)
  GET  /download/<path>  file content
  POST /upload/<path>    raw request body saved as <path>, with a
                         timestamp added to the file name
  GET  /healthz          liveness
  GET  /metrics          Prometheus metrics (unless disabled)

Storage is chosen with [server] storage in the config file: local (the
default, serving --root), s3 or azure.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			applyServeFlags(cmd, cfg, listen, root, storage, logFormat, noGzip, noMetrics)
			if err := cfg.ValidateServer(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			mode := logging.ModeServer
			if cfg.Server.LogFormat == "json" {
				mode = logging.ModeJSON
			}
			logger := logging.NewLogger(mode, nil)

			ctx := cmd.Context()
			backend, err := providers.New(ctx, cfg.Server)
			if err != nil {
				return err
			}
			defer backend.Close()

			opts := server.Options{Addr: cfg.Server.Listen, Gzip: cfg.Server.Gzip}
			if cfg.Server.Metrics {
				opts.Metrics = metrics.New()
			}
			srv := server.New(backend, opts, logger)

			ln, err := net.Listen("tcp", cfg.Server.Listen)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Listen, err)
			}
			if url, ok := lanURL(ln.Addr()); ok {
				logger.Info().Str("url", url).Msgf("Start serving files on %s", url)
			}
			return srv.Serve(ctx, ln)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Listen address (default :7777)")
	cmd.Flags().StringVar(&root, "root", "", "Folder to serve with local storage (default: home directory)")
	cmd.Flags().StringVar(&storage, "storage", "", "Storage backend: local, s3, azure")
	cmd.Flags().StringVar(&logFormat, "log-format", "", "Log format: console or json")
	cmd.Flags().BoolVar(&noGzip, "no-gzip", false, "Disable gzip compression of listings")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "Disable the /metrics endpoint")
	return cmd
}

// applyServeFlags overrides cfg with the flags the user actually set.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config, listen, root, storage, logFormat string, noGzip, noMetrics bool) {
	if listen != "" {
		cfg.Server.Listen = listen
	}
	if root != "" {
		cfg.Server.Root = root
	}
	if storage != "" {
		cfg.Server.Storage = storage
	}
	if logFormat != "" {
		cfg.Server.LogFormat = logFormat
	}
	if cmd.Flags().Changed("no-gzip") {
		cfg.Server.Gzip = !noGzip
	}
	if cmd.Flags().Changed("no-metrics") {
		cfg.Server.Metrics = !noMetrics
	}
}

// lanURL is the address other machines on the network use to reach addr.
func lanURL(addr net.Addr) (string, bool) {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return "", false
	}
	ip := tcp.IP
	if ip == nil || ip.IsUnspecified() {
		local, err := server.LocalIP()
		if err != nil {
			return "", false
		}
		ip = local
	}
	return fmt.Sprintf("http://%s", net.JoinHostPort(ip.String(), fmt.Sprint(tcp.Port))), true
}
