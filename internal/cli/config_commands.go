package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmmpc/lisfy/internal/config"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage lisfy configuration",
		Long: `Configuration management commands for lisfy.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  test  - Test the connection to the server
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigTestCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup for lisfy.

The configuration is saved to ~/.config/lisfy/config.ini (or --config).
Use --force to overwrite an existing configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cmd.InOrStdin(), cmd.OutOrStdout(), configPath(), force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")
	return cmd
}

func runConfigInit(in io.Reader, out io.Writer, path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(out, "Configuration already exists at: %s\n", path)
			fmt.Fprintln(out, "Use --force to overwrite or run 'config show' to view current config.")
			return nil
		}
	}

	fmt.Fprintln(out, "lisfy Configuration Setup")
	fmt.Fprintln(out, "=========================")
	fmt.Fprintln(out)

	reader := bufio.NewReader(in)
	ask := func(prompt, def string) string {
		fmt.Fprintf(out, "%s [%s]: ", prompt, def)
		input, _ := reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input == "" {
			return def
		}
		return input
	}

	cfg := config.NewConfig()
	cfg.ServerURL = ask("Server URL", cfg.ServerURL)
	cfg.DownloadDir = ask("Download directory", cfg.DownloadDir)
	cfg.CameraDir = ask("Camera directory (newest file is uploaded by 'camera')", "")
	if v, err := strconv.Atoi(ask("Listing retries", "0")); err == nil {
		cfg.Retries = v
	}

	fmt.Fprintln(out)
	if p := strings.ToLower(ask("Configure proxy? (y/N)", "n")); p == "y" || p == "yes" {
		fmt.Fprintln(out, "Proxy modes: no-proxy, system, basic, ntlm")
		cfg.ProxyMode = ask("Proxy mode", config.ProxySystem)
		if cfg.ProxyMode == config.ProxyBasic || cfg.ProxyMode == config.ProxyNTLM {
			cfg.ProxyHost = ask("Proxy host", "")
			if v, err := strconv.Atoi(ask("Proxy port", "8080")); err == nil {
				cfg.ProxyPort = v
			}
			cfg.ProxyUser = ask("Proxy user (password is asked at run time)", "")
		}
	}

	cfg.MergeWithFlags("", "", "", 0)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := config.Save(cfg, path); err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Configuration saved to: %s\n", path)
	return nil
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the current configuration settings.

This command shows the merged configuration from:
  1. Configuration file
  2. Environment variables (LISFY_URL, LISFY_PROXY, LISFY_ROOT, ...)
  3. Command-line flags (--url, --proxy-mode, ...)

Priority: flags > environment > config file > defaults`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			printConfig(cmd.OutOrStdout(), cfg, configPath())
			return nil
		},
	}

	return cmd
}

func printConfig(out io.Writer, cfg *config.Config, path string) {
	fmt.Fprintln(out, "Current Configuration")
	fmt.Fprintln(out, "=====================")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Client Settings:")
	fmt.Fprintf(out, "  Server URL:      %s\n", cfg.ServerURL)
	fmt.Fprintf(out, "  Request Timeout: %s\n", cfg.RequestTimeout)
	fmt.Fprintf(out, "  Retries:         %d\n", cfg.Retries)
	fmt.Fprintf(out, "  Download Dir:    %s\n", cfg.DownloadDir)
	if cfg.CameraDir != "" {
		fmt.Fprintf(out, "  Camera Dir:      %s\n", cfg.CameraDir)
	}
	fmt.Fprintf(out, "  Time Location:   %s\n", cfg.TimeLocation)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Proxy Settings:")
	fmt.Fprintf(out, "  Proxy Mode: %s\n", cfg.ProxyMode)
	if cfg.ProxyHost != "" {
		fmt.Fprintf(out, "  Proxy Host: %s\n", cfg.ProxyHost)
		fmt.Fprintf(out, "  Proxy Port: %d\n", cfg.ProxyPort)
	}
	if cfg.ProxyUser != "" {
		fmt.Fprintf(out, "  Proxy User: %s\n", cfg.ProxyUser)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Server Settings:")
	fmt.Fprintf(out, "  Listen:  %s\n", cfg.Server.Listen)
	fmt.Fprintf(out, "  Storage: %s\n", cfg.Server.Storage)
	switch cfg.Server.Storage {
	case config.StorageS3:
		fmt.Fprintf(out, "  Bucket:  %s (%s)\n", cfg.Server.S3.Bucket, cfg.Server.S3.Region)
	case config.StorageAzure:
		fmt.Fprintf(out, "  Container: %s\n", cfg.Server.Azure.Container)
	default:
		fmt.Fprintf(out, "  Root:    %s\n", cfg.Server.Root)
	}
	fmt.Fprintf(out, "  Gzip:    %t\n", cfg.Server.Gzip)
	fmt.Fprintf(out, "  Metrics: %t\n", cfg.Server.Metrics)
	fmt.Fprintln(out)

	fmt.Fprintf(out, "Configuration file: %s\n", path)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintln(out, "  (file does not exist - using defaults)")
	}
}

// newConfigTestCmd creates the 'config test' command.
func newConfigTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test the connection to the server",
		Long:  `Check that the configured server answers, through the configured proxy.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()
			out := cmd.OutOrStdout()

			cfg, err := loadClientConfig()
			if err != nil {
				return err
			}
			client, err := newAPIClient(cfg, logger)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Server URL: %s\n", cfg.ServerURL)

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			if err := client.Health(ctx); err != nil {
				logger.Error().Err(err).Msg("Connection test failed")
				fmt.Fprintln(out, "Connection FAILED")
				return fmt.Errorf("connection test failed: %w", err)
			}

			logger.Debug().Msg("Connection test successful")
			fmt.Fprintln(out, "Connection SUCCESSFUL")
			return nil
		},
	}

	return cmd
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Long:  `Display the path to the configuration file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path := configPath()
			fmt.Fprintln(out, path)

			if fi, err := os.Stat(path); err == nil {
				fmt.Fprintf(out, "Size:     %d bytes\n", fi.Size())
				fmt.Fprintf(out, "Modified: %s\n", fi.ModTime().Format("2006-01-02 15:04:05"))
			} else {
				fmt.Fprintln(out, "Status: file does not exist")
				fmt.Fprintln(out, "Create a configuration file with: lisfy config init")
			}
			return nil
		},
	}

	return cmd
}
