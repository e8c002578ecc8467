package cli

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/jmmpc/lisfy/internal/api"
	"github.com/jmmpc/lisfy/internal/config"
	"github.com/jmmpc/lisfy/internal/logging"
)

// loadConfig reads the config file and applies, in order, the environment
// and the global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	cfg.MergeWithFlags(serverURL, proxyMode, proxyHost, proxyPort)

	if !verbose && !debug {
		logging.SetGlobalLevel(logging.ParseLevel(cfg.LogLevel))
	}
	return cfg, nil
}

// loadClientConfig is loadConfig plus what the client commands need: a
// proxy password when one is missing, and validation.
func loadClientConfig() (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.NeedsProxyPassword() {
		password, err := promptProxyPassword(cfg.ProxyUser)
		if err != nil {
			return nil, err
		}
		cfg.ProxyPassword = password
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newAPIClient builds the HTTP client for cfg.
func newAPIClient(cfg *config.Config, logger *logging.Logger) (*api.Client, error) {
	client, err := api.NewClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

// promptProxyPassword reads the proxy password without echo. It fails when
// stdin is not a terminal; set LISFY_PROXY_PASSWORD instead.
func promptProxyPassword(user string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("proxy password for %q required: set %s", user, config.EnvProxyPassword)
	}
	fmt.Fprintf(os.Stderr, "Proxy password for %s: ", user)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read proxy password: %w", err)
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}
