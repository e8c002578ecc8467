// Package config provides configuration management for lisfy.
//
// Configuration is read from an INI file and then overridden by environment
// variables and command-line flags (flags > environment > file > defaults).
//
// INI format:
//
//	[client]
//	server_url = http://localhost:7777
//	request_timeout_seconds = 0
//	retries = 0
//	download_dir = .
//	camera_dir = ~/Pictures/Camera
//	desktop_notifications = false
//	time_location = Local
//	log_level = info
//
//	[proxy]
//	mode = no-proxy
//	host = proxy.example.com
//	port = 8080
//	user = alice
//	no_proxy = localhost,10.0.0.0/8
//	warmup = false
//
//	[server]
//	listen = :7777
//	root = ~
//	storage = local
//	metrics = true
//	gzip = true
//	log_format = console
//
//	[server.s3]
//	bucket = files
//	region = us-east-1
//	endpoint =
//	prefix =
//
//	[server.azure]
//	container = files
//	sas_url =
//
// Secrets (proxy password, S3 keys, Azure connection string) are never read
// from the file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jmmpc/lisfy/internal/constants"
)

// Proxy modes
const (
	ProxyNone   = "no-proxy"
	ProxySystem = "system"
	ProxyBasic  = "basic"
	ProxyNTLM   = "ntlm"
)

// Storage kinds served by `lisfy serve`
const (
	StorageLocal = "local"
	StorageS3    = "s3"
	StorageAzure = "azure"
)

// Environment variables
const (
	EnvServerURL          = "LISFY_URL"
	EnvProxy              = "LISFY_PROXY"
	EnvProxyPassword      = "LISFY_PROXY_PASSWORD"
	EnvRoot               = "LISFY_ROOT"
	EnvListen             = "LISFY_LISTEN"
	EnvS3AccessKeyID      = "LISFY_S3_ACCESS_KEY_ID"
	EnvS3SecretAccessKey  = "LISFY_S3_SECRET_ACCESS_KEY"
	EnvAzureConnectionStr = "LISFY_AZURE_CONNECTION_STRING"
)

// Validation errors
var (
	ErrMissingServerURL = errors.New("server_url is required")
	ErrInvalidServerURL = errors.New("server_url must be an http or https URL")
	ErrInvalidProxyMode = errors.New("proxy mode must be one of no-proxy, system, basic, ntlm")
	ErrInvalidRetries   = fmt.Errorf("retries must be between 0 and %d", constants.MaxRetries)
	ErrInvalidStorage   = errors.New("storage must be one of local, s3, azure")
	ErrMissingBucket    = errors.New("s3 bucket is required when storage is s3")
	ErrMissingContainer = errors.New("azure container (or sas_url) is required when storage is azure")
)

// Config holds client, proxy and server settings.
type Config struct {
	// Client settings
	ServerURL            string
	RequestTimeout       time.Duration // 0 means no timeout on listings
	Retries              int           // listing retries; uploads are never retried
	DownloadDir          string
	CameraDir            string
	DesktopNotifications bool
	TimeLocation         string
	LogLevel             string

	// Proxy settings
	ProxyMode     string // "no-proxy", "system", "basic", "ntlm"
	ProxyHost     string
	ProxyPort     int
	ProxyUser     string
	ProxyPassword string
	NoProxy       string // Comma-separated list of hosts to bypass proxy
	ProxyWarmup   bool

	Server ServerConfig
}

// ServerConfig holds `lisfy serve` settings.
type ServerConfig struct {
	Listen    string
	Root      string
	Storage   string
	Metrics   bool
	Gzip      bool
	LogFormat string // "console" or "json"

	S3    S3Config
	Azure AzureConfig
}

// S3Config selects a bucket (and optional key prefix) as the served tree.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // custom endpoint for S3-compatible stores
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
}

// AzureConfig selects a blob container as the served tree.
type AzureConfig struct {
	Container        string
	SASURL           string
	ConnectionString string
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		ServerURL:    constants.DefaultServerURL,
		DownloadDir:  ".",
		TimeLocation: "Local",
		LogLevel:     "info",
		ProxyMode:    ProxyNone,
		Server: ServerConfig{
			Listen:    constants.DefaultListenAddr,
			Root:      "~",
			Storage:   StorageLocal,
			Metrics:   true,
			Gzip:      true,
			LogFormat: "console",
			S3: S3Config{
				Region: "us-east-1",
			},
		},
	}
}

// ApplyEnv overrides settings from environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvServerURL); v != "" {
		c.ServerURL = v
	}
	if v := os.Getenv(EnvProxy); v != "" && c.ProxyHost == "" {
		c.parseProxyURL(v)
	}
	if v := os.Getenv(EnvProxyPassword); v != "" {
		c.ProxyPassword = v
	}
	if v := os.Getenv(EnvRoot); v != "" {
		c.Server.Root = v
	}
	if v := os.Getenv(EnvListen); v != "" {
		c.Server.Listen = v
	}
	if v := os.Getenv(EnvS3AccessKeyID); v != "" {
		c.Server.S3.AccessKeyID = v
	}
	if v := os.Getenv(EnvS3SecretAccessKey); v != "" {
		c.Server.S3.SecretAccessKey = v
	}
	if v := os.Getenv(EnvAzureConnectionStr); v != "" {
		c.Server.Azure.ConnectionString = v
	}
}

// MergeWithFlags applies command-line overrides. Empty values leave the
// current setting untouched.
func (c *Config) MergeWithFlags(serverURL, proxyMode, proxyHost string, proxyPort int) {
	if serverURL != "" {
		c.ServerURL = serverURL
	}
	if proxyMode != "" {
		c.ProxyMode = proxyMode
	}
	if proxyHost != "" {
		c.ProxyHost = proxyHost
	}
	if proxyPort > 0 {
		c.ProxyPort = proxyPort
	}

	if c.ServerURL != "" && !strings.HasPrefix(c.ServerURL, "http") {
		c.ServerURL = "http://" + c.ServerURL
	}
	c.ServerURL = strings.TrimRight(c.ServerURL, "/")
}

// parseProxyURL parses http://host:port into proxy settings.
func (c *Config) parseProxyURL(proxyURL string) {
	if !strings.Contains(proxyURL, "://") {
		proxyURL = "http://" + proxyURL
	}
	u, err := url.Parse(proxyURL)
	if err != nil || u.Hostname() == "" {
		return
	}
	c.ProxyHost = u.Hostname()
	if p := u.Port(); p != "" {
		fmt.Sscanf(p, "%d", &c.ProxyPort)
	}
	if u.User != nil {
		c.ProxyUser = u.User.Username()
	}
	if c.ProxyMode == ProxyNone || c.ProxyMode == "" {
		c.ProxyMode = ProxyBasic
	}
}

// Validate checks the client settings.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ServerURL) == "" {
		return ErrMissingServerURL
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidServerURL
	}
	switch strings.ToLower(c.ProxyMode) {
	case "", ProxyNone, ProxySystem, ProxyBasic, ProxyNTLM:
	default:
		return ErrInvalidProxyMode
	}
	if c.Retries < 0 || c.Retries > constants.MaxRetries {
		return ErrInvalidRetries
	}
	if _, err := time.LoadLocation(c.TimeLocation); err != nil {
		return fmt.Errorf("invalid time_location %q: %w", c.TimeLocation, err)
	}
	return nil
}

// ValidateServer checks the `lisfy serve` settings.
func (c *Config) ValidateServer() error {
	switch c.Server.Storage {
	case StorageLocal:
	case StorageS3:
		if c.Server.S3.Bucket == "" {
			return ErrMissingBucket
		}
	case StorageAzure:
		if c.Server.Azure.Container == "" && c.Server.Azure.SASURL == "" {
			return ErrMissingContainer
		}
	default:
		return ErrInvalidStorage
	}
	return nil
}

// Location returns the time zone rows are rendered in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeLocation)
	if err != nil {
		return time.Local
	}
	return loc
}

// NeedsProxyPassword reports whether an authenticating proxy is configured
// with a user but no password yet.
func (c *Config) NeedsProxyPassword() bool {
	mode := strings.ToLower(c.ProxyMode)
	if mode != ProxyBasic && mode != ProxyNTLM {
		return false
	}
	return c.ProxyUser != "" && c.ProxyPassword == ""
}
