package constants

import (
	"time"
)

// HTTP endpoint prefixes served by the file server
const (
	// FilesPrefix - directory listings and single-entry stats
	FilesPrefix = "/files"

	// UploadPrefix - raw-body file uploads (POST)
	UploadPrefix = "/upload"

	// DownloadPrefix - file content
	DownloadPrefix = "/download"

	// DownloadHrefPrefix - href prefix rendered on file rows (relative, no leading slash)
	DownloadHrefPrefix = "download"
)

// User-facing messages
const (
	// ConnectionErrorMessage - shown for any network-level failure
	ConnectionErrorMessage = "Connection error: check your network connection."

	// UploadedMessageFormat - shown when the server accepted an upload
	UploadedMessageFormat = "File \"%s\" uploaded"

	// UploadErrorMessageFormat - shown with the server's status text
	UploadErrorMessageFormat = "Error: %s"

	// SearchUnsupportedMessage - the search input is not wired to any backend
	SearchUnsupportedMessage = "Search is not supported"
)

// Server defaults
const (
	// DefaultListenAddr - listen address for `lisfy serve`
	DefaultListenAddr = ":7777"

	// DefaultServerURL - where the client looks for a server by default
	DefaultServerURL = "http://localhost:7777"

	// UniqueNameTimeLayout - timestamp suffix appended to uploaded file names
	UniqueNameTimeLayout = "2006-01-02_150405"

	// ShutdownTimeout - grace period for in-flight requests on SIGINT/SIGTERM
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout - protects the server against slow-header clients
	ReadHeaderTimeout = 30 * time.Second
)

// Client transfer settings
const (
	// RetryInitialDelay - initial backoff for listing retries
	RetryInitialDelay = 200 * time.Millisecond

	// RetryMaxDelay - maximum backoff for listing retries
	RetryMaxDelay = 15 * time.Second

	// MaxRetries - upper bound accepted for the `retries` setting
	MaxRetries = 10

	// DiskSpaceBufferPercent - extra free space required before a download (15%)
	DiskSpaceBufferPercent = 0.15

	// ProgressUpdateInterval - minimum interval between upload progress events
	ProgressUpdateInterval = 100 * time.Millisecond
)

// HTTP transport settings
const (
	// HTTPDialTimeout - TCP connect timeout
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - TCP keep-alive period
	HTTPDialKeepAlive = 30 * time.Second

	// HTTPIdleConnTimeout - how long idle pooled connections are kept
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - TLS handshake timeout
	HTTPTLSHandshakeTimeout = 30 * time.Second

	// HTTPExpectContinueTimeout - wait for 100-continue before sending a body
	HTTPExpectContinueTimeout = 1 * time.Second

	// ProxyWarmupTimeout - bound on the optional proxy warmup request
	ProxyWarmupTimeout = 15 * time.Second

	// DefaultProxyPort - used when a proxy host is configured without a port
	DefaultProxyPort = 8080
)

// Event bus settings
const (
	// EventBusDefaultBuffer - default buffer size for event channels (1000)
	EventBusDefaultBuffer = 1000

	// EventBusMaxBuffer - maximum buffer size for high-throughput scenarios (5000)
	EventBusMaxBuffer = 5000
)

// Display settings
const (
	// DateTimeLayout - local date and local time joined by a space
	DateTimeLayout = "2006-01-02 15:04:05"

	// MaxDisplayNameLength - file names longer than this are truncated in bars
	MaxDisplayNameLength = 40
)
