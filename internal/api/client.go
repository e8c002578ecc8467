// Package api is the HTTP client for the lisfy file server.
//
// Every operation returns either its result or a categorized error:
// *StatusError when the server answered with a non-200 status, an error
// wrapping ErrConnection when no response arrived, or the context's error
// when the caller cancelled.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/jmmpc/lisfy/internal/config"
	"github.com/jmmpc/lisfy/internal/constants"
	"github.com/jmmpc/lisfy/internal/http"
	"github.com/jmmpc/lisfy/internal/logging"
	"github.com/jmmpc/lisfy/internal/models"
	"github.com/jmmpc/lisfy/internal/pathutil"
)

// retryLogger implements the retryablehttp.LeveledLogger interface
type retryLogger struct {
	logger *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}

// Client talks to one file server.
type Client struct {
	listClient     *nethttp.Client // retrying, for idempotent GETs of listings
	transferClient *nethttp.Client // single attempt, for request and response bodies
	baseURL        string
	timeout        time.Duration
	logger         *logging.Logger
}

// NewClient creates a client for cfg.ServerURL.
func NewClient(cfg *config.Config, logger *logging.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.ServerURL) == "" {
		return nil, fmt.Errorf("server URL is empty: %w", config.ErrMissingServerURL)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	httpClient, err := http.ConfigureHTTPClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	transferClient, err := http.CreateTransferClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure transfer client: %w", err)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = httpClient
	retryClient.RetryMax = cfg.Retries
	retryClient.RetryWaitMin = constants.RetryInitialDelay
	retryClient.RetryWaitMax = constants.RetryMaxDelay
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = &retryLogger{logger: logger}

	return &Client{
		listClient:     retryClient.StandardClient(),
		transferClient: transferClient,
		baseURL:        strings.TrimSuffix(cfg.ServerURL, "/"),
		timeout:        cfg.RequestTimeout,
		logger:         logger,
	}, nil
}

// BaseURL returns the server URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL joins the base URL and an unescaped server path.
func (c *Client) URL(p string) string {
	return c.baseURL + (&url.URL{Path: p}).EscapedPath()
}

// do sends req and classifies transport failures.
func (c *Client) do(ctx context.Context, hc *nethttp.Client, req *nethttp.Request) (*nethttp.Response, error) {
	resp, err := hc.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %w", ErrConnection, ctxErr)
			}
			return nil, ctxErr
		}
		c.logger.Debug().Err(err).Str("method", req.Method).Str("url", req.URL.String()).Msg("request failed")
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	c.logger.Debug().Str("method", req.Method).Str("url", req.URL.String()).Int("status", resp.StatusCode).Msg("response")
	return resp, nil
}

// ListDir fetches the entries of the directory at p ("/" for the root).
// A null or empty body is an empty directory.
func (c *Client) ListDir(ctx context.Context, p string) ([]models.DirectoryEntry, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, c.URL(constants.FilesPrefix+p), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(ctx, c.listClient, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: reading listing: %w", ErrConnection, err)
	}

	if resp.StatusCode != nethttp.StatusOK {
		return nil, &StatusError{
			Op:     "list",
			Code:   resp.StatusCode,
			Status: statusText(resp.StatusCode, resp.Status),
			Body:   string(body),
		}
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		return []models.DirectoryEntry{}, nil
	}

	var entries []models.DirectoryEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode listing: %w", err)
	}
	if entries == nil {
		entries = []models.DirectoryEntry{}
	}
	return entries, nil
}

// Upload sends body as the file name inside directory dir. size must be
// the exact body length; onProgress is called as bytes leave the client.
func (c *Client) Upload(ctx context.Context, dir, name string, body io.Reader, size int64, onProgress ProgressFunc) error {
	target := constants.UploadPrefix + pathutil.Join(dir, name)

	pr := &progressReader{r: body, total: size, fn: onProgress}
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodPost, c.URL(target), pr)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.do(ctx, c.transferClient, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return &StatusError{
			Op:     "upload",
			Code:   resp.StatusCode,
			Status: statusText(resp.StatusCode, resp.Status),
			Body:   string(respBody),
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// DownloadInfo describes a download response before its body is read.
type DownloadInfo struct {
	Size    int64 // -1 when the server did not send a length
	ModTime time.Time
}

// Download streams the file at server path p into w.
// prepare, when non-nil, runs after the response headers arrive and before
// any byte is written; returning an error aborts the transfer.
func (c *Client) Download(ctx context.Context, p string, w io.Writer, prepare func(DownloadInfo) error, onProgress ProgressFunc) (int64, error) {
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, c.URL(constants.DownloadPrefix+p), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.do(ctx, c.transferClient, req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, &StatusError{
			Op:     "download",
			Code:   resp.StatusCode,
			Status: statusText(resp.StatusCode, resp.Status),
			Body:   string(body),
		}
	}

	info := DownloadInfo{Size: resp.ContentLength}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := nethttp.ParseTime(lm); err == nil {
			info.ModTime = t
		}
	}
	if prepare != nil {
		if err := prepare(info); err != nil {
			return 0, err
		}
	}

	total := resp.ContentLength
	if total < 0 {
		total = 0
	}
	pw := &progressWriter{w: w, total: total, fn: onProgress}
	n, err := io.Copy(pw, resp.Body)
	if err != nil {
		if pw.err != nil {
			return n, fmt.Errorf("failed to write download: %w", pw.err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return n, ctxErr
		}
		return n, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	return n, nil
}

// Health checks that the server answers on /healthz.
func (c *Client) Health(ctx context.Context) error {
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.do(ctx, c.listClient, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != nethttp.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &StatusError{Op: "health", Code: resp.StatusCode, Status: statusText(resp.StatusCode, resp.Status), Body: string(body)}
	}
	return nil
}
