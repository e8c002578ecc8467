// Package http builds the HTTP clients used to talk to the file server.
package http

import (
	"crypto/tls"
	nethttp "net/http"
	"os"

	"golang.org/x/net/http2"

	"github.com/jmmpc/lisfy/internal/config"
)

// CreateTransferClient returns a client tuned for streaming file bodies:
// proxy settings from cfg, no response decompression, HTTP/2 when talking
// TLS directly to the server.
//
// HTTP/2 is disabled when a proxy is active (proxies often break
// multiplexed streams mid-transfer) or when DISABLE_HTTP2=true.
func CreateTransferClient(cfg *config.Config) (*nethttp.Client, error) {
	baseClient, err := ConfigureHTTPClient(cfg)
	if err != nil {
		return nil, err
	}

	tr, ok := baseClient.Transport.(*nethttp.Transport)
	if !ok {
		// Wrapped by the NTLM negotiator
		return baseClient, nil
	}

	tr.DisableCompression = true
	tr.ForceAttemptHTTP2 = true
	_ = http2.ConfigureTransport(tr)

	if os.Getenv("DISABLE_HTTP2") == "true" || proxyActive(cfg) {
		tr.ForceAttemptHTTP2 = false
		tr.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
	}

	baseClient.Transport = tr
	return baseClient, nil
}

func proxyActive(cfg *config.Config) bool {
	switch cfg.ProxyMode {
	case config.ProxyNone, "":
		return false
	case config.ProxySystem:
		return os.Getenv("HTTP_PROXY") != "" || os.Getenv("HTTPS_PROXY") != "" ||
			os.Getenv("http_proxy") != "" || os.Getenv("https_proxy") != ""
	default:
		return true
	}
}
