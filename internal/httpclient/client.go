// Package httpclient builds the *req.Client used for DNS-over-HTTPS lookups.
package httpclient

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/imroc/req/v3"

	"github.com/tbckr/mailprobe/internal/version"
)

// DefaultUserAgent is sent when Options.UserAgent is empty. It is a var
// because version.Version is set at link time.
var DefaultUserAgent = "mailprobe/" + version.Version

// Options configures New.
type Options struct {
	// Proxy is an http://, https://, or socks5:// URL. Empty honours the
	// standard proxy environment variables.
	Proxy     string
	UserAgent string
	// Timeout bounds each attempt. Zero leaves it to the caller's context.
	Timeout time.Duration
	// Logger receives one debug line per response when Debug is set.
	Logger *slog.Logger
	Debug  bool
}

// New builds a client from opts.
func New(opts Options) (*req.Client, error) {
	client := req.NewClient()

	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	client.SetUserAgent(ua)

	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}

	if opts.Proxy == "" {
		client.SetProxy(http.ProxyFromEnvironment)
	} else {
		if err := checkProxy(opts.Proxy); err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", opts.Proxy, err)
		}
		client.SetProxyURL(opts.Proxy)
	}

	if opts.Debug && opts.Logger != nil {
		logResponses(client, opts.Logger)
	}
	return client, nil
}

func logResponses(client *req.Client, logger *slog.Logger) {
	client.OnAfterResponse(func(_ *req.Client, resp *req.Response) error {
		if resp.Request == nil || resp.Request.RawRequest == nil {
			return nil
		}
		logger.Debug("doh response",
			"url", resp.Request.RawRequest.URL.Redacted(),
			"status", resp.StatusCode,
			"elapsed", resp.TotalTime(),
		)
		return nil
	})
}

func checkProxy(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "http", "https", "socks5":
	default:
		return fmt.Errorf("proxy scheme must be http://, https://, or socks5://")
	}
	if u.Host == "" {
		return fmt.Errorf("proxy URL has no host")
	}
	return nil
}
