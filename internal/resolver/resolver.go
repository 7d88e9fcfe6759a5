package resolver

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"

	"golang.org/x/net/proxy"
)

// NewResolver returns the platform resolver, or a pure-Go resolver that
// tunnels every query over TCP through a socks5:// proxy. An empty proxyURL
// falls back to ALL_PROXY / all_proxy. Other proxy schemes cannot carry DNS
// and leave the platform resolver in place.
func NewResolver(proxyURL string) (*net.Resolver, error) {
	if proxyURL == "" {
		proxyURL = firstEnv("ALL_PROXY", "all_proxy")
	}
	u, err := url.Parse(proxyURL)
	if proxyURL == "" || err != nil || u.Scheme != "socks5" {
		return &net.Resolver{}, nil
	}

	dialer, err := socks5(u)
	if err != nil {
		return nil, fmt.Errorf("creating SOCKS5 dialer for DNS: %w", err)
	}
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, _, address string) (net.Conn, error) {
			return dialer.DialContext(ctx, "tcp", address)
		},
	}, nil
}

// SOCKS5Dialer builds a context-aware dialer for a socks5:// URL. User info
// in the URL is sent to the proxy as username/password.
func SOCKS5Dialer(proxyURL string) (proxy.ContextDialer, error) {
	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("parsing proxy URL: %w", err)
	}
	if u.Scheme != "socks5" {
		return nil, fmt.Errorf("proxy %q is not a socks5:// URL", u.Redacted())
	}
	return socks5(u)
}

func socks5(u *url.URL) (proxy.ContextDialer, error) {
	if u.Host == "" {
		return nil, fmt.Errorf("proxy %q has no host", u.Redacted())
	}
	var auth *proxy.Auth
	if u.User != nil {
		pass, _ := u.User.Password()
		auth = &proxy.Auth{User: u.User.Username(), Password: pass}
	}
	d, err := proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
	if err != nil {
		return nil, err
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("SOCKS5 dialer does not implement ContextDialer")
	}
	return cd, nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
