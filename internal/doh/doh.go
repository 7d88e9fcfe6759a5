// Package doh implements MX and TXT lookups over DNS-over-HTTPS (RFC 8484)
// using wire-format GET requests.
package doh

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"

	"github.com/imroc/req/v3"
	"github.com/miekg/dns"

	"github.com/tbckr/mailprobe/internal/apperr"
	"github.com/tbckr/mailprobe/internal/resolver"
)

const (
	// DefaultURL is the Quad9 DNS-over-HTTPS endpoint.
	DefaultURL = "https://dns.quad9.net/dns-query"

	// DefaultRPS is the default request rate against the DoH endpoint.
	DefaultRPS float64 = 50
	// DefaultBurst is the burst capacity above DefaultRPS.
	DefaultBurst = 25
)

// Client resolves through a DoH endpoint. It satisfies
// services.DNSResolverInterface.
type Client struct {
	http *req.Client
	url  string
}

// New creates a Client for endpoint url using the given HTTP client.
// An empty url selects DefaultURL.
func New(client *req.Client, url string) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{http: client, url: url}
}

// LookupMX implements services.DNSResolverInterface.
func (c *Client) LookupMX(ctx context.Context, name string) ([]*net.MX, error) {
	msg, err := c.query(ctx, name, dns.TypeMX)
	if err != nil {
		return nil, err
	}
	return resolver.DecodeMX(msg, name, c.url)
}

// LookupTXT implements services.DNSResolverInterface.
func (c *Client) LookupTXT(ctx context.Context, name string) ([]string, error) {
	msg, err := c.query(ctx, name, dns.TypeTXT)
	if err != nil {
		return nil, err
	}
	return resolver.DecodeTXT(msg, name, c.url)
}

// buildQuery packs a recursive query for name. The ID is zero so responses
// stay HTTP-cache friendly.
func buildQuery(name string, qtype uint16) ([]byte, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), qtype)
	m.Id = 0
	m.RecursionDesired = true
	return m.Pack()
}

func (c *Client) query(ctx context.Context, name string, qtype uint16) (*dns.Msg, error) {
	wire, err := buildQuery(name, qtype)
	if err != nil {
		return nil, fmt.Errorf("%w: building DNS query for %q: %w", apperr.ErrRequestFailed, name, err)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/dns-message").
		SetQueryParam("dns", base64.RawURLEncoding.EncodeToString(wire)).
		Get(c.url)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: DoH request for %q: %w", apperr.ErrRequestFailed, name, err)
	}
	if !resp.IsSuccessState() {
		return nil, fmt.Errorf("%w: DoH endpoint returned HTTP %d for %q", apperr.ErrRequestFailed, resp.StatusCode, name)
	}

	msg := new(dns.Msg)
	if err := msg.Unpack(resp.Bytes()); err != nil {
		return nil, fmt.Errorf("%w: parsing DoH response for %q: %w", apperr.ErrRequestFailed, name, err)
	}
	return msg, nil
}
