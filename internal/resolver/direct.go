package resolver

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/miekg/dns"
)

// Direct queries a single nameserver over UDP, retrying over TCP when the
// answer is truncated. It bypasses the platform resolver and its caches.
type Direct struct {
	server string
	udp    *dns.Client
	tcp    *dns.Client
}

// NewDirect creates a Direct resolver for server ("host:port"). A server
// without a port gets port 53.
func NewDirect(server string, timeout time.Duration) *Direct {
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}
	return &Direct{
		server: server,
		udp:    &dns.Client{Net: "udp", Timeout: timeout},
		tcp:    &dns.Client{Net: "tcp", Timeout: timeout},
	}
}

// LookupMX implements services.DNSResolverInterface.
func (d *Direct) LookupMX(ctx context.Context, name string) ([]*net.MX, error) {
	msg, err := d.exchange(ctx, name, dns.TypeMX)
	if err != nil {
		return nil, err
	}
	return DecodeMX(msg, name, d.server)
}

// LookupTXT implements services.DNSResolverInterface.
func (d *Direct) LookupTXT(ctx context.Context, name string) ([]string, error) {
	msg, err := d.exchange(ctx, name, dns.TypeTXT)
	if err != nil {
		return nil, err
	}
	return DecodeTXT(msg, name, d.server)
}

func (d *Direct) exchange(ctx context.Context, name string, qtype uint16) (*dns.Msg, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), qtype)
	m.RecursionDesired = true

	in, _, err := d.udp.ExchangeContext(ctx, m, d.server)
	if err == nil && in.Truncated {
		in, _, err = d.tcp.ExchangeContext(ctx, m, d.server)
	}
	if err != nil {
		dnsErr := &net.DNSError{Err: err.Error(), Name: name, Server: d.server}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			dnsErr.IsTimeout = true
		}
		return nil, dnsErr
	}
	return in, nil
}
