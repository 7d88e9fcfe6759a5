package resolver

import (
	"errors"
	"net"
	"sort"
	"strings"

	"github.com/miekg/dns"
)

// IsNotFound reports whether err is a DNS "no such name" or "no such record"
// answer rather than a resolution failure.
func IsNotFound(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr) && dnsErr.IsNotFound
}

// notFound returns the not-found error shape net.Resolver uses.
func notFound(name, server string) error {
	return &net.DNSError{Err: "no such host", Name: name, Server: server, IsNotFound: true}
}

// rcodeError converts a non-success response code into a *net.DNSError.
// NXDOMAIN is reported as not-found; everything else is a server failure.
func rcodeError(name, server string, rcode int) error {
	if rcode == dns.RcodeNameError {
		return notFound(name, server)
	}
	text, ok := dns.RcodeToString[rcode]
	if !ok {
		text = "unknown rcode"
	}
	return &net.DNSError{
		Err:         "server answered " + strings.ToLower(text),
		Name:        name,
		Server:      server,
		IsTemporary: rcode == dns.RcodeServerFailure,
	}
}

// DecodeMX extracts MX records from a response, sorted by preference.
// A non-success rcode or an answer without MX records becomes an error.
func DecodeMX(msg *dns.Msg, name, server string) ([]*net.MX, error) {
	if msg.Rcode != dns.RcodeSuccess {
		return nil, rcodeError(name, server, msg.Rcode)
	}
	var mxs []*net.MX
	for _, rr := range msg.Answer {
		if mx, ok := rr.(*dns.MX); ok {
			mxs = append(mxs, &net.MX{Host: mx.Mx, Pref: mx.Preference})
		}
	}
	if len(mxs) == 0 {
		return nil, notFound(name, server)
	}
	sort.SliceStable(mxs, func(i, j int) bool { return mxs[i].Pref < mxs[j].Pref })
	return mxs, nil
}

// DecodeTXT extracts TXT records from a response. Character strings of one
// record are concatenated, matching net.Resolver.LookupTXT.
func DecodeTXT(msg *dns.Msg, name, server string) ([]string, error) {
	if msg.Rcode != dns.RcodeSuccess {
		return nil, rcodeError(name, server, msg.Rcode)
	}
	var txts []string
	for _, rr := range msg.Answer {
		if txt, ok := rr.(*dns.TXT); ok {
			txts = append(txts, strings.Join(txt.Txt, ""))
		}
	}
	if len(txts) == 0 {
		return nil, notFound(name, server)
	}
	return txts, nil
}
