// Package resolver provides the DNS backends used for MX and TXT lookups:
// the platform resolver (optionally tunnelled through a SOCKS5 proxy to avoid
// DNS leaks) and a direct wire-protocol client to a fixed nameserver. It also
// holds the message decoding and not-found classification shared with the
// DNS-over-HTTPS backend.
package resolver
