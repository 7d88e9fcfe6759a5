// Package services defines the interfaces shared by the validation services
// and the infrastructure backends that feed them.
package services

import (
	"context"
	"net"
)

// DNSResolverInterface is the DNS capability the intelligence service needs.
// *net.Resolver satisfies it directly, as do resolver.Direct and doh.Client.
// Backends report NXDOMAIN and empty answers as *net.DNSError with
// IsNotFound set so callers can tell "absent" from "broken".
type DNSResolverInterface interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
	LookupTXT(ctx context.Context, name string) ([]string, error)
}
