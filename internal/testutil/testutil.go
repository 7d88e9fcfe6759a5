// Package testutil provides shared test helpers for service unit tests.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/tbckr/mailprobe/internal/probe"
	"github.com/tbckr/mailprobe/internal/services"
)

// MockResolver implements services.DNSResolverInterface for testing.
// Each field is a function so tests can set only the methods they need.
type MockResolver struct {
	LookupMXFn  func(ctx context.Context, name string) ([]*net.MX, error)
	LookupTXTFn func(ctx context.Context, name string) ([]string, error)
}

var _ services.DNSResolverInterface = (*MockResolver)(nil)

// LookupMX implements DNSResolverInterface.
func (m *MockResolver) LookupMX(ctx context.Context, name string) ([]*net.MX, error) {
	if m.LookupMXFn != nil {
		return m.LookupMXFn(ctx, name)
	}
	return nil, nil
}

// LookupTXT implements DNSResolverInterface.
func (m *MockResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	if m.LookupTXTFn != nil {
		return m.LookupTXTFn(ctx, name)
	}
	return nil, nil
}

// NotFound returns the error shape a resolver reports for NXDOMAIN.
func NotFound(name string) error {
	return &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
}

// ServFail returns the error shape a resolver reports for a server failure.
func ServFail(name string) error {
	return &net.DNSError{Err: "server misbehaving", Name: name, IsTemporary: true}
}

// MockProber records every probe and answers with ProbeFn.
// A nil ProbeFn answers 250 for every recipient.
type MockProber struct {
	ProbeFn func(ctx context.Context, mxHost, address string) probe.Outcome

	mu    sync.Mutex
	calls []string
}

// Probe implements verify.Prober.
func (m *MockProber) Probe(ctx context.Context, mxHost, address string) probe.Outcome {
	m.mu.Lock()
	m.calls = append(m.calls, mxHost+" "+address)
	m.mu.Unlock()
	if m.ProbeFn != nil {
		return m.ProbeFn(ctx, mxHost, address)
	}
	return probe.Outcome{Code: 250, Message: "2.1.5 OK", Stage: probe.StageRcptTo}
}

// Calls returns "<mx> <address>" for every probe seen so far.
func (m *MockProber) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// NopLogger returns a logger that discards all output.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
