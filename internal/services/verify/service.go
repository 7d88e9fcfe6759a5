// Package verify combines domain intelligence and an SMTP probe into one
// verdict per address, under a global cap on in-flight validations.
package verify

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/sync/semaphore"

	"github.com/tbckr/mailprobe/internal/probe"
	"github.com/tbckr/mailprobe/internal/services/intel"
)

// DefaultConcurrency is the default number of simultaneous validations.
const DefaultConcurrency = 100

var addressPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// IntelLookup resolves domain intelligence. *intel.Service satisfies it.
type IntelLookup interface {
	Lookup(ctx context.Context, domain string) intel.DomainIntel
}

// Prober probes one recipient on one exchanger. *probe.Prober satisfies it.
type Prober interface {
	Probe(ctx context.Context, mxHost, address string) probe.Outcome
}

// Result is the verdict for one address. Intel is nil when no DNS lookup ran.
// Probe is nil when no probe ran.
type Result struct {
	Address string             `json:"address"`
	Status  Status             `json:"status"`
	Intel   *intel.DomainIntel `json:"intel,omitempty"`
	Probe   *probe.Outcome     `json:"probe,omitempty"`
}

// Service validates addresses. Every call to Validate holds one semaphore
// permit for its whole duration, DNS and SMTP included.
type Service struct {
	intel  IntelLookup
	prober Prober
	sem    *semaphore.Weighted
	logger *slog.Logger
}

// NewService creates the orchestrator. A non-positive concurrency selects
// DefaultConcurrency.
func NewService(lookup IntelLookup, prober Prober, concurrency int, logger *slog.Logger) *Service {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Service{
		intel:  lookup,
		prober: prober,
		sem:    semaphore.NewWeighted(int64(concurrency)),
		logger: logger,
	}
}

// Normalize trims surrounding whitespace and lowercases the address.
func Normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// ValidSyntax reports whether address looks like local-part@domain.tld.
func ValidSyntax(address string) bool {
	return addressPattern.MatchString(address)
}

// Validate produces exactly one Result for address. It never fails:
// cancellation and panics become SMTPFailed.
func (s *Service) Validate(ctx context.Context, address string) (res Result) {
	addr := Normalize(address)
	res = Result{Address: addr}

	if !ValidSyntax(addr) {
		res.Status = Status{Kind: InvalidSyntax}
		return res
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		res.Status = Status{Kind: SMTPFailed, Reason: err.Error()}
		return res
	}
	defer s.sem.Release(1)

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("validation panicked", "address", addr, "panic", r)
			res.Status = Status{Kind: SMTPFailed, Reason: fmt.Sprintf("panic: %v", r)}
		}
	}()

	return s.validate(ctx, res)
}

func (s *Service) validate(ctx context.Context, res Result) Result {
	domain := res.Address[strings.LastIndexByte(res.Address, '@')+1:]
	info := s.intel.Lookup(ctx, domain)
	res.Intel = &info

	mx := info.PrimaryMX()
	if mx == "" {
		res.Status = Status{Kind: InvalidDomainNoMX}
		return res
	}

	out := s.prober.Probe(ctx, mx, res.Address)
	res.Probe = &out
	// A code that ended the dialogue early is classified like a RCPT TO reply:
	// a 554 banner refuses the recipient as surely as a 550 RCPT does.
	if out.HasCode() {
		res.Status = statusFor(out.Code)
	} else {
		res.Status = Status{Kind: SMTPFailed, Reason: out.Message}
	}
	s.logger.Debug("address validated", "address", res.Address, "mx", mx, "status", res.Status.String())
	return res
}
