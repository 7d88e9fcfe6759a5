package intel

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/tbckr/mailprobe/internal/detect"
	"github.com/tbckr/mailprobe/internal/output"
	"github.com/tbckr/mailprobe/internal/resolver"
	"github.com/tbckr/mailprobe/internal/services"
)

// DefaultTimeout bounds each individual DNS lookup.
const DefaultTimeout = 5 * time.Second

// Service resolves DomainIntel using the injected resolver.
type Service struct {
	resolver   services.DNSResolverInterface
	classifier *detect.Classifier
	logger     *slog.Logger
	timeout    time.Duration
}

// NewService creates an intel service. A non-positive timeout selects
// DefaultTimeout.
func NewService(r services.DNSResolverInterface, classifier *detect.Classifier, logger *slog.Logger, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{resolver: r, classifier: classifier, logger: logger, timeout: timeout}
}

// Lookup gathers MX, provider, and policy data for domain. It never fails:
// lookup errors leave the corresponding fields absent.
func (s *Service) Lookup(ctx context.Context, domain string) DomainIntel {
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))
	result := DomainIntel{Domain: domain}

	result.MX = s.lookupMX(ctx, domain)
	result.Provider = s.classifier.Provider(result.MX)

	txts, err := s.lookupTXT(ctx, domain)
	if err != nil && !resolver.IsNotFound(err) {
		s.logger.Debug("TXT lookup failed", "domain", domain, "error", err)
		result.Spoofable = SpoofableUnknown
		return result
	}
	spf := spfPolicy(txts)
	result.SPFPresent, result.SPFWeak = spf.present, spf.weak

	dmarcName := "_dmarc." + domain
	dmarcTXT, err := s.lookupTXT(ctx, dmarcName)
	if err != nil {
		s.logger.Debug("DMARC lookup failed", "domain", dmarcName, "error", err)
	}
	dmarc := dmarcPolicy(dmarcTXT)
	result.DMARCPresent, result.DMARCWeak = dmarc.present, dmarc.weak

	result.Spoofable = verdict(spf, dmarc)
	return result
}

func (s *Service) lookupMX(ctx context.Context, domain string) []string {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	mxs, err := s.resolver.LookupMX(ctx, domain)
	if err != nil {
		s.logger.Debug("MX lookup failed", "domain", domain, "error", err)
		return nil
	}
	sort.SliceStable(mxs, func(i, j int) bool { return mxs[i].Pref < mxs[j].Pref })
	hosts := make([]string, 0, len(mxs))
	for _, mx := range mxs {
		host := strings.TrimSuffix(output.StripANSI(mx.Host), ".")
		if host == "" {
			continue
		}
		hosts = append(hosts, host)
	}
	return hosts
}

func (s *Service) lookupTXT(ctx context.Context, name string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.resolver.LookupTXT(ctx, name)
}
