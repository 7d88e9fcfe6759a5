package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tbckr/mailprobe/internal/config"
	"github.com/tbckr/mailprobe/internal/detect"
	"github.com/tbckr/mailprobe/internal/doh"
	"github.com/tbckr/mailprobe/internal/httpclient"
	"github.com/tbckr/mailprobe/internal/output"
	"github.com/tbckr/mailprobe/internal/probe"
	"github.com/tbckr/mailprobe/internal/ratelimit"
	"github.com/tbckr/mailprobe/internal/resolver"
	"github.com/tbckr/mailprobe/internal/services"
	"github.com/tbckr/mailprobe/internal/services/intel"
	"github.com/tbckr/mailprobe/internal/services/verify"
)

// deps holds fully-resolved runtime dependencies for a subcommand.
type deps struct {
	logger *slog.Logger
	cfg    *config.Config
	format output.Format
	runID  string
}

// buildDeps resolves config and the logger. Every log line of the run carries
// the same run_id.
func buildDeps(cmd *cobra.Command, stderr io.Writer) (*deps, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	format, err := output.ParseFormat(cfg.OutputFormat)
	if err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	runID := uuid.NewString()
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})).
		With("run_id", runID)

	return &deps{cfg: cfg, logger: logger, format: format, runID: runID}, nil
}

// newResolver builds the DNS backend selected by --resolver.
func (d *deps) newResolver() (services.DNSResolverInterface, error) {
	switch d.cfg.Resolver {
	case "dns":
		return resolver.NewDirect(d.cfg.Nameserver, d.cfg.DNSTimeout), nil
	case "doh":
		client, err := httpclient.New(httpclient.Options{
			Proxy:     d.cfg.Proxy,
			UserAgent: d.cfg.UserAgent,
			Timeout:   d.cfg.DNSTimeout,
			Logger:    d.logger,
			Debug:     d.cfg.Verbose,
		})
		if err != nil {
			return nil, fmt.Errorf("creating HTTP client: %w", err)
		}
		httpclient.Pace(client, ratelimit.New(d.cfg.DoHRPS, doh.DefaultBurst))
		return doh.New(client, d.cfg.DoHURL), nil
	default:
		r, err := resolver.NewResolver(d.cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("creating DNS resolver: %w", err)
		}
		return r, nil
	}
}

// loadPatterns loads the provider rules, preferring a user-supplied file.
func (d *deps) loadPatterns() (detect.Patterns, error) {
	paths, err := detect.DefaultPatternPaths()
	if err != nil {
		return detect.Patterns{}, fmt.Errorf("resolving pattern paths: %w", err)
	}
	if d.cfg.PatternsFile != "" {
		paths = append([]string{d.cfg.PatternsFile}, paths...)
	}
	patterns, err := detect.LoadPatterns(paths...)
	if err != nil {
		return detect.Patterns{}, fmt.Errorf("loading provider patterns: %w", err)
	}
	return patterns, nil
}

// newProber builds the SMTP prober. A socks5:// proxy carries the SMTP
// connections too; HTTP proxies only apply to DNS-over-HTTPS.
func (d *deps) newProber() (*probe.Prober, error) {
	cfg := probe.Config{
		Port:           d.cfg.SMTPPort,
		ConnectTimeout: d.cfg.ConnectTimeout,
		ReadTimeout:    d.cfg.ReadTimeout,
		HeloName:       d.cfg.Helo,
		MailFrom:       d.cfg.Sender,
		Limiter:        ratelimit.New(d.cfg.ProbeRate, 1),
	}
	if strings.HasPrefix(d.cfg.Proxy, "socks5://") {
		dialer, err := resolver.SOCKS5Dialer(d.cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("creating SOCKS5 dialer for SMTP: %w", err)
		}
		cfg.Dialer = dialer
	}
	p := probe.New(cfg, d.logger)
	eff := p.Config()
	d.logger.Debug("smtp prober configured", "port", eff.Port, "helo", eff.HeloName, "mail_from", eff.MailFrom)
	return p, nil
}

// newValidator wires resolver, classifier, and prober into the orchestrator.
func (d *deps) newValidator() (*verify.Service, error) {
	r, err := d.newResolver()
	if err != nil {
		return nil, err
	}
	patterns, err := d.loadPatterns()
	if err != nil {
		return nil, err
	}
	prober, err := d.newProber()
	if err != nil {
		return nil, err
	}
	lookup := intel.NewService(r, detect.NewClassifier(patterns), d.logger, d.cfg.DNSTimeout)
	return verify.NewService(lookup, prober, d.cfg.Concurrency, d.logger), nil
}
