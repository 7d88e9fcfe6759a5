package probe

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tbckr/mailprobe/internal/output"
	"github.com/tbckr/mailprobe/internal/ratelimit"
)

// Defaults applied by New for zero Config fields.
const (
	DefaultPort           = 25
	DefaultConnectTimeout = 10 * time.Second
	DefaultReadTimeout    = 10 * time.Second
	DefaultMailFrom       = "verify@example.com"

	quitTimeout = 2 * time.Second
)

// Dialer opens the TCP connection to the exchanger. *net.Dialer and the
// SOCKS5 dialers from golang.org/x/net/proxy satisfy it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, network, address string) (net.Conn, error)

// DialContext implements Dialer.
func (f DialerFunc) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return f(ctx, network, address)
}

// Config controls how probes connect and identify themselves.
type Config struct {
	Port           int
	ConnectTimeout time.Duration
	// ReadTimeout is the deadline for each individual write+read step.
	ReadTimeout time.Duration
	// HeloName defaults to the domain of MailFrom.
	HeloName string
	MailFrom string
	Dialer   Dialer
	// Limiter paces connection attempts. Nil means unlimited.
	Limiter *ratelimit.Limiter
}

// Prober probes recipients over SMTP. It is safe for concurrent use; every
// probe owns its connection.
type Prober struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Prober, filling zero Config fields with defaults.
func New(cfg Config, logger *slog.Logger) *Prober {
	if cfg.Port <= 0 {
		cfg.Port = DefaultPort
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.MailFrom == "" {
		cfg.MailFrom = DefaultMailFrom
	}
	if cfg.HeloName == "" {
		cfg.HeloName = heloFor(cfg.MailFrom)
	}
	if cfg.Dialer == nil {
		cfg.Dialer = &net.Dialer{}
	}
	return &Prober{cfg: cfg, logger: logger}
}

// Config returns the effective configuration.
func (p *Prober) Config() Config { return p.cfg }

func heloFor(sender string) string {
	if _, domain, ok := strings.Cut(sender, "@"); ok && domain != "" {
		return domain
	}
	return "localhost"
}

// Probe runs the dialogue against mxHost for address. It never fails:
// transport and protocol problems are reported in the Outcome.
func (p *Prober) Probe(ctx context.Context, mxHost, address string) Outcome {
	out := p.probe(ctx, strings.TrimSuffix(mxHost, "."), address)
	p.logger.Debug("smtp probe finished",
		"mx", mxHost, "address", address,
		"stage", string(out.Stage), "code", out.Code, "message", out.Message)
	return out
}

func (p *Prober) probe(ctx context.Context, mxHost, address string) Outcome {
	if strings.ContainsAny(address+p.cfg.MailFrom+p.cfg.HeloName, "\r\n") {
		return Outcome{Stage: StageRcptTo, Message: "RCPT TO Error: line break in command argument"}
	}
	if err := p.cfg.Limiter.Wait(ctx); err != nil {
		return cancelled(StageConnect, err)
	}

	conn, out, ok := p.dial(ctx, mxHost)
	if !ok {
		return out
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	s := &session{ctx: ctx, conn: conn, br: bufio.NewReader(conn), timeout: p.cfg.ReadTimeout}

	steps := []struct {
		stage Stage
		cmd   string
	}{
		{StageBanner, ""},
		{StageEHLO, "EHLO " + p.cfg.HeloName},
		{StageMailFrom, "MAIL FROM:<" + p.cfg.MailFrom + ">"},
		{StageRcptTo, "RCPT TO:<" + address + ">"},
	}
	want := map[Stage]int{StageBanner: 220, StageEHLO: 250, StageMailFrom: 250}

	for _, step := range steps {
		r, out, ok := s.exchange(step.stage, step.cmd)
		if !ok {
			return out
		}
		text := output.SingleLine(r.text())
		if step.stage == StageRcptTo {
			s.quit()
			return Outcome{Code: r.code, Message: text, Stage: StageRcptTo}
		}
		if r.code != want[step.stage] {
			s.quit()
			return Outcome{
				Code:    r.code,
				Message: fmt.Sprintf("%s Error: %s", step.stage.label(), text),
				Stage:   step.stage,
			}
		}
	}
	// Unreachable: the RCPT TO step always returns.
	return Outcome{Stage: StageRcptTo, Message: "RCPT TO Error: no reply"}
}

func (p *Prober) dial(ctx context.Context, mxHost string) (net.Conn, Outcome, bool) {
	dialCtx, cancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
	defer cancel()

	addr := net.JoinHostPort(mxHost, strconv.Itoa(p.cfg.Port))
	conn, err := p.cfg.Dialer.DialContext(dialCtx, "tcp", addr)
	if err == nil {
		return conn, Outcome{}, true
	}
	if ctx.Err() != nil {
		return nil, cancelled(StageConnect, ctx.Err()), false
	}
	if isTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return nil, Outcome{Stage: StageConnect, Message: "Connection Timeout"}, false
	}
	return nil, Outcome{Stage: StageConnect, Message: "Connection Failed: " + output.SingleLine(err.Error())}, false
}

type session struct {
	ctx     context.Context
	conn    net.Conn
	br      *bufio.Reader
	timeout time.Duration
}

// exchange sends cmd (unless empty) and reads the full reply. The write and
// every reply line each get a fresh deadline.
func (s *session) exchange(stage Stage, cmd string) (reply, Outcome, bool) {
	if cmd != "" {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
			return reply{}, s.failure(stage, err), false
		}
		if _, err := io.WriteString(s.conn, cmd+"\r\n"); err != nil {
			return reply{}, s.failure(stage, err), false
		}
	}
	r, err := readReply(s.br, s.armRead)
	if err != nil {
		return reply{}, s.failure(stage, err), false
	}
	return r, Outcome{}, true
}

func (s *session) armRead() error {
	return s.conn.SetReadDeadline(time.Now().Add(s.timeout))
}

// failure maps a transport or protocol error at stage to an Outcome.
func (s *session) failure(stage Stage, err error) Outcome {
	switch {
	case s.ctx.Err() != nil:
		return cancelled(stage, s.ctx.Err())
	case isTimeout(err), errors.Is(err, errTruncated):
		return Outcome{Stage: stage, Message: fmt.Sprintf("Timeout waiting for %s reply", stage.label())}
	case errors.Is(err, errMalformed):
		return Outcome{Stage: stage, Message: fmt.Sprintf("%s Error: malformed reply", stage.label())}
	default:
		return Outcome{Stage: stage, Message: fmt.Sprintf("%s Error: connection closed", stage.label())}
	}
}

// quit says goodbye without caring whether the server answers.
func (s *session) quit() {
	_ = s.conn.SetDeadline(time.Now().Add(min(s.timeout, quitTimeout)))
	if _, err := io.WriteString(s.conn, "QUIT\r\n"); err != nil {
		return
	}
	_, _ = readReply(s.br, nil)
}

func cancelled(stage Stage, err error) Outcome {
	return Outcome{Stage: stage, Message: "Probe Cancelled: " + err.Error()}
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
