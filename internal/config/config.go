// Package config loads mailprobe settings from flags, MAILPROBE_* environment
// variables, and the YAML config file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"net"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tbckr/mailprobe/internal/appdir"
	"github.com/tbckr/mailprobe/internal/apperr"
)

// EnvPrefix prefixes environment overrides, e.g. MAILPROBE_CONCURRENCY.
const EnvPrefix = "MAILPROBE"

// ErrUnknownKey is returned for config keys mailprobe does not know.
var ErrUnknownKey = errors.New("unknown config key")

// Config is the fully resolved configuration.
type Config struct {
	ConfigFile string `mapstructure:"-"`

	Verbose      bool   `mapstructure:"verbose"`
	OutputFormat string `mapstructure:"output_format" validate:"oneof=text json table"`

	Input       string `mapstructure:"input"`
	Output      string `mapstructure:"output"`
	InputFormat string `mapstructure:"input_format" validate:"oneof=auto csv lines"`
	EmailColumn string `mapstructure:"email_column"`

	Concurrency int `mapstructure:"concurrency" validate:"min=1"`
	BatchSize   int `mapstructure:"batch_size" validate:"min=1"`

	Sender         string        `mapstructure:"sender" validate:"email"`
	Helo           string        `mapstructure:"helo" validate:"omitempty,hostname_rfc1123"`
	SMTPPort       int           `mapstructure:"smtp_port" validate:"min=1,max=65535"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" validate:"gt=0"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	ProbeRate      float64       `mapstructure:"probe_rate" validate:"gte=0"`

	Resolver   string        `mapstructure:"resolver" validate:"oneof=system dns doh"`
	Nameserver string        `mapstructure:"nameserver" validate:"nameserver"`
	DoHURL     string        `mapstructure:"doh_url" validate:"url"`
	DoHRPS     float64       `mapstructure:"doh_rps" validate:"gte=0"`
	DNSTimeout time.Duration `mapstructure:"dns_timeout" validate:"gt=0"`

	Proxy        string `mapstructure:"proxy" validate:"omitempty,proxy_url"`
	UserAgent    string `mapstructure:"user_agent"`
	PatternsFile string `mapstructure:"patterns_file"`
}

// kind drives ParseValue for one key.
type kind int

const (
	kindString kind = iota
	kindBool
	kindInt
	kindFloat
	kindDuration
)

type key struct {
	name    string
	kind    kind
	def     any
	choices []string
}

// keys lists every config key with its type and default.
var keys = []key{
	{name: "verbose", kind: kindBool, def: false},
	{name: "output_format", kind: kindString, def: "text", choices: []string{"text", "json", "table"}},
	{name: "input", kind: kindString, def: ""},
	{name: "output", kind: kindString, def: ""},
	{name: "input_format", kind: kindString, def: "auto", choices: []string{"auto", "csv", "lines"}},
	{name: "email_column", kind: kindString, def: ""},
	{name: "concurrency", kind: kindInt, def: 100},
	{name: "batch_size", kind: kindInt, def: 50},
	{name: "sender", kind: kindString, def: "verify@example.com"},
	{name: "helo", kind: kindString, def: ""},
	{name: "smtp_port", kind: kindInt, def: 25},
	{name: "connect_timeout", kind: kindDuration, def: 10 * time.Second},
	{name: "read_timeout", kind: kindDuration, def: 10 * time.Second},
	{name: "probe_rate", kind: kindFloat, def: 0.0},
	{name: "resolver", kind: kindString, def: "system", choices: []string{"system", "dns", "doh"}},
	{name: "nameserver", kind: kindString, def: "1.1.1.1:53"},
	{name: "doh_url", kind: kindString, def: "https://dns.quad9.net/dns-query"},
	{name: "doh_rps", kind: kindFloat, def: 50.0},
	{name: "dns_timeout", kind: kindDuration, def: 5 * time.Second},
	{name: "proxy", kind: kindString, def: ""},
	{name: "user_agent", kind: kindString, def: ""},
	{name: "patterns_file", kind: kindString, def: ""},
}

// RegisterFlags registers the global flags shared by every command.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (default is "+defaultPathHint()+")")
	fs.BoolP("verbose", "v", false, "enable debug logging")
	fs.String("output-format", "text", "summary format: text, json, table")
	fs.String("proxy", "", "proxy URL: socks5:// for SMTP and DNS, http(s):// for DNS-over-HTTPS")
	fs.String("user-agent", "", "User-Agent for DNS-over-HTTPS requests")
	fs.String("resolver", "system", "DNS backend: system, dns, doh")
	fs.String("nameserver", "1.1.1.1:53", "nameserver for --resolver dns")
	fs.String("doh-url", "https://dns.quad9.net/dns-query", "endpoint for --resolver doh")
	fs.Float64("doh-rps", 50, "DNS-over-HTTPS requests per second (0 = unlimited)")
	fs.Duration("dns-timeout", 5*time.Second, "timeout for each DNS lookup")
	fs.String("patterns-file", "", "provider rules file (default is providers.yaml in the config dir)")
}

// RegisterValidateFlags registers the flags of the validate command.
func RegisterValidateFlags(fs *pflag.FlagSet) {
	fs.StringP("input", "i", "", "input file (CSV or one address per line, - for stdin)")
	fs.StringP("output", "o", "", "output CSV (default <input>_result_<timestamp>.csv)")
	fs.String("input-format", "auto", "input format: auto, csv, lines")
	fs.String("email-column", "", "CSV column holding the address (default: first column containing \"email\")")
	fs.IntP("concurrency", "c", 100, "maximum simultaneous validations")
	fs.Int("batch-size", 50, "addresses per batch")
	fs.StringP("sender", "s", "verify@example.com", "MAIL FROM address")
	fs.String("from", "", "alias for --sender")
	fs.String("helo", "", "EHLO identity (default: the sender's domain)")
	fs.Int("smtp-port", 25, "mail exchanger port")
	fs.Duration("connect-timeout", 10*time.Second, "TCP connect timeout")
	fs.Duration("read-timeout", 10*time.Second, "deadline for each SMTP command and reply")
	fs.Float64("probe-rate", 0, "SMTP probes per second (0 = unlimited)")
	_ = fs.MarkHidden("from")
}

func defaultPathHint() string {
	if p, err := DefaultConfigPath(); err == nil {
		return p
	}
	return "$XDG_CONFIG_HOME/mailprobe/config.yaml"
}

// DefaultConfigPath returns the OS-appropriate config file path.
func DefaultConfigPath() (string, error) {
	return appdir.ConfigFile()
}

// Load resolves the configuration for the flags in fs. The config file is
// created (0600) when it does not exist yet.
func Load(fs *pflag.FlagSet) (*Config, error) {
	path := ""
	if f := fs.Lookup("config"); f != nil {
		path = f.Value.String()
	}
	if path == "" {
		var err error
		if path, err = DefaultConfigPath(); err != nil {
			return nil, err
		}
	}
	if err := appdir.EnsureFile(path); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, k := range keys {
		v.SetDefault(k.name, k.def)
		if f := fs.Lookup(strings.ReplaceAll(k.name, "_", "-")); f != nil {
			if err := v.BindPFlag(k.name, f); err != nil {
				return nil, fmt.Errorf("binding flag %q: %w", f.Name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file %q: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if f := fs.Lookup("from"); f != nil && f.Changed && !fs.Changed("sender") {
		cfg.Sender = f.Value.String()
	}
	cfg.ConfigFile = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return flagName(f.Tag.Get("mapstructure"))
	})
	_ = v.RegisterValidation("nameserver", validNameserver)
	_ = v.RegisterValidation("proxy_url", validProxyURL)
	return v
}

// Validate checks every field and reports the offending flags.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("--%s: invalid value %v (%s)", fe.Field(), fe.Value(), describe(fe)))
	}
	return fmt.Errorf("%w: %s", apperr.ErrInvalidInput, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be positive"
	case "email":
		return "must be an email address"
	case "url":
		return "must be a URL"
	case "proxy_url":
		return "must be an http://, https://, or socks5:// URL"
	case "nameserver":
		return "must be host or host:port"
	case "hostname_rfc1123":
		return "must be a hostname"
	default:
		return "fails " + fe.Tag()
	}
}

// validNameserver accepts host or host:port with a valid port.
func validNameserver(fl validator.FieldLevel) bool {
	addr := fl.Field().String()
	if addr == "" {
		return false
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return !strings.ContainsAny(addr, " /")
	}
	n, err := strconv.ParseUint(port, 10, 16)
	return host != "" && err == nil && n > 0
}

func validProxyURL(fl validator.FieldLevel) bool {
	p := fl.Field().String()
	for _, scheme := range []string{"http://", "https://", "socks5://"} {
		if strings.HasPrefix(p, scheme) && len(p) > len(scheme) {
			return true
		}
	}
	return false
}

func flagName(k string) string { return strings.ReplaceAll(k, "_", "-") }

func normalizeKey(k string) string { return strings.ReplaceAll(strings.ToLower(k), "-", "_") }

// ValidKeys returns every config key in sorted order.
func ValidKeys() []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.name
	}
	sort.Strings(out)
	return out
}

func lookupKey(name string) (key, error) {
	n := normalizeKey(name)
	for _, k := range keys {
		if k.name == n {
			return k, nil
		}
	}
	return key{}, fmt.Errorf("%w: %q", ErrUnknownKey, name)
}

// ValidateKey reports ErrUnknownKey for keys mailprobe does not know.
// Hyphens and underscores are interchangeable.
func ValidateKey(name string) error {
	_, err := lookupKey(name)
	return err
}

// KeyChoices returns the allowed values of an enum key, or nil.
func KeyChoices(name string) []string {
	k, err := lookupKey(name)
	if err != nil {
		return nil
	}
	switch k.kind {
	case kindBool:
		return []string{"true", "false"}
	case kindString:
		return append([]string(nil), k.choices...)
	}
	return nil
}

// ParseValue converts a raw string into the typed value for key.
func ParseValue(name, raw string) (any, error) {
	k, err := lookupKey(name)
	if err != nil {
		return nil, err
	}
	switch k.kind {
	case kindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a boolean", k.name, raw)
		}
		return b, nil
	case kindInt:
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%s: %q is not a positive integer", k.name, raw)
		}
		return n, nil
	case kindFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || f < 0 {
			return nil, fmt.Errorf("%s: %q is not a non-negative number", k.name, raw)
		}
		return f, nil
	case kindDuration:
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("%s: %q is not a positive duration", k.name, raw)
		}
		return d, nil
	default:
		if len(k.choices) > 0 {
			for _, c := range k.choices {
				if raw == c {
					return raw, nil
				}
			}
			return nil, fmt.Errorf("%s: %q must be one of %s", k.name, raw, strings.Join(k.choices, ", "))
		}
		return raw, nil
	}
}

// Value returns the effective value of key as a string.
func (c *Config) Value(name string) (string, error) {
	k, err := lookupKey(name)
	if err != nil {
		return "", err
	}
	switch k.name {
	case "verbose":
		return strconv.FormatBool(c.Verbose), nil
	case "output_format":
		return c.OutputFormat, nil
	case "input":
		return c.Input, nil
	case "output":
		return c.Output, nil
	case "input_format":
		return c.InputFormat, nil
	case "email_column":
		return c.EmailColumn, nil
	case "concurrency":
		return strconv.Itoa(c.Concurrency), nil
	case "batch_size":
		return strconv.Itoa(c.BatchSize), nil
	case "sender":
		return c.Sender, nil
	case "helo":
		return c.Helo, nil
	case "smtp_port":
		return strconv.Itoa(c.SMTPPort), nil
	case "connect_timeout":
		return c.ConnectTimeout.String(), nil
	case "read_timeout":
		return c.ReadTimeout.String(), nil
	case "probe_rate":
		return strconv.FormatFloat(c.ProbeRate, 'g', -1, 64), nil
	case "resolver":
		return c.Resolver, nil
	case "nameserver":
		return c.Nameserver, nil
	case "doh_url":
		return c.DoHURL, nil
	case "doh_rps":
		return strconv.FormatFloat(c.DoHRPS, 'g', -1, 64), nil
	case "dns_timeout":
		return c.DNSTimeout.String(), nil
	case "proxy":
		return c.Proxy, nil
	case "user_agent":
		return c.UserAgent, nil
	case "patterns_file":
		return c.PatternsFile, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, name)
	}
}
