package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbckr/mailprobe/internal/apperr"
	"github.com/tbckr/mailprobe/internal/config"
)

// newTestFlags registers all config flags on a fresh FlagSet, then parses extra args.
func newTestFlags(t *testing.T, cfgFile string, extra ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.RegisterFlags(flags)
	config.RegisterValidateFlags(flags)
	args := append([]string{"--config=" + cfgFile}, extra...)
	require.NoError(t, flags.Parse(args))
	return flags
}

func TestLoad_DefaultsWithTempDir(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "sub", "config.yaml")

	cfg, err := config.Load(newTestFlags(t, cfgFile))
	require.NoError(t, err)
	assert.Equal(t, cfgFile, cfg.ConfigFile)
	assert.False(t, cfg.Verbose)
	assert.Equal(t, "text", cfg.OutputFormat)
	assert.Equal(t, 100, cfg.Concurrency)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, "verify@example.com", cfg.Sender)
	assert.Equal(t, 25, cfg.SMTPPort)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 10*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 5*time.Second, cfg.DNSTimeout)
	assert.Equal(t, "system", cfg.Resolver)
	assert.Equal(t, "1.1.1.1:53", cfg.Nameserver)
	assert.Equal(t, "https://dns.quad9.net/dns-query", cfg.DoHURL)
	assert.InDelta(t, 50.0, cfg.DoHRPS, 0)
	assert.Zero(t, cfg.ProbeRate)
	assert.Equal(t, "auto", cfg.InputFormat)

	// Config file should now exist with 0600 permissions.
	info, err := os.Stat(cfgFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoad_Flags(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := config.Load(newTestFlags(t, cfgFile,
		"--verbose",
		"--output-format=json",
		"-c", "5",
		"--batch-size=7",
		"-s", "probe@goodco.com",
		"--helo=mx.goodco.com",
		"--smtp-port=2525",
		"--read-timeout=3s",
		"--resolver=doh",
		"--proxy=socks5://127.0.0.1:9050",
		"-i", "people.csv",
		"-o", "out.csv",
	))
	require.NoError(t, err)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, 5, cfg.Concurrency)
	assert.Equal(t, 7, cfg.BatchSize)
	assert.Equal(t, "probe@goodco.com", cfg.Sender)
	assert.Equal(t, "mx.goodco.com", cfg.Helo)
	assert.Equal(t, 2525, cfg.SMTPPort)
	assert.Equal(t, 3*time.Second, cfg.ReadTimeout)
	assert.Equal(t, "doh", cfg.Resolver)
	assert.Equal(t, "socks5://127.0.0.1:9050", cfg.Proxy)
	assert.Equal(t, "people.csv", cfg.Input)
	assert.Equal(t, "out.csv", cfg.Output)
}

func TestLoad_FromAlias(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := config.Load(newTestFlags(t, cfgFile, "--from=alias@goodco.com"))
	require.NoError(t, err)
	assert.Equal(t, "alias@goodco.com", cfg.Sender)
}

func TestLoad_ConfigFileValues(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "config.yaml")

	yamlContent := "sender: \"files@goodco.com\"\nconcurrency: 20\ndns_timeout: 2s\nresolver: dns\nnameserver: 9.9.9.9\n"
	require.NoError(t, os.WriteFile(cfgFile, []byte(yamlContent), 0o600))

	cfg, err := config.Load(newTestFlags(t, cfgFile))
	require.NoError(t, err)
	assert.Equal(t, "files@goodco.com", cfg.Sender)
	assert.Equal(t, 20, cfg.Concurrency)
	assert.Equal(t, 2*time.Second, cfg.DNSTimeout)
	assert.Equal(t, "dns", cfg.Resolver)
	assert.Equal(t, "9.9.9.9", cfg.Nameserver)

	// Flags override the file.
	cfg, err = config.Load(newTestFlags(t, cfgFile, "--concurrency=3"))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Concurrency)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("batch_size: 10\n"), 0o600))
	t.Setenv("MAILPROBE_BATCH_SIZE", "25")

	cfg, err := config.Load(newTestFlags(t, cfgFile))
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.BatchSize)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		args []string
		flag string
	}{
		{"zero concurrency", []string{"--concurrency=0"}, "--concurrency"},
		{"zero batch", []string{"--batch-size=0"}, "--batch-size"},
		{"bad sender", []string{"--sender=nobody"}, "--sender"},
		{"bad format", []string{"--output-format=xml"}, "--output-format"},
		{"bad resolver", []string{"--resolver=carrier-pigeon"}, "--resolver"},
		{"bad port", []string{"--smtp-port=70000"}, "--smtp-port"},
		{"zero timeout", []string{"--read-timeout=0s"}, "--read-timeout"},
		{"bad proxy", []string{"--proxy=ftp://x"}, "--proxy"},
		{"bad nameserver", []string{"--nameserver=1.1.1.1:0"}, "--nameserver"},
		{"negative rate", []string{"--probe-rate=-1"}, "--probe-rate"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfgFile := filepath.Join(t.TempDir(), "config.yaml")
			_, err := config.Load(newTestFlags(t, cfgFile, tc.args...))
			require.ErrorIs(t, err, apperr.ErrInvalidInput)
			assert.Contains(t, err.Error(), tc.flag)
		})
	}
}

func TestLoad_BrokenConfigFile(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("concurrency: [\n"), 0o600))
	_, err := config.Load(newTestFlags(t, cfgFile))
	require.Error(t, err)
	assert.Contains(t, err.Error(), cfgFile)
}

func TestValidateKey(t *testing.T) {
	t.Run("valid_underscore", func(t *testing.T) {
		require.NoError(t, config.ValidateKey("batch_size"))
	})
	t.Run("valid_hyphen", func(t *testing.T) {
		require.NoError(t, config.ValidateKey("batch-size"))
	})
	t.Run("all_keys", func(t *testing.T) {
		for _, k := range config.ValidKeys() {
			require.NoError(t, config.ValidateKey(k), "key %q should be valid", k)
		}
	})
	t.Run("unknown", func(t *testing.T) {
		err := config.ValidateKey("does_not_exist")
		require.Error(t, err)
		require.ErrorIs(t, err, config.ErrUnknownKey)
	})
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		want    any
		wantErr bool
	}{
		{key: "verbose", value: "true", want: true},
		{key: "verbose", value: "yes", wantErr: true},
		{key: "concurrency", value: "5", want: 5},
		{key: "concurrency", value: "0", wantErr: true},
		{key: "concurrency", value: "abc", wantErr: true},
		{key: "probe-rate", value: "2.5", want: 2.5},
		{key: "probe_rate", value: "-1", wantErr: true},
		{key: "dns_timeout", value: "750ms", want: 750 * time.Millisecond},
		{key: "dns_timeout", value: "soon", wantErr: true},
		{key: "output_format", value: "table", want: "table"},
		{key: "output_format", value: "xml", wantErr: true},
		{key: "resolver", value: "doh", want: "doh"},
		{key: "sender", value: "a@goodco.com", want: "a@goodco.com"},
	}
	for _, tc := range tests {
		t.Run(tc.key+"/"+tc.value, func(t *testing.T) {
			got, err := config.ParseValue(tc.key, tc.value)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseValue_UnknownKey(t *testing.T) {
	_, err := config.ParseValue("nonexistent", "value")
	require.ErrorIs(t, err, config.ErrUnknownKey)
}

func TestConfig_Value(t *testing.T) {
	cfg, err := config.Load(newTestFlags(t, filepath.Join(t.TempDir(), "config.yaml")))
	require.NoError(t, err)
	for _, k := range config.ValidKeys() {
		_, err := cfg.Value(k)
		require.NoError(t, err, k)
	}
	v, err := cfg.Value("connect-timeout")
	require.NoError(t, err)
	assert.Equal(t, "10s", v)
}

func TestDefaultConfigPath(t *testing.T) {
	path, err := config.DefaultConfigPath()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path), "expected absolute path, got %q", path)
	assert.Equal(t, "config.yaml", filepath.Base(path))
	assert.Equal(t, "mailprobe", filepath.Base(filepath.Dir(path)))
}

func TestKeyChoices(t *testing.T) {
	assert.Equal(t, []string{"system", "dns", "doh"}, config.KeyChoices("resolver"))
	assert.Equal(t, []string{"true", "false"}, config.KeyChoices("verbose"))
	assert.Nil(t, config.KeyChoices("concurrency"))
	assert.Nil(t, config.KeyChoices("nonexistent"))
}
