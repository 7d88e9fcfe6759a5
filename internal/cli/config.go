package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tbckr/mailprobe/internal/config"
	"github.com/tbckr/mailprobe/internal/output"
)

func newConfigCmd(d *deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   "Read and write mailprobe config file values",
		GroupID: "utility",
	}
	cmd.AddCommand(
		newConfigPathCmd(d),
		newConfigShowCmd(d),
		newConfigGetCmd(d),
		newConfigSetCmd(d),
		newConfigEditCmd(d),
	)
	return cmd
}

func newConfigPathCmd(d *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), d.cfg.ConfigFile)
			return err
		},
	}
}

// settings is the effective configuration in key order. Values include
// defaults, env vars, and flag overrides, not just what the file holds.
type settings struct {
	keys   []string
	values map[string]string
}

func effectiveSettings(cfg *config.Config) (settings, error) {
	s := settings{keys: config.ValidKeys(), values: map[string]string{}}
	for _, k := range s.keys {
		v, err := cfg.Value(k)
		if err != nil {
			return settings{}, err
		}
		s.values[k] = v
	}
	return s, nil
}

// MarshalJSON emits the settings as a flat object.
func (s settings) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.values)
}

// WriteText writes one key=value pair per line.
func (s settings) WriteText(w io.Writer) error {
	for _, k := range s.keys {
		if _, err := fmt.Fprintf(w, "%s=%s\n", k, s.values[k]); err != nil {
			return err
		}
	}
	return nil
}

// WriteTable renders the settings as a KEY/VALUE table.
func (s settings) WriteTable(w io.Writer) error {
	table := output.NewWrappingTable(w, 20, 6)
	table.Header([]string{"KEY", "VALUE"})
	rows := make([][]string, len(s.keys))
	for i, k := range s.keys {
		rows[i] = []string{k, s.values[k]}
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

func newConfigShowCmd(d *deps) *cobra.Command {
	return &cobra.Command{
		Use:     "show",
		Aliases: []string{"cat"},
		Short:   "Display all effective config settings",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := effectiveSettings(d.cfg)
			if err != nil {
				return err
			}
			return output.Write(cmd.OutOrStdout(), d.format, s)
		},
	}
}

func newConfigGetCmd(d *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the effective value of a config key",
		Args:  cobra.ExactArgs(1),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return config.ValidKeys(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := d.cfg.Value(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), v)
			return err
		},
	}
}

func newConfigSetCmd(d *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config value and persist it to the config file",
		Args:  cobra.ExactArgs(2),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			switch len(args) {
			case 0:
				return config.ValidKeys(), cobra.ShellCompDirectiveNoFileComp
			case 1:
				return config.KeyChoices(args[0]), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(_ *cobra.Command, args []string) error {
			return setConfigValue(d.cfg.ConfigFile, args[0], args[1])
		},
	}
}

// setConfigValue writes one key into the file at path, leaving every other
// key exactly as the file had it. Defaults are never written.
func setConfigValue(path, name, raw string) error {
	key := normalizeConfigKey(name)
	if err := config.ValidateKey(key); err != nil {
		return err
	}
	typed, err := config.ParseValue(key, raw)
	if err != nil {
		return err
	}

	doc := map[string]any{}
	data, err := os.ReadFile(path) //nolint:gosec // the user's own config file
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config file: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config file: %w", err)
		}
	}
	doc[key] = typed

	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func newConfigEditCmd(d *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Open the config file in $EDITOR",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			argv := append(strings.Fields(editor(os.Getenv)), d.cfg.ConfigFile)
			c := exec.CommandContext(cmd.Context(), argv[0], argv[1:]...) //nolint:gosec // editor comes from the user's environment
			c.Stdin = cmd.InOrStdin()
			c.Stdout = cmd.OutOrStdout()
			c.Stderr = cmd.ErrOrStderr()
			return c.Run()
		},
	}
}

func editor(getenv func(string) string) string {
	for _, k := range []string{"EDITOR", "VISUAL"} {
		if v := getenv(k); v != "" {
			return v
		}
	}
	return "vi"
}

// normalizeConfigKey maps flag spelling to the file key, e.g.
// "batch-size" to "batch_size".
func normalizeConfigKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), "-", "_")
}
