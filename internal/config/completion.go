package config

import "github.com/spf13/cobra"

func fixed(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}

// CompleteOutputFormat provides shell completion candidates for --output-format.
var CompleteOutputFormat = fixed("text", "json", "table")

// CompleteResolver provides shell completion candidates for --resolver.
var CompleteResolver = fixed("system", "dns", "doh")

// CompleteInputFormat provides shell completion candidates for --input-format.
var CompleteInputFormat = fixed("auto", "csv", "lines")

// RegisterFlagCompletions wires completions for the enum flags that exist on cmd.
func RegisterFlagCompletions(cmd *cobra.Command) {
	for name, fn := range map[string]func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective){
		"output-format": CompleteOutputFormat,
		"resolver":      CompleteResolver,
		"input-format":  CompleteInputFormat,
	} {
		if cmd.Flags().Lookup(name) == nil && cmd.PersistentFlags().Lookup(name) == nil {
			continue
		}
		_ = cmd.RegisterFlagCompletionFunc(name, fn)
	}
}
