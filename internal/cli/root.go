// Package cli provides the Cobra command tree for mailprobe.
package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/tbckr/mailprobe/internal/config"
	"github.com/tbckr/mailprobe/internal/version"
)

// newRootCmd builds the top-level command.
// Callers must set stdout/stderr via cmd.SetOut / cmd.SetErr before Execute.
func newRootCmd() *cobra.Command {
	// d is populated by PersistentPreRunE before any subcommand's RunE runs.
	// Cobra only executes the innermost PersistentPreRunE, so a subcommand
	// that defines its own hook (completion) never sees d.
	var d deps

	cmd := &cobra.Command{
		Use:   "mailprobe",
		Short: "Concurrent email address validator",
		Long: `mailprobe checks address syntax, resolves each domain's mail exchangers,
SPF and DMARC policy, and asks the primary exchanger whether it would accept
the recipient, without ever sending a message.

Results are appended to a CSV file one batch at a time, so an interrupted run
keeps everything validated so far.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			resolved, err := buildDeps(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			d = *resolved
			return nil
		},
	}

	config.RegisterFlags(cmd.PersistentFlags())
	config.RegisterFlagCompletions(cmd)

	cmd.Version = version.Get().Version
	cmd.SetVersionTemplate("mailprobe version {{.Version}}\n")

	cmd.AddGroup(
		&cobra.Group{ID: "validation", Title: "Validation:"},
		&cobra.Group{ID: "utility", Title: "Utility Commands:"},
	)

	cmd.AddCommand(
		newValidateCmd(&d),
		newConfigCmd(&d),
		newCompletionCmd(),
		newVersionCmd(&d),
	)

	return cmd
}

// Execute builds the root command and runs it with args until ctx is done.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.ExecuteContext(ctx)
}
