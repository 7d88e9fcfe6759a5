package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbckr/mailprobe/internal/apperr"
	"github.com/tbckr/mailprobe/internal/config"
	"github.com/tbckr/mailprobe/internal/input"
	"github.com/tbckr/mailprobe/internal/output"
	"github.com/tbckr/mailprobe/internal/pipeline"
)

// outputTimeLayout stamps default output names, e.g. 2024-05-01_13-45-00.
const outputTimeLayout = "2006-01-02_15-04-05"

func newValidateCmd(d *deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [input]",
		Short: "Validate every address in a CSV or line-delimited file",
		Long: `Validate every address in the input and write one result row per address.

CSV input keeps all original columns and gains validation_status, mx_records,
provider, spoofable, smtp_code, and smtp_message. Line input (one address per
line) produces email,status,mx,provider,spoofable,smtp_code,smtp_message.

Use - to read from stdin.`,
		Example: `  mailprobe validate contacts.csv
  mailprobe validate -i leads.txt -o leads_checked.csv --sender probe@mydomain.com
  cat list.txt | mailprobe validate - --resolver doh`,
		Args:    cobra.MaximumNArgs(1),
		GroupID: "validation",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := d.cfg.Input
			if len(args) == 1 {
				in = args[0]
			}
			return runValidate(cmd.Context(), d, in, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	config.RegisterValidateFlags(cmd.Flags())
	config.RegisterFlagCompletions(cmd)
	return cmd
}

func runValidate(ctx context.Context, d *deps, in string, stdout, stderr io.Writer) error {
	if in == "" {
		return fmt.Errorf("%w: no input: pass a file, --input, or - for stdin", apperr.ErrInvalidInput)
	}
	format, err := input.ParseFormat(d.cfg.InputFormat)
	if err != nil {
		return err
	}
	out := d.cfg.Output
	if out == "" {
		out = defaultOutputPath(in, time.Now())
	}
	if sameFile(in, out) {
		return fmt.Errorf("%w: output %q would overwrite the input", apperr.ErrInvalidInput, out)
	}

	validator, err := d.newValidator()
	if err != nil {
		return err
	}

	// Input problems must surface before the output file exists.
	src, err := input.Open(in, format, d.cfg.EmailColumn)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()
	if csvSrc, ok := src.(*input.CSVSource); ok {
		d.logger.Debug("address column selected", "column", csvSrc.Column())
	}

	f, err := os.Create(out) //nolint:gosec // path chosen by the user
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer func() { _ = f.Close() }()

	d.logger.Debug("validation started", "input", in, "output", out,
		"concurrency", d.cfg.Concurrency, "batch_size", d.cfg.BatchSize, "resolver", d.cfg.Resolver)

	observer, done := progressObserver(stderr, d.logger)
	p := pipeline.New(validator, d.cfg.BatchSize, observer, d.logger)
	summary, runErr := p.Run(ctx, src, pipeline.NewSink(f, src.Header()))
	done()
	summary.Output = out

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing output: %w", err)
	}
	if runErr != nil {
		d.logger.Warn("validation interrupted", "processed", summary.Total, "output", out)
	}
	if err := output.Write(stdout, d.format, summary); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return runErr
}

// defaultOutputPath places the results next to the input; stdin results go
// to the working directory.
func defaultOutputPath(in string, now time.Time) string {
	base := "stdin"
	dir := ""
	if in != input.StdinPath {
		dir = filepath.Dir(in)
		base = strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	}
	return filepath.Join(dir, base+"_result_"+now.Format(outputTimeLayout)+".csv")
}

func sameFile(a, b string) bool {
	if a == input.StdinPath {
		return false
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

// progressObserver redraws a status line on terminals and logs one line per
// batch otherwise. done terminates the status line.
func progressObserver(w io.Writer, logger *slog.Logger) (pipeline.Observer, func()) {
	if !output.IsTerminal(w) {
		return pipeline.ObserverFunc(func(p pipeline.Progress) {
			logger.Info("batch done", "batch", p.Batch, "processed", p.Processed, "valid", p.Valid)
		}), func() {}
	}
	line := output.NewStatusLine(w)
	observer := pipeline.ObserverFunc(func(p pipeline.Progress) {
		_ = line.Update(fmt.Sprintf("batch %d: %d processed, %d valid", p.Batch, p.Processed, p.Valid))
	})
	return observer, func() { _ = line.Done() }
}
