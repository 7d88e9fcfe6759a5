package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/tbckr/mailprobe/internal/cli"
)

func main() {
	if err := run(context.Background(), os.Args, os.Stdin, os.Stdout, os.Stderr); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes the command tree until it finishes or SIGINT arrives. Rows
// flushed before the interrupt stay in the output file.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()
	return cli.Execute(ctx, args[1:], stdin, stdout, stderr)
}
