package output

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/term"
)

// fallbackWidth applies when w is not a terminal.
const fallbackWidth = 80

type fileDescriptor interface{ Fd() uintptr }

func fd(w io.Writer) (int, bool) {
	f, ok := w.(fileDescriptor)
	if !ok {
		return 0, false
	}
	return int(f.Fd()), true //nolint:gosec // file descriptors fit in int on all supported platforms
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	n, ok := fd(w)
	return ok && term.IsTerminal(n)
}

// TerminalWidth returns the column count of w, or fallbackWidth when w is not
// a terminal.
func TerminalWidth(w io.Writer) int {
	if n, ok := fd(w); ok {
		if width, _, err := term.GetSize(n); err == nil && width > 1 {
			return width
		}
	}
	return fallbackWidth
}

// StatusLine redraws a single line in place. Not safe for concurrent use.
type StatusLine struct {
	w     io.Writer
	width int
	drawn bool
}

// NewStatusLine sizes the line to w's width.
func NewStatusLine(w io.Writer) *StatusLine {
	return &StatusLine{w: w, width: TerminalWidth(w) - 1}
}

// Update replaces the line with text. Text wider than the terminal is cut so
// the cursor never wraps onto a new row.
func (s *StatusLine) Update(text string) error {
	text = SingleLine(text)
	if r := []rune(text); len(r) > s.width {
		text = string(r[:s.width])
	}
	s.drawn = true
	_, err := fmt.Fprintf(s.w, "\r%-*s", s.width, text)
	return err
}

// Done ends the line if anything was drawn.
func (s *StatusLine) Done() error {
	if !s.drawn {
		return nil
	}
	s.drawn = false
	_, err := fmt.Fprintln(s.w)
	return err
}

// NewWrappingTable returns a table whose cells wrap to fit w. Each column may
// use the terminal width minus reserved, but never less than minWidth.
func NewWrappingTable(w io.Writer, minWidth, reserved int) *tablewriter.Table {
	colWidth := max(minWidth, TerminalWidth(w)-reserved)
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting:   tw.CellFormatting{AutoWrap: tw.WrapNormal},
				ColMaxWidths: tw.CellWidth{Global: colWidth},
			},
		}),
	)
}
