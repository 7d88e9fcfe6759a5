package output

import (
	"regexp"
	"strings"
)

// CSI sequences (colors, cursor movement) and OSC sequences (titles, links).
var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]|\x1b\][^\x07\x1b]*(\x07|\x1b\\)`)

// StripANSI removes ANSI escape sequences from external data before terminal output.
func StripANSI(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}

// SingleLine strips ANSI sequences, turns every remaining control character
// into a space, and collapses runs of whitespace. Used for server replies that
// end up in one CSV cell.
func SingleLine(s string) string {
	s = StripANSI(s)
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
