package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Format selects how command results are rendered on stdout.
type Format string

// Formats accepted by --output-format.
const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

// Formats lists every supported Format.
func Formats() []Format { return []Format{FormatText, FormatJSON, FormatTable} }

// ParseFormat validates s case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported output format: %q", s)
}

// TextFormattable values render themselves as plain lines.
type TextFormattable interface {
	WriteText(w io.Writer) error
}

// TableFormattable values render themselves as a table.
type TableFormattable interface {
	WriteTable(w io.Writer) error
}

// Write renders v in format. JSON works for any value; text and table need
// v to implement the matching interface.
func Write(w io.Writer, format Format, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatText:
		if tf, ok := v.(TextFormattable); ok {
			return tf.WriteText(w)
		}
	case FormatTable:
		if tf, ok := v.(TableFormattable); ok {
			return tf.WriteTable(w)
		}
	default:
		return fmt.Errorf("unsupported output format: %q", format)
	}
	return fmt.Errorf("%T has no %s rendering", v, format)
}
