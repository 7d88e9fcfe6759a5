package output_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbckr/mailprobe/internal/output"
)

type counts struct {
	Valid int `json:"valid"`
}

func (c counts) WriteText(w io.Writer) error {
	_, err := io.WriteString(w, "Valid: 3\n")
	return err
}

func (c counts) WriteTable(w io.Writer) error {
	_, err := io.WriteString(w, "| VALID | 3 |\n")
	return err
}

func TestWrite(t *testing.T) {
	tests := []struct {
		format output.Format
		want   string
	}{
		{output.FormatJSON, "{\n  \"valid\": 3\n}\n"},
		{output.FormatText, "Valid: 3\n"},
		{output.FormatTable, "| VALID | 3 |\n"},
	}
	for _, tc := range tests {
		t.Run(string(tc.format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, output.Write(&buf, tc.format, counts{Valid: 3}))
			assert.Equal(t, tc.want, buf.String())
		})
	}
}

func TestWrite_MissingRendering(t *testing.T) {
	for _, format := range []output.Format{output.FormatText, output.FormatTable} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			err := output.Write(&buf, format, map[string]int{"valid": 1})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "has no "+string(format)+" rendering")
			assert.Empty(t, buf.String())
		})
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	err := output.Write(io.Discard, output.Format("xml"), counts{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestParseFormat(t *testing.T) {
	for _, in := range []string{"text", "JSON", " table "} {
		f, err := output.ParseFormat(in)
		require.NoError(t, err, in)
		assert.Contains(t, output.Formats(), f)
	}
	_, err := output.ParseFormat("yaml")
	require.Error(t, err)
}
