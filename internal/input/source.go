package input

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tbckr/mailprobe/internal/apperr"
)

// Format selects how an input file is parsed.
type Format string

// Supported input formats.
const (
	FormatAuto  Format = "auto"
	FormatCSV   Format = "csv"
	FormatLines Format = "lines"
)

// StdinPath reads input from standard input.
const StdinPath = "-"

// maxLineSize bounds a single input line.
const maxLineSize = 1 << 20

// bom is stripped from the start of the first line.
const bom = "\ufeff"

// Source yields candidates one at a time. Next returns io.EOF after the last
// candidate.
type Source interface {
	// Header is the input field list, or nil when the input carries none.
	Header() []string
	Next() (Candidate, error)
	Close() error
}

// CSVSource reads candidates from CSV with a header row.
type CSVSource struct {
	r      *csv.Reader
	header []string
	column int
	closer io.Closer
}

// NewCSVSource reads the header row from r and selects the address column.
// emailColumn picks a column by exact name; when empty the first header
// containing "email" (any case) is used, else the first column.
func NewCSVSource(r io.Reader, emailColumn string) (*CSVSource, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	// Hand-edited exports carry stray quotes like Bo"b; keep them verbatim.
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: CSV input is empty", apperr.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading CSV header: %w", apperr.ErrInvalidInput, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], bom)
	}
	if isBlank(header) {
		return nil, fmt.Errorf("%w: CSV input has no header row", apperr.ErrInvalidInput)
	}

	column, err := addressColumn(header, emailColumn)
	if err != nil {
		return nil, err
	}
	return &CSVSource{r: cr, header: header, column: column}, nil
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func addressColumn(header []string, explicit string) (int, error) {
	if explicit != "" {
		for i, name := range header {
			if name == explicit {
				return i, nil
			}
		}
		return 0, fmt.Errorf("%w: column %q not found in CSV header", apperr.ErrInvalidInput, explicit)
	}
	for i, name := range header {
		if strings.Contains(strings.ToLower(name), "email") {
			return i, nil
		}
	}
	return 0, nil
}

// Header implements Source.
func (s *CSVSource) Header() []string { return append([]string(nil), s.header...) }

// Column returns the name of the address column.
func (s *CSVSource) Column() string { return s.header[s.column] }

// Next implements Source. Rows with an empty address are skipped.
func (s *CSVSource) Next() (Candidate, error) {
	for {
		row, err := s.r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Candidate{}, io.EOF
			}
			return Candidate{}, fmt.Errorf("%w: reading CSV row: %w", apperr.ErrInvalidInput, err)
		}
		rec := NewRecord(s.header, row)
		addr := ""
		if s.column < len(row) {
			addr = strings.TrimSpace(row[s.column])
		}
		if addr == "" {
			continue
		}
		return Candidate{Address: addr, Record: rec}, nil
	}
}

// Close implements Source.
func (s *CSVSource) Close() error { return closeIfSet(s.closer) }

// LineSource reads one address per line.
type LineSource struct {
	sc     *bufio.Scanner
	closer io.Closer
}

// NewLineSource reads addresses from r. Lines are trimmed; blank lines are
// skipped.
func NewLineSource(r io.Reader) *LineSource {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &LineSource{sc: sc}
}

// Header implements Source.
func (s *LineSource) Header() []string { return nil }

// Next implements Source.
func (s *LineSource) Next() (Candidate, error) {
	for s.sc.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(s.sc.Text(), bom))
		if line == "" {
			continue
		}
		return Candidate{Address: line}, nil
	}
	if err := s.sc.Err(); err != nil {
		return Candidate{}, fmt.Errorf("%w: reading input line: %w", apperr.ErrInvalidInput, err)
	}
	return Candidate{}, io.EOF
}

// Close implements Source.
func (s *LineSource) Close() error { return closeIfSet(s.closer) }

func closeIfSet(c io.Closer) error {
	if c == nil {
		return nil
	}
	return c.Close()
}

// ParseFormat validates a --input-format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatAuto, FormatCSV, FormatLines:
		return f, nil
	case "":
		return FormatAuto, nil
	default:
		return "", fmt.Errorf("%w: unknown input format %q (want auto, csv, or lines)", apperr.ErrInvalidInput, s)
	}
}

// Resolve turns FormatAuto into a concrete format from the path extension.
func (f Format) Resolve(path string) Format {
	if f != FormatAuto {
		return f
	}
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return FormatCSV
	}
	return FormatLines
}

// Open opens path (or stdin for "-") as a Source. A missing or empty file is
// an ErrInvalidInput error.
func Open(path string, format Format, emailColumn string) (Source, error) {
	var f *os.File
	if path == StdinPath {
		f = os.Stdin
	} else {
		var err error
		f, err = os.Open(path) //nolint:gosec // path is the user's own input file
		if err != nil {
			return nil, fmt.Errorf("%w: opening input: %w", apperr.ErrInvalidInput, err)
		}
		info, err := f.Stat()
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("%w: opening input: %w", apperr.ErrInvalidInput, err)
		}
		if info.IsDir() {
			_ = f.Close()
			return nil, fmt.Errorf("%w: input %q is a directory", apperr.ErrInvalidInput, path)
		}
		if info.Size() == 0 {
			_ = f.Close()
			return nil, fmt.Errorf("%w: input %q is empty", apperr.ErrInvalidInput, path)
		}
	}

	var closer io.Closer = f
	if path == StdinPath {
		closer = nil
	}

	switch format.Resolve(path) {
	case FormatCSV:
		src, err := NewCSVSource(bufio.NewReader(f), emailColumn)
		if err != nil {
			_ = closeIfSet(closer)
			return nil, err
		}
		src.closer = closer
		return src, nil
	default:
		src := NewLineSource(f)
		src.closer = closer
		return src, nil
	}
}
