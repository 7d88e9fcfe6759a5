package pipeline

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tbckr/mailprobe/internal/input"
	"github.com/tbckr/mailprobe/internal/services/verify"
)

// NotAvailable fills result cells for data that was never gathered.
const NotAvailable = "N/A"

// ResultFields are appended to structured input rows, minus any that collide
// with an input field.
var ResultFields = []string{"validation_status", "mx_records", "provider", "spoofable", "smtp_code", "smtp_message"}

// LineHeader is the fixed output header for line input.
var LineHeader = []string{"email", "status", "mx", "provider", "spoofable", "smtp_code", "smtp_message"}

// syncer is implemented by *os.File.
type syncer interface {
	Sync() error
}

// Sink writes result rows as CSV. Its header is fixed at construction.
type Sink struct {
	dst     io.Writer
	buf     *bufio.Writer
	csv     *csv.Writer
	header []string
	lines  bool
}

// NewSink creates a sink for rows shaped by inputHeader. A nil inputHeader
// selects line mode and LineHeader.
func NewSink(dst io.Writer, inputHeader []string) *Sink {
	buf := bufio.NewWriter(dst)
	s := &Sink{dst: dst, buf: buf, csv: csv.NewWriter(buf)}
	if inputHeader == nil {
		s.lines = true
		s.header = append([]string(nil), LineHeader...)
		return s
	}

	shape := input.NewRecord(inputHeader, nil)
	appendResults(shape, make([]string, len(ResultFields)))
	s.header = shape.Names()
	return s
}

// appendResults adds the result cells to rec. Fields the input already has
// keep their input value.
func appendResults(rec *input.Record, cells []string) {
	for i, name := range ResultFields {
		rec.Append(name, cells[i])
	}
}

// Header returns the output header.
func (s *Sink) Header() []string { return append([]string(nil), s.header...) }

// WriteHeader writes the header row.
func (s *Sink) WriteHeader() error {
	if err := s.csv.Write(s.header); err != nil {
		return fmt.Errorf("writing output header: %w", err)
	}
	return nil
}

// Write emits one row for c and its result.
func (s *Sink) Write(c input.Candidate, res verify.Result) error {
	cells := Render(res)
	var row []string
	if s.lines || c.Record == nil {
		row = append([]string{res.Address}, cells...)
		if !s.lines {
			row = s.pad(row)
		}
	} else {
		rec := input.NewRecord(c.Record.Names(), c.Record.Values())
		appendResults(rec, cells)
		row = rec.Values()
	}
	if err := s.csv.Write(row); err != nil {
		return fmt.Errorf("writing output row: %w", err)
	}
	return nil
}

// pad shapes a record-less row to the structured header width.
func (s *Sink) pad(row []string) []string {
	out := make([]string, len(s.header))
	copy(out, row)
	return out
}

// Flush pushes buffered rows to the destination and syncs it to stable
// storage when the destination supports it.
func (s *Sink) Flush() error {
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return fmt.Errorf("flushing output: %w", err)
	}
	if err := s.buf.Flush(); err != nil {
		return fmt.Errorf("flushing output: %w", err)
	}
	if f, ok := s.dst.(syncer); ok {
		if err := f.Sync(); err != nil {
			return fmt.Errorf("syncing output: %w", err)
		}
	}
	return nil
}

// Render returns the six result cells in ResultFields order.
func Render(res verify.Result) []string {
	mx, provider, spoofable := NotAvailable, NotAvailable, NotAvailable
	if res.Intel != nil {
		if len(res.Intel.MX) > 0 {
			mx = strings.Join(res.Intel.MX, ", ")
		}
		provider = res.Intel.Provider
		spoofable = res.Intel.Spoofable.String()
	}

	code, message := NotAvailable, ""
	if res.Probe != nil {
		if res.Probe.HasCode() {
			code = strconv.Itoa(res.Probe.Code)
		}
		message = res.Probe.Message
	}
	if res.Status.Kind == verify.SMTPFailed && message == "" {
		message = res.Status.Reason
	}
	return []string{res.Status.String(), mx, provider, spoofable, code, message}
}
