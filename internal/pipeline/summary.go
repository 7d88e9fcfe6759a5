package pipeline

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/tbckr/mailprobe/internal/output"
	"github.com/tbckr/mailprobe/internal/services/verify"
)

// Progress is reported after every flushed batch.
type Progress struct {
	Batch     int `json:"batch"`
	Processed int `json:"processed"`
	Valid     int `json:"valid"`
}

// Observer receives pipeline events.
type Observer interface {
	BatchDone(p Progress)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Progress)

// BatchDone implements Observer.
func (f ObserverFunc) BatchDone(p Progress) { f(p) }

type nopObserver struct{}

func (nopObserver) BatchDone(Progress) {}

// Summary totals a run. Only flushed batches are counted.
type Summary struct {
	Total    int            `json:"total"`
	Valid    int            `json:"valid"`
	Batches  int            `json:"batches"`
	Statuses map[string]int `json:"statuses"`
	Output   string         `json:"output,omitempty"`
}

func newSummary() Summary {
	return Summary{Statuses: map[string]int{}}
}

func (s *Summary) add(res verify.Result) {
	s.Total++
	if res.Status.Kind == verify.ValidSMTPVerified {
		s.Valid++
	}
	s.Statuses[res.Status.String()]++
}

// statusRows lists status counts: fixed kinds first, then warning codes.
func (s Summary) statusRows() [][]string {
	var rows [][]string
	seen := map[string]bool{}
	for _, k := range verify.Kinds() {
		if k == verify.SMTPWarning {
			continue
		}
		name := k.String()
		seen[name] = true
		if n := s.Statuses[name]; n > 0 {
			rows = append(rows, []string{name, strconv.Itoa(n)})
		}
	}
	var warnings []string
	for name := range s.Statuses {
		if !seen[name] {
			warnings = append(warnings, name)
		}
	}
	sort.Strings(warnings)
	for _, name := range warnings {
		rows = append(rows, []string{name, strconv.Itoa(s.Statuses[name])})
	}
	return rows
}

// WriteText renders the summary as plain lines.
func (s Summary) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Processed: %d\nValid: %d\n", s.Total, s.Valid); err != nil {
		return err
	}
	for _, row := range s.statusRows() {
		if _, err := fmt.Fprintf(w, "  %s: %s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	if s.Output != "" {
		if _, err := fmt.Fprintf(w, "Results: %s\n", s.Output); err != nil {
			return err
		}
	}
	return nil
}

// WriteTable renders the summary as a table of status counts.
func (s Summary) WriteTable(w io.Writer) error {
	rows := s.statusRows()
	rows = append(rows, []string{"Total", strconv.Itoa(s.Total)}, []string{"Valid", strconv.Itoa(s.Valid)})
	if s.Output != "" {
		rows = append(rows, []string{"Results", s.Output})
	}
	table := output.NewWrappingTable(w, 20, 25)
	table.Header([]string{"Status", "Count"})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}
