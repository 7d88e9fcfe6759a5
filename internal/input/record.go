// Package input streams candidate addresses from CSV files or plain
// one-address-per-line files.
package input

type field struct {
	name  string
	value string
}

// Record is an ordered mapping of field names to values. Field order and
// unknown fields are preserved exactly as read.
type Record struct {
	fields []field
}

// NewRecord pairs names with values. Missing trailing values become empty
// strings; values beyond the last name are dropped.
func NewRecord(names, values []string) *Record {
	r := &Record{fields: make([]field, len(names))}
	for i, name := range names {
		r.fields[i].name = name
		if i < len(values) {
			r.fields[i].value = values[i]
		}
	}
	return r
}

// Names returns the field names in order.
func (r *Record) Names() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.name
	}
	return names
}

// Values returns the field values in order.
func (r *Record) Values() []string {
	values := make([]string, len(r.fields))
	for i, f := range r.fields {
		values[i] = f.value
	}
	return values
}

// Get returns the value of the first field called name.
func (r *Record) Get(name string) (string, bool) {
	for _, f := range r.fields {
		if f.name == name {
			return f.value, true
		}
	}
	return "", false
}

// Has reports whether a field called name exists.
func (r *Record) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Append adds a field unless one with the same name already exists.
// It reports whether the field was added.
func (r *Record) Append(name, value string) bool {
	if r.Has(name) {
		return false
	}
	r.fields = append(r.fields, field{name: name, value: value})
	return true
}

// Candidate is one address to validate. Record is the row it came from and
// is nil for line input.
type Candidate struct {
	Address string
	Record  *Record
}
