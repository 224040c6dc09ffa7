package dataset

import (
	"fmt"
	"strings"
)

// Record is a single labelled case: metric values in vocabulary order plus the
// actual classification.
type Record struct {
	Values []string
	Class  string
}

// String renders the record the way it appears in a CSV dataset.
func (r Record) String() string {
	if len(r.Values) == 0 {
		return r.Class
	}
	return strings.Join(r.Values, ",") + "," + r.Class
}

// DataSet is an ordered collection of records loaded from one source.
type DataSet struct {
	// Name identifies the dataset in results, usually the file base name.
	Name string

	// Path is the file the dataset was read from, empty for in-memory sets.
	Path string

	Records []Record
}

// New creates an in-memory dataset.
func New(name string, records ...Record) *DataSet {
	return &DataSet{
		Name:    name,
		Records: records,
	}
}

// Len returns the number of records.
func (d *DataSet) Len() int {
	return len(d.Records)
}

// Add appends a record.
func (d *DataSet) Add(values []string, class string) {
	d.Records = append(d.Records, Record{Values: values, Class: class})
}

// Clone returns a copy that shares no record slices with d.
func (d *DataSet) Clone() *DataSet {
	out := &DataSet{
		Name:    d.Name,
		Path:    d.Path,
		Records: make([]Record, len(d.Records)),
	}
	for i, rec := range d.Records {
		values := make([]string, len(rec.Values))
		copy(values, rec.Values)
		out.Records[i] = Record{Values: values, Class: rec.Class}
	}
	return out
}

// ClassCounts counts records per classification label.
func (d *DataSet) ClassCounts() map[string]int {
	counts := make(map[string]int)
	for _, rec := range d.Records {
		counts[rec.Class]++
	}
	return counts
}

// String returns a short description for logs.
func (d *DataSet) String() string {
	return fmt.Sprintf("%s (%d records)", d.Name, len(d.Records))
}
