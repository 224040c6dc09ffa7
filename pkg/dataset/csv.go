package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ReaderConfig controls how CSV datasets are parsed.
type ReaderConfig struct {
	// Delimiter separates fields. Defaults to ','.
	Delimiter rune

	// HasHeader skips the first non-comment row.
	HasHeader bool

	// Comment starts a line that is ignored. Zero disables comments.
	Comment rune

	// TrimSpace trims surrounding whitespace from every field.
	TrimSpace bool
}

// DefaultReaderConfig returns the settings used for plain comma-separated
// datasets without a header.
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		Delimiter: ',',
		Comment:   '#',
		TrimSpace: true,
	}
}

// Reader parses CSV datasets. The last column of every row is the
// classification, the preceding columns are metric values.
type Reader struct {
	cfg ReaderConfig
}

// NewReader creates a dataset reader.
func NewReader(cfg ReaderConfig) *Reader {
	if cfg.Delimiter == 0 {
		cfg.Delimiter = ','
	}
	return &Reader{cfg: cfg}
}

// ReadFile reads the dataset at path. The dataset is named after the file
// without its extension.
func (r *Reader) ReadFile(path string) (*DataSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %q: %w", path, err)
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	ds, err := r.read(name, path, f)
	if err != nil {
		return nil, err
	}
	ds.Path = path
	return ds, nil
}

// Read parses a dataset from src.
func (r *Reader) Read(name string, src io.Reader) (*DataSet, error) {
	return r.read(name, name, src)
}

func (r *Reader) read(name, path string, src io.Reader) (*DataSet, error) {
	cr := csv.NewReader(src)
	cr.Comma = r.cfg.Delimiter
	cr.Comment = r.cfg.Comment
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = r.cfg.TrimSpace
	cr.ReuseRecord = false

	ds := New(name)
	skipHeader := r.cfg.HasHeader

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			line := 0
			if errors.As(err, &perr) {
				line = perr.Line
			}
			return nil, &ParseError{Path: path, Line: line, Err: err}
		}
		line, _ := cr.FieldPos(0)

		if skipHeader {
			skipHeader = false
			continue
		}
		if isBlank(row) {
			continue
		}
		if len(row) < 2 {
			return nil, &ParseError{
				Path: path,
				Line: line,
				Err:  fmt.Errorf("%w: need at least one value and a classification", ErrMalformedRecord),
			}
		}

		if r.cfg.TrimSpace {
			for i := range row {
				row[i] = strings.TrimSpace(row[i])
			}
		}
		ds.Add(row[:len(row)-1], row[len(row)-1])
	}

	return ds, nil
}

// Write renders ds as CSV, one record per row with the classification last.
func Write(w io.Writer, ds *DataSet) error {
	cw := csv.NewWriter(w)
	for _, rec := range ds.Records {
		row := make([]string, 0, len(rec.Values)+1)
		row = append(row, rec.Values...)
		row = append(row, rec.Class)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write dataset %s: %w", ds.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func isBlank(row []string) bool {
	for _, field := range row {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
