package export

import (
	"context"
	"fmt"
	"io"
	"strings"

	"mercator-hq/rulebench/pkg/results"
)

// Exporter writes a run report in one format.
type Exporter interface {
	Export(ctx context.Context, report *results.Report, w io.Writer) error
}

// Options configures exporters created with New.
type Options struct {
	// Pretty indents JSON output.
	Pretty bool

	// IncludeHeader writes a CSV header row.
	IncludeHeader bool
}

// New returns the exporter for format ("json" or "csv").
func New(format string, opts Options) (Exporter, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONExporter(opts.Pretty), nil
	case "csv":
		return NewCSVExporter(opts.IncludeHeader), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// Extension returns the file extension for format, including the dot.
func Extension(format string) string {
	return "." + strings.ToLower(format)
}
