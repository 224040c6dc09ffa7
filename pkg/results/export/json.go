package export

import (
	"context"
	"encoding/json"
	"io"

	"mercator-hq/rulebench/pkg/results"
)

// JSONExporter exports run reports to JSON format.
type JSONExporter struct {
	// Pretty enables pretty-printing with indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{
		Pretty: pretty,
	}
}

// Export writes the report as a single JSON object.
func (e *JSONExporter) Export(ctx context.Context, report *results.Report, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var data []byte
	var err error
	if e.Pretty {
		data, err = json.MarshalIndent(report, "", "  ")
	} else {
		data, err = json.Marshal(report)
	}
	if err != nil {
		return results.NewExportError("json", runID(report), err)
	}

	if _, err := w.Write(data); err != nil {
		return results.NewExportError("json", runID(report), err)
	}
	return nil
}

// ExportRuns writes a list of runs as a JSON array.
func (e *JSONExporter) ExportRuns(ctx context.Context, runs []*results.Run, w io.Writer) error {
	if len(runs) == 0 {
		_, err := w.Write([]byte("[]"))
		return err
	}

	var data []byte
	var err error
	if e.Pretty {
		data, err = json.MarshalIndent(runs, "", "  ")
	} else {
		data, err = json.Marshal(runs)
	}
	if err != nil {
		return results.NewExportError("json", "", err)
	}

	if _, err := w.Write(data); err != nil {
		return results.NewExportError("json", "", err)
	}
	return nil
}

func runID(report *results.Report) string {
	if report == nil || report.Run == nil {
		return ""
	}
	return report.Run.ID
}
