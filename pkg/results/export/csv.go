package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"mercator-hq/rulebench/pkg/results"
	"mercator-hq/rulebench/pkg/scoring"
)

// CSVExporter exports run reports to CSV format.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool

	// Registry scores cumulative matrices. Defaults to the built-in functions.
	Registry *scoring.Registry
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{
		IncludeHeader: includeHeader,
	}
}

// Export writes one row per dataset result followed by one cumulative row per
// rule set. Score columns follow the run's function list; a score missing
// from a row is left empty.
func (e *CSVExporter) Export(ctx context.Context, report *results.Report, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	functions := e.functions(report)
	id := runID(report)

	if e.IncludeHeader {
		header := append([]string{"run_id", "rule_set", "scope", "records"}, functions...)
		if err := writer.Write(header); err != nil {
			return results.NewExportError("csv", id, err)
		}
	}

	for _, r := range report.DataSets {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := e.row(id, r.RuleSet, r.DataSet, r.Records, r.Scores, functions)
		if err := writer.Write(row); err != nil {
			return results.NewExportError("csv", id, err)
		}
	}

	registry := e.Registry
	if registry == nil {
		registry = scoring.NewRegistry(nil)
	}
	for _, m := range report.Matrices {
		if m.Scope != results.ScopeCumulative {
			continue
		}
		row := e.row(id, m.RuleSet, m.Scope, matrixSum(m.Matrix), registry.Scores(m.Matrix), functions)
		if err := writer.Write(row); err != nil {
			return results.NewExportError("csv", id, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return results.NewExportError("csv", id, err)
	}
	return nil
}

// functions returns the score columns of the report.
func (e *CSVExporter) functions(report *results.Report) []string {
	if report.Run != nil && len(report.Run.Functions) > 0 {
		return report.Run.Functions
	}
	if len(report.DataSets) > 0 {
		names := make([]string, len(report.DataSets[0].Scores))
		for i, s := range report.DataSets[0].Scores {
			names[i] = s.Name
		}
		return names
	}
	return scoring.NewRegistry(nil).Names()
}

func (e *CSVExporter) row(runID, ruleSet, scope string, records int, scores []scoring.Score, functions []string) []string {
	byName := make(map[string]float64, len(scores))
	for _, s := range scores {
		byName[s.Name] = s.Value
	}

	row := []string{runID, ruleSet, scope, strconv.Itoa(records)}
	for _, fn := range functions {
		v, ok := byName[fn]
		if !ok {
			row = append(row, "")
			continue
		}
		row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
	}
	return row
}

func matrixSum(m [][]int) int {
	total := 0
	for _, row := range m {
		for _, v := range row {
			total += v
		}
	}
	return total
}
