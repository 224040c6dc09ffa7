package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"mercator-hq/rulebench/pkg/results"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is plain text output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is JSON output.
	FormatJSON OutputFormat = "json"
	// FormatCSV is CSV output.
	FormatCSV OutputFormat = "csv"
)

// ParseOutputFormat parses a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatCSV:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", NewConfigError("output", fmt.Sprintf("unknown format %q (valid: text, json, csv)", s))
	}
}

// Table is tabular command output.
type Table interface {
	Header() []string
	Rows() [][]string
}

// Formatter formats command output.
type Formatter interface {
	FormatTo(w io.Writer, data interface{}) error
}

// TextFormatter renders tables as aligned columns and anything else with
// fmt's %v verb.
type TextFormatter struct {
	// Styled renders the header in bold.
	Styled bool
}

var headerStyle = lipgloss.NewStyle().Bold(true)

// FormatTo writes data to writer in text format.
func (f *TextFormatter) FormatTo(w io.Writer, data interface{}) error {
	table, ok := data.(Table)
	if !ok {
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	}

	header, rows := table.Header(), table.Rows()
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}

	line := func(cells []string, style bool) string {
		var b strings.Builder
		for i, c := range cells {
			if i >= len(widths) {
				break
			}
			cell := c
			if i < len(cells)-1 {
				cell += strings.Repeat(" ", widths[i]-lipgloss.Width(c)+2)
			}
			if style {
				cell = headerStyle.Render(cell)
			}
			b.WriteString(cell)
		}
		return b.String()
	}

	if _, err := fmt.Fprintln(w, line(header, f.Styled)); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(w, line(row, false)); err != nil {
			return err
		}
	}
	return nil
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatTo writes data to writer in JSON format.
func (f *JSONFormatter) FormatTo(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	if j, ok := data.(interface{ JSONValue() interface{} }); ok {
		data = j.JSONValue()
	}
	return encoder.Encode(data)
}

// CSVFormatter formats tables as CSV.
type CSVFormatter struct{}

// FormatTo writes data to writer in CSV format. data must be a Table.
func (f *CSVFormatter) FormatTo(w io.Writer, data interface{}) error {
	table, ok := data.(Table)
	if !ok {
		return fmt.Errorf("csv output requires tabular data, got %T", data)
	}

	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(table.Header()); err != nil {
		return err
	}
	if err := csvWriter.WriteAll(table.Rows()); err != nil {
		return err
	}
	return csvWriter.Error()
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatCSV:
		return &CSVFormatter{}
	default:
		return &TextFormatter{}
	}
}

// RunsTable lists stored runs.
type RunsTable []*results.Run

// Header implements Table.
func (t RunsTable) Header() []string {
	return []string{"ID", "NAME", "MODE", "STATUS", "RULESETS", "DATASETS", "STARTED", "DURATION"}
}

// Rows implements Table.
func (t RunsTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, r := range t {
		duration := ""
		if r.EndedAt != nil {
			duration = r.Duration().Round(time.Millisecond).String()
		}
		rows = append(rows, []string{
			r.ID,
			r.Name,
			r.Mode,
			string(r.Status),
			strconv.Itoa(r.RuleSets),
			strconv.Itoa(r.DataSets),
			r.StartedAt.UTC().Format(time.RFC3339),
			duration,
		})
	}
	return rows
}

// JSONValue returns the runs themselves for JSON output.
func (t RunsTable) JSONValue() interface{} {
	return []*results.Run(t)
}

// SummaryTable shows the cross rule-set statistics of each scoring function.
type SummaryTable []results.FunctionSummary

// Header implements Table.
func (t SummaryTable) Header() []string {
	return []string{"FUNCTION", "MIN", "MAX", "MEAN", "MEDIAN", "STDDEV", "COUNT"}
}

// Rows implements Table.
func (t SummaryTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, s := range t {
		rows = append(rows, []string{
			s.Function,
			formatFloat(s.Stats.Min),
			formatFloat(s.Stats.Max),
			formatFloat(s.Stats.Mean),
			formatFloat(s.Stats.Median),
			formatFloat(s.Stats.StdDev),
			strconv.Itoa(s.Stats.Count),
		})
	}
	return rows
}

// JSONValue returns the summaries themselves for JSON output.
func (t SummaryTable) JSONValue() interface{} {
	return []results.FunctionSummary(t)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
