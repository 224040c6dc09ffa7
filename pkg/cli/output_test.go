package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"mercator-hq/rulebench/pkg/results"
	"mercator-hq/rulebench/pkg/scoring"
)

func sampleRuns() RunsTable {
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ended := started.Add(1500 * time.Millisecond)
	return RunsTable{
		{ID: "run-1", Name: "nightly", Mode: "sequential", Status: results.StatusCompleted, RuleSets: 3, DataSets: 10, StartedAt: started, EndedAt: &ended},
		{ID: "run-2", Name: "adhoc", Mode: "voting", Status: results.StatusRunning, RuleSets: 1, DataSets: 2, StartedAt: started},
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{"csv", FormatCSV, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOutputFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOutputFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseOutputFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTextFormatter_Table(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatText).FormatTo(&buf, sampleRuns()); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "ID     NAME") {
		t.Errorf("header = %q, want aligned columns", lines[0])
	}
	if !strings.Contains(lines[1], "1.5s") {
		t.Errorf("row = %q, want duration 1.5s", lines[1])
	}
	if strings.Index(lines[1], "nightly") != strings.Index(lines[0], "NAME") {
		t.Errorf("columns not aligned:\n%s", buf.String())
	}
}

func TestTextFormatter_Plain(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TextFormatter{}).FormatTo(&buf, "hello"); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	if buf.String() != "hello\n" {
		t.Errorf("FormatTo() = %q, want %q", buf.String(), "hello\n")
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatJSON).FormatTo(&buf, sampleRuns()); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	var runs []results.Run
	if err := json.Unmarshal(buf.Bytes(), &runs); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-1" {
		t.Errorf("runs = %+v", runs)
	}
}

func TestCSVFormatter(t *testing.T) {
	var buf bytes.Buffer
	table := SummaryTable{{Function: "Accuracy", Stats: scoring.Summary{Min: 0.5, Max: 1, Mean: 0.75, Median: 0.75, Count: 2}}}
	if err := NewFormatter(FormatCSV).FormatTo(&buf, table); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	want := "FUNCTION,MIN,MAX,MEAN,MEDIAN,STDDEV,COUNT\nAccuracy,0.5000,1.0000,0.7500,0.7500,0.0000,2\n"
	if buf.String() != want {
		t.Errorf("FormatTo() = %q, want %q", buf.String(), want)
	}

	if err := NewFormatter(FormatCSV).FormatTo(&buf, "not a table"); err == nil {
		t.Error("FormatTo(non-table) error = nil, want error")
	}
}
