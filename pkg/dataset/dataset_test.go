package dataset

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
)

func TestVocabulary_IndexOf(t *testing.T) {
	v := NewVocabulary("low", "mid", "high", "mid")

	tests := []struct {
		label string
		want  int
	}{
		{"low", 0},
		{"mid", 1},
		{"high", 2},
		{"unknown", -1},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			if got := v.IndexOf(tt.label); got != tt.want {
				t.Errorf("IndexOf(%q) = %d, want %d", tt.label, got, tt.want)
			}
		})
	}

	if v.Len() != 3 {
		t.Errorf("Len() = %d, want 3", v.Len())
	}
}

func TestVocabulary_NilSafe(t *testing.T) {
	var v *Vocabulary
	if v.Len() != 0 {
		t.Errorf("Len() = %d, want 0", v.Len())
	}
	if v.IndexOf("a") != -1 {
		t.Errorf("IndexOf() = %d, want -1", v.IndexOf("a"))
	}
	if v.Labels() != nil {
		t.Errorf("Labels() = %v, want nil", v.Labels())
	}
}

func TestVocabulary_Random(t *testing.T) {
	v := NewVocabulary("a", "b", "c")
	rng := rand.New(rand.NewPCG(1, 0))
	for i := 0; i < 20; i++ {
		if got := v.Random(rng); !v.Contains(got) {
			t.Fatalf("Random() = %q, not in vocabulary", got)
		}
	}
}

func TestLoadVocabulary(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		want    []string
		wantErr bool
	}{
		{
			name:    "plain text with comments",
			file:    "classes.txt",
			content: "# classes\nyes\n\nno\n",
			want:    []string{"yes", "no"},
		},
		{
			name:    "yaml list",
			file:    "metrics.yaml",
			content: "- accuracy\n- coverage\n",
			want:    []string{"accuracy", "coverage"},
		},
		{
			name:    "empty file",
			file:    "empty.txt",
			content: "# nothing\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}

			v, err := LoadVocabulary(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadVocabulary() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			got := v.Labels()
			if len(got) != len(tt.want) {
				t.Fatalf("Labels() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Labels()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDataSet_Clone(t *testing.T) {
	ds := New("orig", Record{Values: []string{"1", "2"}, Class: "yes"})
	clone := ds.Clone()
	clone.Records[0].Values[0] = "9"

	if ds.Records[0].Values[0] != "1" {
		t.Errorf("Clone() shares value slices with the original")
	}
}

func TestDataSet_ClassCounts(t *testing.T) {
	ds := New("d")
	ds.Add([]string{"1"}, "a")
	ds.Add([]string{"2"}, "b")
	ds.Add([]string{"3"}, "a")

	counts := ds.ClassCounts()
	if counts["a"] != 2 || counts["b"] != 1 {
		t.Errorf("ClassCounts() = %v, want map[a:2 b:1]", counts)
	}
}

func TestRecord_String(t *testing.T) {
	rec := Record{Values: []string{"1", "2"}, Class: "yes"}
	if got := rec.String(); got != "1,2,yes" {
		t.Errorf("String() = %q, want %q", got, "1,2,yes")
	}
}
