package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestCleaner_IsClean(t *testing.T) {
	c := NewCleaner(NewVocabulary("m1", "m2"), NewVocabulary("yes", "no"), nil)

	tests := []struct {
		name string
		rec  Record
		want bool
	}{
		{"clean", Record{Values: []string{"1", "2"}, Class: "yes"}, true},
		{"too few values", Record{Values: []string{"1"}, Class: "yes"}, false},
		{"too many values", Record{Values: []string{"1", "2", "3"}, Class: "yes"}, false},
		{"unknown class", Record{Values: []string{"1", "2"}, Class: "maybe"}, false},
		{"illegal value", Record{Values: []string{"?", "2"}, Class: "no"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsClean(tt.rec); got != tt.want {
				t.Errorf("IsClean() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCleaner_CleanAll(t *testing.T) {
	c := NewCleaner(NewVocabulary("m"), NewVocabulary("a", "b"), nil)
	c.Log = true

	ds := New("d",
		Record{Values: []string{"1"}, Class: "a"},
		Record{Values: []string{"?"}, Class: "a"},
		Record{Values: []string{"2"}, Class: "z"},
		Record{Values: []string{"3"}, Class: "b"},
	)

	reports, err := c.CleanAll(context.Background(), []*DataSet{ds})
	if err != nil {
		t.Fatalf("CleanAll() error = %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("CleanAll() returned %d reports, want 1", len(reports))
	}
	if reports[0].Kept != 2 || reports[0].Dropped != 2 {
		t.Errorf("report = %+v, want Kept=2 Dropped=2", reports[0])
	}
	if ds.Len() != 2 || ds.Records[1].Values[0] != "3" {
		t.Errorf("records after clean = %v", ds.Records)
	}
}

func TestOrganizer_OrganizeAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "organized")
	o := NewOrganizer(dir, NewVocabulary("a", "b"), nil)

	ds := New("d",
		Record{Values: []string{"1"}, Class: "b"},
		Record{Values: []string{"2"}, Class: "x"},
		Record{Values: []string{"3"}, Class: "a"},
		Record{Values: []string{"4"}, Class: "b"},
	)

	if err := o.OrganizeAll(context.Background(), []*DataSet{ds}); err != nil {
		t.Fatalf("OrganizeAll() error = %v", err)
	}

	want := []string{"3", "1", "4", "2"}
	for i, v := range want {
		if ds.Records[i].Values[0] != v {
			t.Errorf("Records[%d] value = %q, want %q", i, ds.Records[i].Values[0], v)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "d.csv"))
	if err != nil {
		t.Fatalf("organized file not written: %v", err)
	}
	if string(data) != "3,a\n1,b\n4,b\n2,x\n" {
		t.Errorf("organized file = %q", string(data))
	}
}
