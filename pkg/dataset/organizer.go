package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Organizer rewrites datasets grouped by classification, in classification
// vocabulary order, and writes them as CSV into Dir.
type Organizer struct {
	Dir     string
	Classes *Vocabulary

	logger *slog.Logger
}

// NewOrganizer creates an organizer writing into dir. An empty dir only
// reorders the datasets in memory.
func NewOrganizer(dir string, classes *Vocabulary, logger *slog.Logger) *Organizer {
	if logger == nil {
		logger = slog.Default().With("component", "dataset.organizer")
	}
	return &Organizer{Dir: dir, Classes: classes, logger: logger}
}

// Organize sorts the records of ds by classification. Records keep their
// relative order within a class; unknown classes go last.
func (o *Organizer) Organize(ds *DataSet) {
	rank := func(class string) int {
		if i := o.Classes.IndexOf(class); i >= 0 {
			return i
		}
		return o.Classes.Len()
	}
	sort.SliceStable(ds.Records, func(i, j int) bool {
		return rank(ds.Records[i].Class) < rank(ds.Records[j].Class)
	})
}

// OrganizeAll organizes every dataset and, when Dir is set, writes each one to
// Dir/<name>.csv.
func (o *Organizer) OrganizeAll(ctx context.Context, sets []*DataSet) error {
	if o.Dir != "" {
		if err := os.MkdirAll(o.Dir, 0o755); err != nil {
			return fmt.Errorf("failed to create organize directory %q: %w", o.Dir, err)
		}
	}

	for _, ds := range sets {
		if err := ctx.Err(); err != nil {
			return err
		}
		o.Organize(ds)
		if o.Dir == "" {
			continue
		}
		if err := o.write(ds); err != nil {
			return err
		}
	}

	o.logger.Info("organized datasets", "count", len(sets), "dir", o.Dir)
	return nil
}

func (o *Organizer) write(ds *DataSet) error {
	path := filepath.Join(o.Dir, ds.Name+".csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", path, err)
	}
	if err := Write(f, ds); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
