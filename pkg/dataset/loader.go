package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mercator-hq/rulebench/pkg/pool"
)

// DefaultExtensions are the file extensions a Loader picks up.
var DefaultExtensions = []string{".csv", ".txt", ".data"}

// Loader reads every dataset file of a directory.
type Loader struct {
	dir        string
	reader     *Reader
	extensions []string
	sched      pool.Scheduler
	logger     *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithExtensions overrides the dataset file extensions.
func WithExtensions(exts ...string) LoaderOption {
	return func(l *Loader) {
		l.extensions = exts
	}
}

// WithScheduler sets the pool files are read on.
func WithScheduler(s pool.Scheduler) LoaderOption {
	return func(l *Loader) {
		l.sched = s
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a loader for dir.
func NewLoader(dir string, reader *Reader, opts ...LoaderOption) *Loader {
	if reader == nil {
		reader = NewReader(DefaultReaderConfig())
	}
	l := &Loader{
		dir:        dir,
		reader:     reader,
		extensions: DefaultExtensions,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.sched == nil {
		l.sched = pool.New(0)
	}
	if l.logger == nil {
		l.logger = slog.Default().With("component", "dataset.loader")
	}
	return l
}

// Dir returns the directory the loader reads.
func (l *Loader) Dir() string {
	return l.dir
}

// LoadDataSets reads all dataset files below the loader directory. Files are
// parsed concurrently; the result is ordered by file path.
func (l *Loader) LoadDataSets(ctx context.Context) ([]*DataSet, error) {
	paths, err := l.files()
	if err != nil {
		return nil, err
	}

	sets := make([]*DataSet, len(paths))
	tasks := make([]pool.Task, len(paths))
	for i, path := range paths {
		i, path := i, path
		tasks[i] = func(ctx context.Context) error {
			ds, err := l.reader.ReadFile(path)
			if err != nil {
				return err
			}
			sets[i] = ds
			l.logger.Debug("loaded dataset",
				"path", path,
				"records", ds.Len(),
			)
			return nil
		}
	}

	if err := l.sched.Run(ctx, tasks); err != nil {
		return nil, err
	}

	l.logger.Info("loaded datasets",
		"dir", l.dir,
		"count", len(sets),
	)
	return sets, nil
}

func (l *Loader) files() ([]string, error) {
	info, err := os.Stat(l.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat dataset path %q: %w", l.dir, err)
	}
	if !info.IsDir() {
		return []string{l.dir}, nil
	}

	var paths []string
	err = filepath.WalkDir(l.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if l.accepts(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk dataset directory %q: %w", l.dir, err)
	}

	sort.Strings(paths)
	return paths, nil
}

func (l *Loader) accepts(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range l.extensions {
		if ext == want {
			return true
		}
	}
	return false
}
