package source

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"mercator-hq/rulebench/pkg/ruleset"
)

// Extensions are the file extensions rule sets are loaded from.
var Extensions = []string{".yaml", ".yml"}

// FileSource loads rule sets from YAML files on disk.
type FileSource struct {
	path        string
	logger      *slog.Logger
	skipInvalid bool
	debounce    time.Duration
}

// FileSourceOption configures a FileSource.
type FileSourceOption func(*FileSource)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) FileSourceOption {
	return func(s *FileSource) {
		s.logger = logger
	}
}

// WithSkipInvalid makes LoadRuleSets log and skip files that fail to parse
// instead of failing.
func WithSkipInvalid(skip bool) FileSourceOption {
	return func(s *FileSource) {
		s.skipInvalid = skip
	}
}

// WithDebounce sets the quiet period Watch waits for after a change.
func WithDebounce(d time.Duration) FileSourceOption {
	return func(s *FileSource) {
		s.debounce = d
	}
}

// NewFileSource creates a file-based rule-set source. The path can be either
// a single file or a directory, in which case every .yaml and .yml file below
// it is loaded.
func NewFileSource(path string, opts ...FileSourceOption) *FileSource {
	s := &FileSource{
		path:     path,
		debounce: DefaultFileWatcherConfig().DebounceInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default().With("component", "source.file")
	}
	return s
}

// Path returns the file or directory the source reads.
func (s *FileSource) Path() string {
	return s.path
}

// LoadRuleSets loads all rule sets from the configured path, ordered by file
// path and then by position within the file.
func (s *FileSource) LoadRuleSets(ctx context.Context) ([]*ruleset.RuleSet, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path %q: %w", s.path, err)
	}

	files := []string{s.path}
	if info.IsDir() {
		files, err = listFiles(s.path)
		if err != nil {
			return nil, err
		}
	}

	var sets []*ruleset.RuleSet
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		loaded, err := ParseFile(path)
		if err != nil {
			if s.skipInvalid {
				s.logger.Warn("failed to load rule set file, skipping",
					"path", path,
					"error", err,
				)
				continue
			}
			return nil, err
		}

		s.logger.Debug("loaded rule set file",
			"path", path,
			"ruleset_count", len(loaded),
		)
		sets = append(sets, loaded...)
	}

	if len(sets) == 0 {
		return nil, fmt.Errorf("%w in %q", ErrNoRuleSets, s.path)
	}

	s.logger.Info("loaded rule sets from source",
		"path", s.path,
		"ruleset_count", len(sets),
	)
	return sets, nil
}

// Watch reports rule-set file changes until ctx is cancelled.
func (s *FileSource) Watch(ctx context.Context) (<-chan Event, error) {
	fw, err := NewFileWatcher(&FileWatcherConfig{
		Path:             s.path,
		DebounceInterval: s.debounce,
		Extensions:       Extensions,
		SkipHidden:       true,
	}, s.logger)
	if err != nil {
		return nil, err
	}

	em := newEmitter(ctx)
	go func() {
		defer em.close()
		if err := fw.Watch(ctx, em.emit); err != nil {
			em.emit(Event{Type: EventError, Path: s.path, Error: err})
		}
	}()
	return em.ch, nil
}

// listFiles returns the rule-set files below dir in lexical order, skipping
// hidden files and directories.
func listFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && hasExtension(path, Extensions) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %q: %w", dir, err)
	}
	return files, nil
}

// emitter forwards events to a channel that is closed exactly once, even
// when a late debounced callback races with shutdown.
type emitter struct {
	ctx    context.Context
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

func newEmitter(ctx context.Context) *emitter {
	return &emitter{ctx: ctx, ch: make(chan Event, 8)}
}

func (e *emitter) emit(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	select {
	case e.ch <- ev:
	case <-e.ctx.Done():
	}
}

func (e *emitter) close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.closed {
		e.closed = true
		close(e.ch)
	}
}
