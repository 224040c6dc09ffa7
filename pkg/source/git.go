package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"mercator-hq/rulebench/pkg/ruleset"
)

// GitConfig configures a GitSource.
type GitConfig struct {
	// Repository is the clone URL or a local repository path.
	Repository string `yaml:"repository"`

	Branch string `yaml:"branch"`

	// Path is the rule-set directory relative to the repository root.
	Path string `yaml:"path"`

	// LocalPath is where the repository is cloned.
	LocalPath string `yaml:"local_path"`

	// Depth limits history for shallow clones. Zero clones everything.
	Depth int `yaml:"depth"`

	// CleanOnStart removes LocalPath before cloning.
	CleanOnStart bool `yaml:"clean_on_start"`

	// Timeout bounds each clone or pull.
	Timeout time.Duration `yaml:"timeout"`

	// PollInterval is how often Watch pulls.
	PollInterval time.Duration `yaml:"poll_interval"`

	Auth GitAuthConfig `yaml:"auth"`
}

// GitAuthConfig selects the git credentials.
type GitAuthConfig struct {
	Type             string `yaml:"type"`
	Token            string `yaml:"token"`
	SSHKeyPath       string `yaml:"ssh_key_path"`
	SSHKeyPassphrase string `yaml:"ssh_key_passphrase"`
}

// DefaultGitConfig returns a configuration tracking main every 30 seconds.
func DefaultGitConfig() *GitConfig {
	return &GitConfig{
		Branch:       "main",
		LocalPath:    filepath.Join(os.TempDir(), "rulebench-rulesets"),
		Timeout:      30 * time.Second,
		PollInterval: 30 * time.Second,
		Auth:         GitAuthConfig{Type: "none"},
	}
}

// Validate validates the git configuration.
func (c *GitConfig) Validate() error {
	if c.Repository == "" {
		return fmt.Errorf("repository URL cannot be empty")
	}
	if c.Branch == "" {
		return fmt.Errorf("branch cannot be empty")
	}
	if c.LocalPath == "" {
		return fmt.Errorf("local path cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", c.PollInterval)
	}
	if c.Depth < 0 {
		return fmt.Errorf("depth must be >= 0, got %d", c.Depth)
	}
	return nil
}

// CommitInfo contains metadata about a git commit.
type CommitInfo struct {
	SHA       string    `json:"sha"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Branch    string    `json:"branch"`
}

// PullResult describes one pull.
type PullResult struct {
	FromSHA      string
	ToSHA        string
	ChangedFiles []string
	HadChanges   bool
}

// GitSource loads rule sets from a directory of a git repository and polls
// the remote for new commits.
type GitSource struct {
	config *GitConfig
	auth   AuthProvider
	logger *slog.Logger

	mu   sync.Mutex
	repo *gogit.Repository
}

// NewGitSource creates a git-backed rule-set source. The repository is cloned
// on first use.
func NewGitSource(cfg *GitConfig, logger *slog.Logger) (*GitSource, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	auth, err := NewAuthProvider(&cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth provider: %w", err)
	}

	if logger == nil {
		logger = slog.Default().With("component", "source.git")
	}

	return &GitSource{config: cfg, auth: auth, logger: logger}, nil
}

// Dir returns the local rule-set directory.
func (s *GitSource) Dir() string {
	return filepath.Join(s.config.LocalPath, s.config.Path)
}

// Clone clones the repository, or opens it when LocalPath already holds a
// clone and CleanOnStart is false.
func (s *GitSource) Clone(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clone(ctx)
}

func (s *GitSource) clone(ctx context.Context) error {
	if s.config.CleanOnStart {
		if err := os.RemoveAll(s.config.LocalPath); err != nil {
			return fmt.Errorf("failed to clean existing repository: %w", err)
		}
	}

	if _, err := os.Stat(filepath.Join(s.config.LocalPath, ".git")); err == nil {
		repo, err := gogit.PlainOpen(s.config.LocalPath)
		if err != nil {
			return fmt.Errorf("failed to open existing repo: %w", err)
		}
		s.repo = repo
		return nil
	}

	if err := os.MkdirAll(s.config.LocalPath, 0755); err != nil {
		return fmt.Errorf("failed to create repository directory: %w", err)
	}

	auth, err := s.auth.GetAuth()
	if err != nil {
		return fmt.Errorf("failed to get auth: %w", err)
	}

	cloneCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	repo, err := gogit.PlainCloneContext(cloneCtx, s.config.LocalPath, false, &gogit.CloneOptions{
		URL:           s.config.Repository,
		ReferenceName: plumbing.NewBranchReferenceName(s.config.Branch),
		SingleBranch:  s.config.Depth > 0,
		Depth:         s.config.Depth,
		Auth:          auth,
	})
	if err != nil {
		return fmt.Errorf("failed to clone repository: %w", err)
	}

	s.repo = repo
	s.logger.Info("cloned rule set repository",
		"repository", s.config.Repository,
		"branch", s.config.Branch,
		"auth", s.auth.Type(),
	)
	return nil
}

// Pull fetches the branch and reports the files that changed.
func (s *GitSource) Pull(ctx context.Context) (*PullResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo == nil {
		return nil, ErrNotCloned
	}

	ref, err := s.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}
	fromSHA := ref.Hash()

	worktree, err := s.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	auth, err := s.auth.GetAuth()
	if err != nil {
		return nil, fmt.Errorf("failed to get auth: %w", err)
	}

	pullCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	err = worktree.PullContext(pullCtx, &gogit.PullOptions{
		RemoteName:    "origin",
		ReferenceName: plumbing.NewBranchReferenceName(s.config.Branch),
		Auth:          auth,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return nil, fmt.Errorf("failed to pull: %w", err)
	}

	newRef, err := s.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get new HEAD: %w", err)
	}
	toSHA := newRef.Hash()

	result := &PullResult{
		FromSHA:    fromSHA.String(),
		ToSHA:      toSHA.String(),
		HadChanges: fromSHA != toSHA,
	}
	if result.HadChanges {
		result.ChangedFiles, err = s.changedFiles(fromSHA, toSHA)
		if err != nil {
			return nil, fmt.Errorf("failed to get changed files: %w", err)
		}
	}
	return result, nil
}

func (s *GitSource) changedFiles(from, to plumbing.Hash) ([]string, error) {
	fromCommit, err := s.repo.CommitObject(from)
	if err != nil {
		return nil, fmt.Errorf("failed to get from commit: %w", err)
	}
	toCommit, err := s.repo.CommitObject(to)
	if err != nil {
		return nil, fmt.Errorf("failed to get to commit: %w", err)
	}

	fromTree, err := fromCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get from tree: %w", err)
	}
	toTree, err := toCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get to tree: %w", err)
	}

	changes, err := fromTree.Diff(toTree)
	if err != nil {
		return nil, fmt.Errorf("failed to diff trees: %w", err)
	}

	var files []string
	for _, change := range changes {
		if change.To.Name != "" {
			files = append(files, change.To.Name)
		} else if change.From.Name != "" {
			files = append(files, change.From.Name)
		}
	}
	return files, nil
}

// CurrentCommit returns metadata about the checked-out commit.
func (s *GitSource) CurrentCommit() (*CommitInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo == nil {
		return nil, ErrNotCloned
	}

	ref, err := s.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}
	commit, err := s.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}

	return &CommitInfo{
		SHA:       commit.Hash.String(),
		Author:    commit.Author.Name,
		Timestamp: commit.Author.When,
		Message:   strings.TrimSpace(commit.Message),
		Branch:    s.config.Branch,
	}, nil
}

// LoadRuleSets clones the repository if needed and loads the rule-set
// directory at the checked-out commit.
func (s *GitSource) LoadRuleSets(ctx context.Context) ([]*ruleset.RuleSet, error) {
	if err := s.ensureCloned(ctx); err != nil {
		return nil, err
	}
	return NewFileSource(s.Dir(), WithLogger(s.logger)).LoadRuleSets(ctx)
}

// Watch pulls every PollInterval and reports each changed rule-set file.
// Pull failures are reported as EventError and polling continues.
func (s *GitSource) Watch(ctx context.Context) (<-chan Event, error) {
	if err := s.ensureCloned(ctx); err != nil {
		return nil, err
	}

	em := newEmitter(ctx)
	go func() {
		defer em.close()

		ticker := time.NewTicker(s.config.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.poll(ctx, em)
			}
		}
	}()
	return em.ch, nil
}

func (s *GitSource) poll(ctx context.Context, em *emitter) {
	result, err := s.Pull(ctx)
	if err != nil {
		s.logger.Error("failed to pull rule set repository", "error", err)
		em.emit(Event{Type: EventError, Path: s.config.Repository, Error: err})
		return
	}
	if !result.HadChanges {
		return
	}

	s.logger.Info("rule set repository changed",
		"from", result.FromSHA,
		"to", result.ToSHA,
		"changed_files", len(result.ChangedFiles),
	)

	for _, name := range s.ruleSetFiles(result.ChangedFiles) {
		path := filepath.Join(s.config.LocalPath, name)
		typ := EventModified
		if _, err := os.Stat(path); os.IsNotExist(err) {
			typ = EventDeleted
		}
		em.emit(Event{Type: typ, Path: path})
	}
}

// ruleSetFiles keeps the repository-relative rule-set files below Path.
func (s *GitSource) ruleSetFiles(changed []string) []string {
	prefix := filepath.ToSlash(filepath.Clean(s.config.Path))
	if prefix == "." {
		prefix = ""
	}

	var out []string
	for _, name := range changed {
		if prefix != "" && name != prefix && !strings.HasPrefix(name, prefix+"/") {
			continue
		}
		if hasExtension(name, Extensions) {
			out = append(out, name)
		}
	}
	return out
}

func (s *GitSource) ensureCloned(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.repo != nil {
		return nil
	}
	return s.clone(ctx)
}
