package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// createTestRepo creates a git repository holding rules/a.yaml on master.
func createTestRepo(t *testing.T, dir string) *gogit.Repository {
	t.Helper()

	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("failed to init repo: %v", err)
	}
	commitFile(t, repo, dir, "rules/a.yaml", thresholdYAML, "initial commit")
	return repo
}

func commitFile(t *testing.T, repo *gogit.Repository, dir, name, content, msg string) {
	t.Helper()

	writeFile(t, filepath.Join(dir, name), content)

	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}
	if _, err := worktree.Add(name); err != nil {
		t.Fatalf("failed to add file: %v", err)
	}
	_, err = worktree.Commit(msg, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "Test User",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
}

func testGitConfig(t *testing.T, repository string) *GitConfig {
	cfg := DefaultGitConfig()
	cfg.Repository = repository
	cfg.Branch = "master"
	cfg.Path = "rules"
	cfg.LocalPath = filepath.Join(t.TempDir(), "clone")
	cfg.Timeout = 10 * time.Second
	cfg.PollInterval = 50 * time.Millisecond
	return cfg
}

func TestGitConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*GitConfig)
		wantErr bool
	}{
		{"valid", func(c *GitConfig) {}, false},
		{"empty repository", func(c *GitConfig) { c.Repository = "" }, true},
		{"empty branch", func(c *GitConfig) { c.Branch = "" }, true},
		{"zero timeout", func(c *GitConfig) { c.Timeout = 0 }, true},
		{"zero poll interval", func(c *GitConfig) { c.PollInterval = 0 }, true},
		{"negative depth", func(c *GitConfig) { c.Depth = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultGitConfig()
			cfg.Repository = "https://example.com/rules.git"
			tt.modify(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewAuthProvider(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *GitAuthConfig
		wantType string
		wantErr  bool
	}{
		{"nil", nil, "none", false},
		{"none", &GitAuthConfig{Type: "none"}, "none", false},
		{"token", &GitAuthConfig{Type: "token", Token: "abc"}, "token", false},
		{"token without value", &GitAuthConfig{Type: "token"}, "", true},
		{"ssh", &GitAuthConfig{Type: "ssh", SSHKeyPath: "/keys/id"}, "ssh", false},
		{"ssh without key", &GitAuthConfig{Type: "ssh"}, "", true},
		{"unknown", &GitAuthConfig{Type: "kerberos"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewAuthProvider(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewAuthProvider() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && p.Type() != tt.wantType {
				t.Errorf("Type() = %q, want %q", p.Type(), tt.wantType)
			}
		})
	}
}

func TestSSHAuth_KeyPermissions(t *testing.T) {
	key := filepath.Join(t.TempDir(), "id")
	if err := os.WriteFile(key, []byte("not a key"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewSSHAuth(key, "").GetAuth(); err == nil {
		t.Error("GetAuth() with 0644 key error = nil, want error")
	}
}

func TestGitSource_LoadRuleSets(t *testing.T) {
	remote := t.TempDir()
	createTestRepo(t, remote)

	src, err := NewGitSource(testGitConfig(t, remote), nil)
	if err != nil {
		t.Fatalf("NewGitSource() error = %v", err)
	}

	if _, err := src.Pull(context.Background()); !errors.Is(err, ErrNotCloned) {
		t.Errorf("Pull() before clone error = %v, want ErrNotCloned", err)
	}

	sets, err := src.LoadRuleSets(context.Background())
	if err != nil {
		t.Fatalf("LoadRuleSets() error = %v", err)
	}
	if len(sets) != 1 || sets[0].Name != "a" {
		t.Fatalf("LoadRuleSets() = %v, want one rule set named a", sets)
	}

	commit, err := src.CurrentCommit()
	if err != nil {
		t.Fatalf("CurrentCommit() error = %v", err)
	}
	if commit.Message != "initial commit" {
		t.Errorf("commit message = %q, want %q", commit.Message, "initial commit")
	}
}

func TestGitSource_PullAndWatch(t *testing.T) {
	remote := t.TempDir()
	repo := createTestRepo(t, remote)

	src, err := NewGitSource(testGitConfig(t, remote), nil)
	if err != nil {
		t.Fatalf("NewGitSource() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := src.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	commitFile(t, repo, remote, "README.md", "docs", "docs only")
	commitFile(t, repo, remote, "rules/b.yaml", thresholdYAML, "add b")

	select {
	case ev := <-events:
		if ev.Error != nil {
			t.Fatalf("event error = %v", ev.Error)
		}
		if filepath.Base(ev.Path) != "b.yaml" {
			t.Errorf("event path = %q, want b.yaml", ev.Path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no event after committing a rule set file")
	}

	sets, err := src.LoadRuleSets(context.Background())
	if err != nil {
		t.Fatalf("LoadRuleSets() error = %v", err)
	}
	if len(sets) != 2 {
		t.Errorf("LoadRuleSets() returned %d rule sets, want 2", len(sets))
	}
}

func TestGitSource_CloneNonexistent(t *testing.T) {
	src, err := NewGitSource(testGitConfig(t, "/nonexistent/repo"), nil)
	if err != nil {
		t.Fatalf("NewGitSource() error = %v", err)
	}
	if err := src.Clone(context.Background()); err == nil {
		t.Error("Clone() error = nil, want error")
	}
}
