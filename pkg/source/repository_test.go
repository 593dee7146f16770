package source

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"valve-hq/valve/pkg/config"
)

// commitFiles writes files into the repository at dir and commits them.
func commitFiles(t *testing.T, repo *gogit.Repository, dir string, files map[string]string) {
	t.Helper()
	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := worktree.Add(name); err != nil {
			t.Fatalf("failed to add %s: %v", name, err)
		}
	}
	_, err = worktree.Commit("update tables", &gogit.CommitOptions{
		Author: &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
}

// createTableRepo creates an upstream repository with one table.
func createTableRepo(t *testing.T) (string, *gogit.Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("failed to init repo: %v", err)
	}
	commitFiles(t, repo, dir, map[string]string{"tables/field.tsv": "table\tcolumn\tcondition\n"})
	return dir, repo
}

func testConfig(t *testing.T, upstream string) *config.GitSourceConfig {
	t.Helper()
	return &config.GitSourceConfig{
		Repository: upstream,
		// go-git initializes repositories on master
		Branch:    "master",
		Path:      "tables",
		LocalPath: filepath.Join(t.TempDir(), "checkout"),
		Timeout:   10 * time.Second,
		Auth:      config.GitAuthConfig{Type: "none"},
	}
}

func TestNewRepository(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.GitSourceConfig
		wantErr bool
	}{
		{name: "nil config", cfg: nil, wantErr: true},
		{name: "empty repository", cfg: &config.GitSourceConfig{Branch: "main"}, wantErr: true},
		{name: "empty branch", cfg: &config.GitSourceConfig{Repository: "https://example.com/t.git"}, wantErr: true},
		{
			name:    "bad auth",
			cfg:     &config.GitSourceConfig{Repository: "https://example.com/t.git", Branch: "main", Auth: config.GitAuthConfig{Type: "token"}},
			wantErr: true,
		},
		{name: "valid", cfg: &config.GitSourceConfig{Repository: "https://example.com/t.git", Branch: "main"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRepository(tt.cfg, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewRepository() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSync(t *testing.T) {
	upstreamDir, upstream := createTableRepo(t)
	repo, err := NewRepository(testConfig(t, upstreamDir), nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := repo.Commit(); !errors.Is(err, ErrNotCloned) {
		t.Errorf("Commit() before Sync error = %v, want ErrNotCloned", err)
	}

	first, err := repo.Sync(t.Context())
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if !first.Cloned || !first.Changed() {
		t.Errorf("first Sync() = %+v, want a clone", first)
	}
	if _, err := os.Stat(filepath.Join(repo.Dir(), "field.tsv")); err != nil {
		t.Errorf("table missing from checkout: %v", err)
	}

	second, err := repo.Sync(t.Context())
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if second.Changed() {
		t.Errorf("Sync() without upstream changes = %+v, want unchanged", second)
	}

	commitFiles(t, upstream, upstreamDir, map[string]string{"tables/rows.tsv": "name\nok\n"})
	third, err := repo.Sync(t.Context())
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if !third.Changed() {
		t.Fatal("Sync() after an upstream commit reported no change")
	}
	if want := []string{"tables/rows.tsv"}; !slices.Equal(third.ChangedFiles, want) {
		t.Errorf("ChangedFiles = %v, want %v", third.ChangedFiles, want)
	}

	commit, err := repo.Commit()
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if commit.SHA != third.ToSHA {
		t.Errorf("Commit().SHA = %s, want %s", commit.SHA, third.ToSHA)
	}
	if commit.Author != "Test User" {
		t.Errorf("Commit().Author = %q, want %q", commit.Author, "Test User")
	}
}

func TestSyncReopensCheckout(t *testing.T) {
	upstreamDir, _ := createTableRepo(t)
	cfg := testConfig(t, upstreamDir)

	first, err := NewRepository(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := first.Sync(t.Context()); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	// A restarted process finds the checkout and pulls instead of cloning.
	second, err := NewRepository(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	result, err := second.Sync(t.Context())
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if result.Cloned {
		t.Error("Sync() cloned over an existing checkout")
	}
}

func TestSyncBadRemote(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "missing"))
	repo, err := NewRepository(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Sync(t.Context()); err == nil {
		t.Error("Sync() from a missing remote succeeded")
	}
}

func TestResolve(t *testing.T) {
	repo, err := NewRepository(&config.GitSourceConfig{
		Repository: "https://example.com/t.git",
		Branch:     "main",
		Path:       "tables",
		LocalPath:  "/var/lib/valve/checkout",
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		inputs []string
		want   []string
	}{
		{name: "none", inputs: nil, want: []string{"/var/lib/valve/checkout/tables"}},
		{name: "relative", inputs: []string{"field.tsv", "data"}, want: []string{
			"/var/lib/valve/checkout/tables/field.tsv",
			"/var/lib/valve/checkout/tables/data",
		}},
		{name: "absolute", inputs: []string{"/etc/valve/datatype.tsv"}, want: []string{"/etc/valve/datatype.tsv"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := repo.Resolve(tt.inputs); !slices.Equal(got, tt.want) {
				t.Errorf("Resolve(%v) = %v, want %v", tt.inputs, got, tt.want)
			}
		})
	}
}
