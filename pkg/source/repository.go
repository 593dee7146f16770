package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"valve-hq/valve/pkg/config"
)

// ErrNotCloned is returned by operations that need a checkout before the
// first Sync.
var ErrNotCloned = errors.New("repository not cloned")

// CommitInfo describes the checked out commit.
type CommitInfo struct {
	SHA       string    `json:"sha"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Branch    string    `json:"branch"`
}

// SyncResult describes what a Sync changed.
type SyncResult struct {
	// Cloned is set when the repository was cloned by this Sync.
	Cloned bool

	FromSHA string
	ToSHA   string

	// ChangedFiles lists the paths touched between FromSHA and ToSHA,
	// relative to the repository root.
	ChangedFiles []string
}

// Changed reports whether the checkout moved.
func (r *SyncResult) Changed() bool {
	return r.Cloned || r.FromSHA != r.ToSHA
}

// Repository is a local checkout of the configured table repository.
type Repository struct {
	config    *config.GitSourceConfig
	localPath string
	auth      AuthProvider
	logger    *slog.Logger

	mu   sync.Mutex
	repo *gogit.Repository
}

// NewRepository creates a repository for cfg. Nothing is fetched until
// Sync.
func NewRepository(cfg *config.GitSourceConfig, logger *slog.Logger) (*Repository, error) {
	if cfg == nil || cfg.Repository == "" {
		return nil, fmt.Errorf("repository URL cannot be empty")
	}
	if cfg.Branch == "" {
		return nil, fmt.Errorf("branch cannot be empty")
	}
	auth, err := NewAuthProvider(&cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth provider: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	localPath := cfg.LocalPath
	if localPath == "" {
		localPath = filepath.Join(os.TempDir(), "valve-source")
	}
	return &Repository{
		config:    cfg,
		localPath: localPath,
		auth:      auth,
		logger:    logger.With("component", "source", "repository", cfg.Repository),
	}, nil
}

// Sync clones the repository on first use, opening an existing checkout
// if one is present, and pulls the branch on every later call.
func (r *Repository) Sync(ctx context.Context) (*SyncResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	if r.repo == nil {
		cloned, err := r.open(ctx)
		if err != nil {
			return nil, err
		}
		if cloned {
			head, err := r.head()
			if err != nil {
				return nil, err
			}
			r.logger.Info("cloned table repository", "commit", head, "duration", time.Since(start))
			return &SyncResult{Cloned: true, ToSHA: head}, nil
		}
	}

	from, err := r.head()
	if err != nil {
		return nil, err
	}
	worktree, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}
	auth, err := r.auth.Auth()
	if err != nil {
		return nil, fmt.Errorf("failed to get auth: %w", err)
	}

	pullCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err = worktree.PullContext(pullCtx, &gogit.PullOptions{
		RemoteName:    "origin",
		ReferenceName: plumbing.NewBranchReferenceName(r.config.Branch),
		SingleBranch:  true,
		Auth:          auth,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return nil, fmt.Errorf("failed to pull: %w", err)
	}

	to, err := r.head()
	if err != nil {
		return nil, err
	}
	result := &SyncResult{FromSHA: from, ToSHA: to}
	if result.Changed() {
		if result.ChangedFiles, err = r.changedFiles(from, to); err != nil {
			return nil, err
		}
	}
	r.logger.Debug("pulled table repository",
		"from", from, "to", to,
		"changed_files", len(result.ChangedFiles),
		"duration", time.Since(start),
	)
	return result, nil
}

// open opens an existing checkout or clones a new one. It reports
// whether a clone happened.
func (r *Repository) open(ctx context.Context) (bool, error) {
	if _, err := os.Stat(filepath.Join(r.localPath, ".git")); err == nil {
		repo, err := gogit.PlainOpen(r.localPath)
		if err != nil {
			return false, fmt.Errorf("failed to open existing checkout: %w", err)
		}
		r.repo = repo
		return false, nil
	}

	if err := os.MkdirAll(r.localPath, 0o755); err != nil {
		return false, fmt.Errorf("failed to create checkout directory: %w", err)
	}
	auth, err := r.auth.Auth()
	if err != nil {
		return false, fmt.Errorf("failed to get auth: %w", err)
	}

	cloneCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	repo, err := gogit.PlainCloneContext(cloneCtx, r.localPath, false, &gogit.CloneOptions{
		URL:           r.config.Repository,
		ReferenceName: plumbing.NewBranchReferenceName(r.config.Branch),
		SingleBranch:  true,
		Depth:         r.config.Depth,
		Auth:          auth,
	})
	if err != nil {
		return false, fmt.Errorf("failed to clone %s: %w", r.config.Repository, err)
	}
	r.repo = repo
	return true, nil
}

func (r *Repository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.config.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.config.Timeout)
}

func (r *Repository) head() (string, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

// changedFiles diffs the trees of two commits.
func (r *Repository) changedFiles(fromSHA, toSHA string) ([]string, error) {
	from, err := r.repo.CommitObject(plumbing.NewHash(fromSHA))
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", fromSHA, err)
	}
	to, err := r.repo.CommitObject(plumbing.NewHash(toSHA))
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", toSHA, err)
	}
	fromTree, err := from.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}
	toTree, err := to.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}
	changes, err := fromTree.Diff(toTree)
	if err != nil {
		return nil, fmt.Errorf("failed to diff trees: %w", err)
	}

	var files []string
	for _, change := range changes {
		if change.To.Name != "" {
			files = append(files, change.To.Name)
		} else {
			// deleted
			files = append(files, change.From.Name)
		}
	}
	slices.Sort(files)
	return files, nil
}

// Commit returns the checked out commit.
func (r *Repository) Commit() (*CommitInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.repo == nil {
		return nil, ErrNotCloned
	}

	ref, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}
	commit, err := r.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}
	return &CommitInfo{
		SHA:       commit.Hash.String(),
		Author:    commit.Author.Name,
		Timestamp: commit.Author.When,
		Message:   commit.Message,
		Branch:    r.config.Branch,
	}, nil
}

// Dir is the directory holding the tables inside the checkout.
func (r *Repository) Dir() string {
	return filepath.Join(r.localPath, r.config.Path)
}

// Resolve maps validation inputs into the checkout. Relative inputs are
// joined to Dir and absolute ones are kept. No inputs means all of Dir.
func (r *Repository) Resolve(inputs []string) []string {
	if len(inputs) == 0 {
		return []string{r.Dir()}
	}
	resolved := make([]string, len(inputs))
	for i, in := range inputs {
		if filepath.IsAbs(in) {
			resolved[i] = in
		} else {
			resolved[i] = filepath.Join(r.Dir(), in)
		}
	}
	return resolved
}
