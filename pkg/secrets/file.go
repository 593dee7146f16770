package secrets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileProvider reads each secret from a file named after it in Dir.
// Trailing newlines are trimmed.
type FileProvider struct {
	Dir string
}

// Get implements Provider.
func (p *FileProvider) Get(_ context.Context, name string) (string, error) {
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("invalid secret name %q", name)
	}
	path := filepath.Join(p.Dir, name)

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s (file %s)", ErrNotFound, name, path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to stat secret file: %w", err)
	}
	if mode := info.Mode().Perm(); mode&0o077 != 0 {
		return "", fmt.Errorf("secret file %s permissions too open (%o), should be 0600 or 0400", path, mode)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// Name implements Provider.
func (p *FileProvider) Name() string { return "file" }
