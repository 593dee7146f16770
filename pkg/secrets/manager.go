package secrets

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"valve-hq/valve/pkg/config"
)

var secretRef = regexp.MustCompile(`\$\{secret:([^}]+)\}`)

// Manager looks secrets up in its providers in order.
type Manager struct {
	providers []Provider
}

// NewManager creates a manager asking providers in order.
func NewManager(providers ...Provider) *Manager {
	return &Manager{providers: providers}
}

// FromConfig creates a manager with the environment provider and, when a
// directory is configured, the file provider after it.
func FromConfig(cfg *config.SecretsConfig) *Manager {
	providers := []Provider{&EnvProvider{Prefix: cfg.EnvPrefix}}
	if cfg.Dir != "" {
		providers = append(providers, &FileProvider{Dir: cfg.Dir})
	}
	return NewManager(providers...)
}

// Get returns the secret from the first provider holding it.
func (m *Manager) Get(ctx context.Context, name string) (string, error) {
	for _, p := range m.providers {
		value, err := p.Get(ctx, name)
		if err == nil {
			return value, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", fmt.Errorf("%s provider: %w", p.Name(), err)
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Resolve replaces every ${secret:name} reference in s. Strings without
// references are returned unchanged.
func (m *Manager) Resolve(ctx context.Context, s string) (string, error) {
	var errs []error
	out := secretRef.ReplaceAllStringFunc(s, func(ref string) string {
		name := secretRef.FindStringSubmatch(ref)[1]
		value, err := m.Get(ctx, name)
		if err != nil {
			errs = append(errs, err)
			return ref
		}
		return value
	})
	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return out, nil
}

// ResolveAll resolves each string in place.
func (m *Manager) ResolveAll(ctx context.Context, values ...*string) error {
	for _, v := range values {
		resolved, err := m.Resolve(ctx, *v)
		if err != nil {
			return err
		}
		*v = resolved
	}
	return nil
}
