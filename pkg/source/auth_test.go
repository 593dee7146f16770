package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"valve-hq/valve/pkg/config"
)

func TestNewAuthProvider(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.GitAuthConfig
		wantType string
		wantErr  bool
	}{
		{name: "default", cfg: config.GitAuthConfig{}, wantType: "none"},
		{name: "none", cfg: config.GitAuthConfig{Type: "none"}, wantType: "none"},
		{name: "token", cfg: config.GitAuthConfig{Type: "token", Token: "secret"}, wantType: "token"},
		{name: "token missing", cfg: config.GitAuthConfig{Type: "token"}, wantErr: true},
		{name: "ssh", cfg: config.GitAuthConfig{Type: "ssh", SSHKeyPath: "/tmp/id"}, wantType: "ssh"},
		{name: "ssh missing key", cfg: config.GitAuthConfig{Type: "ssh"}, wantErr: true},
		{name: "unknown", cfg: config.GitAuthConfig{Type: "password"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewAuthProvider(&tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewAuthProvider() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && provider.Type() != tt.wantType {
				t.Errorf("Type() = %q, want %q", provider.Type(), tt.wantType)
			}
		})
	}
}

func TestTokenAuth(t *testing.T) {
	auth, err := (&TokenAuth{token: "secret"}).Auth()
	if err != nil {
		t.Fatalf("Auth() error = %v", err)
	}
	basic, ok := auth.(*http.BasicAuth)
	if !ok {
		t.Fatalf("Auth() = %T, want *http.BasicAuth", auth)
	}
	if basic.Password != "secret" {
		t.Errorf("Password = %q, want %q", basic.Password, "secret")
	}
}

func TestSSHAuthPermissions(t *testing.T) {
	key := filepath.Join(t.TempDir(), "id_ed25519")
	if err := os.WriteFile(key, []byte("not a key"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := (&SSHAuth{keyPath: key}).Auth(); err == nil {
		t.Error("Auth() accepted a world readable key")
	}

	if err := os.Chmod(key, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := (&SSHAuth{keyPath: key}).Auth(); err == nil {
		t.Error("Auth() accepted an invalid key")
	}
}

func TestNoAuth(t *testing.T) {
	auth, err := NoAuth{}.Auth()
	if err != nil || auth != nil {
		t.Errorf("Auth() = %v, %v, want nil, nil", auth, err)
	}
}
