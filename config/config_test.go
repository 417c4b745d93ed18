package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		timeout  time.Duration
		limit    int
		versions int
		exts     []string
		watch    bool
	}{
		{
			name: "toml",
			file: "ilparse.toml",
			content: `
[parser]
timeout = "250ms"
operation_limit = 10000
max_versions = 4

[workspace]
extensions = [".il", ".cil"]
watch = true
`,
			timeout:  250 * time.Millisecond,
			limit:    10000,
			versions: 4,
			exts:     []string{".il", ".cil"},
			watch:    true,
		},
		{
			name: "yaml",
			file: "ilparse.yaml",
			content: `
parser:
  timeout: 2s
  operation_limit: 5
`,
			timeout:  2 * time.Second,
			limit:    5,
			versions: 6,
			exts:     []string{".il"},
		},
		{
			name:     "empty toml gets defaults",
			file:     "empty.toml",
			content:  "",
			timeout:  5 * time.Second,
			versions: 6,
			exts:     []string{".il"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeFile(t, tt.file, tt.content))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.Parser.Timeout.Duration != tt.timeout {
				t.Errorf("timeout = %v, want %v", cfg.Parser.Timeout.Duration, tt.timeout)
			}
			if cfg.Parser.OperationLimit != tt.limit {
				t.Errorf("operation_limit = %d, want %d", cfg.Parser.OperationLimit, tt.limit)
			}
			if cfg.Parser.MaxVersions != tt.versions {
				t.Errorf("max_versions = %d, want %d", cfg.Parser.MaxVersions, tt.versions)
			}
			if len(cfg.Workspace.Extensions) != len(tt.exts) {
				t.Fatalf("extensions = %v, want %v", cfg.Workspace.Extensions, tt.exts)
			}
			for i := range tt.exts {
				if cfg.Workspace.Extensions[i] != tt.exts[i] {
					t.Errorf("extensions = %v, want %v", cfg.Workspace.Extensions, tt.exts)
				}
			}
			if cfg.Workspace.Watch != tt.watch {
				t.Errorf("watch = %v, want %v", cfg.Workspace.Watch, tt.watch)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"bad duration", "a.toml", "[parser]\ntimeout = \"soon\"\n"},
		{"negative limit", "b.toml", "[parser]\noperation_limit = -1\n"},
		{"extension without dot", "c.yml", "workspace:\n  extensions: [il]\n"},
		{"malformed yaml", "d.yaml", "parser: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeFile(t, tt.file, tt.content)); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestWorkspaceMatches(t *testing.T) {
	w := Default().Workspace
	if !w.Matches("dir/Program.IL") {
		t.Error("expected .IL to match case-insensitively")
	}
	if w.Matches("notes.txt") {
		t.Error("unexpected match for .txt")
	}
}
