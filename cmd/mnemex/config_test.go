package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOptionsDefaultsWithoutOverlayOrEnv(t *testing.T) {
	dir := t.TempDir()

	opt, err := resolveOptions(dir)
	if err != nil {
		t.Fatalf("resolveOptions: %v", err)
	}
	if opt.DataDir != dir {
		t.Errorf("expected data dir %q, got %q", dir, opt.DataDir)
	}
	if opt.Embedding.Provider != "ollama" {
		t.Errorf("expected default provider ollama, got %q", opt.Embedding.Provider)
	}
	if opt.DBPath != filepath.Join(dir, "mnemex.db") {
		t.Errorf("unexpected db path %q", opt.DBPath)
	}
}

func TestResolveOptionsYamlOverlayOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	overlay := `
embedding:
  provider: genai
  genai_model: custom-model
watch:
  roots:
    - /tmp/notes
`
	if err := os.WriteFile(filepath.Join(dir, "mnemex.yaml"), []byte(overlay), 0o644); err != nil {
		t.Fatalf("write overlay: %v", err)
	}

	opt, err := resolveOptions(dir)
	if err != nil {
		t.Fatalf("resolveOptions: %v", err)
	}
	if opt.Embedding.Provider != "genai" {
		t.Errorf("expected overlay provider genai, got %q", opt.Embedding.Provider)
	}
	if opt.Embedding.GenAIModel != "custom-model" {
		t.Errorf("expected overlay genai model, got %q", opt.Embedding.GenAIModel)
	}
	if len(opt.Watch.Roots) != 1 || opt.Watch.Roots[0] != "/tmp/notes" {
		t.Errorf("expected overlay watch roots, got %v", opt.Watch.Roots)
	}
}

// Mirrors the teacher's own env-override precedence tests
// (internal/config/env_override_test.go), including its use of
// testify's require/assert for this specific concern.
func TestResolveOptionsEnvOverridesYamlOverlay(t *testing.T) {
	t.Run("env wins over yaml overlay", func(t *testing.T) {
		dir := t.TempDir()
		overlay := "embedding:\n  provider: genai\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "mnemex.yaml"), []byte(overlay), 0o644))

		t.Setenv("MNEMEX_EMBEDDING_PROVIDER", "ollama")

		opt, err := resolveOptions(dir)
		require.NoError(t, err)
		assert.Equal(t, "ollama", opt.Embedding.Provider)
	})

	t.Run("yaml still applies when env unset", func(t *testing.T) {
		dir := t.TempDir()
		overlay := "generative:\n  model: custom-gen-model\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "mnemex.yaml"), []byte(overlay), 0o644))

		opt, err := resolveOptions(dir)
		require.NoError(t, err)
		assert.Equal(t, "custom-gen-model", opt.GenerativeModel)
	})

	t.Run("env MNEMEX_WATCH_ROOTS overrides yaml roots", func(t *testing.T) {
		dir := t.TempDir()
		overlay := "watch:\n  roots:\n    - /tmp/yaml-root\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "mnemex.yaml"), []byte(overlay), 0o644))

		t.Setenv("MNEMEX_WATCH_ROOTS", "/tmp/a"+string(os.PathListSeparator)+"/tmp/b")

		opt, err := resolveOptions(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"/tmp/a", "/tmp/b"}, opt.Watch.Roots)
	})
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", "", "c"); got != "c" {
		t.Errorf("expected 'c', got %q", got)
	}
	if got := firstNonEmpty("a", "b"); got != "a" {
		t.Errorf("expected 'a', got %q", got)
	}
	if got := firstNonEmpty(); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}
