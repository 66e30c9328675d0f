package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func TestRunIngestProducesMemoryCard(t *testing.T) {
	consoleLog = zap.NewNop()
	var err error
	opts, err = resolveOptions(t.TempDir())
	if err != nil {
		t.Fatalf("resolveOptions: %v", err)
	}

	path := filepath.Join(t.TempDir(), "note.txt")
	content := "Alice met Bob at Acme Corp to discuss the migration project."
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	output := captureStdout(t, func() {
		if err := runIngest(&cobra.Command{}, []string{path}); err != nil {
			t.Fatalf("runIngest: %v", err)
		}
	})

	if !strings.Contains(output, "memory_id:") {
		t.Errorf("expected a memory_id line in output, got:\n%s", output)
	}
}

func TestHashFileForIngestIsDeterministic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.txt")
	if err := os.WriteFile(path, []byte("same content"), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	sum1, _, size1, err := hashFileForIngest(path)
	if err != nil {
		t.Fatalf("hashFileForIngest: %v", err)
	}
	sum2, _, size2, err := hashFileForIngest(path)
	if err != nil {
		t.Fatalf("hashFileForIngest: %v", err)
	}
	if sum1 != sum2 || size1 != size2 {
		t.Errorf("expected deterministic hash/size, got (%s,%d) and (%s,%d)", sum1, size1, sum2, size2)
	}
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	os.Stdout = w

	done := make(chan string)
	go func() {
		buf := make([]byte, 0, 4096)
		chunk := make([]byte, 4096)
		for {
			n, readErr := r.Read(chunk)
			if n > 0 {
				buf = append(buf, chunk[:n]...)
			}
			if readErr != nil {
				break
			}
		}
		done <- string(buf)
	}()

	fn()

	_ = w.Close()
	os.Stdout = orig
	return <-done
}
