package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func resetLoggingState(t *testing.T) {
	t.Helper()
	CloseAll()
	configMu.Lock()
	config = loggingConfig{}
	logLevel = LevelInfo
	configMu.Unlock()
	logsDir = ""
	t.Cleanup(func() {
		CloseAll()
		configMu.Lock()
		config = loggingConfig{}
		logLevel = LevelInfo
		configMu.Unlock()
		logsDir = ""
	})
}

func TestInitializeDisabledIsANoOp(t *testing.T) {
	resetLoggingState(t)
	dir := t.TempDir()

	if err := Initialize(dir, false, false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if IsDebugMode() {
		t.Error("expected debug mode to be off")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no files written when debug mode is off, found %v", entries)
	}
}

func TestInitializeDebugModeWritesLogFile(t *testing.T) {
	resetLoggingState(t)
	dir := t.TempDir()

	if err := Initialize(dir, true, false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if !IsDebugMode() {
		t.Error("expected debug mode to be on")
	}

	Orchestrator("ingest started for %s", "blob-1")

	logsPath := filepath.Join(dir, "logs")
	entries, err := os.ReadDir(logsPath)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	found := false
	for _, e := range entries {
		if strings.Contains(e.Name(), "orchestrator") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an orchestrator log file among %v", entries)
	}
}

func TestSetLevelSuppressesLowerSeverity(t *testing.T) {
	resetLoggingState(t)
	dir := t.TempDir()
	if err := Initialize(dir, true, false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	SetLevel("error")

	l := Get(CategoryStore)
	l.Debug("should not appear")
	l.Info("should not appear either")
	l.Warn("still should not appear")
	l.Error("this one should appear")

	CloseAll()

	logPath := findLogFile(t, filepath.Join(dir, "logs"), "store")
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	content := string(data)
	if strings.Contains(content, "should not appear") {
		t.Errorf("expected sub-error-level lines to be suppressed, got:\n%s", content)
	}
	if !strings.Contains(content, "this one should appear") {
		t.Errorf("expected the error-level line to be written, got:\n%s", content)
	}
}

func findLogFile(t *testing.T, dir, category string) string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), category) {
			return filepath.Join(dir, e.Name())
		}
	}
	t.Fatalf("no log file found for category %q in %v", category, entries)
	return ""
}

func TestStopWithThresholdLogsWarningOnSlowOp(t *testing.T) {
	resetLoggingState(t)
	dir := t.TempDir()
	if err := Initialize(dir, true, false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	timer := StartTimer(CategoryWatcher, "scan")
	timer.StopWithThreshold(0)

	CloseAll()

	logPath := findLogFile(t, filepath.Join(dir, "logs"), "performance")
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "scan") {
		t.Errorf("expected the slow-op warning to mention the operation name, got:\n%s", string(data))
	}
}
