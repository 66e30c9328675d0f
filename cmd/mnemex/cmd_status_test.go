package main

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func TestRunStatusReportsZeroedCountsOnFreshStore(t *testing.T) {
	consoleLog = zap.NewNop()
	var err error
	opts, err = resolveOptions(t.TempDir())
	if err != nil {
		t.Fatalf("resolveOptions: %v", err)
	}

	output := captureStdout(t, func() {
		if err := runStatus(&cobra.Command{}, nil); err != nil {
			t.Fatalf("runStatus: %v", err)
		}
	})

	if !strings.Contains(output, "mnemex status") {
		t.Errorf("expected a status header, got:\n%s", output)
	}
	if !strings.Contains(output, "memory cards: 0") {
		t.Errorf("expected zero memory cards on a fresh store, got:\n%s", output)
	}
}

func TestRunGraphCompactReportsZeroRemovedOnFreshStore(t *testing.T) {
	consoleLog = zap.NewNop()
	var err error
	opts, err = resolveOptions(t.TempDir())
	if err != nil {
		t.Fatalf("resolveOptions: %v", err)
	}

	output := captureStdout(t, func() {
		if err := runGraphCompact(&cobra.Command{}, nil); err != nil {
			t.Fatalf("runGraphCompact: %v", err)
		}
	})

	if !strings.Contains(output, "removed 0 duplicate entity node(s)") {
		t.Errorf("expected zero removed on fresh store, got:\n%s", output)
	}
}

func TestRunWhyReportsMissingTrace(t *testing.T) {
	consoleLog = zap.NewNop()
	var err error
	opts, err = resolveOptions(t.TempDir())
	if err != nil {
		t.Fatalf("resolveOptions: %v", err)
	}

	output := captureStdout(t, func() {
		if err := runWhy(&cobra.Command{}, []string{"deadbeefdeadbeefdeadbeefdeadbeef"}); err != nil {
			t.Fatalf("runWhy: %v", err)
		}
	})

	if !strings.Contains(output, "No trace found") {
		t.Errorf("expected a missing-trace message, got:\n%s", output)
	}
}
