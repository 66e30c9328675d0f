// Package main implements the mnemex CLI — the thin wrapper around
// the Active Orchestrator (internal/orchestrator), the file watcher
// (internal/watcher), and the hybrid retrieval engine
// (internal/retrieval) that makes the personal knowledge engine a
// runnable program.
//
// # File Index
//
//   - main.go     - entry point, rootCmd, global flags
//   - config.go   - mnemex.yaml overlay + env fallback -> options
//   - app.go      - wires store/graph/registry/retrieval/orchestrator
//   - cmd_ingest.go - one-shot file ingestion
//   - cmd_watch.go  - runs the scanner + worker daemon in the foreground
//   - cmd_chat.go   - interactive chat TUI and one-shot --message mode
//   - cmd_status.go - queue/trace/graph counts
//   - cmd_why.go    - dumps a trace's exec-node/exec-edge shape
//   - cmd_graph.go  - graph maintenance (compact)
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mnemex/internal/logging"
)

var (
	verbose bool
	dataDir string

	consoleLog *zap.Logger
	opts       options
)

var rootCmd = &cobra.Command{
	Use:   "mnemex",
	Short: "mnemex - a personal knowledge engine",
	Long: `mnemex watches a filesystem, ingests what it finds into
content-addressed, graph-linked memory cards, and answers questions
over that memory with cited, verified answers.

Run "mnemex chat" for the interactive chat interface, or "mnemex watch"
to run the ingest daemon in the foreground.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		consoleLog, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("initialize console logger: %w", err)
		}

		opts, err = resolveOptions(dataDir)
		if err != nil {
			return fmt.Errorf("resolve configuration: %w", err)
		}

		if err := logging.Initialize(opts.DataDir, verbose, false); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize file logging: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if consoleLog != nil {
			_ = consoleLog.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default: $MNEMEX_DATA_DIR or ~/.mnemex)")

	rootCmd.AddCommand(
		ingestCmd,
		watchCmd,
		chatCmd,
		statusCmd,
		whyCmd,
		graphCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
