package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mnemex/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the file watcher and ingest worker in the foreground",
	Long: `Scans the configured roots on a poll cycle, enqueueing an
ingest_blob job per new or changed file, and claims jobs off that
queue into the Active Orchestrator. Runs until interrupted.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	if len(opts.Watch.Roots) == 0 {
		return fmt.Errorf("no watch roots configured; set MNEMEX_WATCH_ROOTS or watch.roots in mnemex.yaml")
	}

	a, err := buildApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	daemon := watcher.NewDaemon(a.store, opts.Watch, a.orchestrator)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	consoleLog.Info("watching", zap.Strings("roots", opts.Watch.Roots), zap.Duration("poll_interval", opts.Watch.PollInterval))
	daemon.Start(ctx)

	<-ctx.Done()
	consoleLog.Info("shutting down")
	daemon.Stop()
	return nil
}
