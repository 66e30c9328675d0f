package watcher

import (
	"context"
	"time"

	"mnemex/internal/logging"
	"mnemex/internal/store"
)

// Daemon runs the scanner on a ticker and the worker's claim loop
// alongside it, the two background loops the watcher/queue component
// is built from.
type Daemon struct {
	scanner *Scanner
	worker  *Worker
	cfg     Config

	stop chan struct{}
	done chan struct{}
}

// NewDaemon wires a Scanner and Worker over the same store and config.
func NewDaemon(s *store.Store, cfg Config, dispatcher Dispatcher) *Daemon {
	return &Daemon{
		scanner: NewScanner(s, cfg),
		worker:  NewWorker(s, dispatcher, cfg.PollInterval),
		cfg:     cfg,
	}
}

// Start runs the scan ticker and the worker loop until Stop is called
// or ctx is cancelled. The first scan happens immediately.
func (d *Daemon) Start(ctx context.Context) {
	d.worker.Start(ctx)

	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	go d.runScanLoop(ctx)
}

// Stop shuts down both loops.
func (d *Daemon) Stop() {
	d.worker.Stop()
	if d.stop == nil {
		return
	}
	close(d.stop)
	select {
	case <-d.done:
	case <-time.After(2 * time.Second):
	}
}

func (d *Daemon) runScanLoop(ctx context.Context) {
	defer close(d.done)

	interval := d.cfg.PollInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.scanOnce()
	for {
		select {
		case <-d.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.scanOnce()
		}
	}
}

func (d *Daemon) scanOnce() {
	if err := d.scanner.ScanOnce(); err != nil {
		logging.Watcher("scan cycle failed: %v", err)
	}
}
