package watcher

import (
	"context"
	"errors"
	"time"

	"mnemex/internal/logging"
	"mnemex/internal/store"
)

// Dispatcher hands a claimed job off to the orchestrator's ingest
// entry points. ingest_blob jobs carry the payload built by Scanner;
// ingest_capture jobs carry whatever an authenticated external caller
// submitted (browser highlight/bookmark/visit, audio note). Both
// return an error only when the job should be recorded as failed.
type Dispatcher interface {
	IngestBlob(ctx context.Context, payload map[string]any) error
	IngestCapture(ctx context.Context, payload map[string]any) error
}

// Worker claims jobs from the queue and dispatches them by type.
// A single worker is sufficient: the queue's claim semantics already
// make multiple workers safe, but ingestion here is intentionally
// sequential.
type Worker struct {
	store        *store.Store
	dispatcher   Dispatcher
	pollInterval time.Duration

	stop chan struct{}
	done chan struct{}
}

// NewWorker builds a Worker over the given store, dispatcher, and the
// interval to sleep for when the queue is empty.
func NewWorker(s *store.Store, d Dispatcher, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Worker{store: s, dispatcher: d, pollInterval: pollInterval}
}

// Start runs the claim loop in a background goroutine. Call Stop to
// shut it down.
func (w *Worker) Start(ctx context.Context) {
	w.stop = make(chan struct{})
	w.done = make(chan struct{})
	go w.run(ctx)
}

// Stop signals the claim loop to exit and waits up to two seconds for
// it to do so, mirroring the stop/done handshake used elsewhere for
// backgrounded polling loops.
func (w *Worker) Stop() {
	if w.stop == nil {
		return
	}
	close(w.stop)
	select {
	case <-w.done:
	case <-time.After(2 * time.Second):
	}
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.drainQueue(ctx)
	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drainQueue(ctx)
		}
	}
}

// drainQueue claims and dispatches jobs until the queue reports empty.
func (w *Worker) drainQueue(ctx context.Context) {
	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.store.ClaimJob()
		if errors.Is(err, store.ErrNoJobAvailable) {
			return
		}
		if err != nil {
			logging.Watcher("claim_job failed: %v", err)
			return
		}
		w.runJob(ctx, job)
	}
}

func (w *Worker) runJob(ctx context.Context, job *store.Job) {
	var err error
	switch job.Type {
	case store.JobTypeIngestBlob:
		err = w.dispatcher.IngestBlob(ctx, job.Payload)
	case store.JobTypeIngestCapture:
		err = w.dispatcher.IngestCapture(ctx, job.Payload)
	default:
		err = errUnknownJobType(job.Type)
	}

	if err != nil {
		logging.Watcher("job %s (%s) failed: %v", job.JobID, job.Type, err)
		if completeErr := w.store.CompleteJob(job.JobID, false, err.Error()); completeErr != nil {
			logging.Watcher("complete_job %s failed: %v", job.JobID, completeErr)
		}
		return
	}

	logging.WatcherDebug("job %s (%s) completed", job.JobID, job.Type)
	if completeErr := w.store.CompleteJob(job.JobID, true, ""); completeErr != nil {
		logging.Watcher("complete_job %s failed: %v", job.JobID, completeErr)
	}
}

type unknownJobTypeError string

func (e unknownJobTypeError) Error() string { return "unknown job type: " + string(e) }

func errUnknownJobType(jobType string) error { return unknownJobTypeError(jobType) }
