package watcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mnemex/internal/store"
)

type fakeDispatcher struct {
	mu       sync.Mutex
	blobs    []map[string]any
	captures []map[string]any
	failBlob bool
}

func (f *fakeDispatcher) IngestBlob(ctx context.Context, payload map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failBlob {
		return errors.New("simulated ingest failure")
	}
	f.blobs = append(f.blobs, payload)
	return nil
}

func (f *fakeDispatcher) IngestCapture(ctx context.Context, payload map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captures = append(f.captures, payload)
	return nil
}

func (f *fakeDispatcher) blobCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.blobs)
}

func TestWorkerDrainsQueuedJobOnStart(t *testing.T) {
	s := newTestStore(t)
	if _, _, err := s.EnqueueJob(store.JobTypeIngestBlob, map[string]any{"path": "/tmp/a.txt"}); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	d := &fakeDispatcher{}
	w := NewWorker(s, d, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w.Start(ctx)
	defer w.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if d.blobCount() == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if d.blobCount() != 1 {
		t.Fatalf("expected dispatcher to receive 1 blob job, got %d", d.blobCount())
	}
}

func TestWorkerMarksJobErrorOnDispatchFailure(t *testing.T) {
	s := newTestStore(t)
	jobID, _, err := s.EnqueueJob(store.JobTypeIngestBlob, map[string]any{"path": "/tmp/a.txt"})
	if err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	d := &fakeDispatcher{failBlob: true}
	w := NewWorker(s, d, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w.Start(ctx)
	defer w.Stop()

	var status string
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		row := s.DB().QueryRow(`SELECT status FROM jobs WHERE job_id = ?`, jobID)
		if err := row.Scan(&status); err != nil {
			t.Fatalf("scan status: %v", err)
		}
		if status == store.JobStatusError {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if status != store.JobStatusError {
		t.Fatalf("expected job to end in error status, got %q", status)
	}
}

func TestWorkerCompletesUnknownJobTypeWithError(t *testing.T) {
	s := newTestStore(t)
	jobID, _, err := s.EnqueueJob("mystery_job", map[string]any{})
	if err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	d := &fakeDispatcher{}
	w := NewWorker(s, d, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w.Start(ctx)
	defer w.Stop()

	var status string
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		row := s.DB().QueryRow(`SELECT status FROM jobs WHERE job_id = ?`, jobID)
		if err := row.Scan(&status); err != nil {
			t.Fatalf("scan status: %v", err)
		}
		if status == store.JobStatusError {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if status != store.JobStatusError {
		t.Fatalf("expected unknown job type to complete as error, got %q", status)
	}
}
