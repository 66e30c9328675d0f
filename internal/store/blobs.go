package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mnemex/internal/idgen"
	"mnemex/internal/logging"
)

// Blob is a content-addressed artifact.
type Blob struct {
	BlobID    string
	SHA256    string
	Path      string
	Mime      string
	Size      int64
	CreatedAt time.Time
}

// Source is an external origin a blob or capture came from.
type Source struct {
	SourceID   string
	SourceType string
	URI        string
}

// FileState is the watcher's view of a single path.
type FileState struct {
	Path       string
	MtimeNs    int64
	Size       int64
	SHA256     string
	LastSeenAt time.Time
}

// Job is a queue entry.
type Job struct {
	JobID       string
	Type        string
	Status      string
	Payload     map[string]any
	Attempt     int
	ErrorText   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// JobTypeIngestBlob and JobTypeIngestCapture are the two job types the
// worker loop dispatches.
const (
	JobTypeIngestBlob    = "ingest_blob"
	JobTypeIngestCapture = "ingest_capture"

	JobStatusQueued  = "queued"
	JobStatusRunning = "running"
	JobStatusDone    = "done"
	JobStatusError   = "error"
)

// ErrNoJobAvailable is returned by ClaimJob when the queue has nothing
// in status "queued".
var ErrNoJobAvailable = errors.New("no job available")

// UpsertSource inserts a source or returns the existing row for the
// same URI (sources are deduplicated by URI).
func (s *Store) UpsertSource(sourceType, uri string) (*Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing Source
	err := s.db.QueryRow(`SELECT source_id, source_type, uri FROM sources WHERE uri = ?`, uri).
		Scan(&existing.SourceID, &existing.SourceType, &existing.URI)
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	src := &Source{SourceID: idgen.New(), SourceType: sourceType, URI: uri}
	_, err = s.db.Exec(`INSERT INTO sources (source_id, source_type, uri) VALUES (?, ?, ?)`,
		src.SourceID, src.SourceType, src.URI)
	if err != nil {
		return nil, fmt.Errorf("insert source: %w", err)
	}
	logging.StoreDebug("source created: %s (%s)", src.SourceID, uri)
	return src, nil
}

// UpsertBlob inserts a blob or returns the existing row for the same
// (sha256, path) pair.
func (s *Store) UpsertBlob(sha256Hex, path, mime string, size int64) (*Blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing Blob
	err := s.db.QueryRow(
		`SELECT blob_id, sha256, path, mime, size, created_at FROM blobs WHERE sha256 = ? AND path = ?`,
		sha256Hex, path,
	).Scan(&existing.BlobID, &existing.SHA256, &existing.Path, &existing.Mime, &existing.Size, &existing.CreatedAt)
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	b := &Blob{BlobID: idgen.New(), SHA256: sha256Hex, Path: path, Mime: mime, Size: size}
	_, err = s.db.Exec(`INSERT INTO blobs (blob_id, sha256, path, mime, size) VALUES (?, ?, ?, ?, ?)`,
		b.BlobID, b.SHA256, b.Path, b.Mime, b.Size)
	if err != nil {
		return nil, fmt.Errorf("insert blob: %w", err)
	}
	logging.StoreDebug("blob created: %s (%s, %d bytes)", b.BlobID, path, size)
	return b, nil
}

// GetFileState looks up the watcher's last known state for a path.
// Returns nil, nil if absent.
func (s *Store) GetFileState(path string) (*FileState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var fs FileState
	err := s.db.QueryRow(
		`SELECT path, mtime_ns, size, sha256, last_seen_at FROM file_states WHERE path = ?`, path,
	).Scan(&fs.Path, &fs.MtimeNs, &fs.Size, &fs.SHA256, &fs.LastSeenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &fs, nil
}

// UpsertFileState records the watcher's current view of a path.
func (s *Store) UpsertFileState(path string, mtimeNs, size int64, sha256Hex string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO file_states (path, mtime_ns, size, sha256, last_seen_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(path) DO UPDATE SET
		   mtime_ns = excluded.mtime_ns, size = excluded.size,
		   sha256 = excluded.sha256, last_seen_at = CURRENT_TIMESTAMP`,
		path, mtimeNs, size, sha256Hex,
	)
	return err
}

// HashPayload computes the payload-hash used for job deduplication.
func HashPayload(payload map[string]any) (string, error) {
	canon, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

// EnqueueJob inserts a new job, unless a non-terminal job of the same
// (type, payload-hash) already exists, in which case it returns the
// existing job id.
func (s *Store) EnqueueJob(jobType string, payload map[string]any) (jobID string, created bool, err error) {
	hash, err := HashPayload(payload)
	if err != nil {
		return "", false, fmt.Errorf("hash payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var existing string
	row := s.db.QueryRow(
		`SELECT job_id FROM jobs WHERE type = ? AND payload_hash = ? AND status IN ('queued','running')`,
		jobType, hash,
	)
	if err := row.Scan(&existing); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return "", false, err
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", false, err
	}

	id := idgen.New()
	_, err = s.db.Exec(
		`INSERT INTO jobs (job_id, type, status, payload_json, payload_hash) VALUES (?, ?, 'queued', ?, ?)`,
		id, jobType, string(payloadJSON), hash,
	)
	if err != nil {
		return "", false, fmt.Errorf("insert job: %w", err)
	}
	logging.Watcher("enqueued job %s type=%s", id, jobType)
	return id, true, nil
}

// ClaimJob selects the oldest queued job, flips it to running, and
// increments its attempt count — the queue's single-writer claim
// semantics. Returns ErrNoJobAvailable if nothing is queued.
func (s *Store) ClaimJob() (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var job Job
	var payloadJSON string
	err = tx.QueryRow(
		`SELECT job_id, type, status, payload_json, attempt, created_at, updated_at
		 FROM jobs WHERE status = 'queued' ORDER BY created_at ASC LIMIT 1`,
	).Scan(&job.JobID, &job.Type, &job.Status, &payloadJSON, &job.Attempt, &job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoJobAvailable
	}
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(
		`UPDATE jobs SET status = 'running', attempt = attempt + 1, updated_at = CURRENT_TIMESTAMP WHERE job_id = ?`,
		job.JobID,
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	job.Status = JobStatusRunning
	job.Attempt++
	if err := json.Unmarshal([]byte(payloadJSON), &job.Payload); err != nil {
		job.Payload = map[string]any{}
	}
	return &job, nil
}

// CompleteJob marks a job done or error.
func (s *Store) CompleteJob(jobID string, success bool, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := JobStatusDone
	if !success {
		status = JobStatusError
	}
	_, err := s.db.Exec(
		`UPDATE jobs SET status = ?, error_text = ?, updated_at = CURRENT_TIMESTAMP WHERE job_id = ?`,
		status, errText, jobID,
	)
	return err
}
