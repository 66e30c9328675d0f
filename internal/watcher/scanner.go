package watcher

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"mnemex/internal/logging"
	"mnemex/internal/store"
	"mnemex/internal/toolimpl"
)

// Scanner walks the configured roots once per poll cycle, detecting new
// or changed files and enqueueing an ingest_blob job for each.
type Scanner struct {
	store *store.Store
	cfg   Config
}

// NewScanner builds a Scanner over the given store and config.
func NewScanner(s *store.Store, cfg Config) *Scanner {
	return &Scanner{store: s, cfg: cfg}
}

// ScanOnce walks every configured root a single time. Errors on an
// individual file or while walking a root are logged and do not stop
// the scan; the returned error is always nil.
func (sc *Scanner) ScanOnce() error {
	for _, root := range sc.cfg.Roots {
		if err := sc.scanRoot(root); err != nil {
			logging.Watcher("scan of root %s failed: %v", root, err)
		}
	}
	return nil
}

func (sc *Scanner) scanRoot(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.WatcherDebug("walk error at %s: %v", path, err)
			return nil
		}
		base := d.Name()
		if d.IsDir() {
			if path != root && (isHidden(base) || sc.isIgnoredDir(base)) {
				return filepath.SkipDir
			}
			return nil
		}
		if isHidden(base) {
			return nil
		}
		if err := sc.visitFile(path); err != nil {
			logging.Watcher("visit %s failed: %v", path, err)
		}
		return nil
	})
}

func isHidden(base string) bool {
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

func (sc *Scanner) isIgnoredDir(base string) bool {
	for _, ignored := range sc.cfg.IgnoreDirs {
		if base == ignored {
			return true
		}
	}
	return false
}

// visitFile stats a path and compares it to the last known file_state.
// Unchanged files are skipped; new or modified ones are hashed, recorded
// as a blob, and enqueued for ingestion.
func (sc *Scanner) visitFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if sc.cfg.MaxFileBytes > 0 && info.Size() > sc.cfg.MaxFileBytes {
		logging.WatcherDebug("skipping %s: %d bytes exceeds max_file_bytes", path, info.Size())
		return nil
	}

	mtimeNs := info.ModTime().UnixNano()
	size := info.Size()

	prior, err := sc.store.GetFileState(path)
	if err != nil {
		return err
	}
	if prior != nil && prior.MtimeNs == mtimeNs && prior.Size == size {
		return nil
	}

	sum, sample, err := hashFile(path)
	if err != nil {
		return err
	}
	if prior != nil && prior.SHA256 == sum {
		// mtime moved (touch, re-checkout) but content is identical;
		// record the new file_state without re-ingesting.
		return sc.store.UpsertFileState(path, mtimeNs, size, sum)
	}

	mime := toolimpl.DetectMime(path, sample)

	src, err := sc.store.UpsertSource("filesystem", "file://"+path)
	if err != nil {
		return err
	}
	blob, err := sc.store.UpsertBlob(sum, path, mime, size)
	if err != nil {
		return err
	}
	if err := sc.store.UpsertFileState(path, mtimeNs, size, sum); err != nil {
		return err
	}

	payload := map[string]any{
		"blob_id":   blob.BlobID,
		"source_id": src.SourceID,
		"path":      path,
		"sha256":    sum,
		"mime":      mime,
		"size":      size,
	}
	jobID, created, err := sc.store.EnqueueJob(store.JobTypeIngestBlob, payload)
	if err != nil {
		return err
	}
	if created {
		logging.Watcher("enqueued %s for %s (job %s)", store.JobTypeIngestBlob, path, jobID)
	}
	return nil
}

// hashFile streams a file's content through SHA-256 and returns the hex
// digest along with up to the first 512 bytes, used for mime sniffing
// without a second read pass.
func hashFile(path string) (sum string, sample []byte, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, 32*1024)
	first := true
	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
			if first {
				sampleLen := n
				if sampleLen > 512 {
					sampleLen = 512
				}
				sample = append([]byte(nil), buf[:sampleLen]...)
				first = false
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", nil, readErr
		}
	}
	return hex.EncodeToString(h.Sum(nil)), sample, nil
}
