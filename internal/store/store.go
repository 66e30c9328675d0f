// Package store implements the persistence layer: a relational
// store with a full-text index over memory-card summaries, an object
// store for vectors, and a blob directory on disk. Schema evolution is
// additive-only (see migrations.go); no entity in the data model is
// ever destructively altered.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"mnemex/internal/embedding"
	"mnemex/internal/logging"
)

// Store is the relational + vector + blob persistence layer shared by
// every component that needs durable state.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
	blobDir string

	embeddingEngine embedding.EmbeddingEngine
	vectorExt       bool // true if the real sqlite-vec extension loaded
}

// Open initializes the SQLite database at dbPath and the blob
// directory at blobDir, creating both if necessary.
func Open(dbPath, blobDir string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	if err := os.MkdirAll(blobDir, 0755); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}

	db, err := sql.Open(sqlDriver, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single writer keeps the single-writer job-queue claim semantics
	// and the dispatch wrapper's trace writes serialized without
	// SQLITE_BUSY contention.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, dbPath: dbPath, blobDir: blobDir}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s.detectVecExtension()
	if s.vectorExt {
		logging.Store("sqlite-vec extension detected and enabled")
	} else {
		logging.Get(logging.CategoryStore).Warn("sqlite-vec extension unavailable; falling back to pure-Go vec0 compat shim")
		if err := s.initVecCompat(); err != nil {
			db.Close()
			return nil, fmt.Errorf("init vec0 compat shim: %w", err)
		}
	}

	logging.Store("store opened at %s (blobs: %s)", dbPath, blobDir)
	return s, nil
}

// SetEmbeddingEngine wires the engine used to determine vector
// dimensionality when creating new per-modality collections. If the
// pure-Go vec0 compat shim is active, this also kicks off a background
// backfill of text vectors lost to the shim's in-memory-only storage.
func (s *Store) SetEmbeddingEngine(e embedding.EmbeddingEngine) {
	s.mu.Lock()
	s.embeddingEngine = e
	needsBackfill := e != nil && !s.vectorExt
	s.mu.Unlock()

	if needsBackfill {
		go func() {
			if err := s.BackfillVectors(context.Background()); err != nil {
				logging.Get(logging.CategoryStore).Warn("vector backfill failed: %v", err)
			}
		}()
	}
}

// DB returns the underlying database handle for components (the trace
// store, the graph store) that live in this package but in other files.
func (s *Store) DB() *sql.DB {
	return s.db
}

// BlobDir returns the directory blobs are copied/linked into.
func (s *Store) BlobDir() string {
	return s.blobDir
}

// Close closes the database connection.
func (s *Store) Close() error {
	logging.Store("closing store")
	return s.db.Close()
}

// detectVecExtension probes whether the real sqlite-vec extension is
// loaded by attempting to create (and immediately drop) a throwaway
// vec0 virtual table.
func (s *Store) detectVecExtension() {
	if _, err := s.db.Exec("CREATE VIRTUAL TABLE IF NOT EXISTS vec_probe USING vec0(embedding float[4])"); err == nil {
		s.vectorExt = true
		_, _ = s.db.Exec("DROP TABLE IF EXISTS vec_probe")
		return
	}
	s.vectorExt = false
}
