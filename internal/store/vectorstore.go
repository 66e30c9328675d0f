package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"mnemex/internal/idgen"
	"mnemex/internal/logging"
)

// VectorMatch is one result of a nearest-neighbor search against a
// modality's collection.
type VectorMatch struct {
	MemoryID string
	Distance float64 // cosine distance, lower is closer
}

// collectionName maps a modality ("text", "vision") to its vec0 table
// name; every modality gets its own collection since dimensionality
// varies by embedding model.
func collectionName(modality string) string {
	return "vec_" + modality
}

// ensureCollection creates the modality's vec0 collection if absent,
// sized to dim (the embedding engine's reported dimensionality).
func (s *Store) ensureCollection(modality string, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("ensureCollection: invalid dimension %d for modality %s", dim, modality)
	}
	table := collectionName(modality)

	s.mu.Lock()
	defer s.mu.Unlock()
	stmt := fmt.Sprintf(
		"CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(embedding float[%d], memory_id TEXT, payload_json TEXT)",
		table, dim,
	)
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("create collection %s: %w", table, err)
	}
	return nil
}

// StoreVector embeds vec into the modality's collection and returns the
// vector_ref ("<store>:<collection>:<point_id>") recorded alongside the
// embeddings-table row by the caller.
func (s *Store) StoreVector(modality, memoryID string, vec []float32, payload map[string]any) (string, error) {
	s.mu.RLock()
	hasEngine := s.embeddingEngine != nil
	s.mu.RUnlock()
	if !hasEngine {
		return "", fmt.Errorf("store vector: no embedding engine configured")
	}
	if err := s.ensureCollection(modality, len(vec)); err != nil {
		return "", err
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	table := collectionName(modality)
	blob := encodeVector(vec)

	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(
		fmt.Sprintf("INSERT INTO %s (embedding, memory_id, payload_json) VALUES (?, ?, ?)", table),
		blob, memoryID, string(payloadJSON),
	)
	if err != nil {
		return "", fmt.Errorf("insert into %s: %w", table, err)
	}
	pointID, err := res.LastInsertId()
	if err != nil {
		return "", err
	}

	vectorRef := fmt.Sprintf("sqlite:%s:%d", table, pointID)
	logging.StoreDebug("vector stored: memory=%s modality=%s ref=%s", memoryID, modality, vectorRef)
	return vectorRef, nil
}

// SearchVector runs a cosine-distance scan over the modality's
// collection and returns the topK closest rows. The pure-Go build's
// vec0 compat shim has no index, so this is a linear scan in both
// builds; only the real sqlite-vec extension (behind the cgo tag with
// sqlite_vec enabled) would use an ANN index instead of vecDistanceFunc.
func (s *Store) SearchVector(ctx context.Context, modality string, queryVec []float32, topK int) ([]VectorMatch, error) {
	table := collectionName(modality)
	blob := encodeVector(queryVec)

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := fmt.Sprintf(
		"SELECT memory_id, %s(embedding, ?) AS dist FROM %s ORDER BY dist ASC LIMIT ?",
		vecDistanceFunc, table,
	)
	rows, err := s.db.QueryContext(ctx, query, blob, topK)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", table, err)
	}
	defer rows.Close()

	var out []VectorMatch
	for rows.Next() {
		var m VectorMatch
		if err := rows.Scan(&m.MemoryID, &m.Distance); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// BackfillVectors re-embeds every text-modality memory card and
// reinserts it into the vec0 compat collection. The pure-Go build's
// compat shim keeps rows only in process memory (vec_compat.go), so a
// restart loses them; this recomputes them from memory_cards.content_text
// rather than trying to serialize the shim's tables to disk. Vision
// embeddings are not recoverable this way (they're derived from the
// original image, not from text), so this only restores the text
// modality and logs how many vision rows were left stale.
func (s *Store) BackfillVectors(ctx context.Context) error {
	if s.embeddingEngine == nil {
		return nil
	}

	s.mu.RLock()
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.memory_id, e.modality, c.content_text
		 FROM embeddings e JOIN memory_cards c ON c.memory_id = e.memory_id`)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("list embeddings: %w", err)
	}

	type row struct{ memoryID, modality, content string }
	var pending []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.memoryID, &r.modality, &r.content); err != nil {
			continue
		}
		pending = append(pending, r)
	}
	rows.Close()

	restored, skipped := 0, 0
	for _, r := range pending {
		if r.modality != "text" {
			skipped++
			continue
		}
		vec, err := s.embeddingEngine.Embed(ctx, r.content)
		if err != nil {
			logging.Get(logging.CategoryStore).Warn("backfill: re-embed failed for %s: %v", r.memoryID, err)
			continue
		}
		if _, err := s.StoreVector(r.modality, r.memoryID, vec, map[string]any{}); err != nil {
			logging.Get(logging.CategoryStore).Warn("backfill: store vector failed for %s: %v", r.memoryID, err)
			continue
		}
		restored++
	}

	logging.Store("backfill restored %d text vectors, left %d non-text vectors stale until next ingest", restored, skipped)
	return nil
}

func encodeVector(vec []float32) []byte {
	buf := &bytes.Buffer{}
	_ = binary.Write(buf, binary.LittleEndian, vec)
	return buf.Bytes()
}

// NewEmbeddingID generates an id for a fresh embeddings-table row.
func NewEmbeddingID() string {
	return idgen.Prefixed("emb")
}
