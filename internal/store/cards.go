package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mnemex/internal/logging"
)

// MemoryCard is a unit of knowledge produced by an ingest pipeline.
type MemoryCard struct {
	MemoryID    string
	CardType    string
	Summary     string
	ContentText string
	Metadata    map[string]any
	CreatedAt   time.Time
	SourceTime  string
}

const (
	maxSummaryChars = 400
	maxContentChars = 200000
)

// TruncateAtSentence hard-truncates s to at most max characters,
// preferring to cut at the last sentence boundary (. ! ?) before the
// limit when one exists past the first third of the budget.
func TruncateAtSentence(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	best := -1
	for i := len(cut) - 1; i >= max/3; i-- {
		if cut[i] == '.' || cut[i] == '!' || cut[i] == '?' {
			best = i + 1
			break
		}
	}
	if best > 0 {
		return strings.TrimSpace(cut[:best])
	}
	return strings.TrimSpace(cut)
}

// InsertMemoryCard persists a new memory card exactly once (cards are
// never mutated after creation — a new trace produces a new card). The
// summary and content_text are hard-truncated to their character caps,
// and the full-text index is kept in sync best-effort: a failed FTS
// write never fails the card write.
func (s *Store) InsertMemoryCard(card *MemoryCard) error {
	timer := logging.StartTimer(logging.CategoryStore, "InsertMemoryCard")
	defer timer.Stop()

	card.Summary = TruncateAtSentence(card.Summary, maxSummaryChars)
	card.ContentText = TruncateAtSentence(card.ContentText, maxContentChars)
	if card.Summary == card.ContentText[:min(len(card.Summary), len(card.ContentText))] && card.Summary != "" {
		// summary must not be a verbatim prefix of content_text: shorten
		// it and end it with an ellipsis, staying within maxSummaryChars
		card.Summary = TruncateAtSentence(card.Summary, min(len(card.Summary)-1, maxSummaryChars-len("…"))) + "…"
	}

	metaJSON, err := json.Marshal(card.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(
		`INSERT INTO memory_cards (memory_id, card_type, summary, content_text, metadata_json, source_time)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		card.MemoryID, card.CardType, card.Summary, card.ContentText, string(metaJSON), card.SourceTime,
	)
	if err != nil {
		return fmt.Errorf("insert memory card: %w", err)
	}

	if _, ftsErr := s.db.Exec(
		`INSERT INTO memory_cards_fts (memory_id, summary) VALUES (?, ?)`, card.MemoryID, card.Summary,
	); ftsErr != nil {
		logging.Get(logging.CategoryStore).Warn("fts index write failed for %s: %v", card.MemoryID, ftsErr)
	}

	logging.Store("memory card created: %s (type=%s)", card.MemoryID, card.CardType)
	return nil
}

// GetMemoryCard loads a card by id.
func (s *Store) GetMemoryCard(memoryID string) (*MemoryCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var card MemoryCard
	var metaJSON string
	var sourceTime sql.NullString
	err := s.db.QueryRow(
		`SELECT memory_id, card_type, summary, content_text, metadata_json, created_at, source_time
		 FROM memory_cards WHERE memory_id = ?`, memoryID,
	).Scan(&card.MemoryID, &card.CardType, &card.Summary, &card.ContentText, &metaJSON, &card.CreatedAt, &sourceTime)
	if err != nil {
		return nil, err
	}
	card.SourceTime = sourceTime.String
	_ = json.Unmarshal([]byte(metaJSON), &card.Metadata)
	return &card, nil
}

// FindMemoryCardByBlobID returns the memory card referencing blobID in
// its metadata, if one exists — used for ingest idempotency.
func (s *Store) FindMemoryCardByBlobID(blobID string) (*MemoryCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT memory_id, metadata_json FROM memory_cards ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var memoryID, metaJSON string
		if err := rows.Scan(&memoryID, &metaJSON); err != nil {
			continue
		}
		var meta map[string]any
		if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
			continue
		}
		if bid, ok := meta["blob_id"].(string); ok && bid == blobID {
			return s.GetMemoryCard(memoryID)
		}
	}
	return nil, nil
}

// InsertEmbedding links a memory card to a vector stored in the object
// store's per-modality collection.
func (s *Store) InsertEmbedding(embeddingID, memoryID, modality, vectorRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO embeddings (embedding_id, memory_id, modality, vector_ref) VALUES (?, ?, ?, ?)`,
		embeddingID, memoryID, modality, vectorRef,
	)
	return err
}

// SearchSummariesFTS runs the sanitized full-text query over
// memory_cards_fts and returns (memory_id, raw_rank) pairs.
func (s *Store) SearchSummariesFTS(ftsQuery string, limit int) ([]struct {
	MemoryID string
	Rank     float64
}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT memory_id, bm25(memory_cards_fts) AS rank FROM memory_cards_fts
		 WHERE memory_cards_fts MATCH ? ORDER BY rank LIMIT ?`,
		ftsQuery, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []struct {
		MemoryID string
		Rank     float64
	}
	for rows.Next() {
		var memoryID string
		var rank float64
		if err := rows.Scan(&memoryID, &rank); err != nil {
			continue
		}
		out = append(out, struct {
			MemoryID string
			Rank     float64
		}{memoryID, rank})
	}
	return out, nil
}
