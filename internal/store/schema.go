package store

import (
	"database/sql"
	"fmt"

	"mnemex/internal/logging"
)

// createSchema creates every table and index from the data model if it
// does not already exist. It never drops or alters existing columns;
// RunMigrations (migrations.go) handles additive column changes.
func createSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS blobs (
			blob_id TEXT PRIMARY KEY,
			sha256 TEXT NOT NULL,
			path TEXT NOT NULL,
			mime TEXT,
			size INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(sha256, path)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_blobs_sha256 ON blobs(sha256)`,

		`CREATE TABLE IF NOT EXISTS sources (
			source_id TEXT PRIMARY KEY,
			source_type TEXT NOT NULL,
			uri TEXT NOT NULL UNIQUE,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS file_states (
			path TEXT PRIMARY KEY,
			mtime_ns INTEGER NOT NULL,
			size INTEGER NOT NULL,
			sha256 TEXT,
			last_seen_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS jobs (
			job_id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'queued',
			payload_json TEXT NOT NULL,
			payload_hash TEXT NOT NULL,
			attempt INTEGER NOT NULL DEFAULT 0,
			error_text TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_type_hash ON jobs(type, payload_hash)`,

		`CREATE TABLE IF NOT EXISTS memory_cards (
			memory_id TEXT PRIMARY KEY,
			card_type TEXT NOT NULL,
			summary TEXT NOT NULL,
			content_text TEXT NOT NULL,
			metadata_json TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			source_time TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memory_cards_created ON memory_cards(created_at)`,

		`CREATE VIRTUAL TABLE IF NOT EXISTS memory_cards_fts USING fts5(
			memory_id UNINDEXED, summary, tokenize='unicode61'
		)`,

		`CREATE TABLE IF NOT EXISTS embeddings (
			embedding_id TEXT PRIMARY KEY,
			memory_id TEXT NOT NULL,
			modality TEXT NOT NULL,
			vector_ref TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_embeddings_memory ON embeddings(memory_id)`,

		`CREATE TABLE IF NOT EXISTS graph_nodes (
			node_id TEXT PRIMARY KEY,
			node_type TEXT NOT NULL,
			properties_json TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_graph_nodes_type ON graph_nodes(node_type)`,

		`CREATE TABLE IF NOT EXISTS graph_edges (
			edge_id TEXT PRIMARY KEY,
			from_node_id TEXT NOT NULL,
			to_node_id TEXT NOT NULL,
			edge_type TEXT NOT NULL,
			weight REAL NOT NULL DEFAULT 1.0,
			valid_from TEXT,
			valid_to TEXT,
			provenance_json TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_graph_edges_from ON graph_edges(from_node_id)`,
		`CREATE INDEX IF NOT EXISTS idx_graph_edges_to ON graph_edges(to_node_id)`,
		`CREATE INDEX IF NOT EXISTS idx_graph_edges_type ON graph_edges(edge_type)`,

		`CREATE TABLE IF NOT EXISTS tool_calls (
			call_id TEXT PRIMARY KEY,
			tool_name TEXT NOT NULL,
			trace_id TEXT,
			started_at DATETIME,
			inputs_json TEXT,
			outputs_json TEXT,
			status TEXT NOT NULL DEFAULT 'running'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tool_calls_trace ON tool_calls(trace_id)`,

		`CREATE TABLE IF NOT EXISTS exec_nodes (
			exec_node_id TEXT PRIMARY KEY,
			call_id TEXT NOT NULL,
			trace_id TEXT NOT NULL,
			tool_name TEXT NOT NULL,
			state TEXT NOT NULL DEFAULT 'running',
			attempt INTEGER NOT NULL DEFAULT 1,
			declared_timeout_ms INTEGER,
			started_at DATETIME,
			finished_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exec_nodes_trace ON exec_nodes(trace_id)`,
		`CREATE INDEX IF NOT EXISTS idx_exec_nodes_tool_trace ON exec_nodes(tool_name, trace_id)`,

		`CREATE TABLE IF NOT EXISTS exec_edges (
			from_exec_node_id TEXT NOT NULL,
			to_exec_node_id TEXT NOT NULL,
			condition TEXT NOT NULL DEFAULT 'sequential',
			trace_id TEXT NOT NULL,
			PRIMARY KEY (from_exec_node_id, to_exec_node_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exec_edges_trace ON exec_edges(trace_id)`,

		`CREATE TABLE IF NOT EXISTS exec_traces (
			trace_id TEXT PRIMARY KEY,
			started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			finished_at DATETIME,
			status TEXT NOT NULL DEFAULT 'running',
			metadata_json TEXT NOT NULL DEFAULT '{}'
		)`,

		`CREATE TABLE IF NOT EXISTS conversation_turns (
			turn_id TEXT PRIMARY KEY,
			user_text TEXT NOT NULL,
			assistant_text TEXT,
			verdict TEXT,
			trace_id TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS chat_citations (
			citation_id TEXT PRIMARY KEY,
			turn_id TEXT NOT NULL,
			memory_id TEXT NOT NULL,
			quote TEXT,
			span_start INTEGER,
			span_end INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_citations_turn ON chat_citations(turn_id)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w\n%s", err, stmt)
		}
	}

	logging.StoreDebug("schema ensured (%d statements)", len(statements))
	return nil
}
