// This file implements idempotent, additive-only schema migrations: every
// migration either adds a column that's missing or is a no-op, so running
// it against a fresh database or an old one is always safe.
package store

import (
	"database/sql"
	"fmt"

	"mnemex/internal/logging"
)

// CurrentSchemaVersion documents the schema generation for operators; the
// actual migration mechanism below is column-existence-driven, not
// version-gated, so a skipped version never blocks forward progress.
const CurrentSchemaVersion = 1

// Migration adds one column to one table if it is not already present.
type Migration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations lists every schema migration beyond the base
// CREATE TABLE definitions in schema.go. New columns belong here, never
// as a destructive ALTER or DROP.
var pendingMigrations = []Migration{
	{"memory_cards", "source_time", "TEXT"},
	{"exec_traces", "metadata_json", "TEXT DEFAULT '{}'"},
	{"conversation_turns", "verdict", "TEXT"},
}

// RunMigrations applies every pending migration against db. Missing
// tables are skipped quietly (a table introduced later in schema.go
// will already include the column from birth).
func RunMigrations(db *sql.DB) error {
	timer := logging.StartTimer(logging.CategoryStore, "RunMigrations")
	defer timer.Stop()

	applied, skipped := 0, 0
	for _, m := range pendingMigrations {
		if !tableExists(db, m.Table) {
			skipped++
			continue
		}
		if columnExists(db, m.Table, m.Column) {
			skipped++
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := db.Exec(query); err != nil {
			logging.Get(logging.CategoryStore).Warn("migration failed (may already exist): %s.%s: %v", m.Table, m.Column, err)
			skipped++
			continue
		}
		logging.Store("migration applied: added %s.%s", m.Table, m.Column)
		applied++
	}
	logging.Store("schema migrations complete: applied=%d skipped=%d", applied, skipped)
	return nil
}

// columnExists checks if a column exists in a table using PRAGMA table_info.
func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}

// tableExists checks if a table exists in the database.
func tableExists(db *sql.DB, table string) bool {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count); err != nil {
		return false
	}
	return count > 0
}
