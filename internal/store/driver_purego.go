//go:build !cgo

package store

// The pure-Go build links modernc.org/sqlite, which has no sqlite-vec
// extension loading support; vec_compat.go registers an in-memory vec0
// compat shim against this same driver so ANN-style search still works.
import _ "modernc.org/sqlite"

const sqlDriver = "sqlite"
