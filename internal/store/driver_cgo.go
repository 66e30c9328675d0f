//go:build cgo

package store

// The cgo build links mattn/go-sqlite3, which supports loading the real
// sqlite-vec extension (see init_vec.go) for ANN vector search.
import _ "github.com/mattn/go-sqlite3"

const sqlDriver = "sqlite3"
