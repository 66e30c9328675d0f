// Package idgen generates the opaque 128-bit hex identifiers used for
// blobs, jobs, traces, and chat turns throughout mnemex. IDs are raw
// uuid.v4 bytes rendered as 32 lowercase hex characters rather than the
// canonical hyphenated form, matching the compact ids used in trace
// links and URLs elsewhere in the system.
package idgen

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// New returns a fresh 32-character lowercase hex identifier.
func New() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// Prefixed returns a fresh id with the given short prefix and a colon
// separator, e.g. Prefixed("blob") -> "blob:3f9a...".
func Prefixed(prefix string) string {
	return prefix + ":" + New()
}
