// Package toolimpl provides the concrete tool implementations dispatched
// through internal/tools' Envelope/Result contract: document parsing, OCR,
// ASR, captioning, embedding, entity extraction, graph building, and the
// chat-side weaver/verifier pair. Every LLM-backed tool in this package
// keeps a deterministic, network-free fallback alongside its real path, per
// the stub/real duality design note.
package toolimpl

import "errors"

var (
	// ErrMissingInput is returned when a required envelope input is absent
	// or the wrong type. Tool implementations should not see this once the
	// dispatch wrapper's schema validation is in place; it remains as a
	// defensive check against malformed callers.
	ErrMissingInput = errors.New("toolimpl: missing or malformed input")

	// ErrOversizeFile signals a blob past the configured byte cap; the
	// orchestrator handles this before any tool is dispatched, but tools
	// that read from disk directly (doc_parse, ocr, asr) surface it too.
	ErrOversizeFile = errors.New("toolimpl: file exceeds size cap")
)
