// Package orchestrator implements the Active Orchestrator: the
// ingest_blob and chat operations that drive every tool dispatch
// through internal/tools.Registry and commit the resulting memory
// cards, embeddings, and graph updates through internal/store and
// internal/graph.
package orchestrator

import (
	"mnemex/internal/graph"
	"mnemex/internal/retrieval"
	"mnemex/internal/store"
	"mnemex/internal/toolimpl"
	"mnemex/internal/tools"
)

// Orchestrator holds every collaborator the ingest and chat operations
// dispatch through: the tool registry, the persistence layer, the
// property graph service, the retrieval engine, and the generative
// client used to precompute the chat pipeline's weave/verify calls.
type Orchestrator struct {
	registry  *tools.Registry
	store     *store.Store
	graph     *graph.Service
	retriever *retrieval.Engine
	gen       *toolimpl.GenerativeClient
	cfg       Config
}

// New builds an Orchestrator over its collaborators. gen may be nil —
// the weave/verify steps fall back to their deterministic stubs.
func New(registry *tools.Registry, s *store.Store, g *graph.Service, retriever *retrieval.Engine, gen *toolimpl.GenerativeClient, cfg Config) *Orchestrator {
	if cfg.MaxBlobBytes <= 0 {
		cfg.MaxBlobBytes = defaultMaxBlobBytes
	}
	return &Orchestrator{registry: registry, store: s, graph: g, retriever: retriever, gen: gen, cfg: cfg}
}

// IngestBlob and IngestCapture below give *Orchestrator the same shape
// as internal/watcher.Dispatcher. orchestrator sits below watcher in
// the dependency graph — the cmd layer wires an *Orchestrator in as a
// daemon's Dispatcher — so the interface itself is declared there, not
// here, and not asserted against in this package.
