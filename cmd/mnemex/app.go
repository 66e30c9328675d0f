package main

import (
	"fmt"

	"mnemex/internal/embedding"
	"mnemex/internal/graph"
	"mnemex/internal/orchestrator"
	"mnemex/internal/retrieval"
	"mnemex/internal/store"
	"mnemex/internal/toolimpl"
	"mnemex/internal/tools"
)

// app bundles every wired collaborator a subcommand needs. Every
// subcommand builds one from the resolved options and defers app.Close.
type app struct {
	store        *store.Store
	graph        *graph.Service
	registry     *tools.Registry
	retriever    *retrieval.Engine
	orchestrator *orchestrator.Orchestrator
	opts         options
}

// buildApp opens the store and wires the graph service, tool registry,
// retrieval engine, and Active Orchestrator over it, exactly the
// dependency order internal/orchestrator.New documents.
func buildApp(opts options) (*app, error) {
	s, err := store.Open(opts.DBPath, opts.BlobDir)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	gsvc := graph.NewService(s)
	reg := tools.NewRegistry(store.NewTraceStore(s))

	gen := toolimpl.NewGenerativeClient(opts.GenerativeEndpoint, opts.GenerativeModel)

	embedder, embErr := embedding.NewEngine(opts.Embedding)
	if embErr != nil {
		// No configured provider is reachable; retrieval falls back to
		// lexical/graph/recency signals only. text_embed dispatch will
		// fail the same way and is handled non-fatally by the ingest
		// pipelines.
		embedder = nil
	}

	engine := retrieval.NewEngine(s, gsvc, embedder)

	toolimpl.RegisterAll(reg, toolimpl.Config{
		Generative: gen,
		Embedding:  opts.Embedding,
		Vectors:    s,
		Graph:      gsvc,
		Retriever:  engine,
	})

	orch := orchestrator.New(reg, s, gsvc, engine, gen, opts.Orchestrator)

	return &app{
		store:        s,
		graph:        gsvc,
		registry:     reg,
		retriever:    engine,
		orchestrator: orch,
		opts:         opts,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
