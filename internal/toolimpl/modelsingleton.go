package toolimpl

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"mnemex/internal/embedding"
	"mnemex/internal/logging"
)

// modelSingleton lazily constructs an embedding.EmbeddingEngine on first
// use and retries construction on every call until one succeeds, rather
// than caching a permanent failure — grounded in the design note that
// "embedding models are loaded lazily... load failures are retried."
// singleflight collapses concurrent first-use callers onto one build.
type modelSingleton struct {
	group singleflight.Group
	mu    sync.RWMutex
	ready atomic.Bool
	cfg   embedding.Config
	value embedding.EmbeddingEngine
}

// newModelSingleton returns a singleton that builds an engine from cfg on
// first successful call to Get.
func newModelSingleton(cfg embedding.Config) *modelSingleton {
	return &modelSingleton{cfg: cfg}
}

// Get returns the cached engine if one built successfully, otherwise
// attempts (once per concurrent wave of callers) to build it again.
func (m *modelSingleton) Get(ctx context.Context) (embedding.EmbeddingEngine, error) {
	if m.ready.Load() {
		m.mu.RLock()
		defer m.mu.RUnlock()
		return m.value, nil
	}

	v, err, _ := m.group.Do("build", func() (interface{}, error) {
		engine, err := embedding.NewEngine(m.cfg)
		if err != nil {
			logging.Get(logging.CategoryEmbedding).Warn("model singleton build failed, will retry next call: %v", err)
			return nil, err
		}
		m.mu.Lock()
		m.value = engine
		m.mu.Unlock()
		m.ready.Store(true)
		return engine, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(embedding.EmbeddingEngine), nil
}
