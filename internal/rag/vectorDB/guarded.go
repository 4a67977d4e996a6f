package vectorDB

import (
	"context"
	"sync"

	"github.com/akolanti/PortfolioChat/internal/domain/commonModels"
)

type nameLock struct {
	mu   sync.Mutex
	refs int
}

// guarded serializes mutations of the same document name and makes ClearAll exclusive.
// Reads pass straight through.
type guarded struct {
	inner Store

	global sync.RWMutex
	mu     sync.Mutex
	locks  map[string]*nameLock
}

func NewGuarded(inner Store) Store {
	if g, ok := inner.(*guarded); ok {
		return g
	}
	return &guarded{inner: inner, locks: make(map[string]*nameLock)}
}

func (g *guarded) lock(name string) func() {
	g.global.RLock()

	g.mu.Lock()
	l, ok := g.locks[name]
	if !ok {
		l = &nameLock{}
		g.locks[name] = l
	}
	l.refs++
	g.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		g.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(g.locks, name)
		}
		g.mu.Unlock()
		g.global.RUnlock()
	}
}

func (g *guarded) UpsertDocument(ctx context.Context, name string, chunks []commonModels.EmbeddedChunk) error {
	unlock := g.lock(name)
	defer unlock()
	return g.inner.UpsertDocument(ctx, name, chunks)
}

func (g *guarded) DeleteDocument(ctx context.Context, name string) (bool, error) {
	unlock := g.lock(name)
	defer unlock()
	return g.inner.DeleteDocument(ctx, name)
}

func (g *guarded) ClearAll(ctx context.Context) error {
	g.global.Lock()
	defer g.global.Unlock()
	return g.inner.ClearAll(ctx)
}

func (g *guarded) Search(ctx context.Context, query []float32, topK int, threshold float64) ([]commonModels.ScoredChunk, error) {
	return g.inner.Search(ctx, query, topK, threshold)
}

func (g *guarded) ListDocuments(ctx context.Context) ([]string, error) {
	return g.inner.ListDocuments(ctx)
}

func (g *guarded) GetDocumentDetails(ctx context.Context) ([]commonModels.IndexedDocument, error) {
	return g.inner.GetDocumentDetails(ctx)
}

func (g *guarded) inFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.locks)
}
