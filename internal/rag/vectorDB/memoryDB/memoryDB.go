package memoryDB

import (
	"context"
	"sync"

	"github.com/akolanti/PortfolioChat/internal/domain/commonModels"
	"github.com/akolanti/PortfolioChat/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioChat/internal/rag/vectorDB"
	"github.com/akolanti/PortfolioChat/pkg/logger_i"
)

// Store keeps every chunk in one slice. Mutations rebuild the slice without the affected
// document, the same way a table without row level delete is rewritten.
type Store struct {
	mu     sync.RWMutex
	rows   []commonModels.EmbeddedChunk
	logger *logger_i.Logger
}

func New() *Store {
	return &Store{logger: logger_i.NewLogger("memory_vector_store")}
}

func (s *Store) UpsertDocument(ctx context.Context, name string, chunks []commonModels.EmbeddedChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(chunks) > 0 {
		dim := len(chunks[0].Vector)
		if len(s.rows) > 0 && len(s.rows[0].Vector) != dim {
			return ragErrors.Validation("vector dimension %d does not match stored dimension %d", dim, len(s.rows[0].Vector))
		}
		for _, c := range chunks {
			if len(c.Vector) != dim {
				return ragErrors.Validation("chunk %d has dimension %d, expected %d", c.Index, len(c.Vector), dim)
			}
		}
	}

	rebuilt := without(s.rows, name)
	seen := make(map[int]struct{}, len(chunks))
	for _, c := range chunks {
		if _, dup := seen[c.Index]; dup {
			continue
		}
		seen[c.Index] = struct{}{}
		c.DocumentName = name
		c.Vector = append([]float32(nil), c.Vector...)
		rebuilt = append(rebuilt, c)
	}
	s.rows = rebuilt
	s.logger.WithContext(ctx).Debug("Document upserted", "document", name, "chunks", len(seen))
	return nil
}

func (s *Store) Search(ctx context.Context, query []float32, topK int, threshold float64) ([]commonModels.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return vectorDB.Rank(query, s.rows, topK, threshold), nil
}

func (s *Store) DeleteDocument(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rebuilt := without(s.rows, name)
	if len(rebuilt) == len(s.rows) {
		return false, nil
	}
	s.rows = rebuilt
	return true, nil
}

func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	s.rows = nil
	s.mu.Unlock()
	return nil
}

func (s *Store) ListDocuments(ctx context.Context) ([]string, error) {
	details, _ := s.GetDocumentDetails(ctx)
	names := make([]string, 0, len(details))
	for _, d := range details {
		names = append(names, d.Name)
	}
	return names, nil
}

func (s *Store) GetDocumentDetails(ctx context.Context) ([]commonModels.IndexedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return vectorDB.Summarize(s.rows), nil
}

func without(rows []commonModels.EmbeddedChunk, name string) []commonModels.EmbeddedChunk {
	out := make([]commonModels.EmbeddedChunk, 0, len(rows))
	for _, r := range rows {
		if r.DocumentName != name {
			out = append(out, r)
		}
	}
	return out
}
