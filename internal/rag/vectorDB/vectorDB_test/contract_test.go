package vectorDB_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/akolanti/PortfolioChat/internal/domain/commonModels"
	"github.com/akolanti/PortfolioChat/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioChat/internal/rag/vectorDB"
	"github.com/akolanti/PortfolioChat/internal/rag/vectorDB/memoryDB"
	"github.com/akolanti/PortfolioChat/internal/rag/vectorDB/sqliteDB"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeFactory func(t *testing.T) vectorDB.Store

func backends() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) vectorDB.Store {
			return vectorDB.NewGuarded(memoryDB.New())
		},
		"sqlite": func(t *testing.T) vectorDB.Store {
			s, err := sqliteDB.Open(context.Background(), filepath.Join(t.TempDir(), "vectors.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return vectorDB.NewGuarded(s)
		},
	}
}

func unit(dim, hot int) []float32 {
	v := make([]float32, dim)
	v[hot%dim] = 1
	return v
}

func doc(name string, n int, prefix string) []commonModels.EmbeddedChunk {
	out := make([]commonModels.EmbeddedChunk, n)
	for i := range out {
		out[i] = commonModels.EmbeddedChunk{
			Chunk:        commonModels.Chunk{Text: fmt.Sprintf("%s chunk %d", prefix, i), Index: i, StartChar: i * 10, EndChar: i*10 + 12},
			Vector:       unit(4, i),
			DocumentName: name,
			CreatedAt:    time.Now(),
		}
	}
	return out
}

func TestStoreContract(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("Empty store searches to empty list", func(t *testing.T) {
				s := newStore(t)
				res, err := s.Search(ctx, unit(4, 0), 3, 0.25)
				require.NoError(t, err)
				assert.Empty(t, res)
			})

			t.Run("Re-ingest replaces the chunk set", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, s.UpsertDocument(ctx, "resume.pdf", doc("resume.pdf", 4, "old")))
				require.NoError(t, s.UpsertDocument(ctx, "resume.pdf", doc("resume.pdf", 2, "new")))

				details, err := s.GetDocumentDetails(ctx)
				require.NoError(t, err)
				require.Len(t, details, 1)
				assert.Equal(t, 2, details[0].ChunkCount)

				for hot := 0; hot < 4; hot++ {
					res, err := s.Search(ctx, unit(4, hot), 10, 0)
					require.NoError(t, err)
					for _, r := range res {
						assert.Contains(t, r.Text, "new")
					}
				}
			})

			t.Run("Vectors of another dimension are rejected", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, s.UpsertDocument(ctx, "resume.pdf", doc("resume.pdf", 2, "four")))

				wide := doc("talk.pdf", 1, "eight")
				wide[0].Vector = unit(8, 0)
				err := s.UpsertDocument(ctx, "talk.pdf", wide)

				assert.ErrorIs(t, err, ragErrors.ErrValidation)
				names, err := s.ListDocuments(ctx)
				require.NoError(t, err)
				assert.Equal(t, []string{"resume.pdf"}, names)
			})

			t.Run("Delete removes every chunk of a document", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, s.UpsertDocument(ctx, "a.txt", doc("a.txt", 3, "a")))
				require.NoError(t, s.UpsertDocument(ctx, "b.txt", doc("b.txt", 3, "b")))

				deleted, err := s.DeleteDocument(ctx, "a.txt")
				require.NoError(t, err)
				assert.True(t, deleted)

				for hot := 0; hot < 4; hot++ {
					res, err := s.Search(ctx, unit(4, hot), 10, 0)
					require.NoError(t, err)
					for _, r := range res {
						assert.NotEqual(t, "a.txt", r.DocumentName)
					}
				}
				names, err := s.ListDocuments(ctx)
				require.NoError(t, err)
				assert.Equal(t, []string{"b.txt"}, names)

				deleted, err = s.DeleteDocument(ctx, "a.txt")
				require.NoError(t, err)
				assert.False(t, deleted)
			})

			t.Run("Search ranks by score and honours threshold and topK", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, s.UpsertDocument(ctx, "a.txt", doc("a.txt", 4, "a")))

				res, err := s.Search(ctx, unit(4, 2), 2, 0.25)
				require.NoError(t, err)
				require.Len(t, res, 2)
				assert.Equal(t, 2, res[0].ChunkIndex)
				assert.InDelta(t, 1.0, res[0].Score, 1e-6)
				assert.GreaterOrEqual(t, res[0].Score, res[1].Score)

				res, err = s.Search(ctx, unit(4, 2), 10, 0.9)
				require.NoError(t, err)
				assert.Len(t, res, 1)
			})

			t.Run("Clear empties the index", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, s.UpsertDocument(ctx, "a.txt", doc("a.txt", 2, "a")))
				require.NoError(t, s.ClearAll(ctx))

				res, err := s.Search(ctx, unit(4, 0), 3, 0)
				require.NoError(t, err)
				assert.Empty(t, res)
				details, err := s.GetDocumentDetails(ctx)
				require.NoError(t, err)
				assert.Empty(t, details)
			})

			t.Run("Concurrent writers to one name leave one complete set", func(t *testing.T) {
				s := newStore(t)
				var wg sync.WaitGroup
				for i := 0; i < 8; i++ {
					wg.Add(1)
					go func(i int) {
						defer wg.Done()
						_ = s.UpsertDocument(ctx, "same.txt", doc("same.txt", 3, fmt.Sprintf("w%d", i)))
					}(i)
				}
				wg.Wait()

				details, err := s.GetDocumentDetails(ctx)
				require.NoError(t, err)
				require.Len(t, details, 1)
				assert.Equal(t, 3, details[0].ChunkCount)
			})
		})
	}
}
