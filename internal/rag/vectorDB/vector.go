package vectorDB

import (
	"context"
	"math"

	"github.com/akolanti/PortfolioChat/internal/domain/commonModels"
)

// Store persists embedded chunks grouped by document name.
type Store interface {
	// UpsertDocument replaces every chunk stored under name with chunks.
	UpsertDocument(ctx context.Context, name string, chunks []commonModels.EmbeddedChunk) error
	// Search returns at most topK chunks with score >= threshold, best first.
	Search(ctx context.Context, query []float32, topK int, threshold float64) ([]commonModels.ScoredChunk, error)
	// DeleteDocument reports false when nothing was stored under name.
	DeleteDocument(ctx context.Context, name string) (bool, error)
	ClearAll(ctx context.Context) error
	ListDocuments(ctx context.Context) ([]string, error)
	GetDocumentDetails(ctx context.Context) ([]commonModels.IndexedDocument, error)
}

// AnswerCache holds final answers keyed by the embedding of the question that produced them.
type AnswerCache interface {
	Lookup(ctx context.Context, query []float32) (string, bool, error)
	Save(ctx context.Context, query []float32, answer string) error
	Invalidate(ctx context.Context) error
}

// DistanceToScore maps a non-negative distance into (0,1]; smaller distances score higher.
func DistanceToScore(distance float64) float64 {
	if distance < 0 {
		distance = 0
	}
	return 1 / (1 + distance)
}

func EuclideanDistance(a, b []float32) float64 {
	var sum float64
	for i := range min(len(a), len(b)) {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
