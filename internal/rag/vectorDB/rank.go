package vectorDB

import (
	"sort"

	"github.com/akolanti/PortfolioChat/internal/domain/commonModels"
)

// Rank scores every candidate against query by Euclidean distance and keeps the best topK above threshold.
// Used by the backends that scan vectors themselves.
func Rank(query []float32, candidates []commonModels.EmbeddedChunk, topK int, threshold float64) []commonModels.ScoredChunk {
	if topK <= 0 || len(candidates) == 0 {
		return []commonModels.ScoredChunk{}
	}
	scored := make([]commonModels.ScoredChunk, 0, len(candidates))
	for _, c := range candidates {
		if len(c.Vector) != len(query) {
			continue
		}
		score := DistanceToScore(EuclideanDistance(query, c.Vector))
		if score < threshold {
			continue
		}
		scored = append(scored, commonModels.ScoredChunk{
			Text:         c.Text,
			DocumentName: c.DocumentName,
			ChunkIndex:   c.Index,
			Score:        score,
		})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}

// Summarize groups chunks by document, keeping the earliest timestamp seen per name.
func Summarize(chunks []commonModels.EmbeddedChunk) []commonModels.IndexedDocument {
	byName := make(map[string]*commonModels.IndexedDocument)
	var order []string
	for _, c := range chunks {
		d, ok := byName[c.DocumentName]
		if !ok {
			d = &commonModels.IndexedDocument{Name: c.DocumentName, CreatedAt: c.CreatedAt}
			byName[c.DocumentName] = d
			order = append(order, c.DocumentName)
		}
		d.ChunkCount++
		if c.CreatedAt.Before(d.CreatedAt) {
			d.CreatedAt = c.CreatedAt
		}
	}
	sort.Strings(order)
	out := make([]commonModels.IndexedDocument, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	return out
}
