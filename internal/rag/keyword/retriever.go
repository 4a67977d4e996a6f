package keyword

import (
	"regexp"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/akolanti/PortfolioChat/internal/domain/commonModels"
)

// SourceName tags keyword results so callers can tell them from vector hits.
const SourceName = "knowledge"

var nonWord = regexp.MustCompile(`\W+`)

// Retriever ranks corpus passages by lexical overlap with the query. It needs no external service.
type Retriever struct {
	corpus atomic.Pointer[[]string]
}

func NewRetriever(corpus []string) *Retriever {
	r := &Retriever{}
	r.Reload(corpus)
	return r
}

// Reload swaps the corpus. Searches already running keep the corpus they started with.
func (r *Retriever) Reload(corpus []string) {
	cp := make([]string, 0, len(corpus))
	for _, c := range corpus {
		if strings.TrimSpace(c) != "" {
			cp = append(cp, c)
		}
	}
	r.corpus.Store(&cp)
}

func (r *Retriever) Size() int {
	return len(*r.corpus.Load())
}

// FindRelevantChunks scores each passage by the share of distinct query words (longer than two
// characters) it contains. Passages that match nothing are dropped; ties keep corpus order.
func (r *Retriever) FindRelevantChunks(query string, topK int) []commonModels.ScoredChunk {
	words := queryWords(query)
	corpus := *r.corpus.Load()
	if len(words) == 0 || topK <= 0 {
		return []commonModels.ScoredChunk{}
	}

	scored := make([]commonModels.ScoredChunk, 0, len(corpus))
	for i, text := range corpus {
		lower := strings.ToLower(text)
		matches := 0
		for _, w := range words {
			if strings.Contains(lower, w) {
				matches++
			}
		}
		if matches == 0 {
			continue
		}
		scored = append(scored, commonModels.ScoredChunk{
			Text:         text,
			DocumentName: SourceName,
			ChunkIndex:   i,
			Score:        float64(matches) / float64(len(words)),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}

func queryWords(query string) []string {
	seen := make(map[string]struct{})
	var words []string
	for _, w := range nonWord.Split(strings.ToLower(query), -1) {
		if len([]rune(w)) <= 2 {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}
	return words
}
