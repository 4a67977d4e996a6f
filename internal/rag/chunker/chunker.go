package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/akolanti/PortfolioChat/internal/config"
	"github.com/akolanti/PortfolioChat/internal/domain/commonModels"
)

// Options are expressed in tokens and converted with config.CharsPerToken.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
	MinChunkSize int
}

func DefaultOptions() Options {
	return Options{
		ChunkSize:    config.DefaultChunkSize,
		ChunkOverlap: config.DefaultChunkOverlap,
		MinChunkSize: config.DefaultMinChunkSize,
	}
}

var excessNewlines = regexp.MustCompile(`\n{3,}`)

func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = excessNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Chunk splits text into overlapping windows that prefer to end on a sentence boundary.
func Chunk(text string, opts Options) []commonModels.Chunk {
	normalized := []rune(normalize(text))
	n := len(normalized)
	if n == 0 {
		return nil
	}

	chunkChars := opts.ChunkSize * config.CharsPerToken
	overlapChars := opts.ChunkOverlap * config.CharsPerToken
	minChars := opts.MinChunkSize * config.CharsPerToken
	if chunkChars <= 0 {
		chunkChars = n
	}

	if n < minChars {
		return []commonModels.Chunk{{Text: string(normalized), Index: 0, StartChar: 0, EndChar: n}}
	}

	var chunks []commonModels.Chunk
	start := 0
	for start < n {
		end := min(start+chunkChars, n)
		if end < n {
			end = sentenceBoundary(normalized, start, end, minChars)
		}

		piece := strings.TrimSpace(string(normalized[start:end]))
		kept := utf8.RuneCountInString(piece) >= minChars || len(chunks) == 0
		if kept {
			chunks = append(chunks, commonModels.Chunk{
				Text:      piece,
				Index:     len(chunks),
				StartChar: start,
				EndChar:   end,
			})
		}
		if end >= n {
			if kept {
				return chunks
			}
			// the final window trimmed below the minimum, the tail below still covers it
			break
		}

		next := end - overlapChars
		if next <= start {
			next = end
		}
		start = next
		if start >= n-minChars {
			break
		}
	}

	// tail shorter than the minimum, kept unless the last chunk already reaches the end
	if last := chunks[len(chunks)-1]; last.EndChar < n {
		if tail := strings.TrimSpace(string(normalized[start:])); tail != "" {
			chunks = append(chunks, commonModels.Chunk{
				Text:      tail,
				Index:     len(chunks),
				StartChar: start,
				EndChar:   n,
			})
		}
	}
	return chunks
}

// sentenceBoundary moves end to just after the rightmost ". ", "? " or "! " (or newline variant)
// found in the last SentenceSearchWindow runes, never before start+minChars.
func sentenceBoundary(text []rune, start, end, minChars int) int {
	searchStart := max(start+minChars, end-config.SentenceSearchWindow)
	for i := end - 2; i > searchStart; i-- {
		switch text[i] {
		case '.', '?', '!':
			if text[i+1] == ' ' || text[i+1] == '\n' {
				return i + 2
			}
		}
	}
	return end
}

func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + config.CharsPerToken - 1) / config.CharsPerToken
}

// FormatForContext numbers passages the way the persona prompt expects them: "[1] text".
func FormatForContext(texts []string) string {
	blocks := make([]string, 0, len(texts))
	for i, t := range texts {
		blocks = append(blocks, fmt.Sprintf("[%d] %s", i+1, t))
	}
	return strings.Join(blocks, "\n\n")
}
