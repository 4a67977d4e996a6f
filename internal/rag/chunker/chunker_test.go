package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prose(chars int) string {
	sentences := []string{
		"I built a booking platform with Next.js and Postgres. ",
		"The rainfall model used gradient boosting on twenty years of data! ",
		"Why does the scanner run nightly? ",
		"Design reviews happen in Figma before any code is written.\n",
	}
	var b strings.Builder
	for i := 0; b.Len() < chars; i++ {
		b.WriteString(sentences[i%len(sentences)])
	}
	return b.String()[:chars]
}

func TestChunk_ScenarioA(t *testing.T) {
	text := prose(3000)
	opts := DefaultOptions()

	chunks := Chunk(text, opts)

	require.Len(t, chunks, 2)
	minChars := opts.MinChunkSize * 4
	for i, c := range chunks[:len(chunks)-1] {
		assert.GreaterOrEqual(t, len([]rune(c.Text)), minChars, "chunk %d below minimum", i)
	}
	assert.LessOrEqual(t, chunks[0].EndChar, opts.ChunkSize*4)
	assert.Greater(t, chunks[0].EndChar, opts.ChunkSize*4-200)
}

func TestChunk_CoverageAndOverlap(t *testing.T) {
	opts := Options{ChunkSize: 64, ChunkOverlap: 10, MinChunkSize: 20}
	for _, size := range []int{81, 250, 1000, 4096, 9999} {
		text := normalize(prose(size))
		chunks := Chunk(text, opts)
		require.NotEmpty(t, chunks)

		n := len([]rune(text))
		covered := 0
		for i, c := range chunks {
			assert.Greater(t, c.EndChar, c.StartChar)
			assert.Equal(t, i, c.Index)
			assert.LessOrEqual(t, c.StartChar, covered, "gap before chunk %d (size %d)", i, size)
			covered = max(covered, c.EndChar)
			if i > 0 {
				overlap := chunks[i-1].EndChar - c.StartChar
				assert.LessOrEqual(t, overlap, opts.ChunkOverlap*4+200, "overlap bound, size %d", size)
			}
		}
		assert.Equal(t, n, covered, "size %d not fully covered", size)
	}
}

func TestChunk_ShortFinalWindowKeepsTail(t *testing.T) {
	text := strings.Repeat("a", 1848) + strings.Repeat(" ", 100) + strings.Repeat("a", 100) + strings.Repeat("b", 250)

	chunks := Chunk(text, DefaultOptions())

	require.Len(t, chunks, 2)
	last := chunks[len(chunks)-1]
	assert.Equal(t, len(text), last.EndChar)
	assert.LessOrEqual(t, last.StartChar, chunks[0].EndChar)
	assert.Contains(t, last.Text, strings.Repeat("b", 250))
}

func TestChunk_ShortTextIsSingleChunk(t *testing.T) {
	chunks := Chunk("  Hello there.\r\n\r\n\r\n\r\nGeneral Kenobi.  ", DefaultOptions())

	require.Len(t, chunks, 1)
	assert.Equal(t, "Hello there.\n\nGeneral Kenobi.", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].StartChar)
}

func TestChunk_EmptyText(t *testing.T) {
	assert.Empty(t, Chunk(" \n\n ", DefaultOptions()))
}

func TestChunk_OverlapLargerThanStrideStillTerminates(t *testing.T) {
	opts := Options{ChunkSize: 30, ChunkOverlap: 40, MinChunkSize: 10}
	chunks := Chunk(prose(2000), opts)

	require.NotEmpty(t, chunks)
	for i := 1; i < len(chunks); i++ {
		assert.Greater(t, chunks[i].StartChar, chunks[i-1].StartChar)
	}
}

func TestChunk_MultibyteOffsets(t *testing.T) {
	text := strings.Repeat("Ünïcödé sentence here. ", 200)
	chunks := Chunk(text, Options{ChunkSize: 50, ChunkOverlap: 5, MinChunkSize: 10})

	runes := []rune(normalize(text))
	for _, c := range chunks {
		window := strings.TrimSpace(string(runes[c.StartChar:c.EndChar]))
		assert.Equal(t, window, c.Text)
	}
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
}

func TestFormatForContext(t *testing.T) {
	assert.Equal(t, "[1] alpha\n\n[2] beta", FormatForContext([]string{"alpha", "beta"}))
	assert.Equal(t, "", FormatForContext(nil))
}

func TestCountBPETokens(t *testing.T) {
	assert.Positive(t, CountBPETokens("Building RAG pipelines in Go."))
}
