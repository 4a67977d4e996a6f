package ingest

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/akolanti/PortfolioChat/internal/domain/commonModels"
	"github.com/akolanti/PortfolioChat/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioChat/internal/rag/chunker"
	"github.com/akolanti/PortfolioChat/internal/rag/vectorDB/memoryDB"
	"github.com/akolanti/PortfolioChat/internal/rag/vision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type MockEmbedder struct {
	OnEmbedBatch func(ctx context.Context, texts []string) ([][]float32, error)
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if m.OnEmbedBatch != nil {
		return m.OnEmbedBatch(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, float32(i)}
	}
	return out, nil
}

type MockDescriber struct {
	OnDescribe func(ctx context.Context, data []byte, mimeType string) (vision.ImageMetadata, error)
}

func (m *MockDescriber) Describe(ctx context.Context, data []byte, mimeType string) (vision.ImageMetadata, error) {
	return m.OnDescribe(ctx, data, mimeType)
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func prose(chars int) string {
	var b strings.Builder
	for b.Len() < chars {
		b.WriteString("I designed the ingestion service and wrote most of its tests. ")
	}
	return b.String()[:chars]
}

func fixedClock() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

// --- Unit Tests ---

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		declared string
		expected commonModels.DocType
	}{
		{"pdf", []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n1 0 obj"), "", commonModels.PDF},
		{"plain text", []byte("Hello, I am a software engineer."), "", commonModels.TXT},
		{"png", pngHeader, "application/octet-stream", commonModels.IMAGE},
		{"rtf", []byte(`{\rtf1\ansi Hello}`), "", commonModels.DOCX},
		{"opaque binary", []byte{0x00, 0x01, 0x02, 0x03, 0xfe, 0xff}, "", commonModels.ERR},
		{"opaque but declared text", []byte{0x00, 0x01, 0x02, 0x03, 0xfe, 0xff}, "text/markdown", commonModels.TXT},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, _ := classify(tt.data, tt.declared)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestJoinPages_PageAttribution(t *testing.T) {
	pages := []rawPage{
		{Number: 1, Content: "first page\r\n"},
		{Number: 2, Content: "   "},
		{Number: 3, Content: "third\n\n\n\npage"},
	}

	text, starts, numbers := joinPages(pages)

	assert.Equal(t, "first page\n\nthird\n\npage", text)
	assert.Equal(t, []int{0, 12}, starts)
	assert.Equal(t, []int{1, 3}, numbers)
	assert.Equal(t, 1, pageAt(0, starts, numbers))
	assert.Equal(t, 1, pageAt(11, starts, numbers))
	assert.Equal(t, 3, pageAt(12, starts, numbers))
	assert.Equal(t, 3, pageAt(20, starts, numbers))
}

func TestDocumentName(t *testing.T) {
	assert.Equal(t, "resume.pdf", documentName("uploads/2025/resume.pdf"))
	assert.Equal(t, "notes.txt", documentName(`C:\Users\me\notes.txt`))
	assert.Equal(t, "about.md", documentName("  about.md "))
}

func TestIngestFile_TextDocument(t *testing.T) {
	store := memoryDB.New()
	embedder := &MockEmbedder{}
	p := NewPipeline(embedder, store, WithClock(fixedClock))

	res, err := p.IngestFile(context.Background(), FileInput{Name: "about.txt", Data: []byte(prose(3000))})

	require.NoError(t, err)
	assert.Equal(t, "about.txt", res.DocumentName)
	assert.Equal(t, commonModels.TXT, res.DocType)
	assert.Equal(t, 2, res.Stats.Chunks)
	assert.Equal(t, 1, res.Stats.Pages)
	assert.Positive(t, res.Stats.TotalTokens)
	assert.Positive(t, res.Stats.BPETokens)
	assert.InDelta(t, res.Stats.TotalTokens/2, res.Stats.AvgChunkTokens, 1)
	assert.Nil(t, res.Image)

	docs, err := store.GetDocumentDetails(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "about.txt", docs[0].Name)
	assert.Equal(t, 2, docs[0].ChunkCount)
	assert.True(t, docs[0].CreatedAt.Equal(fixedClock()))
}

func TestIngestFile_ReingestReplaces(t *testing.T) {
	store := memoryDB.New()
	p := NewPipeline(&MockEmbedder{}, store, WithChunkOptions(chunker.Options{ChunkSize: 64, ChunkOverlap: 8, MinChunkSize: 16}))
	ctx := context.Background()

	_, err := p.IngestFile(ctx, FileInput{Name: "cv.txt", Data: []byte(prose(5000))})
	require.NoError(t, err)
	second, err := p.IngestFile(ctx, FileInput{Name: "cv.txt", Data: []byte("Short replacement text about my current role.")})
	require.NoError(t, err)

	docs, err := store.GetDocumentDetails(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 1, second.Stats.Chunks)
	assert.Equal(t, 1, docs[0].ChunkCount)
}

func TestIngestFile_Validation(t *testing.T) {
	p := NewPipeline(&MockEmbedder{}, memoryDB.New(), WithMaxBytes(1024))

	tests := []struct {
		name string
		in   FileInput
	}{
		{"missing name", FileInput{Name: " ", Data: []byte("hello")}},
		{"empty data", FileInput{Name: "a.txt"}},
		{"too large", FileInput{Name: "a.txt", Data: bytes.Repeat([]byte("a"), 1025)}},
		{"unsupported type", FileInput{Name: "a.bin", Data: []byte{0x00, 0x01, 0x02, 0x03, 0xfe, 0xff}}},
		{"whitespace only", FileInput{Name: "a.txt", Data: []byte("  \n\n  ")}},
		{"image without describer", FileInput{Name: "a.png", Data: pngHeader}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.IngestFile(context.Background(), tt.in)
			require.Error(t, err)
			if tt.name != "image without describer" {
				assert.ErrorIs(t, err, ragErrors.ErrValidation)
			}
		})
	}
}

func TestIngestFile_EmbeddingFailureStoresNothing(t *testing.T) {
	store := memoryDB.New()
	embedder := &MockEmbedder{
		OnEmbedBatch: func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, ragErrors.ModelUnavailable(errors.New("backend down"))
		},
	}
	p := NewPipeline(embedder, store)

	_, err := p.IngestFile(context.Background(), FileInput{Name: "a.txt", Data: []byte(prose(600))})

	assert.ErrorIs(t, err, ragErrors.ErrModelUnavailable)
	names, err := store.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestIngestFile_Image(t *testing.T) {
	describer := &MockDescriber{
		OnDescribe: func(ctx context.Context, data []byte, mimeType string) (vision.ImageMetadata, error) {
			assert.Equal(t, "image/png", mimeType)
			return vision.ImageMetadata{
				Description: "A developer presenting at a meetup",
				People:      vision.People{Count: 2, Details: []string{"speaker with glasses"}},
				Objects:     []string{"laptop", "projector", "microphone"},
				Location:    vision.Location{Type: "indoor", Details: []string{"conference room"}},
				Weather:     "indoor",
				Mood:        "focused",
				Tags:        []string{"talk", "meetup"},
			}, nil
		},
	}
	var embedded []string
	embedder := &MockEmbedder{
		OnEmbedBatch: func(ctx context.Context, texts []string) ([][]float32, error) {
			embedded = texts
			return [][]float32{{1, 0}}, nil
		},
	}
	p := NewPipeline(embedder, memoryDB.New(), WithDescriber(describer))

	res, err := p.IngestFile(context.Background(), FileInput{Name: "talk.png", Data: pngHeader})

	require.NoError(t, err)
	assert.Equal(t, commonModels.IMAGE, res.DocType)
	require.NotNil(t, res.Image)
	assert.Equal(t, 2, res.Stats.PeopleCount)
	assert.Equal(t, 3, res.Stats.ObjectCount)
	assert.Equal(t, []string{"talk", "meetup"}, res.Stats.Tags)
	require.Len(t, embedded, 1)
	assert.Contains(t, embedded[0], "Image: talk.png")
	assert.Contains(t, embedded[0], "Objects: laptop, projector, microphone")
}

func TestIngestBatch_FailuresAreIndependent(t *testing.T) {
	store := memoryDB.New()
	p := NewPipeline(&MockEmbedder{}, store, WithConcurrency(2))

	outcomes := p.IngestBatch(context.Background(), []FileInput{
		{Name: "one.txt", Data: []byte("The first document talks about Go services.")},
		{Name: "broken.bin", Data: []byte{0x00, 0x01, 0x02, 0x03, 0xfe, 0xff}},
		{Name: "three.txt", Data: []byte("The third document talks about Postgres tuning.")},
	})

	require.Len(t, outcomes, 3)
	assert.NoError(t, outcomes[0].Err)
	assert.ErrorIs(t, outcomes[1].Err, ragErrors.ErrValidation)
	assert.NoError(t, outcomes[2].Err)
	assert.Equal(t, "three.txt", outcomes[2].Result.DocumentName)

	names, err := store.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"one.txt", "three.txt"}, names)
}
