package rag_test

import (
	"context"
	"sync"

	"github.com/akolanti/PortfolioChat/internal/domain/commonModels"
	"github.com/akolanti/PortfolioChat/internal/rag/ingest"
	"github.com/akolanti/PortfolioChat/internal/rag/llm"
	"github.com/akolanti/PortfolioChat/internal/rag/persona"
)

// MockEmbedder implements rag.QueryEmbedder
type MockEmbedder struct {
	mu      sync.Mutex
	calls   int
	OnEmbed func(ctx context.Context, text string) ([]float32, error)
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.OnEmbed != nil {
		return m.OnEmbed(ctx, text)
	}
	return []float32{0.6, 0.8}, nil
}

func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockVectorDB implements vectorDB.Store
type MockVectorDB struct {
	mu          sync.Mutex
	searchCalls int

	OnSearch             func(ctx context.Context, query []float32, topK int, threshold float64) ([]commonModels.ScoredChunk, error)
	OnDeleteDocument     func(ctx context.Context, name string) (bool, error)
	OnClearAll           func(ctx context.Context) error
	OnListDocuments      func(ctx context.Context) ([]string, error)
	OnGetDocumentDetails func(ctx context.Context) ([]commonModels.IndexedDocument, error)
}

func (m *MockVectorDB) UpsertDocument(ctx context.Context, name string, chunks []commonModels.EmbeddedChunk) error {
	return nil
}

func (m *MockVectorDB) Search(ctx context.Context, query []float32, topK int, threshold float64) ([]commonModels.ScoredChunk, error) {
	m.mu.Lock()
	m.searchCalls++
	m.mu.Unlock()
	if m.OnSearch != nil {
		return m.OnSearch(ctx, query, topK, threshold)
	}
	return nil, nil
}

func (m *MockVectorDB) SearchCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.searchCalls
}

func (m *MockVectorDB) DeleteDocument(ctx context.Context, name string) (bool, error) {
	if m.OnDeleteDocument != nil {
		return m.OnDeleteDocument(ctx, name)
	}
	return false, nil
}

func (m *MockVectorDB) ClearAll(ctx context.Context) error {
	if m.OnClearAll != nil {
		return m.OnClearAll(ctx)
	}
	return nil
}

func (m *MockVectorDB) ListDocuments(ctx context.Context) ([]string, error) {
	if m.OnListDocuments != nil {
		return m.OnListDocuments(ctx)
	}
	return nil, nil
}

func (m *MockVectorDB) GetDocumentDetails(ctx context.Context) ([]commonModels.IndexedDocument, error) {
	if m.OnGetDocumentDetails != nil {
		return m.OnGetDocumentDetails(ctx)
	}
	return nil, nil
}

// MockCache implements vectorDB.AnswerCache
type MockCache struct {
	mu          sync.Mutex
	lookups     int
	invalidated int

	OnLookup func(ctx context.Context, query []float32) (string, bool, error)
	OnSave   func(ctx context.Context, query []float32, answer string) error
}

func (m *MockCache) Lookup(ctx context.Context, query []float32) (string, bool, error) {
	m.mu.Lock()
	m.lookups++
	m.mu.Unlock()
	if m.OnLookup != nil {
		return m.OnLookup(ctx, query)
	}
	return "", false, nil
}

func (m *MockCache) Save(ctx context.Context, query []float32, answer string) error {
	if m.OnSave != nil {
		return m.OnSave(ctx, query, answer)
	}
	return nil
}

func (m *MockCache) Invalidate(ctx context.Context) error {
	m.mu.Lock()
	m.invalidated++
	m.mu.Unlock()
	return nil
}

func (m *MockCache) Lookups() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookups
}

func (m *MockCache) Invalidations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.invalidated
}

// MockCompleter implements rag.Completer
type MockCompleter struct {
	mu         sync.Mutex
	calls      int
	lastPrompt llm.Prompt

	OnComplete func(ctx context.Context, prompt llm.Prompt, stream bool) (llm.Reply, error)
}

func (m *MockCompleter) Complete(ctx context.Context, prompt llm.Prompt, stream bool) (llm.Reply, error) {
	m.mu.Lock()
	m.calls++
	m.lastPrompt = prompt
	m.mu.Unlock()
	if m.OnComplete != nil {
		return m.OnComplete(ctx, prompt, stream)
	}
	return llm.Reply{Provider: "gemini", Fragments: []string{"I built ", "a booking platform."}}, nil
}

func (m *MockCompleter) Providers() []string {
	return []string{"gemini", "openrouter"}
}

func (m *MockCompleter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockCompleter) LastPrompt() llm.Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPrompt
}

// MockIngester implements rag.Ingester
type MockIngester struct {
	OnIngestFile  func(ctx context.Context, in ingest.FileInput) (ingest.Result, error)
	OnIngestBatch func(ctx context.Context, files []ingest.FileInput) []ingest.Outcome
}

func (m *MockIngester) IngestFile(ctx context.Context, in ingest.FileInput) (ingest.Result, error) {
	if m.OnIngestFile != nil {
		return m.OnIngestFile(ctx, in)
	}
	return ingest.Result{DocumentName: in.Name}, nil
}

func (m *MockIngester) IngestBatch(ctx context.Context, files []ingest.FileInput) []ingest.Outcome {
	if m.OnIngestBatch != nil {
		return m.OnIngestBatch(ctx, files)
	}
	out := make([]ingest.Outcome, len(files))
	for i, f := range files {
		out[i] = ingest.Outcome{Name: f.Name, Result: ingest.Result{DocumentName: f.Name}}
	}
	return out
}

// MockPersonas implements rag.PersonaStore
type MockPersonas struct {
	Persona   *persona.Persona
	OnUpdate  func(p *persona.Persona) error
	OnRestore func() (*persona.Persona, error)
}

func (m *MockPersonas) Current() *persona.Persona { return m.Persona }

func (m *MockPersonas) Update(p *persona.Persona) error {
	if m.OnUpdate != nil {
		return m.OnUpdate(p)
	}
	m.Persona = p
	return nil
}

func (m *MockPersonas) Restore() (*persona.Persona, error) {
	if m.OnRestore != nil {
		return m.OnRestore()
	}
	return m.Persona, nil
}

func testPersona() *persona.Persona {
	return &persona.Persona{
		Name:     "Ada Park",
		Headline: "Full-stack engineer",
		Contact:  persona.Contact{Email: "ada@example.com"},
		Skills:   persona.Skills{Languages: []string{"Go", "TypeScript"}},
		Projects: []persona.Project{{Name: "Tidewatch", Description: "Flood forecasting"}},
	}
}
