package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/akolanti/PortfolioChat/internal/config"
	"github.com/akolanti/PortfolioChat/internal/domain/commonModels"
	"github.com/akolanti/PortfolioChat/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioChat/internal/rag"
	"github.com/akolanti/PortfolioChat/internal/rag/ingest"
	"github.com/akolanti/PortfolioChat/internal/rag/persona"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const personaJSON = `{
  "name": "Ada Park",
  "headline": "Full-stack engineer",
  "contact": {"email": "ada@example.com"},
  "about": "I build data pipelines and the services around them.",
  "skills": {"languages": ["Go", "TypeScript"]},
  "projects": [{"name": "Tidewatch", "description": "Flood forecasting", "tech": ["Go"]}]
}`

const knowledgeJSON = `[{"text": "Ada mentors junior engineers."}, {"text": "Ada speaks at local meetups."}]`

// embeddingServer answers the OpenAI embeddings endpoint with fixed three dimensional vectors.
func embeddingServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		data := make([]map[string]any, len(body.Input))
		for i := range body.Input {
			data[i] = map[string]any{"object": "embedding", "index": i, "embedding": []float64{1, 0, float64(i)}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "test",
			"data":   data,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
}

func testSettings(t *testing.T, embeddingURL string) *config.Settings {
	t.Helper()
	dir := t.TempDir()
	s := config.DefaultSettings()
	s.VectorStore.Backend = "memory"
	s.Embedding.BaseURL = embeddingURL
	s.Embedding.Model = "mini"
	s.Embedding.Dimension = 3
	s.Persona.Path = filepath.Join(dir, "persona.json")
	s.Persona.BackupPath = filepath.Join(dir, "persona.backup.json")
	s.Persona.KnowledgePath = filepath.Join(dir, "portfolio.json")
	s.Persona.Watch = false
	s.Providers.Order = []string{"openrouter"}
	s.Providers.OpenRouter.APIKey = "test-key"
	s.Providers.Gemini.APIKey = ""

	require.NoError(t, os.WriteFile(s.Persona.Path, []byte(personaJSON), 0o644))
	require.NoError(t, os.WriteFile(s.Persona.KnowledgePath, []byte(knowledgeJSON), 0o644))
	return s
}

func TestBuild_MemoryBackend(t *testing.T) {
	srv := embeddingServer(t)
	defer srv.Close()
	ctx := context.Background()

	app, err := Build(ctx, testSettings(t, srv.URL), Options{})
	require.NoError(t, err)
	defer app.Close()

	require.NotNil(t, app.Personas.Current())
	assert.Equal(t, "Ada Park", app.Rag.Persona().Name)
	// two knowledge entries plus the persona passages
	assert.Greater(t, app.Keyword.Size(), 2)

	h := app.Rag.Health(ctx)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, []string{"openrouter"}, h.Providers)
	assert.Zero(t, h.Documents)
}

func TestBuild_IngestAndList(t *testing.T) {
	srv := embeddingServer(t)
	defer srv.Close()
	ctx := context.Background()

	app, err := Build(ctx, testSettings(t, srv.URL), Options{SkipProviders: true})
	require.NoError(t, err)
	defer app.Close()

	res, err := app.Rag.IngestDocument(ctx, ingest.FileInput{Name: "about.txt", Data: []byte("I have shipped Go services for eight years.")})
	require.NoError(t, err)
	assert.Equal(t, commonModels.TXT, res.DocType)

	docs, err := app.Rag.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "about.txt", docs[0].Name)
}

func TestBuild_SkipProvidersChatFails(t *testing.T) {
	srv := embeddingServer(t)
	defer srv.Close()
	ctx := context.Background()

	app, err := Build(ctx, testSettings(t, srv.URL), Options{SkipProviders: true})
	require.NoError(t, err)
	defer app.Close()

	_, err = app.Rag.Chat(ctx, rag.ChatRequest{
		SessionID: "s1",
		Messages:  []commonModels.ChatMessage{{Role: commonModels.RoleUser, Content: "Which Go projects has Ada built?"}},
	})
	assert.ErrorIs(t, err, ragErrors.ErrProviderExhausted)
	assert.Empty(t, app.Rag.Health(ctx).Providers)
}

func TestBuild_NoUsableProvider(t *testing.T) {
	srv := embeddingServer(t)
	defer srv.Close()
	s := testSettings(t, srv.URL)
	s.Providers.Order = []string{"gemini", "unknown"}

	_, err := Build(context.Background(), s, Options{})
	assert.Error(t, err)
}

func TestBuild_PersonaUpdateReloadsCorpus(t *testing.T) {
	srv := embeddingServer(t)
	defer srv.Close()
	ctx := context.Background()

	app, err := Build(ctx, testSettings(t, srv.URL), Options{SkipProviders: true})
	require.NoError(t, err)
	defer app.Close()
	before := app.Keyword.Size()

	p := *app.Personas.Current()
	p.Projects = append(p.Projects, persona.Project{Name: "Harbor", Description: "Container registry mirror"})
	p.Certifications = []string{"CKA"}
	require.NoError(t, app.Rag.UpdatePersona(ctx, &p))

	assert.Equal(t, before+2, app.Keyword.Size())
	matches := app.Keyword.FindRelevantChunks("Harbor registry mirror", 1)
	require.Len(t, matches, 1)
	assert.Contains(t, matches[0].Text, "Harbor")
}

func TestBuild_MissingPersonaStillBuilds(t *testing.T) {
	srv := embeddingServer(t)
	defer srv.Close()
	s := testSettings(t, srv.URL)
	require.NoError(t, os.Remove(s.Persona.Path))

	app, err := Build(context.Background(), s, Options{SkipProviders: true})
	require.NoError(t, err)
	defer app.Close()

	assert.Nil(t, app.Personas.Current())
	assert.Equal(t, 2, app.Keyword.Size())
}

func TestBuild_UnknownBackend(t *testing.T) {
	s := config.DefaultSettings()
	s.VectorStore.Backend = "cassandra"

	_, err := Build(context.Background(), s, Options{SkipProviders: true})
	assert.Error(t, err)
}
