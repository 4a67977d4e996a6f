package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/akolanti/PortfolioChat/internal/config"
	"github.com/akolanti/PortfolioChat/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioChat/internal/rag"
	"github.com/akolanti/PortfolioChat/internal/rag/chunker"
	"github.com/akolanti/PortfolioChat/internal/rag/embedding"
	"github.com/akolanti/PortfolioChat/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/PortfolioChat/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/PortfolioChat/internal/rag/guardrail"
	"github.com/akolanti/PortfolioChat/internal/rag/ingest"
	"github.com/akolanti/PortfolioChat/internal/rag/keyword"
	"github.com/akolanti/PortfolioChat/internal/rag/llm"
	"github.com/akolanti/PortfolioChat/internal/rag/llm/anthropicLLM"
	"github.com/akolanti/PortfolioChat/internal/rag/llm/gemini"
	"github.com/akolanti/PortfolioChat/internal/rag/llm/openaiCompat"
	"github.com/akolanti/PortfolioChat/internal/rag/persona"
	"github.com/akolanti/PortfolioChat/internal/rag/vectorDB"
	"github.com/akolanti/PortfolioChat/internal/rag/vectorDB/memoryDB"
	"github.com/akolanti/PortfolioChat/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/PortfolioChat/internal/rag/vectorDB/sqliteDB"
	"github.com/akolanti/PortfolioChat/internal/rag/vision"
	"github.com/akolanti/PortfolioChat/pkg/logger_i"
	"github.com/qdrant/go-client/qdrant"
)

// App is the assembled retrieval stack shared by the API server and ragctl.
type App struct {
	Settings  *config.Settings
	Rag       rag.Service
	Personas  *persona.Store
	Guardrail *guardrail.Engine
	Keyword   *keyword.Retriever
	Embedder  *embedding.Service

	closers []func() error
	logger  *logger_i.Logger
}

// Options tune Build for callers that do not answer questions.
type Options struct {
	// SkipProviders builds the app without any completion provider. Chat then fails with
	// ErrProviderExhausted, document administration works as usual.
	SkipProviders bool
}

// Build wires every component from the settings. ctx bounds the lifetime of background
// clients such as the Qdrant connection.
func Build(ctx context.Context, s *config.Settings, opts Options) (*App, error) {
	app := &App{Settings: s, logger: logger_i.NewLogger("bootstrap")}

	embedder := buildEmbedder(s)
	app.Embedder = embedder

	store, cache, err := app.buildStore(ctx, s)
	if err != nil {
		return nil, err
	}

	app.Personas = persona.NewStore(s.Persona.Path, s.Persona.BackupPath)
	app.Keyword = keyword.NewRetriever(nil)
	app.Guardrail = guardrail.NewEngine(guardrail.Config{
		TripCount:  s.Guardrail.BreakerTripCount,
		SessionTTL: s.Guardrail.SessionTTL,
	})
	app.Personas.OnChange(func(p *persona.Persona) {
		app.Guardrail.UpdatePersona(p.Name, p.WorkKeywords())
		app.reloadKeywordCorpus()
	})
	if _, err := app.Personas.Load(); err != nil {
		app.logger.Warn("Persona not loaded", "path", s.Persona.Path, "error", err)
		app.reloadKeywordCorpus()
	}

	var completer rag.Completer = unavailableCompleter{}
	if !opts.SkipProviders {
		orchestrator, err := buildOrchestrator(ctx, s, app.logger)
		if err != nil {
			app.Close()
			return nil, err
		}
		completer = orchestrator
	}

	pipelineOpts := []ingest.Option{
		ingest.WithChunkOptions(chunker.Options{
			ChunkSize:    s.Ingest.ChunkSize,
			ChunkOverlap: s.Ingest.ChunkOverlap,
			MinChunkSize: s.Ingest.MinChunkSize,
		}),
		ingest.WithMaxBytes(int(s.Ingest.MaxUploadBytes)),
		ingest.WithConcurrency(s.Ingest.Concurrency),
	}
	if describer := buildDescriber(ctx, s, app.logger); describer != nil {
		pipelineOpts = append(pipelineOpts, ingest.WithDescriber(describer))
	}

	deps := rag.Dependencies{
		Embedder:  embedder,
		Store:     store,
		Keyword:   app.Keyword,
		Guardrail: app.Guardrail,
		Completer: completer,
		Ingester:  ingest.NewPipeline(embedder, store, pipelineOpts...),
		Personas:  app.Personas,
		TopK:      s.Retrieval.TopK,
		Threshold: s.Retrieval.ScoreThreshold,
		Cache:     cache,
	}
	app.Rag = rag.NewService(deps)
	return app, nil
}

// Run starts the background janitors and, when enabled, the persona file watcher. It blocks until ctx is done.
func (a *App) Run(ctx context.Context) {
	if !a.Settings.Persona.Watch {
		a.Guardrail.Run(ctx)
		return
	}
	go a.Guardrail.Run(ctx)

	personaPath, _ := filepath.Abs(a.Settings.Persona.Path)
	knowledgePath, _ := filepath.Abs(a.Settings.Persona.KnowledgePath)
	err := persona.Watch(ctx, []string{personaPath, knowledgePath}, func(path string) {
		switch path {
		case personaPath:
			if _, err := a.Personas.Load(); err != nil {
				a.logger.Error("Persona reload failed, keeping the previous one", "error", err)
			}
		case knowledgePath:
			a.reloadKeywordCorpus()
		}
	})
	if err != nil {
		a.logger.Error("File watcher stopped", "error", err)
	}
	<-ctx.Done()
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("Close failed", "error", err)
		}
	}
	a.closers = nil
}

// reloadKeywordCorpus rebuilds the keyword corpus from the knowledge file plus the active persona.
func (a *App) reloadKeywordCorpus() {
	corpus, err := keyword.LoadKnowledge(a.Settings.Persona.KnowledgePath)
	if err != nil {
		a.logger.Error("Knowledge file not loaded", "path", a.Settings.Persona.KnowledgePath, "error", err)
	}
	if p := a.Personas.Current(); p != nil {
		corpus = append(corpus, p.KnowledgeChunks()...)
	}
	a.Keyword.Reload(corpus)
	a.logger.Info("Keyword corpus loaded", "passages", a.Keyword.Size())
}

func buildEmbedder(s *config.Settings) *embedding.Service {
	var factory embedding.Factory
	switch s.Embedding.Backend {
	case "google":
		key := s.Embedding.APIKey
		if key == "" {
			key = s.Providers.Gemini.APIKey
		}
		model := s.Embedding.Model
		if model == "" || model == config.OpenAIEmbeddingModel {
			model = config.GoogleEmbeddingModel
		}
		factory = googleEmbedding.NewFactory(key, model, s.Embedding.Dimension)
	default:
		factory = openaiEmbedding.NewFactory(s.Embedding.BaseURL, s.Embedding.APIKey, s.Embedding.Model, s.Embedding.Dimension)
	}
	return embedding.NewService(factory,
		embedding.WithBatchSize(config.EmbeddingBatchSize),
		embedding.WithDimension(s.Embedding.Dimension),
	)
}

// buildStore opens the configured backend. The answer cache always lives in Qdrant, so a
// client is dialled for it even when documents are kept elsewhere.
func (a *App) buildStore(ctx context.Context, s *config.Settings) (vectorDB.Store, vectorDB.AnswerCache, error) {
	var qc *qdrant.Client
	dialQdrant := func() (*qdrant.Client, error) {
		if qc != nil {
			return qc, nil
		}
		c, err := qdrantDB.NewClient(ctx, s.VectorStore.QdrantHost, s.VectorStore.QdrantPort)
		if err != nil {
			return nil, err
		}
		qc = c
		return qc, nil
	}

	var store vectorDB.Store
	switch s.VectorStore.Backend {
	case "qdrant":
		c, err := dialQdrant()
		if err != nil {
			return nil, nil, fmt.Errorf("qdrant: %w", err)
		}
		store = qdrantDB.New(c, s.VectorStore.Collection)
	case "sqlite":
		db, err := sqliteDB.Open(ctx, s.VectorStore.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		store = db
	case "memory":
		store = memoryDB.New()
	default:
		return nil, nil, fmt.Errorf("unknown vector store backend %q", s.VectorStore.Backend)
	}
	a.logger.Info("Vector store ready", "backend", s.VectorStore.Backend)

	if !s.Retrieval.AnswerCache {
		return vectorDB.NewGuarded(store), nil, nil
	}
	c, err := dialQdrant()
	if err != nil {
		a.logger.Warn("Answer cache disabled", "error", err)
		return vectorDB.NewGuarded(store), nil, nil
	}
	return vectorDB.NewGuarded(store), qdrantDB.NewAnswerCache(c), nil
}

// buildOrchestrator creates the providers in the configured order. A provider that cannot
// be constructed is logged and left out of the chain.
func buildOrchestrator(ctx context.Context, s *config.Settings, log *logger_i.Logger) (*llm.Orchestrator, error) {
	var providers []llm.Provider
	for _, name := range s.Providers.Order {
		p, err := buildProvider(ctx, strings.ToLower(strings.TrimSpace(name)), s)
		if err != nil {
			log.Warn("Provider skipped", "provider", name, "error", err)
			continue
		}
		providers = append(providers, p)
	}
	o, err := llm.NewOrchestrator(s.Providers.Timeout, providers...)
	if err != nil {
		return nil, err
	}
	log.Info("Completion providers ready", "order", o.Providers())
	return o, nil
}

func buildProvider(ctx context.Context, name string, s *config.Settings) (llm.Provider, error) {
	switch name {
	case gemini.Name:
		return gemini.New(ctx, s.Providers.Gemini.APIKey, s.Providers.Gemini.Model)
	case "openrouter":
		or := s.Providers.OpenRouter
		return openaiCompat.New(openaiCompat.Options{
			Name:    "openrouter",
			BaseURL: or.BaseURL,
			APIKey:  or.APIKey,
			Model:   or.Model,
			Referer: or.Referer,
			Title:   or.Title,
		})
	case anthropicLLM.Name:
		return anthropicLLM.New(s.Providers.Anthropic.APIKey, s.Providers.Anthropic.Model, "")
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

func buildDescriber(ctx context.Context, s *config.Settings, log *logger_i.Logger) vision.Describer {
	if s.Providers.Gemini.APIKey == "" {
		log.Info("Image ingestion disabled, no gemini api key")
		return nil
	}
	d, err := vision.NewGemini(ctx, s.Providers.Gemini.APIKey, s.Vision.Model, s.Vision.Timeout)
	if err != nil {
		log.Warn("Image ingestion disabled", "error", err)
		return nil
	}
	return d
}

// unavailableCompleter stands in when the app is built for administration only.
type unavailableCompleter struct{}

func (unavailableCompleter) Complete(ctx context.Context, prompt llm.Prompt, stream bool) (llm.Reply, error) {
	return llm.Reply{}, fmt.Errorf("%w: built without providers", ragErrors.ErrProviderExhausted)
}

func (unavailableCompleter) Providers() []string { return nil }
