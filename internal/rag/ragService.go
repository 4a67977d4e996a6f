package rag

import (
	"context"
	"errors"
	"time"

	"github.com/akolanti/PortfolioChat/internal/config"
	"github.com/akolanti/PortfolioChat/internal/domain/commonModels"
	"github.com/akolanti/PortfolioChat/internal/domain/jobModel"
	"github.com/akolanti/PortfolioChat/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioChat/internal/metrics"
	"github.com/akolanti/PortfolioChat/internal/rag/guardrail"
	"github.com/akolanti/PortfolioChat/internal/rag/ingest"
	"github.com/akolanti/PortfolioChat/internal/rag/keyword"
	"github.com/akolanti/PortfolioChat/internal/rag/llm"
	"github.com/akolanti/PortfolioChat/internal/rag/persona"
	"github.com/akolanti/PortfolioChat/internal/rag/vectorDB"
	"github.com/akolanti/PortfolioChat/pkg/logger_i"
)

/*
OPAQUE INTERFACE PATTERN
---------------------------------------------------------
Service is the public contract handlers, the worker pool, the MCP tools and
the CLI talk to. service is the private struct holding the store, the
providers and the guardrail state. Callers never reach those directly, which
keeps them swappable for mocks in tests.
*/

// Service is the only entry point into retrieval, generation and document administration.
type Service interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)

	IngestDocument(ctx context.Context, in ingest.FileInput) (ingest.Result, error)
	// IngestBatch runs a queued batch job and records each file's outcome on the job.
	IngestBatch(ctx context.Context, job jobModel.Job) jobModel.Job
	ListDocuments(ctx context.Context) ([]commonModels.IndexedDocument, error)
	DeleteDocument(ctx context.Context, name string) (bool, error)
	ClearDocuments(ctx context.Context) error

	Persona() *persona.Persona
	UpdatePersona(ctx context.Context, p *persona.Persona) error
	RestorePersona(ctx context.Context) (*persona.Persona, error)

	Health(ctx context.Context) Health
}

// QueryEmbedder embeds a single question.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Completer is the provider failover chain.
type Completer interface {
	Complete(ctx context.Context, prompt llm.Prompt, stream bool) (llm.Reply, error)
	Providers() []string
}

// Ingester runs documents through extraction, chunking, embedding and storage.
type Ingester interface {
	IngestFile(ctx context.Context, in ingest.FileInput) (ingest.Result, error)
	IngestBatch(ctx context.Context, files []ingest.FileInput) []ingest.Outcome
}

type PersonaStore interface {
	Current() *persona.Persona
	Update(p *persona.Persona) error
	Restore() (*persona.Persona, error)
}

// Guard screens inbound messages and outbound replies.
type Guard interface {
	CheckInput(sessionID, message string) guardrail.InputVerdict
	ScreenOutput(reply string) (string, bool)
}

// Dependencies are the collaborators NewService wires together. Cache may be nil.
type Dependencies struct {
	Embedder  QueryEmbedder
	Store     vectorDB.Store
	Cache     vectorDB.AnswerCache
	Keyword   *keyword.Retriever
	Guardrail Guard
	Completer Completer
	Ingester  Ingester
	Personas  PersonaStore

	TopK      int
	Threshold float64
}

type service struct {
	embedder  QueryEmbedder
	store     vectorDB.Store
	cache     vectorDB.AnswerCache
	keyword   *keyword.Retriever
	guard     Guard
	completer Completer
	ingester  Ingester
	personas  PersonaStore
	topK      int
	threshold float64
	logger    *logger_i.Logger
}

func NewService(deps Dependencies) Service {
	s := &service{
		embedder:  deps.Embedder,
		store:     deps.Store,
		cache:     deps.Cache,
		keyword:   deps.Keyword,
		guard:     deps.Guardrail,
		completer: deps.Completer,
		ingester:  deps.Ingester,
		personas:  deps.Personas,
		topK:      deps.TopK,
		threshold: deps.Threshold,
		logger:    logger_i.NewLogger("RAG Service"),
	}
	if s.topK <= 0 {
		s.topK = config.DefaultTopK
	}
	if s.threshold <= 0 {
		s.threshold = config.DefaultScoreThreshold
	}
	if s.keyword == nil {
		s.keyword = keyword.NewRetriever(nil)
	}
	return s
}

var errPersonaMissing = errors.New("persona is not loaded")

func (s *service) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	log := s.logger.WithContext(ctx).With("session", req.SessionID)
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("chat", time.Since(start)) }()

	question, err := latestQuestion(req.Messages)
	if err != nil {
		return ChatResponse{}, err
	}

	// Guardrail: nothing below runs for a blocked message
	verdict := s.guard.CheckInput(sessionOrDefault(req.SessionID), question)
	if verdict.Blocked {
		log.Debug("Chat", "blocked", verdict.Decision)
		return ChatResponse{Source: SourceGuardrail, Decision: string(verdict.Decision), Fragments: []string{verdict.Reply}}, nil
	}

	p := s.personas.Current()
	if p == nil {
		return ChatResponse{}, errPersonaMissing
	}

	queryVector := s.executeEmbeddingStep(ctx, log, question)
	cacheable := s.cache != nil && queryVector != nil && isSingleTurn(req.Messages)

	// Cache Check
	if cacheable {
		if answer, found := s.executeCacheCheckStep(ctx, log, queryVector); found {
			return ChatResponse{Source: SourceCache, Decision: string(guardrail.DecisionAllow), Fragments: []string{answer}}, nil
		}
	}

	// Retrieval
	matches := s.executeRetrievalStep(ctx, log, question, queryVector)

	// LLM Generation
	prompt := llm.NewPrompt(persona.BuildPrompt(p, contextFrom(matches)), req.Messages)
	reply, err := s.executeLLMStep(ctx, log, prompt, req.Stream)
	if err != nil {
		return ChatResponse{}, err
	}

	// Output screening replaces the whole reply, never part of it
	text, replaced := s.guard.ScreenOutput(reply.Text())
	if replaced {
		return ChatResponse{Source: SourceGuardrail, Decision: string(guardrail.DecisionSanitized), Fragments: []string{text}, Scores: scoresOf(matches)}, nil
	}

	if cacheable {
		s.saveToCache(ctx, queryVector, text)
	}
	return ChatResponse{
		Source:    reply.Provider,
		Decision:  string(guardrail.DecisionAllow),
		Fragments: reply.Fragments,
		Scores:    scoresOf(matches),
	}, nil
}

func (s *service) IngestDocument(ctx context.Context, in ingest.FileInput) (ingest.Result, error) {
	res, err := s.ingester.IngestFile(ctx, in)
	if err != nil {
		return res, err
	}
	s.invalidateCache(ctx)
	return res, nil
}

func (s *service) IngestBatch(ctx context.Context, job jobModel.Job) jobModel.Job {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("batch_ingestion", time.Since(start)) }()
	log := s.logger.WithContext(ctx).With("JobId", job.Id)

	job.CurrentStep = jobModel.IngestProcessing
	inputs, readable := readSpooledFiles(&job, log)

	outcomes := s.ingester.IngestBatch(ctx, inputs)
	indexed := 0
	for i, o := range outcomes {
		f := &job.JobPayload.Files[readable[i]]
		if o.Err != nil {
			f.Status = jobModel.FileStatusFailed
			f.Error = o.Err.Error()
			log.Error("File ingestion failed", "file", f.DocumentName, "error", o.Err)
			continue
		}
		stats := o.Result.Stats
		f.Status = jobModel.FileStatusIndexed
		f.Stats = &stats
		indexed++
	}
	removeSpooledFiles(job, log)

	if indexed > 0 {
		s.invalidateCache(ctx)
	}
	return finishBatch(job, indexed)
}

func (s *service) ListDocuments(ctx context.Context) ([]commonModels.IndexedDocument, error) {
	docs, err := s.store.GetDocumentDetails(ctx)
	if err != nil {
		return nil, ragErrors.StoreUnavailable(err)
	}
	return docs, nil
}

func (s *service) DeleteDocument(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, ragErrors.Validation("document name is required")
	}
	deleted, err := s.store.DeleteDocument(ctx, name)
	if err != nil {
		return false, ragErrors.StoreUnavailable(err)
	}
	if deleted {
		s.invalidateCache(ctx)
	}
	s.logger.WithContext(ctx).Info("Delete document", "name", name, "deleted", deleted)
	return deleted, nil
}

func (s *service) ClearDocuments(ctx context.Context) error {
	if err := s.store.ClearAll(ctx); err != nil {
		return ragErrors.StoreUnavailable(err)
	}
	s.invalidateCache(ctx)
	s.logger.WithContext(ctx).Info("All documents cleared")
	return nil
}

func (s *service) Persona() *persona.Persona {
	return s.personas.Current()
}

func (s *service) UpdatePersona(ctx context.Context, p *persona.Persona) error {
	if err := s.personas.Update(p); err != nil {
		return err
	}
	s.invalidateCache(ctx)
	return nil
}

func (s *service) RestorePersona(ctx context.Context) (*persona.Persona, error) {
	p, err := s.personas.Restore()
	if err != nil {
		return nil, err
	}
	s.invalidateCache(ctx)
	return p, nil
}

func (s *service) Health(ctx context.Context) Health {
	h := Health{Status: "ok", Providers: s.completer.Providers(), KeywordPassages: s.keyword.Size()}
	docs, err := s.store.ListDocuments(ctx)
	if err != nil {
		s.logger.WithContext(ctx).Warn("Vector store unavailable for health check", "error", err)
		h.Status = "degraded"
		return h
	}
	h.Documents = len(docs)
	return h
}
