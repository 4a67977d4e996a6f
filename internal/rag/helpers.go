package rag

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/akolanti/PortfolioChat/internal/domain/commonModels"
	"github.com/akolanti/PortfolioChat/internal/domain/jobModel"
	"github.com/akolanti/PortfolioChat/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioChat/internal/metrics"
	"github.com/akolanti/PortfolioChat/internal/rag/chunker"
	"github.com/akolanti/PortfolioChat/internal/rag/ingest"
	"github.com/akolanti/PortfolioChat/internal/rag/llm"
	"github.com/akolanti/PortfolioChat/pkg/logger_i"
)

const (
	SourceGuardrail = "guardrail"
	SourceCache     = "cache"

	anonymousSession = "anonymous"
	cacheSaveTimeout = 5 * time.Second
)

type ChatRequest struct {
	// SessionID keys the guardrail breaker: the chat id when there is one, else the client address.
	SessionID string
	Messages  []commonModels.ChatMessage
	Stream    bool
}

// ChatResponse carries the reply as fragments in arrival order. Source names the layer
// that produced it: a provider name, "guardrail" or "cache".
type ChatResponse struct {
	Source    string
	Decision  string
	Fragments []string
	Scores    []float64
}

func (r ChatResponse) Text() string {
	return strings.Join(r.Fragments, "")
}

type Health struct {
	Status          string   `json:"status"`
	Documents       int      `json:"documents"`
	KeywordPassages int      `json:"keyword_passages"`
	Providers       []string `json:"providers"`
}

func latestQuestion(history []commonModels.ChatMessage) (string, error) {
	last, ok := commonModels.LastUserMessage(history)
	if !ok || strings.TrimSpace(last.Content) == "" {
		return "", ragErrors.Validation("message is required")
	}
	return strings.TrimSpace(last.Content), nil
}

func sessionOrDefault(id string) string {
	if id = strings.TrimSpace(id); id == "" {
		return anonymousSession
	}
	return id
}

// isSingleTurn reports a conversation with exactly one user message. Only those answers are
// independent of history and safe to share through the answer cache.
func isSingleTurn(history []commonModels.ChatMessage) bool {
	users := 0
	for _, m := range history {
		if m.Role == commonModels.RoleUser && strings.TrimSpace(m.Content) != "" {
			users++
		}
	}
	return users == 1
}

func contextFrom(matches []commonModels.ScoredChunk) string {
	texts := make([]string, len(matches))
	for i, m := range matches {
		texts[i] = m.Text
	}
	return chunker.FormatForContext(texts)
}

func scoresOf(matches []commonModels.ScoredChunk) []float64 {
	scores := make([]float64, len(matches))
	for i, m := range matches {
		scores[i] = m.Score
	}
	return scores
}

// executeEmbeddingStep returns nil when the question could not be embedded; retrieval then
// goes straight to keyword matching.
func (s *service) executeEmbeddingStep(ctx context.Context, log *logger_i.Logger, question string) []float32 {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("query_embedding", time.Since(start)) }()

	v, err := s.embedder.Embed(ctx, question)
	if err != nil {
		log.Warn("Query embedding failed", "error", err)
		return nil
	}
	return v
}

func (s *service) executeCacheCheckStep(ctx context.Context, log *logger_i.Logger, queryVector []float32) (string, bool) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("cache_lookup", time.Since(start)) }()

	ans, found, err := s.cache.Lookup(ctx, queryVector)
	if err != nil {
		log.Warn("Answer cache lookup failed", "error", err)
		return "", false
	}
	if found {
		log.Debug("Answer cache hit")
	}
	return ans, found
}

// executeRetrievalStep always tries the vector store first. Keyword matching is only the
// safety net for an unusable query vector, a store error or an empty result.
func (s *service) executeRetrievalStep(ctx context.Context, log *logger_i.Logger, question string, queryVector []float32) []commonModels.ScoredChunk {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("retrieval", time.Since(start)) }()

	reason := "embedding_unavailable"
	if queryVector != nil {
		matches, err := s.store.Search(ctx, queryVector, s.topK, s.threshold)
		switch {
		case err != nil:
			log.Warn("Vector search failed, using keyword retrieval", "error", ragErrors.StoreUnavailable(err))
			reason = "store_error"
		case len(matches) == 0:
			reason = "no_results"
		default:
			log.Debug("Vector search", "matches", len(matches))
			return matches
		}
	}

	metrics.IncrementRetrievalFallback(reason)
	matches := s.keyword.FindRelevantChunks(question, s.topK)
	log.Debug("Keyword retrieval", "reason", reason, "matches", len(matches))
	return matches
}

func (s *service) executeLLMStep(ctx context.Context, log *logger_i.Logger, prompt llm.Prompt, stream bool) (llm.Reply, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_generation", time.Since(start)) }()

	reply, err := s.completer.Complete(ctx, prompt, stream)
	if err != nil {
		if ctx.Err() != nil {
			return llm.Reply{}, ctx.Err()
		}
		log.Error("Completion failed", "error", err)
		return llm.Reply{}, err
	}
	return reply, nil
}

// saveToCache runs in the background so the caller gets the reply without waiting on the write.
func (s *service) saveToCache(ctx context.Context, queryVector []float32, answer string) {
	go func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheSaveTimeout)
		defer cancel()
		if err := s.cache.Save(sctx, queryVector, answer); err != nil {
			s.logger.WithContext(ctx).Error("Failed to save to cache", "error", err)
		}
	}()
}

// invalidateCache drops cached answers after any change to what they could have been grounded on.
func (s *service) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.WithContext(ctx).Error("Failed to invalidate answer cache", "error", err)
	}
}

// readSpooledFiles loads every pending upload of the job. Unreadable files are marked failed
// in place; the returned indexes map each input back to its job entry.
func readSpooledFiles(job *jobModel.Job, log *logger_i.Logger) ([]ingest.FileInput, []int) {
	var inputs []ingest.FileInput
	var indexes []int
	for i := range job.JobPayload.Files {
		f := &job.JobPayload.Files[i]
		data, err := os.ReadFile(f.Path)
		if err != nil {
			log.Error("Error reading spooled file", "file", f.DocumentName, "error", err)
			f.Status = jobModel.FileStatusFailed
			f.Error = "upload could not be read"
			continue
		}
		inputs = append(inputs, ingest.FileInput{Name: f.DocumentName, MimeType: f.MimeType, Data: data})
		indexes = append(indexes, i)
	}
	return inputs, indexes
}

func removeSpooledFiles(job jobModel.Job, log *logger_i.Logger) {
	for _, f := range job.JobPayload.Files {
		if f.Path == "" {
			continue
		}
		if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
			log.Error("Error removing file", "path", f.Path, "error", err)
		}
	}
}

func finishBatch(job jobModel.Job, indexed int) jobModel.Job {
	job.CurrentStep = jobModel.Complete
	job.EndTime = time.Now()
	switch {
	case indexed == len(job.JobPayload.Files):
		job.Status = jobModel.JobStatusComplete
	case indexed == 0:
		job.Status = jobModel.JobStatusError
		job.CurrentStep = jobModel.Error
		job.Error = jobModel.JobError{
			Code:    http.StatusUnprocessableEntity,
			Message: "no file in the batch could be ingested",
			Retry:   false,
		}
	default:
		job.Status = jobModel.JobStatusPartial
	}
	return job
}
