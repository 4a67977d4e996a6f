package googleEmbedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/PortfolioChat/internal/config"
	"github.com/akolanti/PortfolioChat/internal/customHttpClient"
	"github.com/akolanti/PortfolioChat/internal/rag/embedding"
	"github.com/akolanti/PortfolioChat/pkg/logger_i"
	"google.golang.org/genai"
)

type client struct {
	genAi      *genai.Client
	model      string
	dimension  int32
	retryDelay time.Duration
	logger     *logger_i.Logger
}

// NewFactory returns an embedding.Factory that builds a Gemini embedding client on first use.
func NewFactory(apiKey, model string, dimension int) embedding.Factory {
	return func(ctx context.Context) (embedding.Embedder, error) {
		if apiKey == "" {
			return nil, errors.New("google embedding: api key is not set")
		}
		c, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:     apiKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: customHttpClient.GetHTTPClient(),
		})
		if err != nil {
			return nil, fmt.Errorf("google embedding client: %w", err)
		}
		log := logger_i.NewLogger("google_embedding")
		log.Info("Google Embedding client created", "model", model)
		return &client{
			genAi:      c,
			model:      model,
			dimension:  int32(dimension),
			retryDelay: config.EmbeddingRetryDelay,
			logger:     log,
		}, nil
	}
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	res, err := c.doCall(ctx, genai.Text(query), "RETRIEVAL_QUERY")
	if err != nil {
		return nil, err
	}
	if len(res.Embeddings) == 0 {
		return nil, errors.New("google embedding: empty response")
	}
	return res.Embeddings[0].Values, nil
}

func (c *client) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	res, err := c.doCall(ctx, getContent(chunks), "RETRIEVAL_DOCUMENT")
	if err != nil {
		return nil, err
	}
	results := make([][]float32, 0, len(res.Embeddings))
	for _, r := range res.Embeddings {
		if r == nil {
			return nil, errors.New("google embedding: missing vector in batch response")
		}
		results = append(results, r.Values)
	}
	return results, nil
}

// doCall retries once after a rate limit response.
func (c *client) doCall(ctx context.Context, contents []*genai.Content, taskType string) (*genai.EmbedContentResponse, error) {
	log := c.logger.WithContext(ctx)
	cfg := &genai.EmbedContentConfig{TaskType: taskType}
	if c.dimension > 0 {
		cfg.OutputDimensionality = &c.dimension
	}

	res, err := c.genAi.Models.EmbedContent(ctx, c.model, contents, cfg)
	if err != nil && doRetry(err, log) {
		log.Debug("Retrying embedding call", "delay", c.retryDelay)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.retryDelay):
		}
		res, err = c.genAi.Models.EmbedContent(ctx, c.model, contents, cfg)
	}
	if err != nil {
		log.Error("Error getting Embeddings from Google", "error", err)
		return nil, err
	}
	if res == nil {
		return nil, errors.New("google embedding: nil response")
	}
	return res, nil
}
