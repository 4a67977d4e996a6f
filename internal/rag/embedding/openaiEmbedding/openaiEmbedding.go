package openaiEmbedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/akolanti/PortfolioChat/internal/customHttpClient"
	"github.com/akolanti/PortfolioChat/internal/rag/embedding"
	"github.com/akolanti/PortfolioChat/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// client talks to any server exposing the OpenAI embeddings route, e.g. a local
// text-embeddings-inference container serving all-MiniLM-L6-v2.
type client struct {
	api       openai.Client
	model     string
	dimension int
	logger    *logger_i.Logger
}

func NewFactory(baseURL, apiKey, model string, dimension int) embedding.Factory {
	return func(ctx context.Context) (embedding.Embedder, error) {
		if model == "" {
			return nil, errors.New("openai embedding: model is not set")
		}
		opts := []option.RequestOption{option.WithHTTPClient(customHttpClient.GetHTTPClient())}
		if baseURL != "" {
			opts = append(opts, option.WithBaseURL(baseURL))
		}
		if apiKey == "" {
			apiKey = "unused"
		}
		opts = append(opts, option.WithAPIKey(apiKey))

		c := &client{
			api:       openai.NewClient(opts...),
			model:     model,
			dimension: dimension,
			logger:    logger_i.NewLogger("openai_embedding"),
		}
		// one warm-up call so a missing server surfaces as a load failure instead of on the first chat
		if _, err := c.embed(ctx, []string{"ping"}); err != nil {
			return nil, fmt.Errorf("openai embedding warm-up: %w", err)
		}
		c.logger.Info("Embedding client ready", "model", model, "baseUrl", baseURL)
		return c, nil
	}
}

func (c *client) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *client) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	return c.embed(ctx, texts)
}

func (c *client) embed(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(c.model),
	}
	res, err := c.api.Embeddings.New(ctx, params)
	if err != nil {
		c.logger.WithContext(ctx).Error("Embedding request failed", "error", err)
		return nil, err
	}
	if len(res.Data) != len(texts) {
		return nil, fmt.Errorf("openai embedding: got %d vectors for %d inputs", len(res.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range res.Data {
		if d.Index < 0 || int(d.Index) >= len(out) {
			return nil, fmt.Errorf("openai embedding: index %d out of range", d.Index)
		}
		out[d.Index] = toFloat32(d.Embedding)
	}
	return out, nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
