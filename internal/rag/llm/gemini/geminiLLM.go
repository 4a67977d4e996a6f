package gemini

import (
	"context"
	"errors"
	"iter"

	"github.com/akolanti/PortfolioChat/internal/config"
	"github.com/akolanti/PortfolioChat/internal/customHttpClient"
	"github.com/akolanti/PortfolioChat/internal/domain/commonModels"
	"github.com/akolanti/PortfolioChat/internal/rag/llm"
	"github.com/akolanti/PortfolioChat/pkg/logger_i"
	"google.golang.org/genai"
)

const Name = "gemini"

type Client struct {
	client    *genai.Client
	modelName string
	logger    *logger_i.Logger
}

// New creates the Gemini provider. It streams through GenerateContentStream.
func New(ctx context.Context, apiKey, modelName string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: api key is not set")
	}
	if modelName == "" {
		modelName = config.GeminiModelName
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: customHttpClient.GetHTTPClient(),
	})
	if err != nil {
		return nil, err
	}
	log := logger_i.NewLogger("llm_gemini")
	log.Info("Gemini client created", "model", modelName)
	return &Client{client: c, modelName: modelName, logger: log}, nil
}

func (c *Client) Name() string { return Name }

func (c *Client) Complete(ctx context.Context, prompt llm.Prompt) (string, error) {
	result, err := c.client.Models.GenerateContent(ctx, c.modelName, contents(prompt), contentConfig(prompt))
	if err != nil {
		c.logger.WithContext(ctx).Error("Gemini generate failed", "error", err)
		return "", err
	}
	if result == nil {
		return "", errors.New("gemini: nil response")
	}
	return result.Text(), nil
}

func (c *Client) Stream(ctx context.Context, prompt llm.Prompt) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for result, err := range c.client.Models.GenerateContentStream(ctx, c.modelName, contents(prompt), contentConfig(prompt)) {
			if err != nil {
				yield("", err)
				return
			}
			if result == nil {
				continue
			}
			if !yield(result.Text(), nil) {
				return
			}
		}
	}
}

func contentConfig(prompt llm.Prompt) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(config.ModelTemperature),
		MaxOutputTokens: config.MaxOutputTokens,
	}
	if prompt.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(prompt.System, genai.RoleUser)
	}
	return cfg
}

func contents(prompt llm.Prompt) []*genai.Content {
	out := make([]*genai.Content, 0, len(prompt.Messages))
	for _, m := range prompt.Messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == commonModels.RoleAssistant {
			role = genai.RoleModel
		}
		out = append(out, genai.NewContentFromText(m.Content, role))
	}
	return out
}
