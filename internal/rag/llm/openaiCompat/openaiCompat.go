package openaiCompat

import (
	"context"
	"errors"
	"iter"

	"github.com/akolanti/PortfolioChat/internal/config"
	"github.com/akolanti/PortfolioChat/internal/customHttpClient"
	"github.com/akolanti/PortfolioChat/internal/domain/commonModels"
	"github.com/akolanti/PortfolioChat/internal/rag/llm"
	"github.com/akolanti/PortfolioChat/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type Options struct {
	Name    string
	BaseURL string
	APIKey  string
	Model   string
	// Referer and Title are sent as HTTP-Referer and X-Title, which OpenRouter uses for attribution.
	Referer string
	Title   string
}

// Client speaks the OpenAI chat completions protocol. OpenRouter is the default target.
type Client struct {
	name   string
	api    openai.Client
	model  string
	logger *logger_i.Logger
}

func New(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.New("openai compatible provider: api key is not set")
	}
	if opts.Name == "" {
		opts.Name = "openrouter"
	}
	if opts.BaseURL == "" {
		opts.BaseURL = config.OpenRouterBaseURL
	}
	if opts.Model == "" {
		opts.Model = config.OpenRouterModel
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithBaseURL(opts.BaseURL),
		option.WithHTTPClient(customHttpClient.GetHTTPClient()),
		option.WithMaxRetries(0),
	}
	if opts.Referer != "" {
		reqOpts = append(reqOpts, option.WithHeader("HTTP-Referer", opts.Referer))
	}
	if opts.Title != "" {
		reqOpts = append(reqOpts, option.WithHeader("X-Title", opts.Title))
	}
	log := logger_i.NewLogger("llm_" + opts.Name)
	log.Info("Chat completion client created", "model", opts.Model, "baseUrl", opts.BaseURL)
	return &Client{name: opts.Name, api: openai.NewClient(reqOpts...), model: opts.Model, logger: log}, nil
}

func (c *Client) Name() string { return c.name }

func (c *Client) params(prompt llm.Prompt) openai.ChatCompletionNewParams {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(prompt.Messages)+1)
	if prompt.System != "" {
		msgs = append(msgs, openai.SystemMessage(prompt.System))
	}
	for _, m := range prompt.Messages {
		if m.Role == commonModels.RoleAssistant {
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		} else {
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}
	return openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    msgs,
		Temperature: openai.Float(float64(config.ModelTemperature)),
		MaxTokens:   openai.Int(config.MaxOutputTokens),
	}
}

func (c *Client) Complete(ctx context.Context, prompt llm.Prompt) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, c.params(prompt))
	if err != nil {
		c.logger.WithContext(ctx).Error("Chat completion failed", "error", err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) Stream(ctx context.Context, prompt llm.Prompt) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		stream := c.api.Chat.Completions.NewStreaming(ctx, c.params(prompt))
		defer stream.Close()
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			if delta := chunk.Choices[0].Delta.Content; delta != "" {
				if !yield(delta, nil) {
					return
				}
			}
		}
		if err := stream.Err(); err != nil {
			yield("", err)
		}
	}
}
