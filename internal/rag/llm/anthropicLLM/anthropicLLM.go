package anthropicLLM

import (
	"context"
	"errors"
	"iter"
	"strings"

	"github.com/akolanti/PortfolioChat/internal/config"
	"github.com/akolanti/PortfolioChat/internal/customHttpClient"
	"github.com/akolanti/PortfolioChat/internal/domain/commonModels"
	"github.com/akolanti/PortfolioChat/internal/rag/llm"
	"github.com/akolanti/PortfolioChat/pkg/logger_i"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const Name = "anthropic"

type Client struct {
	api    anthropic.Client
	model  string
	logger *logger_i.Logger
}

// New builds the Anthropic provider. baseURL is only set in tests.
func New(apiKey, model, baseURL string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: api key is not set")
	}
	if model == "" {
		model = config.AnthropicModel
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(customHttpClient.GetHTTPClient()),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	log := logger_i.NewLogger("llm_anthropic")
	log.Info("Anthropic client created", "model", model)
	return &Client{api: anthropic.NewClient(opts...), model: model, logger: log}, nil
}

func (c *Client) Name() string { return Name }

func (c *Client) params(prompt llm.Prompt) anthropic.MessageNewParams {
	msgs := make([]anthropic.MessageParam, 0, len(prompt.Messages))
	for _, m := range prompt.Messages {
		if m.Role == commonModels.RoleAssistant {
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		} else {
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   config.MaxOutputTokens,
		Messages:    msgs,
		Temperature: anthropic.Float(float64(config.ModelTemperature)),
	}
	if prompt.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: prompt.System}}
	}
	return params
}

func (c *Client) Complete(ctx context.Context, prompt llm.Prompt) (string, error) {
	msg, err := c.api.Messages.New(ctx, c.params(prompt))
	if err != nil {
		c.logger.WithContext(ctx).Error("Anthropic message failed", "error", err)
		return "", err
	}
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}

func (c *Client) Stream(ctx context.Context, prompt llm.Prompt) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		stream := c.api.Messages.NewStreaming(ctx, c.params(prompt))
		defer stream.Close()
		for stream.Next() {
			event := stream.Current()
			switch ev := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
					if !yield(delta.Text, nil) {
						return
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			yield("", err)
		}
	}
}
