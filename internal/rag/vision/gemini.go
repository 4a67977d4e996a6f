package vision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/PortfolioChat/internal/config"
	"github.com/akolanti/PortfolioChat/internal/customHttpClient"
	"github.com/akolanti/PortfolioChat/internal/metrics"
	"github.com/akolanti/PortfolioChat/pkg/logger_i"
	"google.golang.org/genai"
)

type geminiDescriber struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *logger_i.Logger
}

func NewGemini(ctx context.Context, apiKey, model string, timeout time.Duration) (Describer, error) {
	if apiKey == "" {
		return nil, errors.New("vision: gemini api key is not set")
	}
	if model == "" {
		model = config.GeminiModelName
	}
	if timeout <= 0 {
		timeout = config.VisionTimeout
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: customHttpClient.GetHTTPClient(),
	})
	if err != nil {
		return nil, err
	}
	return &geminiDescriber{client: c, model: model, timeout: timeout, logger: logger_i.NewLogger("vision")}, nil
}

func (g *geminiDescriber) Describe(ctx context.Context, data []byte, mimeType string) (ImageMetadata, error) {
	log := g.logger.WithContext(ctx)
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(analysisPrompt),
			genai.NewPartFromBytes(data, mimeType),
		}, genai.RoleUser),
	}
	res, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	metrics.CaptureExecutionMetrics("vision", time.Since(start))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ImageMetadata{}, fmt.Errorf("image analysis timeout after %s", g.timeout)
		}
		return ImageMetadata{}, fmt.Errorf("vision analysis failed: %w", err)
	}
	if res == nil || res.Text() == "" {
		return ImageMetadata{}, errors.New("vision analysis returned no text")
	}

	meta, ok := ParseMetadata(res.Text())
	if !ok {
		log.Warn("Vision answer was not JSON, using fallback metadata")
	}
	log.Info("Image analysed", "people", meta.People.Count, "objects", len(meta.Objects), "tags", len(meta.Tags))
	return meta, nil
}
