package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/akolanti/PortfolioChat/internal/config"
	"github.com/akolanti/PortfolioChat/internal/domain/commonModels"
	"github.com/akolanti/PortfolioChat/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioChat/internal/metrics"
	"github.com/akolanti/PortfolioChat/internal/rag/chunker"
	"github.com/akolanti/PortfolioChat/internal/rag/vectorDB"
	"github.com/akolanti/PortfolioChat/internal/rag/vision"
	"github.com/akolanti/PortfolioChat/pkg/logger_i"
)

// Embedder turns chunk texts into vectors, one per text and in order.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type FileInput struct {
	Name     string
	MimeType string
	Data     []byte
}

type Result struct {
	DocumentName string                   `json:"document_name"`
	DocType      commonModels.DocType     `json:"doc_type"`
	Stats        commonModels.IngestStats `json:"stats"`
	Image        *vision.ImageMetadata    `json:"image_metadata,omitempty"`
}

// Pipeline runs extract, chunk, embed and upsert for one document at a time.
type Pipeline struct {
	embedder    Embedder
	store       vectorDB.Store
	describer   vision.Describer
	chunkOpts   chunker.Options
	maxBytes    int
	pageTimeout time.Duration
	concurrency int
	now         func() time.Time
	logger      *logger_i.Logger
}

type Option func(*Pipeline)

// WithDescriber enables image uploads.
func WithDescriber(d vision.Describer) Option {
	return func(p *Pipeline) { p.describer = d }
}

func WithChunkOptions(opts chunker.Options) Option {
	return func(p *Pipeline) { p.chunkOpts = opts }
}

func WithMaxBytes(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxBytes = n
		}
	}
}

func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func NewPipeline(embedder Embedder, store vectorDB.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		embedder:    embedder,
		store:       store,
		chunkOpts:   chunker.DefaultOptions(),
		maxBytes:    config.MaxUploadBytes,
		pageTimeout: config.PageExtractTimeout,
		concurrency: config.BatchIngestConcurrency,
		now:         time.Now,
		logger:      logger_i.NewLogger("Document Ingestion"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IngestFile replaces whatever was stored under the file's name with its freshly embedded chunks.
// Nothing is written unless every chunk embedded successfully.
func (p *Pipeline) IngestFile(ctx context.Context, in FileInput) (Result, error) {
	log := p.logger.WithContext(ctx)
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("ingest", time.Since(start)) }()

	name := documentName(in.Name)
	if name == "" || name == "." || name == "/" {
		return Result{}, ragErrors.Validation("file name is required")
	}
	if len(in.Data) == 0 {
		return Result{}, ragErrors.Validation("%s is empty", name)
	}
	if len(in.Data) > p.maxBytes {
		return Result{}, ragErrors.Validation("%s is %d bytes, limit is %d", name, len(in.Data), p.maxBytes)
	}

	docType, mimeType, ext := classify(in.Data, in.MimeType)
	log.Debug("Processing document", "name", name, "type", docType, "mime", mimeType)

	var (
		pages []rawPage
		image *vision.ImageMetadata
		err   error
	)
	switch docType {
	case commonModels.PDF:
		pages, err = p.extractPDF(in.Data)
	case commonModels.DOCX:
		pages, err = p.extractDocument(in.Data, ext)
	case commonModels.IMAGE:
		pages, image, err = p.extractImage(ctx, in.Data, mimeType, name)
	case commonModels.TXT:
		pages = []rawPage{{Number: 1, Content: string(in.Data)}}
	default:
		return Result{}, ragErrors.Validation("unsupported file type %s", mimeType)
	}
	if err != nil {
		log.Error("Error extracting document content", "name", name, "error", err)
		return Result{}, fmt.Errorf("extract %s: %w", name, err)
	}

	text, starts, numbers := joinPages(pages)
	chunks := chunker.Chunk(text, p.chunkOpts)
	if len(chunks) == 0 {
		return Result{}, ragErrors.Validation("%s has no extractable text", name)
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		chunks[i].Page = pageAt(chunks[i].StartChar, starts, numbers)
		chunks[i].Source = name
		texts[i] = chunks[i].Text
	}

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		log.Error("Error embedding document", "name", name, "error", err)
		return Result{}, err
	}

	createdAt := p.now().UTC()
	embedded := make([]commonModels.EmbeddedChunk, len(chunks))
	for i, c := range chunks {
		embedded[i] = commonModels.EmbeddedChunk{
			Chunk:        c,
			Vector:       vectors[i],
			DocumentName: name,
			CreatedAt:    createdAt,
		}
	}
	if err := p.store.UpsertDocument(ctx, name, embedded); err != nil {
		log.Error("Error storing document", "name", name, "error", err)
		return Result{}, err
	}

	res := Result{
		DocumentName: name,
		DocType:      docType,
		Stats:        computeStats(text, len(starts), chunks),
		Image:        image,
	}
	if image != nil {
		res.Stats.PeopleCount = image.People.Count
		res.Stats.ObjectCount = len(image.Objects)
		res.Stats.Tags = image.Tags
	}
	log.Info("Document ingested", "name", name, "chunks", res.Stats.Chunks, "tokens", res.Stats.TotalTokens)
	return res, nil
}
