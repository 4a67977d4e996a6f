package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/akolanti/PortfolioChat/internal/config"
	"github.com/akolanti/PortfolioChat/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioChat/internal/metrics"
	"github.com/akolanti/PortfolioChat/pkg/logger_i"
	"golang.org/x/sync/singleflight"
)

// Embedder is implemented by the remote embedding backends. Vectors come back pooled, one per input text.
type Embedder interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
	BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Factory builds a backend. It runs at most once at a time; callers arriving during a load share its result.
type Factory func(ctx context.Context) (Embedder, error)

// Service is the process wide embedding handle.
type Service struct {
	factory   Factory
	batchSize int
	dimension int
	logger    *logger_i.Logger

	loadGroup singleflight.Group
	mu        sync.RWMutex
	backend   Embedder
}

type Option func(*Service)

func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithDimension makes the service reject vectors of any other length. Zero disables the check.
func WithDimension(d int) Option {
	return func(s *Service) { s.dimension = d }
}

func NewService(factory Factory, opts ...Option) *Service {
	s := &Service{
		factory:   factory,
		batchSize: config.EmbeddingBatchSize,
		logger:    logger_i.NewLogger("embedding"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) load(ctx context.Context) (Embedder, error) {
	s.mu.RLock()
	backend := s.backend
	s.mu.RUnlock()
	if backend != nil {
		return backend, nil
	}

	v, err, shared := s.loadGroup.Do("backend", func() (any, error) {
		s.mu.RLock()
		existing := s.backend
		s.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		start := time.Now()
		//detached so one caller hanging up does not fail the load for everyone waiting on it
		b, err := s.factory(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if b == nil {
			return nil, errors.New("embedding factory returned no backend")
		}
		s.mu.Lock()
		s.backend = b
		s.mu.Unlock()
		s.logger.Info("Embedding backend loaded", "elapsed", time.Since(start))
		return b, nil
	})
	if err != nil {
		s.logger.Error("Embedding backend failed to load", "error", err, "shared", shared)
		return nil, ragErrors.ModelUnavailable(err)
	}
	return v.(Embedder), nil
}

// Warm loads the backend ahead of the first request.
func (s *Service) Warm(ctx context.Context) error {
	_, err := s.load(ctx)
	return err
}

func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	backend, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embedding", time.Since(start)) }()

	vector, err := backend.GetEmbedding(ctx, text)
	if err != nil {
		return nil, ragErrors.ModelUnavailable(err)
	}
	if err := s.checkDimension(vector); err != nil {
		return nil, err
	}
	return Normalize(vector), nil
}

// EmbedBatch returns one normalized vector per text, in input order. Any failure discards the whole batch.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	backend, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	log := s.logger.WithContext(ctx)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embedding_batch", time.Since(start)) }()

	batches := (len(texts) + s.batchSize - 1) / s.batchSize
	out := make([][]float32, 0, len(texts))
	for b := 0; b < batches; b++ {
		lo := b * s.batchSize
		hi := min(lo+s.batchSize, len(texts))

		vectors, err := backend.BatchEmbedding(ctx, texts[lo:hi])
		if err != nil {
			return nil, ragErrors.ModelUnavailable(err)
		}
		if len(vectors) != hi-lo {
			return nil, ragErrors.ModelUnavailable(fmt.Errorf("backend returned %d vectors for %d texts", len(vectors), hi-lo))
		}
		for _, v := range vectors {
			if err := s.checkDimension(v); err != nil {
				return nil, err
			}
			out = append(out, Normalize(v))
		}
		log.Debug("Embedded batch", "batch", b+1, "of", batches, "done", hi, "total", len(texts))
	}
	return out, nil
}

func (s *Service) checkDimension(v []float32) error {
	if len(v) == 0 {
		return ragErrors.ModelUnavailable(errors.New("empty embedding"))
	}
	if s.dimension > 0 && len(v) != s.dimension {
		return ragErrors.ModelUnavailable(fmt.Errorf("embedding has %d dimensions, expected %d", len(v), s.dimension))
	}
	return nil
}

// Normalize scales v to unit L2 length. A zero vector is returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		copy(out, v)
		return out
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
