package embedding

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akolanti/PortfolioChat/internal/domain/ragErrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockEmbedder struct {
	OnGetEmbedding   func(ctx context.Context, text string) ([]float32, error)
	OnBatchEmbedding func(ctx context.Context, texts []string) ([][]float32, error)
}

func (m *MockEmbedder) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	if m.OnGetEmbedding != nil {
		return m.OnGetEmbedding(ctx, text)
	}
	return []float32{3, 4}, nil
}

func (m *MockEmbedder) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if m.OnBatchEmbedding != nil {
		return m.OnBatchEmbedding(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i + 1), 0}
	}
	return out, nil
}

func TestService_InitOnceUnderConcurrency(t *testing.T) {
	var loads int32
	release := make(chan struct{})
	svc := NewService(func(ctx context.Context) (Embedder, error) {
		atomic.AddInt32(&loads, 1)
		<-release
		return &MockEmbedder{}, nil
	})

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Embed(context.Background(), "hello")
			errs <- err
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
}

func TestService_FailedInitIsRetried(t *testing.T) {
	var attempts int32
	svc := NewService(func(ctx context.Context) (Embedder, error) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			return nil, errors.New("model download failed")
		}
		return &MockEmbedder{}, nil
	})

	_, err := svc.Embed(context.Background(), "x")
	require.ErrorIs(t, err, ragErrors.ErrModelUnavailable)

	_, err = svc.Embed(context.Background(), "x")
	require.NoError(t, err)
}

func TestService_EmbedNormalizes(t *testing.T) {
	svc := NewService(func(ctx context.Context) (Embedder, error) { return &MockEmbedder{}, nil })

	v, err := svc.Embed(context.Background(), "x")

	require.NoError(t, err)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)
}

func TestService_EmbedBatchKeepsOrderAcrossBatches(t *testing.T) {
	var calls int32
	mock := &MockEmbedder{
		OnBatchEmbedding: func(ctx context.Context, texts []string) ([][]float32, error) {
			atomic.AddInt32(&calls, 1)
			out := make([][]float32, len(texts))
			for i, text := range texts {
				out[i] = []float32{float32(len(text)), 1}
			}
			return out, nil
		},
	}
	svc := NewService(func(ctx context.Context) (Embedder, error) { return mock, nil }, WithBatchSize(2))

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vectors, err := svc.EmbedBatch(context.Background(), texts)

	require.NoError(t, err)
	require.Len(t, vectors, len(texts))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	for i, v := range vectors {
		want := float64(len(texts[i])) / math.Sqrt(float64(len(texts[i])*len(texts[i])+1))
		assert.InDelta(t, want, v[0], 1e-6)
	}
}

func TestService_EmbedBatchFailureReturnsNothing(t *testing.T) {
	var calls int32
	mock := &MockEmbedder{
		OnBatchEmbedding: func(ctx context.Context, texts []string) ([][]float32, error) {
			if atomic.AddInt32(&calls, 1) == 2 {
				return nil, errors.New("inference failed")
			}
			return [][]float32{{1}, {1}}[:len(texts)], nil
		},
	}
	svc := NewService(func(ctx context.Context) (Embedder, error) { return mock, nil }, WithBatchSize(2))

	vectors, err := svc.EmbedBatch(context.Background(), []string{"a", "b", "c", "d"})

	assert.Nil(t, vectors)
	assert.ErrorIs(t, err, ragErrors.ErrModelUnavailable)
}

func TestService_DimensionMismatch(t *testing.T) {
	svc := NewService(func(ctx context.Context) (Embedder, error) { return &MockEmbedder{}, nil }, WithDimension(384))

	_, err := svc.Embed(context.Background(), "x")

	assert.ErrorIs(t, err, ragErrors.ErrModelUnavailable)
}

func TestNormalize_ZeroVector(t *testing.T) {
	assert.Equal(t, []float32{0, 0}, Normalize([]float32{0, 0}))
}
