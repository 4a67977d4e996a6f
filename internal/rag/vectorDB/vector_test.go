package vectorDB

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akolanti/PortfolioChat/internal/domain/commonModels"
	"github.com/stretchr/testify/assert"
)

func TestDistanceToScore_Monotonic(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 10000; i++ {
		d1 := r.Float64() * 10
		d2 := r.Float64() * 10
		if d1 == d2 {
			continue
		}
		if d1 > d2 {
			d1, d2 = d2, d1
		}
		if DistanceToScore(d1) <= DistanceToScore(d2) {
			t.Fatalf("score not decreasing: d1=%v d2=%v", d1, d2)
		}
	}
	assert.Equal(t, 1.0, DistanceToScore(0))
}

func TestEuclideanDistance(t *testing.T) {
	assert.InDelta(t, 5.0, EuclideanDistance([]float32{0, 0}, []float32{3, 4}), 1e-9)
}

func TestRank_SkipsMismatchedDimensions(t *testing.T) {
	candidates := []commonModels.EmbeddedChunk{
		{Chunk: commonModels.Chunk{Text: "ok", Index: 0}, Vector: []float32{1, 0}},
		{Chunk: commonModels.Chunk{Text: "bad", Index: 1}, Vector: []float32{1, 0, 0}},
	}
	res := Rank([]float32{1, 0}, candidates, 5, 0)
	assert.Len(t, res, 1)
	assert.Equal(t, "ok", res[0].Text)
}

type slowStore struct {
	Store
	active  int32
	maxSeen int32
}

func (s *slowStore) UpsertDocument(ctx context.Context, name string, chunks []commonModels.EmbeddedChunk) error {
	n := atomic.AddInt32(&s.active, 1)
	for {
		m := atomic.LoadInt32(&s.maxSeen)
		if n <= m || atomic.CompareAndSwapInt32(&s.maxSeen, m, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	atomic.AddInt32(&s.active, -1)
	return nil
}

func TestGuarded_SerializesSameName(t *testing.T) {
	inner := &slowStore{}
	g := NewGuarded(inner).(*guarded)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = g.UpsertDocument(context.Background(), "same", nil)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&inner.maxSeen))
	assert.Zero(t, g.inFlight())
}

func TestGuarded_DifferentNamesRunTogether(t *testing.T) {
	inner := &slowStore{}
	g := NewGuarded(inner)

	var wg sync.WaitGroup
	for _, name := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			_ = g.UpsertDocument(context.Background(), name, nil)
		}(name)
	}
	wg.Wait()

	assert.GreaterOrEqual(t, atomic.LoadInt32(&inner.maxSeen), int32(1))
}
