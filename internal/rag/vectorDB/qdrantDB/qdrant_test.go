package qdrantDB

import (
	"context"
	"errors"
	"testing"

	"github.com/akolanti/PortfolioChat/internal/domain/commonModels"
	"github.com/akolanti/PortfolioChat/internal/domain/ragErrors"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestPointID_StablePerChunk(t *testing.T) {
	a := pointID("resume.pdf", 3).GetUuid()
	b := pointID("resume.pdf", 3).GetUuid()
	c := pointID("resume.pdf", 4).GetUuid()

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(status.Error(codes.NotFound, "collection missing")))
	assert.False(t, isNotFound(status.Error(codes.Unavailable, "down")))
	assert.False(t, isNotFound(errors.New("plain")))
	assert.False(t, isNotFound(nil))
}

func TestByDocumentFilter(t *testing.T) {
	f := byDocument("a.txt")
	assert.Len(t, f.Must, 1)
	assert.Equal(t, payloadDocName, f.Must[0].GetField().GetKey())
	assert.Equal(t, "a.txt", f.Must[0].GetField().GetMatch().GetKeyword())
}

// MockPointsClient keeps points per id and records deletes. Filters are not evaluated.
type MockPointsClient struct {
	points  map[string]*qdrant.PointStruct
	deletes []*qdrant.DeletePoints

	OnUpsert func(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
}

func newMockPointsClient() *MockPointsClient {
	return &MockPointsClient{points: map[string]*qdrant.PointStruct{}}
}

func (m *MockPointsClient) CollectionExists(ctx context.Context, collectionName string) (bool, error) {
	return true, nil
}

func (m *MockPointsClient) CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error {
	return nil
}

func (m *MockPointsClient) DeleteCollection(ctx context.Context, collectionName string) error {
	m.points = map[string]*qdrant.PointStruct{}
	return nil
}

func (m *MockPointsClient) Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error) {
	if m.OnUpsert != nil {
		if res, err := m.OnUpsert(ctx, request); err != nil {
			return res, err
		}
	}
	for _, p := range request.Points {
		m.points[p.Id.GetUuid()] = p
	}
	return &qdrant.UpdateResult{}, nil
}

func (m *MockPointsClient) Delete(ctx context.Context, request *qdrant.DeletePoints) (*qdrant.UpdateResult, error) {
	m.deletes = append(m.deletes, request)
	return &qdrant.UpdateResult{}, nil
}

func (m *MockPointsClient) Count(ctx context.Context, request *qdrant.CountPoints) (uint64, error) {
	return uint64(len(m.points)), nil
}

func (m *MockPointsClient) Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
	return nil, nil
}

func (m *MockPointsClient) Scroll(ctx context.Context, request *qdrant.ScrollPoints) ([]*qdrant.RetrievedPoint, error) {
	return nil, nil
}

func embeddedChunks(n int) []commonModels.EmbeddedChunk {
	chunks := make([]commonModels.EmbeddedChunk, n)
	for i := range chunks {
		chunks[i] = commonModels.EmbeddedChunk{Chunk: commonModels.Chunk{Text: "chunk", Index: i}, Vector: []float32{1, 0, 0}}
	}
	return chunks
}

func TestUpsertDocument_FailedUpsertKeepsPreviousVersion(t *testing.T) {
	client := newMockPointsClient()
	store := New(client, "test")
	ctx := context.Background()
	require.NoError(t, store.UpsertDocument(ctx, "resume.pdf", embeddedChunks(3)))
	client.deletes = nil

	client.OnUpsert = func(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error) {
		return nil, errors.New("connection reset")
	}
	err := store.UpsertDocument(ctx, "resume.pdf", embeddedChunks(2))

	assert.ErrorIs(t, err, ragErrors.ErrStoreUnavailable)
	assert.Empty(t, client.deletes)
	assert.Len(t, client.points, 3)
	assert.Contains(t, client.points, pointID("resume.pdf", 2).GetUuid())
}

func TestUpsertDocument_ShrinkRemovesOnlyTrailingChunks(t *testing.T) {
	client := newMockPointsClient()
	store := New(client, "test")

	require.NoError(t, store.UpsertDocument(context.Background(), "resume.pdf", embeddedChunks(2)))

	require.Len(t, client.deletes, 1)
	must := client.deletes[0].GetPoints().GetFilter().GetMust()
	require.Len(t, must, 2)
	assert.Equal(t, "resume.pdf", must[0].GetField().GetMatch().GetKeyword())
	assert.Equal(t, payloadChunkIndex, must[1].GetField().GetKey())
	assert.Equal(t, 2.0, must[1].GetField().GetRange().GetGte())
}
