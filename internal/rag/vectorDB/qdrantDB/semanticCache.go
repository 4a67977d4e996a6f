package qdrantDB

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/PortfolioChat/internal/config"
	"github.com/akolanti/PortfolioChat/pkg/logger_i"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// AnswerCache stores screened answers next to the question embedding, in a cosine collection.
type AnswerCache struct {
	client     *qdrant.Client
	collection string
	cutoff     float32
	logger     *logger_i.Logger

	mu    sync.Mutex
	ready bool
}

func NewAnswerCache(client *qdrant.Client) *AnswerCache {
	return &AnswerCache{
		client:     client,
		collection: config.AnswerCacheCollection,
		cutoff:     config.CacheSimilarityCutoff,
		logger:     logger_i.NewLogger("semantic_cache"),
	}
}

func (c *AnswerCache) Lookup(ctx context.Context, queryVector []float32) (string, bool, error) {
	loggr := c.logger.WithContext(ctx)

	searchResult, err := c.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: c.collection,
		Query:          qdrant.NewQuery(queryVector...),
		Limit:          qdrant.PtrOf(uint64(1)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if isNotFound(err) {
		return "", false, nil
	}
	if err != nil {
		loggr.Error("Cache Query failed", "error", err)
		return "", false, err
	}
	if len(searchResult) == 0 || searchResult[0].Score < c.cutoff {
		return "", false, nil
	}

	loggr.Info("Answer cache hit", "similarity", searchResult[0].Score)
	return searchResult[0].Payload["answer"].GetStringValue(), true, nil
}

func (c *AnswerCache) Save(ctx context.Context, vector []float32, answer string) error {
	loggr := c.logger.WithContext(ctx)

	c.mu.Lock()
	if !c.ready {
		if err := createCollection(ctx, c.client, c.collection, uint64(len(vector)), qdrant.Distance_Cosine); err != nil {
			c.mu.Unlock()
			loggr.Error("Semantic cache collection creation failed", "error", err)
			return err
		}
		c.ready = true
	}
	c.mu.Unlock()

	_, err := c.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: c.collection,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(uuid.NewString()),
				Vectors: qdrant.NewVectors(vector...),
				Payload: qdrant.NewValueMap(map[string]any{
					"answer":    answer,
					"timestamp": time.Now().Unix(),
				}),
			},
		},
	})
	if err != nil {
		loggr.Error("Saving answer to cache failed", "error", err)
	}
	return err
}

// Invalidate drops every cached answer. Called after any document change.
func (c *AnswerCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.client.DeleteCollection(ctx, c.collection)
	if err != nil && !isNotFound(err) {
		return err
	}
	c.ready = false
	return nil
}
