package qdrantDB

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/akolanti/PortfolioChat/internal/config"
	"github.com/akolanti/PortfolioChat/internal/domain/commonModels"
	"github.com/akolanti/PortfolioChat/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioChat/internal/rag/vectorDB"
	"github.com/akolanti/PortfolioChat/pkg/logger_i"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	payloadContent    = "content"
	payloadDocName    = "doc_name"
	payloadChunkIndex = "chunk_index"
	payloadStartChar  = "start_char"
	payloadEndChar    = "end_char"
	payloadPage       = "page_num"
	payloadSource     = "source"
	payloadIngestedAt = "ingested_at"
)

var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("portfolio-chat/chunks"))

// NewClient connects to qdrant over gRPC. The client is closed when ctx ends.
func NewClient(ctx context.Context, host string, port int) (*qdrant.Client, error) {
	if host == "" {
		host = config.QdrantHost
	}
	if port == 0 {
		port = config.QdrantGrpcPort
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     host,
		Port:     port,
		UseTLS:   config.QdrantUseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		return nil, ragErrors.StoreUnavailable(err)
	}
	go closeQdrant(ctx, client)
	return client, nil
}

func closeQdrant(ctx context.Context, qi *qdrant.Client) {
	<-ctx.Done()
	log := logger_i.NewLogger("Qdrant")
	log.Info("Shutting down Qdrant")
	if err := qi.Close(); err != nil {
		log.Error("could not close Qdrant: ", "error:", err)
	}
}

// PointsClient is the part of *qdrant.Client the store uses.
type PointsClient interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	DeleteCollection(ctx context.Context, collectionName string) error
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Delete(ctx context.Context, request *qdrant.DeletePoints) (*qdrant.UpdateResult, error)
	Count(ctx context.Context, request *qdrant.CountPoints) (uint64, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Scroll(ctx context.Context, request *qdrant.ScrollPoints) ([]*qdrant.RetrievedPoint, error)
}

// Store keeps one point per chunk in a single collection. The collection is created on the
// first upsert, sized from that document's vectors, with Euclidean distance.
type Store struct {
	client     PointsClient
	collection string
	logger     *logger_i.Logger

	mu    sync.Mutex
	ready bool
}

func New(client PointsClient, collection string) *Store {
	if collection == "" {
		collection = config.DefaultCollectionName
	}
	return &Store{client: client, collection: collection, logger: logger_i.NewLogger("Qdrant")}
}

func pointID(name string, index int) *qdrant.PointId {
	return qdrant.NewID(uuid.NewSHA1(pointNamespace, fmt.Appendf(nil, "%s#%d", name, index)).String())
}

func byDocument(name string) *qdrant.Filter {
	return &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatch(payloadDocName, name)}}
}

// staleChunks matches the points of name left over from a longer previous version.
func staleChunks(name string, firstStale int) *qdrant.Filter {
	return &qdrant.Filter{Must: []*qdrant.Condition{
		qdrant.NewMatch(payloadDocName, name),
		qdrant.NewRange(payloadChunkIndex, &qdrant.Range{Gte: qdrant.PtrOf(float64(firstStale))}),
	}}
}

func (s *Store) ensureCollection(ctx context.Context, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	if err := createCollection(ctx, s.client, s.collection, uint64(dim), qdrant.Distance_Euclid); err != nil {
		return err
	}
	s.ready = true
	return nil
}

func (s *Store) UpsertDocument(ctx context.Context, name string, chunks []commonModels.EmbeddedChunk) error {
	log := s.logger.WithContext(ctx)
	if len(chunks) == 0 {
		_, err := s.DeleteDocument(ctx, name)
		return err
	}
	if err := s.ensureCollection(ctx, len(chunks[0].Vector)); err != nil {
		return ragErrors.StoreUnavailable(err)
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	seen := make(map[int]struct{}, len(chunks))
	maxIndex := 0
	for _, c := range chunks {
		if _, dup := seen[c.Index]; dup {
			continue
		}
		seen[c.Index] = struct{}{}
		maxIndex = max(maxIndex, c.Index)
		created := c.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		points = append(points, &qdrant.PointStruct{
			Id:      pointID(name, c.Index),
			Vectors: qdrant.NewVectors(c.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadContent:    c.Text,
				payloadDocName:    name,
				payloadChunkIndex: c.Index,
				payloadStartChar:  c.StartChar,
				payloadEndChar:    c.EndChar,
				payloadPage:       c.Page,
				payloadSource:     c.Source,
				payloadIngestedAt: created.Unix(),
			}),
		})
	}

	// point ids are stable per (name, index): the upsert overwrites in place and a failure leaves the
	// previous version intact. Only chunks past the new end are removed afterwards.
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		log.Error("qdrant upsert failed", "document", name, "error", err)
		return ragErrors.StoreUnavailable(fmt.Errorf("qdrant upsert failed: %w", err))
	}
	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelectorFilter(staleChunks(name, maxIndex+1)),
	})
	if err != nil && !isNotFound(err) {
		log.Error("qdrant stale chunk cleanup failed", "document", name, "error", err)
		return ragErrors.StoreUnavailable(fmt.Errorf("qdrant delete stale chunks of %q: %w", name, err))
	}
	log.Debug("Document upserted", "document", name, "chunks", len(points))
	return nil
}

func (s *Store) Search(ctx context.Context, query []float32, topK int, threshold float64) ([]commonModels.ScoredChunk, error) {
	log := s.logger.WithContext(ctx)
	if topK <= 0 {
		return []commonModels.ScoredChunk{}, nil
	}
	result, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if isNotFound(err) {
		return []commonModels.ScoredChunk{}, nil
	}
	if err != nil {
		log.Error("Error querying Qdrant: ", "error:", err)
		return nil, ragErrors.StoreUnavailable(err)
	}

	matches := make([]commonModels.ScoredChunk, 0, len(result))
	for _, hit := range result {
		// with Euclid distance qdrant reports the distance itself as the hit score
		score := vectorDB.DistanceToScore(float64(hit.Score))
		if score < threshold {
			continue
		}
		matches = append(matches, commonModels.ScoredChunk{
			Text:         hit.Payload[payloadContent].GetStringValue(),
			DocumentName: hit.Payload[payloadDocName].GetStringValue(),
			ChunkIndex:   int(hit.Payload[payloadChunkIndex].GetIntegerValue()),
			Score:        score,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	log.Debug("Found matches", "count", len(matches))
	return matches, nil
}

func (s *Store) DeleteDocument(ctx context.Context, name string) (bool, error) {
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Filter:         byDocument(name),
		Exact:          qdrant.PtrOf(true),
	})
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, ragErrors.StoreUnavailable(err)
	}
	if count == 0 {
		return false, nil
	}
	if err := s.deleteByName(ctx, name); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) deleteByName(ctx context.Context, name string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelectorFilter(byDocument(name)),
	})
	if err != nil && !isNotFound(err) {
		return ragErrors.StoreUnavailable(fmt.Errorf("qdrant delete %q: %w", name, err))
	}
	return nil
}

func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.client.DeleteCollection(ctx, s.collection)
	if err != nil && !isNotFound(err) {
		return ragErrors.StoreUnavailable(err)
	}
	s.ready = false
	s.logger.WithContext(ctx).Info("Collection dropped", "collection", s.collection)
	return nil
}

func (s *Store) ListDocuments(ctx context.Context) ([]string, error) {
	details, err := s.GetDocumentDetails(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(details))
	for _, d := range details {
		names = append(names, d.Name)
	}
	return names, nil
}

// GetDocumentDetails pages through every point. Each page asks for one extra point whose id
// becomes the next offset.
func (s *Store) GetDocumentDetails(ctx context.Context) ([]commonModels.IndexedDocument, error) {
	var all []commonModels.EmbeddedChunk
	var offset *qdrant.PointId
	for {
		points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Limit:          qdrant.PtrOf(uint32(config.QdrantScrollPageSize + 1)),
			WithPayload:    qdrant.NewWithPayload(true),
			Offset:         offset,
		})
		if isNotFound(err) {
			return []commonModels.IndexedDocument{}, nil
		}
		if err != nil {
			return nil, ragErrors.StoreUnavailable(err)
		}

		page := points
		if len(points) > config.QdrantScrollPageSize {
			page = points[:config.QdrantScrollPageSize]
		}
		for _, p := range page {
			all = append(all, commonModels.EmbeddedChunk{
				DocumentName: p.Payload[payloadDocName].GetStringValue(),
				CreatedAt:    time.Unix(p.Payload[payloadIngestedAt].GetIntegerValue(), 0),
			})
		}
		if len(points) <= config.QdrantScrollPageSize {
			break
		}
		offset = points[config.QdrantScrollPageSize].Id
	}
	return vectorDB.Summarize(all), nil
}

func createCollection(ctx context.Context, client PointsClient, collectionName string, dim uint64, distance qdrant.Distance) error {
	if collectionName == "" {
		return errors.New("empty collection name")
	}
	if dim == 0 {
		return errors.New("cannot create a collection for zero length vectors")
	}
	exists, err := client.CollectionExists(ctx, collectionName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dim,
			Distance: distance,
		}),
	})
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	s, ok := status.FromError(err)
	return ok && s.Code() == codes.NotFound
}
