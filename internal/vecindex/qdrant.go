package vecindex

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantIndex is a Qdrant-backed Searcher, for deployments where the
// catalog embeddings live in an external vector database instead of a
// local index file. Points carry the catalog ordinal as their ID, so
// search results map back to store positions directly.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	dim        int
}

// NewQdrantIndex connects to Qdrant at url ("host:port", gRPC port).
func NewQdrantIndex(url, collection string, dim int) (*QdrantIndex, error) {
	host, portStr, err := net.SplitHostPort(url)
	if err != nil {
		// If no port specified, assume default
		host = url
		portStr = "6334"
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port in qdrant url: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &QdrantIndex{client: client, collection: collection, dim: dim}, nil
}

// Close closes the client connection.
func (q *QdrantIndex) Close() error {
	return q.client.Close()
}

// Recreate drops and recreates the collection. Offline operation used by
// the index builder before a bulk upsert.
func (q *QdrantIndex) Recreate(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		if err := q.client.DeleteCollection(ctx, q.collection); err != nil {
			return fmt.Errorf("failed to delete collection: %w", err)
		}
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// Upsert writes item vectors keyed by ordinal. Offline operation.
func (q *QdrantIndex) Upsert(ctx context.Context, vectors [][]float32) error {
	if len(vectors) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(vectors))
	for i, v := range vectors {
		if len(v) != q.dim {
			return fmt.Errorf("%w: ordinal %d has dim %d, want %d", ErrDimensionMismatch, i, len(v), q.dim)
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(i)),
			Vectors: qdrant.NewVectors(v...),
		}
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

// Search queries the collection and returns hits ordered by descending
// score, ties broken by ascending ordinal.
func (q *QdrantIndex) Search(ctx context.Context, vector []float32, n int) ([]Hit, error) {
	if len(vector) != q.dim {
		return nil, fmt.Errorf("%w: query has dim %d, collection has dim %d", ErrDimensionMismatch, len(vector), q.dim)
	}
	if n <= 0 {
		return nil, fmt.Errorf("search size must be positive, got %d", n)
	}

	response, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(n)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	hits := make([]Hit, 0, len(response))
	for _, point := range response {
		hits = append(hits, Hit{
			Ordinal: int(point.Id.GetNum()),
			Score:   point.Score,
		})
	}

	// Qdrant orders by score but leaves equal-score order unspecified.
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Ordinal < hits[j].Ordinal
	})

	return hits, nil
}

// Ensure QdrantIndex implements Searcher.
var _ Searcher = (*QdrantIndex)(nil)
