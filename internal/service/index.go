package service

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"

	"github.com/cloo-solutions/guardian/internal/domain"
)

// Insert statuses.
const (
	InsertStatusSuccess  = "success"
	InsertStatusNoChunks = "no_chunks"
)

const (
	// DefaultTopK is the number of chunks retrieved for a question.
	DefaultTopK = 2
	// ScrollPageSize is the page size used when reading a whole document back.
	ScrollPageSize = 100
)

// Embedder turns text into vectors.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// ChunkStore persists embedded chunks and answers similarity queries.
type ChunkStore interface {
	HasSource(ctx context.Context, sourceID string) (bool, error)
	// InsertChunks stores chunks for one source and returns how many were
	// written. Zero means the source was indexed by someone else first.
	InsertChunks(ctx context.Context, chunks []domain.DocumentChunk) (int, error)
	SearchChunks(ctx context.Context, vector []float32, k int, sourceID string) (domain.RetrievalResult, error)
	// ScrollChunks returns one page of a source's chunks and the cursor of the
	// next page, or "" when there are no more.
	ScrollChunks(ctx context.Context, sourceID, cursor string, limit int) ([]domain.DocumentChunk, string, error)
	CountChunks(ctx context.Context) (int64, error)
}

// InsertResult reports what an insert did.
type InsertResult struct {
	Status string `json:"status"`
	Added  int    `json:"added"`
}

// IndexGateway is the only path to the vector store. The embedder is built on
// first use and shared afterwards.
type IndexGateway struct {
	store    ChunkStore
	embedder func() (Embedder, error)
}

// NewIndexGateway creates a gateway. newEmbedder runs at most once.
func NewIndexGateway(store ChunkStore, newEmbedder func() (Embedder, error)) *IndexGateway {
	return &IndexGateway{
		store:    store,
		embedder: sync.OnceValues(newEmbedder),
	}
}

func (g *IndexGateway) Exists(ctx context.Context, sourceID string) (bool, error) {
	exists, err := g.store.HasSource(ctx, sourceID)
	if err != nil {
		return false, fmt.Errorf("failed to check source %q: %w", sourceID, err)
	}
	return exists, nil
}

// Insert embeds and stores chunks. An empty input touches nothing.
func (g *IndexGateway) Insert(ctx context.Context, chunks []domain.DocumentChunk) (InsertResult, error) {
	if len(chunks) == 0 {
		return InsertResult{Status: InsertStatusNoChunks}, nil
	}

	embedder, err := g.embedder()
	if err != nil {
		return InsertResult{}, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	vectors, err := embedder.GenerateEmbeddings(ctx, domain.Texts(chunks))
	if err != nil {
		return InsertResult{}, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return InsertResult{}, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	embedded := make([]domain.DocumentChunk, len(chunks))
	for i, c := range chunks {
		c.Embedding = vectors[i]
		embedded[i] = c
	}

	added, err := g.store.InsertChunks(ctx, embedded)
	if err != nil {
		return InsertResult{}, fmt.Errorf("failed to store chunks: %w", err)
	}
	if added == 0 {
		log.Printf("index: %s was indexed concurrently, nothing added", chunks[0].SourceID)
	}

	if total, err := g.store.CountChunks(ctx); err != nil {
		log.Printf("index: failed to count chunks: %v", err)
	} else {
		log.Printf("index: collection holds %d chunks", total)
	}

	return InsertResult{Status: InsertStatusSuccess, Added: added}, nil
}

// Query returns the k chunks closest to text, restricted to sourceID when it is
// not empty.
func (g *IndexGateway) Query(ctx context.Context, text string, k int, sourceID string) (domain.RetrievalResult, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	embedder, err := g.embedder()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	vector, err := embedder.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := g.store.SearchChunks(ctx, vector, k, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	return hits, nil
}

// FetchAll reads every stored chunk of sourceID, ordered by chunk index.
func (g *IndexGateway) FetchAll(ctx context.Context, sourceID string) ([]domain.DocumentChunk, error) {
	var (
		all    []domain.DocumentChunk
		cursor string
	)
	for {
		page, next, err := g.store.ScrollChunks(ctx, sourceID, cursor, ScrollPageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to read chunks of %q: %w", sourceID, err)
		}
		all = append(all, page...)
		if next == "" || len(page) == 0 {
			break
		}
		cursor = next
	}

	slices.SortStableFunc(all, func(a, b domain.DocumentChunk) int {
		return a.ChunkIndex - b.ChunkIndex
	})
	return all, nil
}

// Count returns the number of chunks across all documents.
func (g *IndexGateway) Count(ctx context.Context) (int64, error) {
	return g.store.CountChunks(ctx)
}
