package repository

import (
	"context"
	"math"
	"slices"
	"sync"

	"github.com/cloo-solutions/guardian/internal/domain"
	"github.com/cloo-solutions/guardian/internal/pagination"
)

// MemoryChunkRepository keeps chunks in process memory and searches them by
// brute-force cosine similarity. Contents are lost on restart.
type MemoryChunkRepository struct {
	mu      sync.RWMutex
	sources map[string][]domain.DocumentChunk
	order   []string
}

func NewMemoryChunkRepository() *MemoryChunkRepository {
	return &MemoryChunkRepository{sources: map[string][]domain.DocumentChunk{}}
}

func (r *MemoryChunkRepository) HasSource(_ context.Context, sourceID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sources[sourceID]
	return ok, nil
}

func (r *MemoryChunkRepository) InsertChunks(_ context.Context, chunks []domain.DocumentChunk) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending := map[string][]domain.DocumentChunk{}
	for _, c := range chunks {
		if _, ok := r.sources[c.SourceID]; ok {
			continue
		}
		pending[c.SourceID] = append(pending[c.SourceID], c)
	}

	added := 0
	for sourceID, list := range pending {
		slices.SortStableFunc(list, func(a, b domain.DocumentChunk) int { return a.ChunkIndex - b.ChunkIndex })
		r.sources[sourceID] = list
		r.order = append(r.order, sourceID)
		added += len(list)
	}
	return added, nil
}

func (r *MemoryChunkRepository) SearchChunks(_ context.Context, vector []float32, k int, sourceID string) (domain.RetrievalResult, error) {
	if k <= 0 {
		k = 2
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	results := domain.RetrievalResult{}
	for _, id := range r.order {
		if sourceID != "" && id != sourceID {
			continue
		}
		for _, c := range r.sources[id] {
			results = append(results, domain.RetrievalHit{
				Text:       c.Text,
				PageNumber: c.PageNumber,
				SourceID:   c.SourceID,
				Score:      cosine(vector, c.Embedding),
			})
		}
	}

	slices.SortStableFunc(results, func(a, b domain.RetrievalHit) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (r *MemoryChunkRepository) ScrollChunks(_ context.Context, sourceID, cursor string, limit int) ([]domain.DocumentChunk, string, error) {
	if limit <= 0 {
		limit = 100
	}

	after, err := pagination.After(cursor, sourceID)
	if err != nil {
		return nil, "", err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var page []domain.DocumentChunk
	for _, c := range r.sources[sourceID] {
		if c.ChunkIndex <= after {
			continue
		}
		c.Embedding = nil
		page = append(page, c)
		if len(page) == limit {
			break
		}
	}

	next := pagination.CreateNextCursor(page, limit, sourceID, func(c domain.DocumentChunk) int {
		return c.ChunkIndex
	})
	return page, next, nil
}

func (r *MemoryChunkRepository) CountChunks(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, list := range r.sources {
		n += int64(len(list))
	}
	return n, nil
}

func cosine(a, b []float32) float32 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
