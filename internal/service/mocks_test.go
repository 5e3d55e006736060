package service

import (
	"context"

	"github.com/cloo-solutions/guardian/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockEmbedder mocks the embeddings client
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

// MockChunkStore mocks the vector store
type MockChunkStore struct {
	mock.Mock
}

func (m *MockChunkStore) HasSource(ctx context.Context, sourceID string) (bool, error) {
	args := m.Called(ctx, sourceID)
	return args.Bool(0), args.Error(1)
}

func (m *MockChunkStore) InsertChunks(ctx context.Context, chunks []domain.DocumentChunk) (int, error) {
	args := m.Called(ctx, chunks)
	return args.Int(0), args.Error(1)
}

func (m *MockChunkStore) SearchChunks(ctx context.Context, vector []float32, k int, sourceID string) (domain.RetrievalResult, error) {
	args := m.Called(ctx, vector, k, sourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.RetrievalResult), args.Error(1)
}

func (m *MockChunkStore) ScrollChunks(ctx context.Context, sourceID, cursor string, limit int) ([]domain.DocumentChunk, string, error) {
	args := m.Called(ctx, sourceID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]domain.DocumentChunk), args.String(1), args.Error(2)
}

func (m *MockChunkStore) CountChunks(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockLoader mocks the PDF loader
type MockLoader struct {
	mock.Mock
}

func (m *MockLoader) Load(ctx context.Context, data []byte) ([]domain.Page, error) {
	args := m.Called(ctx, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Page), args.Error(1)
}

// MockArchiver mocks the document archive
type MockArchiver struct {
	mock.Mock
}

func (m *MockArchiver) Archive(ctx context.Context, sourceID string, data []byte) error {
	args := m.Called(ctx, sourceID, data)
	return args.Error(0)
}

// MockWebSearcher mocks the web search provider
type MockWebSearcher struct {
	mock.Mock
}

func (m *MockWebSearcher) Search(ctx context.Context, query string, numResults int) ([]domain.WebResult, error) {
	args := m.Called(ctx, query, numResults)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.WebResult), args.Error(1)
}

// embedderFactory counts how often the gateway builds its embedder.
type embedderFactory struct {
	embedder Embedder
	err      error
	calls    int
}

func (f *embedderFactory) build() (Embedder, error) {
	f.calls++
	return f.embedder, f.err
}

func fakeVectors(n int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{float32(i), 1, 0}
	}
	return out
}
