// Package qdrant stores document chunks in a Qdrant collection through its
// REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloo-solutions/guardian/internal/domain"
	"github.com/google/uuid"
)

const (
	DefaultCollection = "guardian_policies"
	DefaultDimension  = 768
	sourceKey         = "metadata.source"
)

// Config configures the Qdrant store.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Dimension  int
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Store is a Qdrant-backed chunk store using cosine distance.
type Store struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	client     *http.Client
}

func NewStore(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	collection := cfg.Collection
	if collection == "" {
		collection = DefaultCollection
	}
	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Store{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: collection,
		dimension:  dimension,
		client:     client,
	}
}

// Payload is the stored form of a chunk.
type Payload struct {
	PageContent string          `json:"page_content"`
	Metadata    PayloadMetadata `json:"metadata"`
}

type PayloadMetadata struct {
	Source     string `json:"source"`
	PageNumber int    `json:"page_number"`
	FileType   string `json:"file_type"`
	ChunkIndex int    `json:"chunk_index"`
}

type point struct {
	ID      string    `json:"id"`
	Vector  []float32 `json:"vector,omitempty"`
	Payload Payload   `json:"payload"`
}

type scoredPoint struct {
	ID      any     `json:"id"`
	Score   float32 `json:"score"`
	Payload Payload `json:"payload"`
}

// PointID derives a stable point id from the chunk's position in its source, so
// re-inserting the same chunk overwrites it.
func PointID(sourceID string, chunkIndex int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, fmt.Appendf(nil, "%s:%d", sourceID, chunkIndex)).String()
}

// EnsureCollection creates the collection and its source index if missing.
func (s *Store) EnsureCollection(ctx context.Context) error {
	var exists struct {
		Result struct {
			Exists bool `json:"exists"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodGet, s.collectionPath("/exists"), nil, &exists); err != nil {
		return err
	}
	if exists.Result.Exists {
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     s.dimension,
			"distance": "Cosine",
		},
		"hnsw_config": map[string]any{
			"m":                   16,
			"ef_construct":        100,
			"full_scan_threshold": 10000,
		},
	}
	if err := s.do(ctx, http.MethodPut, s.collectionPath(""), body, nil); err != nil {
		return err
	}

	index := map[string]any{"field_name": sourceKey, "field_schema": "keyword"}
	return s.do(ctx, http.MethodPut, s.collectionPath("/index?wait=true"), index, nil)
}

// HasSource reports whether any point belongs to sourceID. A missing
// collection holds no sources.
func (s *Store) HasSource(ctx context.Context, sourceID string) (bool, error) {
	n, err := s.count(ctx, sourceFilter(sourceID))
	if IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// InsertChunks upserts chunks. Point ids are derived from source and chunk
// index, so a duplicate insert replaces points instead of adding new ones.
func (s *Store) InsertChunks(ctx context.Context, chunks []domain.DocumentChunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	points := make([]point, len(chunks))
	for i, c := range chunks {
		if len(c.Embedding) != s.dimension {
			return 0, fmt.Errorf("chunk %d of %q has %d dimensions, expected %d", c.ChunkIndex, c.SourceID, len(c.Embedding), s.dimension)
		}
		points[i] = point{
			ID:     PointID(c.SourceID, c.ChunkIndex),
			Vector: c.Embedding,
			Payload: Payload{
				PageContent: c.Text,
				Metadata: PayloadMetadata{
					Source:     c.SourceID,
					PageNumber: c.PageNumber,
					FileType:   c.FileType,
					ChunkIndex: c.ChunkIndex,
				},
			},
		}
	}

	body := map[string]any{"points": points}
	if err := s.do(ctx, http.MethodPut, s.collectionPath("/points?wait=true"), body, nil); err != nil {
		return 0, err
	}
	return len(points), nil
}

func (s *Store) SearchChunks(ctx context.Context, vector []float32, k int, sourceID string) (domain.RetrievalResult, error) {
	if k <= 0 {
		k = 2
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	if sourceID != "" {
		req["filter"] = sourceFilter(sourceID)
	}

	var resp struct {
		Result []scoredPoint `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionPath("/points/search"), req, &resp); err != nil {
		return nil, err
	}

	results := make(domain.RetrievalResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, domain.RetrievalHit{
			Text:       r.Payload.PageContent,
			PageNumber: r.Payload.Metadata.PageNumber,
			SourceID:   r.Payload.Metadata.Source,
			Score:      r.Score,
		})
	}
	return results, nil
}

// ScrollChunks returns one page of a source's points. The cursor is Qdrant's
// next_page_offset, passed through as a string.
func (s *Store) ScrollChunks(ctx context.Context, sourceID, cursor string, limit int) ([]domain.DocumentChunk, string, error) {
	if limit <= 0 {
		limit = 100
	}
	req := map[string]any{
		"filter":       sourceFilter(sourceID),
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}
	if cursor != "" {
		req["offset"] = cursor
	}

	var resp struct {
		Result struct {
			Points         []scoredPoint `json:"points"`
			NextPageOffset any           `json:"next_page_offset"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionPath("/points/scroll"), req, &resp); err != nil {
		return nil, "", err
	}

	chunks := make([]domain.DocumentChunk, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		chunks = append(chunks, domain.DocumentChunk{
			Text:       p.Payload.PageContent,
			SourceID:   p.Payload.Metadata.Source,
			PageNumber: p.Payload.Metadata.PageNumber,
			FileType:   p.Payload.Metadata.FileType,
			ChunkIndex: p.Payload.Metadata.ChunkIndex,
		})
	}

	next := ""
	if resp.Result.NextPageOffset != nil {
		next = fmt.Sprint(resp.Result.NextPageOffset)
	}
	return chunks, next, nil
}

func (s *Store) CountChunks(ctx context.Context) (int64, error) {
	return s.count(ctx, nil)
}

func (s *Store) count(ctx context.Context, filter map[string]any) (int64, error) {
	req := map[string]any{"exact": true}
	if filter != nil {
		req["filter"] = filter
	}
	var resp struct {
		Result struct {
			Count int64 `json:"count"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionPath("/points/count"), req, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

func sourceFilter(sourceID string) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{"key": sourceKey, "match": map[string]any{"value": sourceID}},
		},
	}
}

func (s *Store) collectionPath(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", s.url, s.collection, suffix)
}

// APIError is a non-2xx response from Qdrant.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("qdrant %s %s failed: %d %s", e.Method, e.URL, e.StatusCode, e.Body)
}

func (s *Store) do(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode qdrant request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{Method: method, URL: url, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode qdrant response: %w", err)
		}
	}
	return nil
}

// IsNotFound reports whether err is a 404 from Qdrant.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
