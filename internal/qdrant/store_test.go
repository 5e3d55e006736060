package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloo-solutions/guardian/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	APIKey string
	Body   map[string]any
}

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r recordedRequest)) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			APIKey: r.Header.Get("api-key"),
		}
		if r.Body != nil && r.ContentLength != 0 {
			_ = json.NewDecoder(r.Body).Decode(&rec.Body)
		}
		requests = append(requests, rec)
		w.Header().Set("Content-Type", "application/json")
		handler(w, rec)
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func TestPointID_Stable(t *testing.T) {
	assert.Equal(t, PointID("policy", 3), PointID("policy", 3))
	assert.NotEqual(t, PointID("policy", 3), PointID("policy", 4))
	assert.NotEqual(t, PointID("policy", 3), PointID("lease", 3))
	assert.Len(t, PointID("policy", 0), 36)
}

func TestStore_EnsureCollection_Creates(t *testing.T) {
	srv, reqs := newTestServer(t, func(w http.ResponseWriter, r recordedRequest) {
		if r.Path == "/collections/guardian_policies/exists" {
			_, _ = w.Write([]byte(`{"result":{"exists":false}}`))
			return
		}
		_, _ = w.Write([]byte(`{"result":true}`))
	})
	store := NewStore(Config{URL: srv.URL + "/", APIKey: "secret"})

	require.NoError(t, store.EnsureCollection(context.Background()))

	require.Len(t, *reqs, 3)
	create := (*reqs)[1]
	assert.Equal(t, http.MethodPut, create.Method)
	assert.Equal(t, "/collections/guardian_policies", create.Path)
	assert.Equal(t, "secret", create.APIKey)
	assert.Equal(t, map[string]any{"size": float64(768), "distance": "Cosine"}, create.Body["vectors"])
	assert.Equal(t, map[string]any{"m": float64(16), "ef_construct": float64(100), "full_scan_threshold": float64(10000)}, create.Body["hnsw_config"])

	index := (*reqs)[2]
	assert.Equal(t, "/collections/guardian_policies/index", index.Path)
	assert.Equal(t, "metadata.source", index.Body["field_name"])
}

func TestStore_EnsureCollection_Exists(t *testing.T) {
	srv, reqs := newTestServer(t, func(w http.ResponseWriter, r recordedRequest) {
		_, _ = w.Write([]byte(`{"result":{"exists":true}}`))
	})
	store := NewStore(Config{URL: srv.URL})

	require.NoError(t, store.EnsureCollection(context.Background()))
	assert.Len(t, *reqs, 1)
}

func TestStore_InsertChunks(t *testing.T) {
	srv, reqs := newTestServer(t, func(w http.ResponseWriter, r recordedRequest) {
		_, _ = w.Write([]byte(`{"result":{"status":"completed"}}`))
	})
	store := NewStore(Config{URL: srv.URL, Dimension: 2})

	added, err := store.InsertChunks(context.Background(), []domain.DocumentChunk{
		{Text: "deductible", SourceID: "policy", PageNumber: 2, FileType: "pdf", ChunkIndex: 0, Embedding: []float32{1, 0}},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, added)
	require.Len(t, *reqs, 1)
	req := (*reqs)[0]
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/collections/guardian_policies/points", req.Path)
	assert.Equal(t, "wait=true", req.Query)

	points := req.Body["points"].([]any)
	require.Len(t, points, 1)
	p := points[0].(map[string]any)
	assert.Equal(t, PointID("policy", 0), p["id"])
	assert.Equal(t, map[string]any{
		"page_content": "deductible",
		"metadata": map[string]any{
			"source":      "policy",
			"page_number": float64(2),
			"file_type":   "pdf",
			"chunk_index": float64(0),
		},
	}, p["payload"])
}

func TestStore_InsertChunks_WrongDimension(t *testing.T) {
	store := NewStore(Config{URL: "http://unused", Dimension: 3})

	_, err := store.InsertChunks(context.Background(), []domain.DocumentChunk{{SourceID: "p", Embedding: []float32{1}}})

	assert.Error(t, err)
}

func TestStore_SearchChunks(t *testing.T) {
	srv, reqs := newTestServer(t, func(w http.ResponseWriter, r recordedRequest) {
		_, _ = w.Write([]byte(`{"result":[
			{"id":"a","score":0.93,"payload":{"page_content":"The deductible is $500.","metadata":{"source":"policy","page_number":2}}}
		]}`))
	})
	store := NewStore(Config{URL: srv.URL})

	hits, err := store.SearchChunks(context.Background(), []float32{0.1, 0.2}, 2, "policy")

	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, domain.RetrievalHit{Text: "The deductible is $500.", PageNumber: 2, SourceID: "policy", Score: 0.93}, hits[0])

	body := (*reqs)[0].Body
	assert.Equal(t, float64(2), body["limit"])
	assert.Equal(t, map[string]any{
		"must": []any{map[string]any{"key": "metadata.source", "match": map[string]any{"value": "policy"}}},
	}, body["filter"])
}

func TestStore_SearchChunks_Unfiltered(t *testing.T) {
	srv, reqs := newTestServer(t, func(w http.ResponseWriter, r recordedRequest) {
		_, _ = w.Write([]byte(`{"result":[]}`))
	})
	store := NewStore(Config{URL: srv.URL})

	hits, err := store.SearchChunks(context.Background(), []float32{1}, 2, "")

	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.NotContains(t, (*reqs)[0].Body, "filter")
}

func TestStore_ScrollChunks(t *testing.T) {
	srv, reqs := newTestServer(t, func(w http.ResponseWriter, r recordedRequest) {
		if _, ok := r.Body["offset"]; !ok {
			_, _ = w.Write([]byte(`{"result":{"points":[
				{"id":"1","payload":{"page_content":"b","metadata":{"source":"policy","page_number":1,"file_type":"pdf","chunk_index":1}}}
			],"next_page_offset":"0b7f1c62-0000-5000-8000-000000000000"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"result":{"points":[
			{"id":"2","payload":{"page_content":"a","metadata":{"source":"policy","page_number":1,"file_type":"pdf","chunk_index":0}}}
		],"next_page_offset":null}}`))
	})
	store := NewStore(Config{URL: srv.URL})
	ctx := context.Background()

	page, next, err := store.ScrollChunks(ctx, "policy", "", 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, domain.Texts(page))
	assert.Equal(t, 1, page[0].ChunkIndex)
	assert.Equal(t, "0b7f1c62-0000-5000-8000-000000000000", next)

	page, next, err = store.ScrollChunks(ctx, "policy", next, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, domain.Texts(page))
	assert.Empty(t, next)

	assert.Equal(t, "/collections/guardian_policies/points/scroll", (*reqs)[1].Path)
	assert.Equal(t, "0b7f1c62-0000-5000-8000-000000000000", (*reqs)[1].Body["offset"])
	assert.Equal(t, false, (*reqs)[1].Body["with_vector"])
}

func TestStore_HasSourceAndCount(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r recordedRequest) {
		if _, filtered := r.Body["filter"]; filtered {
			_, _ = w.Write([]byte(`{"result":{"count":0}}`))
			return
		}
		_, _ = w.Write([]byte(`{"result":{"count":42}}`))
	})
	store := NewStore(Config{URL: srv.URL})
	ctx := context.Background()

	ok, err := store.HasSource(ctx, "policy")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := store.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
}

func TestStore_HasSource_MissingCollection(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r recordedRequest) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status":{"error":"Not found: Collection doesn't exist!"}}`))
	})
	store := NewStore(Config{URL: srv.URL})

	ok, err := store.HasSource(context.Background(), "policy")

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_ErrorStatus(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r recordedRequest) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":{"error":"Wrong input: vector dimension error"}}`))
	})
	store := NewStore(Config{URL: srv.URL})

	_, err := store.SearchChunks(context.Background(), []float32{1}, 2, "")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, err.Error(), "vector dimension error")
	assert.False(t, IsNotFound(err))
}
