//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/guardian/internal/api/handlers"
	"github.com/cloo-solutions/guardian/internal/api/middleware"
	"github.com/cloo-solutions/guardian/internal/domain"
	"github.com/cloo-solutions/guardian/internal/loader"
	"github.com/cloo-solutions/guardian/internal/openai"
	"github.com/cloo-solutions/guardian/internal/prompts"
	"github.com/cloo-solutions/guardian/internal/repository"
	"github.com/cloo-solutions/guardian/internal/server"
	"github.com/cloo-solutions/guardian/internal/service"
	"github.com/cloo-solutions/guardian/internal/storage"
	"github.com/cloo-solutions/guardian/internal/testutil"
	"github.com/cloo-solutions/guardian/internal/websearch"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	apiToken   = "grd_e2e_token"
	dimensions = 768
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	RustFSC    *testutil.RustFSContainer
	Pool       *pgxpool.Pool
	S3Client   *storage.S3Client
	Provider   *fakeProvider
	Server     *httptest.Server
	HTTPClient *http.Client
}

// SetupE2EEnv starts pgvector and RustFS containers, fake model and search
// providers, and the Guardian router on top of them.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     testutil.RustFSCredential,
		SecretAccessKey: testutil.RustFSCredential,
		Bucket:          "guardian-e2e",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	provider := newFakeProvider()

	exa, err := websearch.NewExaClient(websearch.Config{
		APIKey:  "exa-test",
		BaseURL: provider.URL,
	})
	if err != nil {
		t.Fatalf("failed to create exa client: %v", err)
	}

	chat := openai.NewChatClient(openai.ChatConfig{APIKey: "test", BaseURL: provider.URL + "/v1"})
	inference := service.NewInference(chat, nil)

	index := service.NewIndexGateway(repository.NewChunkRepository(pool), func() (service.Embedder, error) {
		return openai.NewClientWithConfig(openai.Config{
			APIKey:              "test",
			BaseURL:             provider.URL + "/v1",
			EmbeddingDimensions: dimensions,
		}), nil
	})
	ingest := service.NewIngestService(loader.NewPDFLoader(), nil, index).WithArchiver(s3Client)

	documents := handlers.NewDocumentHandler(
		ingest,
		service.NewAdvisoryService(inference),
		service.NewQueryService(index, inference),
		index,
	).WithDownloader(s3Client)

	router := server.NewRouter(server.RouterConfig{
		TokenValidator:  middleware.StaticToken(apiToken),
		DocumentHandler: documents,
		WebHandler:      handlers.NewWebHandler(service.NewResearchService(exa, inference)),
		AllowedOrigins:  []string{"*"},
	})

	return &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		RustFSC:    s3C,
		Pool:       pool,
		S3Client:   s3Client,
		Provider:   provider,
		Server:     httptest.NewServer(router),
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.Server != nil {
		e.Server.Close()
	}
	if e.Provider != nil {
		e.Provider.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// Do sends a request with the test token and decodes a JSON response into out.
func (e *E2ETestEnv) Do(req *http.Request, out any) int {
	e.T.Helper()

	req.Header.Set("Authorization", "Bearer "+apiToken)
	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		e.T.Fatalf("request %s %s failed: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			e.T.Fatalf("failed to decode %s: %v (%s)", req.URL.Path, err, body)
		}
	}
	return resp.StatusCode
}

func (e *E2ETestEnv) PostJSON(path string, body, out any) int {
	e.T.Helper()
	data, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, e.Server.URL+path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return e.Do(req, out)
}

func (e *E2ETestEnv) Get(path string, out any) int {
	e.T.Helper()
	req, _ := http.NewRequest(http.MethodGet, e.Server.URL+path, nil)
	return e.Do(req, out)
}

func (e *E2ETestEnv) Upload(filename string, data []byte, out any) int {
	e.T.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("file", filename)
	_, _ = part.Write(data)
	_ = mw.Close()

	req, _ := http.NewRequest(http.MethodPost, e.Server.URL+"/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.Do(req, out)
}

// fakeProvider serves OpenAI-compatible embeddings and chat completions and
// an Exa-compatible search endpoint.
type fakeProvider struct {
	*httptest.Server
	chatCalls int
}

func newFakeProvider() *fakeProvider {
	p := &fakeProvider{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/embeddings", p.embeddings)
	mux.HandleFunc("POST /v1/chat/completions", p.chat)
	mux.HandleFunc("POST /search", p.search)
	p.Server = httptest.NewServer(mux)
	return p
}

func (p *fakeProvider) embeddings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Input []string `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data := make([]map[string]any, len(req.Input))
	for i, text := range req.Input {
		data[i] = map[string]any{"object": "embedding", "index": i, "embedding": bagOfWords(text)}
	}
	writeJSON(w, map[string]any{"object": "list", "data": data, "model": "fake"})
}

func (p *fakeProvider) chat(w http.ResponseWriter, r *http.Request) {
	p.chatCalls++

	var req struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	user := req.Messages[len(req.Messages)-1].Content

	var answer string
	switch {
	case strings.Contains(user, prompts.ClassifyQuestion):
		answer = string(domain.DocumentTypeRentalAgreement)
	case strings.Contains(user, prompts.AdviseQuestion):
		answer = "1. Confirm the deposit return deadline."
	case strings.Contains(user, "Sources:"):
		answer = "SUMMARY: Tenancy deposits are regulated.\nINSIGHTS:\n1. Use a protection scheme."
	default:
		answer = "Based on the document: " + firstLine(user)
	}

	writeJSON(w, map[string]any{
		"id":     fmt.Sprintf("chatcmpl-%d", p.chatCalls),
		"object": "chat.completion",
		"model":  "fake",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": answer},
			"finish_reason": "stop",
		}},
	})
}

func (p *fakeProvider) search(w http.ResponseWriter, r *http.Request) {
	long := strings.Repeat("Deposits must be protected within thirty days of receipt. ", 10)
	writeJSON(w, map[string]any{
		"results": []map[string]string{
			{"title": "Deposit protection", "url": "https://example.org/deposits", "text": long},
			{"title": "Stub", "url": "https://example.org/stub", "text": "too short"},
		},
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

// bagOfWords hashes lower-cased words into a fixed-size vector so texts
// sharing words land close together.
func bagOfWords(text string) []float32 {
	vec := make([]float32, dimensions)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(strings.Trim(word, ".,;:!?()")))
		vec[h.Sum32()%dimensions]++
	}
	vec[0] += 0.01
	return vec
}
