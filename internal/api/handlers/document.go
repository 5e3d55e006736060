package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/cloo-solutions/guardian/internal/api"
	"github.com/cloo-solutions/guardian/internal/domain"
	"github.com/cloo-solutions/guardian/internal/service"
	"github.com/cloo-solutions/guardian/internal/telemetry"
	"github.com/go-chi/chi/v5"
)

const multipartMemory = 32 << 20

type Ingester interface {
	Ingest(ctx context.Context, data []byte, filename string) (service.IngestResult, error)
}

type Advisor interface {
	FirstLook(ctx context.Context, chunks []domain.DocumentChunk) (domain.DocumentType, string, error)
}

type Querier interface {
	Answer(ctx context.Context, question, filename string) (service.Completion, error)
}

type DocumentIndex interface {
	Exists(ctx context.Context, sourceID string) (bool, error)
	FetchAll(ctx context.Context, sourceID string) ([]domain.DocumentChunk, error)
}

// Downloader hands out links to archived uploads.
type Downloader interface {
	DownloadURL(ctx context.Context, sourceID string) (string, error)
}

type DocumentHandler struct {
	ingester   Ingester
	advisor    Advisor
	querier    Querier
	index      DocumentIndex
	downloader Downloader
}

func NewDocumentHandler(ingester Ingester, advisor Advisor, querier Querier, index DocumentIndex) *DocumentHandler {
	return &DocumentHandler{
		ingester: ingester,
		advisor:  advisor,
		querier:  querier,
		index:    index,
	}
}

// WithDownloader enables GET /documents/{filename}/download.
func (h *DocumentHandler) WithDownloader(d Downloader) *DocumentHandler {
	h.downloader = d
	return h
}

type UploadResponse struct {
	Status   string `json:"status"`
	DocType  string `json:"doc_type"`
	Insights string `json:"insights"`
	SourceID string `json:"source_id"`
}

type QueryRequest struct {
	Question string `json:"question"`
	Filename string `json:"filename"`
}

type AnswerResponse struct {
	Answer string `json:"answer"`
}

type DocumentStatusResponse struct {
	SourceID string `json:"source_id"`
	Indexed  bool   `json:"indexed"`
	Chunks   int    `json:"chunks"`
}

type DownloadResponse struct {
	URL string `json:"url"`
}

// Upload indexes a PDF (or reuses its stored chunks) and returns the
// document type and advisories.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			api.Error(w, http.StatusRequestEntityTooLarge, "upload too large")
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
			api.HandleError(w, domain.ErrMissingFile)
		default:
			api.Error(w, http.StatusBadRequest, "invalid multipart body")
		}
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.HandleError(w, domain.ErrMissingFile)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	ctx := r.Context()
	ingested, err := h.ingester.Ingest(ctx, data, header.Filename)
	if err != nil {
		fail(ctx, w, err)
		return
	}

	docType, insights, err := h.advisor.FirstLook(ctx, ingested.Chunks)
	if err != nil {
		fail(ctx, w, err)
		return
	}

	api.JSON(w, http.StatusOK, UploadResponse{
		Status:   "uploaded",
		DocType:  string(docType),
		Insights: insights,
		SourceID: ingested.SourceID,
	})
}

func (h *DocumentHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	completion, err := h.querier.Answer(r.Context(), req.Question, req.Filename)
	if err != nil {
		fail(r.Context(), w, err)
		return
	}

	api.JSON(w, http.StatusOK, AnswerResponse{Answer: completion.String()})
}

func (h *DocumentHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sourceID := domain.NormalizeFilename(chi.URLParam(r, "filename"))

	indexed, err := h.index.Exists(ctx, sourceID)
	if err != nil {
		fail(ctx, w, err)
		return
	}
	if !indexed {
		api.HandleError(w, domain.ErrDocumentNotFound)
		return
	}

	chunks, err := h.index.FetchAll(ctx, sourceID)
	if err != nil {
		fail(ctx, w, err)
		return
	}

	api.JSON(w, http.StatusOK, DocumentStatusResponse{
		SourceID: sourceID,
		Indexed:  true,
		Chunks:   len(chunks),
	})
}

func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	if h.downloader == nil {
		api.HandleError(w, domain.ErrArchiveNotConfigured)
		return
	}

	ctx := r.Context()
	sourceID := domain.NormalizeFilename(chi.URLParam(r, "filename"))

	url, err := h.downloader.DownloadURL(ctx, sourceID)
	if err != nil {
		fail(ctx, w, err)
		return
	}

	api.JSON(w, http.StatusOK, DownloadResponse{URL: url})
}

// fail writes err and reports server-side failures to Sentry.
func fail(ctx context.Context, w http.ResponseWriter, err error) {
	status := api.DomainErrorToHTTP(err)
	if status >= http.StatusInternalServerError && status != http.StatusNotImplemented {
		telemetry.CaptureError(ctx, err)
	}
	api.Error(w, status, err.Error())
}
