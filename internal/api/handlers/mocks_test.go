package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloo-solutions/guardian/internal/domain"
	"github.com/cloo-solutions/guardian/internal/service"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockIngester struct {
	mock.Mock
}

func (m *MockIngester) Ingest(ctx context.Context, data []byte, filename string) (service.IngestResult, error) {
	args := m.Called(ctx, data, filename)
	return args.Get(0).(service.IngestResult), args.Error(1)
}

type MockAdvisor struct {
	mock.Mock
}

func (m *MockAdvisor) FirstLook(ctx context.Context, chunks []domain.DocumentChunk) (domain.DocumentType, string, error) {
	args := m.Called(ctx, chunks)
	return args.Get(0).(domain.DocumentType), args.String(1), args.Error(2)
}

type MockQuerier struct {
	mock.Mock
}

func (m *MockQuerier) Answer(ctx context.Context, question, filename string) (service.Completion, error) {
	args := m.Called(ctx, question, filename)
	return args.Get(0).(service.Completion), args.Error(1)
}

type MockDocumentIndex struct {
	mock.Mock
}

func (m *MockDocumentIndex) Exists(ctx context.Context, sourceID string) (bool, error) {
	args := m.Called(ctx, sourceID)
	return args.Bool(0), args.Error(1)
}

func (m *MockDocumentIndex) FetchAll(ctx context.Context, sourceID string) ([]domain.DocumentChunk, error) {
	args := m.Called(ctx, sourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DocumentChunk), args.Error(1)
}

type MockDownloader struct {
	mock.Mock
}

func (m *MockDownloader) DownloadURL(ctx context.Context, sourceID string) (string, error) {
	args := m.Called(ctx, sourceID)
	return args.String(0), args.Error(1)
}

type MockResearcher struct {
	mock.Mock
}

func (m *MockResearcher) Research(ctx context.Context, query string) (service.Completion, error) {
	args := m.Called(ctx, query)
	return args.Get(0).(service.Completion), args.Error(1)
}

func (m *MockResearcher) FollowUp(ctx context.Context, query, webContext string, history []domain.ConversationTurn) service.Completion {
	args := m.Called(ctx, query, webContext, history)
	return args.Get(0).(service.Completion)
}

func newUploadRequest(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
