package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/akolanti/PortfolioChat/internal/api"
	"github.com/akolanti/PortfolioChat/internal/data/store"
	"github.com/akolanti/PortfolioChat/internal/domain/commonModels"
	"github.com/akolanti/PortfolioChat/internal/domain/jobModel"
	"github.com/akolanti/PortfolioChat/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioChat/internal/handlers"
	"github.com/akolanti/PortfolioChat/internal/job"
	"github.com/akolanti/PortfolioChat/internal/rag"
	"github.com/akolanti/PortfolioChat/internal/rag/ingest"
	"github.com/akolanti/PortfolioChat/internal/rag/persona"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockRagService implements rag.Service
type MockRagService struct {
	mu       sync.Mutex
	lastChat rag.ChatRequest

	OnChat           func(ctx context.Context, req rag.ChatRequest) (rag.ChatResponse, error)
	OnIngestDocument func(ctx context.Context, in ingest.FileInput) (ingest.Result, error)
	OnListDocuments  func(ctx context.Context) ([]commonModels.IndexedDocument, error)
	OnDeleteDocument func(ctx context.Context, name string) (bool, error)
	OnRestorePersona func(ctx context.Context) (*persona.Persona, error)
}

func (m *MockRagService) Chat(ctx context.Context, req rag.ChatRequest) (rag.ChatResponse, error) {
	m.mu.Lock()
	m.lastChat = req
	m.mu.Unlock()
	if m.OnChat != nil {
		return m.OnChat(ctx, req)
	}
	return rag.ChatResponse{Source: "gemini", Fragments: []string{"I mostly ", "write Go."}, Scores: []float64{0.8}}, nil
}

func (m *MockRagService) LastChat() rag.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastChat
}

func (m *MockRagService) IngestDocument(ctx context.Context, in ingest.FileInput) (ingest.Result, error) {
	if m.OnIngestDocument != nil {
		return m.OnIngestDocument(ctx, in)
	}
	return ingest.Result{DocumentName: in.Name, DocType: commonModels.TXT, Stats: commonModels.IngestStats{Chunks: 1}}, nil
}

func (m *MockRagService) IngestBatch(ctx context.Context, j jobModel.Job) jobModel.Job { return j }

func (m *MockRagService) ListDocuments(ctx context.Context) ([]commonModels.IndexedDocument, error) {
	if m.OnListDocuments != nil {
		return m.OnListDocuments(ctx)
	}
	return nil, nil
}

func (m *MockRagService) DeleteDocument(ctx context.Context, name string) (bool, error) {
	if m.OnDeleteDocument != nil {
		return m.OnDeleteDocument(ctx, name)
	}
	return true, nil
}

func (m *MockRagService) ClearDocuments(ctx context.Context) error { return nil }

func (m *MockRagService) Persona() *persona.Persona {
	return &persona.Persona{Name: "Ada Park"}
}

func (m *MockRagService) UpdatePersona(ctx context.Context, p *persona.Persona) error {
	return p.Validate()
}

func (m *MockRagService) RestorePersona(ctx context.Context) (*persona.Persona, error) {
	if m.OnRestorePersona != nil {
		return m.OnRestorePersona(ctx)
	}
	return nil, persona.ErrNoBackup
}

func (m *MockRagService) Health(ctx context.Context) rag.Health {
	return rag.Health{Status: "ok", Documents: 2, Providers: []string{"gemini"}}
}

var jobService = job.InitJobService(job.ServiceConfig{
	BufferLimit:  10,
	JobStore:     store.InitInMemoryJobStore(),
	MessageStore: store.InitMessageStore(),
})

func TestMain(m *testing.M) {
	handlers.InitJobHandler(jobService)
	os.Exit(m.Run())
}

func newRouter(svc rag.Service) *chi.Mux {
	handlers.InitRagHandler(svc, 1<<20)
	r := chi.NewRouter()
	r.Get("/health", handlers.HealthHandler)
	r.Post("/chat", handlers.ChatHandler)
	r.Get("/status/{id}", handlers.GetStatusHandler)
	r.Post("/admin/ingest", handlers.PostIngestHandler)
	r.Post("/admin/ingest/batch", handlers.PostIngestBatchHandler)
	r.Get("/admin/documents", handlers.ListDocumentsHandler)
	r.Delete("/admin/documents", handlers.ClearDocumentsHandler)
	r.Delete("/admin/documents/{name}", handlers.DeleteDocumentHandler)
	r.Get("/admin/persona", handlers.GetPersonaHandler)
	r.Put("/admin/persona", handlers.PutPersonaHandler)
	r.Post("/admin/persona/restore", handlers.RestorePersonaHandler)
	return r
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.RemoteAddr = "203.0.113.7:41000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func streamOff() *bool { f := false; return &f }

func TestChatHandler_StreamsByDefault(t *testing.T) {
	svc := &MockRagService{}
	r := newRouter(svc)

	rec := postJSON(t, r, "/chat", api.ChatRequest{Message: "What do you write?"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "I mostly write Go.", rec.Body.String())
	assert.Equal(t, "gemini", rec.Header().Get("X-Reply-Source"))
	assert.NotEmpty(t, rec.Header().Get("X-Chat-Id"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
	assert.True(t, svc.LastChat().Stream)
	assert.Equal(t, "203.0.113.7", svc.LastChat().SessionID)
}

func TestChatHandler_JSONReply(t *testing.T) {
	r := newRouter(&MockRagService{})

	rec := postJSON(t, r, "/chat", api.ChatRequest{Message: "What do you write?", Stream: streamOff()})

	require.Equal(t, http.StatusOK, rec.Code)
	var res api.ChatJSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "I mostly write Go.", res.Response)
	assert.Equal(t, "gemini", res.Source)
	assert.NotEmpty(t, res.ChatId)
	assert.Equal(t, []float64{0.8}, res.RelevantScores)
}

func TestChatHandler_KeepsConversationByChatId(t *testing.T) {
	svc := &MockRagService{}
	r := newRouter(svc)

	first := postJSON(t, r, "/chat", api.ChatRequest{Message: "What do you write?", Stream: streamOff()})
	require.Equal(t, http.StatusOK, first.Code)
	var res api.ChatJSONResponse
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &res))

	second := postJSON(t, r, "/chat", api.ChatRequest{Message: "Since when?", ChatID: res.ChatId, Stream: streamOff()})
	require.Equal(t, http.StatusOK, second.Code)

	got := svc.LastChat()
	assert.Equal(t, res.ChatId, got.SessionID)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "What do you write?", got.Messages[0].Content)
	assert.Equal(t, commonModels.RoleAssistant, got.Messages[1].Role)
	assert.Equal(t, "I mostly write Go.", got.Messages[1].Content)
	assert.Equal(t, "Since when?", got.Messages[2].Content)
}

func TestChatHandler_ClientHistory(t *testing.T) {
	svc := &MockRagService{}
	r := newRouter(svc)

	rec := postJSON(t, r, "/chat", api.ChatRequest{Messages: []api.ChatMessage{
		{Role: "user", Content: "Hi"},
		{Role: "model", Content: "Hello!"},
		{Role: "user", Content: "What do you build?"},
	}})

	require.Equal(t, http.StatusOK, rec.Code)
	got := svc.LastChat().Messages
	require.Len(t, got, 3)
	assert.Equal(t, commonModels.RoleAssistant, got[1].Role)
}

func TestChatHandler_Errors(t *testing.T) {
	tests := []struct {
		name     string
		req      api.ChatRequest
		chatErr  error
		wantCode int
		wantBody string
	}{
		{"no message", api.ChatRequest{}, nil, http.StatusBadRequest, "message is required"},
		{"last message not from user", api.ChatRequest{Messages: []api.ChatMessage{{Role: "assistant", Content: "hi"}}}, nil, http.StatusBadRequest, "message is required"},
		{"unknown role", api.ChatRequest{Messages: []api.ChatMessage{{Role: "system", Content: "hi"}}}, nil, http.StatusBadRequest, "unknown role"},
		{"unknown chat id", api.ChatRequest{Message: "hi", ChatID: "missing"}, nil, http.StatusBadRequest, "unknown chat_id"},
		{"providers exhausted", api.ChatRequest{Message: "hi"}, fmt.Errorf("%w: gemini: quota exceeded", ragErrors.ErrProviderExhausted), http.StatusServiceUnavailable, "Sorry"},
		{"unexpected failure", api.ChatRequest{Message: "hi"}, errors.New("qdrant: connection refused"), http.StatusInternalServerError, "Sorry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockRagService{OnChat: func(ctx context.Context, req rag.ChatRequest) (rag.ChatResponse, error) {
				return rag.ChatResponse{}, tt.chatErr
			}}
			rec := postJSON(t, newRouter(svc), "/chat", tt.req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			assert.NotContains(t, rec.Body.String(), "gemini")
			assert.NotContains(t, rec.Body.String(), "qdrant")
		})
	}
}

func TestChatHandler_RejectsOversizedBody(t *testing.T) {
	called := false
	svc := &MockRagService{OnChat: func(ctx context.Context, req rag.ChatRequest) (rag.ChatResponse, error) {
		called = true
		return rag.ChatResponse{}, nil
	}}

	rec := postJSON(t, newRouter(svc), "/chat", api.ChatRequest{Message: strings.Repeat("tell me more ", 6000)})

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.False(t, called)
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&MockRagService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","documents":2,"keyword_passages":0,"providers":["gemini"]}`, rec.Body.String())
}

func multipartBody(t *testing.T, field string, files map[string]string, extra map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := w.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	for k, v := range extra {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestPostIngestHandler(t *testing.T) {
	var got ingest.FileInput
	svc := &MockRagService{OnIngestDocument: func(ctx context.Context, in ingest.FileInput) (ingest.Result, error) {
		got = in
		if in.Name == "bad.bin" {
			return ingest.Result{}, ragErrors.Validation("unsupported file type")
		}
		return ingest.Result{DocumentName: in.Name, DocType: commonModels.TXT, Stats: commonModels.IngestStats{Chunks: 2}}, nil
	}}
	r := newRouter(svc)

	t.Run("indexes the upload under document_name", func(t *testing.T) {
		body, ct := multipartBody(t, "file", map[string]string{"notes.txt": "I like Go."}, map[string]string{"document_name": "about-me.txt"})
		req := httptest.NewRequest(http.MethodPost, "/admin/ingest", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "about-me.txt", got.Name)
		assert.Equal(t, "I like Go.", string(got.Data))
		assert.Contains(t, rec.Body.String(), `"document_name":"about-me.txt"`)
	})

	t.Run("validation errors are 400 with detail", func(t *testing.T) {
		body, ct := multipartBody(t, "file", map[string]string{"bad.bin": "\x00\x01"}, nil)
		req := httptest.NewRequest(http.MethodPost, "/admin/ingest", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "unsupported file type")
	})

	t.Run("missing file", func(t *testing.T) {
		body, ct := multipartBody(t, "other", map[string]string{"a.txt": "x"}, nil)
		req := httptest.NewRequest(http.MethodPost, "/admin/ingest", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPostIngestBatchHandler_QueuesJob(t *testing.T) {
	t.Chdir(t.TempDir())
	r := newRouter(&MockRagService{})

	body, ct := multipartBody(t, "files", map[string]string{"a.txt": "first", "b.txt": "second"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/admin/ingest/batch", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var res api.InitJobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "status/"+res.Id, res.StatusURL)

	queued := <-jobService.JobChannel
	assert.Equal(t, res.Id, queued.Id)
	assert.Equal(t, jobModel.JobTypeIngest, queued.JobType)
	require.Len(t, queued.JobPayload.Files, 2)
	for _, f := range queued.JobPayload.Files {
		assert.Equal(t, jobModel.FileStatusPending, f.Status)
		assert.FileExists(t, f.Path)
	}

	statusRec := httptest.NewRecorder()
	r.ServeHTTP(statusRec, httptest.NewRequest(http.MethodGet, "/status/"+res.Id, nil))
	require.Equal(t, http.StatusOK, statusRec.Code)
	var status api.JobResponse
	require.NoError(t, json.Unmarshal(statusRec.Body.Bytes(), &status))
	assert.Equal(t, string(jobModel.JobStatusQueued), status.Result.Status)
	assert.Len(t, status.Result.Files, 2)
}

func TestGetStatusHandler_NotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&MockRagService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status/ghost", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Job not found")
}

func TestDocumentHandlers(t *testing.T) {
	svc := &MockRagService{
		OnListDocuments: func(ctx context.Context) ([]commonModels.IndexedDocument, error) {
			return []commonModels.IndexedDocument{{Name: "a.pdf", ChunkCount: 3}, {Name: "b.txt", ChunkCount: 2}}, nil
		},
		OnDeleteDocument: func(ctx context.Context, name string) (bool, error) {
			return name == "a.pdf", nil
		},
	}
	r := newRouter(svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/documents", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var docs api.DocumentsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &docs))
	assert.Len(t, docs.Documents, 2)
	assert.Equal(t, 5, docs.TotalChunks)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/documents/a.pdf", nil))
	assert.JSONEq(t, `{"deleted":true}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/documents/missing.pdf", nil))
	assert.JSONEq(t, `{"deleted":false}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/documents", nil))
	assert.JSONEq(t, `{"cleared":true}`, rec.Body.String())
}

func TestDocumentHandlers_StoreUnavailable(t *testing.T) {
	svc := &MockRagService{OnListDocuments: func(ctx context.Context) ([]commonModels.IndexedDocument, error) {
		return nil, ragErrors.StoreUnavailable(errors.New("dial tcp: refused"))
	}}
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/documents", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "dial tcp")
}

func TestPersonaHandlers(t *testing.T) {
	r := newRouter(&MockRagService{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/persona", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ada Park")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/admin/persona", strings.NewReader(`{"name":"Ada Park"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/admin/persona", strings.NewReader(`{not json`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/persona/restore", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
