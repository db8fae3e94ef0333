package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/seradocs/sera/internal/config"
	"github.com/seradocs/sera/internal/embedding"
	"github.com/seradocs/sera/internal/extract"
	"github.com/seradocs/sera/internal/ingest"
	"github.com/seradocs/sera/internal/keyword"
	"github.com/seradocs/sera/internal/models"
	"github.com/seradocs/sera/internal/query"
	"github.com/seradocs/sera/internal/storage"
	"github.com/seradocs/sera/internal/store"
	"github.com/seradocs/sera/internal/vector"
)

const testDims = 32

type echoGenerator struct{}

func (echoGenerator) Generate(ctx context.Context, q string, sources []models.RetrievalResult) (string, error) {
	return "answer to: " + q + " [Source 1]", nil
}
func (echoGenerator) ModelName() string { return "echo" }
func (echoGenerator) Close() error      { return nil }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	dir := t.TempDir()
	st, err := storage.NewSQLiteStorage(filepath.Join(dir, "sera.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStorage() error = %v", err)
	}
	idx, err := vector.NewFlatIndex(testDims)
	if err != nil {
		t.Fatalf("NewFlatIndex() error = %v", err)
	}
	kw, err := keyword.NewBleveIndex(filepath.Join(dir, "keyword.bleve"))
	if err != nil {
		t.Fatalf("NewBleveIndex() error = %v", err)
	}
	embedder := embedding.NewMockEmbedder(testDims)
	docStore, err := store.New(st, idx, kw, filepath.Join(dir, "vectors.bin"), embedder.ModelName(), testDims, zap.NewNop())
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { docStore.Close() })

	ingestCfg := &config.IngestConfig{
		ChunkSize:    500,
		ChunkOverlap: 100,
		MaxFileSize:  1 << 20,
		Extensions:   []string{".txt", ".csv", ".md"},
	}
	ingestor, err := ingest.NewIngestor(ingestCfg, extract.NewExtractor(), embedder, docStore, zap.NewNop())
	if err != nil {
		t.Fatalf("NewIngestor() error = %v", err)
	}
	queryCfg := &config.QueryConfig{DefaultTopK: 5, MaxTopK: 20, KeywordWeight: 0.3, SemanticWeight: 0.7}
	querySvc := query.NewService(queryCfg, docStore, embedder, echoGenerator{}, zap.NewNop())

	srv := NewServer(docStore, ingestor, querySvc, &config.ServerConfig{Host: "127.0.0.1", Port: 0}, ingestCfg.MaxFileSize, zap.NewNop())
	return srv.Router()
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return body, mw.FormDataContentType()
}

func doUpload(t *testing.T, router http.Handler, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func TestUploadAndStatus(t *testing.T) {
	router := newTestRouter(t)

	w := doUpload(t, router, "notes.txt", strings.Repeat("useful knowledge here. ", 40))
	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body %s", w.Code, w.Body.String())
	}
	var resp models.UploadResponse
	decodeJSON(t, w, &resp)
	if resp.Filename != "notes.txt" || resp.ChunksCreated == 0 || resp.FileID == "" {
		t.Errorf("upload response = %+v", resp)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var stats models.Stats
	decodeJSON(t, w, &stats)
	if stats.TotalDocuments != 1 || stats.TotalChunks != int64(resp.ChunksCreated) {
		t.Errorf("stats = %+v, want 1 document and %d chunks", stats, resp.ChunksCreated)
	}
}

func TestUploadUnsupported(t *testing.T) {
	router := newTestRouter(t)
	w := doUpload(t, router, "virus.exe", "MZ")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestUploadTooLarge(t *testing.T) {
	router := newTestRouter(t)
	w := doUpload(t, router, "big.txt", strings.Repeat("x", (1<<20)+1))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
}

func TestUploadMissingFile(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader("not multipart"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestQueryFlow(t *testing.T) {
	router := newTestRouter(t)
	doUpload(t, router, "facts.txt", "the capital of france is paris")

	body := strings.NewReader(`{"query": "capital of france"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/query", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("query status = %d, body %s", w.Code, w.Body.String())
	}
	var resp models.QueryResponse
	decodeJSON(t, w, &resp)
	if resp.Answer == nil || !strings.Contains(*resp.Answer, "capital of france") {
		t.Errorf("Answer = %v, want generated answer", resp.Answer)
	}
	if len(resp.Sources) == 0 {
		t.Error("no sources returned")
	}
}

func TestQueryEmpty(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"query": "  "}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestQueryBadBody(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestClear(t *testing.T) {
	router := newTestRouter(t)
	doUpload(t, router, "gone.txt", "content to be cleared")

	req := httptest.NewRequest(http.MethodDelete, "/api/clear", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("clear status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var stats models.Stats
	decodeJSON(t, w, &stats)
	if stats.TotalDocuments != 0 || stats.TotalChunks != 0 {
		t.Errorf("stats after clear = %+v, want zeros", stats)
	}

	// Clearing an empty store is fine.
	req = httptest.NewRequest(http.MethodDelete, "/api/clear", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("second clear status = %d, want 200", w.Code)
	}
}

func TestDocumentsListAndDelete(t *testing.T) {
	router := newTestRouter(t)
	w := doUpload(t, router, "doc.txt", "a document to list and delete")
	var upload models.UploadResponse
	decodeJSON(t, w, &upload)

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req)
	if w2.Code != http.StatusOK {
		t.Fatalf("list status = %d", w2.Code)
	}
	var list struct {
		Documents []*models.Document `json:"documents"`
	}
	decodeJSON(t, w2, &list)
	if len(list.Documents) != 1 || list.Documents[0].ID != upload.FileID {
		t.Errorf("documents = %+v, want the uploaded one", list.Documents)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/documents/"+upload.FileID, nil)
	w2 = httptest.NewRecorder()
	router.ServeHTTP(w2, req)
	if w2.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w2.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/documents/"+upload.FileID, nil)
	w2 = httptest.NewRecorder()
	router.ServeHTTP(w2, req)
	if w2.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w2.Code)
	}
}

func TestMessages(t *testing.T) {
	router := newTestRouter(t)
	doUpload(t, router, "facts.txt", "water boils at one hundred degrees")

	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"query": "water boils"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("query status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/messages", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var list struct {
		Messages []*models.Message `json:"messages"`
	}
	decodeJSON(t, w, &list)
	if len(list.Messages) != 2 {
		t.Fatalf("got %d messages, want user and assistant turns", len(list.Messages))
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/messages", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("clear messages status = %d", w.Code)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/messages", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	decodeJSON(t, w, &list)
	if len(list.Messages) != 0 {
		t.Errorf("got %d messages after clear, want 0", len(list.Messages))
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d", w.Code)
	}
	var resp map[string]string
	decodeJSON(t, w, &resp)
	if resp["status"] != "ok" {
		t.Errorf("health body = %v", resp)
	}
}
