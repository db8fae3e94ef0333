package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/seradocs/sera/internal/config"
	"github.com/seradocs/sera/internal/embedding"
	"github.com/seradocs/sera/internal/extract"
	"github.com/seradocs/sera/internal/keyword"
	"github.com/seradocs/sera/internal/models"
	"github.com/seradocs/sera/internal/storage"
	"github.com/seradocs/sera/internal/store"
	"github.com/seradocs/sera/internal/vector"
)

const testDims = 32

func newTestIngestor(t *testing.T, cfg *config.IngestConfig) (*Ingestor, *store.Store) {
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

	ingestor, err := NewIngestor(cfg, extract.NewExtractor(), embedder, docStore, zap.NewNop())
	if err != nil {
		t.Fatalf("NewIngestor() error = %v", err)
	}
	return ingestor, docStore
}

func defaultIngestConfig() *config.IngestConfig {
	return &config.IngestConfig{
		ChunkSize:    500,
		ChunkOverlap: 100,
		MaxFileSize:  1 << 20,
		Extensions:   []string{".txt", ".csv", ".html", ".md"},
	}
}

func TestIngestText(t *testing.T) {
	ingestor, docStore := newTestIngestor(t, defaultIngestConfig())
	ctx := context.Background()

	content := []byte(strings.Repeat("the quick brown fox. ", 60)) // 1260 bytes
	resp, err := ingestor.Ingest(ctx, content, "foxes.txt")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if resp.Filename != "foxes.txt" {
		t.Errorf("Filename = %s, want foxes.txt", resp.Filename)
	}
	if resp.ChunksCreated != 3 {
		t.Errorf("ChunksCreated = %d, want 3", resp.ChunksCreated)
	}
	if resp.FileID == "" {
		t.Error("FileID is empty")
	}

	stats, err := docStore.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalDocuments != 1 || stats.TotalChunks != 3 {
		t.Errorf("stats = %+v, want 1 document and 3 chunks", stats)
	}

	results, err := docStore.SearchKeyword(ctx, "fox", 5)
	if err != nil {
		t.Fatalf("SearchKeyword() error = %v", err)
	}
	if len(results) == 0 {
		t.Error("ingested content not searchable")
	}
	if results[0].Metadata.Filename != "foxes.txt" || results[0].Metadata.FileType != ".txt" {
		t.Errorf("metadata = %+v, want filename and file type set", results[0].Metadata)
	}
}

func TestIngestUnsupportedFormat(t *testing.T) {
	ingestor, docStore := newTestIngestor(t, defaultIngestConfig())
	ctx := context.Background()

	_, err := ingestor.Ingest(ctx, []byte("MZ binary"), "malware.exe")
	if !errors.Is(err, models.ErrUnsupportedFormat) {
		t.Fatalf("Ingest() error = %v, want ErrUnsupportedFormat", err)
	}
	stats, _ := docStore.Stats(ctx)
	if stats.TotalDocuments != 0 {
		t.Errorf("store changed by rejected upload: %+v", stats)
	}
}

func TestIngestDisallowedConfiguredExtension(t *testing.T) {
	cfg := defaultIngestConfig()
	cfg.Extensions = []string{".txt"}
	ingestor, _ := newTestIngestor(t, cfg)

	// .csv is extractable but not in the configured allow-list.
	_, err := ingestor.Ingest(context.Background(), []byte("a,b\n1,2\n"), "data.csv")
	if !errors.Is(err, models.ErrUnsupportedFormat) {
		t.Errorf("Ingest() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestIngestTooLarge(t *testing.T) {
	cfg := defaultIngestConfig()
	cfg.MaxFileSize = 100
	ingestor, docStore := newTestIngestor(t, cfg)
	ctx := context.Background()

	_, err := ingestor.Ingest(ctx, []byte(strings.Repeat("x", 101)), "big.txt")
	if !errors.Is(err, models.ErrPayloadTooLarge) {
		t.Fatalf("Ingest() error = %v, want ErrPayloadTooLarge", err)
	}
	stats, _ := docStore.Stats(ctx)
	if stats.TotalDocuments != 0 {
		t.Errorf("store changed by rejected upload: %+v", stats)
	}
}

func TestIngestNoExtractableText(t *testing.T) {
	ingestor, _ := newTestIngestor(t, defaultIngestConfig())
	_, err := ingestor.Ingest(context.Background(), []byte("   \n\t  "), "blank.txt")
	if !errors.Is(err, models.ErrExtraction) {
		t.Errorf("Ingest() error = %v, want ErrExtraction", err)
	}
}

func TestIngestFileReplacesByPath(t *testing.T) {
	ingestor, docStore := newTestIngestor(t, defaultIngestConfig())
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")

	if err := os.WriteFile(path, []byte("first version of the notes"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	first, err := ingestor.IngestFile(ctx, path)
	if err != nil {
		t.Fatalf("IngestFile() error = %v", err)
	}

	if err := os.WriteFile(path, []byte("second version of the notes"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	second, err := ingestor.IngestFile(ctx, path)
	if err != nil {
		t.Fatalf("second IngestFile() error = %v", err)
	}
	if first.FileID != second.FileID {
		t.Errorf("same path got different IDs: %s vs %s", first.FileID, second.FileID)
	}

	stats, _ := docStore.Stats(ctx)
	if stats.TotalDocuments != 1 {
		t.Errorf("TotalDocuments = %d after replace, want 1", stats.TotalDocuments)
	}
	results, err := docStore.SearchKeyword(ctx, "second", 5)
	if err != nil {
		t.Fatalf("SearchKeyword() error = %v", err)
	}
	if len(results) == 0 {
		t.Error("replacement content not searchable")
	}
}

func TestRemoveWatchedFile(t *testing.T) {
	ingestor, docStore := newTestIngestor(t, defaultIngestConfig())
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.txt")

	if err := os.WriteFile(path, []byte("temporary content"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := ingestor.IngestFile(ctx, path); err != nil {
		t.Fatalf("IngestFile() error = %v", err)
	}
	if err := ingestor.Remove(ctx, path); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	stats, _ := docStore.Stats(ctx)
	if stats.TotalDocuments != 0 {
		t.Errorf("TotalDocuments = %d after remove, want 0", stats.TotalDocuments)
	}
	if err := ingestor.Remove(ctx, path); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("second Remove() error = %v, want ErrNotFound", err)
	}
}
