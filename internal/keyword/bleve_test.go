package keyword

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(filepath.Join(t.TempDir(), "keyword.bleve"))
	if err != nil {
		t.Fatalf("NewBleveIndex() error = %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestBleveIndexSearch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	docs := map[string]*ChunkDoc{
		"doc1_0": {Content: "the quick brown fox jumps over the lazy dog", Filename: "animals.txt"},
		"doc1_1": {Content: "pack my box with five dozen liquor jugs", Filename: "animals.txt"},
		"doc2_0": {Content: "sphinx of black quartz judge my vow", Filename: "stones.txt"},
	}
	if err := idx.Batch(ctx, docs); err != nil {
		t.Fatalf("Batch() error = %v", err)
	}

	results, err := idx.Search(ctx, "quick fox", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) == 0 {
		t.Fatal("Search() returned no results")
	}
	if results[0].ID != "doc1_0" {
		t.Errorf("top result = %s, want doc1_0", results[0].ID)
	}
	if results[0].Score <= 0 {
		t.Errorf("top score = %f, want > 0", results[0].Score)
	}
}

func TestBleveIndexSearchNoMatch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	if err := idx.Index(ctx, "c1", &ChunkDoc{Content: "hello world", Filename: "a.txt"}); err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	results, err := idx.Search(ctx, "zanzibar", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestBleveIndexDelete(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	docs := map[string]*ChunkDoc{
		"d1_0": {Content: "alpha beta", Filename: "x.txt"},
		"d1_1": {Content: "alpha gamma", Filename: "x.txt"},
	}
	if err := idx.Batch(ctx, docs); err != nil {
		t.Fatalf("Batch() error = %v", err)
	}
	if err := idx.Delete(ctx, []string{"d1_0", "d1_1"}); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	count, err := idx.DocCount()
	if err != nil {
		t.Fatalf("DocCount() error = %v", err)
	}
	if count != 0 {
		t.Errorf("DocCount() = %d after delete, want 0", count)
	}
}

func TestBleveIndexClear(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	if err := idx.Index(ctx, "c1", &ChunkDoc{Content: "to be cleared", Filename: "a.txt"}); err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if err := idx.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	count, err := idx.DocCount()
	if err != nil {
		t.Fatalf("DocCount() error = %v", err)
	}
	if count != 0 {
		t.Errorf("DocCount() = %d after clear, want 0", count)
	}
	// Index stays usable after clear.
	if err := idx.Index(ctx, "c2", &ChunkDoc{Content: "fresh start", Filename: "b.txt"}); err != nil {
		t.Fatalf("Index() after Clear() error = %v", err)
	}
	results, err := idx.Search(ctx, "fresh", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 {
		t.Errorf("got %d results after re-index, want 1", len(results))
	}
}

func TestBleveIndexReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keyword.bleve")
	ctx := context.Background()

	idx, err := NewBleveIndex(path)
	if err != nil {
		t.Fatalf("NewBleveIndex() error = %v", err)
	}
	if err := idx.Index(ctx, "c1", &ChunkDoc{Content: "persistent content", Filename: "a.txt"}); err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewBleveIndex(path)
	if err != nil {
		t.Fatalf("NewBleveIndex() reopen error = %v", err)
	}
	defer reopened.Close()
	results, err := reopened.Search(ctx, "persistent", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].ID != "c1" {
		t.Errorf("reopened search results = %v, want one hit c1", results)
	}
}
