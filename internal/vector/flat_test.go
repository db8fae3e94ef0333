package vector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/seradocs/sera/internal/models"
)

func TestFlatIndexAddSearch(t *testing.T) {
	idx, err := NewFlatIndex(3)
	if err != nil {
		t.Fatalf("NewFlatIndex() error = %v", err)
	}
	ctx := context.Background()
	ids := []string{"a", "b", "c"}
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0.9, 0.1, 0},
	}
	if err := idx.Add(ctx, ids, vectors); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ID != "a" {
		t.Errorf("top result = %s, want a", results[0].ID)
	}
	if results[1].ID != "c" {
		t.Errorf("second result = %s, want c", results[1].ID)
	}
	if results[0].Score < results[1].Score {
		t.Error("results not sorted descending")
	}
}

func TestFlatIndexSearchEmpty(t *testing.T) {
	idx, _ := NewFlatIndex(3)
	results, err := idx.Search(context.Background(), []float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results from empty index, want 0", len(results))
	}
}

func TestFlatIndexDimensionChecks(t *testing.T) {
	idx, _ := NewFlatIndex(3)
	ctx := context.Background()
	if err := idx.Add(ctx, []string{"a"}, [][]float32{{1, 0}}); !errors.Is(err, models.ErrDimensionMismatch) {
		t.Errorf("Add() with wrong dimension error = %v, want ErrDimensionMismatch", err)
	}
	if _, err := idx.Search(ctx, []float32{1, 0}, 1); !errors.Is(err, models.ErrDimensionMismatch) {
		t.Errorf("Search() with wrong dimension error = %v, want ErrDimensionMismatch", err)
	}
	if _, err := NewFlatIndex(0); err == nil {
		t.Error("NewFlatIndex(0) should fail")
	}
}

func TestFlatIndexAddRejectsWholeBatch(t *testing.T) {
	idx, _ := NewFlatIndex(3)
	ctx := context.Background()
	// A bad vector mid-batch must not leave the earlier ones behind.
	err := idx.Add(ctx, []string{"a", "b"}, [][]float32{{1, 0, 0}, {1, 0}})
	if !errors.Is(err, models.ErrDimensionMismatch) {
		t.Fatalf("Add() error = %v, want ErrDimensionMismatch", err)
	}
	if idx.Size() != 0 {
		t.Errorf("Size() = %d after rejected batch, want 0", idx.Size())
	}
}

func TestFlatIndexRemove(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	ctx := context.Background()
	if err := idx.Add(ctx, []string{"x", "y", "z"}, [][]float32{{1, 0}, {0, 1}, {1, 1}}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := idx.Remove(ctx, []string{"x", "z"}); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if idx.Size() != 1 {
		t.Fatalf("Size() = %d after remove, want 1", idx.Size())
	}
	results, err := idx.Search(ctx, []float32{0, 1}, 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].ID != "y" {
		t.Errorf("remaining result = %v, want only y", results)
	}
}

func TestFlatIndexSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.bin")
	ctx := context.Background()

	idx, _ := NewFlatIndex(4)
	ids := []string{"chunk_0", "chunk_1"}
	vectors := [][]float32{{0.1, 0.2, 0.3, 0.4}, {0.5, 0.6, 0.7, 0.8}}
	if err := idx.Add(ctx, ids, vectors); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := idx.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, _ := NewFlatIndex(4)
	if err := loaded.Load(path); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Size() != 2 {
		t.Fatalf("loaded Size() = %d, want 2", loaded.Size())
	}
	results, err := loaded.Search(ctx, []float32{0.5, 0.6, 0.7, 0.8}, 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if results[0].ID != "chunk_1" {
		t.Errorf("top result after reload = %s, want chunk_1", results[0].ID)
	}
}

func TestFlatIndexLoadMissingFile(t *testing.T) {
	idx, _ := NewFlatIndex(4)
	if err := idx.Load(filepath.Join(t.TempDir(), "does-not-exist.bin")); err != nil {
		t.Errorf("Load() of missing file should be nil, got %v", err)
	}
	if idx.Size() != 0 {
		t.Errorf("Size() = %d, want 0", idx.Size())
	}
}

func TestFlatIndexLoadDimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.bin")
	ctx := context.Background()

	idx, _ := NewFlatIndex(2)
	if err := idx.Add(ctx, []string{"a"}, [][]float32{{1, 0}}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := idx.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	other, _ := NewFlatIndex(3)
	if err := other.Load(path); err == nil {
		t.Error("Load() with mismatched dimensions should fail")
	}
}

func TestFlatIndexClear(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.bin")
	ctx := context.Background()

	idx, _ := NewFlatIndex(2)
	if err := idx.Add(ctx, []string{"a"}, [][]float32{{1, 0}}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := idx.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := idx.Clear(path); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if idx.Size() != 0 {
		t.Errorf("Size() = %d after clear, want 0", idx.Size())
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("snapshot file still present after clear")
	}
	// Clearing an already-clear index is fine.
	if err := idx.Clear(path); err != nil {
		t.Errorf("second Clear() error = %v", err)
	}
}

func TestFlatIndexStableTieBreak(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	ctx := context.Background()
	// Identical vectors score identically; insertion order must hold.
	if err := idx.Add(ctx, []string{"first", "second"}, [][]float32{{1, 0}, {1, 0}}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	results, err := idx.Search(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if results[0].ID != "first" || results[1].ID != "second" {
		t.Errorf("tie-break order = [%s %s], want [first second]", results[0].ID, results[1].ID)
	}
}
