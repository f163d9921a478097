package documents

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"docchat/internal/models"
)

func TestIndexSearchRanksByOverlap(t *testing.T) {
	ix := newIndex(nil)
	ix.Add(models.Document{ID: 1, FileName: "fruit.txt"}, "Apples are red and bananas are yellow.")
	ix.Add(models.Document{ID: 2, FileName: "space.txt"}, "The rocket reached orbit around the moon.")
	ix.Add(models.Document{ID: 3, FileName: "mixed.txt"}, "A rocket made of bananas.")

	got := ix.Search("Which rocket reached the moon?", 4)
	if len(got) != 2 {
		t.Fatalf("expected 2 hits, got %+v", got)
	}
	if got[0].FileName != "space.txt" || got[1].FileName != "mixed.txt" {
		t.Fatalf("unexpected ranking: %s, %s", got[0].Source(), got[1].Source())
	}
	if hits := ix.Search("the of and", 4); len(hits) != 0 {
		t.Fatalf("stop words alone should not match: %+v", hits)
	}
	if hits := ix.Search("rocket", 1); len(hits) != 1 {
		t.Fatalf("k should cap results, got %d", len(hits))
	}
}

func TestIndexVersionAndReplace(t *testing.T) {
	ix := newIndex(nil)
	v0 := ix.Version()
	ix.Add(models.Document{ID: 7, FileName: "a.txt"}, "first version")
	ix.Add(models.Document{ID: 7, FileName: "a.txt"}, "second version")
	if ix.Version() != v0+2 {
		t.Fatalf("version should bump per add, got %d", ix.Version())
	}
	if ix.Len() != 1 {
		t.Fatalf("re-adding a document should replace its chunks, len=%d", ix.Len())
	}
	c, total, ok := ix.Chunk(7, 0)
	if !ok || total != 1 || c.Text != "second version" {
		t.Fatalf("unexpected chunk %+v total=%d ok=%v", c, total, ok)
	}
	if _, _, ok := ix.Chunk(7, 5); ok {
		t.Fatalf("out of range chunk should not be found")
	}
}

func TestIndexLoadsTextFiles(t *testing.T) {
	ctx := context.Background()
	ix, err := NewIndex(ctx)
	if err != nil {
		t.Fatalf("new index: %v", err)
	}
	path := filepath.Join(t.TempDir(), "notes.md")
	if err := os.WriteFile(path, []byte("# Notes\n\nThe launch window opens in March."), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	text, err := ix.Load(ctx, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if text == "" {
		t.Fatalf("expected text from markdown file")
	}
	n := ix.Add(models.Document{ID: 1, FileName: "notes.md"}, text)
	if n != 1 {
		t.Fatalf("expected 1 chunk, got %d", n)
	}
	if hits := ix.Search("when does the launch window open", 4); len(hits) != 1 {
		t.Fatalf("expected a hit, got %+v", hits)
	}
}

func TestIndexRemove(t *testing.T) {
	ix := newIndex(nil)
	ix.Add(models.Document{ID: 1, FileName: "a.txt"}, "rocket launch schedule")
	ix.Add(models.Document{ID: 2, FileName: "b.txt"}, "rocket fuel budget")
	v := ix.Version()

	if !ix.Remove(1) {
		t.Fatalf("expected document 1 to be removed")
	}
	if ix.Remove(1) {
		t.Fatalf("second removal should report false")
	}
	if ix.Version() != v+1 {
		t.Fatalf("removal should bump the version once, got %d want %d", ix.Version(), v+1)
	}
	hits := ix.Search("rocket", 4)
	if len(hits) != 1 || hits[0].DocumentID != 2 {
		t.Fatalf("only document 2 should remain, got %+v", hits)
	}
}
