package ai

import (
	"context"
	"strings"
	"testing"

	"docchat/internal/models"
)

type fakeReader map[int64][]string

func (f fakeReader) Chunk(id int64, index int) (models.Chunk, int, bool) {
	texts := f[id]
	if index < 0 || index >= len(texts) {
		return models.Chunk{}, len(texts), false
	}
	return models.Chunk{DocumentID: id, FileName: "doc.pdf", Index: index, Text: texts[index]}, len(texts), true
}

func TestDocumentReaderTool(t *testing.T) {
	tool := initDocumentReader(fakeReader{1: {"first", "second"}})
	ctx := context.Background()

	out, err := tool.InvokableRun(ctx, `{"document_id": 1, "chunk_index": 1}`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "Chunk 2/2") || !strings.Contains(out, "second") {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = tool.InvokableRun(ctx, `{"document_id": 1, "chunk_index": 9}`)
	if err != nil || !strings.Contains(out, "second") {
		t.Fatalf("out of range index should clamp to last chunk: %q %v", out, err)
	}

	if _, err := tool.InvokableRun(ctx, `{"document_id": 2}`); err == nil {
		t.Fatalf("expected error for unknown document")
	}
	if _, err := tool.InvokableRun(ctx, `{}`); err == nil {
		t.Fatalf("expected error without document_id")
	}
}

func TestToolRateLimiter(t *testing.T) {
	l := newToolRateLimiter(2, ReaderRateWindow)
	if !l.Allow("k") || !l.Allow("k") {
		t.Fatalf("first calls should pass")
	}
	if l.Allow("k") {
		t.Fatalf("third call should be limited")
	}
	if !l.Allow("other") {
		t.Fatalf("keys are independent")
	}
}
