package documents

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/cloudwego/eino-ext/components/document/loader/file"
	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/components/document/parser"

	"docchat/internal/models"
)

// Index keeps every ingested document's chunks in memory and answers
// term-overlap searches over them.
type Index struct {
	loader  document.Loader
	size    int
	overlap int

	mu      sync.RWMutex
	order   []int64
	chunks  map[int64][]models.Chunk
	terms   map[int64][]map[string]struct{}
	version int64
}

// NewIndex builds the loader chain: PDFs through the pdf parser, everything else as plain text.
func NewIndex(ctx context.Context) (*Index, error) {
	pdfParser, err := newPDFParser(ctx)
	if err != nil {
		return nil, fmt.Errorf("init pdf parser: %w", err)
	}
	extParser, err := parser.NewExtParser(ctx, &parser.ExtParserConfig{
		Parsers: map[string]parser.Parser{
			".pdf": pdfParser,
		},
		FallbackParser: parser.TextParser{},
	})
	if err != nil {
		return nil, fmt.Errorf("init document parser: %w", err)
	}
	loader, err := file.NewFileLoader(ctx, &file.FileLoaderConfig{
		UseNameAsID: true,
		Parser:      extParser,
	})
	if err != nil {
		return nil, fmt.Errorf("init file loader: %w", err)
	}
	return newIndex(loader), nil
}

func newIndex(loader document.Loader) *Index {
	return &Index{
		loader:  loader,
		size:    DefaultChunkSize,
		overlap: DefaultChunkOverlap,
		chunks:  make(map[int64][]models.Chunk),
		terms:   make(map[int64][]map[string]struct{}),
	}
}

// Load reads the stored file and returns its text.
func (ix *Index) Load(ctx context.Context, path string) (string, error) {
	docs, err := ix.loader.Load(ctx, document.Source{URI: path})
	if err != nil {
		return "", fmt.Errorf("load %s: %w", path, err)
	}
	var b strings.Builder
	for _, d := range docs {
		content := strings.TrimSpace(d.Content)
		if content == "" {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String()), nil
}

// Add replaces doc's chunks with the chunks of text and returns how many were stored.
func (ix *Index) Add(doc models.Document, text string) int {
	pieces := Split(text, ix.size, ix.overlap)
	chunks := make([]models.Chunk, len(pieces))
	terms := make([]map[string]struct{}, len(pieces))
	for i, p := range pieces {
		chunks[i] = models.Chunk{DocumentID: doc.ID, FileName: doc.FileName, Index: i, Text: p}
		terms[i] = termSet(p)
	}

	ix.mu.Lock()
	if _, ok := ix.chunks[doc.ID]; !ok {
		ix.order = append(ix.order, doc.ID)
	}
	ix.chunks[doc.ID] = chunks
	ix.terms[doc.ID] = terms
	ix.version++
	ix.mu.Unlock()
	return len(chunks)
}

// Remove drops every chunk of a document. It reports whether the document was indexed.
func (ix *Index) Remove(docID int64) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, ok := ix.chunks[docID]; !ok {
		return false
	}
	delete(ix.chunks, docID)
	delete(ix.terms, docID)
	for i, id := range ix.order {
		if id == docID {
			ix.order = append(ix.order[:i], ix.order[i+1:]...)
			break
		}
	}
	ix.version++
	return true
}

// Has reports whether the document has been indexed.
func (ix *Index) Has(docID int64) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.chunks[docID]
	return ok
}

// Version changes every time the indexed content changes.
func (ix *Index) Version() int64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.version
}

// Len counts indexed chunks.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	n := 0
	for _, c := range ix.chunks {
		n += len(c)
	}
	return n
}

// Chunk returns chunk index of a document along with the document's chunk count.
func (ix *Index) Chunk(docID int64, index int) (models.Chunk, int, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	chunks, ok := ix.chunks[docID]
	if !ok || index < 0 || index >= len(chunks) {
		return models.Chunk{}, len(chunks), false
	}
	return chunks[index], len(chunks), true
}

// Search returns up to k chunks sharing the most terms with question.
// Ties keep ingestion order; chunks with no shared term are never returned.
func (ix *Index) Search(question string, k int) []models.Chunk {
	if k <= 0 {
		return nil
	}
	query := termSet(question)
	if len(query) == 0 {
		return nil
	}

	type scored struct {
		chunk models.Chunk
		score int
	}
	var results []scored

	ix.mu.RLock()
	for _, id := range ix.order {
		for i, set := range ix.terms[id] {
			score := 0
			for t := range query {
				if _, ok := set[t]; ok {
					score++
				}
			}
			if score > 0 {
				results = append(results, scored{chunk: ix.chunks[id][i], score: score})
			}
		}
	}
	ix.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
	if len(results) > k {
		results = results[:k]
	}
	out := make([]models.Chunk, len(results))
	for i, r := range results {
		out[i] = r.chunk
	}
	return out
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"do": {}, "does": {}, "for": {}, "from": {}, "how": {}, "in": {}, "is": {}, "it": {},
	"of": {}, "on": {}, "or": {}, "that": {}, "the": {}, "this": {}, "to": {}, "was": {},
	"what": {}, "when": {}, "where": {}, "which": {}, "who": {}, "why": {}, "with": {},
}

func termSet(text string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if len(w) < 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}
