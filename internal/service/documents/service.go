// Package documents stores uploaded files, indexes their text and retrieves
// the passages relevant to a question.
package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docchat/internal/models"
)

// ErrUnsupportedType is returned for files the parser chain cannot read.
var ErrUnsupportedType = errors.New("unsupported file type")

// ErrEmptyDocument is returned when a file has no extractable text.
var ErrEmptyDocument = errors.New("document has no readable text")

var mimeTypes = map[string]string{
	".pdf": "application/pdf",
	".txt": "text/plain",
	".md":  "text/markdown",
}

// Supported reports whether fileName has an extension the index can parse.
func Supported(fileName string) bool {
	_, ok := mimeTypes[strings.ToLower(filepath.Ext(fileName))]
	return ok
}

type Service struct {
	store     *Store
	index     *Index
	cache     *RetrievalCache
	uploadDir string
}

func NewService(store *Store, index *Index, cache *RetrievalCache, uploadDir string) *Service {
	if uploadDir == "" {
		uploadDir = "./data"
	}
	return &Service{store: store, index: index, cache: cache, uploadDir: uploadDir}
}

func (s *Service) Index() *Index {
	return s.index
}

// Save writes content under the upload directory with a name that does not
// collide with earlier uploads, and records it.
func (s *Service) Save(ctx context.Context, fileName string, content io.Reader) (*models.Document, error) {
	fileName = filepath.Base(fileName)
	ext := strings.ToLower(filepath.Ext(fileName))
	mime, ok := mimeTypes[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, fileName)
	}
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	var (
		dest string
		f    *os.File
		err  error
	)
	// another upload may claim the same name between the check and the create
	for attempt := 0; attempt < 5; attempt++ {
		dest = s.uniquePath(fileName)
		f, err = os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if !os.IsExist(err) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", dest, err)
	}
	size, err := io.Copy(f, content)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return nil, fmt.Errorf("write %s: %w", dest, err)
	}

	doc, err := s.store.Create(ctx, models.Document{
		FileName:   fileName,
		StoredPath: dest,
		MimeType:   mime,
		Size:       size,
	})
	if err != nil {
		os.Remove(dest)
		return nil, err
	}
	return doc, nil
}

// Discard removes a saved document that could not be indexed.
func (s *Service) Discard(ctx context.Context, doc *models.Document) {
	if doc == nil {
		return
	}
	s.index.Remove(doc.ID)
	if err := s.store.Delete(ctx, doc.ID); err != nil {
		log.Printf("delete document record %d failed: %v", doc.ID, err)
	}
	if err := os.Remove(doc.StoredPath); err != nil && !os.IsNotExist(err) {
		log.Printf("remove %s failed: %v", doc.StoredPath, err)
	}
}

// Ingest extracts the document's text and adds it to the index.
func (s *Service) Ingest(ctx context.Context, doc *models.Document) (int, error) {
	text, err := s.index.Load(ctx, doc.StoredPath)
	if err != nil {
		return 0, err
	}
	if text == "" {
		return 0, fmt.Errorf("%w: %s", ErrEmptyDocument, doc.FileName)
	}
	n := s.index.Add(*doc, text)
	if err := s.store.SetChunks(ctx, doc.ID, n); err != nil {
		// only recorded documents may be searched
		s.index.Remove(doc.ID)
		return 0, err
	}
	doc.Chunks = n
	return n, nil
}

// IngestByID indexes a document recorded by another instance.
func (s *Service) IngestByID(ctx context.Context, id int64) error {
	if s.index.Has(id) {
		return nil
	}
	doc, err := s.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("document %d: %w", id, err)
	}
	_, err = s.Ingest(ctx, doc)
	return err
}

// Reindex loads every recorded document into the index.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	docs, err := s.store.List(ctx)
	if err != nil {
		return 0, err
	}
	indexed := 0
	for i := range docs {
		if _, err := s.Ingest(ctx, &docs[i]); err != nil {
			log.Printf("reindex %s failed: %v", docs[i].FileName, err)
			continue
		}
		indexed++
	}
	return indexed, nil
}

// Retrieve returns the top k passages for question.
func (s *Service) Retrieve(ctx context.Context, question string, k int) []models.Chunk {
	version := s.index.Version()
	if chunks, ok := s.cache.Get(ctx, version, k, question); ok {
		return chunks
	}
	chunks := s.index.Search(question, k)
	s.cache.Put(ctx, version, k, question, chunks)
	return chunks
}

func (s *Service) List(ctx context.Context) ([]models.Document, error) {
	return s.store.List(ctx)
}

func (s *Service) uniquePath(fileName string) string {
	dest := filepath.Join(s.uploadDir, fileName)
	if _, err := os.Stat(dest); os.IsNotExist(err) {
		return dest
	}
	ext := filepath.Ext(fileName)
	base := strings.TrimSuffix(fileName, ext)
	for idx := 1; idx <= 1000; idx++ {
		candidate := filepath.Join(s.uploadDir, fmt.Sprintf("%s (%d)%s", base, idx, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
	return filepath.Join(s.uploadDir, fmt.Sprintf("%s-%d%s", base, time.Now().UnixNano(), ext))
}
