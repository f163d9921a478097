package documents

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"docchat/internal/config"
	"docchat/internal/storage"
)

func newTestService(t *testing.T) (*Service, *sql.DB, string) {
	t.Helper()
	cfg := &config.Config{Databases: map[string]config.DBConfig{"sqlite3": {DSN: ":memory:"}}}
	db, err := storage.Open("sqlite3", cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.Migrate(db, "sqlite3"))

	ix, err := NewIndex(context.Background())
	require.NoError(t, err)
	dir := t.TempDir()
	return NewService(NewStore(db), ix, NewRetrievalCache(nil), dir), db, dir
}

func TestSaveIngestRetrieve(t *testing.T) {
	svc, _, dir := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Save(ctx, "handbook.txt", strings.NewReader("Employees get twenty vacation days per year."))
	require.NoError(t, err)
	require.Equal(t, "handbook.txt", doc.FileName)
	require.Equal(t, "text/plain", doc.MimeType)
	require.Equal(t, dir, filepath.Dir(doc.StoredPath))

	n, err := svc.Ingest(ctx, doc)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	docs, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, 1, docs[0].Chunks)

	hits := svc.Retrieve(ctx, "how many vacation days?", 4)
	require.Len(t, hits, 1)
	require.Equal(t, "handbook.txt#0", hits[0].Source())
}

func TestSaveKeepsDuplicateNamesApart(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Save(ctx, "report.txt", strings.NewReader("one"))
	require.NoError(t, err)
	b, err := svc.Save(ctx, "report.txt", strings.NewReader("two"))
	require.NoError(t, err)
	require.NotEqual(t, a.StoredPath, b.StoredPath)
	require.NotEqual(t, a.ID, b.ID)

	data, err := os.ReadFile(a.StoredPath)
	require.NoError(t, err)
	require.Equal(t, "one", string(data))
}

func TestSaveRejectsUnsupportedType(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Save(context.Background(), "image.png", strings.NewReader("x"))
	require.True(t, errors.Is(err, ErrUnsupportedType))
	require.True(t, Supported("paper.PDF"))
	require.False(t, Supported("paper.docx"))
}

func TestIngestEmptyDocumentFailsAndDiscards(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Save(ctx, "blank.txt", strings.NewReader("   \n"))
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, doc)
	require.ErrorIs(t, err, ErrEmptyDocument)

	svc.Discard(ctx, doc)
	docs, err := svc.List(ctx)
	require.NoError(t, err)
	require.Empty(t, docs)
	_, statErr := os.Stat(doc.StoredPath)
	require.True(t, os.IsNotExist(statErr))
}

func TestReindexRestoresRecordedDocuments(t *testing.T) {
	svc, db, dir := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Save(ctx, "faq.md", strings.NewReader("Refunds are processed within five business days."))
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, doc)
	require.NoError(t, err)

	// a fresh index over the same database, as after a restart
	ix, err := NewIndex(ctx)
	require.NoError(t, err)
	restarted := NewService(NewStore(db), ix, nil, dir)
	require.Empty(t, restarted.Retrieve(ctx, "refunds processed", 4))

	n, err := restarted.Reindex(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Len(t, restarted.Retrieve(ctx, "refunds processed", 4), 1)

	require.NoError(t, restarted.IngestByID(ctx, doc.ID))
	require.Error(t, restarted.IngestByID(ctx, 999))
}

func TestIngestOfUnrecordedDocumentLeavesNothingSearchable(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Save(ctx, "secret.txt", strings.NewReader("The zebra payroll closes on Friday."))
	require.NoError(t, err)
	// the record vanishes before the chunk count is stored
	_, err = db.Exec(`DELETE FROM documents WHERE id = ?`, doc.ID)
	require.NoError(t, err)

	_, err = svc.Ingest(ctx, doc)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.False(t, svc.Index().Has(doc.ID))

	svc.Discard(ctx, doc)
	require.Empty(t, svc.Retrieve(ctx, "zebra payroll", 4))
}

func TestDiscardRemovesIndexedChunks(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Save(ctx, "policy.txt", strings.NewReader("Badges must be worn inside the lab."))
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, doc)
	require.NoError(t, err)
	require.Len(t, svc.Retrieve(ctx, "badges lab", 4), 1)

	svc.Discard(ctx, doc)
	require.False(t, svc.Index().Has(doc.ID))
	require.Empty(t, svc.Retrieve(ctx, "badges lab", 4))
}

func TestIngestPDF(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	f, err := os.Open(filepath.Join("testdata", "report.pdf"))
	require.NoError(t, err)
	defer f.Close()

	doc, err := svc.Save(ctx, "report.pdf", f)
	require.NoError(t, err)
	require.Equal(t, "application/pdf", doc.MimeType)

	n, err := svc.Ingest(ctx, doc)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	hits := svc.Retrieve(ctx, "When is overtime paid at double rate?", 4)
	require.Len(t, hits, 1)
	require.Equal(t, "report.pdf#0", hits[0].Source())
	require.Contains(t, strings.ToLower(hits[0].Text), "zebra payroll")
}
