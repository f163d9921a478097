package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"docchat/internal/models"
)

// Store persists document records.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a document row and returns it with its ID.
func (s *Store) Create(ctx context.Context, doc models.Document) (*models.Document, error) {
	if doc.FileName == "" || doc.StoredPath == "" {
		return nil, errors.New("file name and stored path are required")
	}
	doc.CreatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (file_name, stored_path, mime_type, size, chunks, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		doc.FileName, doc.StoredPath, doc.MimeType, doc.Size, doc.Chunks, doc.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("document id: %w", err)
	}
	doc.ID = id
	return &doc, nil
}

// SetChunks records how many chunks the document was indexed into.
func (s *Store) SetChunks(ctx context.Context, id int64, chunks int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE documents SET chunks = ? WHERE id = ?`, chunks, id)
	if err != nil {
		return fmt.Errorf("update document chunks: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Get returns one document; sql.ErrNoRows when missing.
func (s *Store) Get(ctx context.Context, id int64) (*models.Document, error) {
	var doc models.Document
	err := s.db.QueryRowContext(ctx,
		`SELECT id, file_name, stored_path, mime_type, size, chunks, created_at FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &doc.FileName, &doc.StoredPath, &doc.MimeType, &doc.Size, &doc.Chunks, &doc.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}

// List returns all documents in ingestion order.
func (s *Store) List(ctx context.Context) ([]models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file_name, stored_path, mime_type, size, chunks, created_at FROM documents ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.FileName, &d.StoredPath, &d.MimeType, &d.Size, &d.Chunks, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Delete removes a document row.
func (s *Store) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	return err
}
