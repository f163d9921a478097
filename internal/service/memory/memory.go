// Package memory is the backend's conversation buffer: every answered
// question is kept, and the most recent exchanges are replayed into prompts.
package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"docchat/internal/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append records one question/answer pair.
func (s *Store) Append(ctx context.Context, question, answer string) (*models.Exchange, error) {
	if question == "" || answer == "" {
		return nil, errors.New("question and answer are required")
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO exchanges (question, answer, created_at) VALUES (?, ?, ?)`,
		question, answer, now,
	)
	if err != nil {
		return nil, fmt.Errorf("append exchange: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("exchange id: %w", err)
	}
	return &models.Exchange{ID: id, Question: question, Answer: answer, CreatedAt: now}, nil
}

// Recent returns the last n exchanges, oldest first.
func (s *Store) Recent(ctx context.Context, n int) ([]models.Exchange, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question, answer, created_at FROM exchanges ORDER BY id DESC LIMIT ?`, n,
	)
	if err != nil {
		return nil, fmt.Errorf("recent exchanges: %w", err)
	}
	defer rows.Close()

	var out []models.Exchange
	for rows.Next() {
		var e models.Exchange
		if err := rows.Scan(&e.ID, &e.Question, &e.Answer, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Clear forgets the whole conversation.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM exchanges`); err != nil {
		return fmt.Errorf("clear exchanges: %w", err)
	}
	return nil
}
