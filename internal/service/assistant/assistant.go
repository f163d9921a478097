// Package assistant answers questions from the uploaded documents and keeps
// the running conversation.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"docchat/internal/models"
)

const (
	DefaultTopK          = 4
	DefaultHistoryWindow = 6
)

// ErrEmptyQuestion is returned for blank questions.
var ErrEmptyQuestion = errors.New("question is required")

type Retriever interface {
	Retrieve(ctx context.Context, question string, k int) []models.Chunk
}

type Memory interface {
	Append(ctx context.Context, question, answer string) (*models.Exchange, error)
	Recent(ctx context.Context, n int) ([]models.Exchange, error)
	Clear(ctx context.Context) error
}

type Answerer interface {
	Answer(ctx context.Context, question string, history []models.Exchange, passages []models.Chunk) (string, error)
}

type Service struct {
	docs   Retriever
	memory Memory
	ai     Answerer
	topK   int
	window int
}

func NewService(docs Retriever, memory Memory, ai Answerer, topK, window int) *Service {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if window < 0 {
		window = DefaultHistoryWindow
	}
	return &Service{docs: docs, memory: memory, ai: ai, topK: topK, window: window}
}

// Ask answers question from the best matching passages and the recent
// conversation, then records the exchange. The returned answer ends with the
// passages it was built from.
func (s *Service) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}
	passages := s.docs.Retrieve(ctx, question, s.topK)
	history, err := s.memory.Recent(ctx, s.window)
	if err != nil {
		// answer without history rather than fail the question
		log.Printf("load conversation history failed: %v", err)
		history = nil
	}

	answer, err := s.ai.Answer(ctx, question, history, passages)
	if err != nil {
		return "", fmt.Errorf("answer question: %w", err)
	}
	if _, err := s.memory.Append(ctx, question, answer); err != nil {
		log.Printf("record exchange failed: %v", err)
	}
	return withSources(answer, passages), nil
}

// Reset forgets the conversation; documents stay indexed.
func (s *Service) Reset(ctx context.Context) error {
	return s.memory.Clear(ctx)
}

func withSources(answer string, passages []models.Chunk) string {
	if len(passages) == 0 {
		return answer
	}
	seen := make(map[string]struct{}, len(passages))
	sources := make([]string, 0, len(passages))
	for _, p := range passages {
		src := p.Source()
		if _, ok := seen[src]; ok {
			continue
		}
		seen[src] = struct{}{}
		sources = append(sources, src)
	}
	return answer + "\n\nSources: " + strings.Join(sources, ", ")
}
