package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"docchat/internal/config"
	"docchat/internal/models"
)

type fakeChatModel struct {
	reply string
	err   error
	seen  []*schema.Message
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.seen = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	f.seen = input
	return schema.StreamReaderFromArray([]*schema.Message{schema.AssistantMessage(f.reply, nil)}), nil
}

func (f *fakeChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return f, nil
}

func TestAnswerBuildsPromptFromHistoryAndPassages(t *testing.T) {
	fake := &fakeChatModel{reply: "  Twenty days.  "}
	svc, err := newService(context.Background(), fake, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	history := []models.Exchange{{Question: "hi", Answer: "hello"}}
	passages := []models.Chunk{{DocumentID: 3, FileName: "handbook.pdf", Index: 2, Text: "Employees get twenty vacation days."}}
	answer, err := svc.Answer(context.Background(), "How many vacation days?", history, passages)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if answer != "Twenty days." {
		t.Fatalf("unexpected answer %q", answer)
	}

	if len(fake.seen) != 4 {
		t.Fatalf("expected system + 2 history + question messages, got %d", len(fake.seen))
	}
	if fake.seen[0].Role != schema.System || fake.seen[1].Role != schema.User || fake.seen[2].Role != schema.Assistant {
		t.Fatalf("unexpected roles: %s %s %s", fake.seen[0].Role, fake.seen[1].Role, fake.seen[2].Role)
	}
	last := fake.seen[3].Content
	for _, want := range []string{"[handbook.pdf#2]", "document_id=3", "twenty vacation days", "How many vacation days?"} {
		if !strings.Contains(last, want) {
			t.Fatalf("prompt missing %q:\n%s", want, last)
		}
	}
}

func TestAnswerErrors(t *testing.T) {
	svc, _ := newService(context.Background(), &fakeChatModel{reply: "   "}, nil)
	if _, err := svc.Answer(context.Background(), "q", nil, nil); !errors.Is(err, ErrEmptyAnswer) {
		t.Fatalf("expected ErrEmptyAnswer, got %v", err)
	}

	boom := errors.New("quota exceeded")
	svc, _ = newService(context.Background(), &fakeChatModel{err: boom}, nil)
	if _, err := svc.Answer(context.Background(), "q", nil, nil); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped model error, got %v", err)
	}
}

func TestNewServiceUsesFactory(t *testing.T) {
	orig := chatModelFactory
	defer func() { chatModelFactory = orig }()

	var gotProvider string
	chatModelFactory = func(ctx context.Context, provider string, provCfg config.ProviderConfig) (model.ToolCallingChatModel, error) {
		gotProvider = provider
		return &fakeChatModel{reply: "ok"}, nil
	}

	cfg := config.Default()
	if _, err := NewService(context.Background(), cfg, nil); err != nil {
		t.Fatalf("new service: %v", err)
	}
	if gotProvider != "gemini" {
		t.Fatalf("expected gemini provider, got %q", gotProvider)
	}

	cfg.BasicConfig.Provider = "missing"
	if _, err := NewService(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error for unconfigured provider")
	}
}

func TestNewChatModelRejectsUnknownProvider(t *testing.T) {
	if _, err := newChatModel(context.Background(), "llama", config.ProviderConfig{}); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}
