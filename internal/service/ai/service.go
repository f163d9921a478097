package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"docchat/internal/config"
	"docchat/internal/models"
)

// ErrEmptyAnswer is returned when the model produced no text.
var ErrEmptyAnswer = errors.New("model returned an empty answer")

const systemPrompt = `You are a helpful assistant answering questions from the user's uploaded documents.
Stick to the context provided. Each passage is labelled with its source as [file#chunk] and
its document_id; call document_reader with a document_id and chunk_index when a passage is
cut off and you need the neighbouring text.
If the question is unrelated to the documents or the context does not contain the answer,
politely say that you can only answer questions based on the document content.`

// Service answers questions with a chat model, optionally through a tool-using agent.
type Service struct {
	chatModel model.ToolCallingChatModel
	agent     *react.Agent
}

// chatModelFactory is swapped in tests.
var chatModelFactory = newChatModel

// NewService builds the chat model for cfg.BasicConfig.Provider. reader backs
// the document_reader tool; nil disables tools.
func NewService(ctx context.Context, cfg *config.Config, reader ChunkReader) (*Service, error) {
	provider := cfg.BasicConfig.Provider
	provCfg, ok := cfg.Providers[provider]
	if !ok {
		return nil, fmt.Errorf("provider %s not configured", provider)
	}
	chatModel, err := chatModelFactory(ctx, provider, provCfg)
	if err != nil {
		return nil, fmt.Errorf("init %s chat model: %w", provider, err)
	}
	var tools []tool.BaseTool
	if reader != nil {
		tools = InitToolsChain(reader)
	}
	return newService(ctx, chatModel, tools)
}

func newService(ctx context.Context, chatModel model.ToolCallingChatModel, tools []tool.BaseTool) (*Service, error) {
	s := &Service{chatModel: chatModel}
	if len(tools) > 0 {
		agent, err := react.NewAgent(ctx, &react.AgentConfig{
			ToolCallingModel: chatModel,
			ToolsConfig: compose.ToolsNodeConfig{
				Tools: tools,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("init react agent: %w", err)
		}
		s.agent = agent
	}
	return s, nil
}

func newChatModel(ctx context.Context, provider string, provCfg config.ProviderConfig) (model.ToolCallingChatModel, error) {
	if provCfg.APIKey == "" {
		log.Printf("provider %s has no api key configured", provider)
	}
	switch provider {
	case "openai":
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: provCfg.BaseURL,
			Model:   provCfg.Model,
			APIKey:  provCfg.APIKey,
		})
	case "gemini":
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey: provCfg.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("new gemini client: %w", err)
		}
		return gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  provCfg.Model,
			ThinkingConfig: &genai.ThinkingConfig{
				IncludeThoughts: false,
				ThinkingBudget:  nil,
			},
		})
	case "claude":
		var baseURLPtr *string
		if provCfg.BaseURL != "" {
			baseURLPtr = &provCfg.BaseURL
		}
		return claude.NewChatModel(ctx, &claude.Config{
			APIKey:    provCfg.APIKey,
			Model:     provCfg.Model,
			BaseURL:   baseURLPtr,
			MaxTokens: 3000,
		})
	default:
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
}

// Answer asks the model question, grounded on passages, continuing history.
func (s *Service) Answer(ctx context.Context, question string, history []models.Exchange, passages []models.Chunk) (string, error) {
	messages := buildMessages(question, history, passages)

	var (
		out *schema.Message
		err error
	)
	if s.agent != nil {
		out, err = s.agent.Generate(ctx, messages)
	} else {
		out, err = s.chatModel.Generate(ctx, messages)
	}
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return "", ErrEmptyAnswer
	}
	return strings.TrimSpace(out.Content), nil
}

func buildMessages(question string, history []models.Exchange, passages []models.Chunk) []*schema.Message {
	messages := make([]*schema.Message, 0, 2+2*len(history))
	messages = append(messages, schema.SystemMessage(systemPrompt))
	for _, ex := range history {
		messages = append(messages,
			schema.UserMessage(ex.Question),
			schema.AssistantMessage(ex.Answer, nil),
		)
	}

	var b strings.Builder
	b.WriteString("Context:\n")
	if len(passages) == 0 {
		b.WriteString("(no matching passages)\n")
	}
	for _, p := range passages {
		fmt.Fprintf(&b, "[%s] (document_id=%d)\n%s\n\n", p.Source(), p.DocumentID, p.Text)
	}
	b.WriteString("\nUser Question:\n")
	b.WriteString(question)
	messages = append(messages, schema.UserMessage(b.String()))
	return messages
}
