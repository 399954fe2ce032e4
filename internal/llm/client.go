package llm

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sashabaranov/go-openai"
)

// Message is a single conversation turn sent to the language model.
type Message struct {
	Role    string
	Content string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Client is the external language-model collaborator. Given a prompt it
// returns best-effort natural-language text that may contain one JSON object;
// callers never assume the response is well formed and always keep a
// deterministic fallback. Calls are synchronous with no retry policy.
type Client interface {
	Complete(ctx context.Context, messages []Message, system string, maxTokens int, temperature float32) (string, error)
}

// OpenAIClient talks to the OpenAI (or Azure OpenAI) chat completion API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClientFromEnv builds a client from environment configuration.
// AZURE_OPENAI_API_KEY + AZURE_OPENAI_ENDPOINT + AZURE_OPENAI_DEPLOYMENT
// select the Azure flavor; otherwise OPENAI_API_KEY is used with OPENAI_MODEL
// (default gpt-3.5-turbo). Returns an error when no key is configured; the
// caller decides whether to run without a collaborator.
func NewOpenAIClientFromEnv() (*OpenAIClient, error) {
	if key := os.Getenv("AZURE_OPENAI_API_KEY"); key != "" {
		endpoint := os.Getenv("AZURE_OPENAI_ENDPOINT")
		deployment := os.Getenv("AZURE_OPENAI_DEPLOYMENT")
		if endpoint == "" || deployment == "" {
			return nil, errors.New("AZURE_OPENAI_ENDPOINT and AZURE_OPENAI_DEPLOYMENT must be set with AZURE_OPENAI_API_KEY")
		}
		cfg := openai.DefaultAzureConfig(key, endpoint)
		if version := os.Getenv("AZURE_OPENAI_API_VERSION"); version != "" {
			cfg.APIVersion = version
		}
		return &OpenAIClient{
			client: openai.NewClientWithConfig(cfg),
			model:  deployment,
		}, nil
	}

	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, errors.New("no OPENAI_API_KEY or AZURE_OPENAI_API_KEY configured")
	}
	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(openai.DefaultConfig(key)),
		model:  model,
	}, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, messages []Message, system string, maxTokens int, temperature float32) (string, error) {
	chat := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		chat = append(chat, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, m := range messages {
		chat = append(chat, openai.ChatCompletionMessage{
			Role:    chatRole(m.Role),
			Content: m.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    chat,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func chatRole(role string) string {
	switch role {
	case RoleSystem:
		return openai.ChatMessageRoleSystem
	case RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}
