package openai

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultChatModel is the model requested from the LLM endpoint.
	DefaultChatModel = "llama-4-scout-17b-16e-instruct"
	// DefaultChatBaseURL points at Cerebras' OpenAI-compatible API.
	DefaultChatBaseURL = "https://api.cerebras.ai/v1"
	// DefaultTemperature keeps answers close to the source text.
	DefaultTemperature float32 = 0.2
)

// ErrNoChoices is returned when the completion response carries no choices.
var ErrNoChoices = errors.New("completion returned no choices")

// ChatAPI is the subset of the go-openai client used for completions.
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type ChatConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
}

// ChatClient sends system+user prompts to an OpenAI-compatible chat endpoint.
type ChatClient struct {
	api         ChatAPI
	model       string
	temperature float32
}

// NewChatClient creates a ChatClient with explicit configuration.
func NewChatClient(cfg ChatConfig) *ChatClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = DefaultChatBaseURL
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return newChatClient(openai.NewClientWithConfig(clientCfg), cfg)
}

func newChatClient(api ChatAPI, cfg ChatConfig) *ChatClient {
	model := cfg.Model
	if model == "" {
		model = DefaultChatModel
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}
	return &ChatClient{api: api, model: model, temperature: temperature}
}

// Complete sends one system and one user message and returns the first
// choice's content.
func (c *ChatClient) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	return resp.Choices[0].Message.Content, nil
}
