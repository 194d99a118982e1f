// Package llm wraps the OpenAI-compatible completion API (OpenRouter) behind
// the three oracle modes the pipeline uses.
package llm

import (
	"context"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultChatModel    = "openai/gpt-4o-mini"
	DefaultSearchModel  = "perplexity/sonar"
	DefaultWritingModel = "openai/gpt-4o"

	defaultChatTimeout    = 60 * time.Second
	defaultSearchTimeout  = 90 * time.Second
	defaultWritingTimeout = 90 * time.Second
)

type ClientConfig struct {
	APIKey  string
	BaseURL string

	ChatModel    string
	SearchModel  string
	WritingModel string

	ChatTimeout    time.Duration
	SearchTimeout  time.Duration
	WritingTimeout time.Duration
}

// Client implements out.CompletionOracle. A client built without an API key
// is "unconfigured": every call returns an empty string and no error.
type Client struct {
	client *openai.Client

	chatModel    string
	searchModel  string
	writingModel string

	chatTimeout    time.Duration
	searchTimeout  time.Duration
	writingTimeout time.Duration
}

func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		chatModel:      cfg.ChatModel,
		searchModel:    cfg.SearchModel,
		writingModel:   cfg.WritingModel,
		chatTimeout:    cfg.ChatTimeout,
		searchTimeout:  cfg.SearchTimeout,
		writingTimeout: cfg.WritingTimeout,
	}
	if c.chatModel == "" {
		c.chatModel = DefaultChatModel
	}
	if c.searchModel == "" {
		c.searchModel = DefaultSearchModel
	}
	if c.writingModel == "" {
		c.writingModel = DefaultWritingModel
	}
	if c.chatTimeout == 0 {
		c.chatTimeout = defaultChatTimeout
	}
	if c.searchTimeout == 0 {
		c.searchTimeout = defaultSearchTimeout
	}
	if c.writingTimeout == 0 {
		c.writingTimeout = defaultWritingTimeout
	}

	if cfg.APIKey != "" {
		clientCfg := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = cfg.BaseURL
		}
		c.client = openai.NewClientWithConfig(clientCfg)
	}
	return c
}

// Enabled reports whether an API key was configured.
func (c *Client) Enabled() bool {
	return c.client != nil
}

func (c *Client) complete(ctx context.Context, prompt, systemPrompt, model string, temperature float32, timeout time.Duration) (string, error) {
	if c.client == nil {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}

	return resp.Choices[0].Message.Content, nil
}

// Chat is general-purpose completion using the default model.
func (c *Client) Chat(ctx context.Context, prompt, systemPrompt string) (string, error) {
	return c.complete(ctx, prompt, systemPrompt, c.chatModel, 0.3, c.chatTimeout)
}

// Search is web-grounded completion used for event discovery.
func (c *Client) Search(ctx context.Context, prompt, systemPrompt string) (string, error) {
	return c.complete(ctx, prompt, systemPrompt, c.searchModel, 0.3, c.searchTimeout)
}

// Write is creative completion used for newsletter copy.
func (c *Client) Write(ctx context.Context, prompt, systemPrompt string) (string, error) {
	return c.complete(ctx, prompt, systemPrompt, c.writingModel, 0.7, c.writingTimeout)
}
