// Package agents holds the LLM-backed assistants. Every agent degrades to a fixed
// fallback value instead of returning an error.
package agents

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
	// ImageURL turns the message into a text+image part list for the vision model.
	ImageURL string
}

type Request struct {
	Vision      bool
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

type Response struct {
	Content    string
	Model      string
	TokensUsed int
}

// Completer performs one chat completion round-trip.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

var (
	ErrEmptyCompletion       = errors.New("empty completion")
	ErrUnparseableCompletion = errors.New("unparseable completion")
)

// GroqCompleter talks to Groq through its OpenAI-compatible endpoint.
type GroqCompleter struct {
	client      *openai.Client
	textModel   string
	visionModel string
}

type GroqConfig struct {
	APIKey      string
	BaseURL     string
	TextModel   string
	VisionModel string
	Timeout     time.Duration
}

func NewGroqCompleter(cfg GroqConfig) *GroqCompleter {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	oc.HTTPClient = &http.Client{Timeout: timeout}
	return &GroqCompleter{
		client:      openai.NewClientWithConfig(oc),
		textModel:   cfg.TextModel,
		visionModel: cfg.VisionModel,
	}
}

func (g *GroqCompleter) Complete(ctx context.Context, req Request) (Response, error) {
	model := g.textModel
	if req.Vision {
		model = g.visionModel
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.ImageURL == "" {
			msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
			continue
		}
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role: m.Role,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: m.Content},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: m.ImageURL}},
			},
		})
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return Response{Model: model}, fmt.Errorf("groq completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Response{Model: model}, ErrEmptyCompletion
	}
	return Response{
		Content:    resp.Choices[0].Message.Content,
		Model:      model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}
