package chat

import (
	"context"
	"encoding/json"

	"github.com/minechat-api/internal/domain"
	"github.com/minechat-api/internal/infrastructure/openai"
)

// Request is the client-facing completion payload. Only messages is
// required; the rest falls back to server defaults so the mobile client
// never ships tuning parameters it does not care about.
type Request struct {
	Messages    []json.RawMessage `json:"messages" validate:"required,min=1"`
	Model       string            `json:"model"`
	MaxTokens   int               `json:"max_tokens"`
	Temperature *float64          `json:"temperature"`
}

// Completer forwards a completion request upstream.
type Completer interface {
	CreateCompletion(ctx context.Context, req openai.CompletionRequest) (json.RawMessage, error)
}

// Service proxies chat completions, holding the upstream credential
// server-side and applying defaults for omitted tuning fields.
type Service interface {
	Complete(ctx context.Context, req Request) (json.RawMessage, error)
}

type service struct {
	completer Completer
}

func NewService(completer Completer) Service {
	return &service{completer: completer}
}

func (s *service) Complete(ctx context.Context, req Request) (json.RawMessage, error) {
	if len(req.Messages) == 0 {
		return nil, domain.Errorf(domain.ErrBadRequest, "Missing messages")
	}
	upstream := openai.CompletionRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: openai.DefaultTemperature,
	}
	if upstream.Model == "" {
		upstream.Model = openai.DefaultModel
	}
	if upstream.MaxTokens <= 0 {
		upstream.MaxTokens = openai.DefaultMaxTokens
	}
	if req.Temperature != nil {
		upstream.Temperature = *req.Temperature
	}
	return s.completer.CreateCompletion(ctx, upstream)
}
