package chat

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/minechat-api/internal/domain"
	"github.com/minechat-api/internal/infrastructure/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCompleter struct{ mock.Mock }

func (m *mockCompleter) CreateCompletion(ctx context.Context, req openai.CompletionRequest) (json.RawMessage, error) {
	args := m.Called(ctx, req)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

func messages(texts ...string) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(texts))
	for _, t := range texts {
		out = append(out, json.RawMessage(`{"role":"user","content":"`+t+`"}`))
	}
	return out
}

func TestComplete_MissingMessages(t *testing.T) {
	svc := NewService(nil)
	_, err := svc.Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestComplete_AppliesDefaults(t *testing.T) {
	c := &mockCompleter{}
	c.On("CreateCompletion", mock.Anything, mock.MatchedBy(func(req openai.CompletionRequest) bool {
		return req.Model == openai.DefaultModel &&
			req.MaxTokens == openai.DefaultMaxTokens &&
			req.Temperature == openai.DefaultTemperature
	})).Return(json.RawMessage(`{"id":"cmpl-1"}`), nil)

	svc := NewService(c)
	body, err := svc.Complete(context.Background(), Request{Messages: messages("hi")})

	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"cmpl-1"}`, string(body))
	c.AssertExpectations(t)
}

func TestComplete_CallerOverridesWin(t *testing.T) {
	c := &mockCompleter{}
	temp := 0.2
	c.On("CreateCompletion", mock.Anything, mock.MatchedBy(func(req openai.CompletionRequest) bool {
		return req.Model == "gpt-4o" && req.MaxTokens == 50 && req.Temperature == 0.2
	})).Return(json.RawMessage(`{}`), nil)

	svc := NewService(c)
	_, err := svc.Complete(context.Background(), Request{
		Messages: messages("hi"), Model: "gpt-4o", MaxTokens: 50, Temperature: &temp,
	})

	require.NoError(t, err)
	c.AssertExpectations(t)
}

func TestComplete_ZeroTemperatureIsRespected(t *testing.T) {
	c := &mockCompleter{}
	temp := 0.0
	c.On("CreateCompletion", mock.Anything, mock.MatchedBy(func(req openai.CompletionRequest) bool {
		return req.Temperature == 0.0
	})).Return(json.RawMessage(`{}`), nil)

	svc := NewService(c)
	_, err := svc.Complete(context.Background(), Request{Messages: messages("hi"), Temperature: &temp})
	require.NoError(t, err)
	c.AssertExpectations(t)
}

func TestComplete_UpstreamErrorPassesThrough(t *testing.T) {
	c := &mockCompleter{}
	upstream := &openai.UpstreamError{StatusCode: 429, Body: json.RawMessage(`{"error":"rate limit"}`)}
	c.On("CreateCompletion", mock.Anything, mock.Anything).Return(nil, upstream)

	svc := NewService(c)
	_, err := svc.Complete(context.Background(), Request{Messages: messages("hi")})

	var ue *openai.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, 429, ue.StatusCode)
}
