package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/minechat-api/internal/application/chat"
	"github.com/minechat-api/internal/infrastructure/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockChatService struct{ mock.Mock }

func (m *mockChatService) Complete(ctx context.Context, req chat.Request) (json.RawMessage, error) {
	args := m.Called(ctx, req)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

func TestCompletions_RelaysBody(t *testing.T) {
	svc := &mockChatService{}
	svc.On("Complete", mock.Anything, mock.Anything).
		Return(json.RawMessage(`{"id":"cmpl-1"}`), nil)

	h := NewChatHandler(svc)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions",
		bytes.NewBufferString(`{"messages":[{"role":"user","content":"hi"}]}`))
	rec := httptest.NewRecorder()

	h.Completions(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"cmpl-1"}`, rec.Body.String())
}

func TestCompletions_UpstreamErrorRelayedVerbatim(t *testing.T) {
	svc := &mockChatService{}
	svc.On("Complete", mock.Anything, mock.Anything).
		Return(nil, &openai.UpstreamError{StatusCode: 429, Body: []byte(`{"error":"rate limit"}`)})

	h := NewChatHandler(svc)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions",
		bytes.NewBufferString(`{"messages":[{"role":"user","content":"hi"}]}`))
	rec := httptest.NewRecorder()

	h.Completions(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"rate limit"}`, rec.Body.String())
}

func TestCompletions_BadBody(t *testing.T) {
	h := NewChatHandler(&mockChatService{})
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions",
		bytes.NewBufferString(`not json`))
	rec := httptest.NewRecorder()

	h.Completions(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
