package handler

import (
	"encoding/json"
	"net/http"

	"github.com/minechat-api/internal/application/chat"
)

// ChatHandler proxies chat-completion requests.
type ChatHandler struct {
	svc chat.Service
}

func NewChatHandler(svc chat.Service) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// Completions forwards the request upstream and relays the response body
// verbatim, success and failure alike.
func (h *ChatHandler) Completions(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	body, err := h.svc.Complete(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeUpstream(w, http.StatusOK, body)
}
