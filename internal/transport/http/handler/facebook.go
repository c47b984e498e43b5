package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/minechat-api/internal/application/relay"
	"github.com/minechat-api/internal/application/token"
	"github.com/minechat-api/internal/pkg/validate"
)

// FacebookHandler handles message sending, conversation management, page
// connection, and the admin token-management actions.
type FacebookHandler struct {
	tokens token.Service
	relay  relay.Service
}

func NewFacebookHandler(tokens token.Service, relaySvc relay.Service) *FacebookHandler {
	return &FacebookHandler{tokens: tokens, relay: relaySvc}
}

func (h *FacebookHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req relay.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	body, err := h.relay.SendMessage(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SendEnvelope{OK: true, Response: body})
}

func (h *FacebookHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	var req relay.DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	applied, err := h.relay.DeleteConversation(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteEnvelope{OK: true, Type: applied})
}

// connectAction is the only action the connect endpoint accepts.
const connectAction = "connect_and_load_chats"

func (h *FacebookHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string `json:"action" validate:"required"`
		relay.ConnectRequest
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Action != connectAction {
		writeError(w, http.StatusBadRequest, "unknown action")
		return
	}
	if err := validate.Struct(&req.ConnectRequest); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	res, err := h.relay.ConnectAndLoadChats(r.Context(), req.ConnectRequest)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ConnectEnvelope{
		OK:                  true,
		PageID:              res.PageID,
		PageName:            res.PageName,
		ConversationsCount:  res.ConversationsCount,
		ConversationsFailed: res.ConversationsFailed,
	})
}

func (h *FacebookHandler) TokenAction(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "action") {
	case "derive":
		h.derive(w, r)
	case "store":
		h.store(w, r)
	case "exchange":
		h.exchange(w, r)
	case "exchange-with-pages":
		h.exchangeWithPages(w, r)
	case "debug":
		h.debug(w, r)
	case "page-token":
		h.pageToken(w, r)
	case "pages":
		h.pages(w, r)
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}

func (h *FacebookHandler) derive(w http.ResponseWriter, r *http.Request) {
	var req token.DeriveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	res, err := h.tokens.Derive(r.Context(), req.PageID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenEnvelope{
		OK: true, PageID: res.PageID, IsValid: res.IsValid, ExpiresAt: res.ExpiresAt,
	})
}

func (h *FacebookHandler) store(w http.ResponseWriter, r *http.Request) {
	var req token.StoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	res, err := h.tokens.StoreManual(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenEnvelope{
		OK: true, PageID: res.PageID, IsValid: res.IsValid, ExpiresAt: res.ExpiresAt,
	})
}

func (h *FacebookHandler) exchange(w http.ResponseWriter, r *http.Request) {
	var req token.ExchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	res, err := h.tokens.Exchange(r.Context(), req.ShortLivedToken)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ExchangeEnvelope{
		OK: true, AccessToken: res.AccessToken, TokenType: res.TokenType, ExpiresIn: res.ExpiresIn,
	})
}

func (h *FacebookHandler) exchangeWithPages(w http.ResponseWriter, r *http.Request) {
	var req token.ExchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	res, err := h.tokens.ExchangeAndStorePages(r.Context(), req.ShortLivedToken)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PagesEnvelope{
		OK:                 true,
		PagesCount:         res.PagesCount,
		Pages:              res.Pages,
		UserTokenExpiresIn: res.UserTokenExpiresIn,
	})
}

func (h *FacebookHandler) debug(w http.ResponseWriter, r *http.Request) {
	var req token.DebugRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	raw, err := h.tokens.Debug(r.Context(), req.Token)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DebugEnvelope{OK: true, Data: raw})
}

func (h *FacebookHandler) pageToken(w http.ResponseWriter, r *http.Request) {
	var req token.PageTokenFromUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	tok, err := h.tokens.PageTokenFromUser(r.Context(), req.PageID, req.LongLivedUserToken)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PageTokenEnvelope{OK: true, PageAccessToken: tok})
}

func (h *FacebookHandler) pages(w http.ResponseWriter, r *http.Request) {
	var req token.ListPagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	pages, err := h.tokens.ListPages(r.Context(), req.LongLivedUserToken)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PagesEnvelope{OK: true, PagesCount: len(pages), Pages: pages})
}
