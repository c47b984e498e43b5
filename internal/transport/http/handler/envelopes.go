package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/minechat-api/internal/domain"
	"github.com/minechat-api/internal/infrastructure/facebook"
	"github.com/minechat-api/internal/infrastructure/openai"
)

// Envelope is the generic response wrapper.
type Envelope struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// VerifyEnvelope wraps a successful OTP verification.
type VerifyEnvelope struct {
	OK         bool   `json:"ok"`
	ResetToken string `json:"resetToken,omitempty"`
	Error      string `json:"error,omitempty"`
}

// TokenEnvelope wraps token derive/store responses.
type TokenEnvelope struct {
	OK        bool   `json:"ok"`
	PageID    string `json:"pageId,omitempty"`
	IsValid   bool   `json:"isValid"`
	ExpiresAt int64  `json:"expiresAt,omitempty"` // Unix seconds, 0 for non-expiring
}

// SendEnvelope wraps an outbound message send and carries the platform's
// response verbatim.
type SendEnvelope struct {
	OK       bool            `json:"ok"`
	Response json.RawMessage `json:"response,omitempty"`
}

// DeleteEnvelope reports which deletion mode was applied.
type DeleteEnvelope struct {
	OK   bool   `json:"ok"`
	Type string `json:"type,omitempty"`
}

// ExchangeEnvelope wraps a plain token exchange. The token fields keep the
// Graph API's own snake_case names.
type ExchangeEnvelope struct {
	OK          bool   `json:"ok"`
	AccessToken string `json:"access_token,omitempty"`
	TokenType   string `json:"token_type,omitempty"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
}

// PagesEnvelope wraps page listings and the login-flow connect result.
type PagesEnvelope struct {
	OK                 bool            `json:"ok"`
	PagesCount         int             `json:"pagesCount"`
	Pages              []facebook.Page `json:"pages"`
	UserTokenExpiresIn int64           `json:"userTokenExpiresIn,omitempty"`
}

// PageTokenEnvelope wraps a non-persisted page-token mint.
type PageTokenEnvelope struct {
	OK              bool   `json:"ok"`
	PageAccessToken string `json:"pageAccessToken,omitempty"`
}

// DebugEnvelope wraps a token introspection passthrough.
type DebugEnvelope struct {
	OK   bool            `json:"ok"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ConnectEnvelope wraps a page connect-and-backfill run.
type ConnectEnvelope struct {
	OK                  bool   `json:"ok"`
	PageID              string `json:"pageId,omitempty"`
	PageName            string `json:"pageName,omitempty"`
	ConversationsCount  int    `json:"conversationsCount"`
	ConversationsFailed int    `json:"conversationsFailed,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Envelope{Error: msg})
}

// writeUpstream relays an upstream response verbatim: same status, same body.
func writeUpstream(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// httpError maps a service error to an HTTP response. Upstream API errors
// are relayed verbatim; domain sentinels map to statuses; anything else is
// an opaque 500.
func httpError(w http.ResponseWriter, err error) {
	var fbErr *facebook.APIError
	if errors.As(err, &fbErr) {
		writeUpstream(w, fbErr.StatusCode, fbErr.Body)
		return
	}
	var oaErr *openai.UpstreamError
	if errors.As(err, &oaErr) {
		writeUpstream(w, oaErr.StatusCode, oaErr.Body)
		return
	}
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
	}
}

// callableError writes errors the way the OTP and reset endpoints report
// them: validation problems are 400s, state errors ride an ok:false
// envelope on HTTP 200, and everything unexpected is an opaque 500.
func callableError(w http.ResponseWriter, err error) {
	var de *domain.Error
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &de):
		writeJSON(w, http.StatusOK, Envelope{OK: false, Error: de.Error()})
	default:
		slog.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
	}
}
