package handler

import (
	"io"
	"net/http"

	"github.com/minechat-api/internal/application/relay"
)

// Webhook deliveries are acknowledged with this literal body; the platform
// only checks the status code, but the body matches its examples.
const webhookAck = "EVENT_RECEIVED"

const maxWebhookBody = 1 << 20 // 1 MiB

// WebhookHandler serves the messaging-platform webhook: the subscription
// handshake on GET and event deliveries on POST.
type WebhookHandler struct {
	svc         relay.Service
	verifyToken string
}

func NewWebhookHandler(svc relay.Service, verifyToken string) *WebhookHandler {
	return &WebhookHandler{svc: svc, verifyToken: verifyToken}
}

// Verify answers the subscription handshake: echo the challenge when the
// mode and verify token match, 403 otherwise.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") == "subscribe" && q.Get("hub.verify_token") == h.verifyToken {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(q.Get("hub.challenge")))
		return
	}
	w.WriteHeader(http.StatusForbidden)
}

// Deliver ingests one event batch. Per-event failures are handled inside
// the relay; only an unparseable payload or a non-page object fails the
// request, so the platform never re-delivers a batch we already processed.
func (h *WebhookHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}
	if err := h.svc.HandleWebhook(r.Context(), payload); err != nil {
		httpError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(webhookAck))
}
