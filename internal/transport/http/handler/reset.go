package handler

import (
	"encoding/json"
	"net/http"

	"github.com/minechat-api/internal/application/reset"
)

// ResetHandler handles password-reset session redemption.
type ResetHandler struct {
	svc reset.Service
}

func NewResetHandler(svc reset.Service) *ResetHandler {
	return &ResetHandler{svc: svc}
}

func (h *ResetHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req reset.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid parameters")
		return
	}
	if err := h.svc.Redeem(r.Context(), req); err != nil {
		callableError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{OK: true, Message: "Password updated"})
}
