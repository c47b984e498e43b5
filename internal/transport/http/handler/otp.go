package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/minechat-api/internal/application/otp"
)

// OTPHandler handles the password-reset OTP flow endpoints.
type OTPHandler struct {
	svc otp.Service
}

func NewOTPHandler(svc otp.Service) *OTPHandler {
	return &OTPHandler{svc: svc}
}

func (h *OTPHandler) Action(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "action") {
	case "send":
		var req otp.SendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid email")
			return
		}
		if err := h.svc.SendCode(r.Context(), req.Email); err != nil {
			callableError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Envelope{OK: true, Message: "OTP sent"})
	case "verify":
		var req otp.VerifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid parameters")
			return
		}
		resetToken, err := h.svc.VerifyCode(r.Context(), req.Email, req.Code)
		if err != nil {
			callableError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, VerifyEnvelope{OK: true, ResetToken: resetToken})
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}
