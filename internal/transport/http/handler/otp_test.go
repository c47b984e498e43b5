package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/minechat-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockOTPService struct{ mock.Mock }

func (m *mockOTPService) SendCode(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}
func (m *mockOTPService) VerifyCode(ctx context.Context, email, code string) (string, error) {
	args := m.Called(ctx, email, code)
	return args.String(0), args.Error(1)
}

func postAction(h *OTPHandler, action, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Post("/v1/auth/otp/{action}", h.Action)
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/otp/"+action, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// --- tests ---

func TestOTPSend_OK(t *testing.T) {
	svc := &mockOTPService{}
	svc.On("SendCode", mock.Anything, "a@b.com").Return(nil)

	rec := postAction(NewOTPHandler(svc), "send", `{"email":"a@b.com"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.OK)
	svc.AssertExpectations(t)
}

func TestOTPSend_CooldownReturns200WithError(t *testing.T) {
	svc := &mockOTPService{}
	svc.On("SendCode", mock.Anything, "a@b.com").
		Return(domain.Errorf(domain.ErrConflict, "Please wait 30s before requesting a new code."))

	rec := postAction(NewOTPHandler(svc), "send", `{"email":"a@b.com"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.False(t, env.OK)
	assert.Equal(t, "Please wait 30s before requesting a new code.", env.Error)
}

func TestOTPSend_ValidationReturns400(t *testing.T) {
	svc := &mockOTPService{}
	svc.On("SendCode", mock.Anything, "nope").
		Return(domain.Errorf(domain.ErrBadRequest, "Invalid email"))

	rec := postAction(NewOTPHandler(svc), "send", `{"email":"nope"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "Invalid email", env.Error)
}

func TestOTPVerify_ReturnsResetToken(t *testing.T) {
	svc := &mockOTPService{}
	svc.On("VerifyCode", mock.Anything, "a@b.com", "123456").Return("tok123", nil)

	rec := postAction(NewOTPHandler(svc), "verify", `{"email":"a@b.com","code":"123456"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	var env VerifyEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.OK)
	assert.Equal(t, "tok123", env.ResetToken)
}

func TestOTPVerify_WrongCodeReturns200WithError(t *testing.T) {
	svc := &mockOTPService{}
	svc.On("VerifyCode", mock.Anything, "a@b.com", "000000").
		Return("", domain.Errorf(domain.ErrUnauthorized, "Invalid code. Please try again."))

	rec := postAction(NewOTPHandler(svc), "verify", `{"email":"a@b.com","code":"000000"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.False(t, env.OK)
	assert.Equal(t, "Invalid code. Please try again.", env.Error)
}

func TestOTPAction_Unknown(t *testing.T) {
	rec := postAction(NewOTPHandler(&mockOTPService{}), "bogus", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
