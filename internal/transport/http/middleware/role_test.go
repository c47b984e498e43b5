package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/minechat-api/internal/domain"
	jwtinfra "github.com/minechat-api/internal/infrastructure/jwt"
	"github.com/stretchr/testify/assert"
)

func serveWithClaims(t *testing.T, claims *jwtinfra.Claims, role string) *httptest.ResponseRecorder {
	t.Helper()
	handler := RequireRole(role)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if claims != nil {
		req = req.WithContext(context.WithValue(req.Context(), ClaimsKey, claims))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRequireRole_NoClaims(t *testing.T) {
	rec := serveWithClaims(t, nil, domain.RoleAdmin)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole_WrongRole(t *testing.T) {
	rec := serveWithClaims(t, &jwtinfra.Claims{Role: "user"}, domain.RoleAdmin)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRole_Match(t *testing.T) {
	rec := serveWithClaims(t, &jwtinfra.Claims{Role: domain.RoleAdmin}, domain.RoleAdmin)
	assert.Equal(t, http.StatusOK, rec.Code)
}
