package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kedai-pos/engine/internal/auth"
	"github.com/kedai-pos/engine/internal/enum"
)

const secret = "test-secret"

func protected(t *testing.T, mw func(http.Handler) http.Handler) http.Handler {
	t.Helper()
	return mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestAuthenticate_MissingHeader(t *testing.T) {
	h := protected(t, Authenticate(secret))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestAuthenticate_BadFormat(t *testing.T) {
	h := protected(t, Authenticate(secret))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestAuthenticate_ValidToken(t *testing.T) {
	tok, err := auth.GenerateToken(secret, "user-1", "outlet-1", enum.UserRoleCashier)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got *auth.Claims
	h := Authenticate(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ClaimsFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got == nil || got.UserID != "user-1" {
		t.Fatalf("claims not propagated: %+v", got)
	}
}

func TestRequireRole(t *testing.T) {
	tok, err := auth.GenerateToken(secret, "user-1", "outlet-1", enum.UserRoleCashier)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	chain := Authenticate(secret)(protected(t, RequireRole(enum.UserRoleOwner)))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for wrong role, got %d", rec.Code)
	}

	chain = Authenticate(secret)(protected(t, RequireRole(enum.UserRoleCashier, enum.UserRoleManager)))
	rec = httptest.NewRecorder()
	chain.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for allowed role, got %d", rec.Code)
	}
}
