package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storebot/internal/service"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuth(t *testing.T) service.AuthService {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	return service.NewAuthService("test-secret", string(hash), []int64{7}, time.Hour, zap.NewNop())
}

func protectedHandler(t *testing.T, auth service.AuthService) http.Handler {
	t.Helper()

	return AuthMiddleware(auth, zap.NewNop())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			adminID, ok := GetAdminID(r.Context())
			if !ok || adminID != 7 {
				t.Errorf("expected admin id 7 on context, got %d (ok=%v)", adminID, ok)
			}
			role, ok := GetRole(r.Context())
			if !ok || role != "admin" {
				t.Errorf("expected admin role on context, got %q (ok=%v)", role, ok)
			}
			w.WriteHeader(http.StatusOK)
		}))
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	auth := newTestAuth(t)
	handler := protectedHandler(t, auth)

	token, err := auth.AdminLogin(7, "secret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAuthMiddleware_RejectsBadRequests(t *testing.T) {
	auth := newTestAuth(t)
	handler := AuthMiddleware(auth, zap.NewNop())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler must not be reached")
		}))

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "not a bearer token", header: "Basic abc123"},
		{name: "garbage token", header: "Bearer not.a.jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", w.Code)
			}
		})
	}
}

func TestRequireAdmin_BlocksMissingRole(t *testing.T) {
	handler := RequireAdmin(zap.NewNop())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler must not be reached")
		}))

	req := httptest.NewRequest("GET", "/admin", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}
