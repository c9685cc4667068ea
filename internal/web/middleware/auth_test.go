package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/viewlulu/pouch-backend/internal/auth"
	"github.com/viewlulu/pouch-backend/internal/catalog"
)

// stubVerifier accepts a single known token.
type stubVerifier struct {
	token    string
	identity *auth.Identity
}

func (v *stubVerifier) VerifyToken(token string) (*auth.Identity, error) {
	if token == v.token {
		return v.identity, nil
	}
	return nil, catalog.ErrUnauthorized
}

func TestRequireAuth(t *testing.T) {
	verifier := &stubVerifier{
		token:    "valid-token",
		identity: &auth.Identity{UserID: 42, Email: "tester@example.com"},
	}

	var seen *auth.Identity
	handler := RequireAuth(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetIdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUserID int64
	}{
		{"valid token", "Bearer valid-token", http.StatusOK, 42},
		{"missing header", "", http.StatusUnauthorized, 0},
		{"wrong scheme", "Basic valid-token", http.StatusUnauthorized, 0},
		{"empty token", "Bearer ", http.StatusUnauthorized, 0},
		{"unknown token", "Bearer other-token", http.StatusUnauthorized, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/api/v1/cosmetics/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantStatus == http.StatusUnauthorized {
				if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
					t.Errorf("expected Content-Type application/json, got %q", ct)
				}
				var body map[string]string
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
					t.Fatalf("401 body is not JSON: %v\nBody: %s", err, rec.Body.String())
				}
				if body["message"] != "unauthorized" {
					t.Errorf("expected message 'unauthorized', got %q", body["message"])
				}
			}
			if tt.wantStatus == http.StatusOK {
				if seen == nil || seen.UserID != tt.wantUserID {
					t.Errorf("expected identity with user id %d in context, got %+v", tt.wantUserID, seen)
				}
			} else if seen != nil {
				t.Errorf("handler must not run on rejected requests")
			}
		})
	}
}

func TestGetIdentityFromContextMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if identity := GetIdentityFromContext(req.Context()); identity != nil {
		t.Errorf("expected nil identity, got %+v", identity)
	}
}

// failingVerifier always errors, covering verifier backends going away.
type failingVerifier struct{}

func (failingVerifier) VerifyToken(string) (*auth.Identity, error) {
	return nil, errors.New("verifier unavailable")
}

func TestRequireAuthVerifierFailure(t *testing.T) {
	handler := RequireAuth(failingVerifier{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
