package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"horeca-pos/backend/internal/security"
)

func testTokens(t *testing.T) *security.TokenProvider {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	return tokens
}

func issueToken(t *testing.T, tokens *security.TokenProvider, id security.Identity) string {
	t.Helper()
	token, _, _, err := tokens.IssueAccess(id)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	return token
}

func TestAuthValidToken(t *testing.T) {
	tokens := testTokens(t)
	token := issueToken(t, tokens, security.Identity{TenantID: "tenant-1", Role: "support", DisplayName: "Rudi"})

	var gotID security.Identity
	var gotOK bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, gotOK = GetIdentity(r.Context())
	})
	h := Auth(tokens, nil)(next)

	req := httptest.NewRequest("GET", "/v1/sessions/active", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !gotOK {
		t.Fatal("identity not set")
	}
	if gotID.TenantID != "tenant-1" || gotID.Role != "support" || gotID.DisplayName != "Rudi" {
		t.Errorf("identity = %+v", gotID)
	}
}

func TestAuthMissingToken(t *testing.T) {
	tokens := testTokens(t)
	called := false
	h := Auth(tokens, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/sessions/active", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if called {
		t.Error("handler called without token")
	}
}

func TestAuthInvalidToken(t *testing.T) {
	tokens := testTokens(t)
	h := Auth(tokens, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for _, header := range []string{"Bearer garbage", "Basic abc", "Bearer"} {
		req := httptest.NewRequest("GET", "/v1/sessions/active", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want 401", header, rec.Code)
		}
	}
}

func TestAuthPublicPath(t *testing.T) {
	tokens := testTokens(t)
	public := map[string]bool{"/healthz": true}
	called := false
	h := Auth(tokens, public)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != http.StatusOK || !called {
		t.Fatalf("status = %d, called = %v", rec.Code, called)
	}
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name       string
		forwarded  string
		realIP     string
		remoteAddr string
		want       string
	}{
		{"x-forwarded-for single", "10.0.0.1", "", "192.0.2.1:1234", "10.0.0.1"},
		{"x-forwarded-for chain", "10.0.0.1, 10.0.0.2", "", "192.0.2.1:1234", "10.0.0.1"},
		{"x-real-ip", "", "10.0.0.3", "192.0.2.1:1234", "10.0.0.3"},
		{"remote addr", "", "", "192.0.2.1:1234", "192.0.2.1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if tc.realIP != "" {
				req.Header.Set("X-Real-Ip", tc.realIP)
			}
			if got := ClientIP(req); got != tc.want {
				t.Errorf("ClientIP = %q, want %q", got, tc.want)
			}
		})
	}
}
