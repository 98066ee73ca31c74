package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func passHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok")) //nolint:errcheck
	})
}

func callWithToken(t *testing.T, expected, sent string) *httptest.ResponseRecorder {
	t.Helper()
	h := TokenMiddleware(expected)(passHandler())
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/captures", nil)
	if sent != "" {
		req.Header.Set("Authorization", sent)
	}
	h.ServeHTTP(rr, req)
	return rr
}

func TestTokenMiddleware_EmptyToken_PassesThrough(t *testing.T) {
	rr := callWithToken(t, "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 with auth disabled", rr.Code)
	}
}

func TestTokenMiddleware_CorrectToken_Passes(t *testing.T) {
	rr := callWithToken(t, "supersecret", "supersecret")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
}

func TestTokenMiddleware_WrongToken_Rejected(t *testing.T) {
	rr := callWithToken(t, "supersecret", "nope")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", rr.Code)
	}
}

func TestTokenMiddleware_MissingToken_Rejected(t *testing.T) {
	rr := callWithToken(t, "supersecret", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q", ct)
	}
}
