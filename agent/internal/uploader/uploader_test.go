package uploader

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glimpsebox/glimpse/agent/internal/capture"
	"github.com/glimpsebox/glimpse/pkg/types"
)

// writeArtifact puts fake PNG bytes on disk and returns a task referencing them.
func writeArtifact(t *testing.T, data []byte) *Task {
	t.Helper()
	path := filepath.Join(t.TempDir(), "screen_1_1700000000123.png")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return &Task{
		Artifact: capture.Artifact{
			DisplayIndex: 1,
			DisplayID:    "0",
			DisplayName:  "Screen 1",
			CapturedAt:   time.UnixMilli(1700000000123).UTC(),
			Width:        1920,
			Height:       1080,
			FilePath:     path,
		},
		AccountEmail: "kiosk@example.com",
		SubjectName:  "Lobby Kiosk",
	}
}

func TestAttemptDelivered(t *testing.T) {
	raw := []byte("not-a-real-png")
	var gotAuth, gotCT string
	var gotPayload types.CapturePayload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCT = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	u := New()
	u.SetTarget(srv.URL+"/api/v1/captures", "tok-123")

	out := u.Attempt(context.Background(), writeArtifact(t, raw))
	if out.Status != Delivered {
		t.Fatalf("status = %v, err = %v", out.Status, out.Err)
	}

	if gotAuth != "tok-123" {
		t.Errorf("Authorization = %q, want raw token", gotAuth)
	}
	if gotCT != "application/json" {
		t.Errorf("Content-Type = %q", gotCT)
	}
	if gotPayload.AccountEmail != "kiosk@example.com" || gotPayload.SubjectName != "Lobby Kiosk" {
		t.Errorf("identity = %q / %q", gotPayload.AccountEmail, gotPayload.SubjectName)
	}
	if gotPayload.ScreenNumber != 1 || gotPayload.DisplayID != "0" || gotPayload.ScreenName != "Screen 1" {
		t.Errorf("display fields = %d / %q / %q",
			gotPayload.ScreenNumber, gotPayload.DisplayID, gotPayload.ScreenName)
	}
	if gotPayload.Timestamp != 1700000000123 {
		t.Errorf("timestamp = %d", gotPayload.Timestamp)
	}
	if gotPayload.Metadata.Width != 1920 || gotPayload.Metadata.Height != 1080 {
		t.Errorf("metadata dims = %dx%d", gotPayload.Metadata.Width, gotPayload.Metadata.Height)
	}
	if want := time.UnixMilli(1700000000123).UTC().Format(time.RFC3339); gotPayload.Metadata.CapturedAt != want {
		t.Errorf("capturedAt = %q, want %q", gotPayload.Metadata.CapturedAt, want)
	}
	decoded, err := base64.StdEncoding.DecodeString(gotPayload.Image)
	if err != nil {
		t.Fatalf("image not valid base64: %v", err)
	}
	if string(decoded) != string(raw) {
		t.Error("image bytes did not round-trip")
	}
}

func TestAttemptSkippedWithoutEndpoint(t *testing.T) {
	u := New()
	out := u.Attempt(context.Background(), writeArtifact(t, []byte("png")))
	if out.Status != Skipped {
		t.Fatalf("status = %v", out.Status)
	}
	if out.Err != nil {
		t.Errorf("unexpected err: %v", out.Err)
	}
}

func TestAttemptRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	u := New()
	u.SetTarget(srv.URL+"/api/v1/captures", "")

	out := u.Attempt(context.Background(), writeArtifact(t, []byte("png")))
	if out.Status != RateLimited {
		t.Fatalf("status = %v", out.Status)
	}
	if out.RetryAfter != 5*time.Second {
		t.Errorf("RetryAfter = %v, want 5s", out.RetryAfter)
	}
}

func TestAttemptRateLimitedWithoutHint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	u := New()
	u.SetTarget(srv.URL+"/api/v1/captures", "")

	out := u.Attempt(context.Background(), writeArtifact(t, []byte("png")))
	if out.Status != RateLimited {
		t.Fatalf("status = %v", out.Status)
	}
	if out.RetryAfter != 0 {
		t.Errorf("RetryAfter = %v, want 0", out.RetryAfter)
	}
}

func TestAttemptServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	u := New()
	u.SetTarget(srv.URL+"/api/v1/captures", "")

	out := u.Attempt(context.Background(), writeArtifact(t, []byte("png")))
	if out.Status != Failed || !out.Retryable {
		t.Fatalf("outcome = %+v, want retryable failure", out)
	}
}

func TestAttemptConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	u := New()
	u.SetTarget(srv.URL+"/api/v1/captures", "")

	out := u.Attempt(context.Background(), writeArtifact(t, []byte("png")))
	if out.Status != Failed || !out.Retryable {
		t.Fatalf("outcome = %+v, want retryable failure", out)
	}
}

func TestAttemptMissingArtifact(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer srv.Close()

	u := New()
	u.SetTarget(srv.URL+"/api/v1/captures", "")

	task := writeArtifact(t, []byte("png"))
	task.Artifact.FilePath = filepath.Join(t.TempDir(), "vanished.png")

	out := u.Attempt(context.Background(), task)
	if out.Status != Failed || out.Retryable {
		t.Fatalf("outcome = %+v, want non-retryable failure", out)
	}
	if n := requests.Load(); n != 0 {
		t.Errorf("issued %d requests for unreadable artifact", n)
	}
}

func TestTestConnection(t *testing.T) {
	var probed atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/health" && r.Method == http.MethodGet {
			probed.Add(1)
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	u := New()
	u.SetTarget(srv.URL+"/api/v1/captures", "tok")

	if err := u.TestConnection(context.Background()); err != nil {
		t.Fatalf("TestConnection: %v", err)
	}
	if probed.Load() != 1 {
		t.Errorf("health endpoint probed %d times", probed.Load())
	}
}

func TestTestConnectionUnhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	u := New()
	u.SetTarget(srv.URL+"/api/v1/captures", "")

	if err := u.TestConnection(context.Background()); err == nil {
		t.Fatal("expected error for 503 health response")
	}
}

func TestTestConnectionUnconfigured(t *testing.T) {
	if err := New().TestConnection(context.Background()); err == nil {
		t.Fatal("expected error with no endpoint configured")
	}
}

func TestHealthURL(t *testing.T) {
	cases := []struct {
		endpoint string
		want     string
	}{
		{"https://collector.example.com/api/v1/captures", "https://collector.example.com/api/v1/health"},
		{"https://collector.example.com/upload", "https://collector.example.com/health"},
		{"https://collector.example.com/upload/", "https://collector.example.com/health"},
		{"https://collector.example.com", "https://collector.example.com/health"},
		{"http://localhost:8080/api/v1/captures", "http://localhost:8080/api/v1/health"},
	}
	for _, tc := range cases {
		got, err := healthURL(tc.endpoint)
		if err != nil {
			t.Errorf("healthURL(%q): %v", tc.endpoint, err)
			continue
		}
		if got != tc.want {
			t.Errorf("healthURL(%q) = %q, want %q", tc.endpoint, got, tc.want)
		}
	}
}

func TestRetryAfterHint(t *testing.T) {
	cases := []struct {
		header string
		want   time.Duration
	}{
		{"5", 5 * time.Second},
		{"0", 0},
		{"", 0},
		{"soon", 0},
		{"-3", 0},
		{" 7 ", 7 * time.Second},
	}
	for _, tc := range cases {
		h := http.Header{}
		if tc.header != "" {
			h.Set("Retry-After", tc.header)
		}
		if got := retryAfterHint(h); got != tc.want {
			t.Errorf("retryAfterHint(%q) = %v, want %v", tc.header, got, tc.want)
		}
	}
}
