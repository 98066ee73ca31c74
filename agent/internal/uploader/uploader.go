// Package uploader performs single HTTP delivery attempts of captured
// artifacts to the collector and classifies each outcome. Retry policy lives
// with the caller; this package only reports what happened.
package uploader

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/glimpsebox/glimpse/pkg/types"
)

const (
	attemptTimeout = 30 * time.Second
	probeTimeout   = 5 * time.Second
	healthSegment  = "health"
)

// Uploader posts capture payloads to the configured collector endpoint.
// The endpoint and token are replaceable at runtime via SetTarget; each
// attempt reads them fresh, so a live reconfiguration applies to the very
// next delivery.
type Uploader struct {
	mu       sync.Mutex
	endpoint string
	token    string

	client *http.Client
}

// New creates an Uploader with no collector configured. Attempts are
// skipped until SetTarget provides an endpoint.
func New() *Uploader {
	return &Uploader{client: &http.Client{}}
}

// SetTarget replaces the collector endpoint and auth token. An empty
// endpoint returns the uploader to the unconfigured state.
func (u *Uploader) SetTarget(endpoint, token string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.endpoint = endpoint
	u.token = token
}

// Target reports the current endpoint and whether one is configured.
func (u *Uploader) Target() (string, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.endpoint, u.endpoint != ""
}

func (u *Uploader) target() (endpoint, token string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.endpoint, u.token
}

// Attempt performs one delivery of task's artifact. The artifact bytes are
// read from disk on every attempt so the queue itself stays lightweight.
// The request carries a hard timeout and survives cancellation of ctx: a
// pipeline stop lets an in-flight attempt finish and report its outcome.
func (u *Uploader) Attempt(ctx context.Context, task *Task) Outcome {
	endpoint, token := u.target()
	if endpoint == "" {
		slog.Info("uploader: no collector endpoint configured, keeping artifact",
			"file", task.Artifact.FilePath)
		return Outcome{Status: Skipped}
	}

	data, err := os.ReadFile(task.Artifact.FilePath)
	if err != nil {
		return Outcome{Status: Failed, Err: fmt.Errorf("read artifact: %w", err)}
	}

	payload := types.CapturePayload{
		AccountEmail: task.AccountEmail,
		SubjectName:  task.SubjectName,
		ScreenNumber: task.Artifact.DisplayIndex,
		DisplayID:    task.Artifact.DisplayID,
		ScreenName:   task.Artifact.DisplayName,
		Timestamp:    task.Artifact.CapturedAt.UnixMilli(),
		Image:        base64.StdEncoding.EncodeToString(data),
		Metadata: types.CaptureMetadata{
			Width:      task.Artifact.Width,
			Height:     task.Artifact.Height,
			CapturedAt: task.Artifact.CapturedAt.UTC().Format(time.RFC3339),
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Outcome{Status: Failed, Err: fmt.Errorf("encode payload: %w", err)}
	}

	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Outcome{Status: Failed, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return Outcome{Status: Failed, Retryable: true, Err: fmt.Errorf("post capture: %w", err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return Outcome{Status: Delivered}

	case resp.StatusCode == http.StatusTooManyRequests:
		return Outcome{
			Status:     RateLimited,
			RetryAfter: retryAfterHint(resp.Header),
		}

	default:
		return Outcome{
			Status:    Failed,
			Retryable: true,
			Err:       fmt.Errorf("collector returned %s", resp.Status),
		}
	}
}

// TestConnection probes the collector's health endpoint with a short
// timeout. It returns nil on any 2xx and an error otherwise, including
// when no endpoint is configured.
func (u *Uploader) TestConnection(ctx context.Context) error {
	endpoint, token := u.target()
	if endpoint == "" {
		return fmt.Errorf("no collector endpoint configured")
	}

	probe, err := healthURL(endpoint)
	if err != nil {
		return err
	}

	reqCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, probe, nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe collector: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("collector health returned %s", resp.Status)
	}
	return nil
}

// healthURL derives the health probe URL from the upload endpoint by
// replacing the final path segment: .../api/v1/captures -> .../api/v1/health.
// An endpoint with no path probes /health at the root.
func healthURL(endpoint string) (string, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	trimmed := strings.TrimSuffix(parsed.Path, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		parsed.Path = trimmed[:i+1] + healthSegment
	} else {
		parsed.Path = "/" + healthSegment
	}
	return parsed.String(), nil
}

// retryAfterHint parses an integer-seconds Retry-After header. Zero means
// no usable hint was present. The HTTP-date form of the header is rare
// enough on rate limiters that it is treated as absent.
func retryAfterHint(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
