package uploader

import (
	"time"

	"github.com/glimpsebox/glimpse/agent/internal/capture"
)

// Task tracks delivery of one captured artifact. A task is created alongside
// its artifact at capture time and lives until the upload succeeds or the
// retry budget is spent.
type Task struct {
	Artifact capture.Artifact

	// Identity fields recorded at enqueue time. Empty until onboarding
	// has written a profile.
	AccountEmail string
	SubjectName  string

	// RetryCount is the number of failed attempts so far. Rate-limited
	// responses do not advance it.
	RetryCount int

	// NextRetry is when the task becomes due again. Zero until the first
	// recoverable failure.
	NextRetry time.Time
}

// Status classifies the result of one delivery attempt.
type Status int

const (
	// Delivered means the collector acknowledged the capture with a 2xx.
	Delivered Status = iota

	// RateLimited means the collector answered 429; the task should be
	// requeued without spending retry budget.
	RateLimited

	// Failed covers every other non-2xx status and all transport errors.
	Failed

	// Skipped means no collector endpoint is configured; the artifact
	// stays on disk and no retry is scheduled.
	Skipped
)

func (s Status) String() string {
	switch s {
	case Delivered:
		return "delivered"
	case RateLimited:
		return "rate_limited"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	}
	return "unknown"
}

// Outcome is the classified result of one attempt. The caller decides what
// to do with the task; Attempt itself never mutates it.
type Outcome struct {
	Status Status

	// RetryAfter is the server-supplied delay hint on a 429, zero when the
	// header was absent or unusable.
	RetryAfter time.Duration

	// Retryable distinguishes transient failures (network errors, server
	// 5xx) from local ones that repeating cannot fix, such as the artifact
	// file having vanished. Meaningful only when Status is Failed.
	Retryable bool

	Err error
}
