package retry

import (
	"testing"
	"time"

	"github.com/glimpsebox/glimpse/agent/internal/capture"
	"github.com/glimpsebox/glimpse/agent/internal/uploader"
)

func task(path string, retryCount int, next time.Time) *uploader.Task {
	return &uploader.Task{
		Artifact:   capture.Artifact{FilePath: path},
		RetryCount: retryCount,
		NextRetry:  next,
	}
}

func TestUpsertReplaces(t *testing.T) {
	q := New()
	now := time.Now()

	q.Upsert(task("/tmp/a.png", 0, now))
	q.Upsert(task("/tmp/a.png", 2, now.Add(time.Minute)))

	if q.Len() != 1 {
		t.Fatalf("Len = %d, want 1", q.Len())
	}

	due := q.Due(now.Add(2 * time.Minute))
	if len(due) != 1 {
		t.Fatalf("Due returned %d tasks", len(due))
	}
	if due[0].RetryCount != 2 {
		t.Errorf("kept RetryCount = %d, want the replacing entry's 2", due[0].RetryCount)
	}
}

func TestDueSelection(t *testing.T) {
	q := New()
	now := time.Now()

	q.Upsert(task("/tmp/a.png", 1, now.Add(-time.Second)))
	q.Upsert(task("/tmp/b.png", 1, now))
	q.Upsert(task("/tmp/c.png", 1, now.Add(time.Hour)))

	due := q.Due(now)
	if len(due) != 2 {
		t.Fatalf("Due returned %d tasks, want 2", len(due))
	}
	if due[0].Artifact.FilePath != "/tmp/a.png" || due[1].Artifact.FilePath != "/tmp/b.png" {
		t.Errorf("due order = %q, %q", due[0].Artifact.FilePath, due[1].Artifact.FilePath)
	}
	if q.Len() != 1 {
		t.Errorf("Len after drain = %d, want 1", q.Len())
	}

	// The undue task must survive repeated scans untouched.
	if again := q.Due(now); len(again) != 0 {
		t.Errorf("second scan returned %d tasks", len(again))
	}
}

func TestDueEmpty(t *testing.T) {
	q := New()
	if due := q.Due(time.Now()); len(due) != 0 {
		t.Errorf("empty queue returned %d tasks", len(due))
	}
}

func TestBackoffSequence(t *testing.T) {
	base := time.Second
	max := time.Minute

	want := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}
	for count, expected := range want {
		if got := Backoff(base, max, count); got != expected {
			t.Errorf("Backoff(count=%d) = %v, want %v", count, got, expected)
		}
	}
}

func TestBackoffCap(t *testing.T) {
	base := time.Second
	max := time.Minute

	if got := Backoff(base, max, 6); got != max {
		t.Errorf("Backoff(count=6) = %v, want cap %v", got, max)
	}
	// Large counts must stay at the cap instead of overflowing.
	if got := Backoff(base, max, 200); got != max {
		t.Errorf("Backoff(count=200) = %v, want cap %v", got, max)
	}
}

func TestBackoffDegenerate(t *testing.T) {
	if got := Backoff(0, time.Minute, 3); got != 0 {
		t.Errorf("zero base = %v, want 0", got)
	}
	if got := Backoff(2*time.Second, time.Second, 0); got != time.Second {
		t.Errorf("base above cap = %v, want cap", got)
	}
}
