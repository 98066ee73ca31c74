// Package retry holds upload tasks awaiting another delivery attempt and
// computes the exponential backoff between attempts.
package retry

import (
	"sort"
	"sync"
	"time"

	"github.com/glimpsebox/glimpse/agent/internal/uploader"
)

// Queue is a due-time-scheduled set of pending upload tasks, keyed by
// artifact file path. At most one task per path is ever queued: a repeat
// failure for the same artifact replaces the earlier entry. The capture
// loop and the retry-scan loop both touch the queue, so all access is
// mutex-guarded.
type Queue struct {
	mu    sync.Mutex
	tasks map[string]*uploader.Task
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{tasks: make(map[string]*uploader.Task)}
}

// Upsert schedules task for another attempt, replacing any entry already
// queued for the same artifact.
func (q *Queue) Upsert(task *uploader.Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks[task.Artifact.FilePath] = task
}

// Due removes and returns every task whose retry time has arrived, oldest
// due first. Tasks not yet due stay queued untouched.
func (q *Queue) Due(now time.Time) []*uploader.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []*uploader.Task
	for path, task := range q.tasks {
		if !task.NextRetry.After(now) {
			due = append(due, task)
			delete(q.tasks, path)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].NextRetry.Before(due[j].NextRetry)
	})
	return due
}

// Len reports how many tasks are waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Backoff returns the delay before the next attempt for a task that had
// already failed retryCount times when the latest attempt was made:
// base doubled per prior failure, capped at max.
func Backoff(base, max time.Duration, retryCount int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base
	for i := 0; i < retryCount; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
