package store

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Capture is one received display capture together with its decoded image.
type Capture struct {
	ID           string
	AccountEmail string
	SubjectName  string
	ScreenNumber int
	DisplayID    string
	ScreenName   string
	CapturedAt   time.Time
	ReceivedAt   time.Time
	Width        int
	Height       int

	// Image holds the PNG bytes exactly as captured by the agent.
	Image []byte
}

// SubjectKey groups captures that belong to the same onboarded machine.
func (c *Capture) SubjectKey() string {
	return c.AccountEmail + "|" + c.SubjectName
}

// displayKey identifies one display of one subject.
func (c *Capture) displayKey() string {
	return c.SubjectKey() + "|" + c.DisplayID
}

// Store is a thread-safe in-memory capture store holding the latest capture
// per subject display. A background goroutine (Run) periodically evicts
// displays that have not reported within the configured TTL. Replaced and
// evicted captures release their image bytes, so memory stays bounded by
// the number of live displays.
type Store struct {
	mu     sync.RWMutex
	latest map[string]*Capture // displayKey -> newest capture
	byID   map[string]*Capture // capture ID -> same pointers as latest
	ttl    time.Duration
	now    func() time.Time // injectable for deterministic tests
}

// New creates a Store with the given TTL.
func New(ttl time.Duration) *Store {
	return &Store{
		latest: make(map[string]*Capture),
		byID:   make(map[string]*Capture),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL returns the configured retention TTL.
func (s *Store) TTL() time.Duration { return s.ttl }

// Put stores c as the latest capture for its display, replacing and
// releasing any previous one. ReceivedAt is stamped here. Callers must not
// modify c after calling Put.
func (s *Store) Put(c *Capture) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ReceivedAt = s.now()
	key := c.displayKey()
	if prev, ok := s.latest[key]; ok {
		delete(s.byID, prev.ID)
	}
	s.latest[key] = c
	s.byID[c.ID] = c
}

// Get returns the capture with the given ID, if it is still the latest for
// its display and within the TTL.
func (s *Store) Get(id string) (*Capture, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	if !c.ReceivedAt.After(s.now().Add(-s.ttl)) {
		return nil, false
	}
	return c, true
}

// List returns all captures received within the TTL. Stale entries that
// have not yet been evicted are excluded. Order is unspecified.
func (s *Store) List() []*Capture {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := s.now().Add(-s.ttl)
	out := make([]*Capture, 0, len(s.latest))
	for _, c := range s.latest {
		if c.ReceivedAt.After(cutoff) {
			out = append(out, c)
		}
	}
	return out
}

// Count returns the total number of entries currently held, including stale ones.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.latest)
}

// Evict removes entries whose ReceivedAt is older than now minus TTL.
// It returns the number of entries removed.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-s.ttl)
	removed := 0
	for key, c := range s.latest {
		if !c.ReceivedAt.After(cutoff) {
			delete(s.latest, key)
			delete(s.byID, c.ID)
			removed++
		}
	}
	return removed
}

// Run starts the background TTL eviction loop. It ticks at half the TTL
// interval (minimum 1 second) so entries are evicted promptly. Run blocks
// until ctx is cancelled.
func (s *Store) Run(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: evicted silent displays", "count", n)
			}
		}
	}
}
