// Package store keeps the most recent capture per monitored display in
// memory. It provides a thread-safe store with TTL eviction of displays
// that stop reporting; image bytes are released as soon as a capture is
// replaced or evicted.
package store
