// Package pipeline coordinates the capture-buffer-upload cycle.
//
// A Controller runs two periodic loops while started:
//   - the capture loop fires once immediately and then every
//     capture_interval, photographing each attached display, downscaling to
//     the 1920×1080 ceiling, writing PNGs into the artifact store, and
//     running a first delivery attempt per artifact;
//   - the retry loop scans the retry queue every retry_scan_interval and
//     redelivers tasks whose backoff has elapsed.
//
// A third loop purges old buffered artifacts when max_artifact_age is set.
//
// Outcome handling per attempt: a 2xx deletes the artifact (when
// delete_after_upload) and discards the task; a 429 requeues with the
// server's Retry-After hint without consuming retry budget; any other
// failure requeues with exponential backoff until max_retries is spent,
// after which the task is dropped and the artifact retained on disk.
//
// Stop cancels the loops but lets an in-flight attempt finish and apply
// its outcome. The queue survives a stop/start cycle in memory; it does
// not survive the process.
package pipeline
