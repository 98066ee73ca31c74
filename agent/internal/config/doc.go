// Package config loads and watches the agent configuration file (config.yaml).
//
// Top-level types:
//   - Config{Agent}: the `agent:` section parsed from YAML; the
//     `collector:` section of the shared file belongs to the collector binary
//   - AgentConfig: collector_endpoint, auth_token_env, delete_after_upload,
//     capture_interval, retry_scan_interval, max_retries, base_backoff,
//     max_backoff, storage_dir, identity_file, max_artifact_age;
//     Token() resolves the auth token from the environment
//
// Load(path) reads the YAML file, applies defaults (60s capture, 10s retry
// scan, 3 retries, 1s..60s backoff, per-user storage dir), then validates
// intervals, the retry budget, and the endpoint URL.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. It handles the rename→create pattern
// used by atomic-save editors by re-adding the watch after each reload.
package config
