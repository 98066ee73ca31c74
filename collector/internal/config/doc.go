// Package config loads the collector configuration from the `collector:`
// section of config.yaml: listen port, upload auth token, capture retention
// TTL, upload rate limit, and silence alert rules with webhook targets.
// Secrets (auth token, webhook URLs) are referenced by environment variable
// name and resolved at use.
package config
