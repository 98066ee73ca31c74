// Package alerts watches capture delivery per subject and fires silence
// alerts when a machine that has reported at least once goes quiet.
// Webhooks are delivered to Slack, Teams, or generic HTTP targets.
package alerts
