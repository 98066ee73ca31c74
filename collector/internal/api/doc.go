// Package api implements the read side of the glimpse-collector HTTP API.
//
// New(store, engine) returns a handler that serves:
//
//	GET /api/v1/health              status plus subject/display/alert counts
//	GET /api/v1/captures            latest capture per display, newest first
//	GET /api/v1/captures/{id}       single capture summary; 404 if unknown or stale
//	GET /api/v1/captures/{id}/image stored PNG bytes
//	GET /api/v1/subjects            per-machine rollup (displays, last seen)
//	GET /api/v1/alerts              firing and recently resolved silence alerts
//
// All endpoints:
//   - Respond with Content-Type: application/json (except the raw image route)
//   - Return 405 for non-GET methods
//   - Read live entries from the store (stale displays excluded)
//
// Capture uploads are handled by the receiver package, which the server
// mounts on POST for the same /api/v1/captures path. JSON types are defined
// in types.go.
package api
