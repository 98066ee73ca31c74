// Package receiver implements the capture upload endpoint, the HTTP POST
// handler that accepts capture payloads from glimpse-agent instances.
//
// Each upload is structurally validated (JSON shape, required displayId,
// base64 image), decoded, and recorded as the display's latest capture via
// store.Put. Accepted captures also feed the silence tracker (alerts.Observe)
// and the WebSocket live view (ws.Hub.Notify). Authentication is enforced
// upstream by auth.TokenMiddleware and traffic shaping by RateLimit, so the
// receiver itself only performs structural validation.
//
// New(st, engine, hub) wires the receiver to its three sinks. Counters for
// accepted, rejected, and total bytes are registered on the default
// Prometheus registry and served on /metrics.
package receiver
