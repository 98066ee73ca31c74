// Package ws implements the WebSocket live view for glimpse-collector.
//
// Hub manages a set of connected clients. Every capture the receiver
// accepts is pushed to all of them as it arrives; a full snapshot of the
// latest capture per display goes out on connect and again on a slow
// refresh interval so clients that missed events can reconcile.
//
// New(store, refresh) creates a Hub.
// Hub.Run(ctx) starts the refresh ticker and blocks until ctx is
// cancelled, then closes all active connections.
// Hub.Notify(summary) pushes one freshly received capture to all clients.
// Hub.ServeHTTP upgrades an HTTP connection to WebSocket.
//
// Messages sent to clients:
//
//	{"event": "snapshot", "data": [ /* same schema as GET /api/v1/captures */ ]}
//	{"event": "capture",  "data": { /* one capture summary */ }}
//
// The upgrader accepts all origins. Apply CORS restrictions at the reverse
// proxy level. The WebSocket endpoint is mounted at /ws/live by the server.
package ws
