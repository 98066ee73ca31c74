package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/glimpsebox/glimpse/collector/internal/api"
	"github.com/glimpsebox/glimpse/collector/internal/store"
	wsHub "github.com/glimpsebox/glimpse/collector/internal/ws"
)

// Long enough that the refresh ticker never interferes with event tests.
const idleRefresh = time.Hour

// --- helpers ----------------------------------------------------------------

func newStore(caps ...*store.Capture) *store.Store {
	st := store.New(5 * time.Minute)
	for _, c := range caps {
		st.Put(c)
	}
	return st
}

func capture(id, subject string) *store.Capture {
	return &store.Capture{
		ID:           id,
		AccountEmail: "kiosk@example.com",
		SubjectName:  subject,
		DisplayID:    "DISPLAY-1",
		CapturedAt:   time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC),
		Width:        1920,
		Height:       1080,
		Image:        []byte("png"),
	}
}

// startHub starts a test HTTP server with the hub as its handler.
// The hub's Run loop is started with a cancellable context.
// Returns the ws:// URL, the hub, and a cleanup function.
func startHub(t *testing.T, st *store.Store, refresh time.Duration) (wsURL string, hub *wsHub.Hub, cancel func()) {
	t.Helper()

	hub = wsHub.New(st, refresh)
	ctx, cancelFn := context.WithCancel(context.Background())

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	go hub.Run(ctx)

	t.Cleanup(func() {
		cancelFn()
		srv.Close()
	})

	wsURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	return wsURL, hub, cancelFn
}

// dial connects a WebSocket client to wsURL and returns the connection.
func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readMessage reads one text message from conn with a short deadline.
func readMessage(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	return msg
}

// --- tests ------------------------------------------------------------------

func TestHub_Connect_ReceivesImmediateSnapshot(t *testing.T) {
	st := newStore(capture("c1", "Lobby Kiosk"))
	wsURL, _, _ := startHub(t, st, idleRefresh)

	conn := dial(t, wsURL)
	msg := readMessage(t, conn)

	var m map[string]interface{}
	if err := json.Unmarshal(msg, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["event"] != "snapshot" {
		t.Errorf("event: got %v, want snapshot", m["event"])
	}
	data, ok := m["data"].([]interface{})
	if !ok {
		t.Fatal("data: missing or wrong type")
	}
	if len(data) != 1 {
		t.Fatalf("data: got %d captures, want 1", len(data))
	}
	c := data[0].(map[string]interface{})
	if c["id"] != "c1" {
		t.Errorf("id: got %v, want c1", c["id"])
	}
}

func TestHub_EmptyStore_EmptySnapshot(t *testing.T) {
	wsURL, _, _ := startHub(t, newStore(), idleRefresh)
	conn := dial(t, wsURL)
	msg := readMessage(t, conn)

	var m map[string]interface{}
	json.Unmarshal(msg, &m) //nolint:errcheck
	data, ok := m["data"].([]interface{})
	if !ok {
		t.Fatal("data: missing or wrong type")
	}
	if len(data) != 0 {
		t.Errorf("data: got %d captures, want 0", len(data))
	}
}

func TestHub_NotifyPushesCaptureEvent(t *testing.T) {
	st := newStore()
	wsURL, hub, _ := startHub(t, st, idleRefresh)

	conn := dial(t, wsURL)
	readMessage(t, conn) // consume initial snapshot

	c := capture("fresh", "Lobby Kiosk")
	st.Put(c)
	hub.Notify(api.ToSummary(c))

	msg := readMessage(t, conn)
	var m map[string]interface{}
	json.Unmarshal(msg, &m) //nolint:errcheck
	if m["event"] != "capture" {
		t.Errorf("event: got %v, want capture", m["event"])
	}
	data, ok := m["data"].(map[string]interface{})
	if !ok {
		t.Fatal("data: missing or wrong type")
	}
	if data["id"] != "fresh" {
		t.Errorf("id: got %v, want fresh", data["id"])
	}
	if data["subject_name"] != "Lobby Kiosk" {
		t.Errorf("subject_name: got %v", data["subject_name"])
	}
}

func TestHub_RefreshTickRebroadcastsSnapshot(t *testing.T) {
	st := newStore()
	wsURL, _, _ := startHub(t, st, 20*time.Millisecond)

	conn := dial(t, wsURL)
	readMessage(t, conn) // consume immediate snapshot (empty store)

	// A capture stored after connect shows up in the next refresh even
	// without a Notify call.
	st.Put(capture("late", "Warehouse"))

	deadline := time.Now().Add(2 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatal("refresh snapshot with the new capture never arrived")
		}
		msg := readMessage(t, conn)
		var m map[string]interface{}
		json.Unmarshal(msg, &m) //nolint:errcheck
		if m["event"] != "snapshot" {
			continue
		}
		data := m["data"].([]interface{})
		if len(data) == 0 {
			continue // tick fired before the Put landed
		}
		c := data[0].(map[string]interface{})
		if c["id"] != "late" {
			t.Errorf("id: got %v, want late", c["id"])
		}
		return
	}
}

func TestHub_AllClientsReceiveNotify(t *testing.T) {
	st := newStore()
	wsURL, hub, _ := startHub(t, st, idleRefresh)

	conns := make([]*websocket.Conn, 3)
	for i := 0; i < 3; i++ {
		conns[i] = dial(t, wsURL)
		readMessage(t, conns[i]) // consume initial snapshot
	}
	time.Sleep(10 * time.Millisecond)

	hub.Notify(api.ToSummary(capture("c1", "Lobby Kiosk")))

	for i, conn := range conns {
		msg := readMessage(t, conn)
		var m map[string]interface{}
		if err := json.Unmarshal(msg, &m); err != nil {
			t.Errorf("client %d: unmarshal: %v", i, err)
			continue
		}
		if m["event"] != "capture" {
			t.Errorf("client %d: event: got %v, want capture", i, m["event"])
		}
	}
}

func TestHub_CountClients(t *testing.T) {
	wsURL, hub, _ := startHub(t, newStore(), idleRefresh)

	for i := 0; i < 3; i++ {
		conn := dial(t, wsURL)
		readMessage(t, conn) // consume initial message
	}

	time.Sleep(10 * time.Millisecond)
	if n := hub.Count(); n != 3 {
		t.Errorf("Count: got %d, want 3", n)
	}
}

func TestHub_CountDecreasesOnDisconnect(t *testing.T) {
	wsURL, hub, _ := startHub(t, newStore(), idleRefresh)

	conn := dial(t, wsURL)
	readMessage(t, conn)
	time.Sleep(10 * time.Millisecond)

	if n := hub.Count(); n != 1 {
		t.Errorf("Count before disconnect: got %d, want 1", n)
	}

	conn.Close()
	time.Sleep(50 * time.Millisecond) // let readPump detect the close

	if n := hub.Count(); n != 0 {
		t.Errorf("Count after disconnect: got %d, want 0", n)
	}
}

func TestHub_CancelContextClosesConnections(t *testing.T) {
	wsURL, hub, cancel := startHub(t, newStore(), idleRefresh)

	conn := dial(t, wsURL)
	readMessage(t, conn)
	time.Sleep(10 * time.Millisecond)

	cancel()

	time.Sleep(50 * time.Millisecond)
	if n := hub.Count(); n != 0 {
		t.Errorf("Count after cancel: got %d, want 0", n)
	}
}

func TestHub_NonWebSocketRequest_Returns400(t *testing.T) {
	hub := wsHub.New(newStore(), idleRefresh)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}
