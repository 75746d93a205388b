package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/user/webconsole/internal/session"
)

func startHub(t *testing.T) (*Hub, *session.State, *httptest.Server) {
	t.Helper()
	state := session.New()
	hub := New(state, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(server.Close)
	return hub, state, server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws://" + strings.TrimPrefix(server.URL, "http://") + "/ws"
	dialCtx, dialCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer dialCancel()
	conn, _, err := websocket.Dial(dialCtx, url, nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) StateMessage {
	t.Helper()
	readCtx, readCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer readCancel()
	_, data, err := conn.Read(readCtx)
	if err != nil {
		t.Fatalf("failed to read message: %v", err)
	}
	var msg StateMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to unmarshal %q: %v", data, err)
	}
	return msg
}

func TestInitialStateMessage(t *testing.T) {
	hub, state, server := startHub(t)
	state.AppendLine("before connect")

	conn := dial(t, server)
	waitForClientCount(t, hub, 1, time.Second)

	msg := readMessage(t, conn)
	if msg.Type != TypeState || msg.Version != 1 {
		t.Fatalf("initial message = %+v, want state version 1", msg)
	}
}

func TestStateChangesAreCoalesced(t *testing.T) {
	hub, state, server := startHub(t)
	conn := dial(t, server)
	waitForClientCount(t, hub, 1, time.Second)
	readMessage(t, conn)

	for i := 0; i < 5; i++ {
		state.AppendLine("line")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		msg := readMessage(t, conn)
		if msg.Type != TypeState {
			t.Fatalf("unexpected message type %q", msg.Type)
		}
		if msg.Version == 5 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("never saw version 5, last = %d", msg.Version)
		}
	}
}

func TestBroadcastFanOut(t *testing.T) {
	hub, state, server := startHub(t)

	clients := make([]*websocket.Conn, 3)
	for i := range clients {
		clients[i] = dial(t, server)
	}
	waitForClientCount(t, hub, 3, time.Second)
	for _, conn := range clients {
		readMessage(t, conn)
	}

	state.AppendLine("hello")
	for i, conn := range clients {
		msg := readMessage(t, conn)
		if msg.Type != TypeState || msg.Version != 1 {
			t.Errorf("client %d got %+v, want state version 1", i, msg)
		}
	}
}

func TestPingCountsAsActivity(t *testing.T) {
	hub, state, server := startHub(t)
	conn := dial(t, server)
	waitForClientCount(t, hub, 1, time.Second)
	readMessage(t, conn)

	if _, seen := state.Activity(); seen {
		t.Fatal("activity seen before ping")
	}
	writeCtx, writeCancel := context.WithTimeout(context.Background(), time.Second)
	defer writeCancel()
	if err := conn.Write(writeCtx, websocket.MessageText, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("write ping: %v", err)
	}

	msg := readMessage(t, conn)
	if msg.Type != TypePong {
		t.Fatalf("reply type = %q, want pong", msg.Type)
	}
	if _, seen := state.Activity(); !seen {
		t.Fatal("ping did not record activity")
	}
}

func TestUnknownMessageGetsError(t *testing.T) {
	hub, _, server := startHub(t)
	conn := dial(t, server)
	waitForClientCount(t, hub, 1, time.Second)
	readMessage(t, conn)

	writeCtx, writeCancel := context.WithTimeout(context.Background(), time.Second)
	defer writeCancel()
	for _, payload := range []string{`{"type":"input"}`, `not json`} {
		if err := conn.Write(writeCtx, websocket.MessageText, []byte(payload)); err != nil {
			t.Fatalf("write: %v", err)
		}
		readCtx, readCancel := context.WithTimeout(context.Background(), 2*time.Second)
		_, data, err := conn.Read(readCtx)
		readCancel()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var msg ErrorMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if msg.Type != TypeError || msg.Message == "" {
			t.Fatalf("reply to %q = %+v, want error", payload, msg)
		}
	}
}

func TestClientDisconnectUnregisters(t *testing.T) {
	hub, _, server := startHub(t)
	conn := dial(t, server)
	waitForClientCount(t, hub, 1, time.Second)

	conn.Close(websocket.StatusNormalClosure, "")
	waitForClientCount(t, hub, 0, 2*time.Second)
}

func TestShutdownClosesClients(t *testing.T) {
	state := session.New()
	hub := New(state, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer server.Close()

	conns := make([]*websocket.Conn, 10)
	for i := range conns {
		conns[i] = dial(t, server)
	}
	waitForClientCount(t, hub, 10, 2*time.Second)

	cancel()
	waitForClientCount(t, hub, 0, 2*time.Second)
}

func TestPingAfterShutdownIsDropped(t *testing.T) {
	state := session.New()
	hub := New(state, nil)
	client := newClient(nil, hub)
	hub.clients[client.id] = client

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hub.Run(ctx)

	hub.handlePing(client)
	hub.SendError(client, "late")
	if client.enqueue([]byte("x")) {
		t.Fatal("enqueue succeeded on a closed client")
	}
	if _, seen := state.Activity(); !seen {
		t.Fatal("late ping was not counted as activity")
	}
}

func TestRateLimiterDirect(t *testing.T) {
	var received []uint64
	var mu sync.Mutex

	limiter := NewRateLimiter(50*time.Millisecond, func(v uint64) {
		mu.Lock()
		received = append(received, v)
		mu.Unlock()
	})

	limiter.Add(1)
	limiter.Add(3)
	limiter.Add(2)
	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	got := append([]uint64(nil), received...)
	mu.Unlock()
	if len(got) != 1 || got[0] != 3 {
		t.Fatalf("received = %v, want [3]", got)
	}

	limiter.Flush()
	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("Flush with nothing pending sent %v", received)
	}
}

func waitForClientCount(t *testing.T, hub *Hub, expected int, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == expected {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	if hub.ClientCount() != expected {
		t.Errorf("expected %d clients, got %d", expected, hub.ClientCount())
	}
}
