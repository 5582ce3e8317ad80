package voice

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type vendorStub struct {
	srv      *httptest.Server
	mu       sync.Mutex
	received []wsMessage
	apiKey   string
	conn     *websocket.Conn
	ready    chan struct{}
}

func newVendorStub(t *testing.T) *vendorStub {
	t.Helper()
	v := &vendorStub{ready: make(chan struct{})}
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	v.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		v.mu.Lock()
		v.apiKey = r.Header.Get("X-API-Key")
		v.conn = conn
		v.mu.Unlock()
		close(v.ready)
		for {
			var msg wsMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			v.mu.Lock()
			v.received = append(v.received, msg)
			v.mu.Unlock()
		}
	}))
	t.Cleanup(v.srv.Close)
	return v
}

func (v *vendorStub) url() string { return "ws" + strings.TrimPrefix(v.srv.URL, "http") }

func (v *vendorStub) send(t *testing.T, msg wsMessage) {
	t.Helper()
	<-v.ready
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.conn.WriteJSON(msg); err != nil {
		t.Fatalf("stub write: %v", err)
	}
}

func (v *vendorStub) sawHangUp() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, m := range v.received {
		if m.Type == "hang_up" {
			return true
		}
	}
	return false
}

func TestWSTransport_EventsAndHangUp(t *testing.T) {
	stub := newVendorStub(t)
	tr, err := NewWSTransportFactory(WSConfig{PingInterval: time.Hour})("key-123")
	if err != nil {
		t.Fatalf("factory: %v", err)
	}

	var mu sync.Mutex
	var statuses []Status
	var lines []Transcript
	events := TransportEvents{
		Status: func(st Status) {
			mu.Lock()
			statuses = append(statuses, st)
			mu.Unlock()
		},
		Transcript: func(x Transcript) {
			mu.Lock()
			lines = append(lines, x)
			mu.Unlock()
		},
	}
	if err := tr.Join(context.Background(), stub.url(), events); err != nil {
		t.Fatalf("join: %v", err)
	}

	stub.send(t, wsMessage{Type: "call_started"})
	stub.send(t, wsMessage{Type: "state", State: "listening"})
	stub.send(t, wsMessage{Type: "state", State: "bogus"})
	stub.send(t, wsMessage{Type: "transcript", Role: "agent", Text: "partial", Final: false})
	stub.send(t, wsMessage{Type: "transcript", Role: "agent", Text: "Hello there", Final: true})
	stub.send(t, wsMessage{Type: "transcript", Role: "user", Text: "Hi", Final: true})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(lines) == 2
	})

	mu.Lock()
	if len(statuses) != 2 || statuses[0] != StatusJoined || statuses[1] != StatusListening {
		t.Fatalf("unexpected statuses: %v", statuses)
	}
	if lines[0].Speaker != SpeakerAgent || lines[1].Speaker != SpeakerUser {
		t.Fatalf("unexpected speakers: %+v", lines)
	}
	mu.Unlock()

	stub.mu.Lock()
	key := stub.apiKey
	stub.mu.Unlock()
	if key != "key-123" {
		t.Fatalf("expected api key header, got %q", key)
	}

	if err := tr.SetMicMuted(true); err != nil {
		t.Fatalf("mute: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := tr.Leave(ctx); err != nil {
		t.Fatalf("leave: %v", err)
	}
	waitFor(t, stub.sawHangUp)

	if err := tr.SetMicMuted(false); err != ErrClosed {
		t.Fatalf("expected ErrClosed after leave, got %v", err)
	}
}

func TestWSTransport_RemoteCloseReportsDisconnected(t *testing.T) {
	stub := newVendorStub(t)
	tr, _ := NewWSTransportFactory(WSConfig{PingInterval: time.Hour})("")

	got := make(chan Status, 4)
	if err := tr.Join(context.Background(), stub.url(), TransportEvents{Status: func(st Status) { got <- st }}); err != nil {
		t.Fatalf("join: %v", err)
	}
	<-stub.ready
	stub.mu.Lock()
	_ = stub.conn.Close()
	stub.mu.Unlock()

	select {
	case st := <-got:
		if st != StatusDisconnected {
			t.Fatalf("expected disconnected, got %s", st)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no disconnect event")
	}
}

func TestWSTransport_DialFailure(t *testing.T) {
	tr, _ := NewWSTransportFactory(WSConfig{HandshakeTimeout: 200 * time.Millisecond})("")
	err := tr.Join(context.Background(), "ws://127.0.0.1:1/stream?api_key=secret", TransportEvents{})
	if err == nil {
		t.Fatalf("expected dial error")
	}
	if strings.Contains(err.Error(), "secret") {
		t.Fatalf("api key leaked into error: %v", err)
	}
}
