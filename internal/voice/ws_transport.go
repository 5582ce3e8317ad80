package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSConfig tunes the websocket transport. Zero values take defaults.
type WSConfig struct {
	HandshakeTimeout time.Duration
	PingInterval     time.Duration
	ReadTimeout      time.Duration
	Logger           *slog.Logger
}

func (c WSConfig) withDefaults() WSConfig {
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 20 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 60 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

func NewWSTransportFactory(cfg WSConfig) TransportFactory {
	cfg = cfg.withDefaults()
	return func(apiKey string) (Transport, error) {
		return &WSTransport{cfg: cfg, apiKey: apiKey, log: cfg.Logger}, nil
	}
}

// wsMessage is the vendor's data-message envelope.
type wsMessage struct {
	Type  string `json:"type"`
	State string `json:"state,omitempty"`
	Role  string `json:"role,omitempty"`
	Text  string `json:"text,omitempty"`
	Final bool   `json:"final,omitempty"`
}

var vendorStates = map[string]Status{
	"connecting":    StatusConnecting,
	"connected":     StatusConnected,
	"idle":          StatusIdle,
	"listening":     StatusListening,
	"thinking":      StatusThinking,
	"speaking":      StatusSpeaking,
	"disconnecting": StatusDisconnecting,
	"disconnected":  StatusDisconnected,
}

// WSTransport speaks the vendor's JSON envelope over gorilla/websocket.
type WSTransport struct {
	cfg    WSConfig
	apiKey string
	log    *slog.Logger

	writeMu sync.Mutex

	mu     sync.Mutex
	conn   *websocket.Conn
	events TransportEvents
	closed bool
	done   chan struct{}
}

func (t *WSTransport) Join(ctx context.Context, joinURL string, events TransportEvents) error {
	t.mu.Lock()
	if t.conn != nil || t.closed {
		t.mu.Unlock()
		return errors.New("voice: transport already used")
	}
	t.mu.Unlock()

	header := http.Header{}
	if t.apiKey != "" {
		header.Set("X-API-Key", t.apiKey)
	}
	dialer := websocket.Dialer{HandshakeTimeout: t.cfg.HandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, joinURL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("voice: dial %s: %w (status %d)", SanitizeURL(joinURL), err, resp.StatusCode)
		}
		return fmt.Errorf("voice: dial %s: %w", SanitizeURL(joinURL), err)
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout))
	})
	_ = conn.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout))

	t.mu.Lock()
	t.conn = conn
	t.events = events
	t.done = make(chan struct{})
	done := t.done
	t.mu.Unlock()

	go t.readLoop(conn, done)
	go t.pingLoop(done)
	return nil
}

func (t *WSTransport) Leave(ctx context.Context) error {
	t.mu.Lock()
	if t.conn == nil || t.closed {
		t.closed = true
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	conn := t.conn
	done := t.done
	t.mu.Unlock()

	deadline := time.Now().Add(time.Second)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}

	t.writeMu.Lock()
	_ = conn.SetWriteDeadline(deadline)
	werr := conn.WriteJSON(wsMessage{Type: "hang_up"})
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	t.writeMu.Unlock()

	cerr := conn.Close()
	select {
	case <-done:
	case <-ctx.Done():
	}

	if werr != nil {
		return fmt.Errorf("voice: send hang_up: %w", werr)
	}
	return cerr
}

// SetMicMuted only checks that the call is live: audio capture happens in the
// browser, which stops sending frames while muted.
func (t *WSTransport) SetMicMuted(bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	return nil
}

func (t *WSTransport) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			ours := t.closed
			t.closed = true
			ev := t.events
			t.mu.Unlock()
			if ours {
				return
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				t.log.Warn("voice: transport read", "error", err)
			}
			_ = conn.Close()
			if ev.Status != nil {
				ev.Status(StatusDisconnected)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout))

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.log.Debug("voice: drop malformed message", "error", err)
			continue
		}
		t.dispatch(msg)
	}
}

func (t *WSTransport) dispatch(msg wsMessage) {
	t.mu.Lock()
	ev := t.events
	t.mu.Unlock()

	switch msg.Type {
	case "state":
		st, ok := vendorStates[msg.State]
		if !ok {
			t.log.Debug("voice: unknown state", "state", msg.State)
			return
		}
		if ev.Status != nil {
			ev.Status(st)
		}
	case "call_started":
		if ev.Status != nil {
			ev.Status(StatusJoined)
		}
	case "transcript":
		if !msg.Final || msg.Text == "" {
			return
		}
		sp := SpeakerUser
		if msg.Role == string(SpeakerAgent) {
			sp = SpeakerAgent
		}
		if ev.Transcript != nil {
			ev.Transcript(Transcript{Text: msg.Text, Speaker: sp})
		}
	case "pong":
	default:
		t.log.Debug("voice: ignore message", "type", msg.Type)
	}
}

func (t *WSTransport) pingLoop(done chan struct{}) {
	ticker := time.NewTicker(t.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			t.mu.Lock()
			conn, closed := t.conn, t.closed
			t.mu.Unlock()
			if closed {
				return
			}
			t.writeMu.Lock()
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			err := conn.WriteJSON(wsMessage{Type: "ping"})
			t.writeMu.Unlock()
			if err != nil {
				t.log.Debug("voice: ping", "error", err)
			}
		}
	}
}
