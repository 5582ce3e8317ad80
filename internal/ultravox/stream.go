package ultravox

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"healthmate/internal/auth"
	"healthmate/internal/calls"
	"healthmate/internal/callview"
	"healthmate/internal/voice"
	"healthmate/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type StreamConfig struct {
	// APIKey is handed to the voice transport.
	APIKey string

	// Session is the template for each stream's voice session.
	Session voice.Options

	WriteTimeout time.Duration
	PingInterval time.Duration
	ReadTimeout  time.Duration
	SlotRefresh  time.Duration
	SendBuffer   int
}

func (c StreamConfig) withDefaults() StreamConfig {
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 25 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 60 * time.Second
	}
	if c.SlotRefresh <= 0 {
		c.SlotRefresh = 30 * time.Second
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 64
	}
	return c
}

// StreamHandler bridges one browser websocket to one voice.Session.
type StreamHandler struct {
	cfg      StreamConfig
	calls    CallStore
	limiter  calls.Limiter
	audit    Auditor
	upgrader websocket.Upgrader
}

func NewStreamHandler(cfg StreamConfig, store CallStore, limiter calls.Limiter, audit Auditor) *StreamHandler {
	return &StreamHandler{
		cfg:     cfg.withDefaults(),
		calls:   store,
		limiter: limiter,
		audit:   audit,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Access is granted by the call ticket, not by origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Frame is a server to client message on the call stream.
type Frame struct {
	Type        string             `json:"type"`
	View        *callview.View     `json:"view,omitempty"`
	Text        string             `json:"text,omitempty"`
	Speaker     voice.Speaker      `json:"speaker,omitempty"`
	Diagnostics *voice.Diagnostics `json:"diagnostics,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// ClientFrame is a client to server message on the call stream.
type ClientFrame struct {
	Type  string `json:"type"`
	Muted *bool  `json:"muted,omitempty"`
	On    *bool  `json:"on,omitempty"`
}

// Serve runs behind auth.RequireCallTicket, which puts the verified call id
// and mock flag on the request context.
func (h *StreamHandler) Serve(c *gin.Context) {
	ctx := c.Request.Context()
	callID, err := auth.CallID(ctx)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing call ticket"})
		return
	}
	log := logger.Enrich(c, "call_id", callID)

	call, err := h.calls.Get(ctx, callID)
	if errors.Is(err, calls.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
		return
	}
	if err != nil {
		log.Error("stream: get call", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call lookup failed"})
		return
	}
	if call.Mock != auth.CallMock(ctx) {
		log.Warn("stream: ticket mock flag does not match call", "ticket_mock", auth.CallMock(ctx), "call_mock", call.Mock)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid call ticket"})
		return
	}
	if call.Status.Terminal() {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "call already ended"})
		return
	}

	ok, err := h.limiter.Acquire(ctx, callID)
	if err != nil {
		log.Error("stream: acquire call slot", "err", err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "call slot unavailable"})
		return
	}
	if !ok {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "call already has a live stream"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("stream: upgrade", "err", err)
		if rerr := h.limiter.Release(context.WithoutCancel(ctx), callID); rerr != nil {
			log.Error("stream: release call slot", "err", rerr)
		}
		return
	}

	opts := h.cfg.Session
	opts.Logger = log
	s := &stream{
		h:         h,
		call:      call,
		conn:      conn,
		log:       log,
		presenter: callview.NewPresenter(nil),
		session:   voice.NewSession(opts),
		out:       make(chan Frame, h.cfg.SendBuffer),
	}
	s.run(ctx)
}

type stream struct {
	h         *StreamHandler
	call      calls.Call
	conn      *websocket.Conn
	log       *slog.Logger
	presenter *callview.Presenter
	session   *voice.Session

	outMu     sync.Mutex
	out       chan Frame
	outClosed bool
}

func (s *stream) run(ctx context.Context) {
	callID := s.call.CallID

	writerDone := make(chan struct{})
	go s.writeLoop(writerDone)

	stopRefresh := make(chan struct{})
	refreshDone := make(chan struct{})
	go s.refreshSlot(ctx, stopRefresh, refreshDone)

	initial := s.presenter.Initial()
	s.send(Frame{Type: "view", View: &initial})

	if _, err := s.h.calls.Activate(ctx, callID); err != nil {
		s.log.Warn("stream: activate call", "err", err)
	}

	s.session.OnStatusChange(func(st voice.Status) {
		v := s.presenter.Apply(st)
		s.send(Frame{Type: "view", View: &v})
	})
	s.session.OnTranscript(func(tr voice.Transcript) {
		s.send(Frame{Type: "transcript", Text: tr.Text, Speaker: tr.Speaker})
	})

	// failed is written before connectDone closes and read after.
	var failed bool
	connectDone := make(chan struct{})
	go func() {
		defer close(connectDone)
		err := s.session.Connect(ctx, voice.ConnectOptions{
			StreamURL: s.call.JoinURL,
			SessionID: callID,
			APIKey:    s.h.cfg.APIKey,
			Mock:      s.call.Mock,
		})
		if err == nil || errors.Is(err, voice.ErrSessionClosed) {
			return
		}
		failed = true
		s.log.Warn("stream: connect voice session", "err", err)
		if _, ferr := s.h.calls.Fail(context.WithoutCancel(ctx), callID); ferr != nil {
			s.log.Error("stream: mark call failed", "err", ferr)
		}
	}()

	s.readLoop()

	cleanup, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.session.Close(cleanup); err != nil {
		s.log.Warn("stream: close voice session", "err", err)
	}
	<-connectDone
	close(stopRefresh)
	<-refreshDone

	duration := s.presenter.Duration()
	if !failed {
		if _, err := s.h.calls.End(cleanup, callID, duration); err != nil {
			s.log.Warn("stream: end call", "err", err)
		}
		if s.h.audit != nil {
			if err := s.h.audit.LogCallEnded(cleanup, callID, duration, s.session.Diagnostics().Mock); err != nil {
				s.log.Error("stream: audit call end", "err", err)
			}
		}
	}
	if err := s.h.limiter.Release(cleanup, callID); err != nil {
		s.log.Error("stream: release call slot", "err", err)
	}

	s.outMu.Lock()
	s.outClosed = true
	close(s.out)
	s.outMu.Unlock()
	<-writerDone
	_ = s.conn.Close()
	s.log.Info("stream: closed", "duration_seconds", int(duration/time.Second))
}

// send never blocks; it runs inside session callbacks. Frames sent after
// shutdown are dropped.
func (s *stream) send(f Frame) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	if s.outClosed {
		return
	}
	select {
	case s.out <- f:
	default:
		s.log.Warn("stream: send buffer full, dropping frame", "type", f.Type)
	}
}

func (s *stream) readLoop() {
	_ = s.conn.SetReadDeadline(time.Now().Add(s.h.cfg.ReadTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.h.cfg.ReadTimeout))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("stream: read", "err", err)
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(s.h.cfg.ReadTimeout))

		var f ClientFrame
		if err := json.Unmarshal(data, &f); err != nil {
			s.send(Frame{Type: "error", Error: "invalid json"})
			continue
		}
		switch f.Type {
		case "mute":
			if f.Muted == nil {
				s.send(Frame{Type: "error", Error: "muted required"})
				continue
			}
			s.session.SetMuted(*f.Muted)
			v := s.presenter.SetMuted(*f.Muted)
			s.send(Frame{Type: "view", View: &v})
		case "speaker":
			if f.On == nil {
				s.send(Frame{Type: "error", Error: "on required"})
				continue
			}
			v := s.presenter.SetSpeaker(*f.On)
			s.send(Frame{Type: "view", View: &v})
		case "diagnostics":
			d := s.session.Diagnostics()
			s.send(Frame{Type: "diagnostics", Diagnostics: &d})
		case "end":
			return
		default:
			s.send(Frame{Type: "error", Error: "unknown frame type"})
		}
	}
}

func (s *stream) writeLoop(done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.h.cfg.PingInterval)
	defer ticker.Stop()

	broken := false
	for {
		select {
		case f, ok := <-s.out:
			if !ok {
				if !broken {
					_ = s.conn.SetWriteDeadline(time.Now().Add(s.h.cfg.WriteTimeout))
					_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				}
				return
			}
			if broken {
				continue
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.h.cfg.WriteTimeout))
			if err := s.conn.WriteJSON(f); err != nil {
				s.log.Warn("stream: write", "err", err)
				broken = true
			}
		case <-ticker.C:
			if broken {
				continue
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.h.cfg.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				broken = true
			}
		}
	}
}

func (s *stream) refreshSlot(ctx context.Context, stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.h.cfg.SlotRefresh)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := s.h.limiter.Refresh(ctx, s.call.CallID); err != nil {
				s.log.Warn("stream: refresh call slot", "err", err)
			}
		}
	}
}
