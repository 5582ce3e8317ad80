package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrSessionClosed is returned by Connect after Close.
var ErrSessionClosed = errors.New("voice: session closed")

type Options struct {
	// NewTransport builds the real transport. Defaults to the websocket
	// transport.
	NewTransport TransportFactory

	// DegradeToMock switches the session to the simulated conversation when
	// the stream URL is invalid or the transport fails. When false the session
	// reports StatusError and Connect returns the failure.
	DegradeToMock bool

	// JoinTimeout bounds Transport.Join. Zero means no bound.
	JoinTimeout time.Duration

	Schedule MockSchedule
	Logger   *slog.Logger
}

type ConnectOptions struct {
	StreamURL string
	SessionID string
	APIKey    string
	Mock      bool
}

// Session wraps one voice call.
//
// All state changes and all callback deliveries are serialized by the session
// lock. Callbacks run while the lock is held and must not call back into the
// Session. Join and Leave run outside the lock.
type Session struct {
	opts Options
	log  *slog.Logger

	mu         sync.Mutex
	status     Status
	closed     bool
	active     bool
	connected  bool
	muted      bool
	mock       bool
	mockReason string
	sessionID  string

	transport       Transport
	transportGen    uint64
	transportStatus string
	joinCancel      context.CancelFunc
	pending         []func()

	sequence timerGroup
	speech   timerGroup

	onStatus     func(Status)
	onTranscript func(Transcript)
}

func NewSession(opts Options) *Session {
	if opts.NewTransport == nil {
		opts.NewTransport = NewWSTransportFactory(WSConfig{})
	}
	opts.Schedule = opts.Schedule.withDefaults()
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Session{opts: opts, log: log}
}

// OnStatusChange registers the status callback, replacing any previous one.
func (s *Session) OnStatusChange(fn func(Status)) {
	s.mu.Lock()
	s.onStatus = fn
	s.mu.Unlock()
}

// OnTranscript registers the transcript callback, replacing any previous one.
func (s *Session) OnTranscript(fn func(Transcript)) {
	s.mu.Lock()
	s.onTranscript = fn
	s.mu.Unlock()
}

// Connect starts the call. It is a no-op while a call is connecting or
// connected, and fails with ErrSessionClosed once Close has run.
func (s *Session) Connect(ctx context.Context, co ConnectOptions) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.active {
		s.mu.Unlock()
		return nil
	}
	s.active = true
	s.sessionID = co.SessionID
	s.mock = false
	s.mockReason = ""
	s.transportGen++
	gen := s.transportGen

	if co.Mock {
		s.startMockLocked("mock mode requested")
		s.mu.Unlock()
		return nil
	}
	if !ValidStreamURL(co.StreamURL) {
		safe := SanitizeURL(co.StreamURL)
		if !s.opts.DegradeToMock {
			s.failLocked()
			s.mu.Unlock()
			return fmt.Errorf("%w: %q", ErrInvalidURL, safe)
		}
		s.startMockLocked("invalid stream url: " + safe)
		s.mu.Unlock()
		return nil
	}

	s.setStatusLocked(StatusConnecting)
	var (
		joinCtx context.Context
		cancel  context.CancelFunc
	)
	if s.opts.JoinTimeout > 0 {
		joinCtx, cancel = context.WithTimeout(ctx, s.opts.JoinTimeout)
	} else {
		joinCtx, cancel = context.WithCancel(ctx)
	}
	s.joinCancel = cancel
	s.mu.Unlock()

	t, err := s.opts.NewTransport(co.APIKey)
	if err == nil {
		err = t.Join(joinCtx, co.StreamURL, TransportEvents{
			Status:     func(st Status) { s.onTransportStatus(gen, st) },
			Transcript: func(tr Transcript) { s.onTransportTranscript(gen, tr) },
		})
	}
	cancel()

	s.mu.Lock()
	s.joinCancel = nil
	if gen != s.transportGen {
		// Disconnect ran while the join was in flight.
		s.mu.Unlock()
		if err == nil {
			if lerr := t.Leave(context.WithoutCancel(ctx)); lerr != nil {
				s.log.Warn("voice: leave after cancelled join", "error", lerr)
			}
		}
		return nil
	}
	if err != nil {
		s.pending = nil
		s.transportGen++
		if !s.opts.DegradeToMock {
			s.failLocked()
			s.mu.Unlock()
			return fmt.Errorf("voice: join call: %w", err)
		}
		s.startMockLocked("transport error: " + err.Error())
		s.mu.Unlock()
		return nil
	}

	s.transport = t
	s.connected = true
	s.transportStatus = string(StatusConnected)
	s.setStatusLocked(StatusConnected)
	if s.muted {
		if merr := t.SetMicMuted(true); merr != nil {
			s.log.Warn("voice: apply mute after join", "error", merr)
		}
	}
	queued := s.pending
	s.pending = nil
	for _, fn := range queued {
		fn()
	}
	s.mu.Unlock()
	return nil
}

// SetMuted mutes or unmutes the microphone. Without a working transport the
// simulated conversation reacts instead.
func (s *Session) SetMuted(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.muted = muted
	if s.transport != nil && !s.mock {
		err := s.transport.SetMicMuted(muted)
		if err == nil {
			return
		}
		if !errors.Is(err, ErrMuteUnsupported) {
			s.log.Warn("voice: set mic muted", "error", err, "session_id", s.sessionID)
		}
	}
	s.mockMuteLocked(muted)
}

// Disconnect ends the call. It always leaves the session in
// StatusDisconnected; the returned error reports a failed transport leave.
// No callback fires after Disconnect returns.
func (s *Session) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	s.sequence.cancel()
	s.speech.cancel()
	s.transportGen++
	s.pending = nil
	if s.joinCancel != nil {
		s.joinCancel()
		s.joinCancel = nil
	}
	t := s.transport
	s.transport = nil
	s.active = false
	s.connected = false
	s.transportStatus = ""
	s.setStatusLocked(StatusDisconnected)
	s.mu.Unlock()

	if t == nil {
		return nil
	}
	if err := t.Leave(ctx); err != nil {
		s.log.Warn("voice: leave call", "error", err, "session_id", s.sessionID)
		return fmt.Errorf("voice: leave call: %w", err)
	}
	return nil
}

// Close disconnects and retires the session: a Connect that has not yet
// started returns ErrSessionClosed instead of starting a new call.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.Disconnect(ctx)
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) Diagnostics() Diagnostics {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := s.transportStatus
	if s.transport == nil {
		ts = "no-client"
	}
	return Diagnostics{
		Status:          s.status,
		Connected:       s.connected,
		Mock:            s.mock,
		MockReason:      s.mockReason,
		SessionID:       s.sessionID,
		TransportStatus: ts,
		Muted:           s.muted,
	}
}

func (s *Session) onTransportStatus(gen uint64, st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.transportGen || s.mock {
		return
	}
	if s.transport == nil {
		s.pending = append(s.pending, func() { s.applyTransportStatusLocked(st) })
		return
	}
	s.applyTransportStatusLocked(st)
}

func (s *Session) onTransportTranscript(gen uint64, tr Transcript) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.transportGen || s.mock {
		return
	}
	if s.transport == nil {
		s.pending = append(s.pending, func() { s.emitTranscriptLocked(tr) })
		return
	}
	s.emitTranscriptLocked(tr)
}

func (s *Session) applyTransportStatusLocked(st Status) {
	s.transportStatus = string(st)
	if st == StatusDisconnected {
		// Remote hang-up: the transport has already released its connection.
		s.transport = nil
		s.active = false
		s.connected = false
		s.transportGen++
	}
	s.setStatusLocked(st)
}

func (s *Session) failLocked() {
	s.active = false
	s.setStatusLocked(StatusError)
}

func (s *Session) setStatusLocked(st Status) {
	if s.status == st {
		return
	}
	s.status = st
	if s.onStatus != nil {
		s.onStatus(st)
	}
}

func (s *Session) emitTranscriptLocked(tr Transcript) {
	if s.onTranscript != nil {
		s.onTranscript(tr)
	}
}
