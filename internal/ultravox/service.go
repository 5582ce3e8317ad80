package ultravox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"healthmate/internal/calls"
	"healthmate/internal/voice"

	"github.com/google/uuid"
)

const (
	MockJoinURL    = "wss://mock.ultravox.ai/stream"
	mockCallPrefix = "mock-call-"
)

var ErrInvalidJoinURL = errors.New("invalid URL received from webhook")

// Poster sends a JSON POST and returns the 2xx body.
type Poster interface {
	PostJSON(ctx context.Context, url string, payload any) ([]byte, error)
}

// CallStore is the slice of the call service used by the call routes.
type CallStore interface {
	Record(ctx context.Context, callID, joinURL string, mock bool, fallbackReason string) (calls.Call, error)
	Get(ctx context.Context, callID string) (calls.Call, error)
	Activate(ctx context.Context, callID string) (calls.Call, error)
	End(ctx context.Context, callID string, duration time.Duration) (calls.Call, error)
	Fail(ctx context.Context, callID string) (calls.Call, error)
}

type Auditor interface {
	LogMockFallback(ctx context.Context, callID, ip, reason string) error
	LogCallEnded(ctx context.Context, callID string, duration time.Duration, mock bool) error
}

type TicketIssuer interface {
	IssueCallTicket(now time.Time, callID string, mock bool) (string, error)
}

// CallInit is the POST /api/ultravox response body.
type CallInit struct {
	CallID  string `json:"callId"`
	JoinURL string `json:"joinUrl"`
	APIKey  string `json:"apiKey"`
	Mock    bool   `json:"mock"`
	Error   string `json:"error,omitempty"`
	Ticket  string `json:"ticket,omitempty"`
}

type ServiceConfig struct {
	WebhookURL string
	APIKey     string
}

// Service creates calls through the call-init webhook and falls back to mock
// call data on any failure.
type Service struct {
	cfg     ServiceConfig
	webhook Poster
	calls   CallStore
	audit   Auditor
	tickets TicketIssuer
	clock   func() time.Time
	log     *slog.Logger
}

func NewService(cfg ServiceConfig, webhook Poster, store CallStore, audit Auditor, tickets TicketIssuer, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		cfg:     cfg,
		webhook: webhook,
		calls:   store,
		audit:   audit,
		tickets: tickets,
		clock:   time.Now,
		log:     log,
	}
}

// CreateCall never fails: upstream errors turn into mock call data with the
// error text attached. Persistence and audit failures are logged only, but a
// call that could not be recorded gets no stream ticket.
func (s *Service) CreateCall(ctx context.Context, clientIP string) CallInit {
	log := s.log
	out, err := s.requestCall(ctx)
	if err != nil {
		out = CallInit{
			CallID:  mockCallPrefix + strconv.FormatInt(s.clock().UnixMilli(), 10),
			JoinURL: MockJoinURL,
			Mock:    true,
			Error:   err.Error(),
		}
		log.Warn("ultravox: serving mock call", "call_id", out.CallID, "reason", out.Error)
	}
	out.APIKey = s.cfg.APIKey

	recorded := s.record(ctx, &out)
	if out.Mock && s.audit != nil {
		if err := s.audit.LogMockFallback(ctx, out.CallID, clientIP, out.Error); err != nil {
			log.Error("ultravox: audit mock fallback", "call_id", out.CallID, "err", err)
		}
	}
	if s.tickets != nil && recorded {
		ticket, err := s.tickets.IssueCallTicket(s.clock(), out.CallID, out.Mock)
		if err != nil {
			log.Error("ultravox: issue call ticket", "call_id", out.CallID, "err", err)
		} else {
			out.Ticket = ticket
		}
	}
	return out
}

// record stores the call. Two fallbacks in the same millisecond share a mock
// id, so the second one is retried once under a unique suffix.
func (s *Service) record(ctx context.Context, out *CallInit) bool {
	if s.calls == nil {
		return true
	}
	_, err := s.calls.Record(ctx, out.CallID, out.JoinURL, out.Mock, out.Error)
	if errors.Is(err, calls.ErrAlreadyExists) && out.Mock {
		out.CallID = out.CallID + "-" + uuid.NewString()[:8]
		_, err = s.calls.Record(ctx, out.CallID, out.JoinURL, out.Mock, out.Error)
	}
	if err != nil {
		s.log.Error("ultravox: record call", "call_id", out.CallID, "err", err)
		return false
	}
	return true
}

type webhookCall struct {
	CallID  string `json:"callId"`
	JoinURL string `json:"joinUrl"`
}

func (s *Service) requestCall(ctx context.Context) (CallInit, error) {
	body, err := s.webhook.PostJSON(ctx, s.cfg.WebhookURL, nil)
	if err != nil {
		return CallInit{}, err
	}
	var wc webhookCall
	if err := json.Unmarshal(body, &wc); err != nil {
		return CallInit{}, fmt.Errorf("decode webhook response: %w", err)
	}
	if !voice.ValidStreamURL(wc.JoinURL) {
		return CallInit{}, ErrInvalidJoinURL
	}
	if wc.CallID == "" {
		wc.CallID = "call-" + uuid.NewString()
	}
	return CallInit{CallID: wc.CallID, JoinURL: wc.JoinURL}, nil
}
