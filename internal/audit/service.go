package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events. It is append-only;
// there are no update or delete methods.
type Repository interface {
	Append(ctx context.Context, e Event) error
	ListByCall(ctx context.Context, callID string) ([]Event, error)
	ListRange(ctx context.Context, from, to time.Time) ([]Event, error)
}

// Service records audit events. Callers treat it as best-effort: a failed
// append is logged and never changes a response.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}
	if e.CallID == "" && e.ProviderID == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

func (s *Service) ListByCall(ctx context.Context, callID string) ([]Event, error) {
	return s.repo.ListByCall(ctx, callID)
}

// ListRange returns events created in [from, to).
func (s *Service) ListRange(ctx context.Context, from, to time.Time) ([]Event, error) {
	if !to.After(from) {
		return nil, ErrInvalidEvent
	}
	return s.repo.ListRange(ctx, from, to)
}

// LogMockFallback records that a real call was replaced by mock data or mock
// mode.
func (s *Service) LogMockFallback(ctx context.Context, callID, ip, reason string) error {
	return s.Append(ctx, Event{
		Type:      EventTypeMockFallback,
		CallID:    callID,
		IPAddress: ip,
		Reason:    reason,
		Message:   "served mock call data",
	})
}

// LogBooking records the outcome of an AI booking request.
func (s *Service) LogBooking(ctx context.Context, providerID, ip string, ok bool, reason string, payload any) error {
	e := Event{
		Type:       EventTypeBookingRequested,
		ProviderID: providerID,
		IPAddress:  ip,
		Message:    "booking requested",
		Metadata:   marshalMetadata(payload),
	}
	if !ok {
		e.Type = EventTypeBookingFailed
		e.Message = "booking webhook failed"
		e.Reason = reason
	}
	return s.Append(ctx, e)
}

func (s *Service) LogCallEnded(ctx context.Context, callID string, duration time.Duration, mock bool) error {
	return s.Append(ctx, Event{
		Type:    EventTypeCallEnded,
		CallID:  callID,
		Message: "call ended",
		Metadata: marshalMetadata(map[string]any{
			"duration_seconds": int64(duration / time.Second),
			"mock":             mock,
		}),
	})
}

func marshalMetadata(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
