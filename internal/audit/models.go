package audit

import "time"

// Event is an append-only record of a masked failure or a user-visible side
// effect. Events are never updated or deleted.
type Event struct {
	ID   string    `json:"id" db:"id"`
	Type EventType `json:"type" db:"type"`

	// Subject identifiers; at least one is set.
	CallID     string `json:"call_id,omitempty" db:"call_id"`
	ProviderID string `json:"provider_id,omitempty" db:"provider_id"`

	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// Reason carries the underlying error text for fallbacks and failures.
	Reason  string `json:"reason,omitempty" db:"reason"`
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeMockFallback     EventType = "mock_fallback"
	EventTypeBookingRequested EventType = "booking_requested"
	EventTypeBookingFailed    EventType = "booking_failed"
	EventTypeCallEnded        EventType = "call_ended"
)
