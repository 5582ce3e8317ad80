package calls

import (
	"errors"
	"time"
)

// Call is the server-side record of one call initiated through the call
// webhook, real or mock.
type Call struct {
	CallID  string `json:"call_id" db:"call_id"`
	JoinURL string `json:"join_url,omitempty" db:"join_url"`

	Mock           bool   `json:"mock" db:"mock"`
	FallbackReason string `json:"fallback_reason,omitempty" db:"fallback_reason"`

	Status CallStatus `json:"status" db:"status"`

	// DurationSeconds is set when the call ends.
	DurationSeconds int `json:"duration" db:"duration"`

	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" db:"ended_at"`
}

type CallStatus string

const (
	CallStatusCreated CallStatus = "created"
	CallStatusActive  CallStatus = "active"
	CallStatusEnded   CallStatus = "ended"
	CallStatusFailed  CallStatus = "failed"
)

var (
	ErrNotFound          = errors.New("calls: not found")
	ErrAlreadyExists     = errors.New("calls: already exists")
	ErrInvalidTransition = errors.New("calls: invalid status transition")
	ErrInvalidArgument   = errors.New("calls: invalid argument")
)

// CanTransition reports whether a call may move from one status to another.
// ended and failed are terminal.
func CanTransition(from, to CallStatus) bool {
	switch from {
	case CallStatusCreated:
		return to == CallStatusActive || to == CallStatusEnded || to == CallStatusFailed
	case CallStatusActive:
		return to == CallStatusEnded || to == CallStatusFailed
	default:
		return false
	}
}

func (s CallStatus) Terminal() bool {
	return s == CallStatusEnded || s == CallStatusFailed
}
