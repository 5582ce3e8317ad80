package calls

import (
	"context"
	"time"
)

// Repository persists call records and their status history.
type Repository interface {
	Create(ctx context.Context, c Call) error
	Get(ctx context.Context, callID string) (Call, error)

	// Transition moves the call to status at the given time. durationSeconds
	// is recorded when to is terminal.
	Transition(ctx context.Context, callID string, to CallStatus, at time.Time, durationSeconds int) (Call, error)

	// ListCreated returns calls created in [from, to), oldest first.
	ListCreated(ctx context.Context, from, to time.Time) ([]Call, error)
}
