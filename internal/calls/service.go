package calls

import (
	"context"
	"errors"
	"time"
)

// Service owns call lifecycle rules on top of a Repository.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// Record stores a freshly initiated call in status created.
func (s *Service) Record(ctx context.Context, callID, joinURL string, mock bool, fallbackReason string) (Call, error) {
	if callID == "" {
		return Call{}, ErrInvalidArgument
	}
	now := s.clock().UTC()
	c := Call{
		CallID:         callID,
		JoinURL:        joinURL,
		Mock:           mock,
		FallbackReason: fallbackReason,
		Status:         CallStatusCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return Call{}, err
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, callID string) (Call, error) {
	return s.repo.Get(ctx, callID)
}

// List returns calls created in [from, to).
func (s *Service) List(ctx context.Context, from, to time.Time) ([]Call, error) {
	if !to.After(from) {
		return nil, ErrInvalidArgument
	}
	return s.repo.ListCreated(ctx, from, to)
}

// Activate marks the call as streaming. Re-activating an active call is not
// an error.
func (s *Service) Activate(ctx context.Context, callID string) (Call, error) {
	c, err := s.repo.Transition(ctx, callID, CallStatusActive, s.clock().UTC(), 0)
	if errors.Is(err, ErrInvalidTransition) {
		cur, gerr := s.repo.Get(ctx, callID)
		if gerr == nil && cur.Status == CallStatusActive {
			return cur, nil
		}
	}
	return c, err
}

// End closes the call with the duration measured by the caller.
func (s *Service) End(ctx context.Context, callID string, duration time.Duration) (Call, error) {
	if duration < 0 {
		duration = 0
	}
	return s.repo.Transition(ctx, callID, CallStatusEnded, s.clock().UTC(), int(duration/time.Second))
}

func (s *Service) Fail(ctx context.Context, callID string) (Call, error) {
	return s.repo.Transition(ctx, callID, CallStatusFailed, s.clock().UTC(), 0)
}
