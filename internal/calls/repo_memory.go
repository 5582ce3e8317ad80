package calls

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryRepo keeps calls in process memory. Used by tests and by local runs
// without a database.
type MemoryRepo struct {
	mu     sync.Mutex
	calls  map[string]Call
	events map[string][]CallStatus
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{calls: map[string]Call{}, events: map[string][]CallStatus{}}
}

func (r *MemoryRepo) Create(ctx context.Context, c Call) error {
	if c.CallID == "" {
		return ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.calls[c.CallID]; ok {
		return ErrAlreadyExists
	}
	r.calls[c.CallID] = c
	r.events[c.CallID] = append(r.events[c.CallID], c.Status)
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, callID string) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[callID]
	if !ok {
		return Call{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) Transition(ctx context.Context, callID string, to CallStatus, at time.Time, durationSeconds int) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[callID]
	if !ok {
		return Call{}, ErrNotFound
	}
	if !CanTransition(c.Status, to) {
		return Call{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, to)
	}
	c.Status = to
	c.UpdatedAt = at
	if to.Terminal() {
		ended := at
		c.EndedAt = &ended
		c.DurationSeconds = durationSeconds
	}
	r.calls[callID] = c
	r.events[callID] = append(r.events[callID], to)
	return c, nil
}

func (r *MemoryRepo) ListCreated(ctx context.Context, from, to time.Time) ([]Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Call{}
	for _, c := range r.calls {
		if c.CreatedAt.Before(from) || !c.CreatedAt.Before(to) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CallID < out[j].CallID
	})
	return out, nil
}

// History returns the recorded statuses of a call in order.
func (r *MemoryRepo) History(callID string) []CallStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]CallStatus(nil), r.events[callID]...)
}
