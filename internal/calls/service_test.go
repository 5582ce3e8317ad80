package calls

import (
	"context"
	"errors"
	"testing"
	"time"

	"healthmate/pkg/utils"

	_ "modernc.org/sqlite"
)

func newSQLRepo(t *testing.T) *SQLRepo {
	t.Helper()
	ctx := context.Background()
	db, err := utils.OpenDB(ctx, "sqlite", "file::memory:", utils.SQLitePool())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := NewSQLRepo(db, "sqlite")
	if err := repo.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo
}

func steppingClock(start time.Time) func() time.Time {
	now := start
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func exerciseLifecycle(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()
	svc := NewService(repo)
	svc.clock = steppingClock(time.Unix(1700000000, 0))

	c, err := svc.Record(ctx, "call-1", "wss://voice.example.com/s", false, "")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if c.Status != CallStatusCreated {
		t.Fatalf("expected created, got %s", c.Status)
	}
	if _, err := svc.Record(ctx, "call-1", "", false, ""); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	if _, err := svc.Activate(ctx, "call-1"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := svc.Activate(ctx, "call-1"); err != nil {
		t.Fatalf("second activate: %v", err)
	}

	ended, err := svc.End(ctx, "call-1", 95*time.Second)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if ended.Status != CallStatusEnded || ended.DurationSeconds != 95 || ended.EndedAt == nil {
		t.Fatalf("unexpected ended call: %+v", ended)
	}

	if _, err := svc.End(ctx, "call-1", time.Second); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	got, err := svc.Get(ctx, "call-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != CallStatusEnded || got.JoinURL != "wss://voice.example.com/s" || got.DurationSeconds != 95 {
		t.Fatalf("unexpected stored call: %+v", got)
	}

	start := time.Unix(1700000000, 0)
	listed, err := svc.List(ctx, start, start.Add(time.Hour))
	if err != nil || len(listed) != 1 || listed[0].CallID != "call-1" {
		t.Fatalf("list: %+v %v", listed, err)
	}
	if listed, _ := svc.List(ctx, start.Add(time.Hour), start.Add(2*time.Hour)); len(listed) != 0 {
		t.Fatalf("expected empty range, got %+v", listed)
	}
	if _, err := svc.List(ctx, start, start); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty range, got %v", err)
	}
}

func TestService_LifecycleMemory(t *testing.T) {
	repo := NewMemoryRepo()
	exerciseLifecycle(t, repo)
	want := []CallStatus{CallStatusCreated, CallStatusActive, CallStatusEnded}
	if got := repo.History("call-1"); !equalHistory(got, want) {
		t.Fatalf("unexpected history: %v", got)
	}
}

func TestService_LifecycleSQL(t *testing.T) {
	repo := newSQLRepo(t)
	exerciseLifecycle(t, repo)
	got, err := repo.History(context.Background(), "call-1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	want := []CallStatus{CallStatusCreated, CallStatusActive, CallStatusEnded}
	if !equalHistory(got, want) {
		t.Fatalf("unexpected history: %v", got)
	}
}

func TestService_MockCallKeepsReason(t *testing.T) {
	repo := newSQLRepo(t)
	svc := NewService(repo)
	ctx := context.Background()

	if _, err := svc.Record(ctx, "mock-call-1", "wss://mock.ultravox.ai/stream", true, "webhook returned 500"); err != nil {
		t.Fatalf("record: %v", err)
	}
	c, err := svc.Get(ctx, "mock-call-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !c.Mock || c.FallbackReason != "webhook returned 500" {
		t.Fatalf("unexpected call: %+v", c)
	}
	if _, err := svc.Fail(ctx, "mock-call-1"); err != nil {
		t.Fatalf("fail: %v", err)
	}
}

func TestMemoryLimiter_OneSlotPerCall(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()

	ok, _ := l.Acquire(ctx, "c1")
	if !ok {
		t.Fatalf("expected first acquire to succeed")
	}
	if ok, _ := l.Acquire(ctx, "c1"); ok {
		t.Fatalf("expected second acquire to fail")
	}
	if ok, _ := l.Acquire(ctx, "c2"); !ok {
		t.Fatalf("expected other call to succeed")
	}
	_ = l.Release(ctx, "c1")
	if ok, _ := l.Acquire(ctx, "c1"); !ok {
		t.Fatalf("expected acquire after release")
	}
}

func equalHistory(a, b []CallStatus) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
