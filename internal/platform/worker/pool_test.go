package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

type memTask struct {
	Task
	status  Status
	runAt   time.Time
	lastErr string
}

type memStore struct {
	mu    sync.Mutex
	tasks []*memTask
	seq   int
}

func (s *memStore) Insert(_ context.Context, taskType string, payload []byte, runAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.tasks = append(s.tasks, &memTask{
		Task:   Task{ID: string(rune('a' + s.seq - 1)), Type: taskType, Payload: payload},
		status: StatusPending,
		runAt:  runAt,
	})
	return nil
}

func (s *memStore) Claim(_ context.Context, now, _ time.Time) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.status == StatusPending && !t.runAt.After(now) {
			t.status = StatusRunning
			t.Attempts++
			out := t.Task
			return &out, nil
		}
	}
	return nil, nil
}

func (s *memStore) find(id string) *memTask {
	for _, t := range s.tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (s *memStore) Complete(_ context.Context, id string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.find(id).status = StatusDone
	return nil
}

func (s *memStore) Retry(_ context.Context, id string, runAt time.Time, lastErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.find(id)
	t.status, t.runAt, t.lastErr = StatusPending, runAt, lastErr
	return nil
}

func (s *memStore) Bury(_ context.Context, id string, _ time.Time, lastErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.find(id)
	t.status, t.lastErr = StatusDead, lastErr
	return nil
}

func (s *memStore) statusOf(id string) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(id).status
}

type stubClock struct {
	now time.Time
}

func (c *stubClock) Now() time.Time {
	return c.now
}

func newTestPool(store Store, handlers map[string]Handler, clock *stubClock) *Pool {
	p := NewPool(store, handlers, Config{Workers: 1, MaxAttempts: 2, PollInterval: 10 * time.Millisecond}, nil)
	p.clock = clock
	p.backoff = func(int) time.Duration { return time.Minute }
	return p
}

func TestQueue_Enqueue_EncodesPayload(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	q := NewQueue(store, &stubClock{now: time.Unix(100, 0)})
	if err := q.Enqueue(context.Background(), "greet", map[string]string{"person_id": "p-1"}); err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}

	var got map[string]string
	if err := json.Unmarshal(store.tasks[0].Payload, &got); err != nil || got["person_id"] != "p-1" {
		t.Fatalf("unexpected payload %s (%v)", store.tasks[0].Payload, err)
	}
	if err := q.Enqueue(context.Background(), "bad", make(chan int)); err == nil {
		t.Fatal("expected encode error")
	}
}

func TestPool_RunOnce_SuccessCompletes(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	clock := &stubClock{now: time.Unix(1000, 0)}
	_ = store.Insert(context.Background(), "ok", []byte(`{}`), clock.now)

	var calls int
	p := newTestPool(store, map[string]Handler{"ok": func(context.Context, []byte) error {
		calls++
		return nil
	}}, clock)

	worked, err := p.RunOnce(context.Background())
	if err != nil || !worked {
		t.Fatalf("RunOnce = %v, %v", worked, err)
	}
	if calls != 1 || store.statusOf("a") != StatusDone {
		t.Fatalf("expected task done, calls=%d status=%s", calls, store.statusOf("a"))
	}
	if worked, _ := p.RunOnce(context.Background()); worked {
		t.Fatal("expected empty queue")
	}
}

func TestPool_RunOnce_RetriesThenBuries(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	clock := &stubClock{now: time.Unix(1000, 0)}
	_ = store.Insert(context.Background(), "flaky", nil, clock.now)

	p := newTestPool(store, map[string]Handler{"flaky": func(context.Context, []byte) error {
		return errors.New("downstream unavailable")
	}}, clock)

	if _, err := p.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if store.statusOf("a") != StatusPending {
		t.Fatalf("expected retry scheduled, got %s", store.statusOf("a"))
	}
	if worked, _ := p.RunOnce(context.Background()); worked {
		t.Fatal("task must wait for its backoff")
	}

	clock.now = clock.now.Add(time.Minute)
	if _, err := p.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if store.statusOf("a") != StatusDead {
		t.Fatalf("expected dead after max attempts, got %s", store.statusOf("a"))
	}
}

func TestPool_RunOnce_PanicAndUnknownType(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	clock := &stubClock{now: time.Unix(1000, 0)}
	_ = store.Insert(context.Background(), "boom", nil, clock.now)
	_ = store.Insert(context.Background(), "unknown", nil, clock.now)

	p := newTestPool(store, map[string]Handler{"boom": func(context.Context, []byte) error {
		panic("nil map")
	}}, clock)

	_, _ = p.RunOnce(context.Background())
	_, _ = p.RunOnce(context.Background())

	if store.statusOf("a") != StatusPending {
		t.Fatalf("panicking handler must be retried, got %s", store.statusOf("a"))
	}
	if store.statusOf("b") != StatusDead {
		t.Fatalf("unknown type must be buried, got %s", store.statusOf("b"))
	}
}

func TestPool_Run_StopsOnCancel(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	clock := &stubClock{now: time.Unix(1000, 0)}
	_ = store.Insert(context.Background(), "ok", nil, clock.now)

	done := make(chan struct{})
	p := newTestPool(store, map[string]Handler{"ok": func(context.Context, []byte) error {
		close(done)
		return nil
	}}, clock)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task was not processed")
	}
	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}

func TestScheduler_RunsImmediatelyAndStops(t *testing.T) {
	t.Parallel()

	ran := make(chan struct{}, 1)
	s := NewScheduler("expire", time.Hour, func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return errors.New("logged only")
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not run")
	}
	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}

func TestScheduler_NonPositiveIntervalUsesDefault(t *testing.T) {
	t.Parallel()

	for _, interval := range []time.Duration{0, -time.Second} {
		s := NewScheduler("expire", interval, func(context.Context) error { return nil }, nil)
		if s.interval != defaultSchedulerInterval {
			t.Fatalf("interval %v: expected default, got %v", interval, s.interval)
		}
	}
}

func TestBackoff(t *testing.T) {
	t.Parallel()

	cases := map[int]time.Duration{0: time.Second, 1: 2 * time.Second, 3: 8 * time.Second, 9: 5 * time.Minute, 40: 5 * time.Minute}
	for attempt, want := range cases {
		if got := Backoff(attempt); got != want {
			t.Errorf("Backoff(%d) = %v, want %v", attempt, got, want)
		}
	}
}
