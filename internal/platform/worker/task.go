package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Status はタスクの状態です。
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusDead    Status = "dead"
)

// Task はキューに積まれた 1 件の処理です。Attempts は取得済みの回数で、取得時に加算されます。
type Task struct {
	ID       string
	Type     string
	Payload  []byte
	Attempts int
	RunAt    time.Time
}

// Handler はタスク種別ごとの処理です。エラーを返すと再試行されます。
type Handler func(ctx context.Context, payload []byte) error

// Store はタスクの永続化です。
type Store interface {
	Insert(ctx context.Context, taskType string, payload []byte, runAt time.Time) error
	// Claim は実行可能なタスクを 1 件取得し、lockedUntil まで他のワーカーから隠します。なければ nil を返します。
	Claim(ctx context.Context, now, lockedUntil time.Time) (*Task, error)
	Complete(ctx context.Context, id string, at time.Time) error
	Retry(ctx context.Context, id string, runAt time.Time, lastErr string) error
	Bury(ctx context.Context, id string, at time.Time, lastErr string) error
}

// Backoff は attempt 回目の失敗後の待機時間です。2^attempt 秒で 5 分を上限とします。
func Backoff(attempt int) time.Duration {
	if attempt <= 0 {
		return time.Second
	}
	if attempt >= 9 {
		return maxBackoff
	}
	d := time.Duration(1<<uint(attempt)) * time.Second
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

const maxBackoff = 5 * time.Minute

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// Queue はタスクを登録します。コンテキストにトランザクションがあればそれに参加します。
type Queue struct {
	store Store
	clock Clock
}

// NewQueue は Queue を生成します。
func NewQueue(store Store, clock Clock) *Queue {
	if clock == nil {
		clock = realClock{}
	}
	return &Queue{store: store, clock: clock}
}

// Enqueue は payload を JSON にしてタスクを登録します。
func (q *Queue) Enqueue(ctx context.Context, taskType string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("worker: encode %s payload: %w", taskType, err)
	}
	if err := q.store.Insert(ctx, taskType, b, q.clock.Now()); err != nil {
		return fmt.Errorf("worker: enqueue %s: %w", taskType, err)
	}
	return nil
}
