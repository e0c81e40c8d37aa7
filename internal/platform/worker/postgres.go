package worker

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	pgdb "github.com/ogurasousui/talent-board/internal/platform/db/postgres"
)

// PostgresStore は tasks テーブルを使う Store です。
type PostgresStore struct {
	pool pgdb.Queryer
}

// NewPostgresStore は PostgresStore を生成します。
func NewPostgresStore(pool pgdb.Queryer) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Insert はタスクを登録します。呼び出し元のトランザクションがあればそれを使います。
func (s *PostgresStore) Insert(ctx context.Context, taskType string, payload []byte, runAt time.Time) error {
	exec := pgdb.QueryerFromContext(ctx, s.pool)
	_, err := exec.Exec(ctx, `
        INSERT INTO tasks (type, payload, status, run_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $4, $4)
    `, taskType, payload, string(StatusPending), runAt)
	return err
}

// Claim は実行可能なタスクを 1 件取得します。
// リース切れの running タスク (ワーカー停止で取り残されたもの) も再取得の対象です。
func (s *PostgresStore) Claim(ctx context.Context, now, lockedUntil time.Time) (*Task, error) {
	exec := pgdb.QueryerFromContext(ctx, s.pool)
	row := exec.QueryRow(ctx, `
        UPDATE tasks
           SET status = $1, attempts = attempts + 1, locked_until = $2, updated_at = $3
         WHERE id = (
                SELECT id FROM tasks
                 WHERE (status = $4 AND run_at <= $3)
                    OR (status = $1 AND locked_until < $3)
                 ORDER BY run_at, id
                 FOR UPDATE SKIP LOCKED
                 LIMIT 1)
        RETURNING id, type, payload, attempts, run_at
    `, string(StatusRunning), lockedUntil, now, string(StatusPending))

	var t Task
	if err := row.Scan(&t.ID, &t.Type, &t.Payload, &t.Attempts, &t.RunAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// Complete はタスクを完了にします。
func (s *PostgresStore) Complete(ctx context.Context, id string, at time.Time) error {
	exec := pgdb.QueryerFromContext(ctx, s.pool)
	_, err := exec.Exec(ctx, `
        UPDATE tasks SET status = $1, locked_until = NULL, updated_at = $2 WHERE id = $3
    `, string(StatusDone), at, id)
	return err
}

// Retry はタスクを runAt に再実行するよう戻します。
func (s *PostgresStore) Retry(ctx context.Context, id string, runAt time.Time, lastErr string) error {
	exec := pgdb.QueryerFromContext(ctx, s.pool)
	_, err := exec.Exec(ctx, `
        UPDATE tasks SET status = $1, run_at = $2, locked_until = NULL, last_error = $3, updated_at = now()
         WHERE id = $4
    `, string(StatusPending), runAt, lastErr, id)
	return err
}

// Bury は再試行上限に達したタスクを dead にします。
func (s *PostgresStore) Bury(ctx context.Context, id string, at time.Time, lastErr string) error {
	exec := pgdb.QueryerFromContext(ctx, s.pool)
	_, err := exec.Exec(ctx, `
        UPDATE tasks SET status = $1, locked_until = NULL, last_error = $2, updated_at = $3 WHERE id = $4
    `, string(StatusDead), lastErr, at, id)
	return err
}
