package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defaultWorkers      = 4
	defaultMaxAttempts  = 5
	defaultPollInterval = time.Second
	defaultLease        = 10 * time.Minute
)

// Config はワーカープールの設定です。0 の項目は既定値になります。
type Config struct {
	Workers      int
	MaxAttempts  int
	PollInterval time.Duration
	Lease        time.Duration
}

// Pool は Store からタスクを取り出して種別ごとの Handler を実行します。
// 配送は少なくとも 1 回で、順序は保証しません。
type Pool struct {
	store    Store
	handlers map[string]Handler
	cfg      Config
	clock    Clock
	logger   *slog.Logger
	backoff  func(int) time.Duration
}

// NewPool は Pool を生成します。
func NewPool(store Store, handlers map[string]Handler, cfg Config, logger *slog.Logger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.Lease <= 0 {
		cfg.Lease = defaultLease
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pool{
		store:    store,
		handlers: handlers,
		cfg:      cfg,
		clock:    realClock{},
		logger:   logger,
		backoff:  Backoff,
	}
}

// Run は ctx がキャンセルされるまでワーカーを動かします。
func (p *Pool) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.cfg.Workers; i++ {
		id := i
		g.Go(func() error {
			p.loop(gctx, id)
			return nil
		})
	}
	return g.Wait()
}

func (p *Pool) loop(ctx context.Context, id int) {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		for {
			worked, err := p.RunOnce(ctx)
			if err != nil && ctx.Err() == nil {
				p.logger.ErrorContext(ctx, "task claim failed", slog.Int("worker", id), slog.Any("error", err))
			}
			if !worked || ctx.Err() != nil {
				break
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce は実行可能なタスクを 1 件処理します。処理したタスクがなければ false を返します。
func (p *Pool) RunOnce(ctx context.Context) (bool, error) {
	now := p.clock.Now()
	task, err := p.store.Claim(ctx, now, now.Add(p.cfg.Lease))
	if err != nil {
		return false, fmt.Errorf("worker: claim: %w", err)
	}
	if task == nil {
		return false, nil
	}

	logger := p.logger.With(slog.String("task_id", task.ID), slog.String("type", task.Type), slog.Int("attempt", task.Attempts))

	handler, ok := p.handlers[task.Type]
	if !ok {
		logger.ErrorContext(ctx, "no handler registered, burying task")
		if err := p.store.Bury(ctx, task.ID, p.clock.Now(), "no handler"); err != nil {
			logger.ErrorContext(ctx, "bury task failed", slog.Any("error", err))
		}
		return true, nil
	}

	runErr := p.safeRun(ctx, handler, task.Payload)
	switch {
	case runErr == nil:
		if err := p.store.Complete(ctx, task.ID, p.clock.Now()); err != nil {
			logger.ErrorContext(ctx, "complete task failed", slog.Any("error", err))
		}
	case task.Attempts >= p.cfg.MaxAttempts:
		logger.ErrorContext(ctx, "task failed permanently", slog.Any("error", runErr))
		if err := p.store.Bury(ctx, task.ID, p.clock.Now(), runErr.Error()); err != nil {
			logger.ErrorContext(ctx, "bury task failed", slog.Any("error", err))
		}
	default:
		wait := p.backoff(task.Attempts)
		logger.WarnContext(ctx, "task failed, retrying", slog.Duration("backoff", wait), slog.Any("error", runErr))
		if err := p.store.Retry(ctx, task.ID, p.clock.Now().Add(wait), runErr.Error()); err != nil {
			logger.ErrorContext(ctx, "reschedule task failed", slog.Any("error", err))
		}
	}
	return true, nil
}

func (p *Pool) safeRun(ctx context.Context, h Handler, payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(fmt.Sprint("panic: ", r))
		}
	}()
	return h(ctx, payload)
}
