package worker

import (
	"context"
	"log/slog"
	"time"
)

const defaultSchedulerInterval = time.Hour

// Scheduler は一定間隔で fn を実行します。初回は起動直後に実行します。
type Scheduler struct {
	name     string
	interval time.Duration
	fn       func(ctx context.Context) error
	logger   *slog.Logger
}

// NewScheduler は Scheduler を生成します。interval が 0 以下なら既定の 1 時間を使います。
func NewScheduler(name string, interval time.Duration, fn func(ctx context.Context) error, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = defaultSchedulerInterval
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{name: name, interval: interval, fn: fn, logger: logger}
}

// Run は ctx がキャンセルされるまで fn を繰り返します。fn のエラーはログに残して継続します。
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.fn(ctx); err != nil && ctx.Err() == nil {
			s.logger.ErrorContext(ctx, "scheduled run failed", slog.String("name", s.name), slog.Any("error", err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
