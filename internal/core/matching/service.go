package matching

import (
	"context"
	"log/slog"
	"time"
)

// PoolSource は照合の入力を読み出します。候補は ID 順で、少なくとも 1 項目が重なるものに絞り込まれています。
type PoolSource interface {
	SubjectAttributes(ctx context.Context, personID string) (Attributes, error)
	OpenJobs(ctx context.Context, subject Attributes) ([]Candidate, error)
	ActiveMentors(ctx context.Context, subject Attributes, excludePersonID string) ([]Candidate, error)
}

// Cache は人物ごとの照合結果を短時間保持します。
type Cache interface {
	Get(ctx context.Context, key string) ([]Match, bool, error)
	Set(ctx context.Context, key string, matches []Match, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

const (
	defaultTTL   = 5 * time.Minute
	defaultLimit = 20
	maxLimit     = 100
)

// Service は求人・メンターの推薦を提供します。
type Service struct {
	pool   PoolSource
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

// Option は Service の追加設定です。
type Option func(*Service)

// WithCache は結果キャッシュを設定します。
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = cache
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithLogger はロガーを設定します。
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService は Service を生成します。
func NewService(pool PoolSource, opts ...Option) *Service {
	s := &Service{pool: pool, ttl: defaultTTL, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TopJobs は人物に合う公開中の求人を上位から返します。
func (s *Service) TopJobs(ctx context.Context, personID string, limit int) ([]Match, error) {
	return s.top(ctx, jobsKey(personID), personID, limit, func(subject Attributes) ([]Candidate, error) {
		return s.pool.OpenJobs(ctx, subject)
	})
}

// TopMentors は人物に合う活動中のメンターを上位から返します。本人は含みません。
func (s *Service) TopMentors(ctx context.Context, personID string, limit int) ([]Match, error) {
	return s.top(ctx, mentorsKey(personID), personID, limit, func(subject Attributes) ([]Candidate, error) {
		return s.pool.ActiveMentors(ctx, subject, personID)
	})
}

// Invalidate は人物の照合結果キャッシュを破棄します。失敗はログに残すのみです。
func (s *Service) Invalidate(ctx context.Context, personID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, jobsKey(personID), mentorsKey(personID)); err != nil {
		s.logger.WarnContext(ctx, "match cache invalidate failed", slog.String("person_id", personID), slog.Any("error", err))
	}
}

func (s *Service) top(ctx context.Context, key, personID string, limit int, load func(Attributes) ([]Candidate, error)) ([]Match, error) {
	limit = clampLimit(limit)

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.WarnContext(ctx, "match cache read failed", slog.String("key", key), slog.Any("error", err))
		} else if ok {
			return truncate(cached, limit), nil
		}
	}

	subject, err := s.pool.SubjectAttributes(ctx, personID)
	if err != nil {
		return nil, err
	}

	var ranked []Match
	if !subject.Empty() {
		pool, err := load(subject)
		if err != nil {
			return nil, err
		}
		ranked = Rank(subject, pool)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, ranked, s.ttl); err != nil {
			s.logger.WarnContext(ctx, "match cache write failed", slog.String("key", key), slog.Any("error", err))
		}
	}
	return truncate(ranked, limit), nil
}

func jobsKey(personID string) string {
	return "match:jobs:" + personID
}

func mentorsKey(personID string) string {
	return "match:mentors:" + personID
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultLimit
	case limit > maxLimit:
		return maxLimit
	default:
		return limit
	}
}

func truncate(matches []Match, limit int) []Match {
	if len(matches) > limit {
		return matches[:limit]
	}
	if matches == nil {
		return []Match{}
	}
	return matches
}
