package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

const defaultFuzzyCutoff = 0.6

// Normalizer は自由入力ラベルを正規の Term に解決します。
// 照合戦略は種別ごとに設定でき、未設定の種別は StrategyExact で照合します。
type Normalizer struct {
	repo       Repository
	clock      Clock
	strategies map[Kind]Strategy
	cutoff     float64
}

// NormalizerOption は Normalizer の追加設定です。
type NormalizerOption func(*Normalizer)

// WithStrategy は種別ごとの照合戦略を設定します。
func WithStrategy(kind Kind, strategy Strategy) NormalizerOption {
	return func(n *Normalizer) {
		n.strategies[kind] = strategy
	}
}

// WithFuzzyCutoff は StrategyFuzzy の類似度閾値を設定します。
func WithFuzzyCutoff(cutoff float64) NormalizerOption {
	return func(n *Normalizer) {
		if cutoff > 0 && cutoff <= 1 {
			n.cutoff = cutoff
		}
	}
}

// NewNormalizer は Normalizer を生成します。
func NewNormalizer(repo Repository, clock Clock, opts ...NormalizerOption) *Normalizer {
	if clock == nil {
		clock = realClock{}
	}
	n := &Normalizer{
		repo:       repo,
		clock:      clock,
		strategies: make(map[Kind]Strategy),
		cutoff:     defaultFuzzyCutoff,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// StrategyFor は種別に適用される照合戦略を返します。
func (n *Normalizer) StrategyFor(kind Kind) Strategy {
	if s, ok := n.strategies[kind]; ok {
		return s
	}
	return StrategyExact
}

// Normalize は label に対応する Term を返し、存在しなければ作成します。
// 同じ label で繰り返し呼び出しても同じ Term が返り、重複レコードは作られません。
func (n *Normalizer) Normalize(ctx context.Context, kind Kind, label string) (*Term, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%q: %w", kind, ErrInvalidKind)
	}

	name := CleanLabel(label)
	if name == "" {
		return nil, ErrEmptyLabel
	}
	key := Fold(name)

	found, err := n.repo.FindByName(ctx, kind, key)
	if err == nil {
		return found, nil
	}
	if !errors.Is(err, ErrTermNotFound) {
		return nil, err
	}

	if n.StrategyFor(kind) == StrategyFuzzy {
		existing, err := n.repo.ListByKind(ctx, kind)
		if err != nil {
			return nil, err
		}
		if best := closestMatch(key, existing, n.cutoff); best != nil {
			return best, nil
		}
	}

	created, err := n.repo.Create(ctx, &Term{
		Kind:      kind,
		Name:      name,
		Key:       key,
		CreatedAt: n.clock.Now(),
	})
	if errors.Is(err, ErrTermAlreadyExists) {
		return n.repo.FindByName(ctx, kind, key)
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}

// NormalizeAll は空白ラベルを除いた各ラベルを解決し、Term ID で重複を除いて入力順に返します。
func (n *Normalizer) NormalizeAll(ctx context.Context, kind Kind, labels []string) ([]Term, error) {
	seen := make(map[string]struct{}, len(labels))
	out := make([]Term, 0, len(labels))
	for _, label := range labels {
		if strings.TrimSpace(label) == "" {
			continue
		}
		term, err := n.Normalize(ctx, kind, label)
		if err != nil {
			return nil, fmt.Errorf("%s %q: %w", kind, label, err)
		}
		if _, dup := seen[term.ID]; dup {
			continue
		}
		seen[term.ID] = struct{}{}
		out = append(out, *term)
	}
	return out, nil
}

// Service はプルダウン表示用の参照系ユースケースです。
type Service struct {
	repo Repository
}

// NewService は Service を生成します。
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List は種別ごとの Term 一覧を返します。
func (s *Service) List(ctx context.Context, kind Kind) ([]*Term, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%q: %w", kind, ErrInvalidKind)
	}
	return s.repo.ListByKind(ctx, kind)
}

// SalaryRanges は報酬帯の一覧を返します。
func (s *Service) SalaryRanges(ctx context.Context) ([]*SalaryRange, error) {
	return s.repo.ListSalaryRanges(ctx)
}

// SalaryRange は ID で報酬帯を取得します。
func (s *Service) SalaryRange(ctx context.Context, id string) (*SalaryRange, error) {
	return findSalaryRange(ctx, s.repo, id)
}

// SalaryRange は ID で報酬帯を取得します。プロフィールや求人の入力検証で使います。
func (n *Normalizer) SalaryRange(ctx context.Context, id string) (*SalaryRange, error) {
	return findSalaryRange(ctx, n.repo, id)
}

// findSalaryRange は UUID として解釈できない ID を ErrInvalidID として扱います。
func findSalaryRange(ctx context.Context, repo Repository, id string) (*SalaryRange, error) {
	trimmed := strings.TrimSpace(id)
	if _, err := uuid.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("salary range %q: %w", id, ErrInvalidID)
	}
	return repo.FindSalaryRange(ctx, trimmed)
}
