package tagsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ogurasousui/talent-board/internal/core/person"
)

// TaskType は非同期タスクの種別名です。
const TaskType = "tagsync.reconcile"

// Payload はタスクの内容です。
type Payload struct {
	PersonID string `json:"person_id"`
}

// ProfileSource は人物プロフィールを読み出します。
type ProfileSource interface {
	Profile(ctx context.Context, id string) (*person.Profile, error)
}

// MailingList は外部のメール配信サービスです。
type MailingList interface {
	ListTags(ctx context.Context) ([]Tag, error)
	TagSubscriber(ctx context.Context, tagID, email string) error
	UntagSubscriber(ctx context.Context, tagID, email string) error
}

// retryAfter はサーバーが待機時間を指定したエラーです。
type retryAfter interface {
	RetryAfter() time.Duration
}

const (
	defaultBackoff      = time.Second
	defaultMaxRetryWait = time.Minute
)

// Service は人物のタグを外部サービスと同期します。
type Service struct {
	profiles     ProfileSource
	list         MailingList
	managed      Managed
	maxRetryWait time.Duration
	logger       *slog.Logger
	sleep        func(ctx context.Context, d time.Duration) error
}

// Option は Service の設定を変更します。
type Option func(*Service)

// WithManagedTags は同期対象のタグの条件を設定します。未設定の場合はどのタグも変更しません。
func WithManagedTags(m Managed) Option {
	return func(s *Service) {
		s.managed = m
	}
}

// WithMaxRetryWait は再試行前に待つ時間の上限です。タスクのリース期間より短くしてください。
func WithMaxRetryWait(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.maxRetryWait = d
		}
	}
}

// NewService は Service を生成します。
func NewService(profiles ProfileSource, list MailingList, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{profiles: profiles, list: list, maxRetryWait: defaultMaxRetryWait, logger: logger, sleep: sleepContext}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle はタスクのペイロードを解釈して Sync を実行します。
func (s *Service) Handle(ctx context.Context, payload []byte) error {
	var p Payload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode %s payload: %w", TaskType, err)
	}
	return s.Sync(ctx, p.PersonID)
}

// Sync はプロフィールから差分を計算し、配信サービスへ反映します。
// プロフィールの読み出しに失敗した場合はエラーを返して再実行に委ねます。
// 反映の失敗は待機後に一度だけ再試行し、それでも失敗すればログに残して終了します。
func (s *Service) Sync(ctx context.Context, personID string) error {
	profile, err := s.profiles.Profile(ctx, personID)
	if errors.Is(err, person.ErrPersonNotFound) {
		s.logger.InfoContext(ctx, "tag sync skipped for missing person", slog.String("person_id", personID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	delta, err := s.compute(ctx, ProfileFrom(profile))
	if err == nil {
		err = s.push(ctx, profile.Person.Email, &delta)
	}
	if err == nil {
		return nil
	}

	wait := defaultBackoff
	var ra retryAfter
	if errors.As(err, &ra) && ra.RetryAfter() > 0 {
		wait = min(ra.RetryAfter(), s.maxRetryWait)
	}
	s.logger.WarnContext(ctx, "tag sync failed, retrying once",
		slog.String("person_id", personID), slog.Duration("backoff", wait), slog.Any("error", err))
	if err := s.sleep(ctx, wait); err != nil {
		return err
	}

	if delta.Empty() {
		delta, err = s.compute(ctx, ProfileFrom(profile))
	}
	if err == nil {
		err = s.push(ctx, profile.Person.Email, &delta)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "tag sync gave up",
			slog.String("person_id", personID), slog.Any("error", err))
	}
	return nil
}

func (s *Service) compute(ctx context.Context, p Profile) (Delta, error) {
	catalog, err := s.list.ListTags(ctx)
	if err != nil {
		return Delta{}, fmt.Errorf("list tags: %w", err)
	}
	return Reconcile(p, s.managed.Filter(catalog)), nil
}

// push は反映済みのタグを delta から取り除きながら進めるため、再試行は残りだけを送ります。
func (s *Service) push(ctx context.Context, email string, delta *Delta) error {
	for len(delta.Add) > 0 {
		if err := s.list.TagSubscriber(ctx, delta.Add[0].ID, email); err != nil {
			return fmt.Errorf("tag %q: %w", delta.Add[0].Name, err)
		}
		delta.Add = delta.Add[1:]
	}
	for len(delta.Remove) > 0 {
		if err := s.list.UntagSubscriber(ctx, delta.Remove[0].ID, email); err != nil {
			return fmt.Errorf("untag %q: %w", delta.Remove[0].Name, err)
		}
		delta.Remove = delta.Remove[1:]
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
