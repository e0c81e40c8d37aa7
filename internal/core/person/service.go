package person

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// TaskQueue は呼び出し元のトランザクションに参加してタスクを登録します。
type TaskQueue interface {
	Enqueue(ctx context.Context, taskType string, payload any) error
}

// OffboardTaskType は退会後の外部連携解除タスクの種別名です。
const OffboardTaskType = "person.offboard"

// OffboardPayload は退会タスクの内容です。削除後は人物を引けないためメールアドレスを持ちます。
type OffboardPayload struct {
	PersonID string `json:"person_id"`
	Email    string `json:"email"`
}

const minPasswordLength = 8

// Service は会員アカウントに関するユースケースをまとめます。
type Service struct {
	repo       Repository
	clock      Clock
	tx         TransactionManager
	tasks      TaskQueue
	bcryptCost int
}

// Option は Service の追加設定です。
type Option func(*Service)

// WithBcryptCost はパスワードハッシュのコストを変更します。テストでは bcrypt.MinCost を使います。
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

// WithTaskQueue は退会時の連携解除タスクの登録先を設定します。
func WithTaskQueue(q TaskQueue) Option {
	return func(s *Service) {
		s.tasks = q
	}
}

// NewService は Service を生成します。
func NewService(repo Repository, clock Clock, tx TransactionManager, opts ...Option) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	s := &Service{repo: repo, clock: clock, tx: tx, bcryptCost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterInput は会員登録時の入力です。
type RegisterInput struct {
	AccountType AccountType
	Email       string
	FirstName   string
	LastName    string
	Password    string
	Marketing   Marketing
}

// Register は会員を登録し、空の職務・属性プロフィールを同一トランザクションで作成します。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Person, error) {
	if !in.AccountType.Valid() {
		return nil, fmt.Errorf("%q: %w", in.AccountType, ErrInvalidAccountType)
	}

	email, err := NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}

	first := strings.TrimSpace(in.FirstName)
	last := strings.TrimSpace(in.LastName)
	if first == "" {
		return nil, ErrInvalidName
	}

	if len(in.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var created *Person
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := s.ensureEmailNotExists(txCtx, email); err != nil {
			return err
		}

		now := s.clock.Now()
		p := &Person{
			Email:        email,
			FirstName:    first,
			LastName:     last,
			PasswordHash: string(hash),
			Roles:        rolesFor(in.AccountType),
			Marketing:    in.Marketing,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		result, err := s.repo.Create(txCtx, p)
		if err != nil {
			return err
		}
		if err := s.repo.CreateProfiles(txCtx, result.ID, now); err != nil {
			return err
		}

		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	return created, nil
}

// Authenticate はメールアドレスとパスワードを照合します。
// 存在しない・削除済み・不一致のいずれも ErrInvalidCredentials を返します。
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Person, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	p, err := s.repo.FindByEmail(ctx, normalized)
	if errors.Is(err, ErrPersonNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if p.Deleted() {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return p, nil
}

// GetPerson は ID で人物を取得します。
func (s *Service) GetPerson(ctx context.Context, id string) (*Person, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}
	return s.repo.FindByID(ctx, id)
}

// Profile は人物とプロフィールをまとめて取得します。
func (s *Service) Profile(ctx context.Context, id string) (*Profile, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var out Profile
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		p, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		prof, err := s.repo.FindProfessional(txCtx, id)
		if err != nil {
			return err
		}
		demo, err := s.repo.FindDemographic(txCtx, id)
		if err != nil {
			return err
		}
		out = Profile{Person: p, Professional: prof, Demographic: demo}
		return nil
	}); err != nil {
		return nil, err
	}
	return &out, nil
}

// SoftDelete は人物を論理削除します。監査のためレコードは残ります。
// TaskQueue が設定されていれば、同じトランザクションで連携解除タスクを登録します。
func (s *Service) SoftDelete(ctx context.Context, id, reason string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("id: %w", ErrInvalidID)
	}
	return s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		p, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		if err := s.repo.SoftDelete(txCtx, id, strings.TrimSpace(reason), s.clock.Now()); err != nil {
			return err
		}
		if s.tasks == nil {
			return nil
		}
		return s.tasks.Enqueue(txCtx, OffboardTaskType, OffboardPayload{PersonID: p.ID, Email: p.Email})
	})
}

// RecordSideEffect は外部連携の結果を記録します。
func (s *Service) RecordSideEffect(ctx context.Context, id string, effect SideEffect, done bool) error {
	switch effect {
	case SideEffectChatInvite, SideEffectMailingList, SideEffectInternalNotify:
	default:
		return fmt.Errorf("%q: %w", effect, ErrInvalidSideEffect)
	}
	return s.repo.MarkSideEffect(ctx, id, effect, done)
}

// Stats は管理画面向けの内訳を返します。既定では削除済みを除外し、IncludeDeleted で含めます。
func (s *Service) Stats(ctx context.Context, filter StatsFilter) (*Stats, error) {
	var stats *Stats
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.Stats(txCtx, filter)
		if err != nil {
			return err
		}
		stats = result
		return nil
	}); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Service) ensureEmailNotExists(ctx context.Context, email string) error {
	p, err := s.repo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrPersonNotFound) {
		return err
	}
	if p != nil {
		return ErrEmailAlreadyExists
	}
	return nil
}

func rolesFor(t AccountType) Roles {
	switch t {
	case AccountCompany:
		return Roles{CompanyAccount: true, Recruiter: true}
	case AccountOpenDoors:
		return Roles{OpenDoors: true}
	default:
		return Roles{Member: true}
	}
}

// NormalizeEmail はメールアドレスを検証し小文字化します。
func NormalizeEmail(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidEmail
	}

	addr, err := mail.ParseAddress(trimmed)
	if err != nil {
		return "", ErrInvalidEmail
	}

	return strings.ToLower(addr.Address), nil
}
