package job

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ogurasousui/talent-board/internal/core/taxonomy"
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

// Taxonomy は求人の分類項目を解決します。
type Taxonomy interface {
	NormalizeAll(ctx context.Context, kind taxonomy.Kind, labels []string) ([]taxonomy.Term, error)
	SalaryRange(ctx context.Context, id string) (*taxonomy.SalaryRange, error)
}

const (
	defaultListPageSize = 50
	maxListPageSize     = 200
	// DefaultExpiryAge は active の求人が自動で期限切れになるまでの期間です。
	DefaultExpiryAge = 90 * 24 * time.Hour
)

// Service は求人に関するユースケースをまとめます。
type Service struct {
	repo      Repository
	terms     Taxonomy
	clock     Clock
	tx        TransactionManager
	expiryAge time.Duration
}

// Option は Service の追加設定です。
type Option func(*Service)

// WithExpiryAge は期限切れまでの期間を変更します。
func WithExpiryAge(age time.Duration) Option {
	return func(s *Service) {
		if age > 0 {
			s.expiryAge = age
		}
	}
}

// NewService は Service を生成します。
func NewService(repo Repository, terms Taxonomy, clock Clock, tx TransactionManager, opts ...Option) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	s := &Service{repo: repo, terms: terms, clock: clock, tx: tx, expiryAge: DefaultExpiryAge}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateJobInput は求人作成時の入力です。
type CreateJobInput struct {
	CompanyID   string
	Title       string
	Description string
	ApplyURL    string
	Location    string
	Remote      bool
	Skills      []string
	Departments []string
	SalaryID    string
	CreatedBy   string
}

// UpdateJobInput は求人更新時の入力です。nil のフィールドは変更しません。
type UpdateJobInput struct {
	ID          string
	Title       *string
	Description *string
	ApplyURL    *string
	Location    *string
	Remote      *bool
	Skills      []string
	Departments []string
	SalaryID    *string
}

// ListJobsInput は一覧取得時の入力です。
type ListJobsInput struct {
	PageSize  int
	PageToken string
	Status    *Status
	CompanyID string
}

// ListJobsResult は一覧取得結果を表します。
type ListJobsResult struct {
	Jobs          []*Job
	NextPageToken string
}

// CreateJob は求人を draft で作成します。
func (s *Service) CreateJob(ctx context.Context, in CreateJobInput) (*Job, error) {
	if strings.TrimSpace(in.CompanyID) == "" {
		return nil, fmt.Errorf("company id: %w", ErrInvalidID)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrInvalidTitle
	}

	var created *Job
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		j := &Job{
			CompanyID:   in.CompanyID,
			Title:       title,
			Description: strings.TrimSpace(in.Description),
			ApplyURL:    strings.TrimSpace(in.ApplyURL),
			Location:    strings.TrimSpace(in.Location),
			Remote:      in.Remote,
			Status:      StatusDraft,
			CreatedBy:   in.CreatedBy,
		}
		if err := s.applyTerms(txCtx, j, in.Skills, in.Departments); err != nil {
			return err
		}
		if err := s.applySalary(txCtx, j, in.SalaryID); err != nil {
			return err
		}

		now := s.clock.Now()
		j.CreatedAt = now
		j.UpdatedAt = now

		result, err := s.repo.Create(txCtx, j)
		if err != nil {
			return err
		}
		created = result
		return nil
	}); err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateJob は編集可能な状態の求人を更新します。
func (s *Service) UpdateJob(ctx context.Context, in UpdateJobInput) (*Job, error) {
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var updated *Job
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, in.ID)
		if err != nil {
			return err
		}
		if !editable(existing.Status) {
			return ErrNotEditable
		}

		if in.Title != nil {
			title := strings.TrimSpace(*in.Title)
			if title == "" {
				return ErrInvalidTitle
			}
			existing.Title = title
		}
		if in.Description != nil {
			existing.Description = strings.TrimSpace(*in.Description)
		}
		if in.ApplyURL != nil {
			existing.ApplyURL = strings.TrimSpace(*in.ApplyURL)
		}
		if in.Location != nil {
			existing.Location = strings.TrimSpace(*in.Location)
		}
		if in.Remote != nil {
			existing.Remote = *in.Remote
		}
		if in.Skills != nil || in.Departments != nil {
			skills, departments := in.Skills, in.Departments
			if skills == nil {
				skills = taxonomy.Names(existing.Skills)
			}
			if departments == nil {
				departments = taxonomy.Names(existing.Departments)
			}
			if err := s.applyTerms(txCtx, existing, skills, departments); err != nil {
				return err
			}
		}
		if in.SalaryID != nil {
			if err := s.applySalary(txCtx, existing, *in.SalaryID); err != nil {
				return err
			}
		}

		existing.UpdatedAt = s.clock.Now()
		result, err := s.repo.Update(txCtx, existing)
		if err != nil {
			return err
		}
		updated = result
		return nil
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

// GetJob は ID で求人を取得します。
func (s *Service) GetJob(ctx context.Context, id string) (*Job, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}
	var j *Job
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		j = result
		return nil
	}); err != nil {
		return nil, err
	}
	return j, nil
}

// ListActive は公開中 (active) の求人のみを返します。
func (s *Service) ListActive(ctx context.Context, in ListJobsInput) (*ListJobsResult, error) {
	active := StatusActive
	in.Status = &active
	return s.ListJobs(ctx, in)
}

// ListJobs は求人の一覧を取得します。Status を指定しない場合は全状態が対象です。
func (s *Service) ListJobs(ctx context.Context, in ListJobsInput) (*ListJobsResult, error) {
	limit, err := normalizePageSize(in.PageSize)
	if err != nil {
		return nil, err
	}
	offset, err := parsePageToken(in.PageToken)
	if err != nil {
		return nil, err
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, fmt.Errorf("%q: %w", *in.Status, ErrInvalidStatus)
	}

	var out ListJobsResult
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		jobs, token, err := s.repo.List(txCtx, ListJobsFilter{
			Limit:     limit,
			Offset:    offset,
			Status:    in.Status,
			CompanyID: in.CompanyID,
		})
		if err != nil {
			return err
		}
		out = ListJobsResult{Jobs: jobs, NextPageToken: token}
		return nil
	}); err != nil {
		return nil, err
	}
	return &out, nil
}

// ApplyEvent は求人の状態を遷移させます。
// 更新は読み取った状態を条件にするため、並行した遷移の一方は ErrStatusConflict になります。
func (s *Service) ApplyEvent(ctx context.Context, id string, event Event) (*Job, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var out *Job
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		next, err := Transition(existing.Status, event)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		change := StatusChange{ID: id, From: existing.Status, To: next, At: now}
		// 承認のたびに掲載期間を数え直します。再掲載された求人も承認時点から期限まで掲載されます。
		if event == EventApprove {
			change.PostedAt = &now
		}
		if err := s.repo.UpdateStatus(txCtx, change); err != nil {
			return err
		}
		existing.Status = next
		existing.UpdatedAt = now
		if change.PostedAt != nil {
			existing.PostedAt = change.PostedAt
		}
		out = existing
		return nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// ExpireStale は承認 (掲載開始) から期限を超えた active の求人を job_expired にし、件数を返します。
func (s *Service) ExpireStale(ctx context.Context) (int, error) {
	now := s.clock.Now()
	cutoff := now.Add(-s.expiryAge)

	var count int
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		n, err := s.repo.ExpireActiveBefore(txCtx, cutoff, now)
		if err != nil {
			return err
		}
		count = n
		return nil
	}); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Service) applyTerms(ctx context.Context, j *Job, skills, departments []string) error {
	if s.terms == nil {
		return nil
	}
	sk, err := s.terms.NormalizeAll(ctx, taxonomy.KindSkill, skills)
	if err != nil {
		return err
	}
	dep, err := s.terms.NormalizeAll(ctx, taxonomy.KindDepartment, departments)
	if err != nil {
		return err
	}
	j.Skills = sk
	j.Departments = dep
	return nil
}

func (s *Service) applySalary(ctx context.Context, j *Job, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		j.SalaryID = ""
		return nil
	}
	if s.terms != nil {
		if _, err := s.terms.SalaryRange(ctx, id); err != nil {
			return err
		}
	}
	j.SalaryID = id
	return nil
}

func editable(status Status) bool {
	switch status {
	case StatusDraft, StatusPending, StatusActive, StatusPaused:
		return true
	default:
		return false
	}
}

func normalizePageSize(pageSize int) (int, error) {
	if pageSize <= 0 {
		return defaultListPageSize, nil
	}
	if pageSize > maxListPageSize {
		return 0, ErrInvalidPageSize
	}
	return pageSize, nil
}

func parsePageToken(token string) (int, error) {
	if strings.TrimSpace(token) == "" {
		return 0, nil
	}

	offset, err := strconv.Atoi(token)
	if err != nil || offset < 0 {
		return 0, ErrInvalidPageToken
	}

	return offset, nil
}
