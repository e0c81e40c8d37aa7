package company

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
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

const (
	defaultListPageSize = 50
	maxListPageSize     = 200
)

// Service は会社に関するユースケースをまとめます。
type Service struct {
	repo  Repository
	clock Clock
	tx    TransactionManager
}

// NewService は Service を生成します。
func NewService(repo Repository, clock Clock, tx TransactionManager) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	return &Service{repo: repo, clock: clock, tx: tx}
}

// CreateCompanyInput は会社作成時の入力です。
type CreateCompanyInput struct {
	Name        string
	URL         string
	LogoRef     string
	Description *string
	CreatedBy   string
}

// UpdateCompanyInput は会社更新時の入力です。
type UpdateCompanyInput struct {
	ID          string
	Name        *string
	URL         *string
	LogoRef     *string
	Description *string
}

// ListCompaniesInput は一覧取得時の入力です。
type ListCompaniesInput struct {
	PageSize  int
	PageToken string
	Unclaimed *bool
}

// ListCompaniesResult は一覧取得結果を表します。
type ListCompaniesResult struct {
	Companies     []*Company
	NextPageToken string
}

// CreateCompany は会社アカウントとして会社を作成します。作成者は管理者・採用担当として登録されます。
func (s *Service) CreateCompany(ctx context.Context, in CreateCompanyInput) (*Company, error) {
	name, err := normalizeName(in.Name)
	if err != nil {
		return nil, err
	}

	site, err := normalizeURL(in.URL)
	if err != nil {
		return nil, err
	}

	var created *Company
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		now := s.clock.Now()
		result, err := s.repo.Create(txCtx, &Company{
			Name:        name,
			URL:         site,
			LogoRef:     strings.TrimSpace(in.LogoRef),
			Description: normalizeDescription(in.Description),
			CreatedBy:   in.CreatedBy,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return err
		}

		if in.CreatedBy != "" {
			for _, rel := range []Relation{RelationAdmin, RelationHiring} {
				if err := s.repo.AddMember(txCtx, Member{
					CompanyID: result.ID,
					PersonID:  in.CreatedBy,
					Relation:  rel,
					CreatedAt: now,
				}); err != nil {
					return err
				}
			}
		}

		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	return created, nil
}

// UpdateCompany は会社情報を更新します。
func (s *Service) UpdateCompany(ctx context.Context, in UpdateCompanyInput) (*Company, error) {
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var updated *Company
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, in.ID)
		if err != nil {
			return err
		}

		if in.Name != nil {
			name, err := normalizeName(*in.Name)
			if err != nil {
				return err
			}
			existing.Name = name
		}

		if in.URL != nil {
			site, err := normalizeURL(*in.URL)
			if err != nil {
				return err
			}
			existing.URL = site
		}

		if in.LogoRef != nil {
			existing.LogoRef = strings.TrimSpace(*in.LogoRef)
		}

		if in.Description != nil {
			existing.Description = normalizeDescription(in.Description)
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

// DeleteCompany は会社を論理削除します。
func (s *Service) DeleteCompany(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("id: %w", ErrInvalidID)
	}

	return s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return s.repo.SoftDelete(txCtx, id, s.clock.Now())
	})
}

// GetCompany は ID で会社を取得します。
func (s *Service) GetCompany(ctx context.Context, id string) (*Company, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var company *Company
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		company = result
		return nil
	}); err != nil {
		return nil, err
	}

	return company, nil
}

// ListCompanies は会社の一覧を取得します。
func (s *Service) ListCompanies(ctx context.Context, in ListCompaniesInput) (*ListCompaniesResult, error) {
	limit, err := normalizePageSize(in.PageSize)
	if err != nil {
		return nil, err
	}

	offset, err := parsePageToken(in.PageToken)
	if err != nil {
		return nil, err
	}

	var (
		companies []*Company
		nextToken string
	)

	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		resultCompanies, token, err := s.repo.List(txCtx, ListCompaniesFilter{
			Limit:     limit,
			Offset:    offset,
			Unclaimed: in.Unclaimed,
		})
		if err != nil {
			return err
		}
		companies = resultCompanies
		nextToken = token
		return nil
	}); err != nil {
		return nil, err
	}

	return &ListCompaniesResult{
		Companies:     companies,
		NextPageToken: nextToken,
	}, nil
}

// Members は関係ごとの人物 ID 一覧を返します。
func (s *Service) Members(ctx context.Context, companyID string, relation Relation) ([]string, error) {
	if strings.TrimSpace(companyID) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}
	if !relation.Valid() {
		return nil, fmt.Errorf("%q: %w", relation, ErrInvalidRelation)
	}

	var ids []string
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.FindByID(txCtx, companyID); err != nil {
			return err
		}
		result, err := s.repo.Members(txCtx, companyID, relation)
		if err != nil {
			return err
		}
		ids = result
		return nil
	}); err != nil {
		return nil, err
	}
	return ids, nil
}

// AddTeamMember は請求・採用・管理チームに人物を追加します。
// 在籍 (current) の変更は Resolver を経由させるため、ここでは受け付けません。
func (s *Service) AddTeamMember(ctx context.Context, companyID, personID string, relation Relation) error {
	switch relation {
	case RelationBilling, RelationHiring, RelationAdmin:
	default:
		return fmt.Errorf("%q: %w", relation, ErrInvalidRelation)
	}
	if strings.TrimSpace(companyID) == "" || strings.TrimSpace(personID) == "" {
		return fmt.Errorf("id: %w", ErrInvalidID)
	}

	return s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.FindByID(txCtx, companyID); err != nil {
			return err
		}
		return s.repo.AddMember(txCtx, Member{
			CompanyID: companyID,
			PersonID:  personID,
			Relation:  relation,
			CreatedAt: s.clock.Now(),
		})
	})
}

// RemoveTeamMember はチームから人物を外します。
func (s *Service) RemoveTeamMember(ctx context.Context, companyID, personID string, relation Relation) error {
	switch relation {
	case RelationBilling, RelationHiring, RelationAdmin:
	default:
		return fmt.Errorf("%q: %w", relation, ErrInvalidRelation)
	}

	return s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return s.repo.RemoveMember(txCtx, companyID, personID, relation)
	})
}

func normalizeName(raw string) (string, error) {
	trimmed := strings.Join(strings.Fields(raw), " ")
	if trimmed == "" {
		return "", ErrInvalidName
	}
	return trimmed, nil
}

// normalizeURL はスキームのない入力に https を補い、http(s) 以外を拒否します。空文字は許容します。
func normalizeURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" {
		return "", ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrInvalidURL
	}
	u.Host = strings.ToLower(u.Host)
	return strings.TrimSuffix(u.String(), "/"), nil
}

func normalizeDescription(raw *string) *string {
	if raw == nil {
		return nil
	}

	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return nil
	}

	desc := trimmed
	return &desc
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
