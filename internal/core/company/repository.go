package company

import (
	"context"
	"time"
)

// Repository は会社エンティティと所属関係の永続化を行うインターフェースです。
// FindByID と List は論理削除済みの会社を返しません。
type Repository interface {
	Create(ctx context.Context, company *Company) (*Company, error)
	Update(ctx context.Context, company *Company) (*Company, error)
	SoftDelete(ctx context.Context, id string, at time.Time) error
	FindByID(ctx context.Context, id string) (*Company, error)
	List(ctx context.Context, filter ListCompaniesFilter) ([]*Company, string, error)

	// LockPerson は人物行を FOR UPDATE でロックします。人物が存在しなければ ErrPersonNotFound を返します。
	LockPerson(ctx context.Context, personID string) error
	// AddMember は関係を追加します。既に存在する場合は何もしません。
	// 人物が別の会社に在籍中なら ErrMembershipConflict を返します。
	AddMember(ctx context.Context, member Member) error
	RemoveMember(ctx context.Context, companyID, personID string, relation Relation) error
	// CompaniesForPerson は人物が relation の関係にある会社を返します。
	// lock が true の場合は該当する所属行を FOR UPDATE でロックします。
	// 行のない人物は何もロックされないため、直列化には LockPerson を使います。
	CompaniesForPerson(ctx context.Context, personID string, relation Relation, lock bool) ([]*Company, error)
	Members(ctx context.Context, companyID string, relation Relation) ([]string, error)
}

// ListCompaniesFilter は一覧取得時の検索条件を表します。
type ListCompaniesFilter struct {
	Limit     int
	Offset    int
	Unclaimed *bool
}
