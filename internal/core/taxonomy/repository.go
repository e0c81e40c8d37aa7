package taxonomy

import "context"

// Repository は分類レコードの永続化を行うインターフェースです。
type Repository interface {
	// FindByName は折りたたみ済みキーで完全一致検索します。
	FindByName(ctx context.Context, kind Kind, key string) (*Term, error)
	ListByKind(ctx context.Context, kind Kind) ([]*Term, error)
	// Create は term を作成します。同じキーが既に存在する場合は既存レコードを返します。
	Create(ctx context.Context, term *Term) (*Term, error)
	FindSalaryRange(ctx context.Context, id string) (*SalaryRange, error)
	ListSalaryRanges(ctx context.Context) ([]*SalaryRange, error)
}
