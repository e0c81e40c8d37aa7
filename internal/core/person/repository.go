package person

import (
	"context"
	"time"
)

// Repository は人物とプロフィールの永続化を行うインターフェースです。
// FindByID は論理削除済みの人物を返しません。FindByEmail は重複登録の判定に使うため削除済みも返します。
type Repository interface {
	Create(ctx context.Context, person *Person) (*Person, error)
	Update(ctx context.Context, person *Person) (*Person, error)
	FindByID(ctx context.Context, id string) (*Person, error)
	// LockByID は FindByID と同じ人物を FOR UPDATE で読み、トランザクション終了まで行をロックします。
	LockByID(ctx context.Context, id string) (*Person, error)
	FindByEmail(ctx context.Context, email string) (*Person, error)
	SoftDelete(ctx context.Context, id, reason string, at time.Time) error
	MarkSideEffect(ctx context.Context, id string, effect SideEffect, done bool) error
	Stats(ctx context.Context, filter StatsFilter) (*Stats, error)

	CreateProfiles(ctx context.Context, personID string, at time.Time) error
	FindProfessional(ctx context.Context, personID string) (*ProfessionalProfile, error)
	SaveProfessional(ctx context.Context, profile *ProfessionalProfile) error
	FindDemographic(ctx context.Context, personID string) (*DemographicProfile, error)
	SaveDemographic(ctx context.Context, profile *DemographicProfile) error
}
