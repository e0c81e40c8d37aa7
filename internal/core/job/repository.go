package job

import (
	"context"
	"time"
)

// Repository は求人の永続化を行うインターフェースです。
type Repository interface {
	Create(ctx context.Context, job *Job) (*Job, error)
	Update(ctx context.Context, job *Job) (*Job, error)
	FindByID(ctx context.Context, id string) (*Job, error)
	List(ctx context.Context, filter ListJobsFilter) ([]*Job, string, error)
	// UpdateStatus は現在の状態が change.From の場合に限り change.To へ更新します。一致しなければ ErrStatusConflict です。
	UpdateStatus(ctx context.Context, change StatusChange) error
	// ExpireActiveBefore は cutoff より前に掲載された active の求人を job_expired にし、件数を返します。
	ExpireActiveBefore(ctx context.Context, cutoff, at time.Time) (int, error)
}

// StatusChange は状態更新の内容です。PostedAt が nil でなければ掲載開始時刻も置き換えます。
type StatusChange struct {
	ID       string
	From     Status
	To       Status
	At       time.Time
	PostedAt *time.Time
}

// ListJobsFilter は一覧取得時の検索条件です。削除済み会社の求人は常に除外されます。
type ListJobsFilter struct {
	Limit     int
	Offset    int
	Status    *Status
	CompanyID string
}
