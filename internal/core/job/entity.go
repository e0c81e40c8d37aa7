package job

import (
	"time"

	"github.com/ogurasousui/talent-board/internal/core/taxonomy"
)

// Status は求人の状態です。
type Status string

const (
	StatusDraft    Status = "draft"
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusPaused   Status = "paused"
	StatusClosed   Status = "closed"
	StatusExpired  Status = "job_expired"
	StatusRejected Status = "rejected"
)

// Valid は既知の状態かどうかを返します。
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusActive, StatusPaused, StatusClosed, StatusExpired, StatusRejected:
		return true
	default:
		return false
	}
}

// Job は求人エンティティです。
type Job struct {
	ID          string
	CompanyID   string
	Title       string
	Description string
	ApplyURL    string
	Location    string
	Remote      bool
	Status      Status
	Skills      []taxonomy.Term
	Departments []taxonomy.Term
	SalaryID    string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	// PostedAt は直近に承認され掲載が始まった時刻です。未承認なら nil です。
	PostedAt *time.Time
}
