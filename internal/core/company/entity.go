package company

import "time"

// Relation は会社と人物の関係の種類です。関係ごとに独立した集合として保持します。
type Relation string

const (
	RelationCurrent Relation = "current"
	RelationPast    Relation = "past"
	RelationBilling Relation = "billing"
	RelationHiring  Relation = "hiring"
	RelationAdmin   Relation = "admin"
)

// Valid は既知の関係かどうかを返します。
func (r Relation) Valid() bool {
	switch r {
	case RelationCurrent, RelationPast, RelationBilling, RelationHiring, RelationAdmin:
		return true
	default:
		return false
	}
}

// Company は会社エンティティです。
// Unclaimed は会員が勤務先として登録しただけで、会社アカウントがまだ存在しない状態を表します。
type Company struct {
	ID          string
	Name        string
	URL         string
	LogoRef     string
	Description *string
	Unclaimed   bool
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// Member は会社と人物の関係 1 件です。
type Member struct {
	CompanyID string
	PersonID  string
	Relation  Relation
	CreatedAt time.Time
}

// Ref は勤務先の指定です。ID があれば既存の会社、なければ Name と URL で新規作成します。
type Ref struct {
	ID      string
	Name    string
	URL     string
	LogoRef string
}

// IsZero は勤務先が指定されていないかどうかを返します。
func (r Ref) IsZero() bool {
	return r.ID == "" && r.Name == "" && r.URL == ""
}
