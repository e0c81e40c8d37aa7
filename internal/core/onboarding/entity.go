package onboarding

import (
	"io"

	"github.com/ogurasousui/talent-board/internal/core/company"
	"github.com/ogurasousui/talent-board/internal/core/mentorship"
	"github.com/ogurasousui/talent-board/internal/core/person"
	"github.com/ogurasousui/talent-board/internal/core/taxonomy"
)

// IdentityField はアイデンティティ区分の入力値と公開可否です。
type IdentityField struct {
	Labels  []string
	Display bool
}

// MentorshipForm はメンタリングプログラムへの参加希望です。
type MentorshipForm struct {
	Mentor     bool
	Mentee     bool
	Commitment mentorship.Commitment
	Capacity   int
	Bio        string
	Goals      string
}

// Form はオンボーディングの入力です。ラベルは自由入力のまま受け取り、ここで正規化します。
type Form struct {
	Experience  person.ExperienceBand
	JobTitle    string
	Skills      []string
	Roles       []string
	Departments []string
	Industries  []string
	Certs       []string
	MinSalaryID string
	MaxSalaryID string
	Identity    map[taxonomy.Kind]IdentityField
	Disabled    bool
	Caregiver   bool
	Veteran     bool
	Company     *company.Ref
	Mentorship  *MentorshipForm
	Marketing   person.Marketing
}

// Upload はアップロードされたファイルです。
type Upload struct {
	Filename string
	Content  io.Reader
}

// Files はオンボーディングで受け取るファイルです。
type Files struct {
	Resume *Upload
	Photo  *Upload
}

// Result はオンボーディングの結果です。
type Result struct {
	Profile    *person.Profile
	Company    *company.Company
	Enrollment *mentorship.Enrollment
}

// ProfessionalForm は職務プロフィール更新の入力です。nil のリストは変更しません。
type ProfessionalForm struct {
	Experience  *person.ExperienceBand
	JobTitle    *string
	Skills      []string
	Roles       []string
	Departments []string
	Industries  []string
	Certs       []string
	MinSalaryID *string
	MaxSalaryID *string
}
