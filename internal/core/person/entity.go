package person

import (
	"time"

	"github.com/ogurasousui/talent-board/internal/core/taxonomy"
)

// AccountType は登録時のアカウント種別です。
type AccountType string

const (
	AccountMember    AccountType = "member"
	AccountCompany   AccountType = "company"
	AccountOpenDoors AccountType = "open_doors"
)

// Valid は既知のアカウント種別かどうかを返します。
func (a AccountType) Valid() bool {
	switch a {
	case AccountMember, AccountCompany, AccountOpenDoors:
		return true
	default:
		return false
	}
}

// Roles は人物に付与される役割フラグです。各フラグは独立しています。
type Roles struct {
	Member         bool
	Mentor         bool
	Mentee         bool
	CompanyAccount bool
	Recruiter      bool
	OpenDoors      bool
	Staff          bool
}

// SideEffects は外部連携の実行結果です。失敗しても主処理は成功扱いとし、ここに記録だけ残します。
type SideEffects struct {
	ChatInviteSent        bool
	MailingListSubscribed bool
	InternalNotified      bool
}

// SideEffect は記録対象の外部連携を表します。
type SideEffect string

const (
	SideEffectChatInvite     SideEffect = "chat_invite"
	SideEffectMailingList    SideEffect = "mailing_list"
	SideEffectInternalNotify SideEffect = "internal_notify"
)

// Marketing はメール配信のオプトイン設定です。
type Marketing struct {
	Jobs             bool
	Events           bool
	OrgUpdates       bool
	IdentityPrograms bool
	Newsletter       bool
}

// Person は会員エンティティです。
type Person struct {
	ID                 string
	Email              string
	FirstName          string
	LastName           string
	PasswordHash       string
	Roles              Roles
	OnboardingComplete bool
	SideEffects        SideEffects
	Marketing          Marketing
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeletedAt          *time.Time
	DeleteReason       string
}

// Deleted は論理削除済みかどうかを返します。
func (p *Person) Deleted() bool {
	return p.DeletedAt != nil
}

// FullName は表示名を返します。
func (p *Person) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	default:
		return p.FirstName + " " + p.LastName
	}
}

// ExperienceBand は経験年数の区分です。
type ExperienceBand string

const (
	ExperienceUnder1   ExperienceBand = "0-1"
	Experience1To2     ExperienceBand = "1-2"
	Experience2To4     ExperienceBand = "2-4"
	Experience5To7     ExperienceBand = "5-7"
	Experience8To10    ExperienceBand = "8-10"
	Experience11To15   ExperienceBand = "11-15"
	ExperienceOver16   ExperienceBand = "16+"
	ExperienceNotGiven ExperienceBand = ""
)

// ExperienceBands は選択可能な区分の一覧です。
var ExperienceBands = []ExperienceBand{
	ExperienceUnder1, Experience1To2, Experience2To4, Experience5To7,
	Experience8To10, Experience11To15, ExperienceOver16,
}

// Valid は区分が既知 (または未指定) かどうかを返します。
func (e ExperienceBand) Valid() bool {
	if e == ExperienceNotGiven {
		return true
	}
	for _, band := range ExperienceBands {
		if e == band {
			return true
		}
	}
	return false
}

// ProfessionalProfile は職務プロフィールです。Person 作成時に空で作られます。
type ProfessionalProfile struct {
	PersonID    string
	Experience  ExperienceBand
	JobTitle    string
	Skills      []taxonomy.Term
	Roles       []taxonomy.Term
	Departments []taxonomy.Term
	Industries  []taxonomy.Term
	Certs       []taxonomy.Term
	MinSalaryID string
	MaxSalaryID string
	ResumeRef   string
	PhotoRef    string
	UpdatedAt   time.Time
}

// IdentityCategory はアイデンティティ区分の値と公開可否の組です。
type IdentityCategory struct {
	Terms   []taxonomy.Term
	Display bool
}

// DemographicProfile は属性プロフィールです。
type DemographicProfile struct {
	PersonID  string
	Sexuality IdentityCategory
	Gender    IdentityCategory
	Ethnicity IdentityCategory
	Pronouns  IdentityCategory
	Disabled  bool
	Caregiver bool
	Veteran   bool
	UpdatedAt time.Time
}

// Categories は種別ごとのアイデンティティ区分を返します。
func (d *DemographicProfile) Categories() map[taxonomy.Kind]IdentityCategory {
	return map[taxonomy.Kind]IdentityCategory{
		taxonomy.KindSexuality: d.Sexuality,
		taxonomy.KindGender:    d.Gender,
		taxonomy.KindEthnicity: d.Ethnicity,
		taxonomy.KindPronoun:   d.Pronouns,
	}
}

// SetCategory は種別に対応する区分を置き換えます。アイデンティティ以外の種別は無視されます。
func (d *DemographicProfile) SetCategory(kind taxonomy.Kind, category IdentityCategory) {
	switch kind {
	case taxonomy.KindSexuality:
		d.Sexuality = category
	case taxonomy.KindGender:
		d.Gender = category
	case taxonomy.KindEthnicity:
		d.Ethnicity = category
	case taxonomy.KindPronoun:
		d.Pronouns = category
	}
}

// PublicDemographics は公開プロフィールに載せてよい属性のみを持ちます。
type PublicDemographics struct {
	Sexuality []string
	Gender    []string
	Ethnicity []string
	Pronouns  []string
}

// Public は非公開の区分を取り除いた表示用の値を返します。
func (d *DemographicProfile) Public() PublicDemographics {
	pick := func(c IdentityCategory) []string {
		if !c.Display || len(c.Terms) == 0 {
			return nil
		}
		return taxonomy.Names(c.Terms)
	}
	return PublicDemographics{
		Sexuality: pick(d.Sexuality),
		Gender:    pick(d.Gender),
		Ethnicity: pick(d.Ethnicity),
		Pronouns:  pick(d.Pronouns),
	}
}

// Profile は Person と付随プロフィールの集約です。
type Profile struct {
	Person       *Person
	Professional *ProfessionalProfile
	Demographic  *DemographicProfile
}

// StatsFilter は集計条件です。
type StatsFilter struct {
	IncludeDeleted bool
}

// Stats は管理画面向けの内訳です。
type Stats struct {
	Total              int
	Members            int
	Mentors            int
	Mentees            int
	CompanyAccounts    int
	Recruiters         int
	OpenDoors          int
	Staff              int
	OnboardingComplete int
	Deleted            int
}
