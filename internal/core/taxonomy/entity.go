package taxonomy

import "time"

// Kind は分類テーブルの種別です。
type Kind string

const (
	KindSkill      Kind = "skill"
	KindRole       Kind = "role"
	KindDepartment Kind = "department"
	KindIndustry   Kind = "industry"
	KindCert       Kind = "cert"
	KindSexuality  Kind = "sexuality"
	KindGender     Kind = "gender"
	KindEthnicity  Kind = "ethnicity"
	KindPronoun    Kind = "pronoun"
)

// Kinds は有効な種別の一覧です。
var Kinds = []Kind{
	KindSkill, KindRole, KindDepartment, KindIndustry, KindCert,
	KindSexuality, KindGender, KindEthnicity, KindPronoun,
}

// Valid は種別が既知かどうかを返します。
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// IsIdentity はアイデンティティ区分 (公開可否を持つ属性) かどうかを返します。
func (k Kind) IsIdentity() bool {
	switch k {
	case KindSexuality, KindGender, KindEthnicity, KindPronoun:
		return true
	default:
		return false
	}
}

// Term は重複排除された正規の分類レコードです。
type Term struct {
	ID        string
	Kind      Kind
	Name      string
	Key       string
	CreatedAt time.Time
}

// SalaryRange は報酬帯です。
type SalaryRange struct {
	ID        string
	Label     string
	MinAmount int
	MaxAmount int
}

// Strategy は既存レコードとの照合方法です。
type Strategy string

const (
	// StrategyExact は大文字小文字・発音区別符号を無視した完全一致のみで照合します。
	StrategyExact Strategy = "exact"
	// StrategyFuzzy は完全一致に加えて類似度が閾値以上の既存名を採用します。
	StrategyFuzzy Strategy = "fuzzy"
)

// Names は Term の名前一覧を返します。
func Names(terms []Term) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		out = append(out, t.Name)
	}
	return out
}

// IDs は Term の ID 一覧を返します。
func IDs(terms []Term) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		out = append(out, t.ID)
	}
	return out
}
