package matching

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// Attributes は照合に使う分類項目の ID 集合です。
type Attributes struct {
	Skills      []string
	Roles       []string
	Departments []string
}

// Empty は照合対象の項目を 1 つも持たないかどうかを返します。
func (a Attributes) Empty() bool {
	return len(a.Skills) == 0 && len(a.Roles) == 0 && len(a.Departments) == 0
}

// Candidate は求人またはメンターの候補です。
type Candidate struct {
	ID         string
	Label      string
	Attributes Attributes
}

// Match は候補とスコアの組です。
type Match struct {
	Candidate Candidate
	Score     int
}

// Score はスキル・職種・部署それぞれの共通項目数の合計です。
func Score(subject, candidate Attributes) int {
	return overlap(subject.Skills, candidate.Skills) +
		overlap(subject.Roles, candidate.Roles) +
		overlap(subject.Departments, candidate.Departments)
}

// Rank は pool を降順スコアで並べます。共通項目が 1 つもない候補は含めません。
// 同点は pool の順序を保ちます。
func Rank(subject Attributes, pool []Candidate) []Match {
	out := make([]Match, 0, len(pool))
	for _, c := range pool {
		if s := Score(subject, c.Attributes); s > 0 {
			out = append(out, Match{Candidate: c, Score: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

func overlap(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	return mapset.NewThreadUnsafeSet(a...).Intersect(mapset.NewThreadUnsafeSet(b...)).Cardinality()
}
