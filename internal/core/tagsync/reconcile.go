package tagsync

import (
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/ogurasousui/talent-board/internal/core/person"
	"github.com/ogurasousui/talent-board/internal/core/taxonomy"
)

// 属性フラグとマーケティング設定に対応する固定タグ名です。
const (
	TagDisabled                  = "disabled"
	TagCaregiver                 = "caregiver"
	TagVeteran                   = "veteran"
	TagMarketingJobs             = "marketing_jobs"
	TagMarketingEvents           = "marketing_events"
	TagMarketingOrgUpdates       = "marketing_org_updates"
	TagMarketingIdentityPrograms = "marketing_identity_programs"
	TagMarketingNewsletter       = "marketing_newsletter"
)

// Tag はメール配信サービス側で管理されるタグです。
type Tag struct {
	ID   string
	Name string
}

// Profile はタグ付けの判断に使う人物の属性です。
type Profile struct {
	Email       string
	Skills      []string
	Roles       []string
	Departments []string
	// Identity は公開を許可されたアイデンティティ区分の名前のみを持ちます。
	Identity  []string
	Disabled  bool
	Caregiver bool
	Veteran   bool
	Marketing person.Marketing
}

// ProfileFrom は人物プロフィールからタグ付け用の属性を組み立てます。非公開の区分は含めません。
func ProfileFrom(p *person.Profile) Profile {
	out := Profile{
		Email:     p.Person.Email,
		Marketing: p.Person.Marketing,
	}
	if prof := p.Professional; prof != nil {
		out.Skills = taxonomy.Names(prof.Skills)
		out.Roles = taxonomy.Names(prof.Roles)
		out.Departments = taxonomy.Names(prof.Departments)
	}
	if demo := p.Demographic; demo != nil {
		pub := demo.Public()
		for _, names := range [][]string{pub.Sexuality, pub.Gender, pub.Ethnicity, pub.Pronouns} {
			out.Identity = append(out.Identity, names...)
		}
		out.Disabled = demo.Disabled
		out.Caregiver = demo.Caregiver
		out.Veteran = demo.Veteran
	}
	return out
}

// Delta は付与・解除するタグです。
type Delta struct {
	Add    []Tag
	Remove []Tag
}

// Empty は変更がないかどうかを返します。
func (d Delta) Empty() bool {
	return len(d.Add) == 0 && len(d.Remove) == 0
}

// Managed は同期の対象とするタグの条件です。Prefix で始まるタグと Names に含まれるタグだけを扱い、
// 運用担当者が手作業で付けたそれ以外のタグには触れません。
type Managed struct {
	Prefix string
	Names  []string
}

// Filter は catalog から管理対象のタグを取り出します。Prefix で一致したタグは Prefix を除いた名前で照合します。
func (m Managed) Filter(catalog []Tag) []Tag {
	names := mapset.NewThreadUnsafeSet[string]()
	for _, n := range m.Names {
		names.Add(taxonomy.Fold(n))
	}
	out := make([]Tag, 0, len(catalog))
	for _, tag := range catalog {
		switch {
		case m.Prefix != "" && len(tag.Name) > len(m.Prefix) && strings.HasPrefix(tag.Name, m.Prefix):
			out = append(out, Tag{ID: tag.ID, Name: strings.TrimPrefix(tag.Name, m.Prefix)})
		case names.Contains(taxonomy.Fold(tag.Name)):
			out = append(out, tag)
		}
	}
	return out
}

// Reconcile は管理対象のタグ catalog を付与対象と解除対象に分けます。
// 二つは互いに素で、合わせると catalog 全体になります。名前の照合は大文字小文字と発音区別符号を無視します。
func Reconcile(p Profile, catalog []Tag) Delta {
	wanted := mapset.NewThreadUnsafeSet[string]()
	for _, group := range [][]string{p.Skills, p.Roles, p.Departments, p.Identity} {
		for _, name := range group {
			wanted.Add(taxonomy.Fold(name))
		}
	}
	for name, on := range map[string]bool{
		TagDisabled:                  p.Disabled,
		TagCaregiver:                 p.Caregiver,
		TagVeteran:                   p.Veteran,
		TagMarketingJobs:             p.Marketing.Jobs,
		TagMarketingEvents:           p.Marketing.Events,
		TagMarketingOrgUpdates:       p.Marketing.OrgUpdates,
		TagMarketingIdentityPrograms: p.Marketing.IdentityPrograms,
		TagMarketingNewsletter:       p.Marketing.Newsletter,
	} {
		if on {
			wanted.Add(name)
		}
	}

	var d Delta
	for _, tag := range catalog {
		if wanted.Contains(taxonomy.Fold(tag.Name)) {
			d.Add = append(d.Add, tag)
		} else {
			d.Remove = append(d.Remove, tag)
		}
	}
	sortTags(d.Add)
	sortTags(d.Remove)
	return d
}

func sortTags(tags []Tag) {
	sort.Slice(tags, func(i, j int) bool {
		return tags[i].Name < tags[j].Name
	})
}
