package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/talent-board/internal/core/job"
	"github.com/ogurasousui/talent-board/internal/core/matching"
	"github.com/ogurasousui/talent-board/internal/core/mentorship"
	"github.com/ogurasousui/talent-board/internal/core/person"
	"github.com/ogurasousui/talent-board/internal/core/taxonomy"
	pgdb "github.com/ogurasousui/talent-board/internal/platform/db/postgres"
)

// MatchingRepository は照合の候補を読み出す実装です。
type MatchingRepository struct {
	pool pgdb.Queryer
}

// NewMatchingRepository は MatchingRepository を生成します。
func NewMatchingRepository(pool pgdb.Queryer) *MatchingRepository {
	return &MatchingRepository{pool: pool}
}

// SubjectAttributes は人物のスキル・職種・部署の ID を返します。
func (r *MatchingRepository) SubjectAttributes(ctx context.Context, personID string) (matching.Attributes, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)

	var exists bool
	if err := exec.QueryRow(ctx, `
        SELECT EXISTS (SELECT 1 FROM people WHERE id = $1 AND deleted_at IS NULL)
    `, personID).Scan(&exists); err != nil {
		return matching.Attributes{}, personErrors.translate(err)
	}
	if !exists {
		return matching.Attributes{}, person.ErrPersonNotFound
	}

	rows, err := exec.Query(ctx, `
        SELECT kind, term_id
          FROM person_terms
         WHERE person_id = $1 AND kind IN ('skill', 'role', 'department')
         ORDER BY kind, position
    `, personID)
	if err != nil {
		return matching.Attributes{}, err
	}
	defer rows.Close()

	var attrs matching.Attributes
	for rows.Next() {
		var kind, termID string
		if err := rows.Scan(&kind, &termID); err != nil {
			return matching.Attributes{}, err
		}
		addAttribute(&attrs, taxonomy.Kind(kind), termID)
	}
	return attrs, rows.Err()
}

// OpenJobs は subject と 1 項目以上重なる active の求人を ID 順に返します。
func (r *MatchingRepository) OpenJobs(ctx context.Context, subject matching.Attributes) ([]matching.Candidate, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT j.id, j.title || ' at ' || c.name, t.kind, t.term_id
          FROM jobs j
          JOIN companies c ON c.id = j.company_id AND c.deleted_at IS NULL
          JOIN job_terms t ON t.job_id = j.id
         WHERE j.status = $1
           AND j.id IN (SELECT job_id FROM job_terms WHERE term_id = ANY($2::uuid[]))
         ORDER BY j.id, t.kind, t.position
    `, string(job.StatusActive), subjectTermIDs(subject))
	if err != nil {
		return nil, err
	}
	return collectCandidates(rows)
}

// ActiveMentors は subject と 1 項目以上重なる active のメンターを ID 順に返します。
func (r *MatchingRepository) ActiveMentors(ctx context.Context, subject matching.Attributes, excludePersonID string) ([]matching.Candidate, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT m.id, trim(p.first_name || ' ' || p.last_name), t.kind, t.term_id
          FROM mentors m
          JOIN people p ON p.id = m.person_id AND p.deleted_at IS NULL
          JOIN person_terms t ON t.person_id = m.person_id AND t.kind IN ('skill', 'role', 'department')
         WHERE m.status = $1
           AND m.person_id <> $2
           AND m.person_id IN (SELECT person_id FROM person_terms WHERE term_id = ANY($3::uuid[]))
         ORDER BY m.id, t.kind, t.position
    `, string(mentorship.StatusActive), excludePersonID, subjectTermIDs(subject))
	if err != nil {
		return nil, err
	}
	return collectCandidates(rows)
}

func subjectTermIDs(a matching.Attributes) []string {
	ids := make([]string, 0, len(a.Skills)+len(a.Roles)+len(a.Departments))
	ids = append(ids, a.Skills...)
	ids = append(ids, a.Roles...)
	return append(ids, a.Departments...)
}

// collectCandidates は候補ごとに連続した (id, label, kind, term) 行をまとめます。
func collectCandidates(rows pgx.Rows) ([]matching.Candidate, error) {
	defer rows.Close()

	var out []matching.Candidate
	for rows.Next() {
		var id, label, kind, termID string
		if err := rows.Scan(&id, &label, &kind, &termID); err != nil {
			return nil, err
		}
		if len(out) == 0 || out[len(out)-1].ID != id {
			out = append(out, matching.Candidate{ID: id, Label: strings.TrimSpace(label)})
		}
		addAttribute(&out[len(out)-1].Attributes, taxonomy.Kind(kind), termID)
	}
	return out, rows.Err()
}

func addAttribute(a *matching.Attributes, kind taxonomy.Kind, termID string) {
	switch kind {
	case taxonomy.KindSkill:
		a.Skills = append(a.Skills, termID)
	case taxonomy.KindRole:
		a.Roles = append(a.Roles, termID)
	case taxonomy.KindDepartment:
		a.Departments = append(a.Departments, termID)
	}
}
