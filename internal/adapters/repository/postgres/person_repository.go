package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/talent-board/internal/core/person"
	"github.com/ogurasousui/talent-board/internal/core/taxonomy"
	pgdb "github.com/ogurasousui/talent-board/internal/platform/db/postgres"
)

const personColumns = `id, email, first_name, last_name, password_hash,
               is_member, is_mentor, is_mentee, is_company_account, is_recruiter, is_open_doors, is_staff,
               onboarding_complete, chat_invite_sent, mailing_list_subscribed, internal_notified,
               marketing_jobs, marketing_events, marketing_org_updates, marketing_identity, marketing_newsletter,
               created_at, updated_at, deleted_at, delete_reason`

var personErrors = pgErrorMapping{
	noRows: person.ErrPersonNotFound,
	unique: person.ErrEmailAlreadyExists,
}

var professionalKinds = []taxonomy.Kind{
	taxonomy.KindSkill, taxonomy.KindRole, taxonomy.KindDepartment, taxonomy.KindIndustry, taxonomy.KindCert,
}

var identityKinds = []taxonomy.Kind{
	taxonomy.KindSexuality, taxonomy.KindGender, taxonomy.KindEthnicity, taxonomy.KindPronoun,
}

// PersonRepository は PostgreSQL を利用した人物とプロフィールの永続化の実装です。
type PersonRepository struct {
	pool pgdb.Queryer
}

// NewPersonRepository は PersonRepository を生成します。
func NewPersonRepository(pool pgdb.Queryer) *PersonRepository {
	return &PersonRepository{pool: pool}
}

// Create は人物を新規作成します。
func (r *PersonRepository) Create(ctx context.Context, p *person.Person) (*person.Person, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO people (email, first_name, last_name, password_hash,
               is_member, is_mentor, is_mentee, is_company_account, is_recruiter, is_open_doors, is_staff,
               onboarding_complete,
               marketing_jobs, marketing_events, marketing_org_updates, marketing_identity, marketing_newsletter,
               created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
        RETURNING `+personColumns,
		p.Email, p.FirstName, p.LastName, p.PasswordHash,
		p.Roles.Member, p.Roles.Mentor, p.Roles.Mentee, p.Roles.CompanyAccount, p.Roles.Recruiter, p.Roles.OpenDoors, p.Roles.Staff,
		p.OnboardingComplete,
		p.Marketing.Jobs, p.Marketing.Events, p.Marketing.OrgUpdates, p.Marketing.IdentityPrograms, p.Marketing.Newsletter,
		p.CreatedAt, p.UpdatedAt)

	created, err := scanPerson(row)
	if err != nil {
		return nil, personErrors.translate(err)
	}
	return created, nil
}

// Update は人物の属性・役割・フラグを更新します。論理削除済みの人物は更新しません。
func (r *PersonRepository) Update(ctx context.Context, p *person.Person) (*person.Person, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE people
           SET email = $1,
               first_name = $2,
               last_name = $3,
               password_hash = $4,
               is_member = $5,
               is_mentor = $6,
               is_mentee = $7,
               is_company_account = $8,
               is_recruiter = $9,
               is_open_doors = $10,
               is_staff = $11,
               onboarding_complete = $12,
               marketing_jobs = $13,
               marketing_events = $14,
               marketing_org_updates = $15,
               marketing_identity = $16,
               marketing_newsletter = $17,
               updated_at = $18
         WHERE id = $19 AND deleted_at IS NULL
        RETURNING `+personColumns,
		p.Email, p.FirstName, p.LastName, p.PasswordHash,
		p.Roles.Member, p.Roles.Mentor, p.Roles.Mentee, p.Roles.CompanyAccount, p.Roles.Recruiter, p.Roles.OpenDoors, p.Roles.Staff,
		p.OnboardingComplete,
		p.Marketing.Jobs, p.Marketing.Events, p.Marketing.OrgUpdates, p.Marketing.IdentityPrograms, p.Marketing.Newsletter,
		p.UpdatedAt, p.ID)

	updated, err := scanPerson(row)
	if err != nil {
		return nil, personErrors.translate(err)
	}
	return updated, nil
}

// FindByID は ID で人物を取得します。論理削除済みの人物は返しません。
func (r *PersonRepository) FindByID(ctx context.Context, id string) (*person.Person, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+personColumns+`
          FROM people
         WHERE id = $1 AND deleted_at IS NULL
         LIMIT 1
    `, id)

	found, err := scanPerson(row)
	if err != nil {
		return nil, personErrors.translate(err)
	}
	return found, nil
}

// LockByID は ID で人物を取得し、トランザクション終了まで行をロックします。
func (r *PersonRepository) LockByID(ctx context.Context, id string) (*person.Person, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+personColumns+`
          FROM people
         WHERE id = $1 AND deleted_at IS NULL
         FOR UPDATE
    `, id)

	found, err := scanPerson(row)
	if err != nil {
		return nil, personErrors.translate(err)
	}
	return found, nil
}

// FindByEmail はメールアドレスで人物を取得します。論理削除済みの人物も返します。
func (r *PersonRepository) FindByEmail(ctx context.Context, email string) (*person.Person, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+personColumns+`
          FROM people
         WHERE lower(email) = lower($1)
         LIMIT 1
    `, email)

	found, err := scanPerson(row)
	if err != nil {
		return nil, personErrors.translate(err)
	}
	return found, nil
}

// SoftDelete は人物を論理削除します。
func (r *PersonRepository) SoftDelete(ctx context.Context, id, reason string, at time.Time) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
        UPDATE people
           SET deleted_at = $1, delete_reason = $2, updated_at = $1
         WHERE id = $3 AND deleted_at IS NULL
    `, at, reason, id)
	if err != nil {
		return personErrors.translate(err)
	}
	if tag.RowsAffected() == 0 {
		return person.ErrPersonNotFound
	}
	return nil
}

// MarkSideEffect は外部連携の実行結果を記録します。
func (r *PersonRepository) MarkSideEffect(ctx context.Context, id string, effect person.SideEffect, done bool) error {
	var column string
	switch effect {
	case person.SideEffectChatInvite:
		column = "chat_invite_sent"
	case person.SideEffectMailingList:
		column = "mailing_list_subscribed"
	case person.SideEffectInternalNotify:
		column = "internal_notified"
	default:
		return fmt.Errorf("%q: %w", effect, person.ErrInvalidSideEffect)
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `UPDATE people SET `+column+` = $1 WHERE id = $2`, done, id)
	if err != nil {
		return personErrors.translate(err)
	}
	if tag.RowsAffected() == 0 {
		return person.ErrPersonNotFound
	}
	return nil
}

// Stats は役割ごとの人数を集計します。
func (r *PersonRepository) Stats(ctx context.Context, filter person.StatsFilter) (*person.Stats, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT count(*),
               count(*) FILTER (WHERE is_member),
               count(*) FILTER (WHERE is_mentor),
               count(*) FILTER (WHERE is_mentee),
               count(*) FILTER (WHERE is_company_account),
               count(*) FILTER (WHERE is_recruiter),
               count(*) FILTER (WHERE is_open_doors),
               count(*) FILTER (WHERE is_staff),
               count(*) FILTER (WHERE onboarding_complete),
               count(*) FILTER (WHERE deleted_at IS NOT NULL)
          FROM people
         WHERE $1 OR deleted_at IS NULL
    `, filter.IncludeDeleted)

	var s person.Stats
	if err := row.Scan(&s.Total, &s.Members, &s.Mentors, &s.Mentees, &s.CompanyAccounts, &s.Recruiters,
		&s.OpenDoors, &s.Staff, &s.OnboardingComplete, &s.Deleted); err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateProfiles は空の職務・属性プロフィールを作成します。
func (r *PersonRepository) CreateProfiles(ctx context.Context, personID string, at time.Time) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	if _, err := exec.Exec(ctx, `
        INSERT INTO professional_profiles (person_id, updated_at) VALUES ($1, $2)
        ON CONFLICT (person_id) DO NOTHING
    `, personID, at); err != nil {
		return personErrors.translate(err)
	}
	if _, err := exec.Exec(ctx, `
        INSERT INTO demographic_profiles (person_id, updated_at) VALUES ($1, $2)
        ON CONFLICT (person_id) DO NOTHING
    `, personID, at); err != nil {
		return personErrors.translate(err)
	}
	return nil
}

// FindProfessional は職務プロフィールを分類付きで取得します。
func (r *PersonRepository) FindProfessional(ctx context.Context, personID string) (*person.ProfessionalProfile, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT person_id, experience, job_title, min_salary_id, max_salary_id, resume_ref, photo_ref, updated_at
          FROM professional_profiles
         WHERE person_id = $1
    `, personID)

	var (
		p              person.ProfessionalProfile
		experience     string
		minSal, maxSal sql.NullString
	)
	if err := row.Scan(&p.PersonID, &experience, &p.JobTitle, &minSal, &maxSal, &p.ResumeRef, &p.PhotoRef, &p.UpdatedAt); err != nil {
		return nil, pgErrorMapping{noRows: person.ErrProfileNotFound}.translate(err)
	}
	p.Experience = person.ExperienceBand(experience)
	p.MinSalaryID = minSal.String
	p.MaxSalaryID = maxSal.String

	terms, err := personTermLinks.load(ctx, exec, personID)
	if err != nil {
		return nil, err
	}
	p.Skills = terms[taxonomy.KindSkill]
	p.Roles = terms[taxonomy.KindRole]
	p.Departments = terms[taxonomy.KindDepartment]
	p.Industries = terms[taxonomy.KindIndustry]
	p.Certs = terms[taxonomy.KindCert]
	return &p, nil
}

// SaveProfessional は職務プロフィールと分類の関連を置き換えます。
func (r *PersonRepository) SaveProfessional(ctx context.Context, p *person.ProfessionalProfile) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
        UPDATE professional_profiles
           SET experience = $1,
               job_title = $2,
               min_salary_id = $3,
               max_salary_id = $4,
               resume_ref = $5,
               photo_ref = $6,
               updated_at = $7
         WHERE person_id = $8
    `, string(p.Experience), p.JobTitle, nullableID(p.MinSalaryID), nullableID(p.MaxSalaryID),
		p.ResumeRef, p.PhotoRef, p.UpdatedAt, p.PersonID)
	if err != nil {
		return pgErrorMapping{noRows: person.ErrProfileNotFound}.translate(err)
	}
	if tag.RowsAffected() == 0 {
		return person.ErrProfileNotFound
	}

	lists := map[taxonomy.Kind][]taxonomy.Term{
		taxonomy.KindSkill:      p.Skills,
		taxonomy.KindRole:       p.Roles,
		taxonomy.KindDepartment: p.Departments,
		taxonomy.KindIndustry:   p.Industries,
		taxonomy.KindCert:       p.Certs,
	}
	for _, kind := range professionalKinds {
		if err := personTermLinks.replace(ctx, exec, p.PersonID, kind, lists[kind]); err != nil {
			return err
		}
	}
	return nil
}

// FindDemographic は属性プロフィールを分類付きで取得します。
func (r *PersonRepository) FindDemographic(ctx context.Context, personID string) (*person.DemographicProfile, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT person_id, display_sexuality, display_gender, display_ethnicity, display_pronouns,
               disabled, caregiver, veteran, updated_at
          FROM demographic_profiles
         WHERE person_id = $1
    `, personID)

	var d person.DemographicProfile
	if err := row.Scan(&d.PersonID, &d.Sexuality.Display, &d.Gender.Display, &d.Ethnicity.Display, &d.Pronouns.Display,
		&d.Disabled, &d.Caregiver, &d.Veteran, &d.UpdatedAt); err != nil {
		return nil, pgErrorMapping{noRows: person.ErrProfileNotFound}.translate(err)
	}

	terms, err := personTermLinks.load(ctx, exec, personID)
	if err != nil {
		return nil, err
	}
	d.Sexuality.Terms = terms[taxonomy.KindSexuality]
	d.Gender.Terms = terms[taxonomy.KindGender]
	d.Ethnicity.Terms = terms[taxonomy.KindEthnicity]
	d.Pronouns.Terms = terms[taxonomy.KindPronoun]
	return &d, nil
}

// SaveDemographic は属性プロフィールと分類の関連を置き換えます。
func (r *PersonRepository) SaveDemographic(ctx context.Context, d *person.DemographicProfile) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
        UPDATE demographic_profiles
           SET display_sexuality = $1,
               display_gender = $2,
               display_ethnicity = $3,
               display_pronouns = $4,
               disabled = $5,
               caregiver = $6,
               veteran = $7,
               updated_at = $8
         WHERE person_id = $9
    `, d.Sexuality.Display, d.Gender.Display, d.Ethnicity.Display, d.Pronouns.Display,
		d.Disabled, d.Caregiver, d.Veteran, d.UpdatedAt, d.PersonID)
	if err != nil {
		return pgErrorMapping{noRows: person.ErrProfileNotFound}.translate(err)
	}
	if tag.RowsAffected() == 0 {
		return person.ErrProfileNotFound
	}

	categories := d.Categories()
	for _, kind := range identityKinds {
		if err := personTermLinks.replace(ctx, exec, d.PersonID, kind, categories[kind].Terms); err != nil {
			return err
		}
	}
	return nil
}

func scanPerson(row pgx.Row) (*person.Person, error) {
	var (
		p         person.Person
		deletedAt sql.NullTime
	)
	if err := row.Scan(
		&p.ID, &p.Email, &p.FirstName, &p.LastName, &p.PasswordHash,
		&p.Roles.Member, &p.Roles.Mentor, &p.Roles.Mentee, &p.Roles.CompanyAccount, &p.Roles.Recruiter, &p.Roles.OpenDoors, &p.Roles.Staff,
		&p.OnboardingComplete, &p.SideEffects.ChatInviteSent, &p.SideEffects.MailingListSubscribed, &p.SideEffects.InternalNotified,
		&p.Marketing.Jobs, &p.Marketing.Events, &p.Marketing.OrgUpdates, &p.Marketing.IdentityPrograms, &p.Marketing.Newsletter,
		&p.CreatedAt, &p.UpdatedAt, &deletedAt, &p.DeleteReason,
	); err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		at := deletedAt.Time
		p.DeletedAt = &at
	}
	return &p, nil
}
