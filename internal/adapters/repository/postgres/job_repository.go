package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/talent-board/internal/core/company"
	"github.com/ogurasousui/talent-board/internal/core/job"
	"github.com/ogurasousui/talent-board/internal/core/taxonomy"
	pgdb "github.com/ogurasousui/talent-board/internal/platform/db/postgres"
)

const jobColumns = `j.id, j.company_id, j.title, j.description, j.apply_url, j.location, j.remote, j.status,
               j.salary_id, j.created_by, j.created_at, j.updated_at, j.posted_at`

var jobErrors = pgErrorMapping{
	noRows:     job.ErrJobNotFound,
	foreignKey: company.ErrCompanyNotFound,
}

// JobRepository は求人の永続化の実装です。
type JobRepository struct {
	pool pgdb.Queryer
}

// NewJobRepository は JobRepository を生成します。
func NewJobRepository(pool pgdb.Queryer) *JobRepository {
	return &JobRepository{pool: pool}
}

// Create は求人と分類の関連を保存します。
func (r *JobRepository) Create(ctx context.Context, j *job.Job) (*job.Job, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO jobs AS j (company_id, title, description, apply_url, location, remote, status, salary_id, created_by, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING `+jobColumns,
		j.CompanyID, j.Title, j.Description, j.ApplyURL, j.Location, j.Remote, string(j.Status),
		nullableID(j.SalaryID), nullableID(j.CreatedBy), j.CreatedAt, j.UpdatedAt)

	created, err := scanJob(row)
	if err != nil {
		return nil, jobErrors.translate(err)
	}
	if err := r.saveTerms(ctx, exec, created.ID, j); err != nil {
		return nil, err
	}
	created.Skills, created.Departments = j.Skills, j.Departments
	return created, nil
}

// Update は求人の内容と分類の関連を更新します。状態は UpdateStatus でのみ変更します。
func (r *JobRepository) Update(ctx context.Context, j *job.Job) (*job.Job, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE jobs AS j
           SET title = $1,
               description = $2,
               apply_url = $3,
               location = $4,
               remote = $5,
               salary_id = $6,
               updated_at = $7
         WHERE j.id = $8
        RETURNING `+jobColumns,
		j.Title, j.Description, j.ApplyURL, j.Location, j.Remote, nullableID(j.SalaryID), j.UpdatedAt, j.ID)

	updated, err := scanJob(row)
	if err != nil {
		return nil, jobErrors.translate(err)
	}
	if err := r.saveTerms(ctx, exec, updated.ID, j); err != nil {
		return nil, err
	}
	updated.Skills, updated.Departments = j.Skills, j.Departments
	return updated, nil
}

// FindByID は求人を分類付きで取得します。
func (r *JobRepository) FindByID(ctx context.Context, id string) (*job.Job, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+jobColumns+`
          FROM jobs j
         WHERE j.id = $1
    `, id)

	found, err := scanJob(row)
	if err != nil {
		return nil, jobErrors.translate(err)
	}
	if err := r.loadTerms(ctx, exec, found); err != nil {
		return nil, err
	}
	return found, nil
}

// List は求人を新しい順に返します。削除済み会社の求人は除外します。
func (r *JobRepository) List(ctx context.Context, filter job.ListJobsFilter) ([]*job.Job, string, error) {
	if filter.Limit <= 0 {
		return nil, "", job.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", job.ErrInvalidPageToken
	}

	var ph placeholders
	conditions := []string{"c.deleted_at IS NULL"}
	if filter.Status != nil {
		conditions = append(conditions, "j.status = "+ph.add(string(*filter.Status)))
	}
	if filter.CompanyID != "" {
		conditions = append(conditions, "j.company_id = "+ph.add(filter.CompanyID))
	}
	limit := ph.add(filter.Limit + 1)
	offset := ph.add(filter.Offset)

	query := `
        SELECT ` + jobColumns + `
          FROM jobs j
          JOIN companies c ON c.id = j.company_id
         WHERE ` + strings.Join(conditions, " AND ") + `
         ORDER BY j.created_at DESC, j.id DESC
         LIMIT ` + limit + `
        OFFSET ` + offset + `
    `

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, ph.args...)
	if err != nil {
		return nil, "", jobErrors.translate(err)
	}
	jobs, err := collectJobs(rows)
	if err != nil {
		return nil, "", jobErrors.translate(err)
	}

	jobs, next := nextPageToken(jobs, filter.Limit, filter.Offset)
	for _, j := range jobs {
		if err := r.loadTerms(ctx, exec, j); err != nil {
			return nil, "", err
		}
	}
	return jobs, next, nil
}

// UpdateStatus は現在の状態が change.From の場合に限り change.To へ更新します。
func (r *JobRepository) UpdateStatus(ctx context.Context, change job.StatusChange) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
        UPDATE jobs SET status = $1, updated_at = $2, posted_at = COALESCE($3, posted_at)
         WHERE id = $4 AND status = $5
    `, string(change.To), change.At, change.PostedAt, change.ID, string(change.From))
	if err != nil {
		return jobErrors.translate(err)
	}
	if tag.RowsAffected() == 0 {
		return job.ErrStatusConflict
	}
	return nil
}

// ExpireActiveBefore は cutoff より前に掲載された active の求人を job_expired にします。
func (r *JobRepository) ExpireActiveBefore(ctx context.Context, cutoff, at time.Time) (int, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
        UPDATE jobs SET status = $1, updated_at = $2
         WHERE status = $3 AND posted_at < $4
    `, string(job.StatusExpired), at, string(job.StatusActive), cutoff)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *JobRepository) saveTerms(ctx context.Context, exec pgdb.Queryer, id string, j *job.Job) error {
	if err := jobTermLinks.replace(ctx, exec, id, taxonomy.KindSkill, j.Skills); err != nil {
		return err
	}
	return jobTermLinks.replace(ctx, exec, id, taxonomy.KindDepartment, j.Departments)
}

func (r *JobRepository) loadTerms(ctx context.Context, exec pgdb.Queryer, j *job.Job) error {
	terms, err := jobTermLinks.load(ctx, exec, j.ID)
	if err != nil {
		return err
	}
	j.Skills = terms[taxonomy.KindSkill]
	j.Departments = terms[taxonomy.KindDepartment]
	return nil
}

func collectJobs(rows pgx.Rows) ([]*job.Job, error) {
	defer rows.Close()

	var jobs []*job.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func scanJob(row pgx.Row) (*job.Job, error) {
	var (
		j         job.Job
		status    string
		salaryID  sql.NullString
		createdBy sql.NullString
		postedAt  sql.NullTime
	)
	if err := row.Scan(&j.ID, &j.CompanyID, &j.Title, &j.Description, &j.ApplyURL, &j.Location, &j.Remote, &status,
		&salaryID, &createdBy, &j.CreatedAt, &j.UpdatedAt, &postedAt); err != nil {
		return nil, err
	}
	j.Status = job.Status(status)
	j.SalaryID = salaryID.String
	j.CreatedBy = createdBy.String
	if postedAt.Valid {
		t := postedAt.Time
		j.PostedAt = &t
	}
	return &j, nil
}
