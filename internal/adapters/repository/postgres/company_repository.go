package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/talent-board/internal/core/company"
	pgdb "github.com/ogurasousui/talent-board/internal/platform/db/postgres"
)

const companyColumns = `id, name, url, logo_ref, description, unclaimed, created_by, created_at, updated_at, deleted_at`

var companyErrors = pgErrorMapping{
	noRows:     company.ErrCompanyNotFound,
	foreignKey: company.ErrCompanyNotFound,
}

var personLockErrors = pgErrorMapping{noRows: company.ErrPersonNotFound}

var memberErrors = pgErrorMapping{
	unique:     company.ErrMembershipConflict,
	foreignKey: company.ErrCompanyNotFound,
}

// CompanyRepository は PostgreSQL を利用した会社永続化の実装です。
type CompanyRepository struct {
	pool pgdb.Queryer
}

// NewCompanyRepository は CompanyRepository を生成します。
func NewCompanyRepository(pool pgdb.Queryer) *CompanyRepository {
	return &CompanyRepository{pool: pool}
}

// Create は会社を新規作成します。
func (r *CompanyRepository) Create(ctx context.Context, c *company.Company) (*company.Company, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO companies (name, url, logo_ref, description, unclaimed, created_by, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING `+companyColumns,
		c.Name, c.URL, c.LogoRef, nullableString(c.Description), c.Unclaimed, nullableID(c.CreatedBy), c.CreatedAt, c.UpdatedAt)

	created, err := scanCompany(row)
	if err != nil {
		return nil, companyErrors.translate(err)
	}
	return created, nil
}

// Update は会社情報を更新します。
func (r *CompanyRepository) Update(ctx context.Context, c *company.Company) (*company.Company, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE companies
           SET name = $1,
               url = $2,
               logo_ref = $3,
               description = $4,
               unclaimed = $5,
               updated_at = $6
         WHERE id = $7 AND deleted_at IS NULL
        RETURNING `+companyColumns,
		c.Name, c.URL, c.LogoRef, nullableString(c.Description), c.Unclaimed, c.UpdatedAt, c.ID)

	updated, err := scanCompany(row)
	if err != nil {
		return nil, companyErrors.translate(err)
	}
	return updated, nil
}

// SoftDelete は会社を論理削除します。
func (r *CompanyRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
        UPDATE companies SET deleted_at = $1, updated_at = $1
         WHERE id = $2 AND deleted_at IS NULL
    `, at, id)
	if err != nil {
		return companyErrors.translate(err)
	}
	if tag.RowsAffected() == 0 {
		return company.ErrCompanyNotFound
	}
	return nil
}

// FindByID は ID で会社を取得します。
func (r *CompanyRepository) FindByID(ctx context.Context, id string) (*company.Company, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+companyColumns+`
          FROM companies
         WHERE id = $1 AND deleted_at IS NULL
         LIMIT 1
    `, id)

	found, err := scanCompany(row)
	if err != nil {
		return nil, companyErrors.translate(err)
	}
	return found, nil
}

// List は会社の一覧を取得します。
func (r *CompanyRepository) List(ctx context.Context, filter company.ListCompaniesFilter) ([]*company.Company, string, error) {
	if filter.Limit <= 0 {
		return nil, "", company.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", company.ErrInvalidPageToken
	}

	var ph placeholders
	conditions := []string{"deleted_at IS NULL"}
	if filter.Unclaimed != nil {
		conditions = append(conditions, "unclaimed = "+ph.add(*filter.Unclaimed))
	}
	limit := ph.add(filter.Limit + 1)
	offset := ph.add(filter.Offset)

	query := `
        SELECT ` + companyColumns + `
          FROM companies
         WHERE ` + strings.Join(conditions, " AND ") + `
         ORDER BY name, id
         LIMIT ` + limit + `
        OFFSET ` + offset + `
    `

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, ph.args...)
	if err != nil {
		return nil, "", companyErrors.translate(err)
	}
	companies, err := collectCompanies(rows)
	if err != nil {
		return nil, "", companyErrors.translate(err)
	}

	companies, next := nextPageToken(companies, filter.Limit, filter.Offset)
	return companies, next, nil
}

// LockPerson は人物行を FOR UPDATE でロックし、同じ人物の勤務先更新を直列化します。
func (r *CompanyRepository) LockPerson(ctx context.Context, personID string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	var id string
	err := exec.QueryRow(ctx, `
        SELECT id FROM people
         WHERE id = $1 AND deleted_at IS NULL
         FOR UPDATE
    `, personID).Scan(&id)
	return personLockErrors.translate(err)
}

// AddMember は関係を追加します。既に存在する場合は何もしません。
// 在籍中の会社を一人一社に保つ部分一意インデックスに反した場合は ErrMembershipConflict を返します。
func (r *CompanyRepository) AddMember(ctx context.Context, m company.Member) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	_, err := exec.Exec(ctx, `
        INSERT INTO company_members (company_id, person_id, relation, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (company_id, person_id, relation) DO NOTHING
    `, m.CompanyID, m.PersonID, string(m.Relation), m.CreatedAt)
	return memberErrors.translate(err)
}

// RemoveMember は関係を削除します。存在しない場合も成功として扱います。
func (r *CompanyRepository) RemoveMember(ctx context.Context, companyID, personID string, relation company.Relation) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	_, err := exec.Exec(ctx, `
        DELETE FROM company_members
         WHERE company_id = $1 AND person_id = $2 AND relation = $3
    `, companyID, personID, string(relation))
	return companyErrors.translate(err)
}

// CompaniesForPerson は人物が relation の関係にある会社を返します。
// lock が true の場合は該当する所属行もロックします。直列化は LockPerson が担います。
func (r *CompanyRepository) CompaniesForPerson(ctx context.Context, personID string, relation company.Relation, lock bool) ([]*company.Company, error) {
	query := `
        SELECT c.id, c.name, c.url, c.logo_ref, c.description, c.unclaimed, c.created_by, c.created_at, c.updated_at, c.deleted_at
          FROM company_members m
          JOIN companies c ON c.id = m.company_id
         WHERE m.person_id = $1 AND m.relation = $2
         ORDER BY c.id
    `
	if lock {
		query += ` FOR UPDATE OF m`
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, personID, string(relation))
	if err != nil {
		return nil, companyErrors.translate(err)
	}
	companies, err := collectCompanies(rows)
	if err != nil {
		return nil, companyErrors.translate(err)
	}
	return companies, nil
}

// Members は関係ごとの人物 ID 一覧を返します。
func (r *CompanyRepository) Members(ctx context.Context, companyID string, relation company.Relation) ([]string, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT m.person_id
          FROM company_members m
          JOIN people p ON p.id = m.person_id
         WHERE m.company_id = $1 AND m.relation = $2 AND p.deleted_at IS NULL
         ORDER BY m.created_at, m.person_id
    `, companyID, string(relation))
	if err != nil {
		return nil, companyErrors.translate(err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, companyErrors.translate(err)
	}
	return ids, nil
}

func collectCompanies(rows pgx.Rows) ([]*company.Company, error) {
	defer rows.Close()

	var companies []*company.Company
	for rows.Next() {
		found, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		companies = append(companies, found)
	}
	return companies, rows.Err()
}

func scanCompany(row pgx.Row) (*company.Company, error) {
	var (
		c           company.Company
		description sql.NullString
		createdBy   sql.NullString
		deletedAt   sql.NullTime
	)

	if err := row.Scan(&c.ID, &c.Name, &c.URL, &c.LogoRef, &description, &c.Unclaimed, &createdBy,
		&c.CreatedAt, &c.UpdatedAt, &deletedAt); err != nil {
		return nil, err
	}

	if description.Valid {
		desc := description.String
		c.Description = &desc
	}
	c.CreatedBy = createdBy.String
	if deletedAt.Valid {
		at := deletedAt.Time
		c.DeletedAt = &at
	}
	return &c, nil
}
