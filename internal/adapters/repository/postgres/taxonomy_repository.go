package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/talent-board/internal/core/taxonomy"
	pgdb "github.com/ogurasousui/talent-board/internal/platform/db/postgres"
)

var (
	termErrors        = pgErrorMapping{noRows: taxonomy.ErrTermNotFound}
	salaryRangeErrors = pgErrorMapping{noRows: taxonomy.ErrSalaryRangeNotFound}
)

// TaxonomyRepository は分類レコードと報酬帯の永続化の実装です。
type TaxonomyRepository struct {
	pool pgdb.Queryer
}

// NewTaxonomyRepository は TaxonomyRepository を生成します。
func NewTaxonomyRepository(pool pgdb.Queryer) *TaxonomyRepository {
	return &TaxonomyRepository{pool: pool}
}

// FindByName は折りたたみ済みキーで完全一致検索します。
func (r *TaxonomyRepository) FindByName(ctx context.Context, kind taxonomy.Kind, key string) (*taxonomy.Term, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT id, kind, name, fold_key, created_at
          FROM taxonomy_terms
         WHERE kind = $1 AND fold_key = $2
    `, string(kind), key)

	found, err := scanTerm(row)
	if err != nil {
		return nil, termErrors.translate(err)
	}
	return found, nil
}

// ListByKind は種別の全レコードを作成順に返します。
func (r *TaxonomyRepository) ListByKind(ctx context.Context, kind taxonomy.Kind) ([]*taxonomy.Term, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT id, kind, name, fold_key, created_at
          FROM taxonomy_terms
         WHERE kind = $1
         ORDER BY created_at, id
    `, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var terms []*taxonomy.Term
	for rows.Next() {
		t, err := scanTerm(rows)
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	return terms, rows.Err()
}

// Create は term を作成します。同時に同じキーが作成された場合は既存レコードを返します。
func (r *TaxonomyRepository) Create(ctx context.Context, t *taxonomy.Term) (*taxonomy.Term, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO taxonomy_terms (kind, name, fold_key, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (kind, fold_key) DO UPDATE SET fold_key = EXCLUDED.fold_key
        RETURNING id, kind, name, fold_key, created_at
    `, string(t.Kind), t.Name, t.Key, t.CreatedAt)

	created, err := scanTerm(row)
	if err != nil {
		return nil, termErrors.translate(err)
	}
	return created, nil
}

// FindSalaryRange は報酬帯を取得します。
func (r *TaxonomyRepository) FindSalaryRange(ctx context.Context, id string) (*taxonomy.SalaryRange, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT id, label, min_amount, max_amount FROM salary_ranges WHERE id = $1
    `, id)

	var sr taxonomy.SalaryRange
	if err := row.Scan(&sr.ID, &sr.Label, &sr.MinAmount, &sr.MaxAmount); err != nil {
		return nil, salaryRangeErrors.translate(err)
	}
	return &sr, nil
}

// ListSalaryRanges は報酬帯を金額順に返します。
func (r *TaxonomyRepository) ListSalaryRanges(ctx context.Context) ([]*taxonomy.SalaryRange, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT id, label, min_amount, max_amount FROM salary_ranges ORDER BY min_amount, id
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*taxonomy.SalaryRange
	for rows.Next() {
		var sr taxonomy.SalaryRange
		if err := rows.Scan(&sr.ID, &sr.Label, &sr.MinAmount, &sr.MaxAmount); err != nil {
			return nil, err
		}
		out = append(out, &sr)
	}
	return out, rows.Err()
}

func scanTerm(row pgx.Row) (*taxonomy.Term, error) {
	var (
		t         taxonomy.Term
		kind      string
		createdAt time.Time
	)
	if err := row.Scan(&t.ID, &kind, &t.Name, &t.Key, &createdAt); err != nil {
		return nil, err
	}
	t.Kind = taxonomy.Kind(kind)
	t.CreatedAt = createdAt
	return &t, nil
}
