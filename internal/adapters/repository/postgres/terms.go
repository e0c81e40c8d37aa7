package postgres

import (
	"context"
	"time"

	"github.com/ogurasousui/talent-board/internal/core/taxonomy"
	pgdb "github.com/ogurasousui/talent-board/internal/platform/db/postgres"
)

// termLinks は分類レコードとの多対多の関連テーブル (person_terms, job_terms) を扱います。
type termLinks struct {
	table    string
	ownerCol string
}

var (
	personTermLinks = termLinks{table: "person_terms", ownerCol: "person_id"}
	jobTermLinks    = termLinks{table: "job_terms", ownerCol: "job_id"}
)

// load は owner に紐づく分類を種別ごとに登録順で返します。
func (l termLinks) load(ctx context.Context, exec pgdb.Queryer, ownerID string) (map[taxonomy.Kind][]taxonomy.Term, error) {
	rows, err := exec.Query(ctx, `
        SELECT t.id, t.kind, t.name, t.fold_key, t.created_at
          FROM `+l.table+` l
          JOIN taxonomy_terms t ON t.id = l.term_id
         WHERE l.`+l.ownerCol+` = $1
         ORDER BY l.kind, l.position
    `, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[taxonomy.Kind][]taxonomy.Term)
	for rows.Next() {
		var (
			t         taxonomy.Term
			kind      string
			createdAt time.Time
		)
		if err := rows.Scan(&t.ID, &kind, &t.Name, &t.Key, &createdAt); err != nil {
			return nil, err
		}
		t.Kind = taxonomy.Kind(kind)
		t.CreatedAt = createdAt
		out[t.Kind] = append(out[t.Kind], t)
	}
	return out, rows.Err()
}

// replace は kind の関連をすべて terms で置き換えます。呼び出し元のトランザクション内で実行してください。
func (l termLinks) replace(ctx context.Context, exec pgdb.Queryer, ownerID string, kind taxonomy.Kind, terms []taxonomy.Term) error {
	if _, err := exec.Exec(ctx, `DELETE FROM `+l.table+` WHERE `+l.ownerCol+` = $1 AND kind = $2`, ownerID, string(kind)); err != nil {
		return err
	}
	for i, t := range terms {
		if _, err := exec.Exec(ctx, `
            INSERT INTO `+l.table+` (`+l.ownerCol+`, kind, term_id, position)
            VALUES ($1, $2, $3, $4)
            ON CONFLICT DO NOTHING
        `, ownerID, string(kind), t.ID, i); err != nil {
			return err
		}
	}
	return nil
}
