package postgres

import (
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	invalidTextCode         = "22P02"
)

// pgErrorMapping は PostgreSQL エラーとドメインエラーの対応です。nil の項目は変換しません。
type pgErrorMapping struct {
	noRows     error
	unique     error
	foreignKey error
}

// translate は pgx のエラーをドメインエラーに変換します。
// UUID として解釈できない ID は存在しない行として扱います。
func (m pgErrorMapping) translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) && m.noRows != nil {
		return m.noRows
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case uniqueViolationCode:
		if m.unique != nil {
			return m.unique
		}
	case foreignKeyViolationCode:
		if m.foreignKey != nil {
			return m.foreignKey
		}
	case invalidTextCode:
		if m.noRows != nil {
			return m.noRows
		}
	}
	return err
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

// nullableID は空文字の ID を NULL として渡します。
func nullableID(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// placeholders は $n を順に払い出します。
type placeholders struct {
	args []any
}

func (p *placeholders) add(v any) string {
	p.args = append(p.args, v)
	return "$" + strconv.Itoa(len(p.args))
}

// nextPageToken は limit+1 件取得した結果を切り詰め、続きがあればトークンを返します。
func nextPageToken[T any](items []T, limit, offset int) ([]T, string) {
	if len(items) > limit {
		return items[:limit], strconv.Itoa(offset + limit)
	}
	return items, ""
}
