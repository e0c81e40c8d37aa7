package company

import "errors"

var (
	// ErrCompanyNotFound は会社が存在しない場合に返却されます。
	ErrCompanyNotFound = errors.New("company not found")
	// ErrPersonNotFound は勤務先を解決する人物が存在しない場合に返却されます。
	ErrPersonNotFound = errors.New("person not found")
	// ErrMembershipConflict は人物が既に別の会社に在籍中の場合に返却されます。
	ErrMembershipConflict = errors.New("person already has a current company")
	// ErrInvalidName は会社名が不正な場合に返却されます。
	ErrInvalidName = errors.New("invalid name")
	// ErrInvalidURL は URL が不正な場合に返却されます。
	ErrInvalidURL = errors.New("invalid url")
	// ErrInvalidRelation は関係の種類が不正な場合に返却されます。
	ErrInvalidRelation = errors.New("invalid relation")
	// ErrInvalidRef は勤務先の指定が不足している場合に返却されます。
	ErrInvalidRef = errors.New("company id or name is required")
	// ErrInvalidID は ID が不正な場合に返却されます。
	ErrInvalidID = errors.New("invalid id")
	// ErrInvalidPageSize は一覧取得時のページサイズが不正な場合に返却されます。
	ErrInvalidPageSize = errors.New("invalid page size")
	// ErrInvalidPageToken は一覧取得時のページトークンが不正な場合に返却されます。
	ErrInvalidPageToken = errors.New("invalid page token")
)
