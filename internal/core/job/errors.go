package job

import "errors"

var (
	// ErrJobNotFound は求人が存在しない場合に返却されます。
	ErrJobNotFound = errors.New("job not found")
	// ErrInvalidTransition は遷移表にない状態遷移の場合に返却されます。
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrStatusConflict は遷移中に別の更新で状態が変わっていた場合に返却されます。
	ErrStatusConflict = errors.New("job status changed concurrently")
	// ErrInvalidTitle はタイトルが不正な場合に返却されます。
	ErrInvalidTitle = errors.New("invalid title")
	// ErrInvalidID は ID が不正な場合に返却されます。
	ErrInvalidID = errors.New("invalid id")
	// ErrInvalidPageSize は一覧取得時のページサイズが不正な場合に返却されます。
	ErrInvalidPageSize = errors.New("invalid page size")
	// ErrInvalidPageToken は一覧取得時のページトークンが不正な場合に返却されます。
	ErrInvalidPageToken = errors.New("invalid page token")
	// ErrNotEditable は終了済みの求人を編集しようとした場合に返却されます。
	ErrNotEditable = errors.New("job is no longer editable")
	// ErrInvalidStatus は一覧の状態指定が不正な場合に返却されます。
	ErrInvalidStatus = errors.New("invalid status")
)
