package person

import "errors"

var (
	// ErrPersonNotFound は人物が存在しない (または論理削除済み) 場合に返却されます。
	ErrPersonNotFound = errors.New("person not found")
	// ErrProfileNotFound はプロフィールが存在しない場合に返却されます。
	ErrProfileNotFound = errors.New("profile not found")
	// ErrEmailAlreadyExists はメールアドレス重複時に返却されます。
	ErrEmailAlreadyExists = errors.New("email already in use")
	// ErrInvalidEmail はメールアドレスが不正な場合に返却されます。
	ErrInvalidEmail = errors.New("invalid email")
	// ErrInvalidName は名前が不正な場合に返却されます。
	ErrInvalidName = errors.New("invalid name")
	// ErrInvalidID は ID が不正な場合に返却されます。
	ErrInvalidID = errors.New("invalid id")
	// ErrInvalidAccountType はアカウント種別が不正な場合に返却されます。
	ErrInvalidAccountType = errors.New("invalid account type")
	// ErrWeakPassword はパスワードが短すぎる場合に返却されます。
	ErrWeakPassword = errors.New("password must be at least 8 characters")
	// ErrInvalidCredentials は認証に失敗した場合に返却されます。
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidExperience は経験年数区分が不正な場合に返却されます。
	ErrInvalidExperience = errors.New("invalid experience band")
	ErrInvalidSideEffect = errors.New("invalid side effect")
)
